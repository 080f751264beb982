// Package dns serves a static zone over the stack's UDP layer.
package dns

import (
	"encoding/binary"
	"net"
	"net/netip"

	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/BigDEM0N/net-work-lab/udp"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const (
	DefaultPort = 53
	DefaultTTL  = 60
)

type DNS struct {
	Enable  bool                `yaml:"enable"`
	Port    uint16              `yaml:"port"`
	TTL     uint32              `yaml:"ttl"`
	Records map[string][]string `yaml:"records"`
}

// Validate fills defaults and checks the records.
func (d *DNS) Validate() error {
	if d.Port == 0 {
		d.Port = DefaultPort
	}
	if d.TTL == 0 {
		d.TTL = DefaultTTL
	}
	_, err := newRecords(d.Records)
	return err
}

type Server struct {
	sender  udp.Sender
	local   netip.AddrPort
	handler dns.Handler
}

// NewServer creates a server answering from d's records. Replies leave
// from local and go through sender.
func (d *DNS) NewServer(sender udp.Sender, local netip.Addr) (*Server, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	r, err := newRecords(d.Records)
	if err != nil {
		return nil, err
	}
	return &Server{
		sender:  sender,
		local:   netip.AddrPortFrom(local, d.Port),
		handler: newStaticDNS(r, d.TTL),
	}, nil
}

func (s *Server) Port() uint16 {
	return s.local.Port()
}

// Deliver handles one query datagram. Unparsable queries that still carry
// an ID are answered with FORMERR.
func (s *Server) Deliver(payload []byte, src netip.Addr, srcPort uint16) {
	w := &responseWriter{server: s, remote: netip.AddrPortFrom(src, srcPort)}

	r := new(dns.Msg)
	if err := r.Unpack(payload); err != nil {
		log.Debug("[DNS] unparsable query", zap.Stringer("src", w.remote), zap.Error(err))
		if len(payload) < 2 {
			return
		}
		m := new(dns.Msg)
		m.Id = binary.BigEndian.Uint16(payload)
		m.Response = true
		m.Rcode = dns.RcodeFormatError
		if err := w.WriteMsg(m); err != nil {
			log.Error("[DNS] failed to send reply", zap.Error(err))
		}
		return
	}
	s.handler.ServeDNS(w, r)
}

// responseWriter answers one query through the UDP layer.
type responseWriter struct {
	server *Server
	remote netip.AddrPort
}

func (w *responseWriter) LocalAddr() net.Addr {
	return net.UDPAddrFromAddrPort(w.server.local)
}

func (w *responseWriter) RemoteAddr() net.Addr {
	return net.UDPAddrFromAddrPort(w.remote)
}

func (w *responseWriter) Network() string {
	return "udp"
}

func (w *responseWriter) WriteMsg(m *dns.Msg) error {
	b, err := m.Pack()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if err := w.server.sender.Send(b, w.server.local.Port(), w.remote.Addr(), w.remote.Port()); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (w *responseWriter) Close() error {
	return nil
}

func (w *responseWriter) TsigStatus() error {
	return nil
}

func (w *responseWriter) TsigTimersOnly(bool) {}

func (w *responseWriter) Hijack() {}
