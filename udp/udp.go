// Package udp implements the UDP datagram layer: header validation,
// checksum verification over the IPv4 pseudo-header, per-port dispatch and
// port unreachable reporting.
package udp

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/BigDEM0N/net-work-lab/buffer"
	"github.com/BigDEM0N/net-work-lab/icmp"
	"github.com/BigDEM0N/net-work-lab/ip"
	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/BigDEM0N/net-work-lab/metrics"
	"go.uber.org/zap"
)

// MaxPayload is the largest payload Send accepts.
const MaxPayload = ip.MaxPayload - HeaderLen

var ErrPayloadTooLarge = errors.New("udp: payload too large")

// Network is the part of the IP layer UDP sends through.
type Network interface {
	Transmit(buf *buffer.Buffer, dst netip.Addr, proto uint8) error
	LocalAddr() netip.Addr
}

// Sender sends one datagram. *Protocol implements it.
type Sender interface {
	Send(data []byte, srcPort uint16, dst netip.Addr, dstPort uint16) error
}

// Dispatcher routes inbound datagrams by IP protocol number.
type Dispatcher interface {
	RegisterProtocol(proto uint8, h ip.ProtocolHandler)
}

type Options struct {
	// MaxPorts caps the number of open ports, zero means no cap.
	MaxPorts     int
	Exclusive    bool
	ZeroChecksum ZeroChecksum
}

type Protocol struct {
	network  Network
	notifier ip.Notifier
	registry *Registry
	zero     ZeroChecksum
	metrics  *metrics.Metrics
}

func New(n Network, notifier ip.Notifier, m *metrics.Metrics, opts Options) *Protocol {
	return &Protocol{
		network:  n,
		notifier: notifier,
		registry: NewRegistry(opts.MaxPorts, opts.Exclusive),
		zero:     opts.ZeroChecksum,
		metrics:  m,
	}
}

// Register installs p as the handler of IP protocol 17.
func (p *Protocol) Register(d Dispatcher) {
	d.RegisterProtocol(ip.ProtocolUDP, p)
}

// Open binds h to port. Depending on the options an open port is either
// rebound or refused with ErrPortInUse.
func (p *Protocol) Open(port uint16, h Handler) error {
	if err := p.registry.Register(port, h); err != nil {
		return err
	}
	p.metrics.UDPOpenPorts.Set(float64(p.registry.Len()))
	log.Info("[UDP] port opened", zap.Uint16("port", port))
	return nil
}

func (p *Protocol) Close(port uint16) {
	p.registry.Unregister(port)
	p.metrics.UDPOpenPorts.Set(float64(p.registry.Len()))
	log.Info("[UDP] port closed", zap.Uint16("port", port))
}

func (p *Protocol) Lookup(port uint16) (Handler, bool) {
	return p.registry.Lookup(port)
}

func (p *Protocol) Ports() []uint16 {
	return p.registry.Ports()
}

func (p *Protocol) drop(reason string, f ...zap.Field) {
	p.metrics.UDPDropped.WithLabelValues(reason).Inc()
	log.Debug("[UDP] drop", append(f, zap.String("reason", reason))...)
}

// HandleInbound validates one datagram handed up by the IP layer and
// delivers its payload to the handler of the destination port. Datagrams
// for closed ports are answered with ICMP port unreachable.
func (p *Protocol) HandleInbound(buf *buffer.Buffer, src netip.Addr) {
	p.metrics.UDPReceived.Inc()

	if buf.Len() < HeaderLen {
		p.drop(metrics.ReasonShort, zap.Stringer("src", src), zap.Int("len", buf.Len()))
		return
	}
	length := int(Header(buf.Bytes()).Length())
	if length < HeaderLen || length > buf.Len() {
		p.drop(metrics.ReasonShort, zap.Stringer("src", src), zap.Int("length", length), zap.Int("len", buf.Len()))
		return
	}
	if length < buf.Len() {
		if err := buf.Trim(length); err != nil {
			p.drop(metrics.ReasonShort, zap.Stringer("src", src), zap.Error(err))
			return
		}
	}

	hdr := Header(buf.Bytes())
	if !p.verify(hdr, src) {
		p.drop(metrics.ReasonChecksum, zap.Stringer("src", src), zap.Uint16("port", hdr.DstPort()))
		return
	}

	port := hdr.DstPort()
	h, ok := p.registry.Lookup(port)
	if !ok {
		p.unreachable(buf, src, port)
		return
	}
	srcPort := hdr.SrcPort()
	if _, err := buf.PopHeader(HeaderLen); err != nil {
		p.drop(metrics.ReasonShort, zap.Stringer("src", src), zap.Error(err))
		return
	}
	h.Deliver(buf.Bytes(), src, srcPort)
	p.metrics.UDPDelivered.Inc()
}

// verify recomputes the checksum of hdr with the field zeroed and restores
// the received value before returning.
func (p *Protocol) verify(hdr Header, src netip.Addr) bool {
	received := hdr.Checksum()
	if received == 0 && p.zero == ZeroChecksumRFC768 {
		return true
	}
	hdr.SetChecksum(0)
	sum := Checksum(hdr, src, p.network.LocalAddr())
	hdr.SetChecksum(received)
	if sum == 0 && p.zero == ZeroChecksumRFC768 {
		sum = 0xffff
	}
	return sum == received
}

func (p *Protocol) unreachable(buf *buffer.Buffer, src netip.Addr, port uint16) {
	p.metrics.UDPUnreachable.Inc()
	log.Debug("[UDP] port unreachable", zap.Stringer("src", src), zap.Uint16("port", port))
	if p.notifier == nil {
		return
	}
	if _, err := buf.PushHeader(buf.NetworkHeaderLen); err != nil {
		log.Error("[UDP] network header not recoverable", zap.Error(err))
		return
	}
	if err := p.notifier.NotifyUnreachable(buf, src, icmp.CodePortUnreachable); err != nil {
		log.Error("[UDP] failed to notify port unreachable", zap.Error(err))
	}
}

// Output prepends a UDP header to the payload in buf and hands the
// datagram to the IP layer. buf needs head-room for the UDP and IP
// headers.
func (p *Protocol) Output(buf *buffer.Buffer, srcPort uint16, dst netip.Addr, dstPort uint16) error {
	err := p.output(buf, srcPort, dst, dstPort)
	if err != nil {
		p.metrics.UDPSendErrors.Inc()
		log.Debug("[UDP] send failed", zap.Stringer("dst", dst), zap.Uint16("port", dstPort), zap.Error(err))
		return err
	}
	p.metrics.UDPSent.Inc()
	return nil
}

func (p *Protocol) output(buf *buffer.Buffer, srcPort uint16, dst netip.Addr, dstPort uint16) error {
	if buf.Len() > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, buf.Len())
	}
	b, err := buf.PushHeader(HeaderLen)
	if err != nil {
		return fmt.Errorf("udp: %w", err)
	}
	hdr := Header(b)
	hdr.SetSrcPort(srcPort)
	hdr.SetDstPort(dstPort)
	hdr.SetLength(uint16(buf.Len()))
	hdr.SetChecksum(0)

	sum := Checksum(buf.Bytes(), p.network.LocalAddr(), dst)
	if sum == 0 && p.zero == ZeroChecksumRFC768 {
		sum = 0xffff
	}
	hdr.SetChecksum(sum)

	return p.network.Transmit(buf, dst, ip.ProtocolUDP)
}

// Send copies data into a new datagram from srcPort to dst:dstPort. It
// reports local failures only; delivery is not confirmed.
func (p *Protocol) Send(data []byte, srcPort uint16, dst netip.Addr, dstPort uint16) error {
	if len(data) > MaxPayload {
		p.metrics.UDPSendErrors.Inc()
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(data))
	}
	return p.Output(buffer.New(HeaderLen+ip.HeaderLen, data), srcPort, dst, dstPort)
}
