// Package icmp answers echo requests and emits destination unreachable
// messages on behalf of the other protocols.
package icmp

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/BigDEM0N/net-work-lab/buffer"
	"github.com/BigDEM0N/net-work-lab/checksum"
	"github.com/BigDEM0N/net-work-lab/ip"
	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/BigDEM0N/net-work-lab/metrics"
	"go.uber.org/zap"
	xicmp "golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

/*
 0                   1                   2                   3
 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|     Type      |     Code      |          Checksum             |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|                             unused                            |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|      Internet Header + 64 bits of Original Data Datagram      |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/

// Destination unreachable codes.
const (
	CodeNetUnreachable      uint8 = 0
	CodeHostUnreachable     uint8 = 1
	CodeProtocolUnreachable uint8 = ip.CodeProtocolUnreachable
	CodePortUnreachable     uint8 = 3
)

const (
	headerLen = 4
	// quoteLen is how much of the original payload follows the quoted
	// IP header.
	quoteLen = 8
)

var errTruncated = errors.New("icmp: offending datagram shorter than an IP header")

// Network is the part of the IP layer ICMP sends through.
type Network interface {
	Transmit(buf *buffer.Buffer, dst netip.Addr, proto uint8) error
}

type icmpPacket []byte

func (p icmpPacket) typ() ipv4.ICMPType {
	return ipv4.ICMPType(p[0])
}

func (p icmpPacket) setEchoReply() {
	p[0] = byte(ipv4.ICMPTypeEchoReply)
}

func (p icmpPacket) updateChecksum() {
	copy(p[2:4], []byte{0, 0})
	sum := checksum.Checksum(p)
	copy(p[2:4], []byte{byte(sum >> 8), byte(sum)})
}

type Protocol struct {
	network Network
	metrics *metrics.Metrics
}

func New(n Network, m *metrics.Metrics) *Protocol {
	return &Protocol{network: n, metrics: m}
}

// Register installs p as the ICMP handler and as the layer's notifier for
// unknown protocols.
func (p *Protocol) Register(l *ip.Layer) {
	l.RegisterProtocol(ip.ProtocolICMP, p)
	l.SetNotifier(p)
}

// NotifyUnreachable sends a destination unreachable message with code to
// dst. buf starts with the offending IP header; the message quotes that
// header and the first 8 bytes after it.
func (p *Protocol) NotifyUnreachable(buf *buffer.Buffer, dst netip.Addr, code uint8) error {
	orig := buf.Bytes()
	if len(orig) < ip.HeaderLen {
		return errTruncated
	}
	n := ip.Packet(orig).IHL() + quoteLen
	if n > len(orig) {
		n = len(orig)
	}

	msg := xicmp.Message{
		Type: ipv4.ICMPTypeDestinationUnreachable,
		Code: int(code),
		Body: &xicmp.DstUnreach{Data: orig[:n]},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("icmp: marshal unreachable: %w", err)
	}
	if err := p.network.Transmit(buffer.New(ip.HeaderLen, b), dst, ip.ProtocolICMP); err != nil {
		return err
	}
	p.metrics.ICMPOut.WithLabelValues(ipv4.ICMPTypeDestinationUnreachable.String()).Inc()
	return nil
}

// HandleInbound answers echo requests in place and logs everything else.
func (p *Protocol) HandleInbound(buf *buffer.Buffer, src netip.Addr) {
	b := buf.Bytes()
	if len(b) < headerLen || checksum.Checksum(b) != 0 {
		log.Debug("[ICMP] drop malformed message", zap.Stringer("src", src), zap.Int("len", len(b)))
		return
	}
	packet := icmpPacket(b)
	p.metrics.ICMPIn.WithLabelValues(packet.typ().String()).Inc()

	switch packet.typ() {
	case ipv4.ICMPTypeEcho:
		packet.setEchoReply()
		packet.updateChecksum()
		if err := p.network.Transmit(buf, src, ip.ProtocolICMP); err != nil {
			log.Error("[ICMP] failed to send echo reply", zap.Error(err))
			return
		}
		p.metrics.ICMPOut.WithLabelValues(ipv4.ICMPTypeEchoReply.String()).Inc()
	case ipv4.ICMPTypeDestinationUnreachable:
		msg, err := xicmp.ParseMessage(int(ip.ProtocolICMP), b)
		if err != nil {
			log.Debug("[ICMP] unparsable unreachable", zap.Error(err))
			return
		}
		fields := []zap.Field{zap.Stringer("src", src), zap.Int("code", msg.Code)}
		if body, ok := msg.Body.(*xicmp.DstUnreach); ok && len(body.Data) >= ip.HeaderLen {
			fields = append(fields, zap.Stringer("target", ip.Packet(body.Data).DstIP()))
		}
		log.Info("[ICMP] destination unreachable", fields...)
	default:
		log.Debug("[ICMP] ignored message", zap.Stringer("type", packet.typ()))
	}
}
