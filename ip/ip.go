// Package ip is the IPv4 network layer of the stack. It validates frames
// read from the link, dispatches them by protocol number and frames
// outbound transport payloads.
package ip

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/BigDEM0N/net-work-lab/buffer"
	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/BigDEM0N/net-work-lab/metrics"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
)

const (
	HeaderLen  = ipv4.HeaderLen
	DefaultTTL = 64

	ProtocolICMP uint8 = 1
	ProtocolUDP  uint8 = 17

	// CodeProtocolUnreachable is the ICMP destination unreachable code
	// sent for an unsupported protocol.
	CodeProtocolUnreachable uint8 = 2

	// MaxPayload is the largest transport payload one unfragmented
	// datagram can carry.
	MaxPayload = 0xffff - HeaderLen
)

var (
	ErrNotIPv4     = errors.New("ip: destination is not an IPv4 address")
	ErrTooLarge    = errors.New("ip: payload exceeds maximum datagram size")
	ErrShortWrite  = errors.New("ip: short write to link")
	errNoHeadroom  = errors.New("ip: no head-room for header")
	broadcastLimit = netip.AddrFrom4([4]byte{255, 255, 255, 255})
)

// ProtocolHandler receives a datagram whose IP header has been popped.
// buf.NetworkHeaderLen holds the popped header size.
type ProtocolHandler interface {
	HandleInbound(buf *buffer.Buffer, src netip.Addr)
}

type ProtocolHandlerFunc func(buf *buffer.Buffer, src netip.Addr)

func (f ProtocolHandlerFunc) HandleInbound(buf *buffer.Buffer, src netip.Addr) {
	f(buf, src)
}

// Notifier sends destination unreachable messages. buf must start with the
// offending IP header.
type Notifier interface {
	NotifyUnreachable(buf *buffer.Buffer, dst netip.Addr, code uint8) error
}

type Layer struct {
	prefix    netip.Prefix
	broadcast netip.Addr
	link      io.Writer
	ttl       uint8
	id        atomic.Uint32
	metrics   *metrics.Metrics

	mu          sync.RWMutex
	protocols   map[uint8]ProtocolHandler
	unreachable Notifier
}

// NewLayer creates a layer owning prefix.Addr() on the subnet of prefix.
// Frames are written to link.
func NewLayer(prefix netip.Prefix, link io.Writer, m *metrics.Metrics) (*Layer, error) {
	if !prefix.Addr().Is4() {
		return nil, ErrNotIPv4
	}
	return &Layer{
		prefix:    prefix,
		broadcast: subnetBroadcast(prefix),
		link:      link,
		ttl:       DefaultTTL,
		metrics:   m,
		protocols: make(map[uint8]ProtocolHandler),
	}, nil
}

func subnetBroadcast(prefix netip.Prefix) netip.Addr {
	a := prefix.Masked().Addr().As4()
	host := ^uint32(0) >> prefix.Bits()
	v := binary.BigEndian.Uint32(a[:]) | host
	binary.BigEndian.PutUint32(a[:], v)
	return netip.AddrFrom4(a)
}

func (l *Layer) LocalAddr() netip.Addr {
	return l.prefix.Addr()
}

// RegisterProtocol installs h as the handler of proto, replacing any
// previous handler.
func (l *Layer) RegisterProtocol(proto uint8, h ProtocolHandler) {
	l.mu.Lock()
	l.protocols[proto] = h
	l.mu.Unlock()
}

// SetNotifier sets who answers datagrams for unknown protocols.
func (l *Layer) SetNotifier(n Notifier) {
	l.mu.Lock()
	l.unreachable = n
	l.mu.Unlock()
}

func (l *Layer) drop(reason string, f ...zap.Field) {
	l.metrics.IPDropped.WithLabelValues(reason).Inc()
	log.Debug("[IP] drop", append(f, zap.String("reason", reason))...)
}

func (l *Layer) accepts(dst netip.Addr) bool {
	return dst == l.prefix.Addr() || dst == l.broadcast || dst == broadcastLimit
}

// Input processes one frame read from the link. The frame is owned by the
// layer until Input returns.
func (l *Layer) Input(frame []byte) {
	l.metrics.IPPacketsIn.Inc()

	if len(frame) < HeaderLen {
		l.drop(metrics.ReasonShort, zap.Int("len", len(frame)))
		return
	}
	p := Packet(frame)
	if p.Version() != ipv4.Version {
		l.drop(metrics.ReasonVersion, zap.Uint8("version", p.Version()))
		return
	}
	hl := p.IHL()
	if hl < HeaderLen || hl > len(frame) {
		l.drop(metrics.ReasonShort, zap.Int("ihl", hl))
		return
	}
	if !p.ValidChecksum() {
		l.drop(metrics.ReasonChecksum)
		return
	}
	total := p.TotalLen()
	if total < hl || total > len(frame) {
		l.drop(metrics.ReasonShort, zap.Int("total", total), zap.Int("len", len(frame)))
		return
	}
	if p.Fragmented() {
		l.drop(metrics.ReasonFragment, zap.Uint16("id", p.ID()))
		return
	}
	src, dst := p.SrcIP(), p.DstIP()
	if !l.accepts(dst) {
		l.drop(metrics.ReasonNotForUs, zap.Stringer("dst", dst))
		return
	}

	buf := buffer.Wrap(frame)
	if err := buf.Trim(total); err != nil {
		l.drop(metrics.ReasonShort, zap.Error(err))
		return
	}
	if _, err := buf.PopHeader(hl); err != nil {
		l.drop(metrics.ReasonShort, zap.Error(err))
		return
	}
	buf.NetworkHeaderLen = hl

	l.mu.RLock()
	h, ok := l.protocols[p.Protocol()]
	n := l.unreachable
	l.mu.RUnlock()
	if !ok {
		l.drop(metrics.ReasonUnsupported, zap.Uint8("protocol", p.Protocol()))
		if n == nil || dst != l.prefix.Addr() {
			return
		}
		if _, err := buf.PushHeader(hl); err != nil {
			log.Error("[IP] failed to restore header", zap.Error(err))
			return
		}
		if err := n.NotifyUnreachable(buf, src, CodeProtocolUnreachable); err != nil {
			log.Error("[IP] failed to notify protocol unreachable", zap.Error(err))
		}
		return
	}
	h.HandleInbound(buf, src)
}

// Transmit prepends an IPv4 header for proto to buf and writes the frame
// to the link.
func (l *Layer) Transmit(buf *buffer.Buffer, dst netip.Addr, proto uint8) error {
	if !dst.Is4() {
		return ErrNotIPv4
	}
	if buf.Len() > MaxPayload {
		return ErrTooLarge
	}
	h, err := buf.PushHeader(HeaderLen)
	if err != nil {
		return fmt.Errorf("%w: %v", errNoHeadroom, err)
	}

	p := Packet(h)
	p[0] = ipv4.Version<<4 | HeaderLen/4
	p[1] = 0
	binary.BigEndian.PutUint16(p[2:4], uint16(buf.Len()))
	binary.BigEndian.PutUint16(p[4:6], uint16(l.id.Add(1)))
	binary.BigEndian.PutUint16(p[6:8], 0)
	p[8] = l.ttl
	p[9] = proto
	p.setSrcIP(l.prefix.Addr())
	p.setDstIP(dst)
	p.updateChecksum()

	n, err := l.link.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("ip: write to link: %w", err)
	}
	if n < buf.Len() {
		return ErrShortWrite
	}
	l.metrics.IPPacketsOut.Inc()
	return nil
}
