// Package echo implements the RFC 862 echo service over UDP.
package echo

import (
	"net/netip"

	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/BigDEM0N/net-work-lab/udp"
	"go.uber.org/zap"
)

const DefaultPort = 7

type Echo struct {
	sender udp.Sender
	port   uint16
}

// New returns a handler that sends every datagram received on port back
// to where it came from.
func New(s udp.Sender, port uint16) *Echo {
	return &Echo{sender: s, port: port}
}

func (e *Echo) Port() uint16 {
	return e.port
}

func (e *Echo) Deliver(payload []byte, src netip.Addr, srcPort uint16) {
	if err := e.sender.Send(payload, e.port, src, srcPort); err != nil {
		log.Debug("[ECHO] reply failed",
			zap.Stringer("dst", netip.AddrPortFrom(src, srcPort)),
			zap.Error(err))
	}
}
