// Package stack assembles the network stack on top of a device and runs
// its receive loop.
package stack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"github.com/BigDEM0N/net-work-lab/config"
	"github.com/BigDEM0N/net-work-lab/device"
	"github.com/BigDEM0N/net-work-lab/icmp"
	"github.com/BigDEM0N/net-work-lab/ip"
	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/BigDEM0N/net-work-lab/metrics"
	"github.com/BigDEM0N/net-work-lab/service/echo"
	"github.com/BigDEM0N/net-work-lab/udp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var ErrRunning = errors.New("stack: already running")

// maxReadErrors consecutive read failures stop Run.
const maxReadErrors = 8

var (
	readBackoff    = 10 * time.Millisecond
	maxReadBackoff = time.Second
)

type Stack struct {
	dev     device.Device
	metrics *metrics.Metrics
	ip      *ip.Layer
	icmp    *icmp.Protocol
	udp     *udp.Protocol
	status  atomic.Int32
}

// New wires the layers on dev and opens the services enabled in cfg.
// Metrics are registered with reg.
func New(cfg *config.Config, dev device.Device, reg prometheus.Registerer) (*Stack, error) {
	m := metrics.New(reg)

	l, err := ip.NewLayer(cfg.Interface.Prefix, dev, m)
	if err != nil {
		return nil, err
	}
	ic := icmp.New(l, m)
	ic.Register(l)

	opts, err := cfg.UDPOptions()
	if err != nil {
		return nil, err
	}
	u := udp.New(l, ic, m, opts)
	u.Register(l)

	s := &Stack{
		dev:     dev,
		metrics: m,
		ip:      l,
		icmp:    ic,
		udp:     u,
	}
	s.status.Store(device.Ready)

	if cfg.Services.Echo.Enable {
		e := echo.New(u, cfg.Services.Echo.Port)
		if err := s.Open(e.Port(), e); err != nil {
			return nil, fmt.Errorf("stack: echo service: %w", err)
		}
	}
	if cfg.Services.DNS.Enable {
		srv, err := cfg.Services.DNS.NewServer(u, l.LocalAddr())
		if err != nil {
			return nil, err
		}
		if err := s.Open(srv.Port(), srv); err != nil {
			return nil, fmt.Errorf("stack: dns service: %w", err)
		}
	}
	return s, nil
}

func (s *Stack) logString(str string) string {
	return fmt.Sprintf("[Stack] %v: %v", s.dev.Name(), str)
}

func (s *Stack) LocalAddr() netip.Addr {
	return s.ip.LocalAddr()
}

func (s *Stack) Metrics() *metrics.Metrics {
	return s.metrics
}

func (s *Stack) Open(port uint16, h udp.Handler) error {
	return s.udp.Open(port, h)
}

func (s *Stack) Close(port uint16) {
	s.udp.Close(port)
}

func (s *Stack) Send(data []byte, srcPort uint16, dst netip.Addr, dstPort uint16) error {
	return s.udp.Send(data, srcPort, dst, dstPort)
}

func (s *Stack) Ports() []uint16 {
	return s.udp.Ports()
}

// Run reads frames from the device and processes each one to completion
// before reading the next. It returns when ctx is done or the device is
// closed. The device is closed on return.
func (s *Stack) Run(ctx context.Context) error {
	if !s.status.CompareAndSwap(device.Ready, device.Running) {
		return ErrRunning
	}
	log.Info(s.logString("running"),
		zap.Stringer("addr", s.LocalAddr()),
		zap.Any("ports", s.Ports()))

	stop := context.AfterFunc(ctx, func() {
		s.dev.Close()
	})
	defer func() {
		stop()
		s.status.Store(device.Closed)
		s.dev.Close()
		log.Info(s.logString("stopped"))
	}()

	frame := make([]byte, s.dev.MTU())
	failures := 0
	backoff := readBackoff
	for {
		n, err := s.dev.Read(frame)
		if err != nil {
			if ctx.Err() != nil || closed(err) {
				return nil
			}
			failures++
			log.Error(s.logString("failed to read from device"),
				zap.Error(err), zap.Int("failures", failures))
			if failures >= maxReadErrors {
				return fmt.Errorf("stack: read from %v: %w", s.dev.Name(), err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(2*backoff, maxReadBackoff)
			continue
		}
		failures = 0
		backoff = readBackoff
		s.ip.Input(frame[:n])
	}
}

func closed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || errors.Is(err, device.ErrClosed)
}
