// Package tun attaches the stack to a Linux TUN interface.
package tun

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"sync/atomic"

	"github.com/BigDEM0N/net-work-lab/device"
	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/BigDEM0N/net-work-lab/util"
	"go.uber.org/zap"
)

var _ device.Device = (*Tun)(nil)

var errNotSupported = errors.New("tun: not supported on this platform")

// Config describes the interface to create. Prefix is the stack's own
// address and subnet; Peer, when valid, is assigned to the kernel side of
// the interface.
type Config struct {
	Name   string
	Prefix netip.Prefix
	Peer   netip.Addr
	MTU    int
}

type Tun struct {
	cfg    Config
	fd     *os.File
	status atomic.Int32
}

func (t *Tun) logString(s string) string {
	return fmt.Sprintf("[Tun] %v: %v", t.cfg.Name, s)
}

func (t *Tun) Name() string {
	return t.cfg.Name
}

func (t *Tun) MTU() int {
	return t.cfg.MTU
}

// Open creates the interface, configures it and brings it up.
func Open(cfg Config) (*Tun, error) {
	t := &Tun{cfg: cfg}
	t.status.Store(device.Ready)

	fd, err := open(cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("tun: open %s: %w", cfg.Name, err)
	}
	t.fd = fd
	log.Info(t.logString("device opened"))

	if err := t.setup(); err != nil {
		t.fd.Close()
		return nil, fmt.Errorf("tun: setup %s: %w", cfg.Name, err)
	}
	log.Info(t.logString("device setup done"))
	t.status.Store(device.Running)
	return t, nil
}

func (t *Tun) setup() error {
	for _, v := range setupCommands(t.cfg) {
		if _, err := util.ExecCmd(v); err != nil {
			t.clean()
			return fmt.Errorf("%s: %w", v, err)
		}
	}
	return nil
}

func (t *Tun) clean() {
	for _, v := range cleanCommands(t.cfg) {
		if _, err := util.ExecCmd(v); err != nil {
			log.Debug(t.logString("clean"), zap.String("cmd", v), zap.Error(err))
		}
	}
}

func (t *Tun) Read(b []byte) (int, error) {
	n, err := t.fd.Read(b)
	if err != nil && t.status.Load() == device.Closed {
		return n, device.ErrClosed
	}
	return n, err
}

func (t *Tun) Write(b []byte) (int, error) {
	if len(b) > t.cfg.MTU {
		return 0, device.ErrTooLarge
	}
	return t.fd.Write(b)
}

func (t *Tun) Close() error {
	if t.status.Swap(device.Closed) == device.Closed {
		return nil
	}
	t.clean()
	err := t.fd.Close()
	log.Info(t.logString("closed"))
	return err
}

func setupCommands(cfg Config) []string {
	cmd := make([]string, 0, 3)
	if cfg.Peer.IsValid() {
		cmd = append(cmd, fmt.Sprintf("ip addr add %v/%v dev %v", cfg.Peer, cfg.Prefix.Bits(), cfg.Name))
	}
	cmd = append(cmd,
		fmt.Sprintf("ip link set dev %v mtu %v", cfg.Name, cfg.MTU),
		fmt.Sprintf("ip link set dev %v up", cfg.Name),
	)
	if !cfg.Peer.IsValid() {
		cmd = append(cmd, fmt.Sprintf("ip route add %v dev %v", cfg.Prefix.Masked(), cfg.Name))
	}
	return cmd
}

func cleanCommands(cfg Config) []string {
	return []string{
		fmt.Sprintf("ip link set dev %v down", cfg.Name),
	}
}
