package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/BigDEM0N/net-work-lab/service/echo"
	"github.com/BigDEM0N/net-work-lab/udp"
	"github.com/BigDEM0N/net-work-lab/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMTU           = 1500
	DefaultMetricsListen = ":9100"
	DefaultMetricsPath   = "/metrics"

	// minMTU is the smallest link MTU IPv4 allows.
	minMTU = 68
)

var ErrNoInterface = errors.New("config: interface name and cidr are required")

type ErrDup struct {
	Name string
	Zone string
}

func (e ErrDup) Error() string {
	return fmt.Sprintf("duplicate %v in %v", e.Name, e.Zone)
}

func (e ErrDup) Is(err error) bool {
	t, ok := err.(ErrDup)
	if !ok {
		return false
	}
	if t.Zone == e.Zone && t.Name == e.Name {
		return true
	}
	return false
}

type ErrInvalid struct {
	Attr   string
	Reason string
}

func (e ErrInvalid) Error() string {
	return fmt.Sprintf("config: invalid %v: %v", e.Attr, e.Reason)
}

func (e ErrInvalid) Is(err error) bool {
	t, ok := err.(ErrInvalid)
	return ok && t.Attr == e.Attr
}

// parse raw config to get binary marshaled structure
func ParseRawConfig(path string) (*Config, error) {
	config := Config{}
	path, err := util.GetAbsPath(path)
	if err != nil {
		return nil, err
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(buf, &config)
	if err != nil {
		return nil, err
	}
	if config.Log.Path != "" {
		config.Log.Path, _ = util.GetAbsPath(config.Log.Path)
	}
	config.Path = path
	config.Dir = filepath.Dir(path)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate fills defaults and rejects settings the stack cannot run with.
func (c *Config) Validate() error {
	if err := c.Interface.validate(); err != nil {
		return err
	}

	if c.UDP.MaxPorts < 0 {
		return ErrInvalid{Attr: "udp.max_ports", Reason: "must not be negative"}
	}
	if _, err := udp.ParseZeroChecksum(c.UDP.ZeroChecksum); err != nil {
		return ErrInvalid{Attr: "udp.zero_checksum", Reason: err.Error()}
	}

	if c.Services.Echo.Port == 0 {
		c.Services.Echo.Port = echo.DefaultPort
	}
	if err := c.Services.DNS.Validate(); err != nil {
		return ErrInvalid{Attr: "services.dns", Reason: err.Error()}
	}
	if c.Services.Echo.Enable && c.Services.DNS.Enable && c.Services.Echo.Port == c.Services.DNS.Port {
		return ErrDup{Name: fmt.Sprintf("port %d", c.Services.Echo.Port), Zone: "services"}
	}
	if c.UDP.MaxPorts > 0 && c.UDP.MaxPorts < len(c.ServicePorts()) {
		return ErrInvalid{Attr: "udp.max_ports", Reason: "fewer ports than enabled services"}
	}

	if c.Metrics.Listen == "" {
		c.Metrics.Listen = DefaultMetricsListen
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level != "" {
		if _, ok := log.ParseLevel(c.Log.Level); !ok {
			return ErrInvalid{Attr: "log.level", Reason: c.Log.Level}
		}
	}
	return nil
}

func (i *Interface) validate() error {
	if i.Name == "" || !i.Prefix.IsValid() {
		return ErrNoInterface
	}
	if !i.Prefix.Addr().Is4() {
		return ErrInvalid{Attr: "interface.cidr", Reason: "only IPv4 is supported"}
	}
	if i.Peer.IsValid() {
		if !i.Peer.Is4() || !i.Prefix.Contains(i.Peer) || i.Peer == i.Prefix.Addr() {
			return ErrInvalid{Attr: "interface.peer", Reason: "must be another address in " + i.Prefix.Masked().String()}
		}
	}
	if i.MTU == 0 {
		i.MTU = DefaultMTU
	}
	if i.MTU < minMTU || i.MTU > 0xffff {
		return ErrInvalid{Attr: "interface.mtu", Reason: fmt.Sprintf("%d out of range", i.MTU)}
	}
	return nil
}

// UDPOptions converts the udp section for the UDP layer.
func (c *Config) UDPOptions() (udp.Options, error) {
	z, err := udp.ParseZeroChecksum(c.UDP.ZeroChecksum)
	if err != nil {
		return udp.Options{}, err
	}
	return udp.Options{
		MaxPorts:     c.UDP.MaxPorts,
		Exclusive:    c.UDP.Exclusive,
		ZeroChecksum: z,
	}, nil
}

// ServicePorts lists the ports of the enabled services.
func (c *Config) ServicePorts() []uint16 {
	var ports []uint16
	if c.Services.Echo.Enable {
		ports = append(ports, c.Services.Echo.Port)
	}
	if c.Services.DNS.Enable {
		ports = append(ports, c.Services.DNS.Port)
	}
	return ports
}

// parse log
func (c *Config) ParseLog() *log.Log {
	return &c.Log
}
