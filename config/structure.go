package config

import (
	"fmt"
	"net/netip"

	"github.com/BigDEM0N/net-work-lab/dns"
	"github.com/BigDEM0N/net-work-lab/log"
	"github.com/BigDEM0N/net-work-lab/util"
	"gopkg.in/yaml.v3"
)

// config structure to unmarshal yaml
type Config struct {
	Interface Interface `yaml:"interface"`
	UDP       UDP       `yaml:"udp"`
	Services  Services  `yaml:"services"`
	Metrics   Metrics   `yaml:"metrics"`
	Log       log.Log   `yaml:"log"`
	Path      string    `yaml:"-"`
	Dir       string    `yaml:"-"`
}

// Interface is the link the stack owns an address on.
type Interface struct {
	Name   string
	Prefix netip.Prefix
	// Peer is the address of the kernel side of the TUN interface.
	Peer netip.Addr
	MTU  int
}

func (i *Interface) UnmarshalYAML(value *yaml.Node) error {
	var (
		name string
		cidr string
		peer string
		mtu  int
		err  error
	)
	temp := make(map[string]any)
	if err = value.Decode(&temp); err != nil {
		return err
	}

	attrMust := map[string]any{
		"name": &name,
		"cidr": &cidr,
	}
	if err = util.MustHave(temp, attrMust); err != nil {
		return err
	}
	attrMay := map[string]any{
		"peer": &peer,
		"mtu":  &mtu,
	}
	if err = util.MayHave(temp, attrMay); err != nil {
		return err
	}

	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("config: interface cidr: %w", err)
	}
	i.Name = name
	i.Prefix = prefix
	i.MTU = mtu
	i.Peer = netip.Addr{}
	if peer != "" {
		if i.Peer, err = netip.ParseAddr(peer); err != nil {
			return fmt.Errorf("config: interface peer: %w", err)
		}
	}
	return nil
}

type UDP struct {
	MaxPorts     int    `yaml:"max_ports"`
	Exclusive    bool   `yaml:"exclusive"`
	ZeroChecksum string `yaml:"zero_checksum"`
}

type Services struct {
	Echo Echo    `yaml:"echo"`
	DNS  dns.DNS `yaml:"dns"`
}

type Echo struct {
	Enable bool   `yaml:"enable"`
	Port   uint16 `yaml:"port"`
}

type Metrics struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}
