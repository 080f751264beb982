package dns

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"

	"github.com/miekg/dns"
)

// records is the static zone served by Server. Names are lower-case fully
// qualified domain names.
type records struct {
	forward map[string][]netip.Addr
	reverse map[netip.Addr]string
}

func newRecords(raw map[string][]string) (*records, error) {
	r := &records{
		forward: make(map[string][]netip.Addr, len(raw)),
		reverse: make(map[netip.Addr]string),
	}
	// sorted so the reverse name of a shared address is stable
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := dns.IsDomainName(name); !ok {
			return nil, fmt.Errorf("dns: invalid domain name %q", name)
		}
		fqdn := dns.Fqdn(strings.ToLower(name))
		for _, s := range raw[name] {
			ip, err := netip.ParseAddr(s)
			if err != nil || !ip.Is4() {
				return nil, fmt.Errorf("dns: record %s: %q is not an IPv4 address", name, s)
			}
			r.forward[fqdn] = append(r.forward[fqdn], ip)
			if _, ok := r.reverse[ip]; !ok {
				r.reverse[ip] = fqdn
			}
		}
	}
	return r, nil
}

func (r *records) GetIPByDomain(name string) ([]netip.Addr, bool) {
	ips, ok := r.forward[strings.ToLower(name)]
	return ips, ok
}

// GetDomainByReverse resolves an in-addr.arpa name.
func (r *records) GetDomainByReverse(name string) (string, bool) {
	ip, ok := extractAddressFromReverse(name)
	if !ok {
		return "", false
	}
	domain, ok := r.reverse[ip]
	return domain, ok
}

func extractAddressFromReverse(name string) (netip.Addr, bool) {
	const suffix = ".in-addr.arpa."
	name = strings.ToLower(name)
	if !strings.HasSuffix(name, suffix) {
		return netip.Addr{}, false
	}
	labels := strings.Split(strings.TrimSuffix(name, suffix), ".")
	if len(labels) != 4 {
		return netip.Addr{}, false
	}
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	ip, err := netip.ParseAddr(strings.Join(labels, "."))
	if err != nil || !ip.Is4() {
		return netip.Addr{}, false
	}
	return ip, true
}
