package udp

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/BigDEM0N/net-work-lab/checksum"
	"github.com/BigDEM0N/net-work-lab/ip"
)

// ZeroChecksum selects how a computed checksum of zero is put on the wire.
type ZeroChecksum int

const (
	// ZeroChecksumRaw sends the computed value unchanged and always
	// verifies received checksums.
	ZeroChecksumRaw ZeroChecksum = iota
	// ZeroChecksumRFC768 sends a computed zero as 0xffff and accepts a
	// received zero as "no checksum".
	ZeroChecksumRFC768
)

func (z ZeroChecksum) String() string {
	switch z {
	case ZeroChecksumRaw:
		return "raw"
	case ZeroChecksumRFC768:
		return "rfc768"
	}
	return "unknown"
}

// ParseZeroChecksum reads a mode name. The empty string selects raw.
func ParseZeroChecksum(s string) (ZeroChecksum, error) {
	switch strings.ToLower(s) {
	case "", "raw":
		return ZeroChecksumRaw, nil
	case "rfc768":
		return ZeroChecksumRFC768, nil
	}
	return ZeroChecksumRaw, fmt.Errorf("udp: unknown zero checksum mode %q", s)
}

// pseudoHeaderSum sums src(4) | dst(4) | zero(1) | protocol(1) | length(2)
// without materializing it.
func pseudoHeaderSum(src, dst netip.Addr, length int) uint32 {
	s, d := src.As4(), dst.As4()
	return checksum.Sum(s[:]) + checksum.Sum(d[:]) + uint32(ip.ProtocolUDP) + uint32(length)
}

// Checksum computes the UDP checksum of datagram, a header with its
// checksum field zeroed followed by the payload. src and dst are the IPv4
// addresses of the pseudo-header. An odd byte count is summed as if padded
// with one zero byte. datagram is not modified.
func Checksum(datagram []byte, src, dst netip.Addr) uint16 {
	return checksum.Fold(pseudoHeaderSum(src, dst, len(datagram)), checksum.Sum(datagram))
}
