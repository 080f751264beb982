package ip

import (
	"encoding/binary"
	"net/netip"

	"github.com/BigDEM0N/net-work-lab/checksum"
)

/*
 0                   1                   2                   3
 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|Version|  IHL  |Type of Service|          Total Length         |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|         Identification        |Flags|      Fragment Offset    |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|  Time to Live |    Protocol   |         Header Checksum       |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|                       Source Address                          |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|                    Destination Address                        |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
|                    Options                    |    Padding    |
+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+ */

// Packet is an IPv4 header followed by its payload.
type Packet []byte

func (p Packet) Version() uint8 {
	return p[0] >> 4
}

// IHL returns the header length in bytes.
func (p Packet) IHL() int {
	return int(p[0]&0x0f) * 4
}

func (p Packet) TotalLen() int {
	return int(binary.BigEndian.Uint16(p[2:4]))
}

func (p Packet) ID() uint16 {
	return binary.BigEndian.Uint16(p[4:6])
}

// Fragmented reports whether MF is set or the fragment offset is non-zero.
func (p Packet) Fragmented() bool {
	flagsOffset := binary.BigEndian.Uint16(p[6:8])
	return flagsOffset&0x2000 != 0 || flagsOffset&0x1fff != 0
}

func (p Packet) TTL() uint8 {
	return p[8]
}

func (p Packet) Protocol() uint8 {
	return p[9]
}

func (p Packet) SrcIP() netip.Addr {
	return netip.AddrFrom4([4]byte{p[12], p[13], p[14], p[15]})
}

func (p Packet) DstIP() netip.Addr {
	return netip.AddrFrom4([4]byte{p[16], p[17], p[18], p[19]})
}

func (p Packet) setSrcIP(a netip.Addr) {
	s := a.As4()
	copy(p[12:16], s[:])
}

func (p Packet) setDstIP(a netip.Addr) {
	d := a.As4()
	copy(p[16:20], d[:])
}

// ValidChecksum reports whether the header checksum verifies.
func (p Packet) ValidChecksum() bool {
	return checksum.Checksum(p[:p.IHL()]) == 0
}

func (p Packet) updateChecksum() {
	copy(p[10:12], []byte{0, 0})
	sum := checksum.Checksum(p[:p.IHL()])
	copy(p[10:12], []byte{byte(sum >> 8), byte(sum)})
}

// Payload returns the bytes after the header, bounded by the total length.
func (p Packet) Payload() []byte {
	return p[p.IHL():p.TotalLen()]
}
