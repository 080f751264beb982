package udp

import (
	"encoding/binary"
)

/*
 0      7 8     15 16    23 24    31
+--------+--------+--------+--------+
|     Source      |   Destination   |
|      Port       |      Port       |
+--------+--------+--------+--------+
|                 |                 |
|     Length      |    Checksum     |
+--------+--------+--------+--------+
|
|          data octets ...
+---------------- ...                  */

const (
	HeaderLen = 8

	srcPortOffset  = 0
	dstPortOffset  = 2
	lengthOffset   = 4
	checksumOffset = 6
)

// Header is a UDP header, optionally followed by the payload. Fields are
// big-endian on the wire; accessors convert to host order.
type Header []byte

func (h Header) SrcPort() uint16 {
	return binary.BigEndian.Uint16(h[srcPortOffset:])
}

func (h Header) DstPort() uint16 {
	return binary.BigEndian.Uint16(h[dstPortOffset:])
}

// Length is the header plus payload size claimed by the sender.
func (h Header) Length() uint16 {
	return binary.BigEndian.Uint16(h[lengthOffset:])
}

func (h Header) Checksum() uint16 {
	return binary.BigEndian.Uint16(h[checksumOffset:])
}

func (h Header) SetSrcPort(port uint16) {
	binary.BigEndian.PutUint16(h[srcPortOffset:], port)
}

func (h Header) SetDstPort(port uint16) {
	binary.BigEndian.PutUint16(h[dstPortOffset:], port)
}

func (h Header) SetLength(l uint16) {
	binary.BigEndian.PutUint16(h[lengthOffset:], l)
}

func (h Header) SetChecksum(sum uint16) {
	binary.BigEndian.PutUint16(h[checksumOffset:], sum)
}

func (h Header) Payload() []byte {
	return h[HeaderLen:]
}
