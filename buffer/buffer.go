// Package buffer provides the packet buffer passed between layers of the
// stack. Headers are prepended into reserved head-room and removed by
// moving the data start, so a removed header can be pushed back.
package buffer

import (
	"errors"
)

// DefaultTailroom is reserved behind the payload for checksum padding.
const DefaultTailroom = 2

var (
	ErrNoHeadroom = errors.New("buffer: not enough head-room")
	ErrNoTailroom = errors.New("buffer: not enough tail-room")
	ErrUnderflow  = errors.New("buffer: not enough data")
)

// Buffer is a byte sequence inside a larger backing array. data[head:tail]
// is the live region.
type Buffer struct {
	data []byte
	head int
	tail int

	// NetworkHeaderLen is the size of the network header most recently
	// popped by the network layer. It lets a transport protocol restore
	// that header when a control message must quote it.
	NetworkHeaderLen int
}

// New copies payload into a fresh buffer with headroom bytes reserved in
// front of it.
func New(headroom int, payload []byte) *Buffer {
	if headroom < 0 {
		headroom = 0
	}
	data := make([]byte, headroom+len(payload)+DefaultTailroom)
	copy(data[headroom:], payload)
	return &Buffer{
		data: data,
		head: headroom,
		tail: headroom + len(payload),
	}
}

// Wrap uses frame as the backing array without copying. The buffer has no
// head-room and no tail-room.
func Wrap(frame []byte) *Buffer {
	return &Buffer{data: frame, head: 0, tail: len(frame)}
}

// Bytes returns the live region. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[b.head:b.tail]
}

func (b *Buffer) Len() int {
	return b.tail - b.head
}

func (b *Buffer) Headroom() int {
	return b.head
}

func (b *Buffer) Tailroom() int {
	return len(b.data) - b.tail
}

// PushHeader grows the live region by n bytes at the front and returns the
// new header bytes. Their content is whatever was left in the head-room.
func (b *Buffer) PushHeader(n int) ([]byte, error) {
	if n < 0 || n > b.head {
		return nil, ErrNoHeadroom
	}
	b.head -= n
	return b.data[b.head : b.head+n], nil
}

// PopHeader removes n bytes from the front and returns them. The bytes stay
// in the backing array until overwritten.
func (b *Buffer) PopHeader(n int) ([]byte, error) {
	if n < 0 || n > b.Len() {
		return nil, ErrUnderflow
	}
	h := b.data[b.head : b.head+n]
	b.head += n
	return h, nil
}

// PushPadding appends n zero bytes at the tail.
func (b *Buffer) PushPadding(n int) error {
	if n < 0 || n > b.Tailroom() {
		return ErrNoTailroom
	}
	for i := b.tail; i < b.tail+n; i++ {
		b.data[i] = 0
	}
	b.tail += n
	return nil
}

// PopPadding removes n bytes from the tail.
func (b *Buffer) PopPadding(n int) error {
	if n < 0 || n > b.Len() {
		return ErrUnderflow
	}
	b.tail -= n
	return nil
}

// Trim shortens the live region to n bytes.
func (b *Buffer) Trim(n int) error {
	if n < 0 || n > b.Len() {
		return ErrUnderflow
	}
	return b.PopPadding(b.Len() - n)
}

// Clone returns a deep copy that keeps the same head-room and tail-room.
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	return &Buffer{
		data:             data,
		head:             b.head,
		tail:             b.tail,
		NetworkHeaderLen: b.NetworkHeaderLen,
	}
}
