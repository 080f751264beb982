package device

import (
	"io"
	"sync"
	"sync/atomic"
)

// pipeQueue is how many frames an end buffers before the link drops.
const pipeQueue = 64

// PipeEnd is one side of an in-memory link created by Pipe.
type PipeEnd struct {
	name   string
	mtu    int
	in     chan []byte
	peer   *PipeEnd
	done   chan struct{}
	once   sync.Once
	status atomic.Int32
}

// Pipe returns two connected devices. A frame written to one end is read
// from the other. When the reader falls behind, frames are dropped like on
// a congested link.
func Pipe(nameA, nameB string, mtu int) (*PipeEnd, *PipeEnd) {
	a := newPipeEnd(nameA, mtu)
	b := newPipeEnd(nameB, mtu)
	a.peer, b.peer = b, a
	return a, b
}

func newPipeEnd(name string, mtu int) *PipeEnd {
	p := &PipeEnd{
		name: name,
		mtu:  mtu,
		in:   make(chan []byte, pipeQueue),
		done: make(chan struct{}),
	}
	p.status.Store(Running)
	return p
}

func (p *PipeEnd) Name() string {
	return p.name
}

func (p *PipeEnd) MTU() int {
	return p.mtu
}

func (p *PipeEnd) Read(b []byte) (int, error) {
	select {
	case f := <-p.in:
		return copy(b, f), nil
	case <-p.done:
		return 0, io.EOF
	}
}

func (p *PipeEnd) Write(b []byte) (int, error) {
	if p.status.Load() == Closed || p.peer.status.Load() == Closed {
		return 0, ErrClosed
	}
	if len(b) > p.mtu {
		return 0, ErrTooLarge
	}
	f := append([]byte(nil), b...)
	select {
	case p.peer.in <- f:
	default:
	}
	return len(b), nil
}

func (p *PipeEnd) Close() error {
	p.once.Do(func() {
		p.status.Store(Closed)
		close(p.done)
	})
	return nil
}
