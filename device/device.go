// Package device defines the link the stack reads frames from and writes
// frames to.
package device

import (
	"errors"
	"io"
)

// Device status.
const (
	_ int32 = iota
	Ready
	Running
	Closed
)

var (
	ErrClosed   = errors.New("device: closed")
	ErrTooLarge = errors.New("device: frame exceeds mtu")
)

// Device carries raw IPv4 frames. Each Read returns exactly one frame and
// each Write sends exactly one.
type Device interface {
	io.ReadWriteCloser
	Name() string
	MTU() int
}
