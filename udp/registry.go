package udp

import (
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"sync"

	"github.com/BigDEM0N/net-work-lab/log"
	"go.uber.org/zap"
)

var (
	ErrRegistryFull = errors.New("udp: port registry is full")
	ErrNilHandler   = errors.New("udp: nil handler")
)

// ErrPortInUse is returned by an exclusive registry when the port already
// has a handler.
type ErrPortInUse struct {
	Port uint16
}

func (e ErrPortInUse) Error() string {
	return fmt.Sprintf("udp: port %d already has a handler", e.Port)
}

func (e ErrPortInUse) Is(target error) bool {
	t, ok := target.(ErrPortInUse)
	if !ok {
		return false
	}
	return t.Port == 0 || t.Port == e.Port
}

// Handler consumes datagrams addressed to an open port. payload is only
// valid for the duration of the call; srcPort is in host order.
type Handler interface {
	Deliver(payload []byte, src netip.Addr, srcPort uint16)
}

type HandlerFunc func(payload []byte, src netip.Addr, srcPort uint16)

func (f HandlerFunc) Deliver(payload []byte, src netip.Addr, srcPort uint16) {
	f(payload, src, srcPort)
}

// Registry maps local ports to handlers. A port has at most one handler.
type Registry struct {
	mu        sync.RWMutex
	handlers  map[uint16]Handler
	limit     int
	exclusive bool
}

// NewRegistry creates a registry holding at most limit ports, or any
// number when limit is zero. An exclusive registry refuses to replace the
// handler of an open port.
func NewRegistry(limit int, exclusive bool) *Registry {
	return &Registry{
		handlers:  make(map[uint16]Handler),
		limit:     limit,
		exclusive: exclusive,
	}
}

func (r *Registry) Register(port uint16, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[port]; ok {
		if r.exclusive {
			return ErrPortInUse{Port: port}
		}
		log.Warn("[UDP] replacing handler", zap.Uint16("port", port))
		r.handlers[port] = h
		return nil
	}
	if r.limit > 0 && len(r.handlers) >= r.limit {
		return ErrRegistryFull
	}
	r.handlers[port] = h
	return nil
}

// Unregister removes the handler of port. Unknown ports are ignored.
func (r *Registry) Unregister(port uint16) {
	r.mu.Lock()
	delete(r.handlers, port)
	r.mu.Unlock()
}

func (r *Registry) Lookup(port uint16) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[port]
	return h, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Ports returns the open ports in ascending order.
func (r *Registry) Ports() []uint16 {
	r.mu.RLock()
	ports := make([]uint16, 0, len(r.handlers))
	for p := range r.handlers {
		ports = append(ports, p)
	}
	r.mu.RUnlock()
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}
