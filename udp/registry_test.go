package udp

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	calls int
}

func (h *countingHandler) Deliver([]byte, netip.Addr, uint16) {
	h.calls++
}

func TestRegistryRegisterLookup(t *testing.T) {
	r := NewRegistry(0, false)
	h := &countingHandler{}

	_, ok := r.Lookup(53)
	assert.False(t, ok)

	require.NoError(t, r.Register(53, h))
	got, ok := r.Lookup(53)
	require.True(t, ok)
	assert.Same(t, h, got)

	r.Unregister(53)
	_, ok = r.Lookup(53)
	assert.False(t, ok)

	// unknown port
	r.Unregister(9999)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryOverwriteReplaces(t *testing.T) {
	r := NewRegistry(0, false)
	first, second := &countingHandler{}, &countingHandler{}

	require.NoError(t, r.Register(7, first))
	require.NoError(t, r.Register(7, second))

	got, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryExclusiveRefuses(t *testing.T) {
	r := NewRegistry(0, true)
	first := &countingHandler{}
	require.NoError(t, r.Register(7, first))

	err := r.Register(7, &countingHandler{})
	assert.ErrorIs(t, err, ErrPortInUse{Port: 7})
	assert.ErrorIs(t, err, ErrPortInUse{})
	assert.NotErrorIs(t, err, ErrPortInUse{Port: 8})

	got, _ := r.Lookup(7)
	assert.Same(t, first, got)
}

func TestRegistryLimit(t *testing.T) {
	r := NewRegistry(2, false)
	require.NoError(t, r.Register(1, &countingHandler{}))
	require.NoError(t, r.Register(2, &countingHandler{}))
	assert.ErrorIs(t, r.Register(3, &countingHandler{}), ErrRegistryFull)

	// replacing an open port does not need a free slot
	assert.NoError(t, r.Register(2, &countingHandler{}))

	r.Unregister(1)
	assert.NoError(t, r.Register(3, &countingHandler{}))
}

func TestRegistryRejectsNilHandler(t *testing.T) {
	r := NewRegistry(0, false)
	assert.ErrorIs(t, r.Register(1, nil), ErrNilHandler)
}

func TestRegistryPortsSorted(t *testing.T) {
	r := NewRegistry(0, false)
	for _, p := range []uint16{5353, 7, 53, 65535, 0} {
		require.NoError(t, r.Register(p, &countingHandler{}))
	}
	assert.Equal(t, []uint16{0, 7, 53, 5353, 65535}, r.Ports())
}

func TestHandlerFunc(t *testing.T) {
	var got []byte
	var h Handler = HandlerFunc(func(payload []byte, src netip.Addr, srcPort uint16) {
		got = payload
	})
	h.Deliver([]byte("x"), remote, 1)
	assert.Equal(t, []byte("x"), got)
}
