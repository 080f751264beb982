package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReservesHeadroom(t *testing.T) {
	b := New(28, []byte("hi"))
	assert.Equal(t, 28, b.Headroom())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, DefaultTailroom, b.Tailroom())
	assert.Equal(t, []byte("hi"), b.Bytes())
}

func TestPushPopHeader(t *testing.T) {
	b := New(8, []byte{1, 2, 3})

	h, err := b.PushHeader(8)
	require.NoError(t, err)
	require.Len(t, h, 8)
	copy(h, []byte{9, 9, 9, 9, 9, 9, 9, 9})
	assert.Equal(t, 11, b.Len())
	assert.Equal(t, 0, b.Headroom())

	_, err = b.PushHeader(1)
	assert.ErrorIs(t, err, ErrNoHeadroom)

	popped, err := b.PopHeader(8)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9, 9, 9, 9, 9, 9}, popped)
	assert.Equal(t, []byte{1, 2, 3}, b.Bytes())

	// The popped bytes are still there to be pushed back.
	h, err = b.PushHeader(8)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9, 9, 9, 9, 9, 9}, h)

	_, err = b.PopHeader(12)
	assert.ErrorIs(t, err, ErrUnderflow)
}

func TestPadding(t *testing.T) {
	b := New(0, []byte{0xff, 0xff, 0xff})
	b.data[b.tail] = 0xaa // stale tail byte must be zeroed

	require.NoError(t, b.PushPadding(1))
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0x00}, b.Bytes())

	require.NoError(t, b.PopPadding(1))
	assert.Equal(t, []byte{0xff, 0xff, 0xff}, b.Bytes())

	assert.ErrorIs(t, b.PushPadding(DefaultTailroom+1), ErrNoTailroom)
	assert.ErrorIs(t, b.PopPadding(4), ErrUnderflow)
}

func TestWrapHasNoSpareRoom(t *testing.T) {
	frame := []byte{1, 2, 3, 4}
	b := Wrap(frame)
	assert.Equal(t, 0, b.Headroom())
	assert.Equal(t, 0, b.Tailroom())
	assert.ErrorIs(t, b.PushPadding(1), ErrNoTailroom)

	_, err := b.PopHeader(2)
	require.NoError(t, err)
	frame[2] = 7
	assert.Equal(t, []byte{7, 4}, b.Bytes())
}

func TestTrim(t *testing.T) {
	b := Wrap([]byte{1, 2, 3, 4, 5})
	require.NoError(t, b.Trim(3))
	assert.Equal(t, []byte{1, 2, 3}, b.Bytes())
	assert.ErrorIs(t, b.Trim(4), ErrUnderflow)
}

func TestCloneIsIndependent(t *testing.T) {
	b := New(4, []byte{1, 2})
	b.NetworkHeaderLen = 20
	c := b.Clone()
	c.Bytes()[0] = 9
	assert.Equal(t, byte(1), b.Bytes()[0])
	assert.Equal(t, 4, c.Headroom())
	assert.Equal(t, 20, c.NetworkHeaderLen)
}
