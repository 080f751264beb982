package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAbsPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	p, err := GetAbsPath("~/netlab.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "netlab.yaml"), p)

	p, err = GetAbsPath("/etc/netlab.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/netlab.yaml", p)

	wd, err := os.Getwd()
	require.NoError(t, err)
	p, err = GetAbsPath("x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "x"), p)
}

func TestExecCmd(t *testing.T) {
	out, err := ExecCmd("echo  hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	_, err = ExecCmd("   ")
	assert.ErrorIs(t, err, errEmptyCmd)

	_, err = ExecCmd("sh -c false")
	assert.Error(t, err)
}

func TestMustHave(t *testing.T) {
	var (
		name string
		mtu  int
		tags []string
	)
	m := map[string]any{"name": "tun0", "mtu": 1500, "tags": []any{"a", "b"}}
	require.NoError(t, MustHave(m, map[string]any{"name": &name, "mtu": &mtu, "tags": &tags}))
	assert.Equal(t, "tun0", name)
	assert.Equal(t, 1500, mtu)
	assert.Equal(t, []string{"a", "b"}, tags)

	err := MustHave(m, map[string]any{"cidr": &name})
	assert.ErrorIs(t, err, ErrLost{Attr: "cidr"})

	err = MustHave(m, map[string]any{"name": &mtu})
	assert.ErrorIs(t, err, ErrInvalid{Attr: "name"})
}

func TestMayHave(t *testing.T) {
	peer := "stale"
	mtu := 1
	m := map[string]any{"mtu": 9000}
	require.NoError(t, MayHave(m, map[string]any{"peer": &peer, "mtu": &mtu}))
	assert.Equal(t, "", peer)
	assert.Equal(t, 9000, mtu)
}

func TestMustHaveConvertsIntegers(t *testing.T) {
	var port uint16
	require.NoError(t, MustHave(map[string]any{"port": 53}, map[string]any{"port": &port}))
	assert.Equal(t, uint16(53), port)

	for _, v := range []any{-1, 70000, "53", true} {
		err := MustHave(map[string]any{"port": v}, map[string]any{"port": &port})
		assert.ErrorIs(t, err, ErrInvalid{Attr: "port"}, "%v", v)
	}

	var ok bool
	err := MustHave(map[string]any{"enable": 1}, map[string]any{"enable": &ok})
	assert.ErrorIs(t, err, ErrInvalid{Attr: "enable"})
}
