package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "netlab: "+_version+"\n", out)
}

func TestCheckExampleConfig(t *testing.T) {
	out, err := execute(t, "check", "-c", "../../config.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "VALID:")
	assert.Contains(t, out, "netlab0 (10.0.0.1/24)")
	assert.Contains(t, out, "[7 53]")
}

func TestCheckMissingConfig(t *testing.T) {
	_, err := execute(t, "check", "-c", "does-not-exist.yaml")
	assert.Error(t, err)
}
