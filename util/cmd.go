package util

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var errEmptyCmd = errors.New("empty cmd")

// ExecCmd runs a whitespace separated command line and returns its stdout.
// The command's stderr is folded into the error when it fails.
func ExecCmd(cmd string) ([]byte, error) {
	c := strings.Fields(cmd)
	if len(c) == 0 {
		return nil, errEmptyCmd
	}
	out, err := exec.Command(c[0], c[1:]...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return out, fmt.Errorf("%w: %s", err, bytes.TrimSpace(exitErr.Stderr))
	}
	return out, err
}
