//go:build !linux

package tun

import "os"

func open(string) (*os.File, error) {
	return nil, errNotSupported
}
