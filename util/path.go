package util

import (
	"os"
	"path/filepath"
	"strings"
)

// GetAbsPath expands a leading "~/" and makes path absolute.
func GetAbsPath(path string) (string, error) {
	if !filepath.IsAbs(path) && strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path, err
		}
		path = filepath.Join(homeDir, path[2:])
	}
	return filepath.Abs(path)
}
