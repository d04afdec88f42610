package util

import (
	"errors"
	"fmt"
	"os"
)

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// FileSize returns the size of path, or -1 if it cannot be stat'ed.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}

// RemoveIfExists deletes the file if present.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// EnsureDirs creates every directory in dirs. Existing directories are fine.
func EnsureDirs(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			return errors.New("empty directory path")
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}
