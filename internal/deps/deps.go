// Package deps locates the external tools the pipeline drives.
package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrToolNotFound is returned when a required binary cannot be located.
var ErrToolNotFound = errors.New("tool not found")

// FindTool returns the path to a binary. A configured path containing a
// separator must exist; a bare name is looked up in PATH.
func FindTool(name, configured string) (string, error) {
	if configured == "" {
		configured = name
	}
	if strings.ContainsRune(configured, os.PathSeparator) {
		info, err := os.Stat(configured)
		if err == nil && !info.IsDir() {
			return configured, nil
		}
		return "", fmt.Errorf("%w: %s at %q", ErrToolNotFound, name, configured)
	}
	if p, err := exec.LookPath(configured); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("%w: could not find %s in PATH, please install it or pass its path", ErrToolNotFound, configured)
}

// Tools holds resolved binary paths.
type Tools struct {
	FFmpeg  string
	FFprobe string
	VMAF    string
}

// Find resolves ffmpeg and vmafossexec, plus ffprobe when withProbe is set.
// Every missing tool is reported.
func Find(ffmpegPath, ffprobePath, vmafPath string, withProbe bool) (Tools, error) {
	var t Tools
	var errs []error
	var err error

	if t.FFmpeg, err = FindTool("ffmpeg", ffmpegPath); err != nil {
		errs = append(errs, err)
	}
	if t.VMAF, err = FindTool("vmafossexec", vmafPath); err != nil {
		errs = append(errs, err)
	}
	if withProbe {
		if t.FFprobe, err = FindTool("ffprobe", ffprobePath); err != nil {
			errs = append(errs, err)
		}
	}
	return t, errors.Join(errs...)
}

// CheckModel reports whether the VMAF model file is readable.
func CheckModel(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("vmaf model: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("vmaf model %s is a directory", path)
	}
	return nil
}
