package util

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrEmptyOutput is wrapped by an InvocationError when a tool exits
// successfully but leaves no usable output behind.
var ErrEmptyOutput = errors.New("tool produced no output")

// InvocationError reports a failed external process.
type InvocationError struct {
	Tool   string   // Base name of the binary
	Stage  string   // Pipeline stage label
	Args   []string // Arguments the tool was invoked with
	Code   int      // Exit code, -1 if the process never ran or was killed
	Stderr string   // Captured stderr
	Err    error
}

func (e *InvocationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Tool)
	if e.Stage != "" {
		fmt.Fprintf(&b, " (%s)", e.Stage)
	}
	fmt.Fprintf(&b, " failed (exit %d): %v", e.Code, e.Err)
	if tail := LastLines(e.Stderr, 3); tail != "" {
		fmt.Fprintf(&b, " [%s]", tail)
	}
	return b.String()
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// NewSilentFailure builds the error for a tool that exited zero without
// writing its output file.
func NewSilentFailure(spec CmdSpec, output string) *InvocationError {
	return &InvocationError{
		Tool:  filepath.Base(spec.Path),
		Stage: spec.Stage,
		Args:  spec.Args,
		Code:  0,
		Err:   fmt.Errorf("%w: %s", ErrEmptyOutput, output),
	}
}

func newInvocationError(ctx context.Context, spec CmdSpec, res CmdResult, err error) *InvocationError {
	// A killed process reports "signal: killed"; surface the context error
	// instead so callers can match context.DeadlineExceeded.
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w (%v)", ctxErr, err)
	}
	return &InvocationError{
		Tool:   filepath.Base(spec.Path),
		Stage:  spec.Stage,
		Args:   spec.Args,
		Code:   res.Code,
		Stderr: string(res.Stderr),
		Err:    err,
	}
}

// LastLines returns the last n non-empty lines from output joined by " | ".
func LastLines(output string, n int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
