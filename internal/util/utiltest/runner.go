// Package utiltest provides a scripted util.Runner for tests that must not
// depend on ffmpeg or vmafossexec being installed.
package utiltest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gwlsn/ccvmaf/internal/util"
)

// Runner records every command and fakes its output file.
//
// The output of a command is the argument following "--log" if present,
// otherwise its last argument unless that is a pipe. Commands write their
// output before Fail is consulted, so a failing command leaves a partial file
// behind the way a killed ffmpeg does.
type Runner struct {
	// Stdout is returned by every successful Run.
	Stdout []byte

	// Fail, when set, is called for every command after its output has been
	// written. A non-nil error fails the command with exit code 1.
	Fail func(ctx context.Context, spec util.CmdSpec) error

	// Empty, when set, makes matching commands exit zero without output.
	Empty func(spec util.CmdSpec) bool

	mu    sync.Mutex
	specs []util.CmdSpec
	pipes int
}

// Run implements util.Runner.
func (r *Runner) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	r.record(false, spec)
	if err := r.exec(ctx, spec); err != nil {
		return util.CmdResult{Code: 1}, err
	}
	return util.CmdResult{Stdout: r.Stdout}, nil
}

// Pipe implements util.Runner.
func (r *Runner) Pipe(ctx context.Context, first, second util.CmdSpec) (util.CmdResult, error) {
	r.record(true, first, second)
	if err := r.exec(ctx, first); err != nil {
		return util.CmdResult{Code: 1}, err
	}
	if err := r.exec(ctx, second); err != nil {
		return util.CmdResult{Code: 1}, err
	}
	return util.CmdResult{}, nil
}

func (r *Runner) record(pipe bool, specs ...util.CmdSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pipe {
		r.pipes++
	}
	r.specs = append(r.specs, specs...)
}

func (r *Runner) exec(ctx context.Context, spec util.CmdSpec) error {
	if err := ctx.Err(); err != nil {
		return invocationError(spec, err)
	}
	if r.Empty == nil || !r.Empty(spec) {
		if out := OutputPath(spec); out != "" {
			content := fmt.Sprintf("%s output\n", spec.Stage)
			if err := os.WriteFile(out, []byte(content), 0644); err != nil {
				return invocationError(spec, err)
			}
		}
	}
	if r.Fail != nil {
		if err := r.Fail(ctx, spec); err != nil {
			return invocationError(spec, err)
		}
	}
	return nil
}

func invocationError(spec util.CmdSpec, err error) *util.InvocationError {
	return &util.InvocationError{
		Tool:  filepath.Base(spec.Path),
		Stage: spec.Stage,
		Args:  spec.Args,
		Code:  1,
		Err:   err,
	}
}

// OutputPath returns the file a command writes, or "" for stdout.
func OutputPath(spec util.CmdSpec) string {
	for i, a := range spec.Args {
		if a == "--log" && i+1 < len(spec.Args) {
			return spec.Args[i+1]
		}
	}
	if len(spec.Args) == 0 {
		return ""
	}
	last := spec.Args[len(spec.Args)-1]
	if strings.HasPrefix(last, "pipe:") || strings.HasPrefix(last, "-") {
		return ""
	}
	return last
}

// Specs returns every command recorded so far, pipe stages included.
func (r *Runner) Specs() []util.CmdSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]util.CmdSpec(nil), r.specs...)
}

// Pipes returns the number of Pipe calls.
func (r *Runner) Pipes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipes
}

// Count returns the number of recorded commands whose binary base name is tool.
func (r *Runner) Count(tool string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.specs {
		if filepath.Base(s.Path) == tool {
			n++
		}
	}
	return n
}
