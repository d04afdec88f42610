package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gwlsn/ccvmaf/internal/logger"
)

// CmdSpec describes a subprocess to run.
type CmdSpec struct {
	Path  string   // Binary path
	Args  []string // Arguments, never shell-interpreted
	Dir   string   // Working directory; empty = inherit
	Env   []string // Extra KEY=VALUE pairs appended to the parent environment
	Stage string   // Pipeline stage label used in logs and errors
}

// CmdResult contains captured output and exit status.
type CmdResult struct {
	Stdout []byte
	Stderr []byte
	Code   int
}

// Runner executes subprocesses. ExecRunner is the production implementation;
// tests substitute fakes that create the expected output files.
type Runner interface {
	// Run executes a single command and waits for it to exit.
	Run(ctx context.Context, spec CmdSpec) (CmdResult, error)

	// Pipe runs two commands with the stdout of first connected to the stdin
	// of second. The chain fails if either stage fails.
	Pipe(ctx context.Context, first, second CmdSpec) (CmdResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command, capturing stdout and stderr. A non-zero exit is
// returned as *InvocationError with the captured stderr attached.
func (r *ExecRunner) Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	var stdout, stderr bytes.Buffer

	cmd := r.command(ctx, spec)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running command", "stage", spec.Stage, "cmd", shellQuote(spec.Path, spec.Args))

	err := cmd.Run()
	res := CmdResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
		Code:   exitCode(err),
	}
	if err != nil {
		return res, newInvocationError(ctx, spec, res, err)
	}
	return res, nil
}

// Pipe starts both stages connected by an OS pipe and waits for both.
// The parent closes its copies of the pipe ends once both processes have
// started so that EOF reaches the second stage and a dead reader surfaces
// as a broken pipe in the first.
func (r *ExecRunner) Pipe(ctx context.Context, first, second CmdSpec) (CmdResult, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return CmdResult{Code: -1}, fmt.Errorf("create pipe: %w", err)
	}

	var stderr1, stdout2, stderr2 bytes.Buffer

	c1 := r.command(ctx, first)
	c1.Stdout = pw
	c1.Stderr = &stderr1

	c2 := r.command(ctx, second)
	c2.Stdin = pr
	c2.Stdout = &stdout2
	c2.Stderr = &stderr2

	logger.Debug("Running pipeline",
		"stage", first.Stage,
		"first", shellQuote(first.Path, first.Args),
		"second", shellQuote(second.Path, second.Args))

	if err := c1.Start(); err != nil {
		pr.Close()
		pw.Close()
		res := CmdResult{Code: -1}
		return res, newInvocationError(ctx, first, res, err)
	}
	if err := c2.Start(); err != nil {
		pr.Close()
		pw.Close()
		_ = c1.Process.Kill()
		_ = c1.Wait()
		res := CmdResult{Code: -1}
		return res, newInvocationError(ctx, second, res, err)
	}
	pw.Close()
	pr.Close()

	err2 := c2.Wait()
	err1 := c1.Wait()

	res := CmdResult{
		Stdout: stdout2.Bytes(),
		Stderr: stderr2.Bytes(),
		Code:   exitCode(err2),
	}

	var errs []error
	if err1 != nil {
		res1 := CmdResult{Stderr: stderr1.Bytes(), Code: exitCode(err1)}
		errs = append(errs, newInvocationError(ctx, first, res1, err1))
	}
	if err2 != nil {
		errs = append(errs, newInvocationError(ctx, second, res, err2))
	}
	switch len(errs) {
	case 0:
		return res, nil
	case 1:
		return res, errs[0]
	default:
		return res, errors.Join(errs...)
	}
}

func (r *ExecRunner) command(ctx context.Context, spec CmdSpec) *exec.Cmd {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	return cmd
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// shellQuote returns a printable shell-like command string for logging.
func shellQuote(path string, args []string) string {
	b := &strings.Builder{}
	b.WriteString(quote(path))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`(){}[]*&;|<>?!") {
		return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
	}
	return s
}
