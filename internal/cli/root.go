// Package cli wires the ccvmaf command line onto the pipeline.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/gwlsn/ccvmaf/internal/util"
)

const (
	ExitOK            = 0
	ExitCLIError      = 1
	ExitPrecondition  = 2
	ExitTriplesFailed = 3
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitCLIError
}

// newRunner builds the subprocess runner; tests replace it.
var newRunner = func() util.Runner {
	return util.NewExecRunner()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ccvmaf <reference> <distorted>",
		Short: "Center-crop VMAF scoring",
		Long: "ccvmaf scores a distorted video against its reference with vmafossexec " +
			"(VMAF, PSNR, SSIM), optionally on center crops that simulate smaller viewports. " +
			"Reports already on disk are reused.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(2),
		RunE:          runExecute,
	}

	bindConfigFlags(root.PersistentFlags())

	root.AddCommand(newDoctorCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newSummaryCmd())

	return root
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}
