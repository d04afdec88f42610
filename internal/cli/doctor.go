package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gwlsn/ccvmaf/internal/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (ffmpeg, ffprobe, vmafossexec, model)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			out := cmd.OutOrStdout()

			var errs []error
			check := func(label, name, configured string) {
				p, err := deps.FindTool(name, configured)
				if err != nil {
					fmt.Fprintf(out, "%-12s missing (%s)\n", label+":", configured)
					errs = append(errs, err)
					return
				}
				fmt.Fprintf(out, "%-12s %s\n", label+":", p)
			}
			check("FFmpeg", "ffmpeg", cfg.FFmpegPath)
			check("FFprobe", "ffprobe", cfg.FFprobePath)
			check("vmafossexec", "vmafossexec", cfg.VMAFPath)

			// The model is resolved by vmafossexec at score time, so a
			// missing file is reported but not fatal.
			if err := deps.CheckModel(cfg.VMAFModel); err != nil {
				fmt.Fprintf(out, "%-12s not found (%s)\n", "Model:", cfg.VMAFModel)
			} else {
				fmt.Fprintf(out, "%-12s %s\n", "Model:", cfg.VMAFModel)
			}

			if len(errs) > 0 {
				return &ExitError{Code: ExitPrecondition, Err: errors.Join(errs...)}
			}
			return nil
		},
	}
}
