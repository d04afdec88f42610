package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/gwlsn/ccvmaf/internal/ffmpeg/vmaf"
	"github.com/gwlsn/ccvmaf/internal/logger"
	"github.com/gwlsn/ccvmaf/internal/timing"
)

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "summary [report_folder]",
		Short:         "Print VMAF, PSNR and SSIM of every report in a folder",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			logger.Init(cfg.LogLevel, cfg.Color)

			dir := cfg.ReportFolder
			if len(args) == 1 {
				dir = args[0]
				cfg.ReportFolder = dir
			}
			out := cmd.OutOrStdout()

			paths, err := vmaf.ListReports(dir)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}

			var reports []*vmaf.Report
			for _, p := range paths {
				r, err := vmaf.ReadReport(p)
				if err != nil {
					logger.Warn("Skipping unreadable report", "path", p, "error", err)
					continue
				}
				reports = append(reports, r)
			}
			if len(reports) == 0 {
				fmt.Fprintf(out, "No reports in %s\n", dir)
				return nil
			}
			fmt.Fprintln(out, renderReports(reports))

			records, err := timing.ReadFile(cfg.TimingLogPath())
			switch {
			case errors.Is(err, fs.ErrNotExist):
			case err != nil:
				logger.Warn("Could not read timing log", "path", cfg.TimingLogPath(), "error", err)
			case len(records) > 0:
				var total float64
				for _, r := range records {
					total += r.Total()
				}
				fmt.Fprintf(out, "%d computed crops, %s total tool time\n",
					len(records), time.Duration(total*float64(time.Second)).Round(time.Second))
			}
			return nil
		},
	}
}
