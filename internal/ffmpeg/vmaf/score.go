// Package vmaf drives the vmafossexec scoring executable and reads the
// reports it writes.
package vmaf

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gwlsn/ccvmaf/internal/logger"
	"github.com/gwlsn/ccvmaf/internal/util"
)

// ScoreJob describes one scoring run over two raw intermediates of the same
// geometry.
type ScoreJob struct {
	Reference   string
	Distorted   string
	Width       int
	Height      int
	PixelFormat string
	Model       string
	Report      string
}

// Scorer runs vmafossexec.
type Scorer struct {
	path    string
	threads int
	timeout time.Duration
	runner  util.Runner
}

// NewScorer creates a Scorer for the vmafossexec binary at path.
// Zero threads lets the tool pick.
func NewScorer(path string, runner util.Runner) *Scorer {
	return &Scorer{path: path, runner: runner}
}

// WithThreads sets the --thread argument.
func (s *Scorer) WithThreads(n int) *Scorer {
	if n >= 0 {
		s.threads = n
	}
	return s
}

// WithTimeout bounds each scoring run. Zero disables the limit.
func (s *Scorer) WithTimeout(d time.Duration) *Scorer {
	s.timeout = d
	return s
}

// Score runs vmafossexec once and returns the report path. The report is
// written with VMAF, PSNR, SSIM and confidence intervals in JSON but is not
// parsed here.
func (s *Scorer) Score(ctx context.Context, job ScoreJob) (string, error) {
	if job.Width <= 0 || job.Height <= 0 {
		return "", fmt.Errorf("invalid score geometry %dx%d", job.Width, job.Height)
	}

	partial := job.Report + ".partial"
	if err := util.RemoveIfExists(partial); err != nil {
		return "", fmt.Errorf("remove stale partial report: %w", err)
	}

	spec := util.CmdSpec{
		Path:  s.path,
		Args:  s.args(job, partial),
		Stage: "score",
	}

	logger.Info("Scoring",
		"reference", job.Reference,
		"distorted", job.Distorted,
		"width", job.Width,
		"height", job.Height,
		"model", job.Model)
	start := time.Now()

	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	if _, err := s.runner.Run(runCtx, spec); err != nil {
		_ = util.RemoveIfExists(partial)
		return "", fmt.Errorf("score %s: %w", job.Distorted, err)
	}

	size := util.FileSize(partial)
	if size <= 0 {
		_ = util.RemoveIfExists(partial)
		return "", fmt.Errorf("score %s: %w", job.Distorted, util.NewSilentFailure(spec, partial))
	}
	if err := os.Rename(partial, job.Report); err != nil {
		_ = util.RemoveIfExists(partial)
		return "", fmt.Errorf("finalize report %s: %w", job.Report, err)
	}

	logger.Info("Score complete",
		"report", job.Report,
		"size", humanize.Bytes(uint64(size)),
		"duration", time.Since(start).String())
	return job.Report, nil
}

func (s *Scorer) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// args builds the positional vmafossexec invocation:
//
//	vmafossexec fmt width height ref dis model --log out --log-fmt json ...
func (s *Scorer) args(job ScoreJob, out string) []string {
	return []string{
		job.PixelFormat,
		strconv.Itoa(job.Width),
		strconv.Itoa(job.Height),
		job.Reference,
		job.Distorted,
		job.Model,
		"--log", out,
		"--log-fmt", "json",
		"--thread", strconv.Itoa(s.threads),
		"--psnr",
		"--ssim",
		"--ci",
	}
}
