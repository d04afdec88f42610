package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gwlsn/ccvmaf/internal/artifact"
	"github.com/gwlsn/ccvmaf/internal/deps"
	"github.com/gwlsn/ccvmaf/internal/ffmpeg"
	"github.com/gwlsn/ccvmaf/internal/ffmpeg/vmaf"
	"github.com/gwlsn/ccvmaf/internal/logger"
	"github.com/gwlsn/ccvmaf/internal/pipeline"
	"github.com/gwlsn/ccvmaf/internal/store"
	"github.com/gwlsn/ccvmaf/internal/timing"
)

func runExecute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	logger.Init(cfg.LogLevel, cfg.Color)

	ctx := cmd.Context()
	ref, dis := args[0], args[1]

	tools, err := deps.Find(cfg.FFmpegPath, cfg.FFprobePath, cfg.VMAFPath, cfg.MetaFromRef)
	if err != nil {
		return &ExitError{Code: ExitPrecondition, Err: err}
	}
	runner := newRunner()

	if cfg.MetaFromRef {
		meta, err := ffmpeg.NewProber(tools.FFprobe, runner).Probe(ctx, ref)
		if err != nil {
			return &ExitError{Code: ExitPrecondition, Err: fmt.Errorf("probe reference: %w", err)}
		}
		applied := pipeline.ApplyMetadata(*cfg, meta)
		cfg = &applied
	}

	if err := pipeline.Preflight(*cfg, ref, dis); err != nil {
		return &ExitError{Code: ExitPrecondition, Err: err}
	}
	if err := deps.CheckModel(cfg.VMAFModel); err != nil {
		logger.Warn("VMAF model not readable, scoring will likely fail", "model", cfg.VMAFModel, "error", err)
	}

	runID := uuid.NewString()

	var manifest store.Manifest
	if path := cfg.ManifestPath(); path != "" {
		m, err := store.NewSQLiteStore(path)
		if err != nil {
			logger.Warn("Manifest unavailable, trusting artifacts by presence", "path", path, "error", err)
		} else {
			defer m.Close()
			manifest = m
		}
	}

	rec, err := timing.OpenFile(cfg.TimingLogPath())
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	defer rec.Close()

	conv := ffmpeg.NewConverter(tools.FFmpeg, runner).
		WithThreads(cfg.Threads).
		WithTimeout(cfg.ToolTimeout)
	scorer := vmaf.NewScorer(tools.VMAF, runner).
		WithThreads(cfg.VMAFThreads).
		WithTimeout(cfg.ToolTimeout)

	o := pipeline.New(*cfg, conv, scorer, artifact.NewCache(manifest, runID), rec)
	summary, err := o.Run(ctx, ref, dis)
	if summary != nil {
		fmt.Fprintln(cmd.OutOrStdout(), renderResults(summary))
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pipeline.ErrPrecondition):
		return &ExitError{Code: ExitPrecondition, Err: err}
	case errors.Is(err, pipeline.ErrTriplesFailed):
		return &ExitError{Code: ExitTriplesFailed, Err: err}
	default:
		return &ExitError{Code: ExitCLIError, Err: err}
	}
}
