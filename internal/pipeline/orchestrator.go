// Package pipeline runs the per-crop state machine that turns a reference
// and a distorted video into VMAF reports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gwlsn/ccvmaf/internal/artifact"
	"github.com/gwlsn/ccvmaf/internal/config"
	"github.com/gwlsn/ccvmaf/internal/ffmpeg"
	"github.com/gwlsn/ccvmaf/internal/ffmpeg/vmaf"
	"github.com/gwlsn/ccvmaf/internal/logger"
	"github.com/gwlsn/ccvmaf/internal/store"
	"github.com/gwlsn/ccvmaf/internal/timing"
	"github.com/gwlsn/ccvmaf/internal/util"
)

// Converter produces raw intermediates
type Converter interface {
	Convert(ctx context.Context, job ffmpeg.ConversionJob) (ffmpeg.Geometry, error)
}

// Scorer produces a report from two intermediates
type Scorer interface {
	Score(ctx context.Context, job vmaf.ScoreJob) (string, error)
}

// Orchestrator runs every requested crop of one (reference, distorted) pair.
type Orchestrator struct {
	cfg       config.Config
	converter Converter
	scorer    Scorer
	cache     *artifact.Cache
	timings   *timing.Recorder
	locks     artifact.Locks
}

// New creates an orchestrator. The config is copied and never modified.
// A nil cache checks presence only; nil timings only logs records.
func New(cfg config.Config, converter Converter, scorer Scorer, cache *artifact.Cache, timings *timing.Recorder) *Orchestrator {
	if cache == nil {
		cache = artifact.NewCache(nil, "")
	}
	if timings == nil {
		timings = timing.NewRecorder(nil)
	}
	return &Orchestrator{
		cfg:       cfg.Clone(),
		converter: converter,
		scorer:    scorer,
		cache:     cache,
		timings:   timings,
	}
}

// Run processes every unique requested crop. Precondition failures are
// returned before anything touches the filesystem. A failed crop does not
// stop the others; the summary is returned together with ErrTriplesFailed.
func (o *Orchestrator) Run(ctx context.Context, ref, dis string) (*Summary, error) {
	if err := Preflight(o.cfg, ref, dis); err != nil {
		return nil, err
	}
	crops := config.UniqueCrops(o.cfg.CenterCrops)

	logger.Info("Starting run",
		"run_id", o.cache.RunID(),
		"reference", ref,
		"distorted", dis,
		"crops", crops,
		"pixel_format", o.cfg.PixelFormat,
		"width", o.cfg.Width,
		"height", o.cfg.Height,
		"framerate", o.cfg.Framerate,
		"model", o.cfg.VMAFModel,
		"keep_ref_yuv", o.cfg.KeepRefYUV,
		"workers", o.cfg.Workers)

	if err := util.EnsureDirs(o.cfg.TmpFolderRef, o.cfg.TmpFolderDis, o.cfg.ReportFolder); err != nil {
		return nil, err
	}

	start := time.Now()
	summary := &Summary{
		RunID:   o.cache.RunID(),
		Results: make([]Result, len(crops)),
	}

	workers := o.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, crop := range crops {
		g.Go(func() error {
			summary.Results[i] = o.runTriple(ctx, ref, dis, ffmpeg.Crop(crop))
			return nil
		})
	}
	_ = g.Wait() // Triples report failure through their results

	summary.Duration = time.Since(start)
	logger.Info("Run complete",
		"run_id", summary.RunID,
		"complete", summary.Completed(),
		"cached", summary.Cached(),
		"failed", summary.Failed(),
		"duration", summary.Duration.Round(time.Millisecond).String())

	return summary, summary.Err()
}

// Preflight rejects a run that cannot succeed. It has no side effects.
func Preflight(cfg config.Config, ref, dis string) error {
	if err := cfg.Validate(); err != nil {
		return preconditionError(err)
	}
	for _, p := range []string{ref, dis} {
		info, err := os.Stat(p)
		if err != nil {
			return preconditionError(fmt.Errorf("input %s: %w", p, err))
		}
		if info.IsDir() {
			return preconditionError(fmt.Errorf("input %s is a directory", p))
		}
	}
	for _, c := range config.UniqueCrops(cfg.CenterCrops) {
		if _, err := ffmpeg.ResolveCrop(ffmpeg.Crop(c), cfg.Width, cfg.Height); err != nil {
			return preconditionError(err)
		}
	}
	return nil
}

func (o *Orchestrator) videoSpec() ffmpeg.VideoSpec {
	return ffmpeg.VideoSpec{
		PixelFormat: o.cfg.PixelFormat,
		Width:       o.cfg.Width,
		Height:      o.cfg.Height,
		Framerate:   o.cfg.Framerate,
	}
}

func (o *Orchestrator) dirs() artifact.Dirs {
	return artifact.Dirs{
		RefTmp:  o.cfg.TmpFolderRef,
		DisTmp:  o.cfg.TmpFolderDis,
		Reports: o.cfg.ReportFolder,
	}
}

func (o *Orchestrator) params(ref, dis string, crop ffmpeg.Crop) artifact.Params {
	return artifact.Params{
		Reference:   absPath(ref),
		Distorted:   absPath(dis),
		PixelFormat: o.cfg.PixelFormat,
		Width:       o.cfg.Width,
		Height:      o.cfg.Height,
		Framerate:   o.cfg.Framerate,
		Crop:        int(crop),
		Model:       o.cfg.VMAFModel,
	}
}

// runTriple walks RESOLVE_PATHS → CHECK_REPORT_CACHE → CONVERT_REF →
// CONVERT_DIS → SCORE → CLEANUP → RECORD_TIMING for one crop.
func (o *Orchestrator) runTriple(ctx context.Context, ref, dis string, crop ffmpeg.Crop) Result {
	res := Result{Crop: crop}
	fail := func(stage Stage, err error) Result {
		res.Status = StatusFailed
		res.Stage = stage
		res.Err = err
		logger.Error("Crop failed", "crop", crop, "stage", stage, "error", err)
		return res
	}

	// RESOLVE_PATHS
	if err := ctx.Err(); err != nil {
		return fail(StageResolvePaths, err)
	}
	names := artifact.Resolve(ref, dis, crop, o.dirs())
	spec := o.videoSpec()
	geom, err := ffmpeg.ResolveCrop(crop, spec.Width, spec.Height)
	if err != nil {
		return fail(StageResolvePaths, err)
	}
	params := o.params(ref, dis, crop)
	res.Report = names.Report
	res.Geometry = geom

	// Triples of one run never share a path: names embed the crop and crops
	// are deduplicated. These locks serialize concurrent Run calls on the same
	// Orchestrator. The report lock covers the distorted intermediate, whose
	// name derives from the same inputs; the reference intermediate is keyed
	// on the distorted basename only and needs its own lock. Report before
	// reference, always.
	unlockReport := o.locks.Lock(names.Report)
	defer unlockReport()

	// CHECK_REPORT_CACHE
	if o.reusable(names.Report, store.KindReport, params) {
		logger.Info("Report exists, skipping", "crop", crop, "report", names.Report)
		res.Status = StatusCached
		res.Stage = StageDone
		return res
	}

	unlockRef := o.locks.Lock(names.RefIntermediate)
	defer unlockRef()

	// CONVERT_REF
	// A valid intermediate is reused by the converter; a stale one is dropped here.
	o.reusable(names.RefIntermediate, store.KindRefYUV, params)
	refTime, err := timing.Measure(func() error {
		_, err := o.converter.Convert(ctx, ffmpeg.ConversionJob{
			Source:      ref,
			Destination: names.RefIntermediate,
			Spec:        spec,
			Crop:        crop,
			Stage:       string(StageConvertRef),
		})
		return err
	})
	if err != nil {
		o.cleanupAfterFailure(names)
		return fail(StageConvertRef, err)
	}
	o.commit(names.RefIntermediate, store.KindRefYUV, params)

	// CONVERT_DIS
	o.reusable(names.DisIntermediate, store.KindDisYUV, params)
	disTime, err := timing.Measure(func() error {
		_, err := o.converter.Convert(ctx, ffmpeg.ConversionJob{
			Source:      dis,
			Destination: names.DisIntermediate,
			Spec:        spec,
			Crop:        crop,
			Stage:       string(StageConvertDis),
		})
		return err
	})
	if err != nil {
		o.cleanupAfterFailure(names)
		return fail(StageConvertDis, err)
	}
	o.commit(names.DisIntermediate, store.KindDisYUV, params)

	// SCORE
	scoreTime, err := timing.Measure(func() error {
		_, err := o.scorer.Score(ctx, vmaf.ScoreJob{
			Reference:   names.RefIntermediate,
			Distorted:   names.DisIntermediate,
			Width:       geom.Width,
			Height:      geom.Height,
			PixelFormat: spec.PixelFormat,
			Model:       o.cfg.VMAFModel,
			Report:      names.Report,
		})
		return err
	})
	if err != nil {
		o.cleanupAfterFailure(names)
		return fail(StageScore, err)
	}
	o.commit(names.Report, store.KindReport, params)

	// CLEANUP
	if err := o.cleanup(names); err != nil {
		return fail(StageCleanup, err)
	}

	// RECORD_TIMING
	rec := timing.Record{
		RefConversionTime: refTime.Seconds(),
		DisConversionTime: disTime.Seconds(),
		ScoreRunTime:      scoreTime.Seconds(),
		Crop:              int(crop),
		DisVideo:          dis,
		RunID:             o.cache.RunID(),
	}
	if err := o.timings.Record(rec); err != nil {
		return fail(StageRecordTiming, err)
	}

	res.Timing = &rec
	res.Status = StatusComplete
	res.Stage = StageDone
	return res
}

// reusable reports whether the artifact at path can be kept. A stale
// artifact is deleted so the next stage recomputes it.
func (o *Orchestrator) reusable(path string, kind store.Kind, params artifact.Params) bool {
	status, err := o.cache.Check(path, kind, params)
	if err != nil {
		logger.Warn("Manifest lookup failed, trusting file presence", "path", path, "error", err)
	}
	switch status {
	case artifact.Hit:
		return true
	case artifact.Stale:
		logger.Warn("Artifact was produced with different parameters, recomputing",
			"path", path, "kind", kind)
		if err := o.remove(path); err != nil {
			logger.Error("Failed to remove stale artifact", "path", path, "error", err)
		}
	}
	return false
}

func (o *Orchestrator) commit(path string, kind store.Kind, params artifact.Params) {
	if err := o.cache.Commit(path, kind, params); err != nil {
		logger.Warn("Failed to record artifact in manifest", "path", path, "error", err)
	}
}

// remove deletes an artifact and its manifest record.
func (o *Orchestrator) remove(path string) error {
	if err := util.RemoveIfExists(path); err != nil {
		return err
	}
	if err := o.cache.Forget(path); err != nil {
		logger.Warn("Failed to drop artifact from manifest", "path", path, "error", err)
	}
	return nil
}

// cleanup removes the distorted intermediate and, unless retention was
// requested, the reference intermediate.
func (o *Orchestrator) cleanup(names artifact.Names) error {
	var errs []error
	if err := o.remove(names.DisIntermediate); err != nil {
		errs = append(errs, err)
	}
	if !o.cfg.KeepRefYUV {
		if err := o.remove(names.RefIntermediate); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) cleanupAfterFailure(names artifact.Names) {
	if err := o.cleanup(names); err != nil {
		logger.Warn("Failed to remove intermediates", "error", err)
	}
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
