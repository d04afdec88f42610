package ffmpeg

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

// partialSuffix marks an output that is still being written. Only complete
// files are renamed to their final path.
const partialSuffix = ".partial"

// PartialPath returns the in-progress path for a destination.
func PartialPath(dest string) string {
	return dest + partialSuffix
}

// Converter turns source videos into raw intermediates with ffmpeg
type Converter struct {
	ffmpegPath string
	threads    int
	timeout    time.Duration
	runner     util.Runner
}

// NewConverter creates a new Converter with the given ffmpeg path
func NewConverter(ffmpegPath string, runner util.Runner) *Converter {
	return &Converter{
		ffmpegPath: ffmpegPath,
		threads:    4,
		runner:     runner,
	}
}

// WithThreads sets the -threads value passed to every ffmpeg process.
func (c *Converter) WithThreads(n int) *Converter {
	if n > 0 {
		c.threads = n
	}
	return c
}

// WithTimeout bounds each conversion. Zero disables the limit.
func (c *Converter) WithTimeout(d time.Duration) *Converter {
	c.timeout = d
	return c
}

// Convert writes job.Source as raw video to job.Destination and returns the
// geometry of the written frames.
//
// An existing destination is left untouched. Without a crop a single ffmpeg
// process scales, resamples and writes rawvideo. With a crop, a first process
// scales and resamples into a yuv4mpegpipe stream that a second process
// crops and writes as rawvideo.
//
// Output goes to a .partial file that is renamed into place on success, so
// the destination is either complete or absent.
func (c *Converter) Convert(ctx context.Context, job ConversionJob) (Geometry, error) {
	geom, err := ResolveCrop(job.Crop, job.Spec.Width, job.Spec.Height)
	if err != nil {
		logger.Error("Invalid conversion geometry", "source", job.Source, "crop", job.Crop, "error", err)
		return Geometry{}, err
	}

	if util.FileExists(job.Destination) {
		logger.Info("Already converted", "destination", job.Destination)
		return geom, nil
	}

	logger.Info("Converting to raw video",
		"stage", job.Stage,
		"source", job.Source,
		"destination", job.Destination,
		"crop", job.Crop,
		"width", geom.Width,
		"height", geom.Height)
	start := time.Now()

	partial := PartialPath(job.Destination)
	if err := util.RemoveIfExists(partial); err != nil {
		return Geometry{}, fmt.Errorf("remove stale partial output: %w", err)
	}

	runCtx, cancel := c.runContext(ctx)
	defer cancel()

	var last util.CmdSpec
	if job.Crop.IsSet() {
		last = c.cropSpec(job, geom, partial)
		_, err = c.runner.Pipe(runCtx, c.scaleSpec(job), last)
	} else {
		last = c.directSpec(job, partial)
		_, err = c.runner.Run(runCtx, last)
	}
	if err != nil {
		_ = util.RemoveIfExists(partial)
		return Geometry{}, fmt.Errorf("convert %s: %w", job.Source, err)
	}

	size := util.FileSize(partial)
	if size <= 0 {
		_ = util.RemoveIfExists(partial)
		return Geometry{}, fmt.Errorf("convert %s: %w", job.Source, util.NewSilentFailure(last, partial))
	}
	if err := os.Rename(partial, job.Destination); err != nil {
		_ = util.RemoveIfExists(partial)
		return Geometry{}, fmt.Errorf("finalize %s: %w", job.Destination, err)
	}

	logger.Info("Conversion complete",
		"stage", job.Stage,
		"destination", job.Destination,
		"size", humanize.Bytes(uint64(size)),
		"duration", time.Since(start).String())
	return geom, nil
}

func (c *Converter) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Converter) baseArgs() []string {
	return []string{"-nostdin", "-loglevel", "error", "-threads", strconv.Itoa(c.threads)}
}

func scaleFilter(spec VideoSpec) string {
	return fmt.Sprintf("scale=%d:%d,fps=%d", spec.Width, spec.Height, spec.Framerate)
}

// directSpec is the single-process conversion used without a crop.
func (c *Converter) directSpec(job ConversionJob, out string) util.CmdSpec {
	args := c.baseArgs()
	args = append(args,
		"-y",
		"-i", job.Source,
		"-vf", scaleFilter(job.Spec),
		"-an",
		"-c:v", "rawvideo",
		"-r", strconv.Itoa(job.Spec.Framerate),
		"-pix_fmt", job.Spec.PixelFormat,
		"-f", "rawvideo",
		out,
	)
	return util.CmdSpec{Path: c.ffmpegPath, Args: args, Stage: job.Stage}
}

// scaleSpec is the first pipeline stage: scale and resample to stdout.
func (c *Converter) scaleSpec(job ConversionJob) util.CmdSpec {
	args := c.baseArgs()
	args = append(args,
		"-i", job.Source,
		"-filter:v", scaleFilter(job.Spec),
		"-an",
		"-pix_fmt", job.Spec.PixelFormat,
		"-strict", "-1",
		"-f", "yuv4mpegpipe",
		"pipe:1",
	)
	return util.CmdSpec{Path: c.ffmpegPath, Args: args, Stage: job.Stage + "_scale"}
}

// cropSpec is the second pipeline stage: crop stdin and write rawvideo.
func (c *Converter) cropSpec(job ConversionJob, geom Geometry, out string) util.CmdSpec {
	args := c.baseArgs()
	args = append(args,
		"-y",
		"-f", "yuv4mpegpipe",
		"-i", "pipe:0",
		"-filter:v", fmt.Sprintf("crop=%d:%d", geom.Width, geom.Height),
		"-pix_fmt", job.Spec.PixelFormat,
		"-r", strconv.Itoa(job.Spec.Framerate),
		"-c:v", "rawvideo",
		"-an",
		"-f", "rawvideo",
		out,
	)
	return util.CmdSpec{Path: c.ffmpegPath, Args: args, Stage: job.Stage + "_crop"}
}
