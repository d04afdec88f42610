package pipeline

import (
	"encoding/json"

	"github.com/gwlsn/ccvmaf/internal/config"
	"github.com/gwlsn/ccvmaf/internal/ffmpeg"
	"github.com/gwlsn/ccvmaf/internal/logger"
)

// ApplyMetadata returns a copy of cfg with height, framerate and pixel
// format taken from probed reference metadata. Fields the probe could not
// determine keep their configured value.
func ApplyMetadata(cfg config.Config, meta *ffmpeg.Metadata) config.Config {
	out := cfg.Clone()
	if meta == nil {
		return out
	}

	if data, err := json.MarshalIndent(meta, "", "  "); err == nil {
		logger.Info("Reference metadata\n" + string(data))
	}

	if meta.Height > 0 {
		out.Height = meta.Height
	} else {
		logger.Warn("Reference height unknown, keeping configured value", "height", out.Height)
	}
	if meta.FrameRate > 0 {
		out.Framerate = meta.FrameRate
	} else {
		logger.Warn("Reference frame rate unknown, keeping configured value", "framerate", out.Framerate)
	}
	if meta.PixelFormat != "" && meta.PixelFormat != ffmpeg.Unknown {
		out.PixelFormat = meta.PixelFormat
	} else {
		logger.Warn("Reference pixel format unknown, keeping configured value", "pixel_format", out.PixelFormat)
	}
	return out
}
