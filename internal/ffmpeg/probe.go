package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gwlsn/ccvmaf/internal/util"
)

// Unknown is the value of string metadata ffprobe could not determine.
// Numeric fields use -1.
const Unknown = "unknown"

// ErrNoMetadata is returned when ffprobe prints nothing for a file.
var ErrNoMetadata = errors.New("ffprobe could not extract any metadata")

// Metadata describes the first video stream of a file
type Metadata struct {
	PixelFormat   string `json:"pixel_format"`
	BitsPerSample int    `json:"bits_per_sample"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	FrameRate     int    `json:"frame_rate"` // avg_frame_rate rounded to an integer
	Codec         string `json:"codec"`
	Bitrate       int64  `json:"bitrate"` // container bitrate in bits/s
}

// ffprobeOutput represents the JSON output from ffprobe
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	BitRate string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType        string `json:"codec_type"`
	CodecName        string `json:"codec_name"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	AvgFrameRate     string `json:"avg_frame_rate"`
	RFrameRate       string `json:"r_frame_rate"`
	PixelFormat      string `json:"pix_fmt"`
	BitsPerRawSample string `json:"bits_per_raw_sample"`
}

// Prober wraps ffprobe functionality
type Prober struct {
	ffprobePath string
	runner      util.Runner
}

// NewProber creates a new Prober with the given ffprobe path
func NewProber(ffprobePath string, runner util.Runner) *Prober {
	return &Prober{ffprobePath: ffprobePath, runner: runner}
}

// Probe returns metadata about the first video stream of a file
func (p *Prober) Probe(ctx context.Context, path string) (*Metadata, error) {
	if !util.FileExists(path) {
		return nil, fmt.Errorf("%s is not a valid file: %w", path, os.ErrNotExist)
	}

	res, err := p.runner.Run(ctx, util.CmdSpec{
		Path: p.ffprobePath,
		Args: []string{
			"-v", "quiet",
			"-print_format", "json",
			"-show_format",
			"-select_streams", "v:0",
			"-show_streams",
			path,
		},
		Stage: "probe",
	})
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	return parseMetadata(res.Stdout)
}

func parseMetadata(output []byte) (*Metadata, error) {
	if len(strings.TrimSpace(string(output))) == 0 {
		return nil, ErrNoMetadata
	}

	var probeOutput ffprobeOutput
	if err := json.Unmarshal(output, &probeOutput); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	meta := &Metadata{
		PixelFormat:   Unknown,
		BitsPerSample: -1,
		Width:         -1,
		Height:        -1,
		FrameRate:     -1,
		Codec:         Unknown,
		Bitrate:       -1,
	}

	for i := range probeOutput.Streams {
		stream := &probeOutput.Streams[i]
		if stream.CodecType != "" && stream.CodecType != "video" {
			continue
		}
		if stream.PixelFormat != "" {
			meta.PixelFormat = stream.PixelFormat
		}
		if stream.CodecName != "" {
			meta.Codec = stream.CodecName
		}
		if stream.Width > 0 {
			meta.Width = stream.Width
		}
		if stream.Height > 0 {
			meta.Height = stream.Height
		}
		if bits, err := strconv.Atoi(stream.BitsPerRawSample); err == nil && bits > 0 {
			meta.BitsPerSample = bits
		}
		fps := parseFrameRate(stream.AvgFrameRate)
		if fps == 0 {
			fps = parseFrameRate(stream.RFrameRate)
		}
		if fps > 0 {
			meta.FrameRate = int(math.Round(fps))
		}
		break // Take first video stream
	}

	if br, err := strconv.ParseInt(probeOutput.Format.BitRate, 10, 64); err == nil && br > 0 {
		meta.Bitrate = br
	}

	return meta, nil
}

// parseFrameRate parses a frame rate string like "30000/1001" or "30/1"
func parseFrameRate(s string) float64 {
	if s == "" || s == "0/0" {
		return 0
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	num, _ := strconv.ParseFloat(parts[0], 64)
	den, _ := strconv.ParseFloat(parts[1], 64)
	if den == 0 {
		return 0
	}
	return num / den
}
