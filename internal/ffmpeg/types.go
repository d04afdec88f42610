package ffmpeg

import "strconv"

// Crop is a center crop height in pixels, or NoCrop for the full frame.
type Crop int

// NoCrop requests conversion at the full target geometry.
const NoCrop Crop = -1

// IsSet reports whether a real crop height was requested.
func (c Crop) IsSet() bool {
	return c != NoCrop
}

// String returns the crop label used in artifact names ("360", "-1").
func (c Crop) String() string {
	return strconv.Itoa(int(c))
}

// VideoSpec is the raw geometry a source video is converted to.
type VideoSpec struct {
	PixelFormat string `json:"pixel_format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Framerate   int    `json:"framerate"`
}

// Geometry is the frame size of a raw intermediate.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ConversionJob describes one source → raw intermediate conversion.
type ConversionJob struct {
	Source      string
	Destination string
	Spec        VideoSpec
	Crop        Crop
	Stage       string // Label for logs and errors, e.g. "convert_ref"
}
