package ffmpeg

import (
	"errors"
	"fmt"
)

var (
	// ErrCropExceedsHeight is returned when a crop is taller than the frame.
	// Callers treat it as a precondition failure.
	ErrCropExceedsHeight = errors.New("center crop exceeds video height")

	// ErrInvalidGeometry is returned for non-positive dimensions or crops.
	ErrInvalidGeometry = errors.New("invalid geometry")
)

// ResolveCrop computes the raw frame size of a center crop.
//
// The height is the crop height. The width keeps the parent aspect ratio and
// is truncated to an even number, since raw 4:2:0 and 4:2:2 formats need
// even chroma plane dimensions:
//
//	width = 2 * floor(crop * parentWidth / parentHeight / 2)
//
// NoCrop resolves to the parent geometry.
func ResolveCrop(crop Crop, parentWidth, parentHeight int) (Geometry, error) {
	if parentWidth <= 0 || parentHeight <= 0 {
		return Geometry{}, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, parentWidth, parentHeight)
	}
	if !crop.IsSet() {
		return Geometry{Width: parentWidth, Height: parentHeight}, nil
	}
	if crop <= 0 {
		return Geometry{}, fmt.Errorf("%w: center crop %d", ErrInvalidGeometry, crop)
	}
	if int(crop) > parentHeight {
		return Geometry{}, fmt.Errorf("%w: center crop %d > video height %d", ErrCropExceedsHeight, crop, parentHeight)
	}

	h := int(crop)
	w := 2 * (h * parentWidth / parentHeight / 2)
	if w <= 0 {
		return Geometry{}, fmt.Errorf("%w: center crop %d of %dx%d has no width", ErrInvalidGeometry, crop, parentWidth, parentHeight)
	}
	return Geometry{Width: w, Height: h}, nil
}
