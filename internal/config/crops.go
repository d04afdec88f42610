package config

import (
	"fmt"
	"slices"
)

// NoCrop is the crop value meaning "evaluate the full frame".
const NoCrop = -1

// AllowedCrops contains the supported center crop heights, NoCrop first.
// All real heights are even so raw 4:2:x chroma planes stay aligned.
var AllowedCrops = []int{
	NoCrop, 144, 192, 240, 300, 360, 420, 480, 510, 540,
	630, 720, 840, 960, 1020, 1080, 1260, 1440, 1800,
}

// IsValidCrop returns true if the crop height is in the allowed set.
func IsValidCrop(crop int) bool {
	return slices.Contains(AllowedCrops, crop)
}

// ValidateCrops returns an error naming the first crop outside the allowed set.
func ValidateCrops(crops []int) error {
	if len(crops) == 0 {
		return fmt.Errorf("no center crops requested")
	}
	for _, c := range crops {
		if !IsValidCrop(c) {
			return fmt.Errorf("invalid center crop %d (allowed: %v)", c, AllowedCrops)
		}
	}
	return nil
}

// UniqueCrops returns crops with duplicates removed, keeping first-seen order.
func UniqueCrops(crops []int) []int {
	seen := make(map[int]bool, len(crops))
	out := make([]int, 0, len(crops))
	for _, c := range crops {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
