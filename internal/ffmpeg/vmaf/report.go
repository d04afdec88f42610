package vmaf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoScore is returned for a report that carries no VMAF score.
var ErrNoScore = errors.New("report has no VMAF score")

// Report holds the pooled scores of one vmafossexec JSON report.
type Report struct {
	Path   string
	VMAF   float64
	PSNR   float64
	SSIM   float64
	CILow  float64
	CIHigh float64
	HasCI  bool
	Frames int
}

type rawReport struct {
	Frames    []json.RawMessage `json:"frames"`
	VMAFScore *float64          `json:"VMAF score"`
	PSNRScore *float64          `json:"PSNR score"`
	SSIMScore *float64          `json:"SSIM score"`
	Aggregate map[string]any    `json:"aggregate"`
}

// ReadReport parses the pooled scores from a report file. The aggregate
// section is preferred over the top-level summary keys.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseReport(path, data)
}

func parseReport(path string, data []byte) (*Report, error) {
	var raw rawReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}

	r := &Report{Path: path, Frames: len(raw.Frames)}

	vmaf, ok := aggregate(raw.Aggregate, "VMAF_score")
	if !ok && raw.VMAFScore != nil {
		vmaf, ok = *raw.VMAFScore, true
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNoScore)
	}
	r.VMAF = vmaf

	if v, ok := aggregate(raw.Aggregate, "PSNR_score"); ok {
		r.PSNR = v
	} else if raw.PSNRScore != nil {
		r.PSNR = *raw.PSNRScore
	}
	if v, ok := aggregate(raw.Aggregate, "SSIM_score"); ok {
		r.SSIM = v
	} else if raw.SSIMScore != nil {
		r.SSIM = *raw.SSIMScore
	}

	// Bootstrap models name their interval keys after the model, so match
	// on the suffix.
	var low, high bool
	for k, v := range raw.Aggregate {
		f, isNum := v.(float64)
		if !isNum {
			continue
		}
		switch {
		case strings.Contains(k, "ci95_low"):
			r.CILow, low = f, true
		case strings.Contains(k, "ci95_high"):
			r.CIHigh, high = f, true
		}
	}
	r.HasCI = low && high

	return r, nil
}

func aggregate(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// ListReports returns the JSON reports in dir sorted by name.
func ListReports(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
