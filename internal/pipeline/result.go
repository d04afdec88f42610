package pipeline

import (
	"time"

	"github.com/gwlsn/ccvmaf/internal/ffmpeg"
	"github.com/gwlsn/ccvmaf/internal/timing"
)

// Status is the final state of one (reference, distorted, crop) triple
type Status string

const (
	StatusComplete Status = "complete"
	StatusCached   Status = "cached"
	StatusFailed   Status = "failed"
)

// Stage is a step of the per-triple state machine
type Stage string

const (
	StageResolvePaths     Stage = "resolve_paths"
	StageCheckReportCache Stage = "check_report_cache"
	StageConvertRef       Stage = "convert_ref"
	StageConvertDis       Stage = "convert_dis"
	StageScore            Stage = "score"
	StageCleanup          Stage = "cleanup"
	StageRecordTiming     Stage = "record_timing"
	StageDone             Stage = "done"
)

// Result describes how one triple ended
type Result struct {
	Crop     ffmpeg.Crop     `json:"crop"`
	Status   Status          `json:"status"`
	Stage    Stage           `json:"stage"` // Failing stage, or done
	Report   string          `json:"report,omitempty"`
	Geometry ffmpeg.Geometry `json:"geometry"`
	Timing   *timing.Record  `json:"timing,omitempty"` // Only for computed triples
	Err      error           `json:"-"`
}

// Summary collects the results of one run in crop request order
type Summary struct {
	RunID    string        `json:"run_id"`
	Results  []Result      `json:"results"`
	Duration time.Duration `json:"duration"`
}

func (s *Summary) count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Completed returns the number of computed triples.
func (s *Summary) Completed() int { return s.count(StatusComplete) }

// Cached returns the number of triples whose report already existed.
func (s *Summary) Cached() int { return s.count(StatusCached) }

// Failed returns the number of failed triples.
func (s *Summary) Failed() int { return s.count(StatusFailed) }

// Err returns ErrTriplesFailed if any triple failed.
func (s *Summary) Err() error {
	if n := s.Failed(); n > 0 {
		return triplesFailedError(n, len(s.Results))
	}
	return nil
}
