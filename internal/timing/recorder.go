// Package timing records per-stage wall-clock durations of computed triples
// as newline-delimited JSON.
package timing

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gwlsn/ccvmaf/internal/logger"
)

// Record is one computed triple. Durations are in seconds.
type Record struct {
	RefConversionTime float64 `json:"ref_conversion_time"`
	DisConversionTime float64 `json:"dis_conversion_time"`
	ScoreRunTime      float64 `json:"score_run_time"`
	Crop              int     `json:"crop"`
	DisVideo          string  `json:"dis_video"`
	RunID             string  `json:"run_id,omitempty"`
}

// Total returns the summed stage time in seconds.
func (r Record) Total() float64 {
	return r.RefConversionTime + r.DisConversionTime + r.ScoreRunTime
}

// Recorder appends records to a writer. Records from concurrent triples
// are serialized; each is a single Write of one line.
type Recorder struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewRecorder writes records to w. A nil writer only logs them.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: w}
}

// OpenFile appends records to the file at path, creating it and its
// directory as needed.
func OpenFile(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create timing log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open timing log: %w", err)
	}
	return &Recorder{w: f, closer: f}, nil
}

// Record logs rec and appends it to the timing log.
func (r *Recorder) Record(rec Record) error {
	logger.Info("Timings",
		"crop", rec.Crop,
		"dis_video", rec.DisVideo,
		"ref_conversion_time", rec.RefConversionTime,
		"dis_conversion_time", rec.DisConversionTime,
		"score_run_time", rec.ScoreRunTime)

	if r.w == nil {
		return nil
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode timing record: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(line); err != nil {
		return fmt.Errorf("write timing record: %w", err)
	}
	return nil
}

// Close closes the underlying file if the recorder opened it.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	r.w = nil
	return err
}

// Measure runs fn and returns its wall-clock duration.
func Measure(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}

// Read decodes every record in an NDJSON stream. Blank lines are skipped.
func Read(r io.Reader) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return records, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, sc.Err()
}

// ReadFile reads the records of a timing log.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
