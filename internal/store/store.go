// Package store persists the artifact manifest: the parameter set that
// produced each cached intermediate and report.
package store

import "time"

// Kind classifies a cached artifact.
type Kind string

const (
	KindRefYUV Kind = "ref_yuv"
	KindDisYUV Kind = "dis_yuv"
	KindReport Kind = "report"
)

// Entry records how an artifact on disk was produced.
type Entry struct {
	Path        string    `json:"path"` // Absolute artifact path, primary key
	Kind        Kind      `json:"kind"`
	Fingerprint string    `json:"fingerprint"`
	Params      string    `json:"params"` // JSON parameter set behind the fingerprint
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Manifest defines the persistence interface for artifact entries.
// Implementations must be safe for concurrent use.
type Manifest interface {
	// Put records an entry. An existing entry for the same path is replaced.
	Put(entry *Entry) error

	// Get retrieves the entry for path. Returns nil if not found.
	Get(path string) (*Entry, error)

	// Delete removes the entry for path.
	// Returns nil if the entry doesn't exist.
	Delete(path string) error

	// List returns all entries of the given kind ordered by path.
	// An empty kind lists everything.
	List(kind Kind) ([]*Entry, error)

	// Close closes the manifest and releases resources.
	Close() error
}
