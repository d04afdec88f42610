package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gwlsn/ccvmaf/internal/store"
	"github.com/gwlsn/ccvmaf/internal/util"
)

// Status is the outcome of a cache check.
type Status int

const (
	Miss  Status = iota // Artifact absent
	Hit                 // Artifact present and trusted
	Stale               // Artifact present but produced from other parameters
)

func (s Status) String() string {
	switch s {
	case Miss:
		return "miss"
	case Hit:
		return "hit"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Params is the parameter set that determines an artifact's contents.
type Params struct {
	Reference   string `json:"reference,omitempty"`
	Distorted   string `json:"distorted,omitempty"`
	PixelFormat string `json:"pixel_format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Framerate   int    `json:"framerate"`
	Crop        int    `json:"crop"`
	Model       string `json:"model,omitempty"`
}

// For keeps only the fields that affect an artifact of the given kind.
// A reference intermediate does not depend on the distorted video.
func (p Params) For(kind store.Kind) Params {
	switch kind {
	case store.KindRefYUV:
		p.Distorted, p.Model = "", ""
	case store.KindDisYUV:
		p.Reference, p.Model = "", ""
	}
	return p
}

// Fingerprint returns the hex SHA-256 of the JSON parameter set together
// with that JSON.
func (p Params) Fingerprint() (string, string) {
	data, _ := json.Marshal(p) // Plain struct of strings and ints
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), string(data)
}

// Cache decides whether an artifact can be reused. Presence on disk is
// authoritative; a manifest, when configured, additionally detects
// artifacts produced from a different parameter set.
type Cache struct {
	manifest store.Manifest
	runID    string
}

// NewCache creates a cache. A nil manifest gives presence-only checks.
func NewCache(manifest store.Manifest, runID string) *Cache {
	return &Cache{manifest: manifest, runID: runID}
}

// RunID returns the identifier stamped on committed entries.
func (c *Cache) RunID() string {
	return c.runID
}

// Exists reports whether the artifact is on disk.
func (c *Cache) Exists(path string) bool {
	return util.FileExists(path)
}

// Check classifies the artifact at path. Artifacts without a manifest entry
// are trusted. On a manifest read error the presence result is returned
// together with the error.
func (c *Cache) Check(path string, kind store.Kind, params Params) (Status, error) {
	if !c.Exists(path) {
		return Miss, nil
	}
	if c.manifest == nil {
		return Hit, nil
	}

	entry, err := c.manifest.Get(key(path))
	if err != nil {
		return Hit, fmt.Errorf("read manifest entry for %s: %w", path, err)
	}
	if entry == nil {
		return Hit, nil
	}

	fp, _ := params.For(kind).Fingerprint()
	if entry.Fingerprint != fp {
		return Stale, nil
	}
	return Hit, nil
}

// Commit records the parameters that produced the artifact at path.
func (c *Cache) Commit(path string, kind store.Kind, params Params) error {
	if c.manifest == nil {
		return nil
	}
	fp, raw := params.For(kind).Fingerprint()
	return c.manifest.Put(&store.Entry{
		Path:        key(path),
		Kind:        kind,
		Fingerprint: fp,
		Params:      raw,
		RunID:       c.runID,
		CreatedAt:   time.Now(),
	})
}

// Forget drops the record for an artifact that was deleted.
func (c *Cache) Forget(path string) error {
	if c.manifest == nil {
		return nil
	}
	return c.manifest.Delete(key(path))
}

// key makes manifest entries independent of the working directory.
func key(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
