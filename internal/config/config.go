package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// TmpFolderRef holds converted reference videos. Reference intermediates
	// may outlive a run when KeepRefYUV is set.
	TmpFolderRef string `yaml:"tmp_folder_ref"`

	// TmpFolderDis holds converted distorted videos (always scratch)
	TmpFolderDis string `yaml:"tmp_folder_dis"`

	// ReportFolder is where JSON reports are written; naming is based on
	// the distorted video and crop
	ReportFolder string `yaml:"report_folder"`

	// PixelFormat is the raw pixel format both videos are converted to
	PixelFormat string `yaml:"pixel_format"`

	// Height, Width and Framerate describe the raw target geometry
	Height    int `yaml:"height"`
	Width     int `yaml:"width"`
	Framerate int `yaml:"framerate"`

	// CenterCrops lists the crop heights to evaluate; -1 means no crop
	CenterCrops []int `yaml:"center_crops"`

	// MetaFromRef replaces height, framerate and pixel format with the
	// values probed from the reference video
	MetaFromRef bool `yaml:"meta_from_ref"`

	// VMAFModel is the model file handed to the scorer
	VMAFModel string `yaml:"vmaf_model"`

	// KeepRefYUV keeps reference intermediates for reuse by later runs
	KeepRefYUV bool `yaml:"keep_ref_yuv"`

	// FFmpegPath is the path to ffmpeg binary (default: "ffmpeg")
	FFmpegPath string `yaml:"ffmpeg_path"`

	// FFprobePath is the path to ffprobe binary (default: "ffprobe")
	FFprobePath string `yaml:"ffprobe_path"`

	// VMAFPath is the path to the vmafossexec binary
	VMAFPath string `yaml:"vmaf_path"`

	// Threads is passed to ffmpeg as -threads
	Threads int `yaml:"threads"`

	// VMAFThreads is passed to vmafossexec as --thread (0 = all cores)
	VMAFThreads int `yaml:"vmaf_threads"`

	// Workers is the number of crops processed concurrently (default 1)
	Workers int `yaml:"workers"`

	// ToolTimeout bounds every external invocation; 0 disables the limit
	ToolTimeout time.Duration `yaml:"tool_timeout"`

	// TimingLog is the NDJSON timing file (default: report folder + timings.jsonl)
	TimingLog string `yaml:"timing_log"`

	// Manifest is the artifact manifest database (default: report folder + manifest.db)
	Manifest string `yaml:"manifest"`

	// NoManifest disables manifest validation; file presence alone decides
	NoManifest bool `yaml:"no_manifest"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// Color is auto, always or never
	Color string `yaml:"color"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		TmpFolderRef: "./yuv_r",
		TmpFolderDis: "./yuv_d",
		ReportFolder: "./reports_cc",
		PixelFormat:  "yuv422p10le",
		Height:       2160,
		Width:        3840,
		Framerate:    60,
		CenterCrops:  []int{360},
		VMAFModel:    "vmaf/model/vmaf_rb_v0.6.3/vmaf_rb_v0.6.3.pkl",
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		VMAFPath:     "vmafossexec",
		Threads:      4,
		VMAFThreads:  0,
		Workers:      1,
		ToolTimeout:  6 * time.Hour,
		LogLevel:     "info",
		Color:        "auto",
	}
}

// Load reads config from a YAML file, applying defaults for missing values
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file - use defaults
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for empty values
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.VMAFPath == "" {
		cfg.VMAFPath = "vmafossexec"
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Threads < 1 {
		cfg.Threads = 4
	}
	if len(cfg.CenterCrops) == 0 {
		cfg.CenterCrops = []int{360}
	}

	return cfg, nil
}

// Save writes the config to a YAML file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would make every crop fail.
func (c *Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid geometry %dx%d", c.Width, c.Height))
	}
	if c.Framerate <= 0 {
		errs = append(errs, fmt.Errorf("invalid framerate %d", c.Framerate))
	}
	if c.PixelFormat == "" {
		errs = append(errs, errors.New("pixel format must not be empty"))
	}
	if c.TmpFolderRef == "" || c.TmpFolderDis == "" || c.ReportFolder == "" {
		errs = append(errs, errors.New("tmp and report folders must not be empty"))
	}
	if c.ToolTimeout < 0 {
		errs = append(errs, fmt.Errorf("invalid tool timeout %s", c.ToolTimeout))
	}
	if err := ValidateCrops(c.CenterCrops); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy so callers can hold an immutable snapshot.
func (c *Config) Clone() Config {
	out := *c
	out.CenterCrops = append([]int(nil), c.CenterCrops...)
	return out
}

// TimingLogPath returns the timing log path, defaulting into the report folder
func (c *Config) TimingLogPath() string {
	if c.TimingLog != "" {
		return c.TimingLog
	}
	return filepath.Join(c.ReportFolder, "timings.jsonl")
}

// ManifestPath returns the manifest database path, or "" when disabled
func (c *Config) ManifestPath() string {
	if c.NoManifest {
		return ""
	}
	if c.Manifest != "" {
		return c.Manifest
	}
	return filepath.Join(c.ReportFolder, "manifest.db")
}
