package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gwlsn/ccvmaf/internal/util"
	"github.com/gwlsn/ccvmaf/internal/util/utiltest"
)

func noOutput(util.CmdSpec) bool { return true }

func TestProbe(t *testing.T) {
	src := filepath.Join(t.TempDir(), "ref.mp4")
	if err := os.WriteFile(src, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := &utiltest.Runner{
		Empty: noOutput,
		Stdout: []byte(`{
			"streams": [{
				"codec_type": "video",
				"codec_name": "hevc",
				"width": 3840,
				"height": 2160,
				"pix_fmt": "yuv420p10le",
				"avg_frame_rate": "60000/1001",
				"bits_per_raw_sample": "10"
			}],
			"format": {"bit_rate": "15000000"}
		}`),
	}

	meta, err := NewProber("ffprobe", runner).Probe(context.Background(), src)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}

	want := Metadata{
		PixelFormat:   "yuv420p10le",
		BitsPerSample: 10,
		Width:         3840,
		Height:        2160,
		FrameRate:     60,
		Codec:         "hevc",
		Bitrate:       15000000,
	}
	if *meta != want {
		t.Errorf("Probe() = %+v, want %+v", *meta, want)
	}

	specs := runner.Specs()
	if len(specs) != 1 || specs[0].Args[len(specs[0].Args)-1] != src {
		t.Errorf("unexpected ffprobe invocation: %+v", specs)
	}
}

func TestProbeNonExistent(t *testing.T) {
	runner := &utiltest.Runner{}
	_, err := NewProber("ffprobe", runner).Probe(context.Background(), "/nonexistent/file.mkv")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if len(runner.Specs()) != 0 {
		t.Error("ffprobe should not run for a missing file")
	}
}

func TestParseMetadataSentinels(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   Metadata
	}{
		{
			name:   "no streams",
			output: `{"streams": [], "format": {}}`,
			want:   Metadata{Unknown, -1, -1, -1, -1, Unknown, -1},
		},
		{
			name:   "missing bit depth and frame rate",
			output: `{"streams": [{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "pix_fmt": "yuv420p", "avg_frame_rate": "0/0"}], "format": {"bit_rate": "N/A"}}`,
			want:   Metadata{"yuv420p", -1, 1920, 1080, -1, "h264", -1},
		},
		{
			name:   "falls back to r_frame_rate",
			output: `{"streams": [{"codec_type": "video", "avg_frame_rate": "0/0", "r_frame_rate": "24000/1001"}], "format": {}}`,
			want:   Metadata{Unknown, -1, -1, -1, 24, Unknown, -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMetadata([]byte(tt.output))
			if err != nil {
				t.Fatalf("parseMetadata failed: %v", err)
			}
			if *got != tt.want {
				t.Errorf("parseMetadata() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParseMetadataEmpty(t *testing.T) {
	if _, err := parseMetadata([]byte("  \n")); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("expected ErrNoMetadata, got %v", err)
	}
	if _, err := parseMetadata([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"30/1", 30.0},
		{"30000/1001", 29.97002997002997},
		{"24/1", 24.0},
		{"60", 60.0},
		{"0/0", 0},
		{"", 0},
		{"5/0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseFrameRate(tt.input)
			if result != tt.expected {
				t.Errorf("parseFrameRate(%q) = %f, want %f", tt.input, result, tt.expected)
			}
		})
	}
}
