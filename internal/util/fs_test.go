package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.yuv")

	if FileExists(path) {
		t.Error("FileExists on missing file")
	}
	if got := FileSize(path); got != -1 {
		t.Errorf("FileSize on missing file = %d, want -1", got)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Errorf("RemoveIfExists on missing file: %v", err)
	}

	if err := os.WriteFile(path, []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists on present file")
	}
	if got := FileSize(path); got != 5 {
		t.Errorf("FileSize = %d, want 5", got)
	}
	if FileExists(dir) {
		t.Error("FileExists should be false for a directory")
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists: %v", err)
	}
	if FileExists(path) {
		t.Error("file still present after RemoveIfExists")
	}
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "yuv_r")
	b := filepath.Join(base, "nested", "reports_cc")

	if err := EnsureDirs(a, b, a); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, d := range []string{a, b} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Errorf("%s not created", d)
		}
	}
	if err := EnsureDirs(""); err == nil {
		t.Error("expected error for empty path")
	}
}
