package util

import (
	"errors"
	"strings"
	"testing"
)

func TestLastLines(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"", 3, ""},
		{"  \n ", 3, ""},
		{"one", 3, "one"},
		{"a\nb\nc\nd\n", 3, "b | c | d"},
		{"a\nb", 1, "b"},
	}
	for _, tt := range tests {
		if got := LastLines(tt.in, tt.n); got != tt.want {
			t.Errorf("LastLines(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestNewSilentFailure(t *testing.T) {
	err := NewSilentFailure(CmdSpec{Path: "/usr/bin/vmafossexec", Stage: "score"}, "out.json.partial")
	if !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("expected ErrEmptyOutput, got %v", err)
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "vmafossexec (score) failed (exit 0)") {
		t.Errorf("unexpected message %q", msg)
	}
	if !strings.Contains(msg, "out.json.partial") {
		t.Errorf("message %q should name the output", msg)
	}
}
