package vmaf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gwlsn/ccvmaf/internal/util"
	"github.com/gwlsn/ccvmaf/internal/util/utiltest"
)

func newScoreJob(t *testing.T) ScoreJob {
	t.Helper()
	dir := t.TempDir()
	return ScoreJob{
		Reference:   filepath.Join(dir, "ref_dis_360.yuv"),
		Distorted:   filepath.Join(dir, "dis_360.yuv"),
		Width:       640,
		Height:      360,
		PixelFormat: "yuv422p10le",
		Model:       "model/vmaf_rb_v0.6.3.pkl",
		Report:      filepath.Join(dir, "dis_360.json"),
	}
}

func TestScore(t *testing.T) {
	job := newScoreJob(t)
	runner := &utiltest.Runner{}

	report, err := NewScorer("vmafossexec", runner).WithThreads(0).Score(context.Background(), job)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if report != job.Report {
		t.Errorf("report = %q, want %q", report, job.Report)
	}
	if !util.FileExists(job.Report) {
		t.Error("report not written")
	}
	if util.FileExists(job.Report + ".partial") {
		t.Error("partial report left behind")
	}

	specs := runner.Specs()
	if len(specs) != 1 {
		t.Fatalf("expected one invocation, got %d", len(specs))
	}
	args := strings.Join(specs[0].Args, " ")
	wantPrefix := "yuv422p10le 640 360 " + job.Reference + " " + job.Distorted + " " + job.Model + " --log "
	if !strings.HasPrefix(args, wantPrefix) {
		t.Errorf("args = %q, want prefix %q", args, wantPrefix)
	}
	if !strings.HasSuffix(args, "--log-fmt json --thread 0 --psnr --ssim --ci") {
		t.Errorf("args = %q missing metric flags", args)
	}
}

func TestScoreFailure(t *testing.T) {
	job := newScoreJob(t)
	runner := &utiltest.Runner{
		Fail: func(context.Context, util.CmdSpec) error { return errors.New("exit status 255") },
	}

	_, err := NewScorer("vmafossexec", runner).Score(context.Background(), job)
	var invErr *util.InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvocationError, got %v", err)
	}
	if invErr.Stage != "score" {
		t.Errorf("stage = %q, want score", invErr.Stage)
	}
	if util.FileExists(job.Report) || util.FileExists(job.Report+".partial") {
		t.Error("no report should remain after failure")
	}
}

func TestScoreSilentFailure(t *testing.T) {
	job := newScoreJob(t)
	runner := &utiltest.Runner{
		Empty: func(util.CmdSpec) bool { return true },
	}

	_, err := NewScorer("vmafossexec", runner).Score(context.Background(), job)
	if !errors.Is(err, util.ErrEmptyOutput) {
		t.Fatalf("expected ErrEmptyOutput, got %v", err)
	}
	if !strings.Contains(err.Error(), job.Report+".partial") {
		t.Errorf("error %q should name the checked partial report", err)
	}
}

func TestScoreEmptyReportFile(t *testing.T) {
	job := newScoreJob(t)
	runner := &utiltest.Runner{
		Fail: func(_ context.Context, spec util.CmdSpec) error {
			// Truncate what the fake wrote to simulate a zero-byte log.
			return os.WriteFile(utiltest.OutputPath(spec), nil, 0644)
		},
	}

	_, err := NewScorer("vmafossexec", runner).Score(context.Background(), job)
	if !errors.Is(err, util.ErrEmptyOutput) {
		t.Fatalf("expected ErrEmptyOutput, got %v", err)
	}
}

func TestScoreRejectsBadGeometry(t *testing.T) {
	job := newScoreJob(t)
	job.Width = 0
	runner := &utiltest.Runner{}

	if _, err := NewScorer("vmafossexec", runner).Score(context.Background(), job); err == nil {
		t.Fatal("expected error for zero width")
	}
	if len(runner.Specs()) != 0 {
		t.Error("vmafossexec should not run")
	}
}
