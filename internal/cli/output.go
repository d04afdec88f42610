package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/gwlsn/ccvmaf/internal/ffmpeg/vmaf"
	"github.com/gwlsn/ccvmaf/internal/pipeline"
	"github.com/gwlsn/ccvmaf/internal/util"
)

type styles struct {
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Success lipgloss.Style
	Cached  lipgloss.Style
	Error   lipgloss.Style
	Faint   lipgloss.Style
}

func defaultStyles() styles {
	base := lipgloss.NewStyle()
	return styles{
		Header:  base.Bold(true).Padding(0, 1),
		Cell:    base.Padding(0, 1),
		Success: base.Foreground(lipgloss.Color("#22C55E")),
		Cached:  base.Foreground(lipgloss.Color("#60A5FA")),
		Error:   base.Foreground(lipgloss.Color("#EF4444")),
		Faint:   base.Faint(true),
	}
}

func newTable(st styles, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.Faint).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == 0 {
				return st.Header
			}
			return st.Cell
		})
}

func seconds(s float64) string {
	return (time.Duration(s * float64(time.Second))).Round(10 * time.Millisecond).String()
}

// renderResults formats the per-crop outcome of a run.
func renderResults(s *pipeline.Summary) string {
	st := defaultStyles()
	t := newTable(st, "Crop", "Status", "Geometry", "Report", "Ref", "Dis", "Score")

	for _, r := range s.Results {
		status := string(r.Status)
		switch r.Status {
		case pipeline.StatusComplete:
			status = st.Success.Render(status)
		case pipeline.StatusCached:
			status = st.Cached.Render(status)
		case pipeline.StatusFailed:
			status = st.Error.Render(status + " (" + string(r.Stage) + ")")
		}

		refT, disT, scoreT := "-", "-", "-"
		if r.Timing != nil {
			refT = seconds(r.Timing.RefConversionTime)
			disT = seconds(r.Timing.DisConversionTime)
			scoreT = seconds(r.Timing.ScoreRunTime)
		}

		t.Row(
			r.Crop.String(),
			status,
			fmt.Sprintf("%dx%d", r.Geometry.Width, r.Geometry.Height),
			r.Report,
			refT, disT, scoreT,
		)
	}

	footer := st.Faint.Render(fmt.Sprintf("run %s: %d complete, %d cached, %d failed in %s",
		s.RunID, s.Completed(), s.Cached(), s.Failed(), s.Duration.Round(time.Millisecond)))
	return t.Render() + "\n" + footer
}

// renderReports formats the pooled scores of a set of reports.
func renderReports(reports []*vmaf.Report) string {
	st := defaultStyles()
	t := newTable(st, "Report", "VMAF", "CI95", "PSNR", "SSIM", "Frames", "Size")

	for _, r := range reports {
		ci := "-"
		if r.HasCI {
			ci = fmt.Sprintf("%.2f-%.2f", r.CILow, r.CIHigh)
		}
		size := "-"
		if n := util.FileSize(r.Path); n >= 0 {
			size = humanize.Bytes(uint64(n))
		}
		t.Row(
			filepath.Base(r.Path),
			strconv.FormatFloat(r.VMAF, 'f', 2, 64),
			ci,
			strconv.FormatFloat(r.PSNR, 'f', 2, 64),
			strconv.FormatFloat(r.SSIM, 'f', 4, 64),
			strconv.Itoa(r.Frames),
			size,
		)
	}
	return t.Render()
}
