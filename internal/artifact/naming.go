// Package artifact names, validates and guards the files the pipeline
// produces: raw intermediates and score reports.
package artifact

import (
	"path/filepath"
	"strings"

	"github.com/gwlsn/ccvmaf/internal/ffmpeg"
)

const (
	ExtYUV    = ".yuv"
	ExtReport = ".json"
)

// FlatName turns a path into a single file name component. The path is
// cleaned, any volume name and leading "./", "../" and separators are stripped, remaining
// separators become "_" and dots are dropped.
//
//	FlatName("../clips/a.b/dis") == "clips_ab_dis"
func FlatName(path string) string {
	p := filepath.Clean(path)
	p = filepath.ToSlash(p[len(filepath.VolumeName(p)):])
	for {
		switch {
		case strings.HasPrefix(p, "../"):
			p = p[3:]
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			p = strings.ReplaceAll(p, "/", "_")
			return strings.ReplaceAll(p, ".", "")
		}
	}
}

// Stem returns path without its final extension.
func Stem(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Name returns the artifact file name for a source path and crop.
func Name(path string, crop ffmpeg.Crop, ext string) string {
	return FlatName(Stem(path)) + "_" + crop.String() + ext
}

// RefName returns the reference intermediate name. It embeds the distorted
// video's base name so pairs sharing a reference never share an
// intermediate name.
func RefName(ref, dis string, crop ffmpeg.Crop) string {
	return FlatName(Stem(ref)) + "_" + FlatName(Stem(filepath.Base(dis))) + "_" + crop.String() + ExtYUV
}

// Dirs are the folders artifacts are written to.
type Dirs struct {
	RefTmp  string
	DisTmp  string
	Reports string
}

// Names holds the resolved artifact paths of one triple.
type Names struct {
	RefIntermediate string
	DisIntermediate string
	Report          string
}

// Resolve computes every artifact path of a (reference, distorted, crop)
// triple.
func Resolve(ref, dis string, crop ffmpeg.Crop, dirs Dirs) Names {
	return Names{
		RefIntermediate: filepath.Join(dirs.RefTmp, RefName(ref, dis, crop)),
		DisIntermediate: filepath.Join(dirs.DisTmp, Name(dis, crop, ExtYUV)),
		Report:          filepath.Join(dirs.Reports, Name(dis, crop, ExtReport)),
	}
}
