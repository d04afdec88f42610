package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gwlsn/ccvmaf/internal/config"
)

// envPrefix namespaces environment overrides, e.g. CCVMAF_WORKERS=4.
const envPrefix = "CCVMAF"

func bindConfigFlags(fs *pflag.FlagSet) {
	d := config.DefaultConfig()

	fs.String("config", "", "YAML config file")
	fs.String("tmp_folder_ref", d.TmpFolderRef, "Folder for converted reference videos")
	fs.String("tmp_folder_dis", d.TmpFolderDis, "Folder for converted distorted videos")
	fs.String("report_folder", d.ReportFolder, "Folder for JSON reports")
	fs.String("pixel_format", d.PixelFormat, "Raw pixel format both videos are converted to")
	fs.Int("height", d.Height, "Target height")
	fs.Int("width", d.Width, "Target width")
	fs.Int("framerate", d.Framerate, "Target frame rate")
	fs.IntSlice("center_crops", d.CenterCrops, "Comma separated center crop heights, e.g. 360,720; -1 evaluates the full frame")
	fs.Bool("all_crops", false, "Evaluate every supported crop height")
	fs.Bool("meta_from_ref", false, "Take height, frame rate and pixel format from the reference")
	fs.String("vmaf_model", d.VMAFModel, "VMAF model file")
	fs.Bool("keep_ref_yuv", false, "Keep converted reference videos for later runs")
	fs.Int("workers", d.Workers, "Crops processed concurrently")
	fs.Duration("tool_timeout", d.ToolTimeout, "Limit for each ffmpeg or vmafossexec run (0 disables)")
	fs.Int("threads", d.Threads, "ffmpeg -threads")
	fs.Int("vmaf_threads", d.VMAFThreads, "vmafossexec --thread (0 = all cores)")
	fs.String("ffmpeg", d.FFmpegPath, "Path to ffmpeg")
	fs.String("ffprobe", d.FFprobePath, "Path to ffprobe")
	fs.String("vmafossexec", d.VMAFPath, "Path to vmafossexec")
	fs.String("timing_log", "", "NDJSON timing log (default <report_folder>/timings.jsonl)")
	fs.String("manifest", "", "Artifact manifest database (default <report_folder>/manifest.db)")
	fs.Bool("no_manifest", false, "Trust artifacts by presence only")
	fs.String("log_level", d.LogLevel, "Log level: debug, info, warn, error")
	fs.String("color", d.Color, "Coloured log levels: auto, always, never")
}

// loadConfig layers flag > CCVMAF_* env > config file > defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	fs := cmd.Flags()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return nil, err
	}

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	setBool := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	setString("tmp_folder_ref", &cfg.TmpFolderRef)
	setString("tmp_folder_dis", &cfg.TmpFolderDis)
	setString("report_folder", &cfg.ReportFolder)
	setString("pixel_format", &cfg.PixelFormat)
	setInt("height", &cfg.Height)
	setInt("width", &cfg.Width)
	setInt("framerate", &cfg.Framerate)
	setBool("meta_from_ref", &cfg.MetaFromRef)
	setString("vmaf_model", &cfg.VMAFModel)
	setBool("keep_ref_yuv", &cfg.KeepRefYUV)
	setInt("workers", &cfg.Workers)
	setInt("threads", &cfg.Threads)
	setInt("vmaf_threads", &cfg.VMAFThreads)
	setString("ffmpeg", &cfg.FFmpegPath)
	setString("ffprobe", &cfg.FFprobePath)
	setString("vmafossexec", &cfg.VMAFPath)
	setString("timing_log", &cfg.TimingLog)
	setString("manifest", &cfg.Manifest)
	setBool("no_manifest", &cfg.NoManifest)
	setString("log_level", &cfg.LogLevel)
	setString("color", &cfg.Color)

	if v.IsSet("tool_timeout") {
		cfg.ToolTimeout = v.GetDuration("tool_timeout")
	}
	if v.IsSet("center_crops") {
		crops, err := intSlice(v.Get("center_crops"))
		if err != nil {
			return nil, fmt.Errorf("center_crops: %w", err)
		}
		cfg.CenterCrops = crops
	}
	if v.GetBool("all_crops") {
		cfg.CenterCrops = append([]int(nil), config.AllowedCrops...)
	}

	return cfg, nil
}

// intSlice accepts the shapes viper hands back for a list: a bound
// IntSlice flag, or a comma separated environment value.
func intSlice(val any) ([]int, error) {
	var parts []string
	switch t := val.(type) {
	case []int:
		return append([]int(nil), t...), nil
	case []string:
		parts = t
	case []any:
		for _, e := range t {
			parts = append(parts, fmt.Sprint(e))
		}
	case string:
		s := strings.Trim(strings.TrimSpace(t), "[]")
		if s == "" {
			return nil, nil
		}
		parts = strings.Split(s, ",")
	default:
		return nil, fmt.Errorf("unsupported value %v", val)
	}

	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid crop %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
