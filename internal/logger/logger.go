package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Log is the global logger instance
var Log *slog.Logger

// level is the dynamic log level, changeable at runtime via SetLevel.
// Backed by atomic.Int64, safe for concurrent use.
var level slog.LevelVar

// ANSI sequences for level names
const (
	colorReset   = "\033[1;0m"
	colorRed     = "\033[1;31m"
	colorYellow  = "\033[1;33m"
	colorGreen   = "\033[1;32m"
	colorMagenta = "\033[1;35m"
)

// Color modes accepted by Init.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Init initializes the global logger with the specified level and colour
// mode. Logs go to stderr so stdout stays clean for command output.
func Init(levelStr, colorMode string) {
	InitWriter(os.Stderr, levelStr, useColor(colorMode, os.Stderr))
}

// InitWriter initializes the global logger writing to w.
func InitWriter(w io.Writer, levelStr string, color bool) {
	SetLevel(levelStr)
	if color {
		Log = slog.New(newColorHandler(w, &level))
		return
	}
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &level}))
}

// SetLevel changes the log level at runtime. Valid values: debug, info, warn, error.
// Invalid values fall back to info.
func SetLevel(levelStr string) {
	var lvl slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	level.Set(lvl)
}

func useColor(mode string, f *os.File) bool {
	switch strings.ToLower(mode) {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" || strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func levelColor(lvl slog.Level) string {
	switch {
	case lvl >= slog.LevelError:
		return colorRed
	case lvl >= slog.LevelWarn:
		return colorYellow
	case lvl >= slog.LevelInfo:
		return colorGreen
	default:
		return colorMagenta
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if Log != nil {
		Log.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...any) {
	if Log != nil {
		Log.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if Log != nil {
		Log.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...any) {
	if Log != nil {
		Log.Error(msg, args...)
	}
}
