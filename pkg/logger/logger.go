package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// Default is the process-wide logger used when a component is not handed one
	Default *slog.Logger
)

func init() {
	Default = New("info", os.Stdout)
}

// ParseLevel maps a level name onto a slog level, falling back to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelForVerbosity converts a -v count into a level name.
// Zero keeps the driver quiet apart from warnings.
func LevelForVerbosity(verbose int) string {
	switch {
	case verbose <= 0:
		return "warn"
	case verbose == 1:
		return "info"
	default:
		return "debug"
	}
}

// New creates a JSON structured logger with the specified level and output
func New(level string, output io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// NewText creates a text-formatted logger (useful for interactive runs)
func NewText(level string, output io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// NewWithFormat picks the JSON or text handler by name
func NewWithFormat(format, level string, output io.Writer) *slog.Logger {
	if strings.EqualFold(format, "text") {
		return NewText(level, output)
	}
	return New(level, output)
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDefault returns l unless it is nil
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Default
	}
	return l
}

// SetDefault sets the default logger
func SetDefault(logger *slog.Logger) {
	Default = logger
	slog.SetDefault(logger)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Default.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Default.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Default.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Default.Error(msg, args...)
}

// With returns a logger with additional attributes
func With(args ...any) *slog.Logger {
	return Default.With(args...)
}
