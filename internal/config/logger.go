package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// stderrTarget as logging.file sends logs to the console instead of a file
const stderrTarget = "-"

// InitLogger builds the application logger from configuration and installs
// it as the slog default
func InitLogger(cfg *LoggingConfig) (*slog.Logger, error) {
	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// NewLogger builds a logger without touching the slog default
func NewLogger(cfg *LoggingConfig) (*slog.Logger, error) {
	// An empty file means the default log location under the state dir
	if cfg.File == "" {
		cfg.File = filepath.Join(getStateDir(), appName, appName+".log")
	}

	var writer io.Writer = os.Stderr
	console := cfg.File == stderrTarget
	if !console {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		writer = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize, // megabytes
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		}
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	var handler slog.Handler
	switch {
	case strings.EqualFold(cfg.Format, "json"):
		handler = slog.NewJSONHandler(writer, opts)
	case cfg.Color && console:
		handler = NewColoredTextHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	return slog.New(handler), nil
}

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "\033[90m",
	slog.LevelInfo:  "\033[32m",
	slog.LevelWarn:  "\033[33m",
	slog.LevelError: "\033[31m",
}

// ColoredTextHandler colors the first field of each text record by level
type ColoredTextHandler struct {
	handler slog.Handler
	writer  io.Writer
	opts    *slog.HandlerOptions
	attrs   []slog.Attr
	groups  []string
}

// NewColoredTextHandler creates a handler for console output
func NewColoredTextHandler(w io.Writer, opts *slog.HandlerOptions) *ColoredTextHandler {
	return &ColoredTextHandler{
		handler: slog.NewTextHandler(w, opts),
		writer:  w,
		opts:    opts,
	}
}

// Handle implements slog.Handler
func (h *ColoredTextHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf strings.Builder
	var inner slog.Handler = slog.NewTextHandler(&buf, h.opts)
	if len(h.attrs) > 0 {
		inner = inner.WithAttrs(h.attrs)
	}
	for _, g := range h.groups {
		inner = inner.WithGroup(g)
	}
	if err := inner.Handle(ctx, r); err != nil {
		return err
	}

	line := buf.String()
	if color, ok := levelColors[r.Level]; ok {
		head, tail, found := strings.Cut(line, " ")
		if found {
			line = color + head + "\033[0m " + tail
		}
	}

	_, err := io.WriteString(h.writer, line)
	return err
}

// WithAttrs implements slog.Handler
func (h *ColoredTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.handler = h.handler.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler
func (h *ColoredTextHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.handler = h.handler.WithGroup(name)
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

// Enabled implements slog.Handler
func (h *ColoredTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// parseLogLevel parses a log level string, defaulting to info
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
