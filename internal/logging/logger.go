package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Dir receives bitext.log. Empty disables file logging.
	Dir string

	// Level is debug, info, warn or error. Unknown values mean info.
	Level string

	// Format is "text" or "json".
	Format string

	MaxSizeMB  int
	MaxBackups int

	// Stderr mirrors warnings and errors to this writer (normally os.Stderr).
	// Never point this at stdout while serving MCP over stdio.
	Stderr io.Writer
}

// New builds a logger from opts. The returned close function flushes and
// closes the log file.
func New(opts Options) (*slog.Logger, func() error, error) {
	var (
		handlers []slog.Handler
		closers  []io.Closer
	)

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0700); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "bitext.log"),
			MaxSize:    defaultInt(opts.MaxSizeMB, 10),
			MaxBackups: defaultInt(opts.MaxBackups, 3),
		}
		closers = append(closers, file)
		handlers = append(handlers, createHandler(file, opts.Format, ParseLevel(opts.Level)))
	}

	if opts.Stderr != nil {
		handlers = append(handlers, createHandler(opts.Stderr, "text", slog.LevelWarn))
	}

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		return errors.Join(errs...)
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.DiscardHandler), closeAll, nil
	case 1:
		return slog.New(handlers[0]), closeAll, nil
	default:
		return slog.New(&multiHandler{handlers: handlers}), closeAll, nil
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func createHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func defaultInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// multiHandler fans records out to every handler that accepts the level.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			errs = append(errs, handler.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
