// Package logging builds the structured logger shared by the controller
// components: a rotating log file plus an optional console handler.
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
	"time"

	charmlog "github.com/charmbracelet/log"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings, used when an option is zero.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Options configures New.
type Options struct {
	File       string // empty = DefaultFile()
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Console, when set, receives human-readable output in addition to the file.
	Console io.Writer
	// NoFile disables the log file entirely.
	NoFile bool
}

// DefaultFile returns ~/.local/state/multilaunch/multilaunch.log, honouring
// XDG_STATE_HOME.
func DefaultFile() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "multilaunch", "multilaunch.log"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "multilaunch", "multilaunch.log"), nil
}

// ParseLevel parses a level name. "warning" is accepted as an alias of warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a logger and the closer for its file. The closer is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nopCloser{}, err
	}

	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if !opts.NoFile {
		path := opts.File
		if path == "" {
			if path, err = DefaultFile(); err != nil {
				return nil, nopCloser{}, err
			}
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lj.Logger{
			Filename:   path,
			MaxSize:    valOr(opts.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(opts.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(opts.MaxAgeDays, DefaultMaxAgeDays),
		}
		closer = file
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}))
	}

	if opts.Console != nil {
		console := charmlog.NewWithOptions(opts.Console, charmlog.Options{
			Level:           charmlog.Level(level),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          "multilaunch",
		})
		handlers = append(handlers, console)
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, nil)), closer, nil
	case 1:
		return slog.New(handlers[0]), closer, nil
	default:
		return slog.New(fanout(handlers)), closer, nil
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
