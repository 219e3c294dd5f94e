// Package logging builds the process slog.Logger: a console handler plus
// optional JSON files rotated weekly and by size.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"hexserve/internal/config"
)

const (
	serviceName  = "hexserve"
	mainLogFile  = "hexserve.log"
	errorLogFile = "hexserve-error.log"
)

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New returns the logger described by cfg.Log writing console output to
// stdout. The returned close function flushes and closes any log files.
func New(cfg *config.Config, stdout io.Writer) (*slog.Logger, func() error) {
	level := ParseLevel(cfg.Log.Level)
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		console = slog.NewTextHandler(stdout, opts)
	default:
		console = slog.NewJSONHandler(stdout, opts)
	}

	handlers := fanout{console}
	var files []*lumberjack.Logger
	stopRotation := func() {}

	if cfg.Log.Dir != "" {
		all := rotating(cfg, mainLogFile)
		errs := rotating(cfg, errorLogFile)
		files = append(files, all, errs)
		handlers = append(handlers,
			slog.NewJSONHandler(all, opts),
			slog.NewJSONHandler(errs, &slog.HandlerOptions{Level: slog.LevelError}),
		)
		stopRotation = rotateOnSchedule(files, nextWeekStart)
	}

	logger := slog.New(handlers).With(
		"service", serviceName,
		"environment", cfg.Environment,
	)

	closeFn := func() error {
		stopRotation()
		var errs []error
		for _, f := range files {
			errs = append(errs, f.Close())
		}
		return errors.Join(errs...)
	}
	return logger, closeFn
}

func rotating(cfg *config.Config, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename: filepath.Join(cfg.Log.Dir, name),
		MaxSize:  cfg.Log.MaxSizeMB,
		MaxAge:   cfg.Log.MaxAgeDays,
		Compress: true,
	}
}

// rotateOnSchedule rotates files at each instant returned by next until the
// returned stop function is called. Size-based rotation still applies in
// between.
func rotateOnSchedule(files []*lumberjack.Logger, next func(time.Time) time.Time) (stop func()) {
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			timer := time.NewTimer(time.Until(next(time.Now())))
			select {
			case <-quit:
				timer.Stop()
				return
			case <-timer.C:
				for _, f := range files {
					_ = f.Rotate()
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			<-done
		})
	}
}

// nextWeekStart returns the Monday 00:00 UTC that starts the ISO week after t.
func nextWeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (8 - int(day.Weekday())) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}

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
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
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
