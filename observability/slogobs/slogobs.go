// Package slogobs implements observability.Observer and observability.Span
// on top of Go's standard library log/slog.
package slogobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chatpipe/chatpipe/observability"
)

// Observer implements observability.Observer using slog.
type Observer struct {
	logger *slog.Logger
}

// New creates a slog-backed observer. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger}
}

var _ observability.Observer = (*Observer)(nil)

// StartSpan creates a span that logs its start, events, errors, and end (with
// duration) through the observer's logger, and returns a context carrying it.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &slogSpan{
		name:      name,
		startTime: time.Now(),
		logger:    o.logger,
		attrs:     attrs,
	}

	logAttrs := []slog.Attr{
		slog.String("span", name),
		slog.String("event", "span.start"),
	}
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	o.logger.LogAttrs(ctx, slog.LevelDebug, "Span started", logAttrs...)

	return observability.ContextWithSpan(ctx, span), span
}

type slogSpan struct {
	name      string
	startTime time.Time
	logger    *slog.Logger
	attrs     []observability.Attribute
	mu        sync.Mutex
}

func (s *slogSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	duration := time.Since(s.startTime)
	logAttrs := []slog.Attr{
		slog.String("span", s.name),
		slog.String("event", "span.end"),
		slog.Duration("duration", duration),
	}
	for _, attr := range s.attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	s.logger.LogAttrs(context.Background(), slog.LevelInfo, "Span ended", logAttrs...)
}

func (s *slogSpan) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *slogSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attrs = append(s.attrs, observability.Error(err))
	s.logger.LogAttrs(context.Background(), slog.LevelError, "Span error",
		slog.String("span", s.name),
		slog.String("event", "error"),
		slog.String("error", err.Error()),
	)
}

func (s *slogSpan) AddEvent(name string, attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logAttrs := []slog.Attr{
		slog.String("span", s.name),
		slog.String("event", name),
	}
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "Span event", logAttrs...)
}

// --- Observer logging methods ---

func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	// More verbose than Debug; typically filtered unless explicitly enabled.
	o.log(ctx, slog.LevelDebug-4, msg, attrs...)
}

func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelDebug, msg, attrs...)
}

func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelInfo, msg, attrs...)
}

func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelWarn, msg, attrs...)
}

func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelError, msg, attrs...)
}

func (o *Observer) log(ctx context.Context, level slog.Level, msg string, attrs ...observability.Attribute) {
	logAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	o.logger.LogAttrs(ctx, level, msg, logAttrs...)
}
