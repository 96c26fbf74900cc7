// Package observability defines the lightweight tracing and structured
// logging hooks used by the provider pipes. Hosts attach an [Observer] and/or
// a [Span] to the request context; pipes enrich them around every provider
// call. When nothing is attached the hooks are no-ops, so the pipes carry no
// hard dependency on any telemetry backend.
package observability

import (
	"context"
	"fmt"
	"time"
)

// Observer provides structured logging with leveled methods. The slog
// subpackage contains a log/slog-backed implementation.
type Observer interface {
	Trace(ctx context.Context, msg string, attrs ...Attribute)
	Debug(ctx context.Context, msg string, attrs ...Attribute)
	Info(ctx context.Context, msg string, attrs ...Attribute)
	Warn(ctx context.Context, msg string, attrs ...Attribute)
	Error(ctx context.Context, msg string, attrs ...Attribute)
}

// Span represents a single traced unit of work.
type Span interface {
	// End completes the span.
	End()
	// SetAttributes adds attributes to the span.
	SetAttributes(attrs ...Attribute)
	// RecordError records an error on the span.
	RecordError(err error)
	// AddEvent adds a named event to the span.
	AddEvent(name string, attrs ...Attribute)
}

// --- ATTRIBUTES ---

// Attribute is a key-value pair of span or log metadata.
type Attribute struct {
	Key   string
	Value interface{}
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value}
}

// Error creates an error attribute.
func Error(err error) Attribute {
	if err == nil {
		return Attribute{Key: "error", Value: ""}
	}
	return Attribute{Key: "error", Value: err.Error()}
}

// --- UTILITIES ---

// DefaultMaxStringLength is the default maximum length for truncated strings.
const DefaultMaxStringLength = 500

// TruncateString shortens s to at most maxLen characters, appending a suffix
// that records the original length so readers know data was omitted.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}
