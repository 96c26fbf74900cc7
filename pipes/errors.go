package pipes

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by all pipes. Nothing is swallowed: every failure a
// pipe can hit surfaces to the host as one of these types, inspectable with
// errors.As. No pipe retries; retry policy belongs to the host.

// ConfigError reports a problem with the pipe's configuration or the request
// itself: a missing credential, a feature the chosen model does not support,
// or an image that cannot be brought under the provider's size limit.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "pipes: configuration error: " + e.Reason
}

// NewConfigErrorf builds a ConfigError from a format string.
func NewConfigErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// ProviderError reports a non-2xx HTTP response from a provider. Message
// carries the provider's error text verbatim; Body holds the raw response
// body for diagnostics.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("pipes: %s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// StreamError reports a malformed SSE frame or a provider-signaled failure
// mid-stream. It terminates the stream; chunks already yielded stand.
type StreamError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipes: %s stream: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("pipes: %s stream: %s", e.Provider, e.Reason)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *StreamError) Unwrap() error { return e.Err }

// TransportError reports a connection-level failure (dial error, timeout,
// aborted read) before or during a provider call.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pipes: %s transport: %v", e.Provider, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *TransportError) Unwrap() error { return e.Err }

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

var (
	_ error = (*ConfigError)(nil)
	_ error = (*ProviderError)(nil)
	_ error = (*StreamError)(nil)
	_ error = (*TransportError)(nil)
)
