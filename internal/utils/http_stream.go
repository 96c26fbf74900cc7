package utils

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chatpipe/chatpipe/observability"
	"github.com/chatpipe/chatpipe/pipes"
)

// DoPostStream performs an HTTP POST and returns the response with the body
// left open for SSE reading. The caller owns the body and must close it; on
// error paths the body is drained and closed before returning.
//
// Because the request is built with http.NewRequestWithContext, cancelling
// ctx closes the underlying connection promptly even while the caller is
// blocked reading SSE lines; the stream is never drained to completion on
// cancellation.
func DoPostStream(ctx context.Context, client *http.Client, provider, url, apiKey string, body any, headers ...HeaderOption) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.stream_request.prepared",
			observability.String(observability.AttrHTTPMethod, "POST"),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}
	tracePayload(ctx, url, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	requestStart := time.Now()
	response, err := httpClient.Do(req)
	requestDuration := time.Since(requestStart)

	if err != nil {
		if span != nil {
			span.AddEvent("http.stream_request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		return response, &pipes.TransportError{Provider: provider, Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			return response, &pipes.ProviderError{
				Provider:   provider,
				StatusCode: response.StatusCode,
				Message:    fmt.Sprintf("failed to read error body: %v", readErr),
			}
		}
		return response, &pipes.ProviderError{
			Provider:   provider,
			StatusCode: response.StatusCode,
			Message:    ExtractErrorMessage(errorBody),
			Body:       string(errorBody),
		}
	}

	if span != nil {
		span.AddEvent("http.stream_response.started",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration("http.request.duration", requestDuration),
		)
	}

	return response, nil
}

// maxSSELineSize is the maximum size of a single SSE line (1 MB). The default
// bufio.Scanner limit of 64 KiB is too small for large events such as long
// tool-call arguments. Lines over this limit surface a wrapped
// bufio.ErrTooLong through Next().
const maxSSELineSize = 1 * 1024 * 1024

// SSEScanner reads server-sent events from an io.Reader. It handles
// multi-line data fields, accumulates partial lines across read boundaries
// (bufio handles the framing), skips comments and blank keep-alive lines, and
// recognizes the [DONE] sentinel used by OpenAI-compatible APIs.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates an SSEScanner reading from reader, with individual
// lines capped at maxSSELineSize.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next SSE data payload as a string.
// It skips empty lines, comment lines (starting with ':'), and non-data SSE
// fields (event:, id:, retry:). Returns io.EOF when the stream ends or the
// [DONE] sentinel is encountered. Consecutive "data:" lines within one event
// are joined with newlines into a single payload.
func (sseScanner *SSEScanner) Next() (string, error) {
	var dataLines []string

	for sseScanner.scanner.Scan() {
		line := sseScanner.scanner.Text()

		// Empty line signals end of an event; flush accumulated data lines
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		// Skip SSE comments (also used by providers as keep-alives)
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			if data == "[DONE]" {
				return "", io.EOF
			}

			dataLines = append(dataLines, data)
			continue
		}

		// Ignore other SSE fields (event:, id:, retry:)
	}

	if err := sseScanner.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}

	// Return any trailing data lines present when the stream ends without a
	// final blank line.
	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}

	return "", io.EOF
}
