package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatpipe/chatpipe/observability"
	"github.com/chatpipe/chatpipe/pipes"
)

// HeaderOption is a single HTTP header applied to an outbound request.
// Options are applied after the defaults, so they can override Authorization
// for providers that do not use Bearer tokens.
type HeaderOption struct {
	Key   string
	Value string
}

// maxResponseBodySize caps response body reads (10 MB) so a rogue provider
// response cannot allocate unbounded memory.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// DoPostSync performs a synchronous HTTP POST with a JSON body and decodes
// the response into OutputStruct. provider names the pipe for error reporting.
//
// Error mapping:
//   - request marshal/build failures are returned as plain errors
//   - client.Do failures (dial, timeout, cancellation) become *pipes.TransportError
//   - non-2xx responses become *pipes.ProviderError with the provider's
//     message extracted from the body (see ExtractErrorMessage)
//   - body decode failures include a response preview for debugging
//
// The response body is always closed before returning; close errors are
// logged, never returned.
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, provider, url, apiKey string, body any, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, "POST"),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}
	tracePayload(ctx, url, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	requestStart := time.Now()
	res, err := httpClient.Do(req)
	requestDuration := time.Since(requestStart)

	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		return res, nil, &pipes.TransportError{Provider: provider, Err: err}
	}
	defer CloseWithLog(res.Body)

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
	if err != nil {
		return res, nil, &pipes.TransportError{Provider: provider, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, res.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(respBody)),
			observability.Duration("http.request.duration", requestDuration),
		)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil, &pipes.ProviderError{
			Provider:   provider,
			StatusCode: res.StatusCode,
			Message:    ExtractErrorMessage(respBody),
			Body:       string(respBody),
		}
	}

	var resStruct OutputStruct
	if err = json.Unmarshal(respBody, &resStruct); err != nil {
		return res, nil, fmt.Errorf("error unmarshaling %s response body (status %d): %w\nResponse preview: %s",
			provider, res.StatusCode, err, TruncateString(string(respBody), 500))
	}

	return res, &resStruct, nil
}

// tracePayload logs the outbound request body through the context observer at
// trace level. Payloads can carry full conversations, so they only surface
// when an observer is attached and tracing, never in regular logs.
func tracePayload(ctx context.Context, url string, body any) {
	observer := observability.ObserverFromContext(ctx)
	if observer == nil {
		return
	}
	observer.Trace(ctx, "provider request payload",
		observability.String(observability.AttrHTTPURL, url),
		observability.String(observability.AttrHTTPRequestBody, TruncateString(JSONToString(body), 2000)),
	)
}

// CloseWithLog closes the given closer and logs a warning on failure instead
// of returning the error, so a close failure never masks the primary error.
func CloseWithLog(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}
