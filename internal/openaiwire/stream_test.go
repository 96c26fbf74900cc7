package openaiwire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatpipe/chatpipe/pipes"
)

func jsonDecode(request *http.Request, v any) error {
	return json.NewDecoder(request.Body).Decode(v)
}

// writeSSE is a test helper that writes an SSE data line to the response writer and flushes.
func writeSSE(writer http.ResponseWriter, data string) {
	fmt.Fprintf(writer, "data: %s\n\n", data)
	if flusher, ok := writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

// writeSSEDone writes the [DONE] sentinel to signal end of stream.
func writeSSEDone(writer http.ResponseWriter) {
	fmt.Fprintf(writer, "data: [DONE]\n\n")
	if flusher, ok := writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

func TestStream_ContentDeltas_CollectedInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")

		writeSSE(writer, `{"id":"c1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"Hello"},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"c1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"c1","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
		writeSSE(writer, `{"id":"c1","object":"chat.completion.chunk","model":"m","choices":[],"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`)
		writeSSEDone(writer)
	}))
	defer server.Close()

	stream, err := Stream(context.Background(), server.Client(), "test", server.URL, "key", ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if result.Content != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", result.Content)
	}
	if result.FinishReason != "stop" {
		t.Errorf("expected finish_reason stop, got %q", result.FinishReason)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 12 {
		t.Errorf("expected usage from trailing chunk, got %+v", result.Usage)
	}
}

func TestStream_RequestHasStreamOptionsEnabled(t *testing.T) {
	var sawStream, sawIncludeUsage bool
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var body ChatRequest
		if err := jsonDecode(request, &body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		sawStream = body.Stream != nil && *body.Stream
		sawIncludeUsage = body.StreamOptions != nil && body.StreamOptions.IncludeUsage
		writeSSEDone(writer)
	}))
	defer server.Close()

	stream, err := Stream(context.Background(), server.Client(), "test", server.URL, "key", ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if !sawStream {
		t.Error("expected stream=true in request")
	}
	if !sawIncludeUsage {
		t.Error("expected stream_options.include_usage in request")
	}
}

func TestStream_ToolCallDeltas_Accumulated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeSSE(writer, `{"id":"c1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call-1","type":"function","function":{"name":"get_weather","arguments":""}}]},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"c1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\":"}}]},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"c1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"Paris\"}"}}]},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"c1","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`)
		writeSSEDone(writer)
	}))
	defer server.Close()

	stream, err := Stream(context.Background(), server.Client(), "test", server.URL, "key", ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 accumulated tool call, got %d", len(result.ToolCalls))
	}
	call := result.ToolCalls[0]
	if call.ID != "call-1" || call.Function.Name != "get_weather" {
		t.Errorf("unexpected tool call identity: %+v", call)
	}
	if call.Function.Arguments != `{"city":"Paris"}` {
		t.Errorf("expected accumulated arguments, got %q", call.Function.Arguments)
	}
	if result.FinishReason != "tool_calls" {
		t.Errorf("expected finish_reason tool_calls, got %q", result.FinishReason)
	}
}

func TestStream_ReasoningContentDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeSSE(writer, `{"id":"c1","choices":[{"index":0,"delta":{"reasoning_content":"thinking "},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"c1","choices":[{"index":0,"delta":{"reasoning_content":"hard"},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"c1","choices":[{"index":0,"delta":{"content":"done"},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"c1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
		writeSSEDone(writer)
	}))
	defer server.Close()

	stream, err := Stream(context.Background(), server.Client(), "test", server.URL, "key", ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if result.Reasoning != "thinking hard" {
		t.Errorf("expected accumulated reasoning, got %q", result.Reasoning)
	}
	if result.Content != "done" {
		t.Errorf("expected content separate from reasoning, got %q", result.Content)
	}
}

func TestStream_PreStreamHTTPError_ReturnedDirectly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusForbidden)
		fmt.Fprint(writer, `{"error":{"message":"forbidden"}}`)
	}))
	defer server.Close()

	_, err := Stream(context.Background(), server.Client(), "test", server.URL, "key", ChatRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error before streaming starts")
	}
	var providerErr *pipes.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *pipes.ProviderError, got %T", err)
	}
}

func TestStream_MalformedChunk_YieldsStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeSSE(writer, `{"id":"c1","choices":[{"index":0,"delta":{"content":"partial"},"finish_reason":null}]}`)
		writeSSE(writer, `{not valid json`)
		writeSSEDone(writer)
	}))
	defer server.Close()

	stream, err := Stream(context.Background(), server.Client(), "test", server.URL, "key", ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	var sawContent bool
	var streamErr error
	for chunk, iterErr := range stream.Iter() {
		if iterErr != nil {
			streamErr = iterErr
			break
		}
		if chunk.Type == pipes.ChunkContent {
			sawContent = true
		}
	}

	if !sawContent {
		t.Error("expected content before the malformed chunk")
	}
	var typed *pipes.StreamError
	if !errors.As(streamErr, &typed) {
		t.Fatalf("expected *pipes.StreamError, got %v", streamErr)
	}
}

func TestStream_ContextCancellation_TerminatesIterator(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeSSE(writer, `{"id":"c1","choices":[{"index":0,"delta":{"content":"first"},"finish_reason":null}]}`)
		select {
		case <-release:
		case <-request.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := Stream(ctx, server.Client(), "test", server.URL, "key", ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		var lastErr error
		for chunk, iterErr := range stream.Iter() {
			if iterErr != nil {
				lastErr = iterErr
				break
			}
			if chunk.Type == pipes.ChunkContent {
				cancel()
			}
		}
		done <- lastErr
	}()

	select {
	case iterErr := <-done:
		if iterErr == nil {
			t.Fatal("expected error after cancellation")
		}
		if !errors.Is(iterErr, context.Canceled) {
			t.Errorf("expected context.Canceled in chain, got %v", iterErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("iterator did not terminate after cancellation")
	}
	cancel()
}
