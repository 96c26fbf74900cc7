package perplexity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatpipe/chatpipe/pipes"
)

func TestComplete_CitationsSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "r1",
			"model": "sonar",
			"citations": ["https://example.com/source-a", "https://example.com/source-b"],
			"choices": [{"index":0,"message":{"role":"assistant","content":"grounded answer"},"finish_reason":"stop"}]
		}`)
	}))
	defer server.Close()

	pipe := New().WithAPIKey("key").WithBaseURL(server.URL)
	result, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Model:    "perplexity.sonar",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "what happened today?"}},
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if len(result.Citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(result.Citations))
	}
	if result.Citations[0] != "https://example.com/source-a" {
		t.Errorf("unexpected citation: %q", result.Citations[0])
	}
}

func TestComplete_TopKPassedThrough(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"id":"r1","choices":[{"index":0,"message":{"content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	pipe := New().WithAPIKey("key").WithBaseURL(server.URL)
	if _, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "hi"}},
		Params:   &pipes.GenerationParams{TopK: 40},
	}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if gotBody["top_k"] != float64(40) {
		t.Errorf("expected top_k 40, got %v", gotBody["top_k"])
	}
	if gotBody["model"] != "sonar" {
		t.Errorf("expected default model sonar, got %v", gotBody["model"])
	}
}

func TestComplete_ToolsOnSonar_ConfigError(t *testing.T) {
	pipe := New().WithAPIKey("key")
	_, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Model:    "sonar",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "hi"}},
		Tools:    []pipes.ToolDescription{{Name: "search", Parameters: []byte(`{}`)}},
	})

	var configErr *pipes.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *pipes.ConfigError for tools on Sonar, got %v", err)
	}
}

func TestStream_CollectsContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"id\":\"s1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"live \"},\"finish_reason\":null}]}\n\n")
		fmt.Fprint(w, "data: {\"id\":\"s1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"news\"},\"finish_reason\":null}]}\n\n")
		fmt.Fprint(w, "data: {\"id\":\"s1\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	pipe := New().WithAPIKey("key").WithBaseURL(server.URL)
	stream, err := pipe.Stream(context.Background(), pipes.ChatRequest{
		Model:    "sonar",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "news?"}},
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if result.Content != "live news" {
		t.Errorf("expected accumulated content, got %q", result.Content)
	}
}
