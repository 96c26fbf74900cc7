package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatpipe/chatpipe/internal/openaiwire"
	"github.com/chatpipe/chatpipe/pipes"
)

func TestComplete_StripsHostPrefixAndAuthenticates(t *testing.T) {
	var gotModel, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body openaiwire.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		gotModel = body.Model
		fmt.Fprint(w, `{"id":"r1","model":"mistral-large-latest","choices":[{"index":0,"message":{"role":"assistant","content":"bonjour"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	pipe := New().WithAPIKey("test-key").WithBaseURL(server.URL)
	result, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Model:    "mistral.mistral-large-latest",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "salut"}},
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if gotModel != "mistral-large-latest" {
		t.Errorf("expected host prefix stripped, got model %q", gotModel)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected Bearer auth, got %q", gotAuth)
	}
	if result.Content != "bonjour" {
		t.Errorf("unexpected content: %q", result.Content)
	}
}

func TestComplete_EmptyModel_UsesDefault(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body openaiwire.ChatRequest
		json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		fmt.Fprint(w, `{"id":"r1","choices":[{"index":0,"message":{"content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	pipe := New().WithAPIKey("key").WithBaseURL(server.URL)
	if _, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "hi"}},
	}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if gotModel != defaultModel {
		t.Errorf("expected default model %q, got %q", defaultModel, gotModel)
	}
}

func TestComplete_MissingAPIKey_ConfigErrorBeforeNetwork(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	pipe := New().WithAPIKey("").WithBaseURL(server.URL)
	_, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "hi"}},
	})

	var configErr *pipes.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *pipes.ConfigError, got %T", err)
	}
	if called {
		t.Error("expected no network call for missing API key")
	}
}

func TestComplete_ImageOnTextOnlyModel_ConfigError(t *testing.T) {
	pipe := New().WithAPIKey("key")
	_, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Model: "open-mistral-7b",
		Messages: []pipes.Message{{
			Role:  pipes.RoleUser,
			Parts: []pipes.ContentPart{pipes.ImagePartOf([]byte{1, 2, 3}, "image/png")},
		}},
	})

	var configErr *pipes.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *pipes.ConfigError for vision on text-only model, got %v", err)
	}
}

func TestComplete_SeedMappedToRandomSeed(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"id":"r1","choices":[{"index":0,"message":{"content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	pipe := New().WithAPIKey("key").WithBaseURL(server.URL).WithSafePrompt(true)
	if _, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Model:    "mistral-large-latest",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "hi"}},
		Params:   &pipes.GenerationParams{Seed: 42},
	}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if gotBody["random_seed"] != float64(42) {
		t.Errorf("expected random_seed 42, got %v", gotBody["random_seed"])
	}
	if _, present := gotBody["seed"]; present {
		t.Error("expected seed field absent for Mistral")
	}
	if gotBody["safe_prompt"] != true {
		t.Errorf("expected safe_prompt true, got %v", gotBody["safe_prompt"])
	}
}

func TestStream_DeltasCollected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"id\":\"s1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"bon\"},\"finish_reason\":null}]}\n\n")
		fmt.Fprint(w, "data: {\"id\":\"s1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"jour\"},\"finish_reason\":null}]}\n\n")
		fmt.Fprint(w, "data: {\"id\":\"s1\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	pipe := New().WithAPIKey("key").WithBaseURL(server.URL)
	stream, err := pipe.Stream(context.Background(), pipes.ChatRequest{
		Model:    "mistral.mistral-small-latest",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "salut"}},
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if result.Content != "bonjour" {
		t.Errorf("expected accumulated content, got %q", result.Content)
	}
	if result.FinishReason != "stop" {
		t.Errorf("expected stop, got %q", result.FinishReason)
	}
}

func TestSupports_KnownAndUnknownModels(t *testing.T) {
	pipe := New()

	if !pipe.Supports("mistral.pixtral-large-latest", pipes.FeatureVision) {
		t.Error("pixtral-large should support vision")
	}
	if pipe.Supports("open-mistral-7b", pipes.FeatureTools) {
		t.Error("open-mistral-7b should not advertise tools")
	}
	if !pipe.Supports("mistral-future-model", pipes.FeatureTools) {
		t.Error("unknown models should conservatively allow tools")
	}
	if pipe.Supports("mistral-future-model", pipes.FeatureVision) {
		t.Error("unknown models should not allow vision")
	}
}
