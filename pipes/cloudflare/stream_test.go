package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatpipe/chatpipe/pipes"
)

func TestStream_RunModel_ResponseDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"response\":\"Once\"}\n\n")
		fmt.Fprint(w, "data: {\"response\":\" upon\"}\n\n")
		fmt.Fprint(w, "data: {\"response\":\" a time\",\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":4,\"total_tokens\":9}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	pipe := New().WithAPIToken("token").WithAccountID("acc").WithBaseURL(server.URL)
	stream, err := pipe.Stream(context.Background(), pipes.ChatRequest{
		Model:    "cf-llama-3.1-8b-instruct",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "tell a story"}},
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	var chunks []pipes.StreamChunk
	for chunk, iterErr := range stream.Iter() {
		if iterErr != nil {
			t.Fatalf("unexpected stream error: %v", iterErr)
		}
		chunks = append(chunks, chunk)
	}

	wantTypes := []pipes.ChunkType{pipes.ChunkContent, pipes.ChunkContent, pipes.ChunkContent, pipes.ChunkUsage, pipes.ChunkDone}
	if len(chunks) != len(wantTypes) {
		t.Fatalf("expected %d chunks, got %d: %+v", len(wantTypes), len(chunks), chunks)
	}
	for i, want := range wantTypes {
		if chunks[i].Type != want {
			t.Errorf("chunk %d: expected %s, got %s", i, want, chunks[i].Type)
		}
	}
	if got := chunks[0].Content + chunks[1].Content + chunks[2].Content; got != "Once upon a time" {
		t.Errorf("unexpected accumulated content: %q", got)
	}
	if chunks[3].Usage == nil || chunks[3].Usage.TotalTokens != 9 {
		t.Errorf("unexpected usage chunk: %+v", chunks[3].Usage)
	}
	if chunks[4].FinishReason != "stop" {
		t.Errorf("expected stop, got %q", chunks[4].FinishReason)
	}
}

func TestStream_GPTOSS_SingleChunkFallback(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{
			"id": "resp_02",
			"output": [{"type": "message", "content": [{"type": "output_text", "text": "streamed whole"}]}]
		}`)
	}))
	defer server.Close()

	pipe := New().WithAPIToken("token").WithAccountID("acc").WithBaseURL(server.URL)
	stream, err := pipe.Stream(context.Background(), pipes.ChatRequest{
		Model:    "cf-gpt-oss-20b",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Stream returned error: %v", err)
	}

	if gotPath != "/acc/ai/v1/responses" {
		t.Errorf("expected responses endpoint, got %q", gotPath)
	}

	result, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if result.Content != "streamed whole" {
		t.Errorf("unexpected content: %q", result.Content)
	}
}

func TestStream_MalformedChunk_StreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"response\":\"ok\"}\n\n")
		fmt.Fprint(w, "data: {not json\n\n")
	}))
	defer server.Close()

	pipe := New().WithAPIToken("token").WithAccountID("acc").WithBaseURL(server.URL)
	stream, err := pipe.Stream(context.Background(), pipes.ChatRequest{
		Model:    "cf-llama-3.2-3b-instruct",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "hi"}},
	})
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
