package anthropic

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

func TestComplete_HeadersAndResponseMapping(t *testing.T) {
	var gotAPIKey, gotVersion, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type":"text","text":"Hello!"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`)
	}))
	defer server.Close()

	pipe := New().WithAPIKey("sk-ant-test").WithBaseURL(server.URL)
	result, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Model:    "anthropic.claude-sonnet-4-5",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if gotAPIKey != "sk-ant-test" {
		t.Errorf("expected x-api-key header, got %q", gotAPIKey)
	}
	if gotVersion != anthropicVersion {
		t.Errorf("expected anthropic-version %q, got %q", anthropicVersion, gotVersion)
	}
	if gotAuth != "" {
		t.Errorf("expected no Authorization header, got %q", gotAuth)
	}
	if result.Content != "Hello!" {
		t.Errorf("unexpected content: %q", result.Content)
	}
	if result.FinishReason != "stop" {
		t.Errorf("expected end_turn mapped to stop, got %q", result.FinishReason)
	}
	if result.Usage.TotalTokens != 16 {
		t.Errorf("expected total tokens 16, got %d", result.Usage.TotalTokens)
	}
}

func TestBuildRequest_SystemMessagesLifted(t *testing.T) {
	pipe := New().WithAPIKey("key")
	wireReq, err := pipe.buildRequest(pipes.ChatRequest{
		Model: "claude-sonnet-4-5",
		Messages: []pipes.Message{
			{Role: pipes.RoleSystem, Content: "be terse"},
			{Role: pipes.RoleUser, Content: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("buildRequest returned error: %v", err)
	}

	if wireReq.System != "be terse" {
		t.Errorf("expected system lifted to top-level field, got %q", wireReq.System)
	}
	if len(wireReq.Messages) != 1 {
		t.Fatalf("expected system message removed from turns, got %d messages", len(wireReq.Messages))
	}
	if wireReq.Messages[0].Role != "user" {
		t.Errorf("expected remaining turn to be user, got %q", wireReq.Messages[0].Role)
	}
	if wireReq.MaxTokens != defaultMaxTokens {
		t.Errorf("expected default max_tokens %d, got %d", defaultMaxTokens, wireReq.MaxTokens)
	}
}

func TestBuildRequest_ConsecutiveToolResults_MergedIntoOneUserTurn(t *testing.T) {
	pipe := New().WithAPIKey("key")
	wireReq, err := pipe.buildRequest(pipes.ChatRequest{
		Model: "claude-sonnet-4-5",
		Messages: []pipes.Message{
			{Role: pipes.RoleUser, Content: "weather in two cities"},
			{Role: pipes.RoleAssistant, ToolCalls: []pipes.ToolCall{
				{ID: "call-1", Type: "function", Function: pipes.ToolCallFunction{Name: "get_weather", Arguments: `{"city":"Paris"}`}},
				{ID: "call-2", Type: "function", Function: pipes.ToolCallFunction{Name: "get_weather", Arguments: `{"city":"Rome"}`}},
			}},
			{Role: pipes.RoleTool, ToolCallID: "call-1", Content: "rainy"},
			{Role: pipes.RoleTool, ToolCallID: "call-2", Content: "sunny"},
		},
	})
	if err != nil {
		t.Fatalf("buildRequest returned error: %v", err)
	}

	if len(wireReq.Messages) != 3 {
		t.Fatalf("expected 3 turns (user, assistant, merged tool results), got %d", len(wireReq.Messages))
	}
	merged := wireReq.Messages[2]
	if merged.Role != "user" {
		t.Errorf("expected tool results in a user turn, got %q", merged.Role)
	}
	if len(merged.Content) != 2 {
		t.Fatalf("expected 2 tool_result blocks merged, got %d", len(merged.Content))
	}
	for i, block := range merged.Content {
		if block.Type != "tool_result" {
			t.Errorf("block %d: expected tool_result, got %q", i, block.Type)
		}
	}
	if merged.Content[0].ToolUseID != "call-1" || merged.Content[1].ToolUseID != "call-2" {
		t.Error("expected tool_use_id preserved per block")
	}
}

func TestBuildRequest_InlineImageBecomesBase64Source(t *testing.T) {
	pipe := New().WithAPIKey("key")
	wireReq, err := pipe.buildRequest(pipes.ChatRequest{
		Model: "claude-sonnet-4-5",
		Messages: []pipes.Message{{
			Role: pipes.RoleUser,
			Parts: []pipes.ContentPart{
				pipes.TextPart("what is this?"),
				pipes.ImagePartOf([]byte{0x89, 0x50, 0x4e, 0x47}, "image/png"),
			},
		}},
	})
	if err != nil {
		t.Fatalf("buildRequest returned error: %v", err)
	}

	blocks := wireReq.Messages[0].Content
	if len(blocks) != 2 {
		t.Fatalf("expected 2 content blocks, got %d", len(blocks))
	}
	img := blocks[1]
	if img.Type != "image" || img.Source == nil {
		t.Fatalf("expected image block with source, got %+v", img)
	}
	if img.Source.Type != "base64" || img.Source.MediaType != "image/png" || img.Source.Data == "" {
		t.Errorf("unexpected image source: %+v", img.Source)
	}
}

func TestBuildRequest_ThinkingBudgetMapping(t *testing.T) {
	pipe := New().WithAPIKey("key")

	budget := 2048
	wireReq, err := pipe.buildRequest(pipes.ChatRequest{
		Model:    "claude-sonnet-4-5",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "think"}},
		Params:   &pipes.GenerationParams{ThinkingBudget: &budget},
	})
	if err != nil {
		t.Fatalf("buildRequest returned error: %v", err)
	}
	if wireReq.Thinking == nil || wireReq.Thinking.Type != "enabled" || wireReq.Thinking.BudgetTokens != 2048 {
		t.Errorf("expected enabled thinking with budget, got %+v", wireReq.Thinking)
	}

	wireReq, err = pipe.buildRequest(pipes.ChatRequest{
		Model:    "claude-sonnet-4-5",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "think"}},
		Params:   &pipes.GenerationParams{IncludeThoughts: true},
	})
	if err != nil {
		t.Fatalf("buildRequest returned error: %v", err)
	}
	if wireReq.Thinking == nil || wireReq.Thinking.Type != "adaptive" {
		t.Errorf("expected adaptive thinking, got %+v", wireReq.Thinking)
	}
}

func TestBuildRequest_ReasoningOnNonReasoningModel_ConfigError(t *testing.T) {
	pipe := New().WithAPIKey("key")
	_, err := pipe.buildRequest(pipes.ChatRequest{
		Model:    "claude-3-5-haiku-latest",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "think"}},
		Params:   &pipes.GenerationParams{IncludeThoughts: true},
	})

	var configErr *pipes.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *pipes.ConfigError, got %v", err)
	}
}

func TestComplete_ToolUseResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "msg_02",
			"model": "claude-sonnet-4-5",
			"content": [
				{"type":"thinking","thinking":"I should check the weather."},
				{"type":"tool_use","id":"toolu_01","name":"get_weather","input":{"city":"Paris"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 30, "output_tokens": 10}
		}`)
	}))
	defer server.Close()

	pipe := New().WithAPIKey("key").WithBaseURL(server.URL)
	result, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Model:    "claude-sonnet-4-5",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "weather?"}},
		Tools:    []pipes.ToolDescription{{Name: "get_weather", Parameters: []byte(`{"type":"object"}`)}},
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if result.FinishReason != "tool_calls" {
		t.Errorf("expected tool_use mapped to tool_calls, got %q", result.FinishReason)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(result.ToolCalls[0].Function.Arguments), &args); err != nil {
		t.Fatalf("tool arguments are not valid JSON: %v", err)
	}
	if args["city"] != "Paris" {
		t.Errorf("unexpected arguments: %v", args)
	}
	if result.Reasoning != "I should check the weather." {
		t.Errorf("expected thinking surfaced as reasoning, got %q", result.Reasoning)
	}
}

func TestComplete_ProviderErrorVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type":"error","error":{"type":"rate_limit_error","message":"Number of requests has exceeded your rate limit"}}`)
	}))
	defer server.Close()

	pipe := New().WithAPIKey("key").WithBaseURL(server.URL)
	_, err := pipe.Complete(context.Background(), pipes.ChatRequest{
		Model:    "claude-sonnet-4-5",
		Messages: []pipes.Message{{Role: pipes.RoleUser, Content: "hi"}},
	})

	var providerErr *pipes.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *pipes.ProviderError, got %v", err)
	}
	if providerErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", providerErr.StatusCode)
	}
	if providerErr.Message != "Number of requests has exceeded your rate limit" {
		t.Errorf("expected provider message preserved verbatim, got %q", providerErr.Message)
	}
}
