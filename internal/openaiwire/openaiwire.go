// Package openaiwire models the OpenAI-compatible /chat/completions wire
// format shared by Mistral, DeepSeek, Perplexity, x.AI and Z.AI. Each pipe
// builds a base request with BuildRequest, sets its provider-specific fields,
// and converts responses back with ToResult or the streaming helpers.
package openaiwire

import (
	"encoding/base64"
	"encoding/json"
)

// ContentPart is a multimodal content part of a chat message.
type ContentPart struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	ImageURL *ContentPartImage `json:"image_url,omitempty"`
}

// ContentPartImage carries an image URL or a base64 data URL.
type ContentPartImage struct {
	URL string `json:"url"`
}

// BuildDataURL formats base64 data into a data URL for inline image inputs.
func BuildDataURL(mimeType string, data []byte) string {
	if mimeType == "" || len(data) == 0 {
		return ""
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ChatRequest is the /chat/completions request body. Provider-specific
// extensions (top_k, safe_prompt, thinking, ...) are optional fields that
// only the pipe that owns them sets.
type ChatRequest struct {
	Model            string         `json:"model"`
	Messages         []Message      `json:"messages"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	Stream           *bool          `json:"stream,omitempty"`
	StreamOptions    *StreamOptions `json:"stream_options,omitempty"`
	Tools            []Tool         `json:"tools,omitempty"`
	ToolChoice       any            `json:"tool_choice,omitempty"`

	// Provider extensions
	TopK       *int            `json:"top_k,omitempty"`       // Perplexity
	MinTokens  *int            `json:"min_tokens,omitempty"`  // Mistral
	RandomSeed *int            `json:"random_seed,omitempty"` // Mistral
	SafePrompt *bool           `json:"safe_prompt,omitempty"` // Mistral
	Seed       *int            `json:"seed,omitempty"`        // DeepSeek, x.AI
	Thinking   *ThinkingConfig `json:"thinking,omitempty"`    // Z.AI
}

// ThinkingConfig toggles reasoning output on GLM models.
type ThinkingConfig struct {
	Type string `json:"type"` // "enabled" or "disabled"
}

// StreamOptions configures streaming behavior in the request.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// Message is a chat message on the wire. Content is a string or, for
// multimodal messages, a []ContentPart.
type Message struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

type Tool struct {
	Type     string       `json:"type"` // "function"
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // "function"
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ChatResponse is the non-streaming /chat/completions response body.
type ChatResponse struct {
	ID        string    `json:"id"`
	Object    string    `json:"object"`
	Created   int64     `json:"created"`
	Model     string    `json:"model"`
	Choices   []Choice  `json:"choices"`
	Usage     *Usage    `json:"usage,omitempty"`
	Citations []string  `json:"citations,omitempty"` // Perplexity
}

type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type ResponseMessage struct {
	Role             string     `json:"role"`
	Content          string     `json:"content,omitempty"`
	Reasoning        string     `json:"reasoning,omitempty"`
	ReasoningContent string     `json:"reasoning_content,omitempty"` // DeepSeek, Z.AI
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
}

type Usage struct {
	PromptTokens            int `json:"prompt_tokens"`
	CompletionTokens        int `json:"completion_tokens"`
	TotalTokens             int `json:"total_tokens"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens,omitempty"`
	} `json:"completion_tokens_details,omitempty"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens,omitempty"`
	} `json:"prompt_tokens_details,omitempty"`
}

/*
	STREAMING RESPONSE TYPES

	SSE chunks from /chat/completions with stream=true. Each chunk carries
	incremental deltas for content, reasoning, and tool calls; the final
	chunk carries usage when stream_options.include_usage is set.
*/

type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"` // "chat.completion.chunk"
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
}

type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// StreamDelta carries the incremental content for a streaming chunk. Content
// is a pointer to distinguish an empty-string delta from an absent field.
type StreamDelta struct {
	Role             string               `json:"role,omitempty"`
	Content          *string              `json:"content,omitempty"`
	Reasoning        *string              `json:"reasoning,omitempty"`
	ReasoningContent *string              `json:"reasoning_content,omitempty"`
	ToolCalls        []StreamToolCallPart `json:"tool_calls,omitempty"`
}

// StreamToolCallPart is an incremental tool call delta. The first chunk for a
// tool call carries the ID and function name; later chunks carry argument
// fragments.
type StreamToolCallPart struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// UnmarshalStreamChunk parses a raw SSE data payload into a StreamChunk.
func UnmarshalStreamChunk(data string) (*StreamChunk, error) {
	var chunk StreamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}
