package anthropic

import "encoding/json"

/*
	ANTHROPIC MESSAGES API - REQUEST TYPES
*/

// anthropicRequest represents the request body for Anthropic's Messages API.
type anthropicRequest struct {
	Model       string                   `json:"model"`
	Messages    []anthropicMessage       `json:"messages"`
	System      string                   `json:"system,omitempty"`
	MaxTokens   int                      `json:"max_tokens"` // Required by Anthropic on every request
	Temperature *float64                 `json:"temperature,omitempty"`
	TopP        *float64                 `json:"top_p,omitempty"`
	TopK        *int                     `json:"top_k,omitempty"`
	StopSeqs    []string                 `json:"stop_sequences,omitempty"`
	Tools       []anthropicTool          `json:"tools,omitempty"`
	Stream      bool                     `json:"stream,omitempty"`
	Thinking    *anthropicThinkingConfig `json:"thinking,omitempty"`
}

// anthropicThinkingConfig controls extended thinking on the request. Type is
// "enabled" with a fixed token budget, or "adaptive" to let the model decide.
type anthropicThinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"` // Only for type="enabled"
}

// anthropicMessage represents a single message in the conversation. Anthropic
// accepts only "user" and "assistant" roles here; system content goes in the
// top-level system field.
type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

// anthropicContentBlock is a discriminated union via the Type field:
//   - "text": Text
//   - "image": Source (base64 or url)
//   - "tool_use": ID, Name, Input
//   - "tool_result": ToolUseID, Content, IsError
//   - "thinking": Thinking
type anthropicContentBlock struct {
	Type      string           `json:"type"`
	Text      string           `json:"text,omitempty"`
	Source    *anthropicSource `json:"source,omitempty"`
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Input     json.RawMessage  `json:"input,omitempty"`
	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   json.RawMessage  `json:"content,omitempty"`
	IsError   bool             `json:"is_error,omitempty"`
	Thinking  string           `json:"thinking,omitempty"`
}

// anthropicSource represents a media source (base64 inline or URL reference).
type anthropicSource struct {
	Type      string `json:"type"`                 // "base64" or "url"
	MediaType string `json:"media_type,omitempty"` // MIME type (for base64)
	Data      string `json:"data,omitempty"`       // Base64-encoded data
	URL       string `json:"url,omitempty"`        // URL reference
}

// anthropicTool describes a tool/function available to the model.
type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"` // JSON Schema for tool input
}

/*
	ANTHROPIC MESSAGES API - RESPONSE TYPES
*/

// anthropicResponse represents the response from Anthropic's Messages API.
type anthropicResponse struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"` // "message"
	Role         string                 `json:"role"` // "assistant"
	Content      []responseContentBlock `json:"content"`
	Model        string                 `json:"model"`
	StopReason   string                 `json:"stop_reason"`
	StopSequence string                 `json:"stop_sequence,omitempty"`
	Usage        anthropicUsage         `json:"usage"`
}

// responseContentBlock represents a content block in the response. Unknown
// type values are silently ignored during conversion for forward-compatibility.
type responseContentBlock struct {
	Type     string          `json:"type"` // "text", "thinking", "tool_use"
	Text     string          `json:"text,omitempty"`
	Thinking string          `json:"thinking,omitempty"`
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
}

// anthropicUsage reports token consumption for a single request.
type anthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}
