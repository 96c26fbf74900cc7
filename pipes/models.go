package pipes

import "encoding/json"

/*
	##### HOST INPUT #####
*/

// ChatRequest represents a chat completion request coming from the host.
type ChatRequest struct {
	Model    string            `json:"model,omitempty"` // Model identifier (host model prefix already stripped, see StripModelPrefix)
	Messages []Message         `json:"messages"`        // Full conversation, system messages included
	Tools    []ToolDescription `json:"tools,omitempty"` // Tool definitions, if the host exposes any
	Params   *GenerationParams `json:"params,omitempty"`
}

// Message represents a single message in a conversation. A message carries
// either a plain-text Content or an ordered list of Parts (text and images);
// when Parts is non-empty it takes precedence over Content.
type Message struct {
	Role    MessageRole   `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []ContentPart `json:"parts,omitempty"`

	// Tool calling fields
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // For role=assistant requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // For role=tool, links to the call being answered
	Name       string     `json:"name,omitempty"`         // For role=tool, name of the tool

	// Reasoning carries chain-of-thought content from a prior assistant turn.
	// Pipes that support thinking round-trip it; others drop it.
	Reasoning string `json:"reasoning,omitempty"`
}

// ToolDescription describes a tool the model may call. Parameters is an
// opaque JSON Schema document passed through to the provider unchanged.
type ToolDescription struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// GenerationParams is a flat record of sampling parameters. Zero values mean
// "use the provider default" and are omitted from the outbound request.
type GenerationParams struct {
	Temperature      float32  `json:"temperature,omitempty"`       // Sampling temperature. Higher => more random.
	TopP             float32  `json:"top_p,omitempty"`             // Nucleus sampling [0..1]
	TopK             int      `json:"top_k,omitempty"`             // Top-k sampling (Perplexity, Google)
	MaxTokens        int      `json:"max_tokens,omitempty"`        // Cap on generated tokens
	Stop             []string `json:"stop,omitempty"`              // Stop sequences
	FrequencyPenalty float32  `json:"frequency_penalty,omitempty"` // Positive values reduce repetition
	PresencePenalty  float32  `json:"presence_penalty,omitempty"`  // Positive values encourage new topics
	Seed             int      `json:"seed,omitempty"`              // Deterministic sampling seed where supported

	// Stream records the host's streaming preference. The pipe method used
	// (Complete vs Stream) is authoritative; this flag is informational.
	Stream bool `json:"stream,omitempty"`

	// Thinking/reasoning configuration. IncludeThoughts opts in to reasoning
	// output; ThinkingBudget limits reasoning tokens where the provider
	// supports a budget (nil means provider default).
	IncludeThoughts bool `json:"include_thoughts,omitempty"`
	ThinkingBudget  *int `json:"thinking_budget,omitempty"`
}

/*
	##### HOST OUTPUT #####
*/

// Usage reports token consumption for one completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Extended token metrics
	ReasoningTokens int `json:"reasoning_tokens,omitempty"` // Tokens spent on thinking/reasoning
	CachedTokens    int `json:"cached_tokens,omitempty"`    // Prompt tokens served from cache
}

// ChatResult represents one completed chat response in host format.
type ChatResult struct {
	Id           string      `json:"id"`
	Model        string      `json:"model"`
	Content      string      `json:"content"`
	Reasoning    string      `json:"reasoning,omitempty"` // Chain-of-thought output, when requested
	Citations    []string    `json:"citations,omitempty"` // Source URLs (Perplexity)
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	Images       []ImageData `json:"images,omitempty"` // Generated images (image-output models)
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *Usage      `json:"usage,omitempty"`
}

// ImageData is an image produced by the model, either inline base64 or by URL.
type ImageData struct {
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"` // Base64-encoded bytes
	URL      string `json:"url,omitempty"`
}

/*
	##### ENUMS #####
*/

// ToolCall represents a function/tool call requested by the model.
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// MessageRole represents the role of a message; compatible with string.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model response
	RoleTool      MessageRole = "tool"      // Tool/function output
)
