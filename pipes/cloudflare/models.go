package cloudflare

import "encoding/json"

/*
	WORKERS AI /ai/run ENDPOINT
*/

// runRequest is the body for {account}/ai/run/{model}. These models take an
// OpenAI-style messages array directly.
type runRequest struct {
	Messages    []runMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
	MaxTokens   *int         `json:"max_tokens,omitempty"`
	Seed        *int         `json:"seed,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type runMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// runEnvelope is Cloudflare's standard API envelope. Result is kept raw
// because some models return {"response": "..."} objects and others return a
// bare string.
type runEnvelope struct {
	Result   json.RawMessage `json:"result"`
	Success  bool            `json:"success"`
	Errors   []apiError      `json:"errors,omitempty"`
	Messages []apiError      `json:"messages,omitempty"`
}

// runResult is the object form of a run endpoint result.
type runResult struct {
	Response string     `json:"response"`
	Usage    *wireUsage `json:"usage,omitempty"`
}

// apiError is one entry of Cloudflare's errors array.
type apiError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// wireUsage is the OpenAI-style usage block attached by the run endpoint.
type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// runStreamChunk is one SSE data payload from a streaming run request. The
// final chunk before [DONE] carries the usage block.
type runStreamChunk struct {
	Response string     `json:"response"`
	Usage    *wireUsage `json:"usage,omitempty"`
}

/*
	WORKERS AI /ai/v1/responses ENDPOINT (GPT-OSS)
*/

// responsesRequest is the body for {account}/ai/v1/responses. GPT-OSS models
// take a single flattened input transcript instead of a messages array.
type responsesRequest struct {
	Model           string   `json:"model"`
	Input           string   `json:"input"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
}

// responsesEnvelope is the /responses reply. The generated text sits inside
// an output array of typed items.
type responsesEnvelope struct {
	ID     string          `json:"id,omitempty"`
	Status string          `json:"status,omitempty"`
	Output []outputItem    `json:"output,omitempty"`
	Usage  *responsesUsage `json:"usage,omitempty"`
}

// outputItem is one element of the output array: "message" items carry the
// answer, "reasoning" items carry chain-of-thought summaries.
type outputItem struct {
	Type    string          `json:"type"`
	Content []outputContent `json:"content,omitempty"`
	Summary []outputContent `json:"summary,omitempty"`
}

// outputContent is a typed text fragment inside an output item.
type outputContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// responsesUsage is the usage block of the /responses endpoint, which names
// its counters differently from the run endpoint.
type responsesUsage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
	TotalTokens  int `json:"total_tokens,omitempty"`
}
