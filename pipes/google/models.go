package google

import "encoding/json"

/*
	GEMINI API - REQUEST TYPES
*/

// generateContentRequest represents the request to Gemini's generateContent
// and streamGenerateContent endpoints.
type generateContentRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
	Tools             []tool             `json:"tools,omitempty"`
}

// systemInstruction carries system-role text outside the conversation turns.
type systemInstruction struct {
	Parts []part `json:"parts"`
}

// content is a single conversation turn. Gemini accepts "user" and "model"
// roles; tool responses travel as user turns with a functionResponse part.
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// part is a content part. Exactly one of the fields is set; Thought marks
// text parts that carry reasoning output rather than answer content.
type part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
	InlineData       *inlineData       `json:"inlineData,omitempty"`
	FileData         *fileData         `json:"fileData,omitempty"`
}

// inlineData is base64-encoded binary content (images).
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// fileData references media by URI instead of inlining it.
type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

// functionCall is a tool invocation emitted by the model.
type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// functionResponse answers a prior functionCall. Response must be a JSON
// object; plain-text tool output is wrapped before sending.
type functionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

// generationConfig carries sampling parameters in Gemini's naming.
type generationConfig struct {
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"topP,omitempty"`
	TopK             *int            `json:"topK,omitempty"`
	MaxOutputTokens  *int            `json:"maxOutputTokens,omitempty"`
	StopSequences    []string        `json:"stopSequences,omitempty"`
	PresencePenalty  *float64        `json:"presencePenalty,omitempty"`
	FrequencyPenalty *float64        `json:"frequencyPenalty,omitempty"`
	ThinkingConfig   *thinkingConfig `json:"thinkingConfig,omitempty"`
}

// thinkingConfig controls Gemini's reasoning output.
type thinkingConfig struct {
	ThinkingBudget  *int `json:"thinkingBudget,omitempty"`
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}

// tool holds either the built-in Google Search grounding tool or a batch of
// user-defined function declarations.
type tool struct {
	GoogleSearch         *googleSearchTool     `json:"googleSearch,omitempty"`
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations,omitempty"`
}

type googleSearchTool struct{}

// functionDeclaration describes one user-defined function.
type functionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

/*
	GEMINI API - RESPONSE TYPES
*/

// generateContentResponse is the response envelope. Streaming sends one of
// these per SSE event.
type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates,omitempty"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
	ResponseID     string          `json:"responseId,omitempty"`
}

// candidate is one generated answer. Only the first candidate is surfaced.
type candidate struct {
	Content           *content           `json:"content,omitempty"`
	FinishReason      string             `json:"finishReason,omitempty"`
	Index             int                `json:"index,omitempty"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

// promptFeedback reports why a prompt was rejected before generation.
type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// groundingMetadata carries Google Search grounding sources.
type groundingMetadata struct {
	GroundingChunks  []groundingChunk `json:"groundingChunks,omitempty"`
	WebSearchQueries []string         `json:"webSearchQueries,omitempty"`
}

type groundingChunk struct {
	Web *webChunk `json:"web,omitempty"`
}

type webChunk struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// usageMetadata reports token consumption.
type usageMetadata struct {
	PromptTokenCount        int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount    int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount         int `json:"totalTokenCount,omitempty"`
	ThoughtsTokenCount      int `json:"thoughtsTokenCount,omitempty"`
	CachedContentTokenCount int `json:"cachedContentTokenCount,omitempty"`
}
