// Package anthropic adapts Anthropic's Messages API. Unlike the
// OpenAI-compatible providers it authenticates via x-api-key, requires
// max_tokens on every request, keeps system content in a dedicated top-level
// field, and enforces strictly alternating user/assistant turns.
package anthropic

import (
	"context"
	"net/http"
	"os"

	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/observability"
	"github.com/chatpipe/chatpipe/pipes"
)

const (
	// defaultBaseURL is the canonical base URL for Anthropic's Messages API.
	defaultBaseURL = "https://api.anthropic.com/v1"

	// messagesEndpoint is the path for the Messages API endpoint.
	messagesEndpoint = "/messages"

	// anthropicVersion is the required anthropic-version header value.
	// Anthropic uses this to version-lock response formats independently of the URL.
	anthropicVersion = "2023-06-01"

	providerName = "anthropic"
	defaultModel = "claude-sonnet-4-5"

	// defaultMaxTokens is applied when the request carries no token limit,
	// since Anthropic rejects requests without max_tokens.
	defaultMaxTokens = 4096

	// maxImageBytes is Anthropic's per-image limit for base64 source blocks.
	maxImageBytes = 5 * 1024 * 1024

	// maxImagesPerRequest is Anthropic's documented cap on image blocks.
	maxImagesPerRequest = 100
)

// Pipe implements [pipes.StreamPipe] for Anthropic's Messages API.
type Pipe struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a Pipe initialized from environment variables. It reads
// ANTHROPIC_API_KEY for authentication and ANTHROPIC_API_BASE_URL for the
// endpoint base (defaulting to https://api.anthropic.com/v1 when unset).
func New() *Pipe {
	baseURL := os.Getenv("ANTHROPIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Pipe{
		apiKey:  os.Getenv("ANTHROPIC_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key and returns the pipe so calls can be chained.
// It overrides the value read from ANTHROPIC_API_KEY.
func (p *Pipe) WithAPIKey(apiKey string) *Pipe {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL and returns the pipe so calls can be
// chained. Use this when targeting a proxy or local testing endpoint.
func (p *Pipe) WithBaseURL(baseURL string) *Pipe {
	p.baseURL = baseURL
	return p
}

// WithHTTPClient replaces the default [http.Client] used for API calls.
func (p *Pipe) WithHTTPClient(httpClient *http.Client) *Pipe {
	p.client = httpClient
	return p
}

// buildHeaders constructs the HTTP headers required for every Anthropic
// request. x-api-key carries the credential (Anthropic does not use Bearer
// tokens) and anthropic-version pins the wire format.
func (p *Pipe) buildHeaders() []utils.HeaderOption {
	return []utils.HeaderOption{
		{Key: "x-api-key", Value: p.apiKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}
}

// Complete implements [pipes.Pipe].
func (p *Pipe) Complete(ctx context.Context, request pipes.ChatRequest) (*pipes.ChatResult, error) {
	p.annotateSpan(ctx, request, false)

	wireReq, err := p.buildRequest(request)
	if err != nil {
		return nil, err
	}

	// Empty apiKey argument so DoPostSync does not inject a Bearer token;
	// Anthropic authenticates via x-api-key in buildHeaders.
	_, wireResp, err := utils.DoPostSync[anthropicResponse](ctx, p.client, providerName, p.baseURL+messagesEndpoint, "", wireReq, p.buildHeaders()...)
	if err != nil {
		return nil, err
	}

	return anthropicToResult(wireResp), nil
}

// Models implements [pipes.Pipe].
func (p *Pipe) Models() []pipes.ModelInfo {
	return modelCatalog
}

// Supports implements [pipes.Pipe].
func (p *Pipe) Supports(modelID string, feature pipes.Feature) bool {
	return modelCatalog.Supports(pipes.StripModelPrefix(modelID, providerName), feature)
}

func (p *Pipe) annotateSpan(ctx context.Context, request pipes.ChatRequest, streaming bool) {
	span := observability.SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.AddEvent(observability.EventRequestStart)
	span.SetAttributes(
		observability.String(observability.AttrPipeProvider, providerName),
		observability.String(observability.AttrPipeEndpoint, p.baseURL),
		observability.String(observability.AttrPipeModel, request.Model),
		observability.Bool(observability.AttrPipeStreaming, streaming),
		observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
	)
}

var _ pipes.StreamPipe = (*Pipe)(nil)
