// Package mistral adapts Mistral AI's OpenAI-compatible chat completions API.
package mistral

import (
	"context"
	"net/http"
	"os"

	"github.com/chatpipe/chatpipe/internal/openaiwire"
	"github.com/chatpipe/chatpipe/observability"
	"github.com/chatpipe/chatpipe/pipes"
)

const (
	defaultBaseURL          = "https://api.mistral.ai/v1"
	chatCompletionsEndpoint = "/chat/completions"

	providerName = "mistral"

	// defaultModel is used when the request carries no model ID.
	defaultModel = "mistral-large-latest"

	// maxImageBytes is Mistral's per-image limit for inline base64 input.
	maxImageBytes = 10 * 1024 * 1024
)

// Pipe implements [pipes.StreamPipe] for Mistral. Use [New] to construct a
// ready-to-use instance.
type Pipe struct {
	apiKey  string
	baseURL string
	client  *http.Client

	// safePrompt injects Mistral's guardrail preamble into every request.
	safePrompt bool
}

// New returns a Pipe initialized from environment variables. It reads
// MISTRAL_API_KEY for authentication and MISTRAL_API_BASE_URL for the
// endpoint base (defaulting to https://api.mistral.ai/v1 when unset).
func New() *Pipe {
	baseURL := os.Getenv("MISTRAL_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Pipe{
		apiKey:  os.Getenv("MISTRAL_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key and returns the pipe so calls can be chained.
// It overrides the value read from MISTRAL_API_KEY.
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

// WithSafePrompt toggles Mistral's safe_prompt guardrail flag.
func (p *Pipe) WithSafePrompt(enabled bool) *Pipe {
	p.safePrompt = enabled
	return p
}

// Complete implements [pipes.Pipe].
func (p *Pipe) Complete(ctx context.Context, request pipes.ChatRequest) (*pipes.ChatResult, error) {
	p.annotateSpan(ctx, request, false)

	wireReq, err := p.buildRequest(request)
	if err != nil {
		return nil, err
	}

	return openaiwire.Complete(ctx, p.client, providerName, p.baseURL+chatCompletionsEndpoint, p.apiKey, wireReq)
}

// Stream implements [pipes.StreamPipe].
func (p *Pipe) Stream(ctx context.Context, request pipes.ChatRequest) (*pipes.ChatStream, error) {
	p.annotateSpan(ctx, request, true)

	wireReq, err := p.buildRequest(request)
	if err != nil {
		return nil, err
	}

	return openaiwire.Stream(ctx, p.client, providerName, p.baseURL+chatCompletionsEndpoint, p.apiKey, wireReq)
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
