// Package google adapts Google's Gemini generateContent API.
package google

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/observability"
	"github.com/chatpipe/chatpipe/pipes"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	providerName = "google"

	// defaultModel is used when the request carries no model ID.
	defaultModel = "gemini-2.5-flash"

	// maxImageBytes keeps each inline image well under Gemini's 20 MB
	// total-request ceiling.
	maxImageBytes = 15 * 1024 * 1024
)

// Pipe implements [pipes.StreamPipe] for Google Gemini. Use [New] to
// construct a ready-to-use instance.
type Pipe struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a Pipe initialized from environment variables. It reads
// GEMINI_API_KEY for authentication and GEMINI_API_BASE_URL for the endpoint
// base (defaulting to Google's generative language API when unset).
func New() *Pipe {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Pipe{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key and returns the pipe so calls can be chained.
// It overrides the value read from GEMINI_API_KEY.
func (p *Pipe) WithAPIKey(apiKey string) *Pipe {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL and returns the pipe so calls can
// be chained. Use this when targeting a proxy or local testing endpoint.
func (p *Pipe) WithBaseURL(baseURL string) *Pipe {
	p.baseURL = baseURL
	return p
}

// WithHTTPClient replaces the default [http.Client] used for API calls.
func (p *Pipe) WithHTTPClient(httpClient *http.Client) *Pipe {
	p.client = httpClient
	return p
}

// buildHeaders returns Gemini's authentication header. The generative
// language API uses x-goog-api-key instead of a Bearer token.
func (p *Pipe) buildHeaders() []utils.HeaderOption {
	return []utils.HeaderOption{
		{Key: "x-goog-api-key", Value: p.apiKey},
	}
}

// Complete implements [pipes.Pipe].
func (p *Pipe) Complete(ctx context.Context, request pipes.ChatRequest) (*pipes.ChatResult, error) {
	p.annotateSpan(ctx, request, false)

	model, wireReq, err := p.buildRequest(request)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)

	// Empty apiKey so DoPostSync does not inject a Bearer token; Gemini
	// authenticates via x-goog-api-key in buildHeaders.
	_, response, err := utils.DoPostSync[generateContentResponse](ctx, p.client, providerName, url, "", wireReq, p.buildHeaders()...)
	if err != nil {
		return nil, err
	}

	result := googleToResult(response)
	if result.Model == "" {
		result.Model = model
	}
	return result, nil
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
