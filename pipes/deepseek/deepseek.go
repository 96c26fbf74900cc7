// Package deepseek adapts DeepSeek's OpenAI-compatible chat completions API.
// The deepseek-reasoner model returns its chain of thought in the
// reasoning_content field, which this pipe surfaces as Reasoning.
package deepseek

import (
	"context"
	"net/http"
	"os"

	"github.com/chatpipe/chatpipe/internal/openaiwire"
	"github.com/chatpipe/chatpipe/observability"
	"github.com/chatpipe/chatpipe/pipes"
)

const (
	defaultBaseURL          = "https://api.deepseek.com/v1"
	chatCompletionsEndpoint = "/chat/completions"

	providerName = "deepseek"
	defaultModel = "deepseek-chat"
)

// modelCatalog lists the DeepSeek models this pipe advertises.
var modelCatalog = pipes.Catalog{
	{ID: "deepseek-chat", Name: "DeepSeek Chat (V3)", Features: []pipes.Feature{pipes.FeatureTools}},
	{ID: "deepseek-reasoner", Name: "DeepSeek Reasoner (R1)", Features: []pipes.Feature{pipes.FeatureReasoning}},
}

// Pipe implements [pipes.StreamPipe] for DeepSeek.
type Pipe struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a Pipe initialized from environment variables. It reads
// DEEPSEEK_API_KEY for authentication and DEEPSEEK_API_BASE_URL for the
// endpoint base (defaulting to https://api.deepseek.com/v1 when unset).
func New() *Pipe {
	baseURL := os.Getenv("DEEPSEEK_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Pipe{
		apiKey:  os.Getenv("DEEPSEEK_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key and returns the pipe so calls can be chained.
func (p *Pipe) WithAPIKey(apiKey string) *Pipe {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL and returns the pipe so calls can be
// chained.
func (p *Pipe) WithBaseURL(baseURL string) *Pipe {
	p.baseURL = baseURL
	return p
}

// WithHTTPClient replaces the default [http.Client] used for API calls.
func (p *Pipe) WithHTTPClient(httpClient *http.Client) *Pipe {
	p.client = httpClient
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

func (p *Pipe) buildRequest(request pipes.ChatRequest) (openaiwire.ChatRequest, error) {
	if p.apiKey == "" {
		return openaiwire.ChatRequest{}, pipes.NewConfigErrorf("DEEPSEEK_API_KEY is not set")
	}

	request.Model = pipes.StripModelPrefix(request.Model, providerName)
	if request.Model == "" {
		request.Model = defaultModel
	}

	if err := modelCatalog.Validate(request); err != nil {
		return openaiwire.ChatRequest{}, err
	}

	// DeepSeek models accept no image input at all.
	if pipes.HasImages(request.Messages) {
		return openaiwire.ChatRequest{}, pipes.NewConfigErrorf("model %q does not accept image input", request.Model)
	}

	return openaiwire.BuildRequest(request, openaiwire.BuildOptions{})
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
