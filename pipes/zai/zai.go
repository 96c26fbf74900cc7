// Package zai adapts Z.AI's OpenAI-compatible GLM chat completions API.
// GLM reasoning models gate their chain of thought behind a request-level
// thinking toggle, which this pipe derives from the generation params.
package zai

import (
	"context"
	"net/http"
	"os"

	"github.com/chatpipe/chatpipe/internal/openaiwire"
	"github.com/chatpipe/chatpipe/observability"
	"github.com/chatpipe/chatpipe/pipes"
)

const (
	defaultBaseURL          = "https://open.bigmodel.cn/api/paas/v4"
	chatCompletionsEndpoint = "/chat/completions"

	providerName = "zai"
	defaultModel = "glm-4.6"

	// maxImageBytes is Z.AI's limit for inline image input on GLM-4.5V.
	maxImageBytes = 5 * 1024 * 1024
)

// modelCatalog lists the GLM models this pipe advertises.
var modelCatalog = pipes.Catalog{
	{ID: "glm-4.6", Name: "GLM-4.6", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureReasoning}},
	{ID: "glm-4.5", Name: "GLM-4.5", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureReasoning}},
	{ID: "glm-4.5-air", Name: "GLM-4.5 Air", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureReasoning}},
	{ID: "glm-4.5-flash", Name: "GLM-4.5 Flash", Features: []pipes.Feature{pipes.FeatureTools}},
	{ID: "glm-4.5v", Name: "GLM-4.5V", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning}},
	{ID: "glm-4-plus", Name: "GLM-4 Plus", Features: []pipes.Feature{pipes.FeatureTools}},
}

// Pipe implements [pipes.StreamPipe] for Z.AI.
type Pipe struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a Pipe initialized from environment variables. It reads
// ZAI_API_KEY for authentication and ZAI_API_BASE_URL for the endpoint base
// (defaulting to https://open.bigmodel.cn/api/paas/v4 when unset).
func New() *Pipe {
	baseURL := os.Getenv("ZAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Pipe{
		apiKey:  os.Getenv("ZAI_API_KEY"),
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
		return openaiwire.ChatRequest{}, pipes.NewConfigErrorf("ZAI_API_KEY is not set")
	}

	request.Model = pipes.StripModelPrefix(request.Model, providerName)
	if request.Model == "" {
		request.Model = defaultModel
	}

	if err := modelCatalog.Validate(request); err != nil {
		return openaiwire.ChatRequest{}, err
	}

	wireReq, err := openaiwire.BuildRequest(request, openaiwire.BuildOptions{ImageMaxBytes: maxImageBytes})
	if err != nil {
		return openaiwire.ChatRequest{}, err
	}

	// GLM reasoning models think by default; send an explicit toggle so the
	// caller's preference always wins.
	if modelCatalog.Supports(request.Model, pipes.FeatureReasoning) {
		thinking := "disabled"
		if request.Params != nil && request.Params.IncludeThoughts {
			thinking = "enabled"
		}
		wireReq.Thinking = &openaiwire.ThinkingConfig{Type: thinking}
	}

	return wireReq, nil
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
