// Package xai adapts x.AI's OpenAI-compatible Grok API. Chat models go
// through /chat/completions; grok-2-image-1212 goes through
// /images/generations and returns generated images on the result.
package xai

import (
	"context"
	"net/http"
	"os"

	"github.com/chatpipe/chatpipe/internal/openaiwire"
	"github.com/chatpipe/chatpipe/observability"
	"github.com/chatpipe/chatpipe/pipes"
)

const (
	defaultBaseURL          = "https://api.x.ai/v1"
	chatCompletionsEndpoint = "/chat/completions"
	imageGenerationEndpoint = "/images/generations"

	providerName = "xai"
	defaultModel = "grok-3"

	// maxImageBytes is x.AI's limit for inline image input on vision models.
	maxImageBytes = 20 * 1024 * 1024
)

// modelCatalog lists the Grok models this pipe advertises. Grok 4 accepts
// image input natively; Grok 2 Vision is the dedicated vision model of the
// previous generation.
var modelCatalog = pipes.Catalog{
	{ID: "grok-4-fast-reasoning", Name: "Grok 4 Fast (Reasoning)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning}},
	{ID: "grok-4-fast-non-reasoning", Name: "Grok 4 Fast (Non-Reasoning)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision}},
	{ID: "grok-4-0709", Name: "Grok 4 (0709)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning}},
	{ID: "grok-3", Name: "Grok 3", Features: []pipes.Feature{pipes.FeatureTools}},
	{ID: "grok-3-mini", Name: "Grok 3 Mini", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureReasoning}},
	{ID: "grok-2-vision-1212", Name: "Grok 2 Vision (1212)", Features: []pipes.Feature{pipes.FeatureVision}},
	{ID: "grok-2-1212", Name: "Grok 2 (1212)", Features: []pipes.Feature{pipes.FeatureTools}},
	{ID: "grok-code-fast-1", Name: "Grok Code Fast", Features: []pipes.Feature{pipes.FeatureTools}},
	{ID: "grok-2-image-1212", Name: "Grok 2 Image Generator (1212)", Features: []pipes.Feature{pipes.FeatureImageOutput}},
}

// Pipe implements [pipes.StreamPipe] for x.AI.
type Pipe struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a Pipe initialized from environment variables. It reads
// XAI_API_KEY for authentication and XAI_API_BASE_URL for the endpoint base
// (defaulting to https://api.x.ai/v1 when unset).
func New() *Pipe {
	baseURL := os.Getenv("XAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Pipe{
		apiKey:  os.Getenv("XAI_API_KEY"),
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

// Complete implements [pipes.Pipe]. Image-output models are routed to the
// image generation endpoint; everything else goes to chat completions.
func (p *Pipe) Complete(ctx context.Context, request pipes.ChatRequest) (*pipes.ChatResult, error) {
	p.annotateSpan(ctx, request, false)

	modelID := effectiveModel(request.Model)
	if modelCatalog.Supports(modelID, pipes.FeatureImageOutput) {
		return p.generateImage(ctx, modelID, request)
	}

	wireReq, err := p.buildRequest(request)
	if err != nil {
		return nil, err
	}

	return openaiwire.Complete(ctx, p.client, providerName, p.baseURL+chatCompletionsEndpoint, p.apiKey, wireReq)
}

// Stream implements [pipes.StreamPipe]. Image generation has no streaming
// form; those requests complete synchronously and are replayed as a
// single-chunk stream.
func (p *Pipe) Stream(ctx context.Context, request pipes.ChatRequest) (*pipes.ChatStream, error) {
	p.annotateSpan(ctx, request, true)

	modelID := effectiveModel(request.Model)
	if modelCatalog.Supports(modelID, pipes.FeatureImageOutput) {
		result, err := p.generateImage(ctx, modelID, request)
		if err != nil {
			return nil, err
		}
		return pipes.NewSingleChunkStream(result), nil
	}

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

func effectiveModel(modelID string) string {
	modelID = pipes.StripModelPrefix(modelID, providerName)
	if modelID == "" {
		modelID = defaultModel
	}
	return modelID
}

func (p *Pipe) buildRequest(request pipes.ChatRequest) (openaiwire.ChatRequest, error) {
	if p.apiKey == "" {
		return openaiwire.ChatRequest{}, pipes.NewConfigErrorf("XAI_API_KEY is not set")
	}

	request.Model = effectiveModel(request.Model)

	if err := modelCatalog.Validate(request); err != nil {
		return openaiwire.ChatRequest{}, err
	}

	return openaiwire.BuildRequest(request, openaiwire.BuildOptions{ImageMaxBytes: maxImageBytes})
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
