// Package cloudflare adapts Cloudflare Workers AI. Two endpoint families are
// covered: most models run through {account}/ai/run/{model} with a messages
// array, while the GPT-OSS models use {account}/ai/v1/responses with a
// flattened input transcript.
package cloudflare

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/chatpipe/chatpipe/observability"
	"github.com/chatpipe/chatpipe/pipes"
)

const (
	defaultBaseURL = "https://api.cloudflare.com/client/v4/accounts"

	providerName = "cloudflare"

	// defaultModel is used when the request carries no model ID.
	defaultModel = "cf-llama-3.1-8b-instruct"
)

// Pipe implements [pipes.StreamPipe] for Cloudflare Workers AI. Unlike the
// other pipes it needs two credentials: the API token and the account ID the
// Workers AI deployment belongs to.
type Pipe struct {
	apiToken  string
	accountID string
	baseURL   string
	client    *http.Client
}

// New returns a Pipe initialized from environment variables. It reads
// CLOUDFLARE_API_TOKEN and CLOUDFLARE_ACCOUNT_ID for credentials and
// CLOUDFLARE_API_BASE_URL for the endpoint base (defaulting to Cloudflare's
// client v4 API when unset).
func New() *Pipe {
	baseURL := os.Getenv("CLOUDFLARE_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Pipe{
		apiToken:  os.Getenv("CLOUDFLARE_API_TOKEN"),
		accountID: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		baseURL:   baseURL,
		client:    &http.Client{},
	}
}

// WithAPIToken sets the API token and returns the pipe so calls can be
// chained. The token needs Workers AI read permission.
func (p *Pipe) WithAPIToken(apiToken string) *Pipe {
	p.apiToken = apiToken
	return p
}

// WithAccountID sets the Cloudflare account ID embedded in every request URL.
func (p *Pipe) WithAccountID(accountID string) *Pipe {
	p.accountID = accountID
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

// checkCredentials validates both credentials before any network call.
func (p *Pipe) checkCredentials() error {
	if p.apiToken == "" {
		return pipes.NewConfigErrorf("CLOUDFLARE_API_TOKEN is not set")
	}
	if p.accountID == "" {
		return pipes.NewConfigErrorf("CLOUDFLARE_ACCOUNT_ID is not set")
	}
	return nil
}

// runURL returns the endpoint for messages-array models.
func (p *Pipe) runURL(cfModel string) string {
	return fmt.Sprintf("%s/%s/ai/run/%s", p.baseURL, p.accountID, cfModel)
}

// responsesURL returns the endpoint for GPT-OSS models.
func (p *Pipe) responsesURL() string {
	return fmt.Sprintf("%s/%s/ai/v1/responses", p.baseURL, p.accountID)
}

// Complete implements [pipes.Pipe], routing to the endpoint family the
// resolved model belongs to.
func (p *Pipe) Complete(ctx context.Context, request pipes.ChatRequest) (*pipes.ChatResult, error) {
	p.annotateSpan(ctx, request, false)

	model, cfModel, err := p.resolveModel(request)
	if err != nil {
		return nil, err
	}
	request.Model = model

	if usesResponsesEndpoint(cfModel) {
		return p.completeResponses(ctx, request, cfModel)
	}
	return p.completeRun(ctx, request, cfModel)
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
