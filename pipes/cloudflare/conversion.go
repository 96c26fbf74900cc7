package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

// resolveModel strips the host prefix, applies the default, validates the
// request against the catalog, and returns both the host-facing model ID and
// the Workers AI model path.
func (p *Pipe) resolveModel(request pipes.ChatRequest) (string, string, error) {
	if err := p.checkCredentials(); err != nil {
		return "", "", err
	}

	model := pipes.StripModelPrefix(request.Model, providerName)
	if model == "" {
		model = defaultModel
	}

	request.Model = model
	if err := modelCatalog.Validate(request); err != nil {
		return "", "", err
	}

	return model, resolveCFModel(model), nil
}

// buildRunRequest maps the generic request onto the run endpoint's messages
// array. Multimodal parts are flattened to text; the capability gate has
// already rejected image input.
func buildRunRequest(request pipes.ChatRequest) runRequest {
	wireReq := runRequest{}
	for _, msg := range request.Messages {
		wireReq.Messages = append(wireReq.Messages, runMessage{
			Role:    string(msg.Role),
			Content: pipes.JoinTextParts(msg),
		})
	}

	if params := request.Params; params != nil {
		if params.Temperature > 0 {
			wireReq.Temperature = utils.Ptr(float64(params.Temperature))
		}
		if params.TopP > 0 {
			wireReq.TopP = utils.Ptr(float64(params.TopP))
		}
		if params.MaxTokens > 0 {
			wireReq.MaxTokens = utils.Ptr(params.MaxTokens)
		}
		if params.Seed != 0 {
			wireReq.Seed = utils.Ptr(params.Seed)
		}
	}

	return wireReq
}

// buildResponsesRequest maps the generic request onto the /responses
// endpoint, flattening the conversation into one labeled transcript.
func buildResponsesRequest(request pipes.ChatRequest, cfModel string) responsesRequest {
	wireReq := responsesRequest{
		Model: cfModel,
		Input: flattenTranscript(request.Messages),
	}

	if params := request.Params; params != nil {
		if params.Temperature > 0 {
			wireReq.Temperature = utils.Ptr(float64(params.Temperature))
		}
		if params.TopP > 0 {
			wireReq.TopP = utils.Ptr(float64(params.TopP))
		}
		if params.MaxTokens > 0 {
			wireReq.MaxOutputTokens = utils.Ptr(params.MaxTokens)
		}
	}

	return wireReq
}

// flattenTranscript joins the conversation into a single input string. A
// lone message passes through unlabeled; longer conversations get
// System:/User:/Assistant: labels separated by blank lines.
func flattenTranscript(messages []pipes.Message) string {
	if len(messages) == 0 {
		return ""
	}
	if len(messages) == 1 {
		return pipes.JoinTextParts(messages[0])
	}

	var parts []string
	for _, msg := range messages {
		text := pipes.JoinTextParts(msg)
		switch msg.Role {
		case pipes.RoleSystem:
			parts = append(parts, "System: "+text)
		case pipes.RoleAssistant:
			parts = append(parts, "Assistant: "+text)
		case pipes.RoleUser:
			parts = append(parts, "User: "+text)
		default:
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// completeRun performs a non-streaming call against the run endpoint.
func (p *Pipe) completeRun(ctx context.Context, request pipes.ChatRequest, cfModel string) (*pipes.ChatResult, error) {
	wireReq := buildRunRequest(request)

	_, envelope, err := utils.DoPostSync[runEnvelope](ctx, p.client, providerName, p.runURL(cfModel), p.apiToken, wireReq)
	if err != nil {
		return nil, err
	}

	if err := envelope.check(); err != nil {
		return nil, err
	}

	text, usage, err := decodeRunResult(envelope.Result)
	if err != nil {
		return nil, err
	}

	result := &pipes.ChatResult{
		Id:           fmt.Sprintf("cloudflare-%d", time.Now().UnixNano()),
		Model:        request.Model,
		Content:      text,
		FinishReason: "stop",
	}
	if usage != nil {
		result.Usage = &pipes.Usage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		}
	}
	return result, nil
}

// completeResponses performs a non-streaming call against the /responses
// endpoint used by GPT-OSS models.
func (p *Pipe) completeResponses(ctx context.Context, request pipes.ChatRequest, cfModel string) (*pipes.ChatResult, error) {
	wireReq := buildResponsesRequest(request, cfModel)

	_, envelope, err := utils.DoPostSync[responsesEnvelope](ctx, p.client, providerName, p.responsesURL(), p.apiToken, wireReq)
	if err != nil {
		return nil, err
	}

	result := &pipes.ChatResult{
		Id:           envelope.ID,
		Model:        request.Model,
		FinishReason: "stop",
	}
	if result.Id == "" {
		result.Id = fmt.Sprintf("cloudflare-%d", time.Now().UnixNano())
	}

	var textParts []string
	var reasoningParts []string
	for _, item := range envelope.Output {
		switch item.Type {
		case "message":
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					textParts = append(textParts, c.Text)
				}
			}
		case "reasoning":
			for _, c := range append(item.Summary, item.Content...) {
				if c.Text != "" {
					reasoningParts = append(reasoningParts, c.Text)
				}
			}
		}
	}
	result.Content = strings.Join(textParts, "\n")
	result.Reasoning = strings.Join(reasoningParts, "\n")

	if envelope.Usage != nil {
		result.Usage = &pipes.Usage{
			PromptTokens:     envelope.Usage.InputTokens,
			CompletionTokens: envelope.Usage.OutputTokens,
			TotalTokens:      envelope.Usage.TotalTokens,
		}
	}
	return result, nil
}

// check turns a success=false envelope into a *pipes.ProviderError. Cloudflare
// reports some failures with HTTP 200 and the error inside the envelope.
func (envelope *runEnvelope) check() error {
	if envelope.Success || len(envelope.Errors) == 0 {
		return nil
	}
	body, _ := json.Marshal(envelope.Errors)
	return &pipes.ProviderError{
		Provider:   providerName,
		StatusCode: http.StatusOK,
		Message:    envelope.Errors[0].Message,
		Body:       string(body),
	}
}

// decodeRunResult handles the two shapes the run endpoint produces: a bare
// JSON string or an object with a response field.
func decodeRunResult(raw json.RawMessage) (string, *wireUsage, error) {
	if len(raw) == 0 {
		return "", nil, fmt.Errorf("empty result in cloudflare response")
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil, nil
	}

	var result runResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", nil, fmt.Errorf("undecodable cloudflare result: %w", err)
	}
	return result.Response, result.Usage, nil
}
