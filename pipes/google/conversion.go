package google

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chatpipe/chatpipe/internal/imaging"
	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

// googleSearchToolName is the reserved tool name that activates Gemini's
// built-in Google Search grounding instead of declaring a function.
const googleSearchToolName = "google_search"

// buildRequest maps the generic request onto Gemini's generateContent wire
// format and returns the resolved model ID (the URL embeds it). The host's
// "google." model prefix is stripped and the request is validated against
// the model catalog before anything touches the network.
func (p *Pipe) buildRequest(request pipes.ChatRequest) (string, generateContentRequest, error) {
	if p.apiKey == "" {
		return "", generateContentRequest{}, pipes.NewConfigErrorf("GEMINI_API_KEY is not set")
	}

	model := pipes.StripModelPrefix(request.Model, providerName)
	if model == "" {
		model = defaultModel
	}

	request.Model = model
	if err := modelCatalog.Validate(request); err != nil {
		return "", generateContentRequest{}, err
	}

	contents, system, err := buildContents(request.Messages)
	if err != nil {
		return "", generateContentRequest{}, err
	}

	wireReq := generateContentRequest{Contents: contents}
	if system != "" {
		wireReq.SystemInstruction = &systemInstruction{Parts: []part{{Text: system}}}
	}
	wireReq.GenerationConfig = buildGenerationConfig(request.Params)
	wireReq.Tools = buildTools(request.Tools)

	return model, wireReq, nil
}

// buildContents converts messages into Gemini turns. System text is lifted
// into the returned system string, assistants map to "model", and tool
// responses become user turns carrying a functionResponse part. Images
// repeated across turns are deduplicated by content hash so only the first
// occurrence counts toward the request size.
func buildContents(messages []pipes.Message) ([]content, string, error) {
	var contents []content
	var systemParts []string
	dedup := imaging.NewDeduper()

	for _, msg := range messages {
		switch msg.Role {
		case pipes.RoleSystem:
			if text := pipes.JoinTextParts(msg); text != "" {
				systemParts = append(systemParts, text)
			}

		case pipes.RoleUser:
			turn := content{Role: "user"}
			if len(msg.Parts) > 0 {
				parts, err := contentPartsToParts(msg.Parts, dedup)
				if err != nil {
					return nil, "", err
				}
				turn.Parts = parts
			} else {
				turn.Parts = []part{{Text: msg.Content}}
			}
			if len(turn.Parts) > 0 {
				contents = append(contents, turn)
			}

		case pipes.RoleAssistant:
			turn := content{Role: "model"}
			for _, call := range msg.ToolCalls {
				turn.Parts = append(turn.Parts, part{
					FunctionCall: &functionCall{
						Name: call.Function.Name,
						Args: json.RawMessage(call.Function.Arguments),
					},
				})
			}
			if msg.Content != "" {
				turn.Parts = append(turn.Parts, part{Text: msg.Content})
			}
			if len(turn.Parts) > 0 {
				contents = append(contents, turn)
			}

		case pipes.RoleTool:
			contents = append(contents, content{
				Role: "user",
				Parts: []part{{
					FunctionResponse: &functionResponse{
						Name:     msg.Name,
						Response: toolResponsePayload(msg.Content),
					},
				}},
			})
		}
	}

	return contents, strings.Join(systemParts, "\n\n"), nil
}

// contentPartsToParts converts multimodal parts. Inline image bytes are
// compressed to fit maxImageBytes and base64-encoded as inlineData; URI
// references become fileData untouched. Images already sent in an earlier
// turn of the same request are dropped.
func contentPartsToParts(contentParts []pipes.ContentPart, dedup *imaging.Deduper) ([]part, error) {
	var parts []part
	for _, contentPart := range contentParts {
		switch contentPart.Type {
		case pipes.ContentTypeText:
			parts = append(parts, part{Text: contentPart.Text})

		case pipes.ContentTypeImage:
			img := contentPart.Image
			if img == nil {
				continue
			}
			if dedup.Seen(img.Hash()) {
				continue
			}
			if img.URI != "" {
				parts = append(parts, part{FileData: &fileData{MimeType: img.MimeType, FileURI: img.URI}})
				continue
			}
			data, mimeType, err := imaging.Compress(img.Data, img.MimeType, imaging.DefaultPolicy(maxImageBytes))
			if err != nil {
				return nil, err
			}
			parts = append(parts, part{InlineData: &inlineData{
				MimeType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(data),
			}})
		}
	}
	return parts, nil
}

// toolResponsePayload returns the tool output as a JSON object. Gemini
// rejects bare strings here, so non-object output is wrapped.
func toolResponsePayload(content string) json.RawMessage {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	wrapped, _ := json.Marshal(map[string]string{"result": content})
	return wrapped
}

// buildGenerationConfig maps sampling parameters into Gemini's naming.
func buildGenerationConfig(params *pipes.GenerationParams) *generationConfig {
	if params == nil {
		return nil
	}

	config := &generationConfig{}
	if params.Temperature > 0 {
		config.Temperature = utils.Ptr(float64(params.Temperature))
	}
	if params.TopP > 0 {
		config.TopP = utils.Ptr(float64(params.TopP))
	}
	if params.TopK > 0 {
		config.TopK = utils.Ptr(params.TopK)
	}
	if params.MaxTokens > 0 {
		config.MaxOutputTokens = utils.Ptr(params.MaxTokens)
	}
	if len(params.Stop) > 0 {
		config.StopSequences = params.Stop
	}
	if params.PresencePenalty != 0 {
		config.PresencePenalty = utils.Ptr(float64(params.PresencePenalty))
	}
	if params.FrequencyPenalty != 0 {
		config.FrequencyPenalty = utils.Ptr(float64(params.FrequencyPenalty))
	}
	if params.IncludeThoughts || params.ThinkingBudget != nil {
		config.ThinkingConfig = &thinkingConfig{
			ThinkingBudget:  params.ThinkingBudget,
			IncludeThoughts: params.IncludeThoughts,
		}
	}

	if config.Temperature == nil && config.TopP == nil && config.TopK == nil &&
		config.MaxOutputTokens == nil && len(config.StopSequences) == 0 &&
		config.PresencePenalty == nil && config.FrequencyPenalty == nil &&
		config.ThinkingConfig == nil {
		return nil
	}
	return config
}

// buildTools converts tool descriptions into Gemini tool declarations. The
// reserved google_search name activates built-in search grounding; all other
// names become function declarations grouped under one tool entry.
func buildTools(descriptions []pipes.ToolDescription) []tool {
	var result []tool
	var declarations []functionDeclaration

	for _, desc := range descriptions {
		if desc.Name == googleSearchToolName {
			result = append(result, tool{GoogleSearch: &googleSearchTool{}})
			continue
		}
		declarations = append(declarations, functionDeclaration{
			Name:        desc.Name,
			Description: desc.Description,
			Parameters:  desc.Parameters,
		})
	}

	if len(declarations) > 0 {
		result = append(result, tool{FunctionDeclarations: declarations})
	}
	return result
}

// googleToResult converts a generateContentResponse into the host format. A
// response with no candidates is an error unless the prompt was blocked, in
// which case the block reason maps to content_filter.
func googleToResult(response *generateContentResponse) *pipes.ChatResult {
	result := &pipes.ChatResult{
		Id:    responseIDOrFallback(response.ResponseID),
		Model: response.ModelVersion,
	}

	if len(response.Candidates) == 0 {
		result.FinishReason = "error"
		if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
			result.FinishReason = "content_filter"
			result.Content = response.PromptFeedback.BlockReason
		}
		return result
	}

	first := response.Candidates[0]
	result.FinishReason = mapFinishReason(first.FinishReason)

	if first.Content != nil {
		var textParts []string
		var reasoningParts []string

		for _, p := range first.Content.Parts {
			if p.Text != "" {
				if p.Thought {
					reasoningParts = append(reasoningParts, p.Text)
				} else {
					textParts = append(textParts, p.Text)
				}
			}
			if p.FunctionCall != nil {
				result.ToolCalls = append(result.ToolCalls, pipes.ToolCall{
					ID:   fmt.Sprintf("call_%d", len(result.ToolCalls)),
					Type: "function",
					Function: pipes.ToolCallFunction{
						Name:      p.FunctionCall.Name,
						Arguments: string(p.FunctionCall.Args),
					},
				})
			}
			if p.InlineData != nil {
				result.Images = append(result.Images, pipes.ImageData{
					MimeType: p.InlineData.MimeType,
					Data:     p.InlineData.Data,
				})
			}
		}

		result.Content = strings.Join(textParts, "\n")
		result.Reasoning = strings.Join(reasoningParts, "\n")
	}

	if len(result.ToolCalls) > 0 && result.FinishReason == "stop" {
		result.FinishReason = "tool_calls"
	}

	if first.GroundingMetadata != nil {
		for _, chunk := range first.GroundingMetadata.GroundingChunks {
			if chunk.Web != nil && chunk.Web.URI != "" {
				result.Citations = append(result.Citations, chunk.Web.URI)
			}
		}
	}

	if response.UsageMetadata != nil {
		result.Usage = usageToGeneric(response.UsageMetadata)
	}

	return result
}

func usageToGeneric(usage *usageMetadata) *pipes.Usage {
	return &pipes.Usage{
		PromptTokens:     usage.PromptTokenCount,
		CompletionTokens: usage.CandidatesTokenCount,
		TotalTokens:      usage.TotalTokenCount,
		ReasoningTokens:  usage.ThoughtsTokenCount,
		CachedTokens:     usage.CachedContentTokenCount,
	}
}

// mapFinishReason converts Gemini finish reasons to the host vocabulary.
func mapFinishReason(reason string) string {
	switch reason {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT":
		return "content_filter"
	default:
		return "stop"
	}
}

// responseIDOrFallback returns the response ID when present, or a generated
// fallback value since Gemini responses frequently omit one.
func responseIDOrFallback(id string) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("google-%d", time.Now().UnixNano())
}
