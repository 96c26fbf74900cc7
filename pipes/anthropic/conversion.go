package anthropic

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

// buildRequest converts a generic chat request into an anthropicRequest ready
// to POST to the Messages API. System messages are lifted out of the turn
// list into the top-level system field, consecutive tool results are merged
// into a single user message, and inline images are compressed under
// Anthropic's per-image byte limit.
func (p *Pipe) buildRequest(request pipes.ChatRequest) (anthropicRequest, error) {
	if p.apiKey == "" {
		return anthropicRequest{}, pipes.NewConfigErrorf("ANTHROPIC_API_KEY is not set")
	}

	request.Model = pipes.StripModelPrefix(request.Model, providerName)
	if request.Model == "" {
		request.Model = defaultModel
	}

	if err := modelCatalog.Validate(request); err != nil {
		return anthropicRequest{}, err
	}

	messages, system, err := buildMessages(request.Messages)
	if err != nil {
		return anthropicRequest{}, err
	}

	wireReq := anthropicRequest{
		Model:    request.Model,
		Messages: messages,
		System:   system,
	}

	maxTokens := defaultMaxTokens
	if params := request.Params; params != nil {
		if params.Temperature > 0 {
			wireReq.Temperature = utils.Ptr(float64(params.Temperature))
		}
		if params.TopP > 0 {
			wireReq.TopP = utils.Ptr(float64(params.TopP))
		}
		if params.TopK > 0 {
			wireReq.TopK = utils.Ptr(params.TopK)
		}
		if params.MaxTokens > 0 {
			maxTokens = params.MaxTokens
		}
		if len(params.Stop) > 0 {
			wireReq.StopSeqs = params.Stop
		}
		if params.IncludeThoughts || params.ThinkingBudget != nil {
			wireReq.Thinking = buildThinkingConfig(params.ThinkingBudget)
		}
	}
	wireReq.MaxTokens = maxTokens

	for _, tool := range request.Tools {
		toolEntry := anthropicTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Parameters,
		}
		if len(toolEntry.InputSchema) == 0 {
			// Anthropic requires input_schema; send an empty object schema
			// when no parameters are defined so the request remains valid.
			toolEntry.InputSchema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		wireReq.Tools = append(wireReq.Tools, toolEntry)
	}

	return wireReq, nil
}

// buildThinkingConfig constructs the thinking field from the optional budget:
// nil or -1 means adaptive (model decides), a positive value fixes the
// budget, and an explicit 0 disables thinking.
func buildThinkingConfig(budget *int) *anthropicThinkingConfig {
	if budget == nil || *budget == -1 {
		return &anthropicThinkingConfig{Type: "adaptive"}
	}
	if *budget == 0 {
		return nil
	}
	return &anthropicThinkingConfig{
		Type:         "enabled",
		BudgetTokens: *budget,
	}
}

// buildMessages converts generic messages into Anthropic message objects and
// extracts system content. Anthropic requires strictly alternating
// user/assistant turns: consecutive tool-result messages are merged into a
// single user message with multiple tool_result blocks, and system messages
// are concatenated into the returned system string.
func buildMessages(messages []pipes.Message) ([]anthropicMessage, string, error) {
	var result []anthropicMessage
	var systemParts []string
	imageCount := 0

	for _, msg := range messages {
		switch msg.Role {
		case pipes.RoleSystem:
			if text := pipes.JoinTextParts(msg); text != "" {
				systemParts = append(systemParts, text)
			}

		case pipes.RoleUser:
			userMsg := anthropicMessage{Role: "user"}
			if len(msg.Parts) > 0 {
				blocks, err := contentPartsToBlocks(msg.Parts, &imageCount)
				if err != nil {
					return nil, "", err
				}
				userMsg.Content = blocks
			} else {
				userMsg.Content = []anthropicContentBlock{{Type: "text", Text: msg.Content}}
			}
			result = append(result, userMsg)

		case pipes.RoleAssistant:
			assistantMsg := anthropicMessage{Role: "assistant"}

			// Thinking blocks must come before any text or tool_use blocks.
			if msg.Reasoning != "" {
				assistantMsg.Content = append(assistantMsg.Content, anthropicContentBlock{
					Type:     "thinking",
					Thinking: msg.Reasoning,
				})
			}

			for _, toolCall := range msg.ToolCalls {
				assistantMsg.Content = append(assistantMsg.Content, anthropicContentBlock{
					Type:  "tool_use",
					ID:    toolCall.ID,
					Name:  toolCall.Function.Name,
					Input: json.RawMessage(toolCall.Function.Arguments),
				})
			}

			if len(msg.Parts) > 0 {
				blocks, err := contentPartsToBlocks(msg.Parts, &imageCount)
				if err != nil {
					return nil, "", err
				}
				assistantMsg.Content = append(assistantMsg.Content, blocks...)
			} else if msg.Content != "" {
				assistantMsg.Content = append(assistantMsg.Content, anthropicContentBlock{
					Type: "text",
					Text: msg.Content,
				})
			}

			if len(assistantMsg.Content) > 0 {
				result = append(result, assistantMsg)
			}

		case pipes.RoleTool:
			toolResultContent, err := json.Marshal(msg.Content)
			if err != nil {
				toolResultContent = []byte(`"` + msg.Content + `"`)
			}

			toolResultBlock := anthropicContentBlock{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   toolResultContent,
			}

			// Anthropic forbids two consecutive user turns, so multiple tool
			// responses must be combined into one message.
			if len(result) > 0 && isAllToolResults(result[len(result)-1]) {
				result[len(result)-1].Content = append(result[len(result)-1].Content, toolResultBlock)
			} else {
				result = append(result, anthropicMessage{
					Role:    "user",
					Content: []anthropicContentBlock{toolResultBlock},
				})
			}
		}
	}

	return result, strings.Join(systemParts, "\n\n"), nil
}

// isAllToolResults identifies the last message as a mergeable tool-result
// turn so consecutive tool messages can be combined.
func isAllToolResults(msg anthropicMessage) bool {
	if msg.Role != "user" || len(msg.Content) == 0 {
		return false
	}
	for _, block := range msg.Content {
		if block.Type != "tool_result" {
			return false
		}
	}
	return true
}

// contentPartsToBlocks converts generic content parts into Anthropic content
// blocks, compressing inline images under the per-image byte limit.
func contentPartsToBlocks(parts []pipes.ContentPart, imageCount *int) ([]anthropicContentBlock, error) {
	var blocks []anthropicContentBlock

	for _, part := range parts {
		switch part.Type {
		case pipes.ContentTypeText:
			blocks = append(blocks, anthropicContentBlock{Type: "text", Text: part.Text})

		case pipes.ContentTypeImage:
			if part.Image == nil {
				continue
			}
			*imageCount++
			if *imageCount > maxImagesPerRequest {
				return nil, pipes.NewConfigErrorf("request exceeds %d images", maxImagesPerRequest)
			}

			block := anthropicContentBlock{Type: "image"}
			if part.Image.URI != "" {
				block.Source = &anthropicSource{Type: "url", URL: part.Image.URI}
			} else {
				data, mimeType, err := imaging.Compress(part.Image.Data, part.Image.MimeType, imaging.DefaultPolicy(maxImageBytes))
				if err != nil {
					return nil, err
				}
				block.Source = &anthropicSource{
					Type:      "base64",
					MediaType: mimeType,
					Data:      base64.StdEncoding.EncodeToString(data),
				}
			}
			blocks = append(blocks, block)
		}
	}

	return blocks, nil
}

// anthropicToResult converts a Messages API response to the generic result.
// Multiple text blocks are joined with newlines into a single Content string;
// thinking blocks are similarly joined into Reasoning. Unknown block types
// are skipped for forward-compatibility.
func anthropicToResult(response *anthropicResponse) *pipes.ChatResult {
	result := &pipes.ChatResult{
		Id:    responseIDOrFallback(response.ID),
		Model: response.Model,
	}

	var textParts []string
	var reasoningParts []string

	for _, block := range response.Content {
		switch block.Type {
		case "text":
			textParts = append(textParts, block.Text)

		case "thinking":
			reasoningParts = append(reasoningParts, block.Thinking)

		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, pipes.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: pipes.ToolCallFunction{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}

	result.Content = strings.Join(textParts, "\n")
	result.Reasoning = strings.Join(reasoningParts, "\n")
	result.FinishReason = mapStopReason(response.StopReason)

	// Cache counters are sub-counts of input tokens, surfaced via CachedTokens.
	result.Usage = &pipes.Usage{
		PromptTokens:     response.Usage.InputTokens,
		CompletionTokens: response.Usage.OutputTokens,
		TotalTokens:      response.Usage.InputTokens + response.Usage.OutputTokens,
		CachedTokens:     response.Usage.CacheCreationInputTokens + response.Usage.CacheReadInputTokens,
	}

	return result
}

// mapStopReason converts an Anthropic stop_reason value to the canonical
// finish reason string.
func mapStopReason(stopReason string) string {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	default:
		return "stop"
	}
}

// responseIDOrFallback returns the response ID when present, or a generated
// fallback value for partial responses whose early chunks carry no ID.
func responseIDOrFallback(id string) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("anthropic-%d", time.Now().UnixNano())
}
