package openaiwire

import (
	"strings"

	"github.com/chatpipe/chatpipe/pipes"
)

// ToResult converts a non-streaming chat completion response into the generic
// result. Reasoning is taken from the explicit reasoning fields when present,
// falling back to <think> tags embedded in the content (DeepSeek-style
// distillations served through OpenAI-compatible gateways do this).
func ToResult(resp *ChatResponse) *pipes.ChatResult {
	result := &pipes.ChatResult{
		Id:        resp.ID,
		Model:     resp.Model,
		Citations: resp.Citations,
	}

	if len(resp.Choices) == 0 {
		result.FinishReason = "error"
		return result
	}

	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)

	reasoning := choice.Message.ReasoningContent
	if reasoning == "" {
		reasoning = choice.Message.Reasoning
	}
	if reasoning == "" {
		if thinkReasoning, cleaned := splitThinkTags(content); thinkReasoning != "" {
			reasoning = thinkReasoning
			content = cleaned
		}
	}

	result.Content = content
	result.Reasoning = strings.TrimSpace(reasoning)
	result.FinishReason = choice.FinishReason

	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, pipes.ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: pipes.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	if resp.Usage != nil {
		result.Usage = usageToGeneric(resp.Usage)
	}

	return result
}

func usageToGeneric(wireUsage *Usage) *pipes.Usage {
	usage := &pipes.Usage{
		PromptTokens:     wireUsage.PromptTokens,
		CompletionTokens: wireUsage.CompletionTokens,
		TotalTokens:      wireUsage.TotalTokens,
	}
	if wireUsage.CompletionTokensDetails != nil {
		usage.ReasoningTokens = wireUsage.CompletionTokensDetails.ReasoningTokens
	}
	if wireUsage.PromptTokensDetails != nil {
		usage.CachedTokens = wireUsage.PromptTokensDetails.CachedTokens
	}
	return usage
}

// splitThinkTags extracts reasoning wrapped in <think>...</think> from
// content and returns it together with the content stripped of the tags.
// Returns empty reasoning when no closing tag is present.
func splitThinkTags(content string) (reasoning, cleaned string) {
	const startTag = "<think>"
	const endTag = "</think>"

	start := strings.Index(content, startTag)
	bodyStart := 0
	if start != -1 {
		bodyStart = start + len(startTag)
	} else {
		start = 0
	}

	end := strings.Index(content, endTag)
	if end == -1 || end < bodyStart {
		return "", content
	}

	reasoning = strings.TrimSpace(content[bodyStart:end])
	cleaned = strings.TrimSpace(content[:start] + content[end+len(endTag):])
	return reasoning, cleaned
}
