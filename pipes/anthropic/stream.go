package anthropic

import (
	"context"
	"io"

	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

// Stream implements [pipes.StreamPipe] for Anthropic's Messages API. It sends
// a streaming request (stream=true) and returns a ChatStream that yields
// incremental chunks as SSE events arrive.
//
// Pre-stream errors (missing API key, non-2xx HTTP response, network failure)
// are returned immediately. Mid-stream errors (Anthropic "error" event, SSE
// parse failure) are yielded through the iterator as *pipes.StreamError.
func (p *Pipe) Stream(ctx context.Context, request pipes.ChatRequest) (*pipes.ChatStream, error) {
	p.annotateSpan(ctx, request, true)

	wireReq, err := p.buildRequest(request)
	if err != nil {
		return nil, err
	}
	wireReq.Stream = true

	// Empty apiKey so DoPostStream does not inject a Bearer token; Anthropic
	// authenticates via x-api-key in buildHeaders.
	httpResponse, err := utils.DoPostStream(ctx, p.client, providerName, p.baseURL+messagesEndpoint, "", wireReq, p.buildHeaders()...)
	if err != nil {
		return nil, err
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	// The iterator keeps per-stream state: tool call indexing, token counts
	// accumulated across events, and the stop reason captured from
	// message_delta for the terminal chunk.
	iteratorFunc := func(yield func(pipes.StreamChunk, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		// toolCallCounter is incremented on each content_block_start of type
		// "tool_use", giving each tool call a unique zero-based index.
		toolCallCounter := 0

		// Token counts are spread across events (message_start carries input
		// tokens, message_delta carries output tokens) and emitted together
		// in a single usage chunk.
		inputTokens := 0
		cacheCreationTokens := 0
		cacheReadTokens := 0
		outputTokens := 0

		finishReason := ""

		for {
			if ctx.Err() != nil {
				yield(pipes.StreamChunk{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				// Stream finished; "message_stop" already emitted the
				// terminal chunk.
				return
			}
			if sseErr != nil {
				yield(pipes.StreamChunk{}, &pipes.StreamError{Provider: providerName, Reason: "SSE read failed", Err: sseErr})
				return
			}

			event, parseErr := unmarshalStreamEvent(payload)
			if parseErr != nil {
				yield(pipes.StreamChunk{}, &pipes.StreamError{Provider: providerName, Reason: "malformed stream event", Err: parseErr})
				return
			}

			switch event.Type {

			case "message_start":
				// Initial usage snapshot: input tokens and prompt-cache
				// counters. Output tokens are always 0 here.
				if event.Message != nil {
					inputTokens = event.Message.Usage.InputTokens
					cacheCreationTokens = event.Message.Usage.CacheCreationInputTokens
					cacheReadTokens = event.Message.Usage.CacheReadInputTokens
				}

			case "content_block_start":
				// For tool_use blocks the ID and name are only present on
				// this event, not on the input_json_delta events that follow.
				if event.ContentBlock == nil {
					continue
				}
				if event.ContentBlock.Type == "tool_use" {
					chunk := pipes.StreamChunk{
						Type: pipes.ChunkToolCall,
						ToolCall: &pipes.ToolCallDelta{
							Index: toolCallCounter,
							ID:    event.ContentBlock.ID,
							Name:  event.ContentBlock.Name,
						},
					}
					if !yield(chunk, nil) {
						return
					}
					toolCallCounter++
				}

			case "content_block_delta":
				if event.Delta == nil {
					continue
				}
				switch event.Delta.Type {
				case "text_delta":
					if event.Delta.Text != "" {
						if !yield(pipes.StreamChunk{Type: pipes.ChunkContent, Content: event.Delta.Text}, nil) {
							return
						}
					}
				case "thinking_delta":
					if event.Delta.Thinking != "" {
						if !yield(pipes.StreamChunk{Type: pipes.ChunkReasoning, Reasoning: event.Delta.Thinking}, nil) {
							return
						}
					}
				case "input_json_delta":
					// toolCallCounter-1 is the index of the currently open
					// tool_use block.
					if event.Delta.PartialJSON != "" {
						chunk := pipes.StreamChunk{
							Type: pipes.ChunkToolCall,
							ToolCall: &pipes.ToolCallDelta{
								Index:     toolCallCounter - 1,
								Arguments: event.Delta.PartialJSON,
							},
						}
						if !yield(chunk, nil) {
							return
						}
					}
				}

			case "content_block_stop":
				// Nothing to do; the next content_block_start identifies the
				// next block.

			case "message_delta":
				// Final output token count and stop reason. Emit the
				// consolidated usage chunk here so callers always receive
				// usage before the terminal chunk.
				if event.Usage != nil {
					outputTokens = event.Usage.OutputTokens
				}
				if event.Delta != nil && event.Delta.StopReason != "" {
					finishReason = event.Delta.StopReason
				}

				usageChunk := pipes.StreamChunk{
					Type: pipes.ChunkUsage,
					Usage: &pipes.Usage{
						PromptTokens:     inputTokens,
						CompletionTokens: outputTokens,
						TotalTokens:      inputTokens + outputTokens,
						CachedTokens:     cacheCreationTokens + cacheReadTokens,
					},
				}
				if !yield(usageChunk, nil) {
					return
				}

			case "message_stop":
				yield(pipes.StreamChunk{
					Type:         pipes.ChunkDone,
					FinishReason: mapStopReason(finishReason),
				}, nil)
				return

			case "error":
				reason := "stream error"
				if event.Error != nil {
					reason = event.Error.Message
				}
				yield(pipes.StreamChunk{}, &pipes.StreamError{Provider: providerName, Reason: reason})
				return

			case "ping":
				// Keep-alive; nothing to yield.
			}
		}
	}

	return pipes.NewChatStream(iteratorFunc), nil
}
