package openaiwire

import (
	"context"
	"io"
	"net/http"

	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

// Stream sends wireReq with streaming enabled and returns a ChatStream that
// yields deltas as SSE events arrive. Pre-stream failures (connection, non-2xx
// status) are returned directly; mid-stream failures are yielded through the
// iterator as *pipes.StreamError and terminate it. The response body is closed
// when the iterator finishes, is abandoned, or ctx is cancelled.
func Stream(ctx context.Context, client *http.Client, provider, url, apiKey string, wireReq ChatRequest, headers ...utils.HeaderOption) (*pipes.ChatStream, error) {
	wireReq.Stream = utils.Ptr(true)
	wireReq.StreamOptions = &StreamOptions{IncludeUsage: true}

	httpResponse, err := utils.DoPostStream(ctx, client, provider, url, apiKey, wireReq, headers...)
	if err != nil {
		return nil, err
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(pipes.StreamChunk, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		for {
			if ctx.Err() != nil {
				yield(pipes.StreamChunk{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				return
			}
			if sseErr != nil {
				yield(pipes.StreamChunk{}, &pipes.StreamError{Provider: provider, Reason: "SSE read failed", Err: sseErr})
				return
			}

			wireChunk, parseErr := UnmarshalStreamChunk(payload)
			if parseErr != nil {
				yield(pipes.StreamChunk{}, &pipes.StreamError{Provider: provider, Reason: "malformed stream chunk", Err: parseErr})
				return
			}

			for _, chunk := range ChunkToStreamChunks(wireChunk) {
				if !yield(chunk, nil) {
					return
				}
			}
		}
	}

	return pipes.NewChatStream(iteratorFunc), nil
}

// ChunkToStreamChunks converts a single wire chunk into zero or more generic
// stream chunks. A wire chunk can carry several kinds of data at once
// (content plus tool calls, or a finish reason plus usage).
func ChunkToStreamChunks(wireChunk *StreamChunk) []pipes.StreamChunk {
	var chunks []pipes.StreamChunk

	// Usage arrives in a trailing chunk with empty choices when
	// stream_options.include_usage is set.
	if wireChunk.Usage != nil {
		chunks = append(chunks, pipes.StreamChunk{
			Type:  pipes.ChunkUsage,
			Usage: usageToGeneric(wireChunk.Usage),
		})
	}

	for _, choice := range wireChunk.Choices {
		delta := choice.Delta

		if delta.Content != nil && *delta.Content != "" {
			chunks = append(chunks, pipes.StreamChunk{
				Type:    pipes.ChunkContent,
				Content: *delta.Content,
			})
		}

		reasoning := delta.ReasoningContent
		if reasoning == nil {
			reasoning = delta.Reasoning
		}
		if reasoning != nil && *reasoning != "" {
			chunks = append(chunks, pipes.StreamChunk{
				Type:      pipes.ChunkReasoning,
				Reasoning: *reasoning,
			})
		}

		for _, toolCallPart := range delta.ToolCalls {
			chunks = append(chunks, pipes.StreamChunk{
				Type: pipes.ChunkToolCall,
				ToolCall: &pipes.ToolCallDelta{
					Index:     toolCallPart.Index,
					ID:        toolCallPart.ID,
					Name:      toolCallPart.Function.Name,
					Arguments: toolCallPart.Function.Arguments,
				},
			})
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			chunks = append(chunks, pipes.StreamChunk{
				Type:         pipes.ChunkDone,
				FinishReason: *choice.FinishReason,
			})
		}
	}

	return chunks
}
