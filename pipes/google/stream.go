package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

// Stream implements [pipes.StreamPipe] for Gemini. It uses the
// streamGenerateContent endpoint with alt=sse to receive incremental
// responses as SSE events.
//
// Each Gemini SSE event carries a full generateContentResponse whose text
// accumulates across events rather than arriving as deltas. The iterator
// tracks the text seen so far and emits only the new suffix, so downstream
// consumers see the same delta shape as every other pipe.
func (p *Pipe) Stream(ctx context.Context, request pipes.ChatRequest) (*pipes.ChatStream, error) {
	p.annotateSpan(ctx, request, true)

	model, wireReq, err := p.buildRequest(request)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, model)

	// Empty apiKey so DoPostStream does not inject a Bearer token; Gemini
	// authenticates via x-goog-api-key in buildHeaders.
	httpResponse, err := utils.DoPostStream(ctx, p.client, providerName, url, "", wireReq, p.buildHeaders()...)
	if err != nil {
		return nil, err
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(pipes.StreamChunk, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		state := streamState{}

		for {
			if ctx.Err() != nil {
				yield(pipes.StreamChunk{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				// Gemini ends the stream without a sentinel; the finish
				// reason on the last candidate already produced the
				// terminal chunk.
				return
			}
			if sseErr != nil {
				yield(pipes.StreamChunk{}, &pipes.StreamError{Provider: providerName, Reason: "SSE read failed", Err: sseErr})
				return
			}

			var response generateContentResponse
			if parseErr := json.Unmarshal([]byte(payload), &response); parseErr != nil {
				yield(pipes.StreamChunk{}, &pipes.StreamError{Provider: providerName, Reason: "malformed stream chunk", Err: parseErr})
				return
			}

			for _, chunk := range state.chunksFrom(&response) {
				if !yield(chunk, nil) {
					return
				}
			}
		}
	}

	return pipes.NewChatStream(iteratorFunc), nil
}

// streamState tracks progress across SSE events of one stream: how much text
// and reasoning has already been emitted, tool call numbering, and whether
// the terminal chunk went out.
type streamState struct {
	emittedTextLength      int
	emittedReasoningLength int
	toolCallCounter        int
	doneEmitted            bool
}

// chunksFrom converts one streamed generateContentResponse into host chunks.
// Tool calls arrive whole (never as partial JSON) and are emitted once each.
func (state *streamState) chunksFrom(response *generateContentResponse) []pipes.StreamChunk {
	var chunks []pipes.StreamChunk

	if len(response.Candidates) == 0 {
		// A candidate-free event mid-stream means the prompt got blocked.
		if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" && !state.doneEmitted {
			state.doneEmitted = true
			chunks = append(chunks, pipes.StreamChunk{
				Type:         pipes.ChunkDone,
				FinishReason: "content_filter",
			})
		}
		return chunks
	}

	first := response.Candidates[0]

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
				chunks = append(chunks, pipes.StreamChunk{
					Type: pipes.ChunkToolCall,
					ToolCall: &pipes.ToolCallDelta{
						Index:     state.toolCallCounter,
						ID:        fmt.Sprintf("call_%d", state.toolCallCounter),
						Name:      p.FunctionCall.Name,
						Arguments: string(p.FunctionCall.Args),
					},
				})
				state.toolCallCounter++
			}
		}

		if delta := state.textDelta(strings.Join(textParts, "\n")); delta != "" {
			chunks = append(chunks, pipes.StreamChunk{Type: pipes.ChunkContent, Content: delta})
		}
		if delta := state.reasoningDelta(strings.Join(reasoningParts, "\n")); delta != "" {
			chunks = append(chunks, pipes.StreamChunk{Type: pipes.ChunkReasoning, Reasoning: delta})
		}
	}

	// Usage metadata repeats on every event with running totals; only the
	// final event (the one carrying a finish reason) is worth emitting.
	if first.FinishReason != "" && !state.doneEmitted {
		if response.UsageMetadata != nil {
			chunks = append(chunks, pipes.StreamChunk{
				Type:  pipes.ChunkUsage,
				Usage: usageToGeneric(response.UsageMetadata),
			})
		}
		state.doneEmitted = true
		chunks = append(chunks, pipes.StreamChunk{
			Type:         pipes.ChunkDone,
			FinishReason: mapFinishReason(first.FinishReason),
		})
	}

	return chunks
}

// textDelta returns the not-yet-emitted suffix of the accumulated text.
// Events where the text shrinks (which Gemini does not do) emit nothing.
func (state *streamState) textDelta(fullText string) string {
	if len(fullText) <= state.emittedTextLength {
		return ""
	}
	delta := fullText[state.emittedTextLength:]
	state.emittedTextLength = len(fullText)
	return delta
}

func (state *streamState) reasoningDelta(fullReasoning string) string {
	if len(fullReasoning) <= state.emittedReasoningLength {
		return ""
	}
	delta := fullReasoning[state.emittedReasoningLength:]
	state.emittedReasoningLength = len(fullReasoning)
	return delta
}
