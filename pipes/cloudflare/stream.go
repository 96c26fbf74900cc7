package cloudflare

import (
	"context"
	"encoding/json"
	"io"

	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

// Stream implements [pipes.StreamPipe]. Run-endpoint models stream SSE
// chunks of the form {"response": "<delta>"} terminated by [DONE]; the final
// data chunk may carry a usage block. GPT-OSS models do not stream through
// Workers AI, so their result is delivered as a single-chunk stream.
func (p *Pipe) Stream(ctx context.Context, request pipes.ChatRequest) (*pipes.ChatStream, error) {
	p.annotateSpan(ctx, request, true)

	model, cfModel, err := p.resolveModel(request)
	if err != nil {
		return nil, err
	}
	request.Model = model

	if usesResponsesEndpoint(cfModel) {
		result, err := p.completeResponses(ctx, request, cfModel)
		if err != nil {
			return nil, err
		}
		return pipes.NewSingleChunkStream(result), nil
	}

	wireReq := buildRunRequest(request)
	wireReq.Stream = true

	httpResponse, err := utils.DoPostStream(ctx, p.client, providerName, p.runURL(cfModel), p.apiToken, wireReq)
	if err != nil {
		return nil, err
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(pipes.StreamChunk, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		var usage *pipes.Usage

		for {
			if ctx.Err() != nil {
				yield(pipes.StreamChunk{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				// [DONE] reached: flush the usage collected from the last
				// chunk, then the terminal chunk. The run endpoint sends no
				// finish reason, so completion always maps to "stop".
				if usage != nil {
					if !yield(pipes.StreamChunk{Type: pipes.ChunkUsage, Usage: usage}, nil) {
						return
					}
				}
				yield(pipes.StreamChunk{Type: pipes.ChunkDone, FinishReason: "stop"}, nil)
				return
			}
			if sseErr != nil {
				yield(pipes.StreamChunk{}, &pipes.StreamError{Provider: providerName, Reason: "SSE read failed", Err: sseErr})
				return
			}

			var chunk runStreamChunk
			if parseErr := json.Unmarshal([]byte(payload), &chunk); parseErr != nil {
				yield(pipes.StreamChunk{}, &pipes.StreamError{Provider: providerName, Reason: "malformed stream chunk", Err: parseErr})
				return
			}

			if chunk.Usage != nil {
				usage = &pipes.Usage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
					TotalTokens:      chunk.Usage.TotalTokens,
				}
			}

			if chunk.Response != "" {
				if !yield(pipes.StreamChunk{Type: pipes.ChunkContent, Content: chunk.Response}, nil) {
					return
				}
			}
		}
	}

	return pipes.NewChatStream(iteratorFunc), nil
}
