package pipes

import (
	"iter"
	"strings"
)

// ChunkType identifies the kind of delta carried by a StreamChunk.
type ChunkType string

const (
	// ChunkContent indicates a text content delta.
	ChunkContent ChunkType = "content"
	// ChunkReasoning indicates a thinking/reasoning content delta.
	ChunkReasoning ChunkType = "reasoning"
	// ChunkToolCall indicates an incremental tool call delta.
	ChunkToolCall ChunkType = "tool_call"
	// ChunkUsage carries token usage metadata (typically the last chunk before done).
	ChunkUsage ChunkType = "usage"
	// ChunkDone signals that the stream finished normally.
	ChunkDone ChunkType = "done"
	// ChunkError signals an error that terminated the stream.
	ChunkError ChunkType = "error"
)

// ToolCallDelta is an incremental update to a streamed tool call. ID and Name
// are only present on the first chunk for a given index; later chunks carry
// only Arguments fragments.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"` // Incremental JSON fragment
}

// StreamChunk is a single incremental unit emitted during streaming. Chunks
// are yielded in the order the provider sent them; pipes never reorder.
type StreamChunk struct {
	Type         ChunkType      `json:"type"`
	Content      string         `json:"content,omitempty"`
	Reasoning    string         `json:"reasoning,omitempty"`
	ToolCall     *ToolCallDelta `json:"tool_call,omitempty"`
	Usage        *Usage         `json:"usage,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"` // Present on ChunkDone
	Error        string         `json:"error,omitempty"`         // Present on ChunkError
}

// ChatStream wraps a streaming iterator over StreamChunk values.
//
// Callers must consume the stream, either by ranging over Iter() (breaking
// early is fine) or by calling Collect(). The pipe holds the provider's HTTP
// response body open until the iterator completes or is abandoned via a loop
// break; constructing a ChatStream and never iterating it leaks that body.
type ChatStream struct {
	iterator iter.Seq2[StreamChunk, error]
}

// NewChatStream creates a ChatStream from a raw iterator. The iterator yields
// chunks with a nil error for normal deltas and a non-nil error for a
// mid-stream failure; after yielding an error it must stop producing.
func NewChatStream(iterator iter.Seq2[StreamChunk, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleChunkStream wraps a completed ChatResult as a stream: one content
// chunk (plus reasoning/usage when present) followed by a done chunk. Used by
// pipes whose provider or model cannot stream.
func NewSingleChunkStream(result *ChatResult) *ChatStream {
	iteratorFunc := func(yield func(StreamChunk, error) bool) {
		if result.Content != "" {
			if !yield(StreamChunk{Type: ChunkContent, Content: result.Content}, nil) {
				return
			}
		}
		if result.Reasoning != "" {
			if !yield(StreamChunk{Type: ChunkReasoning, Reasoning: result.Reasoning}, nil) {
				return
			}
		}
		for toolIndex, toolCall := range result.ToolCalls {
			if !yield(StreamChunk{
				Type: ChunkToolCall,
				ToolCall: &ToolCallDelta{
					Index:     toolIndex,
					ID:        toolCall.ID,
					Name:      toolCall.Function.Name,
					Arguments: toolCall.Function.Arguments,
				},
			}, nil) {
				return
			}
		}
		if result.Usage != nil {
			if !yield(StreamChunk{Type: ChunkUsage, Usage: result.Usage}, nil) {
				return
			}
		}
		yield(StreamChunk{Type: ChunkDone, FinishReason: result.FinishReason}, nil)
	}

	return NewChatStream(iteratorFunc)
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
//	for chunk, err := range stream.Iter() {
//	    if err != nil { ... }
//	    fmt.Print(chunk.Content)
//	}
func (stream *ChatStream) Iter() iter.Seq2[StreamChunk, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the accumulated ChatResult.
// A mid-stream error terminates collection and returns the partial result
// alongside the error; chunks already folded in are not rolled back.
func (stream *ChatStream) Collect() (*ChatResult, error) {
	accumulated := &ChatResult{}
	var toolCallBuilders []toolCallBuilder

	for chunk, err := range stream.iterator {
		if err != nil {
			return accumulated, err
		}

		switch chunk.Type {
		case ChunkContent:
			accumulated.Content += chunk.Content

		case ChunkReasoning:
			accumulated.Reasoning += chunk.Reasoning

		case ChunkToolCall:
			if chunk.ToolCall != nil {
				toolCallBuilders = accumulateToolCallDelta(toolCallBuilders, chunk.ToolCall)
			}

		case ChunkUsage:
			if chunk.Usage != nil {
				accumulated.Usage = chunk.Usage
			}

		case ChunkDone:
			accumulated.FinishReason = chunk.FinishReason

		case ChunkError:
			// Informational; the authoritative error arrives through the
			// iterator's error value.
		}
	}

	for _, builder := range toolCallBuilders {
		accumulated.ToolCalls = append(accumulated.ToolCalls, ToolCall{
			ID:   builder.id,
			Type: "function",
			Function: ToolCallFunction{
				Name:      builder.name,
				Arguments: builder.arguments.String(),
			},
		})
	}

	return accumulated, nil
}

// toolCallBuilder accumulates incremental tool call deltas into a complete ToolCall.
type toolCallBuilder struct {
	id        string
	name      string
	arguments strings.Builder
}

// accumulateToolCallDelta merges a delta into the running builder list,
// growing the slice when a new tool call index appears.
func accumulateToolCallDelta(builders []toolCallBuilder, delta *ToolCallDelta) []toolCallBuilder {
	for len(builders) <= delta.Index {
		builders = append(builders, toolCallBuilder{})
	}

	builder := &builders[delta.Index]

	if delta.ID != "" {
		builder.id = delta.ID
	}
	if delta.Name != "" {
		builder.name = delta.Name
	}
	if delta.Arguments != "" {
		builder.arguments.WriteString(delta.Arguments)
	}

	return builders
}
