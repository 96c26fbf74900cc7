package pipes

import "context"

// Pipe is the interface every provider adapter satisfies. It covers the full
// lifecycle of a single request: request mapping, dispatch, and response
// normalization. Implementations are stateless across calls and safe for
// concurrent use by the host.
type Pipe interface {
	// Complete sends a chat request and returns the completed result. It
	// returns a *ConfigError before any network call when the request uses a
	// feature the chosen model does not support or a credential is missing,
	// a *ProviderError for non-2xx responses, and a *TransportError for
	// connection failures.
	Complete(ctx context.Context, request ChatRequest) (*ChatResult, error)

	// Models returns the static model catalog this pipe advertises.
	Models() []ModelInfo

	// Supports reports whether the given model supports the given feature.
	// Unknown model identifiers get conservative defaults rather than a
	// hard rejection, so newly released models remain usable.
	Supports(modelID string, feature Feature) bool
}

// StreamPipe is implemented by pipes that support SSE streaming. Hosts detect
// it via type assertion: pipe.(StreamPipe); pipes without it fall back to
// Complete wrapped in NewSingleChunkStream.
type StreamPipe interface {
	Pipe

	// Stream sends a chat request and returns a ChatStream yielding
	// incremental chunks as they arrive. Pre-stream errors (auth, bad
	// request, network) are returned directly; mid-stream errors are
	// yielded through the iterator and terminate it. Cancelling ctx closes
	// the underlying connection promptly rather than draining it.
	Stream(ctx context.Context, request ChatRequest) (*ChatStream, error)
}
