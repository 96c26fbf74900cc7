package observability

// Semantic conventions for attribute keys and event names used across the
// pipes, so that spans and logs stay consistent regardless of the provider.

// --- Provider attributes ---

const (
	// AttrPipeProvider is the provider name (e.g. "anthropic", "cloudflare").
	AttrPipeProvider = "pipe.provider"

	// AttrPipeModel is the model identifier.
	AttrPipeModel = "pipe.model"

	// AttrPipeEndpoint is the API endpoint URL.
	AttrPipeEndpoint = "pipe.endpoint"

	// AttrPipeResponseID is the response identifier returned by the provider.
	AttrPipeResponseID = "pipe.response.id"

	// AttrPipeFinishReason is the normalized finish reason.
	AttrPipeFinishReason = "pipe.finish_reason"

	// AttrPipeStreaming marks whether the call uses SSE streaming.
	AttrPipeStreaming = "pipe.streaming"
)

// --- Request/usage attributes ---

const (
	// AttrRequestMessagesCount is the number of messages in the request.
	AttrRequestMessagesCount = "request.messages_count"

	// AttrRequestImagesCount is the number of image parts in the request.
	AttrRequestImagesCount = "request.images_count"

	// AttrTokensTotal is the total token count of a completed request.
	AttrTokensTotal = "pipe.tokens.total" // #nosec G101 -- LLM tokens, not a credential
)

// --- HTTP attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPURL              = "http.url"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPRequestBody      = "http.request.body"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- Event names ---

const (
	// EventRequestStart marks the beginning of a provider call.
	EventRequestStart = "pipe.request.start"

	// EventRequestEnd marks the end of a provider call.
	EventRequestEnd = "pipe.request.end"

	// EventTokensReceived marks the arrival of usage counters.
	EventTokensReceived = "pipe.tokens.received"
)
