// Package pipes defines the provider-agnostic chat model shared by every
// provider pipe: messages with mixed text/image content, generation
// parameters, the streaming chunk abstraction, the capability feature set,
// and the error taxonomy.
//
// A pipe translates a host chat request into one provider's wire format,
// performs the HTTP call, and translates the response (or SSE stream) back.
// Pipes are stateless: concurrent calls from the host never share mutable
// state, and no pipe retries on its own.
//
// Provider implementations live in the subpackages (anthropic, google,
// mistral, deepseek, perplexity, xai, zai, cloudflare). Each satisfies
// [Pipe], and all of them additionally satisfy [StreamPipe].
package pipes
