package cloudflare

import (
	"strings"

	"github.com/chatpipe/chatpipe/pipes"
)

// cfModelAliases maps the short cf-* model IDs the host shows to the full
// Workers AI model paths. Unknown IDs pass through unchanged so users can
// address new models by their @cf/ path directly.
var cfModelAliases = map[string]string{
	"cf-gpt-oss-120b":                    "@cf/openai/gpt-oss-120b",
	"cf-gpt-oss-20b":                     "@cf/openai/gpt-oss-20b",
	"cf-llama-3.1-70b-instruct":          "@cf/meta/llama-3.1-70b-instruct",
	"cf-llama-3.3-70b-instruct-fp8-fast": "@cf/meta/llama-3.3-70b-instruct-fp8-fast",
	"cf-llama-3.1-8b-instruct":           "@cf/meta/llama-3.1-8b-instruct",
	"cf-llama-3.2-1b-instruct":           "@cf/meta/llama-3.2-1b-instruct",
	"cf-llama-3.2-3b-instruct":           "@cf/meta/llama-3.2-3b-instruct",
	"cf-mistral-small-3.1-24b-instruct":  "@cf/mistral/mistral-small-3.1-24b-instruct",
	"cf-mistral-7b-instruct-v0.2":        "@cf/mistral/mistral-7b-instruct-v0.2",
	"cf-qwen2.5-coder-32b-instruct":      "@cf/qwen/qwen2.5-coder-32b-instruct",
	"cf-gemma-3-12b-it":                  "@cf/google/gemma-3-12b-it",
}

// resolveCFModel translates a host model ID into the Workers AI model path.
func resolveCFModel(modelID string) string {
	if cfModel, ok := cfModelAliases[modelID]; ok {
		return cfModel
	}
	return modelID
}

// usesResponsesEndpoint reports whether the model runs on the /ai/v1/responses
// endpoint (GPT-OSS) instead of /ai/run.
func usesResponsesEndpoint(cfModel string) bool {
	return strings.Contains(cfModel, "openai/gpt-oss")
}

// modelCatalog lists the Workers AI models this pipe advertises. None of them
// accept image input or tool definitions through this pipe, so the feature
// sets stay empty and the capability gate rejects such requests early.
var modelCatalog = pipes.Catalog{
	{ID: "cf-gpt-oss-120b", Name: "gpt-oss-120b"},
	{ID: "cf-llama-3.1-70b-instruct", Name: "llama-3.1-70b-instruct"},
	{ID: "cf-llama-3.3-70b-instruct-fp8-fast", Name: "llama-3.3-70b-instruct-fp8-fast"},
	{ID: "cf-mistral-small-3.1-24b-instruct", Name: "mistral-small-3.1-24b-instruct"},
	{ID: "cf-llama-3.1-8b-instruct", Name: "llama-3.1-8b-instruct"},
	{ID: "cf-mistral-7b-instruct-v0.2", Name: "mistral-7b-instruct-v0.2"},
	{ID: "cf-qwen2.5-coder-32b-instruct", Name: "qwen2.5-coder-32b-instruct"},
	{ID: "cf-gemma-3-12b-it", Name: "gemma-3-12b-it"},
	{ID: "cf-gpt-oss-20b", Name: "gpt-oss-20b"},
	{ID: "cf-llama-3.2-1b-instruct", Name: "llama-3.2-1b-instruct"},
	{ID: "cf-llama-3.2-3b-instruct", Name: "llama-3.2-3b-instruct"},
}
