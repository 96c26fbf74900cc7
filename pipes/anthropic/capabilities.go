package anthropic

import "github.com/chatpipe/chatpipe/pipes"

// modelCatalog lists the Claude models this pipe advertises. All current
// Claude chat models accept image input and support tool use; extended
// thinking arrived with Claude 3.7.
var modelCatalog = pipes.Catalog{
	{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning}},
	{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning}},
	{ID: "claude-opus-4-1", Name: "Claude Opus 4.1", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning}},
	{ID: "claude-sonnet-4-0", Name: "Claude Sonnet 4", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning}},
	{ID: "claude-3-7-sonnet-latest", Name: "Claude 3.7 Sonnet", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning}},
	{ID: "claude-3-5-haiku-latest", Name: "Claude 3.5 Haiku", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision}},
}
