package google

import "github.com/chatpipe/chatpipe/pipes"

// modelCatalog lists the Gemini models this pipe knows about. Unknown model
// IDs are still accepted with the catalog's conservative defaults.
var modelCatalog = pipes.Catalog{
	{
		ID:       "gemini-2.5-pro",
		Name:     "Gemini 2.5 Pro",
		Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning},
	},
	{
		ID:       "gemini-2.5-flash",
		Name:     "Gemini 2.5 Flash",
		Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning},
	},
	{
		ID:       "gemini-2.5-flash-lite",
		Name:     "Gemini 2.5 Flash Lite",
		Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision, pipes.FeatureReasoning},
	},
	{
		ID:       "gemini-2.0-flash",
		Name:     "Gemini 2.0 Flash",
		Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision},
	},
	{
		ID:       "gemini-2.0-flash-lite",
		Name:     "Gemini 2.0 Flash Lite",
		Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision},
	},
	{
		ID:       "gemini-2.0-flash-preview-image-generation",
		Name:     "Gemini 2.0 Flash Image Generation",
		Features: []pipes.Feature{pipes.FeatureVision, pipes.FeatureImageOutput},
	},
}
