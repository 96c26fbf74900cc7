package mistral

import "github.com/chatpipe/chatpipe/pipes"

// modelCatalog lists the Mistral models this pipe advertises. Feature sets
// follow Mistral's published model matrix: the large/medium/small/codestral
// families support tool calling, the 2503+ small and medium releases accept
// image input, and magistral models emit reasoning traces.
var modelCatalog = pipes.Catalog{
	{ID: "mistral-large-latest", Name: "Mistral Large (Latest)", Features: []pipes.Feature{pipes.FeatureTools}},
	{ID: "mistral-large-2411", Name: "Mistral Large 2.1 (2411)", Features: []pipes.Feature{pipes.FeatureTools}},
	{ID: "mistral-medium-latest", Name: "Mistral Medium (Latest)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision}},
	{ID: "mistral-medium-2508", Name: "Mistral Medium 3.1 (2508)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision}},
	{ID: "mistral-small-latest", Name: "Mistral Small (Latest)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision}},
	{ID: "mistral-small-2506", Name: "Mistral Small 3.2 (2506)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision}},
	{ID: "mistral-small-2503", Name: "Mistral Small 3.1 (2503)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision}},
	{ID: "mistral-small-2501", Name: "Mistral Small 3 (2501)", Features: []pipes.Feature{pipes.FeatureTools}},
	{ID: "magistral-medium-latest", Name: "Magistral Medium (Latest)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureReasoning}},
	{ID: "magistral-small-latest", Name: "Magistral Small (Latest)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureReasoning}},
	{ID: "codestral-latest", Name: "Codestral (Latest)", Features: []pipes.Feature{pipes.FeatureTools}},
	{ID: "codestral-2501", Name: "Codestral (2501)", Features: []pipes.Feature{pipes.FeatureTools}},
	{ID: "pixtral-large-latest", Name: "Pixtral Large (Latest)", Features: []pipes.Feature{pipes.FeatureTools, pipes.FeatureVision}},
	{ID: "pixtral-12b-2409", Name: "Pixtral 12B (2409)", Features: []pipes.Feature{pipes.FeatureVision}},
	{ID: "open-mistral-7b", Name: "Mistral 7B"},
	{ID: "open-mixtral-8x7b", Name: "Mixtral 8x7B"},
	{ID: "open-mixtral-8x22b", Name: "Mixtral 8x22B"},
}
