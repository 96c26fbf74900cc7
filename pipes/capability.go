package pipes

// Feature is a model capability a pipe can be asked about before mapping a
// request. Pipes consult their static model tables instead of letting the
// provider reject the request, so mismatches fail fast with a clear message.
type Feature string

const (
	// FeatureVision means the model accepts image input.
	FeatureVision Feature = "vision"
	// FeatureTools means the model supports tool/function calling.
	FeatureTools Feature = "tools"
	// FeatureReasoning means the model emits thinking/reasoning content.
	FeatureReasoning Feature = "reasoning"
	// FeatureImageOutput means the model generates images.
	FeatureImageOutput Feature = "image_output"
)

// ModelInfo describes one model a pipe advertises to the host.
type ModelInfo struct {
	ID       string    `json:"id"`   // Model identifier as the provider expects it
	Name     string    `json:"name"` // Human-readable label shown by the host
	Features []Feature `json:"features,omitempty"`
}

// Has reports whether the model declares the given feature.
func (info ModelInfo) Has(feature Feature) bool {
	for _, f := range info.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// Catalog is the static model table a pipe declares. Lookups use the model ID
// exactly as the provider expects it, after any host prefix has been stripped.
type Catalog []ModelInfo

// Find returns the entry for modelID.
func (catalog Catalog) Find(modelID string) (ModelInfo, bool) {
	for _, info := range catalog {
		if info.ID == modelID {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// Supports reports whether modelID declares feature. Unknown models get
// conservative defaults (text and tools, no vision, no reasoning output) so
// newly released models remain usable for plain chat.
func (catalog Catalog) Supports(modelID string, feature Feature) bool {
	info, found := catalog.Find(modelID)
	if !found {
		return feature == FeatureTools
	}
	return info.Has(feature)
}

// Validate checks request features against the catalog entry for the request
// model and returns a *ConfigError describing the first mismatch. It runs in
// the request mapper, before any network call.
func (catalog Catalog) Validate(request ChatRequest) error {
	if HasImages(request.Messages) && !catalog.Supports(request.Model, FeatureVision) {
		return NewConfigErrorf("model %q does not accept image input", request.Model)
	}
	if len(request.Tools) > 0 && !catalog.Supports(request.Model, FeatureTools) {
		return NewConfigErrorf("model %q does not support tool calling", request.Model)
	}
	if params := request.Params; params != nil {
		if (params.IncludeThoughts || params.ThinkingBudget != nil) && !catalog.Supports(request.Model, FeatureReasoning) {
			return NewConfigErrorf("model %q does not produce reasoning output", request.Model)
		}
	}
	return nil
}
