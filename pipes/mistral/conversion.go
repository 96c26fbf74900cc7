package mistral

import (
	"github.com/chatpipe/chatpipe/internal/openaiwire"
	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

// buildRequest maps the generic request onto Mistral's chat completions wire
// format. The host's "mistral." model prefix is stripped and the request is
// validated against the model catalog before anything touches the network.
func (p *Pipe) buildRequest(request pipes.ChatRequest) (openaiwire.ChatRequest, error) {
	if p.apiKey == "" {
		return openaiwire.ChatRequest{}, pipes.NewConfigErrorf("MISTRAL_API_KEY is not set")
	}

	request.Model = pipes.StripModelPrefix(request.Model, providerName)
	if request.Model == "" {
		request.Model = defaultModel
	}

	if err := modelCatalog.Validate(request); err != nil {
		return openaiwire.ChatRequest{}, err
	}

	wireReq, err := openaiwire.BuildRequest(request, openaiwire.BuildOptions{ImageMaxBytes: maxImageBytes})
	if err != nil {
		return openaiwire.ChatRequest{}, err
	}

	// Mistral names the sampling seed random_seed instead of seed.
	if request.Params != nil && request.Params.Seed != 0 {
		wireReq.RandomSeed = utils.Ptr(request.Params.Seed)
	}
	if p.safePrompt {
		wireReq.SafePrompt = utils.Ptr(true)
	}

	return wireReq, nil
}
