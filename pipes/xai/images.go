package xai

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

// imageGenerationRequest is the /images/generations request body.
type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"` // "url" or "b64_json"
}

type imageGenerationResponse struct {
	Data []generatedImage `json:"data"`
}

type generatedImage struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// generateImage sends the last user message as the image prompt and returns
// the generated images on the result. Generated bytes are requested as
// base64 so the caller never has to fetch a short-lived URL.
func (p *Pipe) generateImage(ctx context.Context, modelID string, request pipes.ChatRequest) (*pipes.ChatResult, error) {
	if p.apiKey == "" {
		return nil, pipes.NewConfigErrorf("XAI_API_KEY is not set")
	}

	prompt := lastUserPrompt(request.Messages)
	if prompt == "" {
		return nil, pipes.NewConfigErrorf("image generation requires a user message with a text prompt")
	}

	wireReq := imageGenerationRequest{
		Model:          modelID,
		Prompt:         prompt,
		N:              1,
		ResponseFormat: "b64_json",
	}

	_, wireResp, err := utils.DoPostSync[imageGenerationResponse](ctx, p.client, providerName, p.baseURL+imageGenerationEndpoint, p.apiKey, wireReq)
	if err != nil {
		return nil, err
	}

	result := &pipes.ChatResult{
		Model:        modelID,
		FinishReason: "stop",
	}

	for _, img := range wireResp.Data {
		imageData := pipes.ImageData{MimeType: "image/jpeg", URL: img.URL}
		if img.B64JSON != "" {
			// ImageData.Data carries base64 text; validate the payload but
			// keep it encoded.
			if _, decodeErr := base64.StdEncoding.DecodeString(img.B64JSON); decodeErr != nil {
				return nil, &pipes.ProviderError{
					Provider: providerName,
					Message:  "image payload is not valid base64: " + decodeErr.Error(),
				}
			}
			imageData.Data = img.B64JSON
		}
		result.Images = append(result.Images, imageData)
		if img.RevisedPrompt != "" && result.Content == "" {
			result.Content = img.RevisedPrompt
		}
	}

	return result, nil
}

// lastUserPrompt returns the text of the most recent user message.
func lastUserPrompt(messages []pipes.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != pipes.RoleUser {
			continue
		}
		if text := strings.TrimSpace(pipes.JoinTextParts(messages[i])); text != "" {
			return text
		}
	}
	return ""
}
