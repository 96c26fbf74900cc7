package openaiwire

import (
	"github.com/chatpipe/chatpipe/internal/imaging"
	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

// BuildOptions tunes how BuildRequest maps the generic request onto the wire.
type BuildOptions struct {
	// ImageMaxBytes is the provider's inline image byte limit. Oversized
	// images are compressed down to it; zero means no limit.
	ImageMaxBytes int
}

// BuildRequest converts a generic chat request into the shared
// /chat/completions shape. Provider extensions (top_k, random_seed, thinking,
// ...) are left unset for the calling pipe to fill in from req.Params.
//
// Zero-valued generation params are omitted from the wire request so the
// provider applies its own defaults.
func BuildRequest(req pipes.ChatRequest, opts BuildOptions) (ChatRequest, error) {
	wireReq := ChatRequest{
		Model: req.Model,
	}

	for _, msg := range req.Messages {
		wireMsg := Message{
			Role:       string(msg.Role),
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}

		if len(msg.Parts) > 0 {
			parts, err := buildContentParts(msg.Parts, opts)
			if err != nil {
				return ChatRequest{}, err
			}
			if len(parts) > 0 {
				wireMsg.Content = parts
			}
		}

		for _, tc := range msg.ToolCalls {
			wireCall := ToolCall{ID: tc.ID, Type: tc.Type}
			wireCall.Function.Name = tc.Function.Name
			wireCall.Function.Arguments = tc.Function.Arguments
			wireMsg.ToolCalls = append(wireMsg.ToolCalls, wireCall)
		}

		wireReq.Messages = append(wireReq.Messages, wireMsg)
	}

	if params := req.Params; params != nil {
		if params.Temperature > 0 {
			wireReq.Temperature = utils.Ptr(float64(params.Temperature))
		}
		if params.TopP > 0 {
			wireReq.TopP = utils.Ptr(float64(params.TopP))
		}
		if params.MaxTokens > 0 {
			wireReq.MaxTokens = utils.Ptr(params.MaxTokens)
		}
		if params.FrequencyPenalty != 0 {
			wireReq.FrequencyPenalty = utils.Ptr(float64(params.FrequencyPenalty))
		}
		if params.PresencePenalty != 0 {
			wireReq.PresencePenalty = utils.Ptr(float64(params.PresencePenalty))
		}
		if len(params.Stop) > 0 {
			wireReq.Stop = params.Stop
		}
	}

	if len(req.Tools) > 0 {
		for _, tool := range req.Tools {
			wireReq.Tools = append(wireReq.Tools, Tool{
				Type: "function",
				Function: ToolFunction{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.Parameters,
				},
			})
		}
		wireReq.ToolChoice = "auto"
	}

	return wireReq, nil
}

func buildContentParts(parts []pipes.ContentPart, opts BuildOptions) ([]ContentPart, error) {
	wireParts := make([]ContentPart, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case pipes.ContentTypeText:
			wireParts = append(wireParts, ContentPart{Type: "text", Text: part.Text})
		case pipes.ContentTypeImage:
			if part.Image == nil {
				continue
			}
			imageURL := part.Image.URI
			if imageURL == "" {
				data, mimeType, err := imaging.Compress(part.Image.Data, part.Image.MimeType, imaging.DefaultPolicy(opts.ImageMaxBytes))
				if err != nil {
					return nil, err
				}
				imageURL = BuildDataURL(mimeType, data)
			}
			if imageURL == "" {
				continue
			}
			wireParts = append(wireParts, ContentPart{Type: "image_url", ImageURL: &ContentPartImage{URL: imageURL}})
		}
	}
	return wireParts, nil
}
