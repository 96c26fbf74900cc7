package openaiwire

import (
	"context"
	"net/http"

	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

// Complete sends wireReq synchronously and converts the response into the
// generic result. Provider errors keep the original status code and message.
func Complete(ctx context.Context, client *http.Client, provider, url, apiKey string, wireReq ChatRequest, headers ...utils.HeaderOption) (*pipes.ChatResult, error) {
	_, wireResp, err := utils.DoPostSync[ChatResponse](ctx, client, provider, url, apiKey, wireReq, headers...)
	if err != nil {
		return nil, err
	}
	return ToResult(wireResp), nil
}
