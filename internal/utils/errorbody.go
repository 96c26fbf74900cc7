package utils

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// errorEnvelope covers the error body shapes returned by the supported
// providers. OpenAI-compatible APIs use {"error":{"message":...}} or
// {"error":"..."}, Google uses {"error":{"message":...,"status":...}},
// some return a bare {"message":...} or {"detail":...}, and Cloudflare
// returns {"errors":[{"message":...}]}.
type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Errors  []errorDetail   `json:"errors"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// ExtractErrorMessage pulls a human-readable message out of a provider error
// body. Providers occasionally return truncated or otherwise malformed JSON
// on errors (proxies cutting bodies, HTML error pages with JSON fragments),
// so a failed parse is retried once through jsonrepair before falling back to
// the raw body text.
func ExtractErrorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "empty error body"
	}

	if message, ok := parseErrorBody(trimmed); ok {
		return message
	}

	if repaired, err := jsonrepair.JSONRepair(trimmed); err == nil {
		if message, ok := parseErrorBody(repaired); ok {
			return message
		}
	}

	return TruncateString(trimmed, 500)
}

func parseErrorBody(body string) (string, bool) {
	var envelope errorEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return "", false
	}

	if len(envelope.Error) > 0 {
		// "error" may be an object or a plain string
		var detail errorDetail
		if err := json.Unmarshal(envelope.Error, &detail); err == nil && detail.Message != "" {
			return detail.Message, true
		}
		var message string
		if err := json.Unmarshal(envelope.Error, &message); err == nil && message != "" {
			return message, true
		}
	}

	if len(envelope.Errors) > 0 && envelope.Errors[0].Message != "" {
		return envelope.Errors[0].Message, true
	}

	if envelope.Message != "" {
		return envelope.Message, true
	}

	if envelope.Detail != "" {
		return envelope.Detail, true
	}

	return "", false
}
