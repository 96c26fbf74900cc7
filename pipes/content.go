package pipes

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentType identifies the kind of payload carried by a ContentPart.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// ContentPart is one element of a multimodal message. Exactly one of Text or
// Image is meaningful, discriminated by Type.
type ContentPart struct {
	Type  ContentType `json:"type"`
	Text  string      `json:"text,omitempty"`
	Image *ImagePart  `json:"image,omitempty"`
}

// ImagePart is an inline image attached to a message. Either Data (raw bytes)
// or URI is set; pipes that require inline bytes fetch URI-referenced images
// before mapping. The hash is computed lazily and reused for deduplication
// against earlier turns of the same conversation.
type ImagePart struct {
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	URI      string `json:"uri,omitempty"`

	hash string // cached content hash, see Hash()
}

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// ImagePartOf returns an image content part wrapping the given bytes.
func ImagePartOf(data []byte, mimeType string) ContentPart {
	return ContentPart{Type: ContentTypeImage, Image: &ImagePart{Data: data, MimeType: mimeType}}
}

// Hash returns the hex-encoded SHA-256 of the image content, computing and
// caching it on first use. URI-referenced images hash the URI string so that
// the same reference deduplicates without a download.
func (img *ImagePart) Hash() string {
	if img.hash != "" {
		return img.hash
	}
	var sum [32]byte
	if len(img.Data) > 0 {
		sum = sha256.Sum256(img.Data)
	} else {
		sum = sha256.Sum256([]byte(img.URI))
	}
	img.hash = hex.EncodeToString(sum[:])
	return img.hash
}

// HasImages reports whether any message in the slice carries an image part.
func HasImages(messages []Message) bool {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if part.Type == ContentTypeImage && part.Image != nil {
				return true
			}
		}
	}
	return false
}

// JoinTextParts returns the concatenation of all text parts of a message,
// falling back to Content when the message has no parts. Pipes for text-only
// models use this to flatten multimodal input.
func JoinTextParts(msg Message) string {
	if len(msg.Parts) == 0 {
		return msg.Content
	}
	var texts []string
	for _, part := range msg.Parts {
		if part.Type == ContentTypeText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// StripModelPrefix removes the host's pipe namespace from a model identifier.
// Hosts namespace models as "<pipe id>.<model id>" (e.g. "mistral.codestral-latest");
// providers expect the bare model id. Only the given pipe id is stripped, so
// model names containing dots (e.g. "llama-3.1-8b-instruct") survive intact.
func StripModelPrefix(modelID, pipeID string) string {
	return strings.TrimPrefix(modelID, pipeID+".")
}
