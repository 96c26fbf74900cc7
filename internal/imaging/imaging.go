// Package imaging provides hashing and size-reduction for images attached to
// chat requests. Providers enforce hard per-image byte limits; oversized
// images are re-encoded as JPEG at decreasing quality and, if still too
// large, resampled to a smaller resolution.
package imaging

import (
	"bytes"
	"image"
	"image/jpeg"

	// decoders for the formats providers accept as inline attachments
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/chatpipe/chatpipe/pipes"
)

// Policy controls how Compress reduces an oversized image.
type Policy struct {
	// MaxBytes is the byte limit the output must fit under.
	MaxBytes int
	// JPEGQualities are tried in order before any resizing happens.
	JPEGQualities []int
	// MinLongestEdge stops the halving of the image's longest edge. Once an
	// image at this size and the lowest quality still exceeds MaxBytes the
	// image is rejected.
	MinLongestEdge int
}

// DefaultPolicy mirrors common provider limits: quality steps 85, 70, 50,
// then halve the longest edge down to 512 px.
func DefaultPolicy(maxBytes int) Policy {
	return Policy{
		MaxBytes:       maxBytes,
		JPEGQualities:  []int{85, 70, 50},
		MinLongestEdge: 512,
	}
}

// Compress returns data unchanged when it already fits under the policy's
// byte limit. Otherwise it decodes the image and re-encodes it as JPEG at
// each quality step, then halves the longest edge (Catmull-Rom resampling)
// and retries, until the result fits. The returned MIME type is image/jpeg
// whenever a re-encode happened. If no reduction can satisfy the limit a
// *pipes.ConfigError is returned.
func Compress(data []byte, mimeType string, policy Policy) ([]byte, string, error) {
	if policy.MaxBytes <= 0 || len(data) <= policy.MaxBytes {
		return data, mimeType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", pipes.NewConfigErrorf("image exceeds %d bytes and cannot be decoded for compression: %v", policy.MaxBytes, err)
	}

	qualities := policy.JPEGQualities
	if len(qualities) == 0 {
		qualities = DefaultPolicy(policy.MaxBytes).JPEGQualities
	}
	minEdge := policy.MinLongestEdge
	if minEdge <= 0 {
		minEdge = DefaultPolicy(policy.MaxBytes).MinLongestEdge
	}

	for {
		for _, quality := range qualities {
			encoded, err := encodeJPEG(img, quality)
			if err != nil {
				return nil, "", pipes.NewConfigErrorf("image re-encode failed: %v", err)
			}
			if len(encoded) <= policy.MaxBytes {
				return encoded, "image/jpeg", nil
			}
		}

		if longestEdge(img) <= minEdge {
			return nil, "", pipes.NewConfigErrorf(
				"image cannot be reduced under %d bytes (still %dx%d at lowest quality)",
				policy.MaxBytes, img.Bounds().Dx(), img.Bounds().Dy())
		}
		img = halve(img)
	}
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func longestEdge(img image.Image) int {
	bounds := img.Bounds()
	if bounds.Dx() > bounds.Dy() {
		return bounds.Dx()
	}
	return bounds.Dy()
}

// halve resamples img to half its dimensions using Catmull-Rom, which keeps
// text in screenshots legible better than nearest-neighbour.
func halve(img image.Image) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx() / 2
	height := bounds.Dy() / 2
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
