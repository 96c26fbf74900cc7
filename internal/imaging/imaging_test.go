package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/chatpipe/chatpipe/pipes"
)

// noisyPNG builds a PNG full of random pixels, which compresses poorly and
// therefore stays large enough to exercise the reduction path.
func noisyPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestCompress_UnderLimit_ReturnedUnchanged(t *testing.T) {
	data := noisyPNG(t, 32, 32)

	out, mime, err := Compress(data, "image/png", DefaultPolicy(len(data)+1))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("expected bytes returned unchanged when under limit")
	}
	if mime != "image/png" {
		t.Errorf("expected original MIME type, got %q", mime)
	}
}

func TestCompress_OverLimit_ReencodedAsJPEGUnderLimit(t *testing.T) {
	data := noisyPNG(t, 256, 256)
	limit := len(data) / 2

	out, mime, err := Compress(data, "image/png", DefaultPolicy(limit))
	if err != nil {
		t.Fatalf("expected compression to succeed, got %v", err)
	}
	if len(out) > limit {
		t.Errorf("output %d bytes exceeds limit %d", len(out), limit)
	}
	if mime != "image/jpeg" {
		t.Errorf("expected image/jpeg after re-encode, got %q", mime)
	}
}

func TestCompress_ImpossibleLimit_ReturnsConfigError(t *testing.T) {
	data := noisyPNG(t, 64, 64)

	_, _, err := Compress(data, "image/png", Policy{
		MaxBytes:       10,
		JPEGQualities:  []int{50},
		MinLongestEdge: 64,
	})
	if err == nil {
		t.Fatal("expected error for impossible byte limit")
	}
	var configErr *pipes.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *pipes.ConfigError, got %T", err)
	}
}

func TestCompress_UndecodableData_ReturnsConfigError(t *testing.T) {
	_, _, err := Compress([]byte("not an image at all"), "image/png", DefaultPolicy(5))
	var configErr *pipes.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *pipes.ConfigError, got %T", err)
	}
}

func TestDeduper_ReportsRepeatsOnly(t *testing.T) {
	deduper := NewDeduper()

	if deduper.Seen("abc") {
		t.Error("first occurrence should not be seen")
	}
	if !deduper.Seen("abc") {
		t.Error("second occurrence should be seen")
	}
	if deduper.Seen("def") {
		t.Error("different hash should not be seen")
	}
	if deduper.Seen("") {
		t.Error("empty hash is never deduplicated")
	}
	if deduper.Seen("") {
		t.Error("empty hash is never recorded")
	}
}
