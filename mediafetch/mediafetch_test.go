package mediafetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chatpipe/chatpipe/pipes"
)

// pngHeader is enough for content sniffing to identify image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func TestFetchImage_HappyPath(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngHeader)
	}))
	defer server.Close()

	img, err := FetchImage(context.Background(), server.URL+"/cat.png", Options{Client: server.Client()})
	if err != nil {
		t.Fatalf("FetchImage returned error: %v", err)
	}
	if img.MimeType != "image/png" {
		t.Errorf("unexpected mime type: %q", img.MimeType)
	}
	if len(img.Data) != len(pngHeader) {
		t.Errorf("unexpected data length: %d", len(img.Data))
	}
	if img.URI == "" {
		t.Error("expected source URI retained for deduplication")
	}
}

func TestFetchImage_PlainHTTP_Rejected(t *testing.T) {
	_, err := FetchImage(context.Background(), "http://example.com/cat.png", Options{})

	var configErr *pipes.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *pipes.ConfigError, got %v", err)
	}
	if !strings.Contains(configErr.Error(), "https") {
		t.Errorf("expected https requirement in message, got %q", configErr.Error())
	}
}

func TestFetchImage_NonImageContent_Rejected(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>not an image</body></html>"))
	}))
	defer server.Close()

	_, err := FetchImage(context.Background(), server.URL+"/page", Options{Client: server.Client()})

	var configErr *pipes.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *pipes.ConfigError, got %v", err)
	}
}

func TestFetchImage_OverSizeLimit_Rejected(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	_, err := FetchImage(context.Background(), server.URL+"/big.png", Options{Client: server.Client(), MaxBytes: 1024})

	var configErr *pipes.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *pipes.ConfigError, got %v", err)
	}
}

func TestFetchImage_MissingContentType_Sniffed(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(pngHeader)
	}))
	defer server.Close()

	img, err := FetchImage(context.Background(), server.URL+"/cat", Options{Client: server.Client()})
	if err != nil {
		t.Fatalf("FetchImage returned error: %v", err)
	}
	if img.MimeType != "image/png" {
		t.Errorf("expected sniffed image/png, got %q", img.MimeType)
	}
}

func TestFetchPage_ConvertsHTMLToMarkdown(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>Title</h1><p>Hello <strong>world</strong></p></body></html>"))
	}))
	defer server.Close()

	markdown, err := FetchPage(context.Background(), server.URL, Options{Client: server.Client()})
	if err != nil {
		t.Fatalf("FetchPage returned error: %v", err)
	}
	if !strings.Contains(markdown, "# Title") {
		t.Errorf("expected heading in markdown, got %q", markdown)
	}
	if !strings.Contains(markdown, "**world**") {
		t.Errorf("expected bold text in markdown, got %q", markdown)
	}
}

func TestFetchPage_Non200_Error(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := FetchPage(context.Background(), server.URL+"/missing", Options{Client: server.Client()})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
}
