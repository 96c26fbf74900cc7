// Package mediafetch downloads remote media referenced by chat messages.
// Pipes that require inline image bytes use [FetchImage] to resolve
// URI-referenced image parts before mapping a request; [FetchPage] retrieves
// a web page as Markdown for prompt enrichment.
package mediafetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/chatpipe/chatpipe/internal/utils"
	"github.com/chatpipe/chatpipe/pipes"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent identifies this module's downloads.
	DefaultUserAgent = "chatpipe-mediafetch/1.0"
	// DefaultMaxBytes caps downloaded bodies (20MB, above every pipe's
	// per-image limit so compression decides the final size).
	DefaultMaxBytes = 20 * 1024 * 1024

	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 10 * time.Second
	idleConnTimeout       = 90 * time.Second
)

// Options configures a fetch. The zero value uses the package defaults.
type Options struct {
	MaxBytes  int64
	Timeout   time.Duration
	UserAgent string

	// Client overrides the internal HTTP client, mainly for tests.
	Client *http.Client
}

func (opts Options) withDefaults() Options {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return opts
}

// FetchImage downloads the image at rawURL and returns it as an inline
// ImagePart. Only https URLs are accepted, so credentials and image bytes
// never travel over plaintext connections. The response must declare an
// image/* content type or carry bytes that sniff as an image.
func FetchImage(ctx context.Context, rawURL string, opts Options) (*pipes.ImagePart, error) {
	opts = opts.withDefaults()

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, pipes.NewConfigErrorf("invalid image URL %q: %v", rawURL, err)
	}
	if parsed.Scheme != "https" {
		return nil, pipes.NewConfigErrorf("image URL %q must use https", rawURL)
	}

	body, contentType, err := fetch(ctx, parsed.String(), opts)
	if err != nil {
		return nil, err
	}

	mimeType := contentType
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, pipes.NewConfigErrorf("URL %q is not an image (content type %s)", rawURL, contentType)
	}

	return &pipes.ImagePart{
		Data:     body,
		MimeType: mimeType,
		URI:      parsed.String(),
	}, nil
}

// FetchPage retrieves a web page and converts its HTML to Markdown. Partial
// URLs get an https:// prefix.
func FetchPage(ctx context.Context, rawURL string, opts Options) (string, error) {
	opts = opts.withDefaults()

	target := strings.TrimSpace(rawURL)
	if target == "" {
		return "", pipes.NewConfigErrorf("page URL cannot be empty")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	body, _, err := fetch(ctx, target, opts)
	if err != nil {
		return "", err
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("converting %q to markdown: %w", target, err)
	}
	return markdown, nil
}

// fetch performs the GET with the size cap and timeout configuration shared
// by both entry points. It returns the body and the declared content type.
func fetch(ctx context.Context, target string, opts Options) ([]byte, string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building request for %q: %w", target, err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	client := opts.Client
	if client == nil {
		client = newClient(opts.Timeout)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %q: %w", target, err)
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching %q: unexpected status %d", target, resp.StatusCode)
	}

	// Read one byte past the cap so an at-limit body is distinguishable
	// from an oversized one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading %q: %w", target, err)
	}
	if int64(len(body)) > opts.MaxBytes {
		return nil, "", pipes.NewConfigErrorf("%q exceeds the %d byte download limit", target, opts.MaxBytes)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// newClient builds an HTTP client with bounded timeouts at every phase so a
// slow server cannot stall a chat request indefinitely.
func newClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			IdleConnTimeout:       idleConnTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			ForceAttemptHTTP2:     true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects (>10)")
			}
			return nil
		},
	}
}
