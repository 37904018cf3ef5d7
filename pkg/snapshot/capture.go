package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/entrhq/zotbridge/pkg/zotero/connector"
)

// Request names the page to capture and the browser identity to use.
type Request struct {
	URL       string
	UserAgent string
	Cookie    string
}

// Page is a captured, prepared page.
type Page struct {
	// URL is the final URL after redirects.
	URL   string
	HTML  string
	Title string
}

// Capturer turns a URL into a Page.
type Capturer interface {
	Capture(ctx context.Context, req Request) (*Page, error)
}

// Fetcher downloads a resource. *connector.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts connector.FetchOptions) (*connector.Resource, error)
}

// HTTPCapturer captures pages with a plain GET.
type HTTPCapturer struct {
	fetcher Fetcher
}

// NewHTTPCapturer returns a capturer downloading through f.
func NewHTTPCapturer(f Fetcher) *HTTPCapturer {
	return &HTTPCapturer{fetcher: f}
}

// Capture implements Capturer.
func (c *HTTPCapturer) Capture(ctx context.Context, req Request) (*Page, error) {
	res, err := c.fetcher.Fetch(ctx, req.URL, connector.FetchOptions{
		UserAgent: req.UserAgent,
		Cookie:    req.Cookie,
	})
	if err != nil {
		return nil, err
	}
	if !isHTML(res.ContentType) {
		return nil, fmt.Errorf("snapshot of %s: content type %q is not HTML", req.URL, res.ContentType)
	}

	body, err := decode(res.Data, res.ContentType)
	if err != nil {
		return nil, fmt.Errorf("snapshot of %s: %w", req.URL, err)
	}
	base := res.URL
	if base == "" {
		base = req.URL
	}
	return Prepare(body, base)
}

// isHTML accepts HTML and XHTML media types. An absent Content-Type is
// accepted as well since some servers omit it.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// decode converts the body to UTF-8 using the declared or sniffed charset.
func decode(data []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return "", fmt.Errorf("detect charset: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(out), nil
}
