package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxResourceBytes caps a single download.
const maxResourceBytes = 256 << 20

// FetchOptions carries the browser identity used for a download.
type FetchOptions struct {
	UserAgent string
	Cookie    string
}

// Resource is a downloaded body.
type Resource struct {
	// URL is the final URL after redirects.
	URL         string
	ContentType string
	Data        []byte
}

// Fetch downloads url. It is bounded by the attachment timeout and fails
// with *RemoteFetchError on status >= 400.
func (c *Client) Fetch(ctx context.Context, url string, opts FetchOptions) (*Resource, error) {
	ctx, cancel := context.WithTimeout(ctx, c.attachmentTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if opts.Cookie != "" {
		req.Header.Set("Cookie", opts.Cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, &RemoteFetchError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(data) > maxResourceBytes {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", url, maxResourceBytes)
	}

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Resource{
		URL:         final,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
