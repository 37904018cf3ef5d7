package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is where desktop Zotero listens for connector requests.
	DefaultBaseURL = "http://127.0.0.1:23119"
	// DefaultAPIVersion is sent as X-Zotero-Connector-API-Version.
	DefaultAPIVersion = 3
	// DefaultClientVersion is sent as X-Zotero-Version.
	DefaultClientVersion = "zotbridge"
	// DefaultTimeout bounds metadata calls.
	DefaultTimeout = 15 * time.Second
	// DefaultAttachmentTimeout bounds binary downloads and uploads.
	DefaultAttachmentTimeout = 120 * time.Second
	// DefaultUserAgent is used for resource downloads when the caller gives none.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 4096

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL           string
	APIVersion        int
	ClientVersion     string
	Timeout           time.Duration
	AttachmentTimeout time.Duration
	// ValidatePDF parses downloaded PDFs and rejects files without pages.
	ValidatePDF bool
	HTTPClient  *http.Client
}

// Client talks to one Zotero connector server. It is safe for concurrent use.
type Client struct {
	baseURL           string
	apiVersion        int
	clientVersion     string
	timeout           time.Duration
	attachmentTimeout time.Duration
	validatePDF       bool
	httpClient        *http.Client
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	apiVersion := opts.APIVersion
	if apiVersion <= 0 {
		apiVersion = DefaultAPIVersion
	}
	clientVersion := strings.TrimSpace(opts.ClientVersion)
	if clientVersion == "" {
		clientVersion = DefaultClientVersion
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attachmentTimeout := opts.AttachmentTimeout
	if attachmentTimeout <= 0 {
		attachmentTimeout = DefaultAttachmentTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:           baseURL,
		apiVersion:        apiVersion,
		clientVersion:     clientVersion,
		timeout:           timeout,
		attachmentTimeout: attachmentTimeout,
		validatePDF:       opts.ValidatePDF,
		httpClient:        httpClient,
	}
}

// BaseURL returns the connector base URL in use.
func (c *Client) BaseURL() string { return c.baseURL }

// Headers returns the protocol headers sent with every connector call.
// clientVersion overrides the configured X-Zotero-Version when non-empty.
func (c *Client) Headers(clientVersion string) http.Header {
	if clientVersion == "" {
		clientVersion = c.clientVersion
	}
	h := make(http.Header, 2)
	h.Set("X-Zotero-Connector-API-Version", strconv.Itoa(c.apiVersion))
	h.Set("X-Zotero-Version", clientVersion)
	return h
}

type call struct {
	path        string
	body        []byte
	contentType string
	header      http.Header
	timeout     time.Duration
}

type reply struct {
	statusCode int
	body       []byte
}

// post issues a connector call and returns the raw reply. Status codes are
// left to the caller.
func (c *Client) post(ctx context.Context, cl call) (*reply, error) {
	if cl.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cl.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+cl.path, bytes.NewReader(cl.body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", cl.path, err)
	}
	for k, vs := range cl.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cl.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", cl.path, err)
	}
	return &reply{statusCode: resp.StatusCode, body: body}, nil
}

// postJSON encodes payload and posts it with the standard headers.
func (c *Client) postJSON(ctx context.Context, path string, payload any, clientVersion string) (*reply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", path, err)
	}
	return c.post(ctx, call{
		path:        path,
		body:        body,
		contentType: "application/json",
		header:      c.Headers(clientVersion),
		timeout:     c.timeout,
	})
}

// expectOK turns an error status on a side-channel call into RemoteFetchError.
func (c *Client) expectOK(path string, r *reply) error {
	if r.statusCode >= 400 {
		return &RemoteFetchError{URL: c.baseURL + path, StatusCode: r.statusCode}
	}
	return nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
