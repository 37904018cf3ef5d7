// Package translation is a client for the Zotero translation-server: web
// page and identifier translation, import of bibliographic formats and
// export of Zotero items.
package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is where translation-server listens by default.
	DefaultBaseURL = "http://127.0.0.1:1969"
	// DefaultTimeout bounds every translation call.
	DefaultTimeout = 15 * time.Second
)

// Reply statuses.
const (
	StatusOK              = "ok"
	StatusMultipleChoices = "multiple_choices"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls one translation-server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, timeout: timeout, httpClient: httpClient}
}

// Error is a translation-server reply with status >= 400.
type Error struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.StatusCode, e.Detail)
}

// Result is the reply of a translate call.
type Result struct {
	Status string `json:"status"`
	// URL and Session are set for multiple_choices replies; pass them back
	// to SelectWeb together with the chosen subset of Items.
	URL     string          `json:"url,omitempty"`
	Session string          `json:"session,omitempty"`
	Items   json.RawMessage `json:"items"`
}

// ExportResult is the reply of Export.
type ExportResult struct {
	Status string `json:"status"`
	Output string `json:"output"`
}

type response struct {
	statusCode int
	body       []byte
}

func (c *Client) post(ctx context.Context, target string, body []byte, contentType string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &response{statusCode: resp.StatusCode, body: data}, nil
}

// ensureOK converts an error status into *Error. The detail is the JSON
// body's message or error member when present, else the body text.
func ensureOK(op string, r *response) error {
	if r.statusCode < 400 {
		return nil
	}
	detail := strings.TrimSpace(string(r.body))
	if gjson.ValidBytes(r.body) {
		parsed := gjson.ParseBytes(r.body)
		for _, key := range []string{"message", "error"} {
			if v := parsed.Get(key); v.Type == gjson.String && v.String() != "" {
				detail = v.String()
				break
			}
		}
	}
	return &Error{Op: op, StatusCode: r.statusCode, Detail: detail}
}

// items returns the body as JSON, or as a JSON string when it is not JSON.
func items(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

func required(op, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s requires %s", op, field)
	}
	return nil
}

// TranslateWeb translates the page at target. A page listing several
// records answers with Status multiple_choices; the caller picks items and
// calls SelectWeb.
func (c *Client) TranslateWeb(ctx context.Context, target string) (*Result, error) {
	const op = "translate_web"
	if err := required(op, "a url", target); err != nil {
		return nil, err
	}
	r, err := c.post(ctx, c.baseURL+"/web", []byte(target), "text/plain")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if r.statusCode == http.StatusMultipleChoices {
		parsed := gjson.ParseBytes(r.body)
		res := &Result{
			Status:  StatusMultipleChoices,
			URL:     parsed.Get("url").String(),
			Session: parsed.Get("session").String(),
			Items:   json.RawMessage(parsed.Get("items").Raw),
		}
		if res.URL == "" {
			res.URL = target
		}
		if len(res.Items) == 0 {
			res.Items = json.RawMessage("{}")
		}
		return res, nil
	}
	if err := ensureOK(op, r); err != nil {
		return nil, err
	}
	return &Result{Status: StatusOK, Items: items(r.body)}, nil
}

// Selection is the follow-up to a multiple_choices reply.
type Selection struct {
	Session string          `json:"session"`
	Items   json.RawMessage `json:"items"`
	URL     string          `json:"url,omitempty"`
}

// SelectWeb completes a multiple-choice web translation.
func (c *Client) SelectWeb(ctx context.Context, sel Selection) (*Result, error) {
	const op = "translate_web_select"
	if strings.TrimSpace(sel.Session) == "" || len(bytes.TrimSpace(sel.Items)) == 0 {
		return nil, fmt.Errorf("%s requires session and items", op)
	}
	body, err := json.Marshal(sel)
	if err != nil {
		return nil, fmt.Errorf("%s: encode selection: %w", op, err)
	}
	r, err := c.post(ctx, c.baseURL+"/web", body, "application/json")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ensureOK(op, r); err != nil {
		return nil, err
	}
	return &Result{Status: StatusOK, Items: items(r.body)}, nil
}

// Search translates an identifier: DOI, ISBN, PMID or arXiv id.
func (c *Client) Search(ctx context.Context, identifier string) (*Result, error) {
	const op = "translate_search"
	if err := required(op, "an identifier", identifier); err != nil {
		return nil, err
	}
	r, err := c.post(ctx, c.baseURL+"/search", []byte(identifier), "text/plain")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ensureOK(op, r); err != nil {
		return nil, err
	}
	return &Result{Status: StatusOK, Items: items(r.body)}, nil
}

// Import converts bibliographic data (BibTeX, RIS, ...) into Zotero items.
// mimeType defaults to text/plain.
func (c *Client) Import(ctx context.Context, data, mimeType string) (*Result, error) {
	const op = "translate_import"
	if data == "" {
		return nil, fmt.Errorf("%s requires data", op)
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}
	r, err := c.post(ctx, c.baseURL+"/import", []byte(data), mimeType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ensureOK(op, r); err != nil {
		return nil, err
	}
	return &Result{Status: StatusOK, Items: items(r.body)}, nil
}

// Export renders Zotero items in format (bibtex, ris, csljson, ...).
// A nil items list exports an empty array.
func (c *Client) Export(ctx context.Context, itemsJSON json.RawMessage, format string) (*ExportResult, error) {
	const op = "export_items"
	if err := required(op, "format", format); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(itemsJSON)) == 0 || string(bytes.TrimSpace(itemsJSON)) == "null" {
		itemsJSON = json.RawMessage("[]")
	}
	target := c.baseURL + "/export?" + url.Values{"format": {format}}.Encode()
	r, err := c.post(ctx, target, itemsJSON, "application/json")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ensureOK(op, r); err != nil {
		return nil, err
	}
	return &ExportResult{Status: StatusOK, Output: string(r.body)}, nil
}
