// Package library writes items through the Zotero HTTP API, either the web
// API at api.zotero.org or the local API served by desktop Zotero.
package library

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

	"github.com/entrhq/zotbridge/pkg/zotero"
)

const (
	// APIVersion is sent as Zotero-API-Version.
	APIVersion = "3"
	// MaxBatch is the largest number of items the API accepts per write.
	MaxBatch = 50

	DefaultLocalURL = "http://127.0.0.1:23119/api"
	DefaultWebURL   = "https://api.zotero.org"
	DefaultTimeout  = 15 * time.Second
)

// Target names which API a Client talks to.
type Target string

const (
	TargetLocal Target = "local"
	TargetWeb   Target = "web"
)

// Options configures a Client.
type Options struct {
	Target     Target
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client writes items to one Zotero API.
type Client struct {
	target     Target
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient builds a Client. The API key is checked on Save so a client
// can be constructed before the key is configured.
func NewClient(opts Options) (*Client, error) {
	var baseURL string
	switch opts.Target {
	case TargetLocal:
		baseURL = DefaultLocalURL
	case TargetWeb:
		baseURL = DefaultWebURL
	default:
		return nil, fmt.Errorf("unknown zotero target %q", opts.Target)
	}
	if u := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); u != "" {
		baseURL = u
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		target:     opts.Target,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		timeout:    timeout,
		httpClient: httpClient,
	}, nil
}

// SaveError is an API reply with status >= 400.
type SaveError struct {
	Target     Target
	StatusCode int
	Body       string
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("zotero %s save failed (%d): %s", e.Target, e.StatusCode, e.Body)
}

// SaveOptions selects the library and collection to write to.
type SaveOptions struct {
	// LibraryType is users or groups. Defaults to users.
	LibraryType string
	// LibraryID defaults to 0 (the local user) on the local API and is
	// required on the web API.
	LibraryID string
	// CollectionKey, when set, is added to every item's collections.
	CollectionKey string
}

// Result aggregates the replies of every batch written.
type Result struct {
	StatusCode int               `json:"statusCode"`
	Batches    int               `json:"batches"`
	Successful int               `json:"successful"`
	Failed     map[string]string `json:"failed,omitempty"`
	Response   []json.RawMessage `json:"response"`
}

// Save writes items in batches of MaxBatch. The first failing batch aborts
// the save; batches already written stay written.
func (c *Client) Save(ctx context.Context, items []zotero.Item, opts SaveOptions) (*Result, error) {
	if c.apiKey == "" {
		return nil, &zotero.ValidationError{Field: "apiKey", Message: fmt.Sprintf("an API key is required for the zotero %s API", c.target)}
	}
	if len(items) == 0 {
		return nil, &zotero.ValidationError{Field: "items", Message: "at least one item is required"}
	}
	path, err := c.itemsPath(opts)
	if err != nil {
		return nil, err
	}

	payload, err := withCollection(items, opts.CollectionKey)
	if err != nil {
		return nil, err
	}

	res := &Result{Response: []json.RawMessage{}}
	for start := 0; start < len(payload); start += MaxBatch {
		end := min(start+MaxBatch, len(payload))
		if err := c.writeBatch(ctx, path, payload[start:end], start, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (c *Client) itemsPath(opts SaveOptions) (string, error) {
	libraryType := strings.TrimSpace(opts.LibraryType)
	switch libraryType {
	case "", "user", "users":
		libraryType = "users"
	case "group", "groups":
		libraryType = "groups"
	default:
		return "", &zotero.ValidationError{Field: "libraryType", Message: fmt.Sprintf("must be users or groups, got %q", opts.LibraryType)}
	}
	libraryID := strings.TrimSpace(opts.LibraryID)
	if libraryID == "" {
		if c.target == TargetWeb {
			return "", &zotero.ValidationError{Field: "libraryId", Message: "required for the web API"}
		}
		libraryID = "0"
	}
	return "/" + libraryType + "/" + url.PathEscape(libraryID) + "/items", nil
}

// withCollection returns copies of items carrying collectionKey in their
// collections exactly once.
func withCollection(items []zotero.Item, collectionKey string) ([]zotero.Item, error) {
	out := make([]zotero.Item, len(items))
	for i := range items {
		out[i] = items[i].Clone()
		if collectionKey == "" {
			continue
		}
		var collections []string
		if raw, ok := out[i].Field("collections"); ok {
			if err := json.Unmarshal(raw, &collections); err != nil {
				return nil, &zotero.ValidationError{Field: "collections", Message: "must be an array of collection keys"}
			}
		}
		if !contains(collections, collectionKey) {
			collections = append(collections, collectionKey)
		}
		if err := out[i].SetField("collections", collections); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (c *Client) writeBatch(ctx context.Context, path string, batch []zotero.Item, offset int, res *Result) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Zotero-API-Key", c.apiKey)
	req.Header.Set("Zotero-API-Version", APIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zotero %s save: %w", c.target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &SaveError{Target: c.target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	res.StatusCode = resp.StatusCode
	res.Batches++
	if !gjson.ValidBytes(data) {
		return nil
	}
	res.Response = append(res.Response, json.RawMessage(data))

	// Write replies index items by their position in the batch.
	parsed := gjson.ParseBytes(data)
	res.Successful += len(parsed.Get("successful").Map())
	parsed.Get("failed").ForEach(func(key, value gjson.Result) bool {
		if res.Failed == nil {
			res.Failed = make(map[string]string)
		}
		idx := int(key.Int()) + offset
		res.Failed[fmt.Sprint(idx)] = value.Get("message").String()
		return true
	})
	return nil
}
