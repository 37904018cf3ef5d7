package connector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/zotbridge/pkg/zotero"
)

type recorded struct {
	method string
	path   string
	header http.Header
	body   []byte
}

type fakeConnector struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request, body []byte)
}

func newFakeConnector(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body []byte)) (*fakeConnector, *Client) {
	t.Helper()
	fc := &fakeConnector{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fc.mu.Lock()
		fc.requests = append(fc.requests, recorded{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: body})
		fc.mu.Unlock()
		fc.handler(w, r, body)
	}))
	t.Cleanup(srv.Close)
	return fc, NewClient(Options{BaseURL: srv.URL + "/", ClientVersion: "test-client"})
}

func (fc *fakeConnector) last(t *testing.T) recorded {
	t.Helper()
	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.NotEmpty(t, fc.requests)
	return fc.requests[len(fc.requests)-1]
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Options{})
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, DefaultAttachmentTimeout, c.attachmentTimeout)

	h := c.Headers("")
	assert.Equal(t, "3", h.Get("X-Zotero-Connector-API-Version"))
	assert.Equal(t, DefaultClientVersion, h.Get("X-Zotero-Version"))
	assert.Equal(t, "override", c.Headers("override").Get("X-Zotero-Version"))
}

func TestSaveItems(t *testing.T) {
	fc, c := newFakeConnector(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	resp, err := c.SaveItems(context.Background(), SaveItemsRequest{
		Items:     []zotero.Item{{ID: "a", ItemType: "book", Title: "T"}},
		SessionID: "sess",
		URI:       "https://example.org/paper",
		Proxy:     json.RawMessage(`{"toProxy":"x"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"items":[]}`, string(resp.Body))

	req := fc.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/connector/saveItems", req.path)
	assert.Equal(t, "3", req.header.Get("X-Zotero-Connector-API-Version"))
	assert.Equal(t, "test-client", req.header.Get("X-Zotero-Version"))
	assert.Equal(t, "application/json", req.header.Get("Content-Type"))
	assert.JSONEq(t, `{
		"items": [{"id":"a","itemType":"book","title":"T"}],
		"sessionID": "sess",
		"uri": "https://example.org/paper",
		"proxy": {"toProxy":"x"}
	}`, string(req.body))
}

func TestSaveItemsNonJSONReply(t *testing.T) {
	_, c := newFakeConnector(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusCreated)
	})

	resp, err := c.SaveItems(context.Background(), SaveItemsRequest{})
	require.NoError(t, err)
	assert.Nil(t, resp.Body)
}

func TestSaveItemsRejected(t *testing.T) {
	_, c := newFakeConnector(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		http.Error(w, "library is read-only", http.StatusInternalServerError)
	})

	_, err := c.SaveItems(context.Background(), SaveItemsRequest{SessionID: "s"})
	var rej *RemoteRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusInternalServerError, rej.StatusCode)
	assert.Equal(t, "library is read-only", rej.Body)
	assert.Contains(t, err.Error(), "zotero connector save failed (500)")
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/paper.pdf":
			assert.Equal(t, "agent/1.0", r.Header.Get("User-Agent"))
			assert.Equal(t, "sid=1", r.Header.Get("Cookie"))
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.7 body"))
		case "/moved":
			http.Redirect(w, r, "/paper.pdf", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := NewClient(Options{})

	res, err := c.Fetch(context.Background(), srv.URL+"/moved", FetchOptions{UserAgent: "agent/1.0", Cookie: "sid=1"})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/paper.pdf", res.URL)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.Equal(t, "%PDF-1.7 body", string(res.Data))

	_, err = c.Fetch(context.Background(), srv.URL+"/missing", FetchOptions{})
	var fetchErr *RemoteFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, srv.URL+"/missing", fetchErr.URL)
}

func TestUploadAttachment(t *testing.T) {
	fc, c := newFakeConnector(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusCreated)
	})

	err := c.UploadAttachment(context.Background(), Session{ID: "sess", ClientVersion: "v9"}, AttachmentUpload{
		URL:          "https://example.org/a.pdf",
		Title:        "Full Text café",
		ContentType:  "application/pdf",
		ParentItemID: "item-1",
		Data:         []byte("%PDF-1.4"),
	})
	require.NoError(t, err)

	req := fc.last(t)
	assert.Equal(t, "/connector/saveAttachment", req.path)
	assert.Equal(t, "application/pdf", req.header.Get("Content-Type"))
	assert.Equal(t, "v9", req.header.Get("X-Zotero-Version"))
	assert.Equal(t, "%PDF-1.4", string(req.body))

	var meta map[string]string
	require.NoError(t, json.Unmarshal([]byte(req.header.Get("X-Metadata")), &meta))
	assert.Equal(t, "sess", meta["sessionID"])
	assert.Equal(t, "item-1", meta["parentItemID"])
	assert.Equal(t, "https://example.org/a.pdf", meta["url"])
	assert.Equal(t, "=?UTF-8?Q?Full_Text_caf=C3=A9?=", meta["title"])
}

func TestUploadAttachmentFailure(t *testing.T) {
	_, c := newFakeConnector(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusBadRequest)
	})

	err := c.UploadAttachment(context.Background(), Session{ID: "s"}, AttachmentUpload{URL: "u"})
	var fetchErr *RemoteFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusBadRequest, fetchErr.StatusCode)
}

func TestHasResolver(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		reply   string
		want    bool
		wantErr bool
	}{
		{name: "true", status: http.StatusOK, reply: "true", want: true},
		{name: "false", status: http.StatusOK, reply: "false", want: false},
		{name: "garbage", status: http.StatusOK, reply: "<html>", wantErr: true},
		{name: "error status", status: http.StatusInternalServerError, reply: "boom", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, c := newFakeConnector(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.reply))
			})

			got, err := c.HasResolver(context.Background(), Session{ID: "sess"}, "item-1")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.JSONEq(t, `{"sessionID":"sess","itemID":"item-1"}`, string(fc.last(t).body))
		})
	}
}

func TestSaveFromResolver(t *testing.T) {
	fc, c := newFakeConnector(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		_, _ = w.Write([]byte(`"Unpaywall PDF"`))
	})

	title, err := c.SaveFromResolver(context.Background(), Session{ID: "sess"}, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "Unpaywall PDF", title)
	assert.Equal(t, "/connector/saveAttachmentFromResolver", fc.last(t).path)
}

func TestSaveSingleFile(t *testing.T) {
	fc, c := newFakeConnector(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.WriteHeader(http.StatusCreated)
	})

	err := c.SaveSingleFile(context.Background(), Session{ID: "sess"}, SingleFile{
		URL:             "https://example.org",
		Title:           "Example",
		ParentItemID:    "item-1",
		SnapshotContent: "<html></html>",
	})
	require.NoError(t, err)

	req := fc.last(t)
	assert.Equal(t, "/connector/saveSingleFile", req.path)
	assert.JSONEq(t, `{
		"sessionID": "sess",
		"url": "https://example.org",
		"title": "Example",
		"parentItemID": "item-1",
		"snapshotContent": "<html></html>"
	}`, string(req.body))
}
