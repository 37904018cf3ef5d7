package save

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/entrhq/zotbridge/pkg/snapshot"
	"github.com/entrhq/zotbridge/pkg/zotero"
	"github.com/entrhq/zotbridge/pkg/zotero/connector"
)

// fakeConnector records calls and lets tests fail selected ones.
type fakeConnector struct {
	mu sync.Mutex

	saveErr     error
	fetchErr    map[string]error
	uploadErr   map[string]error
	hasResolver    map[string]bool
	hasResolverErr map[string]error
	resolverErr    error
	singleErr   error
	onSave      func()

	saved     []connector.SaveItemsRequest
	fetched   []string
	uploads   []connector.AttachmentUpload
	queried   []string
	resolved  []string
	checked   []string
	single    []connector.SingleFile
	ctxErrors []error
}

func (f *fakeConnector) note(ctx context.Context) {
	f.ctxErrors = append(f.ctxErrors, ctx.Err())
}

func (f *fakeConnector) SaveItems(ctx context.Context, req connector.SaveItemsRequest) (*connector.SaveItemsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, req)
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	if f.onSave != nil {
		f.onSave()
	}
	return &connector.SaveItemsResponse{StatusCode: http.StatusCreated}, nil
}

func (f *fakeConnector) Fetch(ctx context.Context, url string, _ connector.FetchOptions) (*connector.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note(ctx)
	f.fetched = append(f.fetched, url)
	if err := f.fetchErr[url]; err != nil {
		return nil, err
	}
	return &connector.Resource{URL: url, ContentType: "application/pdf", Data: []byte("%PDF-1.4 " + url)}, nil
}

func (f *fakeConnector) CheckContent(url, mimeType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, url)
	return nil
}

func (f *fakeConnector) UploadAttachment(ctx context.Context, s connector.Session, up connector.AttachmentUpload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note(ctx)
	f.uploads = append(f.uploads, up)
	return f.uploadErr[up.URL]
}

func (f *fakeConnector) HasResolver(ctx context.Context, s connector.Session, itemID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note(ctx)
	f.queried = append(f.queried, itemID)
	if err := f.hasResolverErr[itemID]; err != nil {
		return false, err
	}
	return f.hasResolver[itemID], nil
}

func (f *fakeConnector) SaveFromResolver(ctx context.Context, s connector.Session, itemID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note(ctx)
	f.resolved = append(f.resolved, itemID)
	return "", f.resolverErr
}

func (f *fakeConnector) SaveSingleFile(ctx context.Context, s connector.Session, sf connector.SingleFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.note(ctx)
	f.single = append(f.single, sf)
	return f.singleErr
}

type fakePages struct {
	calls []snapshot.Request
	page  *snapshot.Page
	err   error
}

func (p *fakePages) Capture(_ context.Context, req snapshot.Request) (*snapshot.Page, error) {
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	return p.page, nil
}

func newTestSaver(t *testing.T, conn Connector, pages snapshot.Capturer) *Saver {
	t.Helper()
	s, err := NewSaver(Config{Connector: conn, Pages: pages, IDs: &zotero.SequenceSource{Prefix: "id-"}})
	require.NoError(t, err)
	return s
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func pdf(url string) zotero.Attachment {
	return zotero.Attachment{URL: url, Title: "PDF", MimeType: "application/pdf"}
}

func TestNewSaverRequiresConnector(t *testing.T) {
	_, err := NewSaver(Config{})
	assert.Error(t, err)
}

func TestSaveRequiresItems(t *testing.T) {
	conn := &fakeConnector{}
	_, err := newTestSaver(t, conn, nil).Save(context.Background(), nil, Options{})

	var verr *zotero.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, conn.saved)
}

func TestSaveSubmitsPreparedSession(t *testing.T) {
	conn := &fakeConnector{}
	items := []zotero.Item{
		{ItemType: "journalArticle", Key: "ABCD", Title: "Paper"},
		{ItemType: zotero.ItemTypeNote, ParentItem: "ABCD", Note: "<p>summary</p>"},
	}

	res, err := newTestSaver(t, conn, nil).Save(context.Background(), items, Options{
		SessionID:       "session-1",
		URI:             "https://example.org/paper",
		Cookie:          "a=b",
		ClientVersion:   "agent/2",
		SaveAttachments: boolPtr(false),
	})
	require.NoError(t, err)

	require.Len(t, conn.saved, 1)
	req := conn.saved[0]
	assert.Equal(t, "session-1", req.SessionID)
	assert.Equal(t, "https://example.org/paper", req.URI)
	assert.Equal(t, "a=b", req.Cookie)
	assert.Equal(t, "agent/2", req.ClientVersion)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "id-1", req.Items[0].ID)
	if diff := cmp.Diff([]zotero.NoteEntry{{Note: "<p>summary</p>"}}, req.Items[0].Notes); diff != "" {
		t.Errorf("notes mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "session-1", res.SessionID)
	assert.Nil(t, res.Snapshot)
	assert.Empty(t, res.AttachmentErrors)
	assert.NotNil(t, res.AttachmentErrors)

	// The caller's items are not modified.
	assert.Empty(t, items[0].ID)
	assert.Len(t, items, 2)
}

func TestSaveGeneratesSessionID(t *testing.T) {
	conn := &fakeConnector{}
	res, err := newTestSaver(t, conn, nil).Save(context.Background(), []zotero.Item{{ItemType: "book"}}, Options{})
	require.NoError(t, err)

	assert.Equal(t, "id-1", res.SessionID)
	assert.Equal(t, "id-2", conn.saved[0].Items[0].ID)
}

func TestSaveRejected(t *testing.T) {
	conn := &fakeConnector{saveErr: &connector.RemoteRejection{StatusCode: 500, Body: "nope"}}

	res, err := newTestSaver(t, conn, nil).Save(context.Background(), []zotero.Item{
		{ItemType: "book", Attachments: []zotero.Attachment{pdf("https://x/a.pdf")}},
	}, Options{SaveSnapshot: true, SnapshotURL: "https://x"})

	assert.Nil(t, res)
	var rej *connector.RemoteRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 500, rej.StatusCode)
	assert.Empty(t, conn.fetched)
	assert.Empty(t, conn.single)
}

func TestFailingUploadDoesNotStopOthers(t *testing.T) {
	conn := &fakeConnector{
		uploadErr: map[string]error{"https://x/1.pdf": errors.New("connection reset")},
		fetchErr:  map[string]error{"https://x/3.pdf": &connector.RemoteFetchError{URL: "https://x/3.pdf", StatusCode: 403}},
	}
	items := []zotero.Item{
		{ItemType: "book", Attachments: []zotero.Attachment{pdf("https://x/1.pdf"), pdf("https://x/2.pdf")}},
		{ItemType: "book", Attachments: []zotero.Attachment{pdf("https://x/3.pdf"), pdf("https://x/4.pdf")}},
	}

	res, err := newTestSaver(t, conn, nil).Save(context.Background(), items, Options{UseAttachmentResolvers: boolPtr(false)})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://x/1.pdf", "https://x/2.pdf", "https://x/3.pdf", "https://x/4.pdf"}, conn.fetched)
	assert.Len(t, conn.uploads, 3)
	assert.Equal(t, 2, res.AttachmentsSaved)
	require.Len(t, res.AttachmentErrors, 2)
	assert.Equal(t, AttachmentError{URL: "https://x/1.pdf", Message: "connection reset"}, res.AttachmentErrors[0])
	assert.Equal(t, "https://x/3.pdf", res.AttachmentErrors[1].URL)
	assert.Contains(t, res.AttachmentErrors[1].Message, "403")
}

func TestAttachmentUploadsCarryParentAndSession(t *testing.T) {
	conn := &fakeConnector{}
	items := []zotero.Item{{ID: "item-9", ItemType: "book", Attachments: []zotero.Attachment{
		{URL: "https://x/a.epub", MimeType: "application/epub+zip"},
	}}}

	_, err := newTestSaver(t, conn, nil).Save(context.Background(), items, Options{SessionID: "s"})
	require.NoError(t, err)

	require.Len(t, conn.uploads, 1)
	up := conn.uploads[0]
	assert.Equal(t, "item-9", up.ParentItemID)
	assert.Equal(t, "https://x/a.epub", up.Title, "untitled attachments use their url")
	assert.Equal(t, "application/epub+zip", up.ContentType)
	assert.NotEmpty(t, up.ID)
}

func TestIneligibleAttachmentsAreSkipped(t *testing.T) {
	conn := &fakeConnector{}
	items := []zotero.Item{{ItemType: "webpage", Attachments: []zotero.Attachment{
		{URL: "https://x/page", MimeType: "text/html"},
		{URL: "https://x/link.pdf", MimeType: "application/pdf", Snapshot: boolPtr(false)},
		{MimeType: "application/pdf"},
	}}}

	res, err := newTestSaver(t, conn, nil).Save(context.Background(), items, Options{UseAttachmentResolvers: boolPtr(false)})
	require.NoError(t, err)
	assert.Empty(t, conn.fetched)
	assert.Zero(t, res.AttachmentsSaved)
}

func TestAttachmentOverride(t *testing.T) {
	conn := &fakeConnector{hasResolver: map[string]bool{"id-2": true}}
	items := []zotero.Item{{ItemType: "book"}, {ItemType: "book"}}

	res, err := newTestSaver(t, conn, nil).Save(context.Background(), items, Options{
		AttachmentURLs:      []string{"https://x/full.pdf"},
		AttachmentTitles:    []string{"Full Text"},
		AttachmentItemIndex: intPtr(1),
	})
	require.NoError(t, err)

	require.Len(t, conn.uploads, 1)
	assert.Equal(t, "Full Text", conn.uploads[0].Title)
	assert.Equal(t, "id-3", conn.uploads[0].ParentItemID)
	assert.Equal(t, 1, res.AttachmentsSaved)
	assert.Zero(t, res.ResolverAttempts, "resolvers default off with explicit attachment urls")
}

func TestResolvers(t *testing.T) {
	conn := &fakeConnector{
		hasResolver: map[string]bool{"a": true, "b": false, "c": true},
		resolverErr: errors.New("resolver timed out"),
	}
	items := []zotero.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	res, err := newTestSaver(t, conn, nil).Save(context.Background(), items, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.ResolverAttempts)
	assert.Equal(t, []string{"a", "c"}, conn.resolved)
	assert.Equal(t, []ResolverError{
		{ItemID: "a", Message: "resolver timed out"},
		{ItemID: "c", Message: "resolver timed out"},
	}, res.ResolverErrors)
}

func TestResolverLookupFailureIsRecorded(t *testing.T) {
	conn := &fakeConnector{
		hasResolver:    map[string]bool{"a": true, "c": true},
		hasResolverErr: map[string]error{"a": errors.New("connector unreachable")},
	}
	items := []zotero.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	res, err := newTestSaver(t, conn, nil).Save(context.Background(), items, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, conn.queried)
	assert.Equal(t, 1, res.ResolverAttempts)
	assert.Equal(t, []string{"c"}, conn.resolved)
	assert.Equal(t, []ResolverError{{ItemID: "a", Message: "connector unreachable"}}, res.ResolverErrors)
}

func TestResolversDisabledWithoutAttachments(t *testing.T) {
	conn := &fakeConnector{hasResolver: map[string]bool{"a": true}}

	res, err := newTestSaver(t, conn, nil).Save(context.Background(), []zotero.Item{{ID: "a"}}, Options{
		SaveAttachments:        boolPtr(false),
		UseAttachmentResolvers: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Zero(t, res.ResolverAttempts)
	assert.Empty(t, conn.resolved)
}

func TestSnapshotSkippedWithoutURL(t *testing.T) {
	conn := &fakeConnector{}
	pages := &fakePages{}

	res, err := newTestSaver(t, conn, pages).Save(context.Background(), []zotero.Item{{ItemType: "book", Title: "No URL"}}, Options{
		SaveSnapshot: true,
	})
	require.NoError(t, err)

	assert.Equal(t, &SnapshotOutcome{Skipped: true, Reason: SnapshotReasonNoURL}, res.Snapshot)
	assert.Empty(t, pages.calls)
	assert.Empty(t, conn.fetched)
	assert.Empty(t, conn.single)
}

func TestSnapshotSaved(t *testing.T) {
	conn := &fakeConnector{}
	pages := &fakePages{page: &snapshot.Page{HTML: "<html></html>", Title: "Landing Page"}}
	items := []zotero.Item{{ID: "p1", ItemType: "journalArticle", URL: "https://example.org/a", Title: "Item Title"}}

	res, err := newTestSaver(t, conn, pages).Save(context.Background(), items, Options{
		SaveSnapshot: true,
		UserAgent:    "ua",
	})
	require.NoError(t, err)

	assert.Equal(t, &SnapshotOutcome{Saved: true, URL: "https://example.org/a", Title: "Item Title", PageTitle: "Landing Page"}, res.Snapshot)
	require.Len(t, pages.calls, 1)
	assert.Equal(t, snapshot.Request{URL: "https://example.org/a", UserAgent: "ua"}, pages.calls[0])
	require.Len(t, conn.single, 1)
	assert.Equal(t, connector.SingleFile{
		URL:             "https://example.org/a",
		Title:           "Item Title",
		ParentItemID:    "p1",
		SnapshotContent: "<html></html>",
	}, conn.single[0])
}

func TestSnapshotOverridesAndFailures(t *testing.T) {
	items := []zotero.Item{{ID: "p1", ItemType: "book"}}

	t.Run("override url and title", func(t *testing.T) {
		conn := &fakeConnector{}
		pages := &fakePages{page: &snapshot.Page{HTML: "x"}}
		res, err := newTestSaver(t, conn, pages).Save(context.Background(), items, Options{
			SaveSnapshot:  true,
			SnapshotURL:   "https://override.example",
			SnapshotTitle: "Custom",
		})
		require.NoError(t, err)
		assert.True(t, res.Snapshot.Saved)
		assert.Equal(t, "Custom", conn.single[0].Title)
	})

	t.Run("title falls back to url", func(t *testing.T) {
		conn := &fakeConnector{}
		pages := &fakePages{page: &snapshot.Page{HTML: "x"}}
		_, err := newTestSaver(t, conn, pages).Save(context.Background(), items, Options{
			SaveSnapshot: true,
			SnapshotURL:  "https://override.example",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://override.example", conn.single[0].Title)
	})

	t.Run("capture error", func(t *testing.T) {
		conn := &fakeConnector{}
		pages := &fakePages{err: errors.New("page blocked")}
		res, err := newTestSaver(t, conn, pages).Save(context.Background(), items, Options{
			SaveSnapshot: true,
			SnapshotURL:  "https://override.example",
		})
		require.NoError(t, err)
		assert.Equal(t, &SnapshotOutcome{Error: "page blocked"}, res.Snapshot)
		assert.Empty(t, conn.single)
	})

	t.Run("upload error", func(t *testing.T) {
		conn := &fakeConnector{singleErr: errors.New("disk full")}
		pages := &fakePages{page: &snapshot.Page{HTML: "x"}}
		res, err := newTestSaver(t, conn, pages).Save(context.Background(), items, Options{
			SaveSnapshot: true,
			SnapshotURL:  "https://override.example",
		})
		require.NoError(t, err)
		assert.Equal(t, &SnapshotOutcome{Error: "disk full"}, res.Snapshot)
	})
}

func TestEnrichmentSurvivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := &fakeConnector{onSave: cancel, hasResolver: map[string]bool{}}
	pages := &fakePages{page: &snapshot.Page{HTML: "x"}}
	items := []zotero.Item{{ItemType: "book", URL: "https://x", Attachments: []zotero.Attachment{pdf("https://x/a.pdf")}}}

	res, err := newTestSaver(t, conn, pages).Save(ctx, items, Options{SaveSnapshot: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.AttachmentsSaved)
	assert.True(t, res.Snapshot.Saved)
	require.NotEmpty(t, conn.ctxErrors)
	for _, e := range conn.ctxErrors {
		assert.NoError(t, e)
	}
}

func TestDefaultPagesUseConnectorFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><head><title>Served</title></head></html>")
	}))
	defer srv.Close()

	real := connector.NewClient(connector.Options{})
	conn := &passThroughFetch{fakeConnector: &fakeConnector{}, client: real}
	s, err := NewSaver(Config{Connector: conn})
	require.NoError(t, err)

	res, err := s.Save(context.Background(), []zotero.Item{{ItemType: "webpage", URL: srv.URL}}, Options{SaveSnapshot: true})
	require.NoError(t, err)
	assert.Equal(t, "Served", res.Snapshot.PageTitle)
}

type passThroughFetch struct {
	*fakeConnector
	client *connector.Client
}

func (p *passThroughFetch) Fetch(ctx context.Context, url string, opts connector.FetchOptions) (*connector.Resource, error) {
	return p.client.Fetch(ctx, url, opts)
}

func TestSaveEndToEnd(t *testing.T) {
	var mu sync.Mutex
	var submitted []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/connector/saveItems":
			mu.Lock()
			submitted = body
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"items":[]}`)
		case "/connector/hasAttachmentResolvers":
			_, _ = io.WriteString(w, "false")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s, err := NewSaver(Config{Connector: connector.NewClient(connector.Options{BaseURL: srv.URL})})
	require.NoError(t, err)

	items, err := zotero.ParseItems([]byte(`[
		{"itemType": "journalArticle", "key": "PARENT01", "title": "Main"},
		{"itemType": "note", "parentItem": "PARENT01", "note": "<p>child</p>"}
	]`))
	require.NoError(t, err)

	res, err := s.Save(context.Background(), items, Options{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.JSONEq(t, `{"items":[]}`, string(res.Response))
	assert.Empty(t, res.ResolverErrors)

	mu.Lock()
	defer mu.Unlock()
	sent := gjson.ParseBytes(submitted)
	assert.Equal(t, res.SessionID, sent.Get("sessionID").String())
	require.Equal(t, int64(1), sent.Get("items.#").Int())
	assert.Equal(t, "PARENT01", sent.Get("items.0.key").String())
	assert.Equal(t, int64(1), sent.Get("items.0.notes.#").Int())
	assert.Equal(t, "<p>child</p>", sent.Get("items.0.notes.0.note").String())
	assert.NotEmpty(t, sent.Get("items.0.id").String())
}
