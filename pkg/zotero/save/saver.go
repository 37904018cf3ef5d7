package save

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/zotbridge/pkg/logging"
	"github.com/entrhq/zotbridge/pkg/snapshot"
	"github.com/entrhq/zotbridge/pkg/zotero"
	"github.com/entrhq/zotbridge/pkg/zotero/connector"
)

var debugLog = logging.Component("save")

// Connector is the subset of the connector client a save uses.
type Connector interface {
	SaveItems(ctx context.Context, req connector.SaveItemsRequest) (*connector.SaveItemsResponse, error)
	Fetch(ctx context.Context, url string, opts connector.FetchOptions) (*connector.Resource, error)
	CheckContent(url, mimeType string, data []byte) error
	UploadAttachment(ctx context.Context, s connector.Session, up connector.AttachmentUpload) error
	HasResolver(ctx context.Context, s connector.Session, itemID string) (bool, error)
	SaveFromResolver(ctx context.Context, s connector.Session, itemID string) (string, error)
	SaveSingleFile(ctx context.Context, s connector.Session, f connector.SingleFile) error
}

// Config wires a Saver.
type Config struct {
	Connector Connector
	// Pages captures snapshot HTML. Defaults to a plain HTTP capture through
	// Connector.Fetch.
	Pages snapshot.Capturer
	// IDs issues item, attachment and session ids. Defaults to UUIDs.
	IDs zotero.IDSource
}

// Saver performs connector saves. It holds no per-save state and is safe
// for concurrent use.
type Saver struct {
	conn  Connector
	pages snapshot.Capturer
	ids   zotero.IDSource
}

// NewSaver builds a Saver from cfg.
func NewSaver(cfg Config) (*Saver, error) {
	if cfg.Connector == nil {
		return nil, errors.New("save: connector is required")
	}
	pages := cfg.Pages
	if pages == nil {
		pages = snapshot.NewHTTPCapturer(cfg.Connector)
	}
	ids := cfg.IDs
	if ids == nil {
		ids = zotero.DefaultIDSource
	}
	return &Saver{conn: cfg.Connector, pages: pages, ids: ids}, nil
}

// Save submits items to the connector and enriches the session.
//
// The returned error is non-nil only for invalid input or a failed submit.
// Once the submit succeeds, the enrichment steps run to completion even if
// ctx is cancelled; each network call is bounded by the connector timeouts.
func (s *Saver) Save(ctx context.Context, items []zotero.Item, opts Options) (*Result, error) {
	if len(items) == 0 {
		return nil, &zotero.ValidationError{Field: "items", Message: "at least one item is required"}
	}

	r := &run{saver: s, opts: opts}
	r.prepare(items)
	if err := r.submit(ctx); err != nil {
		return nil, err
	}

	enrichCtx := context.WithoutCancel(ctx)
	r.attachments(enrichCtx)
	r.resolvers(enrichCtx)
	r.snapshot(enrichCtx)
	r.advance(StageDone)

	debugLog.Infof("session %s saved: %d items, %d attachments, %d attachment errors, %d resolver errors",
		r.result.SessionID, len(r.result.Items), r.result.AttachmentsSaved,
		len(r.result.AttachmentErrors), len(r.result.ResolverErrors))
	return r.result, nil
}

// run is the state of one Save invocation.
type run struct {
	saver   *Saver
	opts    Options
	stage   Stage
	session connector.Session
	items   []zotero.Item
	result  *Result
}

func (r *run) advance(next Stage) {
	debugLog.Debugf("session %s: %s -> %s", r.session.ID, r.stage, next)
	r.stage = next
}

func (r *run) prepare(items []zotero.Item) {
	sessionID := r.opts.SessionID
	if sessionID == "" {
		sessionID = r.saver.ids.NewID()
	}
	r.session = connector.Session{ID: sessionID, ClientVersion: r.opts.ClientVersion}

	normalized := zotero.Normalize(items, r.opts.override())
	r.advance(StageNormalized)

	zotero.AssignIdentities(normalized, r.saver.ids)
	r.advance(StageLinked)

	r.items = zotero.MergeNotes(normalized, zotero.MergeOptions{ParentIndex: r.opts.NoteParentIndex})
	r.advance(StageNotesMerged)

	r.result = &Result{
		SessionID:        sessionID,
		AttachmentErrors: []AttachmentError{},
		ResolverErrors:   []ResolverError{},
		Items:            r.items,
	}
}

func (r *run) submit(ctx context.Context) error {
	resp, err := r.saver.conn.SaveItems(ctx, connector.SaveItemsRequest{
		Items:           r.items,
		SessionID:       r.session.ID,
		URI:             r.opts.URI,
		Cookie:          r.opts.Cookie,
		DetailedCookies: r.opts.DetailedCookies,
		Proxy:           r.opts.Proxy,
		ClientVersion:   r.opts.ClientVersion,
	})
	if err != nil {
		debugLog.Errorf("session %s: saveItems failed: %v", r.session.ID, err)
		return fmt.Errorf("save items: %w", err)
	}
	r.result.StatusCode = resp.StatusCode
	r.result.Response = resp.Body
	r.advance(StageSubmitted)
	return nil
}

func (r *run) fetchOptions() connector.FetchOptions {
	return connector.FetchOptions{UserAgent: r.opts.UserAgent, Cookie: r.opts.Cookie}
}

func (r *run) attachments(ctx context.Context) {
	defer r.advance(StageAttachmentsProcessed)
	if !r.opts.saveAttachments() {
		return
	}
	for i := range r.items {
		item := &r.items[i]
		for j := range item.Attachments {
			att := &item.Attachments[j]
			if !eligible(att) {
				continue
			}
			if err := r.saveAttachment(ctx, item, att); err != nil {
				debugLog.Warnf("session %s: attachment %s failed: %v", r.session.ID, att.URL, err)
				r.result.AttachmentErrors = append(r.result.AttachmentErrors, AttachmentError{
					URL:     att.URL,
					Message: err.Error(),
				})
				continue
			}
			r.result.AttachmentsSaved++
		}
	}
}

// eligible reports whether the pipeline downloads the attachment itself.
func eligible(att *zotero.Attachment) bool {
	if att.URL == "" {
		return false
	}
	if att.Snapshot != nil && !*att.Snapshot {
		return false
	}
	return connector.IsDownloadable(att.MimeType)
}

func (r *run) saveAttachment(ctx context.Context, item *zotero.Item, att *zotero.Attachment) error {
	res, err := r.saver.conn.Fetch(ctx, att.URL, r.fetchOptions())
	if err != nil {
		return err
	}
	if err := r.saver.conn.CheckContent(att.URL, att.MimeType, res.Data); err != nil {
		return err
	}
	parent := att.ParentItem
	if parent == "" {
		parent = item.ID
	}
	title := att.Title
	if title == "" {
		title = att.URL
	}
	return r.saver.conn.UploadAttachment(ctx, r.session, connector.AttachmentUpload{
		ID:           r.saver.ids.NewID(),
		URL:          att.URL,
		Title:        title,
		ContentType:  att.MimeTypeLower(),
		ParentItemID: parent,
		Data:         res.Data,
	})
}

func (r *run) resolvers(ctx context.Context) {
	if !r.opts.saveAttachments() || !r.opts.useResolvers() {
		return
	}
	for i := range r.items {
		item := &r.items[i]
		if item.IsNote() {
			continue
		}
		ok, err := r.saver.conn.HasResolver(ctx, r.session, item.ID)
		if err != nil {
			r.resolverError(item.ID, err)
			continue
		}
		if !ok {
			continue
		}
		r.result.ResolverAttempts++
		if _, err := r.saver.conn.SaveFromResolver(ctx, r.session, item.ID); err != nil {
			r.resolverError(item.ID, err)
		}
	}
}

func (r *run) resolverError(itemID string, err error) {
	debugLog.Warnf("session %s: resolver for %s failed: %v", r.session.ID, itemID, err)
	r.result.ResolverErrors = append(r.result.ResolverErrors, ResolverError{ItemID: itemID, Message: err.Error()})
}

func (r *run) snapshot(ctx context.Context) {
	defer r.advance(StageSnapshotProcessed)
	if !r.opts.SaveSnapshot {
		return
	}
	r.result.Snapshot = r.captureSnapshot(ctx)
}

func (r *run) captureSnapshot(ctx context.Context) *SnapshotOutcome {
	var first *zotero.Item
	if len(r.items) > 0 {
		first = &r.items[0]
	}

	url := r.opts.SnapshotURL
	if url == "" && first != nil {
		url = first.URL
	}
	if url == "" {
		return &SnapshotOutcome{Skipped: true, Reason: SnapshotReasonNoURL}
	}

	page, err := r.saver.pages.Capture(ctx, snapshot.Request{
		URL:       url,
		UserAgent: r.opts.UserAgent,
		Cookie:    r.opts.Cookie,
	})
	if err != nil {
		debugLog.Warnf("session %s: snapshot capture of %s failed: %v", r.session.ID, url, err)
		return &SnapshotOutcome{Error: err.Error()}
	}

	title := r.opts.SnapshotTitle
	if title == "" && first != nil {
		title = first.Title
	}
	if title == "" {
		title = url
	}
	var parent string
	if first != nil {
		parent = first.ID
	}

	err = r.saver.conn.SaveSingleFile(ctx, r.session, connector.SingleFile{
		URL:             url,
		Title:           title,
		ParentItemID:    parent,
		SnapshotContent: page.HTML,
	})
	if err != nil {
		debugLog.Warnf("session %s: snapshot upload failed: %v", r.session.ID, err)
		return &SnapshotOutcome{Error: err.Error()}
	}
	return &SnapshotOutcome{Saved: true, URL: url, Title: title, PageTitle: page.Title}
}
