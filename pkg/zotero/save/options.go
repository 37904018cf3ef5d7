package save

import (
	"encoding/json"

	"github.com/entrhq/zotbridge/pkg/zotero"
)

// Options controls one Save invocation. The zero value saves items and
// their PDF/EPUB attachments, consults attachment resolvers and skips the
// page snapshot.
type Options struct {
	// SessionID is generated when empty.
	SessionID string `json:"sessionID,omitempty"`

	// SaveAttachments defaults to true.
	SaveAttachments *bool `json:"saveAttachments,omitempty"`
	// UseAttachmentResolvers defaults to true unless AttachmentURLs is set.
	UseAttachmentResolvers *bool `json:"useAttachmentResolvers,omitempty"`

	SaveSnapshot  bool   `json:"saveSnapshot,omitempty"`
	SnapshotURL   string `json:"snapshotUrl,omitempty"`
	SnapshotTitle string `json:"snapshotTitle,omitempty"`

	UserAgent string `json:"userAgent,omitempty"`
	Cookie    string `json:"cookie,omitempty"`

	AttachmentURLs      []string `json:"attachmentUrls,omitempty"`
	AttachmentTitles    []string `json:"attachmentTitles,omitempty"`
	AttachmentMimeType  string   `json:"attachmentMimeType,omitempty"`
	AttachmentItemIndex *int     `json:"attachmentItemIndex,omitempty"`
	NoteParentIndex     *int     `json:"noteParentIndex,omitempty"`

	// Passed through to saveItems.
	URI             string          `json:"uri,omitempty"`
	DetailedCookies json.RawMessage `json:"detailedCookies,omitempty"`
	Proxy           json.RawMessage `json:"proxy,omitempty"`
	ClientVersion   string          `json:"clientVersion,omitempty"`
}

func (o Options) saveAttachments() bool {
	return o.SaveAttachments == nil || *o.SaveAttachments
}

func (o Options) useResolvers() bool {
	if o.UseAttachmentResolvers != nil {
		return *o.UseAttachmentResolvers
	}
	return len(o.AttachmentURLs) == 0
}

func (o Options) override() zotero.AttachmentOverride {
	return zotero.AttachmentOverride{
		URLs:      o.AttachmentURLs,
		Titles:    o.AttachmentTitles,
		MimeType:  o.AttachmentMimeType,
		ItemIndex: o.AttachmentItemIndex,
	}
}
