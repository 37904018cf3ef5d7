package save

import (
	"encoding/json"

	"github.com/entrhq/zotbridge/pkg/zotero"
)

// Result reports what a Save did. Enrichment failures are listed here
// instead of failing the call.
type Result struct {
	StatusCode       int               `json:"statusCode"`
	SessionID        string            `json:"sessionID"`
	Response         json.RawMessage   `json:"response,omitempty"`
	AttachmentsSaved int               `json:"attachmentsSaved"`
	ResolverAttempts int               `json:"resolverAttempts"`
	Snapshot         *SnapshotOutcome  `json:"snapshot"`
	AttachmentErrors []AttachmentError `json:"attachmentErrors"`
	ResolverErrors   []ResolverError   `json:"resolverErrors"`

	// Items is the session as submitted to saveItems.
	Items []zotero.Item `json:"-"`
}

// AttachmentError is one attachment that could not be fetched or uploaded.
type AttachmentError struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// ResolverError is one item whose resolver check or resolver save failed.
type ResolverError struct {
	ItemID  string `json:"itemId"`
	Message string `json:"message"`
}

// SnapshotReasonNoURL marks a snapshot skipped because no page URL was known.
const SnapshotReasonNoURL = "no_url"

// SnapshotOutcome is exactly one of: saved, skipped or failed.
type SnapshotOutcome struct {
	Saved     bool   `json:"saved,omitempty"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	PageTitle string `json:"pageTitle,omitempty"`

	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`

	Error string `json:"error,omitempty"`
}
