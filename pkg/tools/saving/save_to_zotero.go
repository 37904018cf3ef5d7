// Package saving exposes save_to_zotero, which writes Zotero item JSON to
// the desktop connector, the local API or the web API.
package saving

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/zotbridge/pkg/logging"
	"github.com/entrhq/zotbridge/pkg/tools"
	"github.com/entrhq/zotbridge/pkg/zotero"
	"github.com/entrhq/zotbridge/pkg/zotero/library"
	"github.com/entrhq/zotbridge/pkg/zotero/save"
)

var debugLog = logging.Component("tools")

// Save targets.
const (
	TargetConnector = "connector"
	TargetLocal     = "local"
	TargetWeb       = "web"
)

// ConnectorSaver runs a connector save session.
type ConnectorSaver interface {
	Save(ctx context.Context, items []zotero.Item, opts save.Options) (*save.Result, error)
}

// LibrarySaver writes items through a Zotero API.
type LibrarySaver interface {
	Save(ctx context.Context, items []zotero.Item, opts library.SaveOptions) (*library.Result, error)
}

// Config binds the tool to its backends. A nil backend makes its target
// fail with an error.
type Config struct {
	Connector ConnectorSaver
	Local     LibrarySaver
	Web       LibrarySaver
}

type saveArgs struct {
	Items  any    `json:"items" jsonschema:"oneof_type=array;object" jsonschema_description:"Zotero item JSON: a single item or an array of items"`
	Target string `json:"target,omitempty" jsonschema:"enum=connector,enum=local,enum=web" jsonschema_description:"Target Zotero API (connector, local, or web). Defaults to connector"`

	LibraryType   string `json:"libraryType,omitempty" jsonschema_description:"users or groups (local/web)"`
	LibraryID     string `json:"libraryId,omitempty" jsonschema_description:"Library ID (required for web)"`
	CollectionKey string `json:"collectionKey,omitempty" jsonschema_description:"Optional Zotero collection key (local/web)"`

	SessionID              string   `json:"sessionID,omitempty" jsonschema_description:"Connector session ID (optional)"`
	SaveAttachments        *bool    `json:"saveAttachments,omitempty" jsonschema_description:"Download and upload PDF/EPUB attachments (default true)"`
	UseAttachmentResolvers *bool    `json:"useAttachmentResolvers,omitempty" jsonschema_description:"Ask Zotero's attachment resolvers for full text (default true unless attachmentUrls is set)"`
	SaveSnapshot           bool     `json:"saveSnapshot,omitempty" jsonschema_description:"Capture and attach an HTML snapshot of the page"`
	SnapshotURL            string   `json:"snapshotUrl,omitempty" jsonschema_description:"Page to snapshot (defaults to the first item's url)"`
	SnapshotTitle          string   `json:"snapshotTitle,omitempty" jsonschema_description:"Snapshot attachment title"`
	UserAgent              string   `json:"userAgent,omitempty" jsonschema_description:"User-Agent for attachment and snapshot downloads"`
	Cookie                 string   `json:"cookie,omitempty" jsonschema_description:"Cookie header value for connector save and downloads (optional)"`
	AttachmentURLs         []string `json:"attachmentUrls,omitempty" jsonschema_description:"Extra attachment URLs to save"`
	AttachmentTitles       []string `json:"attachmentTitles,omitempty" jsonschema_description:"Titles for attachmentUrls, by position"`
	AttachmentMimeType     string   `json:"attachmentMimeType,omitempty" jsonschema_description:"MIME type for attachmentUrls (default application/pdf)"`
	AttachmentItemIndex    *int     `json:"attachmentItemIndex,omitempty" jsonschema_description:"Index of the item receiving attachmentUrls (default 0)"`
	NoteParentIndex        *int     `json:"noteParentIndex,omitempty" jsonschema_description:"Index of the item receiving unmatched notes"`
	URI                    string   `json:"uri,omitempty" jsonschema_description:"Source URL for connector cookie sandbox (optional)"`
	DetailedCookies        any      `json:"detailedCookies,omitempty" jsonschema_description:"Detailed cookies for connector save (optional)"`
	Proxy                  any      `json:"proxy,omitempty" jsonschema_description:"Proxy identifier for connector save (optional)"`
	ClientVersion          string   `json:"clientVersion,omitempty" jsonschema_description:"Connector client version header override"`
}

// SaveToZoteroTool saves items to Zotero.
type SaveToZoteroTool struct {
	cfg    Config
	schema map[string]interface{}
}

// NewSaveToZoteroTool creates a SaveToZoteroTool.
func NewSaveToZoteroTool(cfg Config) *SaveToZoteroTool {
	return &SaveToZoteroTool{cfg: cfg, schema: tools.GenerateSchema[saveArgs]()}
}

// Name returns the tool name.
func (t *SaveToZoteroTool) Name() string {
	return "save_to_zotero"
}

// Description returns the tool description.
func (t *SaveToZoteroTool) Description() string {
	return "Save Zotero item JSON to Zotero Desktop (connector/local) or Zotero Web. " +
		"Connector saves also fetch PDF/EPUB attachments, merge child notes and can attach a page snapshot."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *SaveToZoteroTool) Schema() map[string]interface{} {
	return t.schema
}

// Execute saves the items to the selected target.
func (t *SaveToZoteroTool) Execute(ctx context.Context, args json.RawMessage) (string, map[string]interface{}, error) {
	in, err := tools.DecodeArgs[saveArgs](args)
	if err != nil {
		return "", nil, err
	}
	raw, err := tools.RawJSON(in.Items)
	if err != nil {
		return "", nil, err
	}
	items, err := zotero.ParseItems(raw)
	if err != nil {
		return "", nil, err
	}

	target := in.Target
	if target == "" {
		target = TargetConnector
	}
	metadata := map[string]interface{}{"target": target, "items": len(items)}

	var result any
	switch target {
	case TargetConnector:
		result, err = t.saveConnector(ctx, items, in)
	case TargetLocal:
		result, err = saveLibrary(ctx, t.cfg.Local, target, items, in)
	case TargetWeb:
		result, err = saveLibrary(ctx, t.cfg.Web, target, items, in)
	default:
		err = &zotero.ValidationError{Field: "target", Message: fmt.Sprintf("unknown Zotero target: %s", target)}
	}
	if err != nil {
		debugLog.Warnf("save_to_zotero (%s) failed: %v", target, err)
		return "", metadata, err
	}

	text, err := tools.ResultText(result)
	if err != nil {
		return "", metadata, err
	}
	return text, metadata, nil
}

func (t *SaveToZoteroTool) saveConnector(ctx context.Context, items []zotero.Item, in saveArgs) (*save.Result, error) {
	if t.cfg.Connector == nil {
		return nil, fmt.Errorf("zotero target %s is not configured", TargetConnector)
	}
	detailedCookies, err := tools.RawJSON(in.DetailedCookies)
	if err != nil {
		return nil, err
	}
	proxy, err := tools.RawJSON(in.Proxy)
	if err != nil {
		return nil, err
	}
	return t.cfg.Connector.Save(ctx, items, save.Options{
		SessionID:              in.SessionID,
		SaveAttachments:        in.SaveAttachments,
		UseAttachmentResolvers: in.UseAttachmentResolvers,
		SaveSnapshot:           in.SaveSnapshot,
		SnapshotURL:            in.SnapshotURL,
		SnapshotTitle:          in.SnapshotTitle,
		UserAgent:              in.UserAgent,
		Cookie:                 in.Cookie,
		AttachmentURLs:         in.AttachmentURLs,
		AttachmentTitles:       in.AttachmentTitles,
		AttachmentMimeType:     in.AttachmentMimeType,
		AttachmentItemIndex:    in.AttachmentItemIndex,
		NoteParentIndex:        in.NoteParentIndex,
		URI:                    in.URI,
		DetailedCookies:        detailedCookies,
		Proxy:                  proxy,
		ClientVersion:          in.ClientVersion,
	})
}

func saveLibrary(ctx context.Context, dst LibrarySaver, target string, items []zotero.Item, in saveArgs) (*library.Result, error) {
	if dst == nil {
		return nil, fmt.Errorf("zotero target %s is not configured", target)
	}
	return dst.Save(ctx, items, library.SaveOptions{
		LibraryType:   in.LibraryType,
		LibraryID:     in.LibraryID,
		CollectionKey: in.CollectionKey,
	})
}
