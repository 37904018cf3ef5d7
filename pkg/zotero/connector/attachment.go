package connector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

const (
	saveAttachmentPath       = "/connector/saveAttachment"
	hasResolversPath         = "/connector/hasAttachmentResolvers"
	saveFromResolverPath     = "/connector/saveAttachmentFromResolver"
	attachmentMetadataHeader = "X-Metadata"
)

// Session identifies the save session side-channel calls belong to.
type Session struct {
	ID string
	// ClientVersion overrides X-Zotero-Version when non-empty.
	ClientVersion string
}

// AttachmentUpload is one binary file handed to saveAttachment.
type AttachmentUpload struct {
	ID           string
	URL          string
	Title        string
	ContentType  string
	ParentItemID string
	Data         []byte
}

type attachmentMetadata struct {
	SessionID    string `json:"sessionID"`
	ID           string `json:"id,omitempty"`
	URL          string `json:"url"`
	ContentType  string `json:"contentType"`
	ParentItemID string `json:"parentItemID"`
	Title        string `json:"title"`
}

// UploadAttachment posts the file body with its metadata in the X-Metadata
// header. Non-ASCII titles are sent as RFC 2047 encoded-words.
func (c *Client) UploadAttachment(ctx context.Context, s Session, up AttachmentUpload) error {
	meta, err := json.Marshal(attachmentMetadata{
		SessionID:    s.ID,
		ID:           up.ID,
		URL:          up.URL,
		ContentType:  up.ContentType,
		ParentItemID: up.ParentItemID,
		Title:        EncodeHeaderWord(up.Title),
	})
	if err != nil {
		return fmt.Errorf("encode attachment metadata: %w", err)
	}
	header := c.Headers(s.ClientVersion)
	header.Set(attachmentMetadataHeader, string(meta))

	r, err := c.post(ctx, call{
		path:        saveAttachmentPath,
		body:        up.Data,
		contentType: up.ContentType,
		header:      header,
		timeout:     c.attachmentTimeout,
	})
	if err != nil {
		return err
	}
	return c.expectOK(saveAttachmentPath, r)
}

type resolverRequest struct {
	SessionID string `json:"sessionID"`
	ItemID    string `json:"itemID"`
}

// HasResolver asks whether Zotero knows a resolver (Unpaywall, DOI, ...) that
// can find a file for the item.
func (c *Client) HasResolver(ctx context.Context, s Session, itemID string) (bool, error) {
	r, err := c.postJSON(ctx, hasResolversPath, resolverRequest{SessionID: s.ID, ItemID: itemID}, s.ClientVersion)
	if err != nil {
		return false, err
	}
	if err := c.expectOK(hasResolversPath, r); err != nil {
		return false, err
	}
	if !gjson.ValidBytes(r.body) {
		return false, fmt.Errorf("unexpected %s reply: %q", hasResolversPath, truncate(r.body))
	}
	return gjson.ParseBytes(r.body).Bool(), nil
}

// SaveFromResolver asks Zotero to fetch and attach a file for the item
// through its resolvers. The returned string is the attachment title Zotero
// reports, if any.
func (c *Client) SaveFromResolver(ctx context.Context, s Session, itemID string) (string, error) {
	body, err := json.Marshal(resolverRequest{SessionID: s.ID, ItemID: itemID})
	if err != nil {
		return "", fmt.Errorf("encode resolver request: %w", err)
	}
	r, err := c.post(ctx, call{
		path:        saveFromResolverPath,
		body:        body,
		contentType: "application/json",
		header:      c.Headers(s.ClientVersion),
		timeout:     c.attachmentTimeout,
	})
	if err != nil {
		return "", err
	}
	if err := c.expectOK(saveFromResolverPath, r); err != nil {
		return "", err
	}
	res := gjson.ParseBytes(r.body)
	if res.Type == gjson.String {
		return res.String(), nil
	}
	return res.Get("title").String(), nil
}
