package connector

import (
	"context"
	"encoding/json"

	"github.com/entrhq/zotbridge/pkg/zotero"
)

const saveItemsPath = "/connector/saveItems"

// SaveItemsRequest is the saveItems payload. Optional members are omitted
// when empty.
type SaveItemsRequest struct {
	Items           []zotero.Item   `json:"items"`
	SessionID       string          `json:"sessionID,omitempty"`
	URI             string          `json:"uri,omitempty"`
	Cookie          string          `json:"cookie,omitempty"`
	DetailedCookies json.RawMessage `json:"detailedCookies,omitempty"`
	Proxy           json.RawMessage `json:"proxy,omitempty"`

	// ClientVersion overrides X-Zotero-Version for this call.
	ClientVersion string `json:"-"`
}

// SaveItemsResponse is the connector acknowledgement.
type SaveItemsResponse struct {
	StatusCode int
	// Body is the reply when it is JSON, nil otherwise.
	Body json.RawMessage
}

// SaveItems submits a session of items. A status >= 400 is returned as
// *RemoteRejection.
func (c *Client) SaveItems(ctx context.Context, req SaveItemsRequest) (*SaveItemsResponse, error) {
	if req.Items == nil {
		req.Items = []zotero.Item{}
	}
	r, err := c.postJSON(ctx, saveItemsPath, req, req.ClientVersion)
	if err != nil {
		return nil, err
	}
	if r.statusCode >= 400 {
		return nil, &RemoteRejection{StatusCode: r.statusCode, Body: truncate(r.body)}
	}
	resp := &SaveItemsResponse{StatusCode: r.statusCode}
	if json.Valid(r.body) {
		resp.Body = json.RawMessage(r.body)
	}
	return resp, nil
}
