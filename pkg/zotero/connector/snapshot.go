package connector

import (
	"context"
	"encoding/json"
	"fmt"
)

const saveSingleFilePath = "/connector/saveSingleFile"

// SingleFile is an HTML page snapshot tied to a saved item.
type SingleFile struct {
	URL             string
	Title           string
	ParentItemID    string
	SnapshotContent string
}

type singleFileRequest struct {
	SessionID       string `json:"sessionID"`
	URL             string `json:"url"`
	Title           string `json:"title"`
	ParentItemID    string `json:"parentItemID,omitempty"`
	SnapshotContent string `json:"snapshotContent"`
}

// SaveSingleFile submits an HTML snapshot for the session.
func (c *Client) SaveSingleFile(ctx context.Context, s Session, f SingleFile) error {
	body, err := json.Marshal(singleFileRequest{
		SessionID:       s.ID,
		URL:             f.URL,
		Title:           f.Title,
		ParentItemID:    f.ParentItemID,
		SnapshotContent: f.SnapshotContent,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	r, err := c.post(ctx, call{
		path:        saveSingleFilePath,
		body:        body,
		contentType: "application/json",
		header:      c.Headers(s.ClientVersion),
		timeout:     c.attachmentTimeout,
	})
	if err != nil {
		return err
	}
	return c.expectOK(saveSingleFilePath, r)
}
