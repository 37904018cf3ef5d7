package connector

import "fmt"

// RemoteRejection is returned when the connector answers saveItems with an
// error status. The save did not happen.
type RemoteRejection struct {
	StatusCode int
	Body       string
}

func (e *RemoteRejection) Error() string {
	return fmt.Sprintf("zotero connector save failed (%d): %s", e.StatusCode, e.Body)
}

// RemoteFetchError is returned when a resource download or a side-channel
// call answers with status >= 400.
type RemoteFetchError struct {
	URL        string
	StatusCode int
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}

// ContentError reports downloaded bytes that do not match the declared
// attachment type, typically a login or paywall page served instead of the
// file.
type ContentError struct {
	URL      string
	MimeType string
	Reason   string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Reason)
}
