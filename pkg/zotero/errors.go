package zotero

import "fmt"

// ValidationError reports caller input that cannot be processed. It is
// raised before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Message)
	}
	return fmt.Sprintf("invalid input (%s): %s", e.Field, e.Message)
}
