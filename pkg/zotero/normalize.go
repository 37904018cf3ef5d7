package zotero

// DefaultAttachmentMimeType is applied to explicit attachment URLs that do not
// name a MIME type.
const DefaultAttachmentMimeType = "application/pdf"

// AttachmentOverride lists attachments a caller wants saved even though the
// translator never discovered them.
type AttachmentOverride struct {
	URLs     []string
	Titles   []string
	MimeType string
	// ItemIndex selects the receiving item. Nil means the first item.
	ItemIndex *int
}

// Normalize returns independent copies of items with the override applied.
// The input slice and its items are never modified.
func Normalize(items []Item, override AttachmentOverride) []Item {
	out := make([]Item, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	applyOverride(out, override)
	return out
}

func applyOverride(items []Item, override AttachmentOverride) {
	if len(override.URLs) == 0 {
		return
	}
	index := 0
	if override.ItemIndex != nil {
		index = *override.ItemIndex
	}
	if index < 0 || index >= len(items) {
		return
	}
	mimeType := override.MimeType
	if mimeType == "" {
		mimeType = DefaultAttachmentMimeType
	}
	target := &items[index]
	for i, url := range override.URLs {
		title := url
		if i < len(override.Titles) && override.Titles[i] != "" {
			title = override.Titles[i]
		}
		target.Attachments = append(target.Attachments, Attachment{
			URL:      url,
			Title:    title,
			MimeType: mimeType,
		})
	}
}
