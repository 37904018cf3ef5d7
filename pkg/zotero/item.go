package zotero

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ItemTypeNote is the itemType of a standalone note record.
const ItemTypeNote = "note"

// Item is one bibliographic record in Zotero item JSON.
//
// The members the save pipeline reads or rewrites are lifted into fields.
// Everything else (creators, dates, identifiers, collections, ...) is kept
// verbatim in Extra and written back when the item is marshaled, so an item
// survives decode/encode without loss.
type Item struct {
	ID          string
	ItemType    string
	Key         string
	ParentItem  string
	URL         string
	Title       string
	Note        string
	NoteContent string
	Tags        json.RawMessage
	Attachments []Attachment
	Notes       []NoteEntry

	Extra map[string]json.RawMessage
}

// Attachment is a file reference owned by an Item.
type Attachment struct {
	URL        string
	Title      string
	MimeType   string
	ParentItem string
	// Snapshot is nil when the member is absent. An explicit false marks a
	// link-only attachment that must not be downloaded.
	Snapshot *bool

	Extra map[string]json.RawMessage
}

// NoteEntry is a child note stored in an item's notes collection.
type NoteEntry struct {
	Note string          `json:"note"`
	Tags json.RawMessage `json:"tags,omitempty"`
}

// IsNote reports whether the item is a standalone note record.
func (it *Item) IsNote() bool {
	return it.ItemType == ItemTypeNote
}

// NoteText returns the note body, preferring note over noteContent.
func (it *Item) NoteText() string {
	if it.Note != "" {
		return it.Note
	}
	return it.NoteContent
}

// Field returns a pass-through member by name.
func (it *Item) Field(name string) (json.RawMessage, bool) {
	raw, ok := it.Extra[name]
	return raw, ok
}

// SetField stores a pass-through member, encoding value as JSON.
func (it *Item) SetField(name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode field %q: %w", name, err)
	}
	if it.Extra == nil {
		it.Extra = make(map[string]json.RawMessage)
	}
	it.Extra[name] = raw
	return nil
}

// Clone returns a shallow copy whose slices and pass-through map can be
// appended to or rewritten without affecting it.
func (it Item) Clone() Item {
	out := it
	out.Extra = rawFields(it.Extra).clone()
	if it.Attachments != nil {
		out.Attachments = make([]Attachment, len(it.Attachments))
		for i, a := range it.Attachments {
			out.Attachments[i] = a.Clone()
		}
	}
	if it.Notes != nil {
		out.Notes = append([]NoteEntry(nil), it.Notes...)
	}
	return out
}

// Clone returns a copy that shares no mutable state with a.
func (a Attachment) Clone() Attachment {
	out := a
	out.Extra = rawFields(a.Extra).clone()
	if a.Snapshot != nil {
		v := *a.Snapshot
		out.Snapshot = &v
	}
	return out
}

// MimeTypeLower returns the attachment MIME type lower-cased, without
// parameters.
func (a *Attachment) MimeTypeLower() string {
	mt := strings.ToLower(strings.TrimSpace(a.MimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// UnmarshalJSON implements json.Unmarshaler.
func (it *Item) UnmarshalJSON(data []byte) error {
	var fields rawFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		fields = rawFields{}
	}
	*it = Item{}
	fields.takeScalar("id", &it.ID)
	fields.takeString("itemType", &it.ItemType)
	fields.takeScalar("key", &it.Key)
	fields.takeScalar("parentItem", &it.ParentItem)
	fields.takeString("url", &it.URL)
	fields.takeString("title", &it.Title)
	fields.takeString("note", &it.Note)
	fields.takeString("noteContent", &it.NoteContent)
	fields.takeRaw("tags", &it.Tags)
	if err := fields.takeJSON("attachments", &it.Attachments); err != nil {
		return fmt.Errorf("item attachments: %w", err)
	}
	if err := fields.takeJSON("notes", &it.Notes); err != nil {
		return fmt.Errorf("item notes: %w", err)
	}
	if len(fields) > 0 {
		it.Extra = fields
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (it Item) MarshalJSON() ([]byte, error) {
	o := rawFields(it.Extra).object()
	o.putScalar("id", it.ID)
	o.putString("itemType", it.ItemType)
	o.putScalar("key", it.Key)
	o.putScalar("parentItem", it.ParentItem)
	o.putString("url", it.URL)
	o.putString("title", it.Title)
	o.putString("note", it.Note)
	o.putString("noteContent", it.NoteContent)
	o.putRaw("tags", it.Tags)
	if it.Attachments != nil {
		o["attachments"] = it.Attachments
	}
	if it.Notes != nil {
		o["notes"] = it.Notes
	}
	return json.Marshal(map[string]any(o))
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Attachment) UnmarshalJSON(data []byte) error {
	var fields rawFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		fields = rawFields{}
	}
	*a = Attachment{}
	fields.takeString("url", &a.URL)
	fields.takeString("title", &a.Title)
	fields.takeString("mimeType", &a.MimeType)
	fields.takeScalar("parentItem", &a.ParentItem)
	fields.takeBool("snapshot", &a.Snapshot)
	if len(fields) > 0 {
		a.Extra = fields
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Attachment) MarshalJSON() ([]byte, error) {
	o := rawFields(a.Extra).object()
	o.putString("url", a.URL)
	o.putString("title", a.Title)
	o.putString("mimeType", a.MimeType)
	o.putScalar("parentItem", a.ParentItem)
	if a.Snapshot != nil {
		o["snapshot"] = *a.Snapshot
	}
	return json.Marshal(map[string]any(o))
}

// UnmarshalJSON accepts both {"note": "..."} objects and bare strings, the
// two shapes translators emit for child notes.
func (n *NoteEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		*n = NoteEntry{}
		return json.Unmarshal(trimmed, &n.Note)
	}
	type plain NoteEntry
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*n = NoteEntry(p)
	return nil
}

// ParseItems decodes a single item object or an array of items.
func ParseItems(data []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, &ValidationError{Field: "items", Message: "no items supplied"}
	}
	if trimmed[0] == '{' {
		var it Item
		if err := json.Unmarshal(trimmed, &it); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		return []Item{it}, nil
	}
	var items []Item
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}
