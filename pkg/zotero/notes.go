package zotero

// MergeOptions tunes note-to-parent association.
type MergeOptions struct {
	// ParentIndex, when set, is an index into the non-note items used as the
	// parent of every note that carries no resolvable parentItem.
	ParentIndex *int
}

// MergeNotes folds note items into the notes collection of their parent and
// drops them from the result.
//
// The parent of a note is chosen in this order:
//   - the note's parentItem, matched against item ids first and keys second;
//   - opts.ParentIndex into the non-note items, when in range;
//   - the first non-note item.
//
// Attachments carried by a merged note move to its parent; those linked to
// the note itself are relinked to the parent. With no non-note items at
// all, notes are returned as standalone items. Non-note items keep their
// relative order. Items are modified in place
// (parents gain notes); pass the output of Normalize.
func MergeNotes(items []Item, opts MergeOptions) []Item {
	var parents []int
	hasNotes := false
	for i := range items {
		if items[i].IsNote() {
			hasNotes = true
			continue
		}
		parents = append(parents, i)
	}
	if !hasNotes || len(parents) == 0 {
		return items
	}

	byID := make(map[string]int, len(parents))
	byKey := make(map[string]int, len(parents))
	for _, idx := range parents {
		if id := items[idx].ID; id != "" {
			if _, seen := byID[id]; !seen {
				byID[id] = idx
			}
		}
		if key := items[idx].Key; key != "" {
			if _, seen := byKey[key]; !seen {
				byKey[key] = idx
			}
		}
	}

	fallback := parents[0]
	if opts.ParentIndex != nil {
		if p := *opts.ParentIndex; p >= 0 && p < len(parents) {
			fallback = parents[p]
		}
	}

	merged := make([]bool, len(items))
	for i := range items {
		note := &items[i]
		if !note.IsNote() {
			continue
		}
		parent := fallback
		if ref := note.ParentItem; ref != "" {
			if idx, ok := byID[ref]; ok {
				parent = idx
			} else if idx, ok := byKey[ref]; ok {
				parent = idx
			}
		}
		items[parent].Notes = append(items[parent].Notes, NoteEntry{
			Note: note.NoteText(),
			Tags: note.Tags,
		})
		for _, att := range note.Attachments {
			if att.ParentItem == "" || att.ParentItem == note.ID {
				att.ParentItem = items[parent].ID
			}
			items[parent].Attachments = append(items[parent].Attachments, att)
		}
		merged[i] = true
	}

	out := make([]Item, 0, len(items))
	for i := range items {
		if !merged[i] {
			out = append(out, items[i])
		}
	}
	return out
}
