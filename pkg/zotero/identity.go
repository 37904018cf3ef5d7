package zotero

// maxIDAttempts bounds retries when a source hands out an id already in use.
const maxIDAttempts = 16

// AssignIdentities gives every item without an id a fresh one from src and
// points every unlinked attachment at its owning item. Items are updated in
// place; call it on the output of Normalize.
//
// Generated ids never collide with ids already present in the batch.
func AssignIdentities(items []Item, src IDSource) {
	src = orDefault(src)
	taken := make(map[string]struct{}, len(items))
	for i := range items {
		if items[i].ID != "" {
			taken[items[i].ID] = struct{}{}
		}
	}
	for i := range items {
		it := &items[i]
		if it.ID == "" {
			it.ID = uniqueID(src, taken)
		}
		for j := range it.Attachments {
			if it.Attachments[j].ParentItem == "" {
				it.Attachments[j].ParentItem = it.ID
			}
		}
	}
}

func uniqueID(src IDSource, taken map[string]struct{}) string {
	var id string
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id = src.NewID()
		if _, dup := taken[id]; id != "" && !dup {
			taken[id] = struct{}{}
			return id
		}
	}
	id = id + "-" + randomHex(4)
	taken[id] = struct{}{}
	return id
}
