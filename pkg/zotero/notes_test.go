package zotero

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestMergeNotesByKey(t *testing.T) {
	items := []Item{
		{ID: "i1", Key: "AAAA", Title: "one"},
		{ID: "i2", Key: "BBBB", Title: "two"},
		{ItemType: ItemTypeNote, ParentItem: "BBBB", Note: "<p>hi</p>", Tags: json.RawMessage(`[{"tag":"t"}]`)},
	}

	out := MergeNotes(items, MergeOptions{})

	require.Len(t, out, len(items)-1)
	assert.Empty(t, out[0].Notes)
	require.Len(t, out[1].Notes, 1)
	assert.Equal(t, "<p>hi</p>", out[1].Notes[0].Note)
	assert.JSONEq(t, `[{"tag":"t"}]`, string(out[1].Notes[0].Tags))
}

func TestMergeNotesPrefersIDOverKey(t *testing.T) {
	items := []Item{
		{ID: "X", Key: "K1", Title: "matched by key"},
		{ID: "K1", Title: "matched by id"},
		{ItemType: ItemTypeNote, ParentItem: "K1", NoteContent: "body"},
	}

	out := MergeNotes(items, MergeOptions{})

	require.Len(t, out, 2)
	assert.Empty(t, out[0].Notes)
	require.Len(t, out[1].Notes, 1)
	assert.Equal(t, "body", out[1].Notes[0].Note)
}

func TestMergeNotesFallbacks(t *testing.T) {
	base := func() []Item {
		return []Item{
			{ItemType: ItemTypeNote, ParentItem: "nobody", Note: "orphan"},
			{ID: "a", Title: "a"},
			{ID: "b", Title: "b"},
		}
	}

	t.Run("first non-note", func(t *testing.T) {
		out := MergeNotes(base(), MergeOptions{})
		require.Len(t, out, 2)
		assert.Len(t, out[0].Notes, 1)
		assert.Empty(t, out[1].Notes)
	})

	t.Run("explicit parent index", func(t *testing.T) {
		out := MergeNotes(base(), MergeOptions{ParentIndex: intPtr(1)})
		require.Len(t, out, 2)
		assert.Empty(t, out[0].Notes)
		assert.Len(t, out[1].Notes, 1)
	})

	t.Run("parent index out of range", func(t *testing.T) {
		out := MergeNotes(base(), MergeOptions{ParentIndex: intPtr(9)})
		require.Len(t, out, 2)
		assert.Len(t, out[0].Notes, 1)
	})
}

func TestMergeNotesWithoutParents(t *testing.T) {
	items := []Item{
		{ItemType: ItemTypeNote, Note: "one"},
		{ItemType: ItemTypeNote, Note: "two"},
	}

	out := MergeNotes(items, MergeOptions{})

	require.Len(t, out, 2)
	assert.True(t, out[0].IsNote())
	assert.Equal(t, "one", out[0].Note)
}

func TestMergeNotesPreservesOrder(t *testing.T) {
	items := []Item{
		{Title: "n1", ItemType: ItemTypeNote},
		{Title: "a", ID: "a"},
		{Title: "n2", ItemType: ItemTypeNote, ParentItem: "c"},
		{Title: "b", ID: "b"},
		{Title: "c", ID: "c"},
	}

	out := MergeNotes(items, MergeOptions{})

	if diff := cmp.Diff([]string{"a", "b", "c"}, titles(out)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, out[0].Notes, 1)
	assert.Len(t, out[2].Notes, 1)
}

func TestMergeNotesEmptyNoteBody(t *testing.T) {
	items := []Item{{ID: "a"}, {ItemType: ItemTypeNote}}

	out := MergeNotes(items, MergeOptions{})

	require.Len(t, out, 1)
	require.Len(t, out[0].Notes, 1)
	assert.Equal(t, "", out[0].Notes[0].Note)
	assert.Nil(t, out[0].Notes[0].Tags)
}

func TestMergeNotesMovesNoteAttachments(t *testing.T) {
	items := []Item{
		{ID: "p", Key: "PPPP", Attachments: []Attachment{{URL: "https://example.org/own.pdf", ParentItem: "p"}}},
		{ID: "n", ItemType: ItemTypeNote, ParentItem: "PPPP", Note: "see scan", Attachments: []Attachment{
			{URL: "https://example.org/scan.pdf", ParentItem: "n"},
			{URL: "https://example.org/other.pdf", ParentItem: "elsewhere"},
		}},
	}

	out := MergeNotes(items, MergeOptions{})

	require.Len(t, out, 1)
	want := []Attachment{
		{URL: "https://example.org/own.pdf", ParentItem: "p"},
		{URL: "https://example.org/scan.pdf", ParentItem: "p"},
		{URL: "https://example.org/other.pdf", ParentItem: "elsewhere"},
	}
	if diff := cmp.Diff(want, out[0].Attachments); diff != "" {
		t.Errorf("attachments mismatch (-want +got):\n%s", diff)
	}
}
