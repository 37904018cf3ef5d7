// Package zotero models Zotero item JSON and the pure stages that prepare a
// batch of items for a connector save.
//
// Items arrive from translators and callers in loosely structured shapes:
// notes emitted as flat siblings, attachments without parent links, records
// without ids. The stages in this package repair that shape without touching
// the caller's data:
//
//  1. Normalize copies every item and applies explicit attachment overrides.
//  2. AssignIdentities gives every item an id and links attachments to it.
//  3. MergeNotes folds note items into the notes of their parent item.
//
// None of the stages perform I/O. The connector and save packages build on
// them.
package zotero
