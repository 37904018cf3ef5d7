// Package save runs the connector save of a batch of items: normalize, link,
// merge notes, submit, then enrich the saved session with attachment files,
// resolver downloads and an HTML snapshot.
//
// Only the submit step can fail a save. Everything after it is best effort
// and reported in the Result.
package save
