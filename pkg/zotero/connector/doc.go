// Package connector is a client for the Zotero connector HTTP server that
// desktop Zotero runs on 127.0.0.1:23119.
//
// Besides saveItems it covers the side-channel endpoints used to enrich a
// save: raw attachment upload, attachment resolvers and single-file HTML
// snapshots. Every request carries the connector API version and client
// version headers.
package connector
