// Package snapshot captures a web page as a single HTML document for a
// Zotero "single file" snapshot.
//
// Two capturers are provided. HTTPCapturer downloads the page as served,
// which is enough for most publisher landing pages. BrowserCapturer renders
// the page in headless Chromium through Playwright and serializes the live
// DOM, for pages that build their content with JavaScript.
//
// Both return the page after Prepare, so relative links keep resolving once
// the HTML is stored away from its origin.
package snapshot
