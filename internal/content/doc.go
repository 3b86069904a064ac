// Package content adapts the target site's DOM into queue operations.
//
// One Engine serves one page session. The page streams HTML snapshots and
// video events in; the engine mirrors the document, discovers episode cards,
// injects queue menu entries, tracks video playback, and pushes the resulting
// commands into the state router. Effects flowing back to the page (attribute
// stamps, menu insertion, clicks, video control) go through the PageConn and
// VideoPort interfaces so transports and tests can supply their own.
//
// The site owns its DOM. Every selector miss, detached video, or missing menu
// is a normal outcome: the engine degrades to a no-op or a plain failure
// result, never an error.
package content
