// Package state defines the synchronized application state document.
//
// AppState is the single source of truth owned by the daemon's command router;
// every other context only ever holds a broadcast copy used for rendering.
// The JSON field names are the wire and storage format, so they stay stable
// even when Go-side names evolve.
package state
