// Package bridge is the cross-context transport: a localhost WebSocket hub
// that page sessions and read-only watchers connect to.
//
// A page session registers with a hello frame, streams DOM and video events
// into its daemon-hosted content engine, and receives page operations
// (attribute stamps, menu insertion, clicks, video control) back over the
// same connection, correlated by id. Every state mutation is broadcast to all
// connections as a STATE_UPDATED frame; delivery is best-effort and dead
// connections are dropped on the next write.
package bridge
