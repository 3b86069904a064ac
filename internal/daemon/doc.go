// Package daemon assembles the long-running watchqd process: the state
// store, the command router, the tab coordinator, and the WebSocket bridge,
// wired together and guarded by a single-instance file lock.
//
// The daemon is the only writer of application state. UI surfaces reach it
// through the ipc package; page sessions reach it through the bridge.
package daemon
