// Package protocol defines the message taxonomy shared by every execution
// context: commands routed into the daemon, the state broadcast, and the
// directives the daemon pushes into page sessions.
//
// Reuse these types when adding new message kinds so the wire format stays
// stable across the CLI, the bridge, and the content engine.
package protocol
