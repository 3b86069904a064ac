// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. The
// server embeds the daemon; the client dials with a short timeout so CLI
// commands fail fast when the daemon is offline. Every mutating call answers
// with the full state document, which keeps the CLI free of follow-up reads.
package ipc
