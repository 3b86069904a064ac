// Package router is the single mutation entry point for the synchronized
// AppState.
//
// Every command, whether it arrives over the CLI socket or from a page
// session, funnels through one Router. The router applies the mutation
// rules, persists the document wholesale, and broadcasts the new state to
// all listeners. Callers always receive the resulting AppState as
// acknowledgement, even for read-only commands. Handlers run one at a time
// under a single mutex, so every observer sees whole documents and never a
// partial edit.
package router
