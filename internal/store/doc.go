// Package store persists the synchronized AppState document.
//
// The whole document is one logical record: it is read once at startup and
// rewritten wholesale on every mutation, keyed by a fixed storage key. The
// SQLite backing gives durable single-writer storage with the same busy-retry
// discipline the rest of the tooling expects; tests swap in the in-memory
// adapter from testsupport.
package store
