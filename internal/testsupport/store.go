package testsupport

import (
	"context"
	"sync"
	"testing"

	"watchq/internal/config"
	"watchq/internal/state"
	"watchq/internal/store"
)

// MustOpenStore opens a sqlite-backed store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MemoryAdapter is an in-memory persistence adapter for router tests. It
// records every saved snapshot so assertions can inspect commit history.
type MemoryAdapter struct {
	mu     sync.Mutex
	stored *state.AppState
	Saves  int
}

// NewMemoryAdapter returns an empty adapter; the first Load reports absence.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{}
}

// Seed primes the adapter with a persisted state.
func (m *MemoryAdapter) Seed(app *state.AppState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = app.Clone()
}

func (m *MemoryAdapter) Load(ctx context.Context) (*state.AppState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		return nil, false, nil
	}
	return m.stored.Clone(), true, nil
}

func (m *MemoryAdapter) Save(ctx context.Context, app *state.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = app.Clone()
	m.Saves++
	return nil
}

func (m *MemoryAdapter) Close() error { return nil }

// Stored returns a copy of the last saved state, or nil.
func (m *MemoryAdapter) Stored() *state.AppState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stored == nil {
		return nil
	}
	return m.stored.Clone()
}
