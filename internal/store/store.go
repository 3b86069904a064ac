package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"watchq/internal/config"
	"watchq/internal/state"
)

// StorageKey is the fixed key the AppState document is stored under.
const StorageKey = "watchqState"

// Adapter abstracts AppState persistence so the router can be tested without
// a database.
type Adapter interface {
	// Load reads the persisted document. The second result is false when no
	// document exists yet (the expected first-run path, not an error).
	Load(ctx context.Context) (*state.AppState, bool, error)
	// Save overwrites the document wholesale.
	Save(ctx context.Context, app *state.AppState) error
	Close() error
}

// Store is the SQLite-backed adapter.
type Store struct {
	db   *sql.DB
	path string
}

var _ Adapter = (*Store)(nil)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the state database under the data dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "state.db"))
}

// OpenPath opens the adapter against an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads the stored AppState document, reporting absence without error.
func (s *Store) Load(ctx context.Context) (*state.AppState, bool, error) {
	ctx = ensureContext(ctx)
	var document string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM app_state WHERE key = ?", StorageKey,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read state document: %w", err)
	}

	var app state.AppState
	if err := json.Unmarshal([]byte(document), &app); err != nil {
		return nil, false, fmt.Errorf("decode state document: %w", err)
	}
	return &app, true, nil
}

// Save overwrites the stored document. Failures propagate to the caller;
// retry policy is left to the embedding host.
func (s *Store) Save(ctx context.Context, app *state.AppState) error {
	if app == nil {
		return errors.New("save requires a state document")
	}
	document, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("encode state document: %w", err)
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO app_state (key, document, saved_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET document = excluded.document, saved_at = excluded.saved_at`,
			StorageKey, string(document), time.Now().UnixMilli())
		return execErr
	})
}
