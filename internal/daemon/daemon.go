package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"watchq/internal/bridge"
	"watchq/internal/config"
	"watchq/internal/logging"
	"watchq/internal/protocol"
	"watchq/internal/router"
	"watchq/internal/state"
	"watchq/internal/store"
	"watchq/internal/tabs"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg         *config.Config
	logger      *logging.Logger
	store       *store.Store
	router      *router.Router
	coordinator *tabs.Coordinator
	hub         *bridge.Hub

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	PID              int
	QueueLength      int
	PlaybackState    string
	CurrentEpisodeID string
	Sessions         int
	StateDBPath      string
	LockFilePath     string
	BridgeBind       string
}

// New constructs a daemon and wires its components together. The store is
// owned by the daemon from here on and closed by Close.
func New(cfg *config.Config, st *store.Store, logger *logging.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	rt, err := router.New(st, logger.Logger)
	if err != nil {
		return nil, err
	}

	matcher := tabs.NewSiteMatcher(cfg.Site.URLPatterns)
	directiveTimeout := time.Duration(cfg.Content.DirectiveTimeoutMs) * time.Millisecond
	coordinator := tabs.New(matcher, directiveTimeout, logger.Logger)
	hub := bridge.NewHub(cfg, rt, coordinator, logger.Logger)

	rt.SetBroadcaster(hub)
	rt.SetDirectives(coordinator)
	coordinator.SetSender(hub)
	rt.SetDebugToggle(logger.SetDebug)

	lockPath := filepath.Join(cfg.Paths.DataDir, "watchqd.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logger,
		store:       st,
		router:      rt,
		coordinator: coordinator,
		hub:         hub,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, loads persisted state, and brings the
// bridge up.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another watchq daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.router.Load(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}
	if err := d.hub.Serve(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("watchq daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the bridge down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := d.hub.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("bridge shutdown failed", logging.Error(err))
	}
	cancel()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("watchq daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	app := d.router.GetState()
	return Status{
		Running:          d.running.Load(),
		PID:              os.Getpid(),
		QueueLength:      len(app.Queue),
		PlaybackState:    string(app.PlaybackState),
		CurrentEpisodeID: app.CurrentEpisodeID,
		Sessions:         d.hub.SessionCount(),
		StateDBPath:      filepath.Join(d.cfg.Paths.DataDir, "state.db"),
		LockFilePath:     d.lockPath,
		BridgeBind:       d.cfg.Paths.BridgeBind,
	}
}

// GetState returns a copy of the current application state.
func (d *Daemon) GetState() *state.AppState {
	return d.router.GetState()
}

// AddEpisodes appends episodes to the queue.
func (d *Daemon) AddEpisodes(ctx context.Context, episodes []state.Episode) (*state.AppState, error) {
	return d.router.AddEpisodes(ctx, episodes)
}

// RemoveEpisode removes one episode by id.
func (d *Daemon) RemoveEpisode(ctx context.Context, id string) (*state.AppState, error) {
	return d.router.RemoveEpisode(ctx, id)
}

// ReorderQueue rebuilds the queue in the given id order.
func (d *Daemon) ReorderQueue(ctx context.Context, ids []string) (*state.AppState, error) {
	return d.router.ReorderQueue(ctx, ids)
}

// SelectEpisode marks an episode as current.
func (d *Daemon) SelectEpisode(ctx context.Context, id string) (*state.AppState, error) {
	return d.router.SelectEpisode(ctx, id)
}

// SetAudioLanguage assigns an audio language to one queued episode.
func (d *Daemon) SetAudioLanguage(ctx context.Context, id, audioLanguage string) (*state.AppState, error) {
	return d.router.SetAudioLanguage(ctx, id, audioLanguage)
}

// UpdateSettings applies a partial settings update.
func (d *Daemon) UpdateSettings(ctx context.Context, patch protocol.SettingsPatch) (*state.AppState, error) {
	return d.router.UpdateSettings(ctx, patch)
}

// SetQueue replaces the queue wholesale.
func (d *Daemon) SetQueue(ctx context.Context, queue []state.Episode) (*state.AppState, error) {
	return d.router.SetQueue(ctx, queue)
}

// ControlPlayback plays or pauses the active site tab.
func (d *Daemon) ControlPlayback(ctx context.Context, action string) protocol.ControlResult {
	return d.router.ControlPlayback(ctx, action)
}

// DebugDump returns the diagnostics snapshot.
func (d *Daemon) DebugDump() protocol.DebugDump {
	return d.router.DebugDump()
}

// Router exposes the command router for in-process callers.
func (d *Daemon) Router() *router.Router {
	return d.router
}
