package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"watchq/internal/language"
	"watchq/internal/logging"
	"watchq/internal/protocol"
	"watchq/internal/state"
	"watchq/internal/store"
)

// Broadcaster delivers the new AppState to every listening context after a
// mutation. Delivery is best-effort; failures are swallowed, not retried.
type Broadcaster interface {
	BroadcastState(app *state.AppState)
}

// Directives forwards playback and audio-language directives into page tabs.
type Directives interface {
	ControlPlayback(ctx context.Context, action string) protocol.ControlResult
	ApplyAudioLanguage(ctx context.Context, audioLanguage, label string)
}

// Router owns the authoritative AppState and applies all mutations.
type Router struct {
	mu          sync.Mutex
	app         *state.AppState
	store       store.Adapter
	logger      *slog.Logger
	broadcaster Broadcaster
	directives  Directives
	debugToggle func(bool)
}

// New constructs a router over the given persistence adapter.
func New(adapter store.Adapter, logger *slog.Logger) (*Router, error) {
	if adapter == nil {
		return nil, errors.New("router requires a persistence adapter")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Router{
		app:    state.NewAppState(language.DefaultCode()),
		store:  adapter,
		logger: logging.NewComponentLogger(logger, "router"),
	}, nil
}

// SetBroadcaster wires the state broadcast sink. Nil disables broadcasting.
func (r *Router) SetBroadcaster(b Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcaster = b
}

// SetDirectives wires the tab directive forwarder. Nil makes playback control
// report "no tab available".
func (r *Router) SetDirectives(d Directives) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directives = d
}

// SetDebugToggle registers the hook invoked when the debug-logging setting
// changes (and once on load).
func (r *Router) SetDebugToggle(toggle func(bool)) {
	r.mu.Lock()
	r.debugToggle = toggle
	enabled := r.app.Settings.DebugLogging
	r.mu.Unlock()
	if toggle != nil {
		toggle(enabled)
	}
}

// Load reads the persisted AppState. An absent document is the expected
// first-run path: defaults are written back to establish the stored baseline.
func (r *Router) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, found, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !found {
		if err := r.store.Save(ctx, r.app); err != nil {
			return fmt.Errorf("persist initial state: %w", err)
		}
		r.logger.Info("initialized state store")
		return nil
	}

	stored.Normalize(language.DefaultCode())
	r.app = stored
	if r.debugToggle != nil {
		r.debugToggle(r.app.Settings.DebugLogging)
	}
	r.logger.Info("loaded persisted state",
		logging.Int("queue_length", len(r.app.Queue)),
		logging.String("playback_state", string(r.app.PlaybackState)))
	return nil
}

// commit is the single funnel every state-changing operation passes through:
// bump LastUpdated, persist the whole document, then notify listeners.
// Persistence failure propagates and suppresses the broadcast; broadcast
// failure is the listener's problem, not ours.
func (r *Router) commit(ctx context.Context) error {
	r.app.LastUpdated = state.NowMillis()
	if err := r.store.Save(ctx, r.app); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	if r.broadcaster != nil {
		r.broadcaster.BroadcastState(r.app.Clone())
	}
	r.logger.Debug("state committed",
		logging.Int("queue_length", len(r.app.Queue)),
		logging.Int64("last_updated", r.app.LastUpdated))
	return nil
}

// Dispatch maps an inbound message to the matching operation. Unknown types
// are logged and answered with the current state, mirroring the tolerant
// behavior UI surfaces rely on.
func (r *Router) Dispatch(ctx context.Context, msg protocol.Message) (any, error) {
	switch msg.Type {
	case protocol.TypeGetState:
		return r.GetState(), nil
	case protocol.TypeAddEpisode:
		var episode state.Episode
		if err := msg.DecodePayload(&episode); err != nil {
			return nil, err
		}
		return r.AddEpisodes(ctx, []state.Episode{episode})
	case protocol.TypeAddEpisodeAndNewer:
		var episodes []state.Episode
		if err := msg.DecodePayload(&episodes); err != nil {
			return nil, err
		}
		return r.AddEpisodes(ctx, episodes)
	case protocol.TypeRemoveEpisode:
		var payload protocol.IDPayload
		if err := msg.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return r.RemoveEpisode(ctx, payload.ID)
	case protocol.TypeReorderQueue:
		var payload protocol.ReorderPayload
		if err := msg.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return r.ReorderQueue(ctx, payload.IDs)
	case protocol.TypeSelectEpisode:
		var payload protocol.IDPayload
		if err := msg.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return r.SelectEpisode(ctx, payload.ID)
	case protocol.TypeUpdatePlayback:
		var payload protocol.PlaybackPayload
		if err := msg.DecodePayload(&payload); err != nil {
			return nil, err
		}
		playback, ok := state.ParsePlaybackState(payload.State)
		if !ok {
			return nil, fmt.Errorf("unknown playback state %q", payload.State)
		}
		return r.SetPlaybackState(ctx, playback)
	case protocol.TypeUpdateSettings:
		var payload protocol.UpdateSettingsPayload
		if err := msg.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return r.UpdateSettings(ctx, payload.Settings)
	case protocol.TypeSetAudioLanguage:
		var payload protocol.AudioLanguagePayload
		if err := msg.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return r.SetAudioLanguage(ctx, payload.ID, payload.AudioLanguage)
	case protocol.TypeSetQueue:
		var payload protocol.SetQueuePayload
		if err := msg.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return r.SetQueue(ctx, payload.Queue)
	case protocol.TypeControlPlayback:
		var payload protocol.ControlPayload
		if err := msg.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return r.ControlPlayback(ctx, payload.Action), nil
	case protocol.TypeRequestDebugDump:
		return r.DebugDump(), nil
	default:
		r.logger.Debug("unknown message type", logging.String(logging.FieldMessageType, string(msg.Type)))
		return r.GetState(), nil
	}
}
