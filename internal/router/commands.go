package router

import (
	"context"
	"time"

	"watchq/internal/language"
	"watchq/internal/logging"
	"watchq/internal/protocol"
	"watchq/internal/state"
)

// GetState returns a copy of the current AppState.
func (r *Router) GetState() *state.AppState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.app.Clone()
}

func (r *Router) ensureAudioLanguage(episode state.Episode) state.Episode {
	if episode.AudioLanguage == "" {
		episode.AudioLanguage = r.app.Settings.DefaultAudioLanguage
	}
	return episode
}

// AddEpisodes inserts the given episodes, skipping ids already queued.
// Episodes without an audio language inherit the default, and AddedAt is
// stamped once on insertion. When nothing was actually added the current
// state is returned without a commit, so downstream listeners see no churn.
func (r *Router) AddEpisodes(ctx context.Context, episodes []state.Episode) (*state.AppState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := false
	for _, raw := range episodes {
		episode := r.ensureAudioLanguage(raw)
		if r.app.IndexOf(episode.ID) != -1 {
			continue
		}
		episode.AddedAt = state.NowMillis()
		r.app.Queue = append(r.app.Queue, episode)
		added = true
	}
	if !added {
		return r.app.Clone(), nil
	}
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return r.app.Clone(), nil
}

// RemoveEpisode deletes the matching episode. Removing the current episode
// clears the selection and resets playback to idle, regardless of settings.
func (r *Router) RemoveEpisode(ctx context.Context, id string) (*state.AppState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := r.app.IndexOf(id)
	if index == -1 {
		return r.app.Clone(), nil
	}
	removed := r.app.Queue[index]
	r.app.Queue = append(r.app.Queue[:index], r.app.Queue[index+1:]...)
	r.logger.Debug("removed episode",
		logging.String(logging.FieldEpisodeID, removed.ID),
		logging.String("title", removed.Title))
	if r.app.CurrentEpisodeID == id {
		r.app.CurrentEpisodeID = ""
		r.app.PlaybackState = state.PlaybackIdle
	}
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return r.app.Clone(), nil
}

// ReorderQueue rebuilds the queue from the given id order. Listed ids come
// first in the given order; queued episodes not listed keep their original
// relative order at the tail. An incomplete payload can therefore never drop
// an episode.
func (r *Router) ReorderQueue(ctx context.Context, orderedIDs []string) (*state.AppState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	listed := make(map[string]struct{}, len(orderedIDs))
	reordered := make([]state.Episode, 0, len(r.app.Queue))
	for _, id := range orderedIDs {
		if _, dup := listed[id]; dup {
			continue
		}
		if index := r.app.IndexOf(id); index != -1 {
			reordered = append(reordered, r.app.Queue[index])
			listed[id] = struct{}{}
		}
	}
	for _, episode := range r.app.Queue {
		if _, ok := listed[episode.ID]; !ok {
			reordered = append(reordered, episode)
		}
	}
	r.app.Queue = reordered
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return r.app.Clone(), nil
}

// SelectEpisode marks an episode as current. A non-empty id that is not in
// the queue is a logged no-op; an empty id clears the selection.
func (r *Router) SelectEpisode(ctx context.Context, id string) (*state.AppState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" && r.app.IndexOf(id) == -1 {
		r.logger.Debug("attempted to select unknown episode", logging.String(logging.FieldEpisodeID, id))
		return r.app.Clone(), nil
	}
	r.app.CurrentEpisodeID = id
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return r.app.Clone(), nil
}

// SetPlaybackState records a playback transition reported by a content
// session. An ended transition with auto-remove enabled removes the current
// episode, which also clears the selection and resets playback to idle.
func (r *Router) SetPlaybackState(ctx context.Context, playback state.PlaybackState) (*state.AppState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.app.PlaybackState = playback
	if playback == state.PlaybackEnded && r.app.Settings.AutoRemoveCompleted && r.app.CurrentEpisodeID != "" {
		id := r.app.CurrentEpisodeID
		if index := r.app.IndexOf(id); index != -1 {
			r.app.Queue = append(r.app.Queue[:index], r.app.Queue[index+1:]...)
		}
		r.app.CurrentEpisodeID = ""
		r.app.PlaybackState = state.PlaybackIdle
	}
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return r.app.Clone(), nil
}

// UpdateSettings shallow-merges a settings patch. Changing the default audio
// language backfills every episode that has no explicit language; explicit
// choices are never overwritten.
func (r *Router) UpdateSettings(ctx context.Context, patch protocol.SettingsPatch) (*state.AppState, error) {
	r.mu.Lock()

	if patch.AutoRemoveCompleted != nil {
		r.app.Settings.AutoRemoveCompleted = *patch.AutoRemoveCompleted
	}
	if patch.DebugLogging != nil {
		r.app.Settings.DebugLogging = *patch.DebugLogging
	}
	if patch.DefaultAudioLanguage != nil && *patch.DefaultAudioLanguage != "" {
		r.app.Settings.DefaultAudioLanguage = *patch.DefaultAudioLanguage
		for i := range r.app.Queue {
			if r.app.Queue[i].AudioLanguage == "" {
				r.app.Queue[i].AudioLanguage = r.app.Settings.DefaultAudioLanguage
			}
		}
	}
	toggle := r.debugToggle
	debugEnabled := r.app.Settings.DebugLogging
	err := r.commit(ctx)
	result := r.app.Clone()
	r.mu.Unlock()

	if toggle != nil && patch.DebugLogging != nil {
		toggle(debugEnabled)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetAudioLanguage assigns an audio language to one queued episode and fans
// the directive out to every active site tab. Unknown ids are a no-op.
func (r *Router) SetAudioLanguage(ctx context.Context, id, audioLanguage string) (*state.AppState, error) {
	r.mu.Lock()

	index := r.app.IndexOf(id)
	if index == -1 {
		result := r.app.Clone()
		r.mu.Unlock()
		return result, nil
	}
	r.app.Queue[index].AudioLanguage = audioLanguage
	err := r.commit(ctx)
	result := r.app.Clone()
	directives := r.directives
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if directives != nil {
		directives.ApplyAudioLanguage(ctx, audioLanguage, language.LabelFor(audioLanguage))
	}
	return result, nil
}

// SetQueue replaces the queue wholesale, applying the same default audio
// language backfill as insertion. Used by import and clear.
func (r *Router) SetQueue(ctx context.Context, episodes []state.Episode) (*state.AppState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	replacement := make([]state.Episode, 0, len(episodes))
	for _, episode := range episodes {
		replacement = append(replacement, r.ensureAudioLanguage(episode))
	}
	r.app.Queue = replacement
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return r.app.Clone(), nil
}

// ControlPlayback relays a play/pause gesture to the active site tab. With no
// tab coordinator wired, or no matching tab, the result is a plain failure
// rather than an error.
func (r *Router) ControlPlayback(ctx context.Context, action string) protocol.ControlResult {
	r.mu.Lock()
	directives := r.directives
	r.mu.Unlock()

	if directives == nil {
		return protocol.ControlResult{Success: false}
	}
	return directives.ControlPlayback(ctx, action)
}

// DebugDump returns the read-only diagnostics snapshot. Never persisted.
func (r *Router) DebugDump() protocol.DebugDump {
	r.mu.Lock()
	defer r.mu.Unlock()
	return protocol.DebugDump{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		AudioLanguages: language.Catalog,
		State:          r.app.Clone(),
	}
}
