package ipc

import (
	"watchq/internal/protocol"
	"watchq/internal/state"
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running          bool   `json:"running"`
	PID              int    `json:"pid"`
	QueueLength      int    `json:"queue_length"`
	PlaybackState    string `json:"playback_state"`
	CurrentEpisodeID string `json:"current_episode_id"`
	Sessions         int    `json:"sessions"`
	StateDBPath      string `json:"state_db_path"`
	LockPath         string `json:"lock_path"`
	BridgeBind       string `json:"bridge_bind"`
}

// GetStateRequest fetches the full application state.
type GetStateRequest struct{}

// StateResponse carries the full state document. Every mutating call answers
// with it so callers never need a follow-up read.
type StateResponse struct {
	State *state.AppState `json:"state"`
}

// AddEpisodesRequest appends episodes to the queue. A single-element slice is
// an ordinary add; multiple elements carry add-this-and-newer semantics.
type AddEpisodesRequest struct {
	Episodes []state.Episode `json:"episodes"`
}

// RemoveEpisodeRequest removes one episode by id.
type RemoveEpisodeRequest struct {
	ID string `json:"id"`
}

// ReorderQueueRequest rebuilds the queue in the given id order.
type ReorderQueueRequest struct {
	IDs []string `json:"ids"`
}

// SelectEpisodeRequest marks an episode as current; an empty id clears the
// selection.
type SelectEpisodeRequest struct {
	ID string `json:"id"`
}

// SetAudioLanguageRequest assigns an audio language to one queued episode.
type SetAudioLanguageRequest struct {
	ID            string `json:"id"`
	AudioLanguage string `json:"audio_language"`
}

// UpdateSettingsRequest applies a partial settings update.
type UpdateSettingsRequest struct {
	Settings protocol.SettingsPatch `json:"settings"`
}

// SetQueueRequest replaces the queue wholesale.
type SetQueueRequest struct {
	Queue []state.Episode `json:"queue"`
}

// ControlPlaybackRequest plays or pauses the active site tab.
type ControlPlaybackRequest struct {
	Action string `json:"action"`
}

// ControlPlaybackResponse relays the tab's reply.
type ControlPlaybackResponse struct {
	Success bool   `json:"success"`
	State   string `json:"state,omitempty"`
}

// DebugDumpRequest fetches the diagnostics snapshot.
type DebugDumpRequest struct{}

// DebugDumpResponse carries the diagnostics snapshot.
type DebugDumpResponse struct {
	Dump protocol.DebugDump `json:"dump"`
}
