package protocol

import (
	"encoding/json"
	"fmt"

	"watchq/internal/language"
	"watchq/internal/state"
)

// Type identifies one message kind in the catalog.
type Type string

// Commands (inbound to the router) and notifications.
const (
	TypeGetState           Type = "GET_STATE"
	TypeAddEpisode         Type = "ADD_EPISODE"
	TypeAddEpisodeAndNewer Type = "ADD_EPISODE_AND_NEWER"
	TypeRemoveEpisode      Type = "REMOVE_EPISODE"
	TypeReorderQueue       Type = "REORDER_QUEUE"
	TypeSelectEpisode      Type = "SELECT_EPISODE"
	TypeUpdatePlayback     Type = "UPDATE_PLAYBACK_STATE"
	TypeUpdateSettings     Type = "UPDATE_SETTINGS"
	TypeSetAudioLanguage   Type = "SET_AUDIO_LANGUAGE"
	TypeSetQueue           Type = "SET_QUEUE"
	TypeRequestDebugDump   Type = "REQUEST_DEBUG_DUMP"
	TypeControlPlayback    Type = "CONTROL_PLAYBACK"
	TypeStateUpdated       Type = "STATE_UPDATED"
	TypeApplyAudioLanguage Type = "APPLY_AUDIO_LANGUAGE"
)

// Playback control actions.
const (
	ActionPlay  = "play"
	ActionPause = "pause"
)

// Message is the envelope every cross-context payload travels in.
type Message struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage wraps a payload value into an envelope.
func NewMessage(kind Type, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: kind}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Message{Type: kind, Payload: raw}, nil
}

// MustMessage is NewMessage for payloads that cannot fail to encode.
func MustMessage(kind Type, payload any) Message {
	msg, err := NewMessage(kind, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// DecodePayload unmarshals the envelope payload into dst.
func (m Message) DecodePayload(dst any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// IDPayload carries an episode id. For SELECT_EPISODE an empty id clears the
// selection.
type IDPayload struct {
	ID string `json:"id"`
}

// ReorderPayload carries the user's desired queue order. IDs absent from the
// queue are ignored; queued episodes absent from IDs are preserved.
type ReorderPayload struct {
	IDs []string `json:"ids"`
}

// PlaybackPayload reports a playback state observed by a content session.
type PlaybackPayload struct {
	State string `json:"state"`
}

// ControlPayload asks the active site tab to play or pause.
type ControlPayload struct {
	Action string `json:"action"`
}

// ControlResult is the reply relayed from the controlled tab. A missing tab
// or video yields Success=false without an error.
type ControlResult struct {
	Success bool                `json:"success"`
	State   state.PlaybackState `json:"state,omitempty"`
}

// SettingsPatch is a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	AutoRemoveCompleted  *bool   `json:"autoRemoveCompleted,omitempty"`
	DebugLogging         *bool   `json:"debugLogging,omitempty"`
	DefaultAudioLanguage *string `json:"defaultAudioLanguage,omitempty"`
}

// UpdateSettingsPayload wraps a patch the way UI surfaces send it.
type UpdateSettingsPayload struct {
	Settings SettingsPatch `json:"settings"`
}

// AudioLanguagePayload assigns an audio language to one queued episode.
type AudioLanguagePayload struct {
	ID            string `json:"id"`
	AudioLanguage string `json:"audioLanguage"`
}

// SetQueuePayload replaces the queue wholesale (import, clear).
type SetQueuePayload struct {
	Queue []state.Episode `json:"queue"`
}

// ApplyAudioLanguagePayload is the background→content directive asking a page
// session to switch its audio track.
type ApplyAudioLanguagePayload struct {
	AudioLanguage string `json:"audioLanguage"`
	Label         string `json:"label,omitempty"`
}

// ApplyResult acknowledges an audio language directive.
type ApplyResult struct {
	Success bool `json:"success"`
}

// DebugDump is the read-only diagnostics snapshot.
type DebugDump struct {
	Timestamp      string            `json:"timestamp"`
	AudioLanguages []language.Option `json:"audioLanguages"`
	State          *state.AppState   `json:"state"`
}
