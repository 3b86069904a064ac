package state

import "time"

// PlaybackState is the last known status of the video element in the most
// recently observed tab. Transitions are reported by content sessions, never
// computed by the router.
type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
	PlaybackEnded   PlaybackState = "ended"
)

// ParsePlaybackState validates a wire value.
func ParsePlaybackState(value string) (PlaybackState, bool) {
	switch PlaybackState(value) {
	case PlaybackIdle, PlaybackPlaying, PlaybackPaused, PlaybackEnded:
		return PlaybackState(value), true
	}
	return "", false
}

// Episode is one queued unit of media. ID is derived from the watch-page URL
// path segment (or the raw URL when unparseable) and is unique within the
// queue, not globally.
type Episode struct {
	ID            string `json:"id"`
	URL           string `json:"url,omitempty"`
	Title         string `json:"title,omitempty"`
	Subtitle      string `json:"subtitle,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	AudioLanguage string `json:"audioLanguage,omitempty"`
	AddedAt       int64  `json:"addedAt,omitempty"`
}

// Settings is the flat configuration record synchronized with the UI surfaces.
// Mutation is a shallow merge: unspecified fields are preserved.
type Settings struct {
	AutoRemoveCompleted  bool   `json:"autoRemoveCompleted"`
	DebugLogging         bool   `json:"debugLogging"`
	DefaultAudioLanguage string `json:"defaultAudioLanguage"`
}

// AppState is the root synchronized entity. CurrentEpisodeID is a weak
// reference: removing the referenced episode clears it and resets playback.
type AppState struct {
	Queue            []Episode     `json:"queue"`
	CurrentEpisodeID string        `json:"currentEpisodeId,omitempty"`
	PlaybackState    PlaybackState `json:"playbackState"`
	Settings         Settings      `json:"settings"`
	LastUpdated      int64         `json:"lastUpdated"`
}

// DefaultSettings returns the first-run settings. The default audio language
// is the first entry of the language catalog.
func DefaultSettings(defaultAudioLanguage string) Settings {
	return Settings{
		AutoRemoveCompleted:  true,
		DebugLogging:         false,
		DefaultAudioLanguage: defaultAudioLanguage,
	}
}

// NewAppState constructs the first-run state document.
func NewAppState(defaultAudioLanguage string) *AppState {
	return &AppState{
		Queue:         []Episode{},
		PlaybackState: PlaybackIdle,
		Settings:      DefaultSettings(defaultAudioLanguage),
		LastUpdated:   NowMillis(),
	}
}

// Normalize backfills missing fields from defaults after loading a persisted
// document. Unknown stored fields were already dropped by JSON decoding.
func (s *AppState) Normalize(defaultAudioLanguage string) {
	if s.Queue == nil {
		s.Queue = []Episode{}
	}
	if _, ok := ParsePlaybackState(string(s.PlaybackState)); !ok {
		s.PlaybackState = PlaybackIdle
	}
	if s.Settings.DefaultAudioLanguage == "" {
		s.Settings.DefaultAudioLanguage = defaultAudioLanguage
	}
	if s.LastUpdated == 0 {
		s.LastUpdated = NowMillis()
	}
}

// Clone returns a deep copy so broadcast receivers can never alias the
// router's authoritative document.
func (s *AppState) Clone() *AppState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Queue = make([]Episode, len(s.Queue))
	copy(cp.Queue, s.Queue)
	return &cp
}

// IndexOf returns the queue position of the episode with the given id, or -1.
func (s *AppState) IndexOf(id string) int {
	for i := range s.Queue {
		if s.Queue[i].ID == id {
			return i
		}
	}
	return -1
}

// NowMillis is the timestamp source for AddedAt and LastUpdated. Overridable
// in tests.
var NowMillis = func() int64 {
	return time.Now().UnixMilli()
}
