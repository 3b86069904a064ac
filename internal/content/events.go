package content

// EventType classifies one inbound page event.
type EventType string

const (
	// EventSnapshot replaces the engine's document mirror with fresh HTML.
	EventSnapshot EventType = "dom_snapshot"
	// EventMutation carries re-serialized HTML after a page mutation. Handled
	// identically to a snapshot; the distinction only matters to the page.
	EventMutation EventType = "dom_mutation"
	// EventNavigated reports a page URL change within the session.
	EventNavigated EventType = "navigated"
	// EventVideo reports a video element lifecycle or playback transition.
	EventVideo EventType = "video_event"
	// EventMenuClick reports that an injected menu entry was selected.
	EventMenuClick EventType = "menu_click"
)

// Video event names, mirroring the media element events the page listens for.
// "found" is sent once when a video element is first bound, "detached" when
// the bound element left the document.
const (
	VideoFound      = "found"
	VideoPlay       = "play"
	VideoPause      = "pause"
	VideoEnded      = "ended"
	VideoLoadedData = "loadeddata"
	VideoDetached   = "detached"
)

// VideoEvent carries the element flags alongside the event name so playback
// state can be derived without a round trip.
type VideoEvent struct {
	Name   string `json:"name"`
	Paused bool   `json:"paused"`
	Ended  bool   `json:"ended"`
}

// Event is one inbound page event.
type Event struct {
	Type    EventType   `json:"type"`
	HTML    string      `json:"html,omitempty"`
	URL     string      `json:"url,omitempty"`
	EntryID string      `json:"entryId,omitempty"`
	Video   *VideoEvent `json:"video,omitempty"`
}
