package bridge

import (
	"encoding/json"

	"watchq/internal/content"
	"watchq/internal/protocol"
)

// Frame kinds on the bridge socket.
const (
	// frameHello registers or refreshes a connection. The first frame on
	// every connection must be a hello.
	frameHello = "hello"
	// frameCommand carries a protocol message into the router; the bridge
	// answers with a reply frame bearing the same id.
	frameCommand = "command"
	// frameEvent carries a page event into the session's content engine.
	// Fire and forget.
	frameEvent = "event"
	// frameOp asks the page to perform a DOM or video operation; the page
	// answers with a reply frame bearing the same id.
	frameOp = "op"
	// frameReply answers a command or op frame.
	frameReply = "reply"
	// frameState is the STATE_UPDATED broadcast pushed to every connection.
	frameState = "state"
)

// Connection roles declared in the hello frame.
const (
	roleTab     = "tab"
	roleWatcher = "watcher"
)

type helloPayload struct {
	Role     string `json:"role"`
	TabID    int    `json:"tabId"`
	WindowID int    `json:"windowId"`
	URL      string `json:"url"`
	Active   bool   `json:"active"`
}

// Page operation names.
const (
	opSetAttributes    = "set_attributes"
	opInsertMenu       = "insert_menu"
	opClick            = "click"
	opVideoPlay        = "video_play"
	opVideoPause       = "video_pause"
	opAudioTracks      = "audio_tracks"
	opEnableAudioTrack = "enable_audio_track"
)

type pageOp struct {
	Op      string              `json:"op"`
	Path    string              `json:"path,omitempty"`
	Attrs   map[string]string   `json:"attrs,omitempty"`
	Entries []content.MenuEntry `json:"entries,omitempty"`
	Index   int                 `json:"index,omitempty"`
}

type frame struct {
	Kind      string            `json:"kind"`
	ID        string            `json:"id,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	Hello     *helloPayload     `json:"hello,omitempty"`
	Message   *protocol.Message `json:"message,omitempty"`
	Event     *content.Event    `json:"event,omitempty"`
	Op        *pageOp           `json:"op,omitempty"`
	Result    json.RawMessage   `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
}
