package content

import (
	"context"

	"watchq/internal/language"
	"watchq/internal/protocol"
)

// Dispatcher routes command messages into the state router.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg protocol.Message) (any, error)
}

// MenuEntry is one queue action injected into a card menu. The id is
// engine-assigned and echoed back in a menu_click event when selected.
type MenuEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PageConn applies DOM effects inside the live page. Paths are the
// tag:nth-child chains produced by the engine's mirror.
type PageConn interface {
	SetAttributes(ctx context.Context, path string, attrs map[string]string) error
	InsertMenuEntries(ctx context.Context, path string, entries []MenuEntry) error
	Click(ctx context.Context, path string) error
}

// VideoPort drives the page's tracked video element. EnableAudioTrack must
// leave exactly the given track enabled.
type VideoPort interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	AudioTracks(ctx context.Context) ([]language.Track, error)
	EnableAudioTrack(ctx context.Context, index int) error
}
