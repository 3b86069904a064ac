package content_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"watchq/internal/config"
	"watchq/internal/content"
	"watchq/internal/language"
	"watchq/internal/protocol"
	"watchq/internal/state"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	messages []protocol.Message
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, msg protocol.Message) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	return nil, nil
}

func (d *fakeDispatcher) ofType(kind protocol.Type) []protocol.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []protocol.Message
	for _, msg := range d.messages {
		if msg.Type == kind {
			matched = append(matched, msg)
		}
	}
	return matched
}

type attrCall struct {
	path  string
	attrs map[string]string
}

type menuCall struct {
	path    string
	entries []content.MenuEntry
}

type fakePage struct {
	mu       sync.Mutex
	attrs    []attrCall
	menus    []menuCall
	clicks   []string
	clickErr error
}

func (p *fakePage) SetAttributes(ctx context.Context, path string, attrs map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attrs = append(p.attrs, attrCall{path: path, attrs: attrs})
	return nil
}

func (p *fakePage) InsertMenuEntries(ctx context.Context, path string, entries []content.MenuEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.menus = append(p.menus, menuCall{path: path, entries: entries})
	return nil
}

func (p *fakePage) Click(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clickErr != nil {
		return p.clickErr
	}
	p.clicks = append(p.clicks, path)
	return nil
}

type fakeVideo struct {
	mu        sync.Mutex
	played    int
	paused    int
	enabled   []int
	tracks    []language.Track
	tracksErr error
}

func (v *fakeVideo) Play(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.played++
	return nil
}

func (v *fakeVideo) Pause(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused++
	return nil
}

func (v *fakeVideo) AudioTracks(ctx context.Context) ([]language.Track, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tracks, v.tracksErr
}

func (v *fakeVideo) EnableAudioTrack(ctx context.Context, index int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = append(v.enabled, index)
	return nil
}

const browsePage = `<html><body><ul>
<li><a href="/watch/EP1">Episode 1</a><h3>Title One</h3><img src="/thumb1.jpg"/><div role="menu"></div></li>
<li><a href="/watch/EP2">Episode 2</a><h3>Title Two</h3><div role="menu"></div></li>
<li><a href="/watch/EP3">Episode 3</a><h3>Title Three</h3><div role="menu"></div></li>
</ul></body></html>`

func newEngine(t *testing.T, pageURL string) (*content.Engine, *fakeDispatcher, *fakePage, *fakeVideo) {
	t.Helper()
	dispatcher := &fakeDispatcher{}
	page := &fakePage{}
	video := &fakeVideo{}
	engine := content.New(content.Options{
		SessionID:       "session-1",
		PageURL:         pageURL,
		Site:            config.Default().Site,
		RescanInterval:  time.Hour,
		MenuPollTimeout: 500 * time.Millisecond,
		MenuPollTick:    10 * time.Millisecond,
	}, dispatcher, page, video, nil)
	engine.Start(context.Background())
	t.Cleanup(engine.Stop)
	return engine, dispatcher, page, video
}

func sendSnapshot(engine *content.Engine, html string) {
	engine.HandleEvent(context.Background(), content.Event{Type: content.EventSnapshot, HTML: html})
}

func TestSnapshotAnnotatesCardsAndInjectsMenus(t *testing.T) {
	engine, dispatcher, page, _ := newEngine(t, "https://www.crunchyroll.com/browse")
	sendSnapshot(engine, browsePage)

	if len(page.attrs) != 3 {
		t.Fatalf("annotated %d cards, want 3", len(page.attrs))
	}
	first := page.attrs[0].attrs
	if first["data-watchq-episode-id"] != "EP1" {
		t.Fatalf("first card id = %q", first["data-watchq-episode-id"])
	}
	if first["data-watchq-episode-url"] != "https://www.crunchyroll.com/watch/EP1" {
		t.Fatalf("first card url = %q", first["data-watchq-episode-url"])
	}
	if first["data-watchq-episode-title"] != "Title One" {
		t.Fatalf("first card title = %q", first["data-watchq-episode-title"])
	}
	if first["data-watchq-episode-thumbnail"] != "/thumb1.jpg" {
		t.Fatalf("first card thumbnail = %q", first["data-watchq-episode-thumbnail"])
	}
	if page.attrs[1].attrs["data-watchq-episode-thumbnail"] != "" {
		t.Fatal("second card has no image and should carry no thumbnail")
	}

	if len(page.menus) != 3 {
		t.Fatalf("injected %d menus, want 3", len(page.menus))
	}
	entries := page.menus[0].entries
	if len(entries) != 2 || entries[0].Label != "Add to queue…" || entries[1].Label != "Add this and newer…" {
		t.Fatalf("menu entries = %#v", entries)
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Fatalf("entry ids must be unique and non-empty: %#v", entries)
	}

	if selects := dispatcher.ofType(protocol.TypeSelectEpisode); len(selects) != 0 {
		t.Fatalf("browse pages must not auto-select, got %d", len(selects))
	}
}

func TestRescanOfSameDocumentIsNoOp(t *testing.T) {
	engine, _, page, _ := newEngine(t, "https://www.crunchyroll.com/browse")
	sendSnapshot(engine, browsePage)
	attrCount, menuCount := len(page.attrs), len(page.menus)

	// Navigating to the same URL re-runs discovery over the annotated mirror.
	engine.HandleEvent(context.Background(), content.Event{
		Type: content.EventNavigated, URL: "https://www.crunchyroll.com/browse",
	})

	if len(page.attrs) != attrCount || len(page.menus) != menuCount {
		t.Fatalf("rescan produced new ops: attrs %d -> %d, menus %d -> %d",
			attrCount, len(page.attrs), menuCount, len(page.menus))
	}
}

func TestWatchPageAutoSelectsOnce(t *testing.T) {
	engine, dispatcher, _, _ := newEngine(t, "https://www.crunchyroll.com/watch/EP5")
	sendSnapshot(engine, "<html><body></body></html>")
	sendSnapshot(engine, "<html><body></body></html>")

	selects := dispatcher.ofType(protocol.TypeSelectEpisode)
	if len(selects) != 1 {
		t.Fatalf("auto-select fired %d times, want 1", len(selects))
	}
	var payload protocol.IDPayload
	if err := selects[0].DecodePayload(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.ID != "EP5" {
		t.Fatalf("selected id = %q, want EP5", payload.ID)
	}
}

func TestNavigationToNewWatchPageSelectsAgain(t *testing.T) {
	engine, dispatcher, _, _ := newEngine(t, "https://www.crunchyroll.com/watch/EP5")
	sendSnapshot(engine, "<html><body></body></html>")
	engine.HandleEvent(context.Background(), content.Event{
		Type: content.EventNavigated, URL: "https://www.crunchyroll.com/watch/EP6",
	})

	selects := dispatcher.ofType(protocol.TypeSelectEpisode)
	if len(selects) != 2 {
		t.Fatalf("auto-select fired %d times, want 2", len(selects))
	}
	var payload protocol.IDPayload
	if err := selects[1].DecodePayload(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.ID != "EP6" {
		t.Fatalf("selected id = %q, want EP6", payload.ID)
	}
}

func menuEntryID(t *testing.T, page *fakePage, menuIndex int, label string) string {
	t.Helper()
	if menuIndex >= len(page.menus) {
		t.Fatalf("menu %d not injected, have %d", menuIndex, len(page.menus))
	}
	for _, entry := range page.menus[menuIndex].entries {
		if entry.Label == label {
			return entry.ID
		}
	}
	t.Fatalf("menu %d has no entry %q: %#v", menuIndex, label, page.menus[menuIndex].entries)
	return ""
}

func TestMenuClickAddsSingleEpisode(t *testing.T) {
	engine, dispatcher, page, _ := newEngine(t, "https://www.crunchyroll.com/browse")
	sendSnapshot(engine, browsePage)

	entryID := menuEntryID(t, page, 1, "Add to queue…")
	engine.HandleEvent(context.Background(), content.Event{Type: content.EventMenuClick, EntryID: entryID})

	adds := dispatcher.ofType(protocol.TypeAddEpisode)
	if len(adds) != 1 {
		t.Fatalf("ADD_EPISODE dispatched %d times, want 1", len(adds))
	}
	var episode state.Episode
	if err := adds[0].DecodePayload(&episode); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if episode.ID != "EP2" || episode.Title != "Title Two" {
		t.Fatalf("episode = %#v", episode)
	}
	if episode.URL != "https://www.crunchyroll.com/watch/EP2" {
		t.Fatalf("episode url = %q", episode.URL)
	}
}

func TestMenuClickAddsThisAndNewer(t *testing.T) {
	engine, dispatcher, page, _ := newEngine(t, "https://www.crunchyroll.com/browse")
	sendSnapshot(engine, browsePage)

	entryID := menuEntryID(t, page, 1, "Add this and newer…")
	engine.HandleEvent(context.Background(), content.Event{Type: content.EventMenuClick, EntryID: entryID})

	adds := dispatcher.ofType(protocol.TypeAddEpisodeAndNewer)
	if len(adds) != 1 {
		t.Fatalf("ADD_EPISODE_AND_NEWER dispatched %d times, want 1", len(adds))
	}
	var episodes []state.Episode
	if err := adds[0].DecodePayload(&episodes); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(episodes) != 2 || episodes[0].ID != "EP2" || episodes[1].ID != "EP3" {
		ids := make([]string, 0, len(episodes))
		for _, episode := range episodes {
			ids = append(ids, episode.ID)
		}
		t.Fatalf("episode ids = %v, want [EP2 EP3]", ids)
	}
}

func TestMenuClickUnknownEntryIsIgnored(t *testing.T) {
	engine, dispatcher, _, _ := newEngine(t, "https://www.crunchyroll.com/browse")
	sendSnapshot(engine, browsePage)
	before := len(dispatcher.ofType(protocol.TypeAddEpisode))

	engine.HandleEvent(context.Background(), content.Event{Type: content.EventMenuClick, EntryID: "stale"})

	if got := len(dispatcher.ofType(protocol.TypeAddEpisode)); got != before {
		t.Fatalf("stale entry dispatched an add, count %d -> %d", before, got)
	}
}

func TestReplacedDocumentInvalidatesMenuEntries(t *testing.T) {
	engine, dispatcher, page, _ := newEngine(t, "https://www.crunchyroll.com/browse")
	sendSnapshot(engine, browsePage)
	staleID := menuEntryID(t, page, 1, "Add to queue…")

	// A new snapshot is a fresh parse, so the menus are injected again with
	// new entry ids.
	sendSnapshot(engine, browsePage)
	if len(page.menus) != 6 {
		t.Fatalf("injected %d menus, want 6", len(page.menus))
	}

	engine.HandleEvent(context.Background(), content.Event{Type: content.EventMenuClick, EntryID: staleID})
	if got := len(dispatcher.ofType(protocol.TypeAddEpisode)); got != 0 {
		t.Fatalf("entry from the replaced document dispatched %d adds", got)
	}

	freshID := menuEntryID(t, page, 4, "Add to queue…")
	engine.HandleEvent(context.Background(), content.Event{Type: content.EventMenuClick, EntryID: freshID})
	adds := dispatcher.ofType(protocol.TypeAddEpisode)
	if len(adds) != 1 {
		t.Fatalf("fresh entry dispatched %d adds, want 1", len(adds))
	}
	var episode state.Episode
	if err := adds[0].DecodePayload(&episode); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if episode.ID != "EP2" {
		t.Fatalf("episode id = %q, want EP2", episode.ID)
	}
}

func TestEventsBeforeStartAreDropped(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	page := &fakePage{}
	engine := content.New(content.Options{
		SessionID: "session-1",
		PageURL:   "https://www.crunchyroll.com/browse",
		Site:      config.Default().Site,
	}, dispatcher, page, &fakeVideo{}, nil)

	engine.HandleEvent(context.Background(), content.Event{Type: content.EventSnapshot, HTML: browsePage})

	if len(page.attrs) != 0 {
		t.Fatal("events before Start must be dropped")
	}
}

func lastPlayback(t *testing.T, dispatcher *fakeDispatcher) string {
	t.Helper()
	reports := dispatcher.ofType(protocol.TypeUpdatePlayback)
	if len(reports) == 0 {
		t.Fatal("no playback report dispatched")
	}
	var payload protocol.PlaybackPayload
	if err := reports[len(reports)-1].DecodePayload(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload.State
}

func sendVideo(engine *content.Engine, event content.VideoEvent) {
	engine.HandleEvent(context.Background(), content.Event{Type: content.EventVideo, Video: &event})
}

func TestVideoEventsDerivePlaybackState(t *testing.T) {
	engine, dispatcher, _, _ := newEngine(t, "https://www.crunchyroll.com/watch/EP1")

	sendVideo(engine, content.VideoEvent{Name: content.VideoFound, Paused: true})
	if got := lastPlayback(t, dispatcher); got != "paused" {
		t.Fatalf("after found(paused): %q", got)
	}

	sendVideo(engine, content.VideoEvent{Name: content.VideoPlay})
	if got := lastPlayback(t, dispatcher); got != "playing" {
		t.Fatalf("after play: %q", got)
	}

	sendVideo(engine, content.VideoEvent{Name: content.VideoPause, Ended: true})
	if got := lastPlayback(t, dispatcher); got != "ended" {
		t.Fatalf("after pause(ended): %q", got)
	}

	sendVideo(engine, content.VideoEvent{Name: content.VideoLoadedData, Paused: true})
	if got := lastPlayback(t, dispatcher); got != "idle" {
		t.Fatalf("after loadeddata: %q", got)
	}

	sendVideo(engine, content.VideoEvent{Name: content.VideoPause})
	if got := lastPlayback(t, dispatcher); got != "paused" {
		t.Fatalf("after plain pause: %q", got)
	}

	reports := len(dispatcher.ofType(protocol.TypeUpdatePlayback))
	sendVideo(engine, content.VideoEvent{Name: content.VideoDetached})
	if got := len(dispatcher.ofType(protocol.TypeUpdatePlayback)); got != reports {
		t.Fatal("a detached element must not produce a report")
	}
}

func controlPlayback(t *testing.T, engine *content.Engine, action string) protocol.ControlResult {
	t.Helper()
	result, err := engine.HandleDirective(context.Background(),
		protocol.MustMessage(protocol.TypeControlPlayback, protocol.ControlPayload{Action: action}))
	if err != nil {
		t.Fatalf("HandleDirective: %v", err)
	}
	control, ok := result.(protocol.ControlResult)
	if !ok {
		t.Fatalf("result = %#v", result)
	}
	return control
}

func TestControlPlaybackWithoutVideoFails(t *testing.T) {
	engine, _, _, video := newEngine(t, "https://www.crunchyroll.com/watch/EP1")

	if result := controlPlayback(t, engine, protocol.ActionPlay); result.Success {
		t.Fatal("control with no tracked video should fail")
	}
	if video.played != 0 {
		t.Fatal("the video port must not be touched without a tracked element")
	}
}

func TestControlPlaybackDrivesVideo(t *testing.T) {
	engine, _, _, video := newEngine(t, "https://www.crunchyroll.com/watch/EP1")
	sendVideo(engine, content.VideoEvent{Name: content.VideoFound, Paused: true})

	result := controlPlayback(t, engine, protocol.ActionPlay)
	if !result.Success || result.State != state.PlaybackPlaying {
		t.Fatalf("play result = %#v", result)
	}
	if video.played != 1 {
		t.Fatalf("Play called %d times", video.played)
	}

	result = controlPlayback(t, engine, protocol.ActionPause)
	if !result.Success || result.State != state.PlaybackPaused {
		t.Fatalf("pause result = %#v", result)
	}
	if video.paused != 1 {
		t.Fatalf("Pause called %d times", video.paused)
	}

	if result := controlPlayback(t, engine, "rewind"); result.Success {
		t.Fatal("unknown actions should fail")
	}
}

func applyAudio(t *testing.T, engine *content.Engine, code, label string) bool {
	t.Helper()
	result, err := engine.HandleDirective(context.Background(),
		protocol.MustMessage(protocol.TypeApplyAudioLanguage, protocol.ApplyAudioLanguagePayload{
			AudioLanguage: code, Label: label,
		}))
	if err != nil {
		t.Fatalf("HandleDirective: %v", err)
	}
	apply, ok := result.(protocol.ApplyResult)
	if !ok {
		t.Fatalf("result = %#v", result)
	}
	return apply.Success
}

func TestApplyAudioLanguageDirect(t *testing.T) {
	engine, dispatcher, _, video := newEngine(t, "https://www.crunchyroll.com/watch/EP1")
	sendVideo(engine, content.VideoEvent{Name: content.VideoFound})
	video.tracks = []language.Track{
		{Language: "ja-JP", Label: "Japanese", Enabled: true},
		{Language: "en-US", Label: "English"},
	}

	if !applyAudio(t, engine, "en-US", "English") {
		t.Fatal("direct track switch should succeed")
	}
	if len(video.enabled) != 1 || video.enabled[0] != 1 {
		t.Fatalf("enabled tracks = %v, want [1]", video.enabled)
	}
	if got := lastPlayback(t, dispatcher); got != "playing" {
		t.Fatalf("post-switch playback report = %q", got)
	}
}

const audioMenuPage = `<html><body>
<button data-testid="audio-menu-button" aria-expanded="false">Audio</button>
<div><span role="menuitemradio">Japanese</span><span role="menuitemradio">English</span></div>
</body></html>`

func TestApplyAudioLanguageFallsBackToMenu(t *testing.T) {
	engine, _, page, video := newEngine(t, "https://www.crunchyroll.com/watch/EP1")
	sendVideo(engine, content.VideoEvent{Name: content.VideoFound})
	video.tracksErr = errors.New("track list unavailable")
	sendSnapshot(engine, audioMenuPage)

	if !applyAudio(t, engine, "en-US", "English") {
		t.Fatal("menu fallback should succeed")
	}
	if len(page.clicks) != 3 {
		t.Fatalf("clicks = %v, want toggle, option, toggle", page.clicks)
	}
	if page.clicks[0] != page.clicks[2] {
		t.Fatal("the toggle must be restored after the switch")
	}
	if page.clicks[1] == page.clicks[0] {
		t.Fatal("the option click must target the option, not the toggle")
	}
}

const audioMenuOpenPage = `<html><body>
<button data-testid="audio-menu-button" aria-expanded="true">Audio</button>
<div><span role="menuitemradio">English</span></div>
</body></html>`

func TestApplyAudioLanguageLeavesOpenMenuOpen(t *testing.T) {
	engine, _, page, _ := newEngine(t, "https://www.crunchyroll.com/watch/EP1")
	sendSnapshot(engine, audioMenuOpenPage)

	if !applyAudio(t, engine, "en-US", "English") {
		t.Fatal("menu fallback should succeed")
	}
	if len(page.clicks) != 1 {
		t.Fatalf("clicks = %v, want only the option click", page.clicks)
	}
}

const audioMenuHiddenOptionPage = `<html><body>
<button data-testid="audio-menu-button" aria-expanded="true">Audio</button>
<div style="display: none"><span role="menuitemradio">English</span></div>
<div><span role="menuitemradio">Japanese</span></div>
</body></html>`

func TestApplyAudioLanguageSkipsHiddenOptions(t *testing.T) {
	engine, _, _, _ := newEngine(t, "https://www.crunchyroll.com/watch/EP1")
	sendSnapshot(engine, audioMenuHiddenOptionPage)

	if applyAudio(t, engine, "en-US", "English") {
		t.Fatal("a hidden option must not be selectable")
	}
}

func TestApplyAudioLanguageWithNothingAvailableFails(t *testing.T) {
	engine, _, _, _ := newEngine(t, "https://www.crunchyroll.com/watch/EP1")
	sendSnapshot(engine, "<html><body></body></html>")

	if applyAudio(t, engine, "en-US", "English") {
		t.Fatal("no tracks and no menu should fail")
	}
}

func TestUnsupportedDirectiveErrors(t *testing.T) {
	engine, _, _, _ := newEngine(t, "https://www.crunchyroll.com/watch/EP1")

	if _, err := engine.HandleDirective(context.Background(), protocol.Message{Type: protocol.TypeGetState}); err == nil {
		t.Fatal("non-directive messages should be rejected")
	}
}
