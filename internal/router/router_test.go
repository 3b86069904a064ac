package router_test

import (
	"context"
	"errors"
	"testing"

	"watchq/internal/protocol"
	"watchq/internal/router"
	"watchq/internal/state"
	"watchq/internal/testsupport"
)

type recordingBroadcaster struct {
	states []*state.AppState
}

func (b *recordingBroadcaster) BroadcastState(app *state.AppState) {
	b.states = append(b.states, app)
}

type fakeDirectives struct {
	controlActions []string
	controlResult  protocol.ControlResult
	appliedCodes   []string
	appliedLabels  []string
}

func (d *fakeDirectives) ControlPlayback(ctx context.Context, action string) protocol.ControlResult {
	d.controlActions = append(d.controlActions, action)
	return d.controlResult
}

func (d *fakeDirectives) ApplyAudioLanguage(ctx context.Context, audioLanguage, label string) {
	d.appliedCodes = append(d.appliedCodes, audioLanguage)
	d.appliedLabels = append(d.appliedLabels, label)
}

type failingAdapter struct {
	*testsupport.MemoryAdapter
	failSaves bool
}

func (a *failingAdapter) Save(ctx context.Context, app *state.AppState) error {
	if a.failSaves {
		return errors.New("disk full")
	}
	return a.MemoryAdapter.Save(ctx, app)
}

func newRouter(t *testing.T) (*router.Router, *testsupport.MemoryAdapter) {
	t.Helper()
	adapter := testsupport.NewMemoryAdapter()
	rt, err := router.New(adapter, nil)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	if err := rt.Load(context.Background()); err != nil {
		t.Fatalf("router.Load: %v", err)
	}
	return rt, adapter
}

func mustAdd(t *testing.T, rt *router.Router, episodes ...state.Episode) *state.AppState {
	t.Helper()
	app, err := rt.AddEpisodes(context.Background(), episodes)
	if err != nil {
		t.Fatalf("AddEpisodes: %v", err)
	}
	return app
}

func TestLoadFirstRunPersistsDefaults(t *testing.T) {
	_, adapter := newRouter(t)

	stored := adapter.Stored()
	if stored == nil {
		t.Fatal("first run should persist the default state")
	}
	if stored.Settings.DefaultAudioLanguage != "ja-JP" {
		t.Fatalf("persisted default language = %q", stored.Settings.DefaultAudioLanguage)
	}
}

func TestLoadNormalizesStoredState(t *testing.T) {
	adapter := testsupport.NewMemoryAdapter()
	adapter.Seed(&state.AppState{PlaybackState: "bogus"})

	rt, err := router.New(adapter, nil)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	if err := rt.Load(context.Background()); err != nil {
		t.Fatalf("router.Load: %v", err)
	}

	app := rt.GetState()
	if app.PlaybackState != state.PlaybackIdle {
		t.Fatalf("playback state = %q, want idle", app.PlaybackState)
	}
	if app.Settings.DefaultAudioLanguage != "ja-JP" {
		t.Fatalf("default language = %q", app.Settings.DefaultAudioLanguage)
	}
}

func TestAddEpisodesStampsAndInheritsLanguage(t *testing.T) {
	rt, _ := newRouter(t)

	app := mustAdd(t, rt,
		state.Episode{ID: "ep-1", Title: "One"},
		state.Episode{ID: "ep-2", Title: "Two", AudioLanguage: "en-US"},
	)

	if len(app.Queue) != 2 {
		t.Fatalf("queue length = %d, want 2", len(app.Queue))
	}
	if app.Queue[0].AudioLanguage != "ja-JP" {
		t.Fatalf("episode without language should inherit the default, got %q", app.Queue[0].AudioLanguage)
	}
	if app.Queue[1].AudioLanguage != "en-US" {
		t.Fatalf("explicit language overwritten: %q", app.Queue[1].AudioLanguage)
	}
	if app.Queue[0].AddedAt == 0 {
		t.Fatal("AddedAt should be stamped on insertion")
	}
}

func TestAddEpisodesSkipsDuplicates(t *testing.T) {
	rt, adapter := newRouter(t)
	mustAdd(t, rt, state.Episode{ID: "ep-1"})
	savesBefore := adapter.Saves

	app := mustAdd(t, rt, state.Episode{ID: "ep-1", Title: "Again"})

	if len(app.Queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(app.Queue))
	}
	if adapter.Saves != savesBefore {
		t.Fatal("a no-op add should not commit")
	}
}

func TestRemoveCurrentEpisodeResetsPlayback(t *testing.T) {
	rt, _ := newRouter(t)
	mustAdd(t, rt, state.Episode{ID: "ep-1"}, state.Episode{ID: "ep-2"})
	if _, err := rt.SelectEpisode(context.Background(), "ep-1"); err != nil {
		t.Fatalf("SelectEpisode: %v", err)
	}
	if _, err := rt.SetPlaybackState(context.Background(), state.PlaybackPlaying); err != nil {
		t.Fatalf("SetPlaybackState: %v", err)
	}

	app, err := rt.RemoveEpisode(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("RemoveEpisode: %v", err)
	}
	if len(app.Queue) != 1 || app.Queue[0].ID != "ep-2" {
		t.Fatalf("queue after removal = %#v", app.Queue)
	}
	if app.CurrentEpisodeID != "" {
		t.Fatalf("selection should be cleared, got %q", app.CurrentEpisodeID)
	}
	if app.PlaybackState != state.PlaybackIdle {
		t.Fatalf("playback should reset to idle, got %q", app.PlaybackState)
	}
}

func TestRemoveUnknownEpisodeIsNoOp(t *testing.T) {
	rt, adapter := newRouter(t)
	mustAdd(t, rt, state.Episode{ID: "ep-1"})
	savesBefore := adapter.Saves

	app, err := rt.RemoveEpisode(context.Background(), "missing")
	if err != nil {
		t.Fatalf("RemoveEpisode: %v", err)
	}
	if len(app.Queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(app.Queue))
	}
	if adapter.Saves != savesBefore {
		t.Fatal("removing a missing id should not commit")
	}
}

func TestReorderQueueKeepsUnlistedEpisodes(t *testing.T) {
	rt, _ := newRouter(t)
	mustAdd(t, rt, state.Episode{ID: "a"}, state.Episode{ID: "b"}, state.Episode{ID: "c"})

	app, err := rt.ReorderQueue(context.Background(), []string{"c", "a", "ghost", "c"})
	if err != nil {
		t.Fatalf("ReorderQueue: %v", err)
	}

	got := make([]string, 0, len(app.Queue))
	for _, episode := range app.Queue {
		got = append(got, episode.ID)
	}
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("queue order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queue order = %v, want %v", got, want)
		}
	}
}

func TestSelectEpisode(t *testing.T) {
	rt, _ := newRouter(t)
	mustAdd(t, rt, state.Episode{ID: "ep-1"})

	app, err := rt.SelectEpisode(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("SelectEpisode: %v", err)
	}
	if app.CurrentEpisodeID != "ep-1" {
		t.Fatalf("current = %q, want ep-1", app.CurrentEpisodeID)
	}

	app, err = rt.SelectEpisode(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("SelectEpisode: %v", err)
	}
	if app.CurrentEpisodeID != "ep-1" {
		t.Fatalf("selecting an unknown id should be a no-op, current = %q", app.CurrentEpisodeID)
	}

	app, err = rt.SelectEpisode(context.Background(), "")
	if err != nil {
		t.Fatalf("SelectEpisode: %v", err)
	}
	if app.CurrentEpisodeID != "" {
		t.Fatalf("empty id should clear the selection, current = %q", app.CurrentEpisodeID)
	}
}

func TestEndedWithAutoRemoveSplicesCurrent(t *testing.T) {
	rt, adapter := newRouter(t)
	mustAdd(t, rt, state.Episode{ID: "ep-1"}, state.Episode{ID: "ep-2"})
	if _, err := rt.SelectEpisode(context.Background(), "ep-1"); err != nil {
		t.Fatalf("SelectEpisode: %v", err)
	}
	savesBefore := adapter.Saves

	app, err := rt.SetPlaybackState(context.Background(), state.PlaybackEnded)
	if err != nil {
		t.Fatalf("SetPlaybackState: %v", err)
	}
	if len(app.Queue) != 1 || app.Queue[0].ID != "ep-2" {
		t.Fatalf("queue after ended = %#v", app.Queue)
	}
	if app.CurrentEpisodeID != "" || app.PlaybackState != state.PlaybackIdle {
		t.Fatalf("ended should clear selection and idle playback, got %q/%q",
			app.CurrentEpisodeID, app.PlaybackState)
	}
	if adapter.Saves != savesBefore+1 {
		t.Fatalf("ended should commit exactly once, saves went %d -> %d", savesBefore, adapter.Saves)
	}
}

func TestEndedWithoutAutoRemoveKeepsEpisode(t *testing.T) {
	rt, _ := newRouter(t)
	mustAdd(t, rt, state.Episode{ID: "ep-1"})
	disabled := false
	if _, err := rt.UpdateSettings(context.Background(), protocol.SettingsPatch{AutoRemoveCompleted: &disabled}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if _, err := rt.SelectEpisode(context.Background(), "ep-1"); err != nil {
		t.Fatalf("SelectEpisode: %v", err)
	}

	app, err := rt.SetPlaybackState(context.Background(), state.PlaybackEnded)
	if err != nil {
		t.Fatalf("SetPlaybackState: %v", err)
	}
	if len(app.Queue) != 1 || app.CurrentEpisodeID != "ep-1" {
		t.Fatalf("episode should stay queued and selected, got %#v current=%q", app.Queue, app.CurrentEpisodeID)
	}
	if app.PlaybackState != state.PlaybackEnded {
		t.Fatalf("playback = %q, want ended", app.PlaybackState)
	}
}

func TestUpdateSettingsMergesAndBackfills(t *testing.T) {
	rt, _ := newRouter(t)
	mustAdd(t, rt,
		state.Episode{ID: "ep-1"},
		state.Episode{ID: "ep-2", AudioLanguage: "de-DE"},
	)

	newDefault := "en-US"
	app, err := rt.UpdateSettings(context.Background(), protocol.SettingsPatch{DefaultAudioLanguage: &newDefault})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	if app.Settings.DefaultAudioLanguage != "en-US" {
		t.Fatalf("default language = %q", app.Settings.DefaultAudioLanguage)
	}
	if !app.Settings.AutoRemoveCompleted {
		t.Fatal("untouched settings fields must be preserved")
	}
	if app.Queue[1].AudioLanguage != "de-DE" {
		t.Fatalf("explicit per-episode language overwritten: %q", app.Queue[1].AudioLanguage)
	}
	// ep-1 inherited ja-JP at insertion, so the backfill must not touch it.
	if app.Queue[0].AudioLanguage != "ja-JP" {
		t.Fatalf("inherited language changed retroactively: %q", app.Queue[0].AudioLanguage)
	}
}

func TestUpdateSettingsFiresDebugToggle(t *testing.T) {
	rt, _ := newRouter(t)

	var toggles []bool
	rt.SetDebugToggle(func(enabled bool) { toggles = append(toggles, enabled) })
	if len(toggles) != 1 || toggles[0] {
		t.Fatalf("registering the toggle should report the current value, got %v", toggles)
	}

	enabled := true
	if _, err := rt.UpdateSettings(context.Background(), protocol.SettingsPatch{DebugLogging: &enabled}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if len(toggles) != 2 || !toggles[1] {
		t.Fatalf("toggle should fire on a debug-logging change, got %v", toggles)
	}

	auto := false
	if _, err := rt.UpdateSettings(context.Background(), protocol.SettingsPatch{AutoRemoveCompleted: &auto}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if len(toggles) != 2 {
		t.Fatalf("toggle fired for an unrelated setting, got %v", toggles)
	}
}

func TestSetAudioLanguageFansOutDirective(t *testing.T) {
	rt, _ := newRouter(t)
	directives := &fakeDirectives{}
	rt.SetDirectives(directives)
	mustAdd(t, rt, state.Episode{ID: "ep-1"})

	app, err := rt.SetAudioLanguage(context.Background(), "ep-1", "en-US")
	if err != nil {
		t.Fatalf("SetAudioLanguage: %v", err)
	}
	if app.Queue[0].AudioLanguage != "en-US" {
		t.Fatalf("audio language = %q", app.Queue[0].AudioLanguage)
	}
	if len(directives.appliedCodes) != 1 || directives.appliedCodes[0] != "en-US" {
		t.Fatalf("directive codes = %v", directives.appliedCodes)
	}
	if directives.appliedLabels[0] != "English" {
		t.Fatalf("directive label = %q", directives.appliedLabels[0])
	}

	if _, err := rt.SetAudioLanguage(context.Background(), "missing", "en-US"); err != nil {
		t.Fatalf("SetAudioLanguage: %v", err)
	}
	if len(directives.appliedCodes) != 1 {
		t.Fatal("unknown episode id should not fan out a directive")
	}
}

func TestSetQueueReplacesAndBackfills(t *testing.T) {
	rt, _ := newRouter(t)
	mustAdd(t, rt, state.Episode{ID: "old"})

	app, err := rt.SetQueue(context.Background(), []state.Episode{
		{ID: "new-1"},
		{ID: "new-2", AudioLanguage: "fr-FR"},
	})
	if err != nil {
		t.Fatalf("SetQueue: %v", err)
	}
	if len(app.Queue) != 2 || app.Queue[0].ID != "new-1" {
		t.Fatalf("queue after replace = %#v", app.Queue)
	}
	if app.Queue[0].AudioLanguage != "ja-JP" {
		t.Fatalf("imported episode should inherit the default language, got %q", app.Queue[0].AudioLanguage)
	}
	if app.Queue[1].AudioLanguage != "fr-FR" {
		t.Fatalf("explicit language overwritten: %q", app.Queue[1].AudioLanguage)
	}
}

func TestControlPlaybackWithoutDirectivesFails(t *testing.T) {
	rt, _ := newRouter(t)

	result := rt.ControlPlayback(context.Background(), protocol.ActionPlay)
	if result.Success {
		t.Fatal("playback control with no tab coordinator should fail")
	}
}

func TestControlPlaybackRelaysToDirectives(t *testing.T) {
	rt, _ := newRouter(t)
	directives := &fakeDirectives{controlResult: protocol.ControlResult{Success: true, State: state.PlaybackPlaying}}
	rt.SetDirectives(directives)

	result := rt.ControlPlayback(context.Background(), protocol.ActionPause)
	if !result.Success || result.State != state.PlaybackPlaying {
		t.Fatalf("result = %#v", result)
	}
	if len(directives.controlActions) != 1 || directives.controlActions[0] != protocol.ActionPause {
		t.Fatalf("relayed actions = %v", directives.controlActions)
	}
}

func TestCommitBroadcastsClones(t *testing.T) {
	rt, _ := newRouter(t)
	broadcaster := &recordingBroadcaster{}
	rt.SetBroadcaster(broadcaster)

	mustAdd(t, rt, state.Episode{ID: "ep-1", Title: "One"})
	if len(broadcaster.states) != 1 {
		t.Fatalf("broadcast count = %d, want 1", len(broadcaster.states))
	}

	broadcaster.states[0].Queue[0].Title = "Mutated"
	if rt.GetState().Queue[0].Title != "One" {
		t.Fatal("broadcast state aliases the router's document")
	}
}

func TestSaveFailureSuppressesBroadcast(t *testing.T) {
	adapter := &failingAdapter{MemoryAdapter: testsupport.NewMemoryAdapter()}
	rt, err := router.New(adapter, nil)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	if err := rt.Load(context.Background()); err != nil {
		t.Fatalf("router.Load: %v", err)
	}
	broadcaster := &recordingBroadcaster{}
	rt.SetBroadcaster(broadcaster)
	adapter.failSaves = true

	if _, err := rt.AddEpisodes(context.Background(), []state.Episode{{ID: "ep-1"}}); err == nil {
		t.Fatal("AddEpisodes should surface the persistence failure")
	}
	if len(broadcaster.states) != 0 {
		t.Fatal("a failed commit must not broadcast")
	}
}

func TestDispatchRoutesMessages(t *testing.T) {
	rt, _ := newRouter(t)
	ctx := context.Background()

	result, err := rt.Dispatch(ctx, protocol.MustMessage(protocol.TypeAddEpisode, state.Episode{ID: "ep-1", Title: "One"}))
	if err != nil {
		t.Fatalf("Dispatch(ADD_EPISODE): %v", err)
	}
	app, ok := result.(*state.AppState)
	if !ok || len(app.Queue) != 1 {
		t.Fatalf("ADD_EPISODE result = %#v", result)
	}

	result, err = rt.Dispatch(ctx, protocol.MustMessage(protocol.TypeAddEpisodeAndNewer, []state.Episode{{ID: "ep-2"}, {ID: "ep-3"}}))
	if err != nil {
		t.Fatalf("Dispatch(ADD_EPISODE_AND_NEWER): %v", err)
	}
	if app = result.(*state.AppState); len(app.Queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(app.Queue))
	}

	if _, err := rt.Dispatch(ctx, protocol.MustMessage(protocol.TypeUpdatePlayback, protocol.PlaybackPayload{State: "bogus"})); err == nil {
		t.Fatal("an unknown playback state should be rejected")
	}

	result, err = rt.Dispatch(ctx, protocol.Message{Type: "NO_SUCH_TYPE"})
	if err != nil {
		t.Fatalf("Dispatch(unknown): %v", err)
	}
	if _, ok := result.(*state.AppState); !ok {
		t.Fatalf("unknown types should answer with state, got %#v", result)
	}
}

func TestDebugDump(t *testing.T) {
	rt, _ := newRouter(t)
	mustAdd(t, rt, state.Episode{ID: "ep-1"})

	dump := rt.DebugDump()
	if dump.Timestamp == "" {
		t.Fatal("dump should carry a timestamp")
	}
	if len(dump.AudioLanguages) != 8 {
		t.Fatalf("dump catalog has %d entries, want 8", len(dump.AudioLanguages))
	}
	if dump.State == nil || len(dump.State.Queue) != 1 {
		t.Fatalf("dump state = %#v", dump.State)
	}
}
