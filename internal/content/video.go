package content

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"watchq/internal/language"
	"watchq/internal/logging"
	"watchq/internal/protocol"
	"watchq/internal/state"
)

// handleVideoEvent updates the tracked element flags and reports the derived
// playback state. A detached element clears tracking without a report; the
// next found event rebinds.
func (e *Engine) handleVideoEvent(ctx context.Context, event VideoEvent) {
	e.mu.Lock()
	report := state.PlaybackState("")
	switch event.Name {
	case VideoFound:
		e.hasVideo = true
		e.videoPaused = event.Paused
		e.videoEnded = event.Ended
		if event.Paused {
			report = state.PlaybackPaused
		} else {
			report = state.PlaybackPlaying
		}
	case VideoPlay:
		e.hasVideo = true
		e.videoPaused = false
		e.videoEnded = false
		report = state.PlaybackPlaying
	case VideoPause:
		e.videoPaused = true
		e.videoEnded = event.Ended
		if event.Ended {
			report = state.PlaybackEnded
		} else {
			report = state.PlaybackPaused
		}
	case VideoEnded:
		e.videoPaused = true
		e.videoEnded = true
		report = state.PlaybackEnded
	case VideoLoadedData:
		e.videoPaused = event.Paused
		e.videoEnded = false
		report = state.PlaybackIdle
	case VideoDetached:
		e.hasVideo = false
	default:
		e.logger.Debug("unknown video event", logging.String("event_name", event.Name))
	}
	e.mu.Unlock()

	if report != "" {
		e.reportPlayback(ctx, report)
	}
}

// playbackStateLocked derives the playback state from the tracked flags.
// Ended wins over paused wins over playing; no tracked video means idle.
func (e *Engine) playbackStateLocked() state.PlaybackState {
	switch {
	case !e.hasVideo:
		return state.PlaybackIdle
	case e.videoEnded:
		return state.PlaybackEnded
	case e.videoPaused:
		return state.PlaybackPaused
	default:
		return state.PlaybackPlaying
	}
}

// controlPlayback plays or pauses the tracked video and replies with the
// resulting state. Without a tracked video the reply is a plain failure and
// nothing is touched.
func (e *Engine) controlPlayback(ctx context.Context, action string) protocol.ControlResult {
	e.mu.Lock()
	hasVideo := e.hasVideo
	e.mu.Unlock()
	if !hasVideo || e.video == nil {
		return protocol.ControlResult{Success: false}
	}

	var err error
	switch action {
	case protocol.ActionPlay:
		err = e.video.Play(ctx)
	case protocol.ActionPause:
		err = e.video.Pause(ctx)
	default:
		return protocol.ControlResult{Success: false}
	}
	if err != nil {
		e.logger.Debug("playback control failed",
			logging.String("action", action), logging.Error(err))
		return protocol.ControlResult{Success: false}
	}

	e.mu.Lock()
	if action == protocol.ActionPlay {
		e.videoPaused = false
		e.videoEnded = false
	} else {
		e.videoPaused = true
	}
	result := protocol.ControlResult{Success: true, State: e.playbackStateLocked()}
	e.mu.Unlock()
	return result
}

// applyAudioLanguage switches the session's audio track. The direct track
// list is tried first; failing that, the site's audio menu is driven through
// the page: open the toggle if closed, poll for a visible option whose text
// matches, click it, and restore the toggle to how it was found. Success
// re-reports the playback state so listeners resync after the switch.
func (e *Engine) applyAudioLanguage(ctx context.Context, code, label string) bool {
	success := e.applyDirect(ctx, code, label)
	if !success {
		success = e.applyViaMenu(ctx, code, label)
	}
	if !success {
		return false
	}

	e.mu.Lock()
	playback := e.playbackStateLocked()
	e.mu.Unlock()
	e.reportPlayback(ctx, playback)
	return true
}

func (e *Engine) applyDirect(ctx context.Context, code, label string) bool {
	e.mu.Lock()
	hasVideo := e.hasVideo
	e.mu.Unlock()
	if !hasVideo || e.video == nil {
		return false
	}

	tracks, err := e.video.AudioTracks(ctx)
	if err != nil || len(tracks) == 0 {
		return false
	}
	index, ok := language.MatchTrack(tracks, code, label)
	if !ok {
		return false
	}
	if err := e.video.EnableAudioTrack(ctx, index); err != nil {
		e.logger.Debug("audio track switch failed", logging.Error(err))
		return false
	}
	return true
}

func (e *Engine) applyViaMenu(ctx context.Context, code, label string) bool {
	e.mu.Lock()
	togglePath, wasExpanded, found := e.audioToggleLocked()
	e.mu.Unlock()
	if !found {
		return false
	}

	opened := false
	if !wasExpanded {
		if err := e.page.Click(ctx, togglePath); err != nil {
			return false
		}
		opened = true
	}
	// Reopening the menu mutates the page; close it again only if this
	// engine opened it.
	defer func() {
		if opened {
			if err := e.page.Click(ctx, togglePath); err != nil {
				e.logger.Debug("audio menu restore failed", logging.Error(err))
			}
		}
	}()

	deadline := time.Now().Add(e.opts.MenuPollTimeout)
	for {
		e.mu.Lock()
		optionPath, ok := e.findAudioOptionLocked(code, label)
		e.mu.Unlock()
		if ok {
			return e.page.Click(ctx, optionPath) == nil
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(e.opts.MenuPollTick):
		}
	}
}

func (e *Engine) audioToggleLocked() (path string, expanded, found bool) {
	if e.doc == nil {
		return "", false, false
	}
	toggle := e.doc.Find(e.opts.Site.AudioMenuToggle).First()
	if toggle.Length() == 0 {
		return "", false, false
	}
	ariaExpanded, _ := toggle.Attr("aria-expanded")
	return nodePath(toggle), ariaExpanded == "true", true
}

func (e *Engine) findAudioOptionLocked(code, label string) (string, bool) {
	if e.doc == nil {
		return "", false
	}
	path := ""
	e.doc.Find(e.opts.Site.AudioMenuOption).EachWithBreak(func(_ int, option *goquery.Selection) bool {
		if !isVisible(option) {
			return true
		}
		if !language.MatchText(option.Text(), code, label) {
			return true
		}
		path = nodePath(option)
		return false
	})
	return path, path != ""
}

// isVisible approximates DOM visibility from the mirror: an element hidden by
// the hidden attribute, aria-hidden, or an inline display:none anywhere up
// its ancestor chain does not count as selectable.
func isVisible(sel *goquery.Selection) bool {
	for node := sel; node.Length() > 0; node = node.Parent() {
		if _, hidden := node.Attr("hidden"); hidden {
			return false
		}
		if aria, _ := node.Attr("aria-hidden"); aria == "true" {
			return false
		}
		if style, _ := node.Attr("style"); strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
			return false
		}
	}
	return true
}
