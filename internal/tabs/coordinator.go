package tabs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"watchq/internal/logging"
	"watchq/internal/protocol"
)

// Session describes one connected page tab.
type Session struct {
	ID       string
	TabID    int
	WindowID int
	URL      string
	Active   bool
}

// DirectiveSender delivers a directive to one session and returns the raw
// reply. Implemented by the bridge.
type DirectiveSender interface {
	SendDirective(ctx context.Context, sessionID string, msg protocol.Message) (json.RawMessage, error)
}

// Coordinator is the registry of live page sessions and the only component
// that initiates messages into them.
type Coordinator struct {
	mu            sync.Mutex
	sessions      map[string]Session
	currentWindow int

	matcher *SiteMatcher
	sender  DirectiveSender
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a coordinator for the given site patterns.
func New(matcher *SiteMatcher, timeout time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Coordinator{
		sessions: make(map[string]Session),
		matcher:  matcher,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "tabs"),
	}
}

// SetSender wires the directive transport.
func (c *Coordinator) SetSender(sender DirectiveSender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sender = sender
}

// Upsert registers or refreshes a session. The window of the most recently
// active session is treated as the current window for playback targeting.
func (c *Coordinator) Upsert(session Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.ID] = session
	if session.Active {
		c.currentWindow = session.WindowID
	}
	c.logger.Debug("session registered",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String("url", session.URL),
		logging.Bool("active", session.Active))
}

// Remove drops a disconnected session.
func (c *Coordinator) Remove(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	c.logger.Debug("session removed", logging.String(logging.FieldSessionID, sessionID))
}

// Count returns the number of registered sessions.
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// matchingSessions returns active site sessions, optionally restricted to the
// current window, in stable tab order.
func (c *Coordinator) matchingSessions(currentWindowOnly bool) []Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched := make([]Session, 0, len(c.sessions))
	for _, session := range c.sessions {
		if !session.Active || !c.matcher.Matches(session.URL) {
			continue
		}
		if currentWindowOnly && session.WindowID != c.currentWindow {
			continue
		}
		matched = append(matched, session)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].TabID < matched[j].TabID })
	return matched
}

// ControlPlayback forwards a play/pause directive to the single active site
// tab in the current window and relays its reply. No matching tab resolves to
// a plain failure result.
func (c *Coordinator) ControlPlayback(ctx context.Context, action string) protocol.ControlResult {
	c.mu.Lock()
	sender := c.sender
	c.mu.Unlock()
	if sender == nil {
		return protocol.ControlResult{Success: false}
	}

	candidates := c.matchingSessions(true)
	if len(candidates) == 0 {
		c.logger.Debug("no active site tab for playback control", logging.String("action", action))
		return protocol.ControlResult{Success: false}
	}
	target := candidates[0]

	msg := protocol.MustMessage(protocol.TypeControlPlayback, protocol.ControlPayload{Action: action})
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	reply, err := sender.SendDirective(ctx, target.ID, msg)
	if err != nil {
		c.logger.Debug("playback directive failed",
			logging.String(logging.FieldSessionID, target.ID),
			logging.Error(err))
		return protocol.ControlResult{Success: false}
	}
	var result protocol.ControlResult
	if err := json.Unmarshal(reply, &result); err != nil {
		return protocol.ControlResult{Success: false}
	}
	return result
}

// ApplyAudioLanguage broadcasts an audio-language directive to every active
// site tab across all windows. Per-tab delivery is awaited but failures are
// swallowed; a language preference is fire-and-forget per tab.
func (c *Coordinator) ApplyAudioLanguage(ctx context.Context, audioLanguage, label string) {
	c.mu.Lock()
	sender := c.sender
	c.mu.Unlock()
	if sender == nil {
		return
	}

	msg := protocol.MustMessage(protocol.TypeApplyAudioLanguage, protocol.ApplyAudioLanguagePayload{
		AudioLanguage: audioLanguage,
		Label:         label,
	})
	for _, session := range c.matchingSessions(false) {
		sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
		if _, err := sender.SendDirective(sendCtx, session.ID, msg); err != nil {
			c.logger.Debug("audio language directive failed",
				logging.String(logging.FieldSessionID, session.ID),
				logging.Error(err))
		}
		cancel()
	}
}
