package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"watchq/internal/config"
	"watchq/internal/logging"
	"watchq/internal/protocol"
	"watchq/internal/state"
)

// Attributes stamped onto discovered cards and injected menus. The annotated
// flag keeps rescans idempotent; the rest make card data readable back out of
// the document when a menu entry fires.
const (
	attrEpisodeID        = "data-watchq-episode-id"
	attrEpisodeURL       = "data-watchq-episode-url"
	attrEpisodeTitle     = "data-watchq-episode-title"
	attrEpisodeSubtitle  = "data-watchq-episode-subtitle"
	attrEpisodeThumbnail = "data-watchq-episode-thumbnail"
	attrAnnotated        = "data-watchq-annotated"
	attrMenuMarker       = "data-watchq-menu"
)

const (
	labelAddSingle = "Add to queue…"
	labelAddNewer  = "Add this and newer…"
)

// Options configures one engine instance.
type Options struct {
	SessionID       string
	PageURL         string
	Site            config.Site
	RescanInterval  time.Duration
	MenuPollTimeout time.Duration
	MenuPollTick    time.Duration
}

type menuAction struct {
	episodeID string
	newer     bool
}

// Engine mirrors one page session's DOM and adapts it into queue commands.
type Engine struct {
	opts       Options
	dispatcher Dispatcher
	page       PageConn
	video      VideoPort
	logger     *slog.Logger

	mu          sync.Mutex
	doc         *goquery.Document
	pageURL     string
	actions     map[string]menuAction
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	hasVideo    bool
	videoPaused bool
	videoEnded  bool
	selectedFor string
}

// New constructs an engine in the uninitialized state. Nothing runs until
// Start is called.
func New(opts Options, dispatcher Dispatcher, page PageConn, video VideoPort, logger *slog.Logger) *Engine {
	if opts.RescanInterval <= 0 {
		opts.RescanInterval = 2 * time.Second
	}
	if opts.MenuPollTimeout <= 0 {
		opts.MenuPollTimeout = 2 * time.Second
	}
	if opts.MenuPollTick <= 0 {
		opts.MenuPollTick = 100 * time.Millisecond
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		opts:       opts,
		dispatcher: dispatcher,
		page:       page,
		video:      video,
		logger: logging.NewComponentLogger(logger, "content").With(
			logging.String(logging.FieldSessionID, opts.SessionID)),
		pageURL: opts.PageURL,
		actions: make(map[string]menuAction),
	}
}

// Start activates the engine and begins the periodic rescan. Calling Start on
// an active or stopped engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.started = true
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	e.logger.Debug("engine started", logging.String("url", e.opts.PageURL))
	go e.rescanLoop(runCtx)
	e.scan(ctx)
}

// Stop tears the engine down: the rescan ticker is cancelled and further
// events are ignored. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.logger.Debug("engine stopped")
}

func (e *Engine) rescanLoop(ctx context.Context) {
	ticker := time.NewTicker(e.opts.RescanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.scan(ctx)
		}
	}
}

func (e *Engine) running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started && !e.stopped
}

// HandleEvent processes one inbound page event. Events arriving before Start
// or after Stop are dropped.
func (e *Engine) HandleEvent(ctx context.Context, event Event) {
	if !e.running() {
		return
	}
	switch event.Type {
	case EventSnapshot, EventMutation:
		e.setDocument(event.HTML, event.URL)
		e.scan(ctx)
	case EventNavigated:
		e.mu.Lock()
		e.pageURL = event.URL
		e.mu.Unlock()
		e.scan(ctx)
	case EventVideo:
		if event.Video != nil {
			e.handleVideoEvent(ctx, *event.Video)
		}
	case EventMenuClick:
		e.handleMenuClick(ctx, event.EntryID)
	default:
		e.logger.Debug("unknown page event", logging.String("event_type", string(event.Type)))
	}
}

// HandleDirective answers a background-initiated directive for this session.
func (e *Engine) HandleDirective(ctx context.Context, msg protocol.Message) (any, error) {
	switch msg.Type {
	case protocol.TypeControlPlayback:
		var payload protocol.ControlPayload
		if err := msg.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return e.controlPlayback(ctx, payload.Action), nil
	case protocol.TypeApplyAudioLanguage:
		var payload protocol.ApplyAudioLanguagePayload
		if err := msg.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return protocol.ApplyResult{Success: e.applyAudioLanguage(ctx, payload.AudioLanguage, payload.Label)}, nil
	default:
		return nil, fmt.Errorf("unsupported directive %s", msg.Type)
	}
}

func (e *Engine) setDocument(rawHTML, pageURL string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		e.logger.Debug("unparsable document snapshot", logging.Error(err))
		return
	}
	e.mu.Lock()
	e.doc = doc
	// Entry ids are minted per parse; a replaced document starts a fresh
	// action table and clicks carrying older ids fall through as stale.
	e.actions = make(map[string]menuAction)
	if pageURL != "" {
		e.pageURL = pageURL
	}
	e.mu.Unlock()
}

// scan runs one discovery pass: annotate episode cards, inject menu entries,
// and fire the one-shot current-episode selection on watch pages.
func (e *Engine) scan(ctx context.Context) {
	e.mu.Lock()
	attrOps, menuOps := e.scanLocked()
	selectID := e.autoSelectLocked()
	e.mu.Unlock()

	for _, op := range attrOps {
		if err := e.page.SetAttributes(ctx, op.path, op.attrs); err != nil {
			e.logger.Debug("card annotation failed", logging.Error(err))
		}
	}
	for _, op := range menuOps {
		if err := e.page.InsertMenuEntries(ctx, op.path, op.entries); err != nil {
			e.logger.Debug("menu injection failed", logging.Error(err))
		}
	}
	if selectID != "" {
		e.dispatch(ctx, protocol.MustMessage(protocol.TypeSelectEpisode, protocol.IDPayload{ID: selectID}))
	}
}

// autoSelectLocked returns the episode id to select, at most once per page
// URL. Only watch pages produce a selection.
func (e *Engine) autoSelectLocked() string {
	if e.pageURL == "" || e.selectedFor == e.pageURL {
		return ""
	}
	id, ok := watchPageEpisodeID(e.pageURL, e.opts.Site.WatchPathSegment)
	if !ok {
		return ""
	}
	e.selectedFor = e.pageURL
	return id
}

func (e *Engine) dispatch(ctx context.Context, msg protocol.Message) {
	if e.dispatcher == nil {
		return
	}
	if _, err := e.dispatcher.Dispatch(ctx, msg); err != nil {
		e.logger.Debug("dispatch failed",
			logging.String(logging.FieldMessageType, string(msg.Type)),
			logging.Error(err))
	}
}

func (e *Engine) reportPlayback(ctx context.Context, playback state.PlaybackState) {
	e.dispatch(ctx, protocol.MustMessage(protocol.TypeUpdatePlayback, protocol.PlaybackPayload{State: string(playback)}))
}
