package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"watchq/internal/config"
	"watchq/internal/content"
	"watchq/internal/logging"
	"watchq/internal/protocol"
	"watchq/internal/state"
	"watchq/internal/tabs"
)

// Origin checks are skipped: the hub binds to loopback only, and page
// connections originate from the streaming site's origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub accepts page sessions and watchers, hosts a content engine per page
// session, and fans state broadcasts out to every connection.
type Hub struct {
	cfg         *config.Config
	dispatcher  content.Dispatcher
	coordinator *tabs.Coordinator
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	watchers map[*websocket.Conn]struct{}

	httpServer *http.Server
	listenAddr string
}

// NewHub constructs a hub. Serve must be called before connections arrive.
func NewHub(cfg *config.Config, dispatcher content.Dispatcher, coordinator *tabs.Coordinator, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		cfg:         cfg,
		dispatcher:  dispatcher,
		coordinator: coordinator,
		logger:      logging.NewComponentLogger(logger, "bridge"),
		sessions:    make(map[string]*session),
		watchers:    make(map[*websocket.Conn]struct{}),
	}
}

// Serve binds the configured address and accepts connections until Shutdown.
// It returns once the listener is established; accept errors after shutdown
// are swallowed.
func (h *Hub) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.cfg.Paths.BridgeBind)
	if err != nil {
		return fmt.Errorf("bind bridge address %s: %w", h.cfg.Paths.BridgeBind, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		h.handleConnection(ctx, w, r)
	})
	h.httpServer = &http.Server{Handler: mux}
	h.listenAddr = listener.Addr().String()

	go func() {
		if err := h.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			h.logger.Error("bridge server stopped", logging.Error(err))
		}
	}()
	h.logger.Info("bridge listening", logging.String("address", h.cfg.Paths.BridgeBind))
	return nil
}

// Shutdown closes the listener and every live connection.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	watchers := make([]*websocket.Conn, 0, len(h.watchers))
	for conn := range h.watchers {
		watchers = append(watchers, conn)
	}
	server := h.httpServer
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	for _, conn := range watchers {
		_ = conn.Close()
	}
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Addr returns the bound listen address once Serve has succeeded. Useful
// when the configured bind uses port 0.
func (h *Hub) Addr() string {
	return h.listenAddr
}

// SessionCount returns the number of registered page sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	var hello frame
	if err := conn.ReadJSON(&hello); err != nil || hello.Kind != frameHello || hello.Hello == nil {
		h.logger.Debug("connection without hello, dropping")
		_ = conn.Close()
		return
	}

	switch hello.Hello.Role {
	case roleWatcher:
		h.serveWatcher(conn)
	case roleTab:
		h.serveTab(ctx, conn, *hello.Hello)
	default:
		h.logger.Debug("unknown connection role", logging.String("role", hello.Hello.Role))
		_ = conn.Close()
	}
}

func (h *Hub) serveWatcher(conn *websocket.Conn) {
	h.mu.Lock()
	h.watchers[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("watcher connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.watchers, conn)
	h.mu.Unlock()
	_ = conn.Close()
	h.logger.Debug("watcher disconnected")
}

func (h *Hub) serveTab(ctx context.Context, conn *websocket.Conn, hello helloPayload) {
	s := newSession(conn, h.logger)
	s.engine = content.New(content.Options{
		SessionID:       s.id,
		PageURL:         hello.URL,
		Site:            h.cfg.Site,
		RescanInterval:  time.Duration(h.cfg.Content.RescanIntervalSeconds) * time.Second,
		MenuPollTimeout: time.Duration(h.cfg.Content.MenuPollTimeoutMillis) * time.Millisecond,
		MenuPollTick:    time.Duration(h.cfg.Content.MenuPollTickMillis) * time.Millisecond,
	}, h.dispatcher, s, s, h.logger)

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.register(s.id, hello)

	if err := s.writeFrame(frame{Kind: frameHello, SessionID: s.id}); err != nil {
		h.dropSession(s)
		return
	}

	go s.eventLoop(ctx)
	s.engine.Start(ctx)
	h.readLoop(ctx, s)
	h.dropSession(s)
}

func (h *Hub) register(sessionID string, hello helloPayload) {
	h.coordinator.Upsert(tabs.Session{
		ID:       sessionID,
		TabID:    hello.TabID,
		WindowID: hello.WindowID,
		URL:      hello.URL,
		Active:   hello.Active,
	})
}

func (h *Hub) dropSession(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	h.coordinator.Remove(s.id)
	s.close()
}

func (h *Hub) readLoop(ctx context.Context, s *session) {
	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			return
		}
		switch f.Kind {
		case frameHello:
			if f.Hello != nil {
				h.register(s.id, *f.Hello)
			}
		case frameCommand:
			// Commands run off the read loop: a dispatched command can fan a
			// directive back into this same session, and resolving that
			// directive's op replies needs the reader free.
			go h.handleCommand(ctx, s, f)
		case frameEvent:
			if f.Event != nil {
				s.enqueueEvent(*f.Event)
			}
		case frameReply:
			s.resolveReply(f.ID, f.Result)
		default:
			s.logger.Debug("unknown frame kind", logging.String("kind", f.Kind))
		}
	}
}

func (h *Hub) handleCommand(ctx context.Context, s *session, f frame) {
	reply := frame{Kind: frameReply, ID: f.ID}
	if f.Message == nil {
		reply.Error = "command frame without message"
	} else if result, err := h.dispatcher.Dispatch(ctx, *f.Message); err != nil {
		reply.Error = err.Error()
	} else if result != nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply.Result = encoded
		}
	}
	if err := s.writeFrame(reply); err != nil {
		s.logger.Debug("command reply write failed", logging.Error(err))
	}
}

// BroadcastState pushes a STATE_UPDATED frame to every session and watcher.
// Connections that fail the write are closed and forgotten.
func (h *Hub) BroadcastState(app *state.AppState) {
	msg := protocol.MustMessage(protocol.TypeStateUpdated, app)
	broadcast := frame{Kind: frameState, Message: &msg}

	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	watchers := make([]*websocket.Conn, 0, len(h.watchers))
	for conn := range h.watchers {
		watchers = append(watchers, conn)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		if err := s.writeFrame(broadcast); err != nil {
			h.dropSession(s)
		}
	}

	encoded, err := json.Marshal(broadcast)
	if err != nil {
		return
	}
	for _, conn := range watchers {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, encoded); err != nil {
			h.mu.Lock()
			delete(h.watchers, conn)
			h.mu.Unlock()
			_ = conn.Close()
		}
	}
}

// SendDirective routes a directive to the session's content engine and
// returns the encoded result. Implements the tab coordinator's sender.
func (h *Hub) SendDirective(ctx context.Context, sessionID string, msg protocol.Message) (json.RawMessage, error) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no session %s", sessionID)
	}
	result, err := s.engine.HandleDirective(ctx, msg)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode directive result: %w", err)
	}
	return encoded, nil
}
