package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"watchq/internal/content"
	"watchq/internal/language"
	"watchq/internal/logging"
)

const (
	writeTimeout   = 5 * time.Second
	eventQueueSize = 64
)

// session is one page tab connection. It hosts the tab's content engine and
// doubles as the engine's PageConn and VideoPort, translating port calls into
// correlated op frames on the socket.
type session struct {
	id     string
	conn   *websocket.Conn
	engine *content.Engine
	logger *slog.Logger

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan json.RawMessage

	events chan content.Event
	done   chan struct{}
	closed sync.Once
}

func newSession(conn *websocket.Conn, logger *slog.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:      id,
		conn:    conn,
		logger:  logger.With(logging.String(logging.FieldSessionID, id)),
		pending: make(map[string]chan json.RawMessage),
		events:  make(chan content.Event, eventQueueSize),
		done:    make(chan struct{}),
	}
}

func (s *session) close() {
	s.closed.Do(func() {
		close(s.done)
		if s.engine != nil {
			s.engine.Stop()
		}
		_ = s.conn.Close()
	})
}

func (s *session) writeFrame(f frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(f)
}

// eventLoop drains page events into the engine off the read loop, so an
// engine awaiting an op reply never blocks frame reads.
func (s *session) eventLoop(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case event := <-s.events:
			s.engine.HandleEvent(ctx, event)
		}
	}
}

// enqueueEvent never blocks the read loop; under backpressure the event is
// dropped and the next periodic rescan or snapshot catches the page up.
func (s *session) enqueueEvent(event content.Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Debug("event queue full, dropping page event",
			logging.String("event_type", string(event.Type)))
	}
}

func (s *session) resolveReply(id string, result json.RawMessage) {
	s.pendingMu.Lock()
	ch, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.pendingMu.Unlock()
	if ok {
		ch <- result
	}
}

// sendOp writes an op frame and waits for the correlated reply.
func (s *session) sendOp(ctx context.Context, op pageOp) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan json.RawMessage, 1)
	s.pendingMu.Lock()
	s.pending[id] = ch
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	if err := s.writeFrame(frame{Kind: frameOp, ID: id, Op: &op}); err != nil {
		return nil, fmt.Errorf("write %s op: %w", op.Op, err)
	}
	select {
	case result := <-ch:
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, errors.New("session closed")
	}
}

// PageConn implementation.

func (s *session) SetAttributes(ctx context.Context, path string, attrs map[string]string) error {
	_, err := s.sendOp(ctx, pageOp{Op: opSetAttributes, Path: path, Attrs: attrs})
	return err
}

func (s *session) InsertMenuEntries(ctx context.Context, path string, entries []content.MenuEntry) error {
	_, err := s.sendOp(ctx, pageOp{Op: opInsertMenu, Path: path, Entries: entries})
	return err
}

func (s *session) Click(ctx context.Context, path string) error {
	_, err := s.sendOp(ctx, pageOp{Op: opClick, Path: path})
	return err
}

// VideoPort implementation.

func (s *session) Play(ctx context.Context) error {
	_, err := s.sendOp(ctx, pageOp{Op: opVideoPlay})
	return err
}

func (s *session) Pause(ctx context.Context) error {
	_, err := s.sendOp(ctx, pageOp{Op: opVideoPause})
	return err
}

func (s *session) AudioTracks(ctx context.Context) ([]language.Track, error) {
	result, err := s.sendOp(ctx, pageOp{Op: opAudioTracks})
	if err != nil {
		return nil, err
	}
	var tracks []language.Track
	if err := json.Unmarshal(result, &tracks); err != nil {
		return nil, fmt.Errorf("decode audio tracks: %w", err)
	}
	return tracks, nil
}

func (s *session) EnableAudioTrack(ctx context.Context, index int) error {
	_, err := s.sendOp(ctx, pageOp{Op: opEnableAudioTrack, Index: index})
	return err
}
