package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"watchq/internal/daemon"
	"watchq/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Watchq", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.QueueLength = status.QueueLength
	resp.PlaybackState = status.PlaybackState
	resp.CurrentEpisodeID = status.CurrentEpisodeID
	resp.Sessions = status.Sessions
	resp.StateDBPath = status.StateDBPath
	resp.LockPath = status.LockFilePath
	resp.BridgeBind = status.BridgeBind
	return nil
}

func (s *service) GetState(_ GetStateRequest, resp *StateResponse) error {
	resp.State = s.daemon.GetState()
	return nil
}

func (s *service) AddEpisodes(req AddEpisodesRequest, resp *StateResponse) error {
	if len(req.Episodes) == 0 {
		return errors.New("add requires at least one episode")
	}
	for _, episode := range req.Episodes {
		if episode.ID == "" {
			return errors.New("episode id is required")
		}
	}
	s.log().Debug("add requested", logging.Int("episode_count", len(req.Episodes)))
	updated, err := s.daemon.AddEpisodes(s.ctx, req.Episodes)
	if err != nil {
		return err
	}
	resp.State = updated
	return nil
}

func (s *service) RemoveEpisode(req RemoveEpisodeRequest, resp *StateResponse) error {
	if req.ID == "" {
		return errors.New("remove requires an episode id")
	}
	updated, err := s.daemon.RemoveEpisode(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.State = updated
	return nil
}

func (s *service) ReorderQueue(req ReorderQueueRequest, resp *StateResponse) error {
	updated, err := s.daemon.ReorderQueue(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.State = updated
	return nil
}

func (s *service) SelectEpisode(req SelectEpisodeRequest, resp *StateResponse) error {
	updated, err := s.daemon.SelectEpisode(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.State = updated
	return nil
}

func (s *service) SetAudioLanguage(req SetAudioLanguageRequest, resp *StateResponse) error {
	if req.ID == "" || req.AudioLanguage == "" {
		return errors.New("set audio language requires an episode id and a language code")
	}
	updated, err := s.daemon.SetAudioLanguage(s.ctx, req.ID, req.AudioLanguage)
	if err != nil {
		return err
	}
	resp.State = updated
	return nil
}

func (s *service) UpdateSettings(req UpdateSettingsRequest, resp *StateResponse) error {
	updated, err := s.daemon.UpdateSettings(s.ctx, req.Settings)
	if err != nil {
		return err
	}
	resp.State = updated
	return nil
}

func (s *service) SetQueue(req SetQueueRequest, resp *StateResponse) error {
	s.log().Debug("queue replace requested", logging.Int("episode_count", len(req.Queue)))
	updated, err := s.daemon.SetQueue(s.ctx, req.Queue)
	if err != nil {
		return err
	}
	resp.State = updated
	return nil
}

func (s *service) ControlPlayback(req ControlPlaybackRequest, resp *ControlPlaybackResponse) error {
	result := s.daemon.ControlPlayback(s.ctx, req.Action)
	resp.Success = result.Success
	resp.State = string(result.State)
	return nil
}

func (s *service) DebugDump(_ DebugDumpRequest, resp *DebugDumpResponse) error {
	resp.Dump = s.daemon.DebugDump()
	return nil
}
