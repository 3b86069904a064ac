package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"watchq/internal/state"
)

// watchFrame is the subset of the bridge wire format the follower needs.
type watchFrame struct {
	Kind    string `json:"kind"`
	Message *struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	} `json:"message"`
}

type watchHello struct {
	Role string `json:"role"`
}

func formatUpdateTime(lastUpdated int64) string {
	if lastUpdated <= 0 {
		return "never"
	}
	return time.UnixMilli(lastUpdated).Local().Format("15:04:05")
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow live state updates from the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			bridgeURL := url.URL{Scheme: "ws", Host: cfg.Paths.BridgeBind, Path: "/ws"}
			conn, _, err := websocket.DefaultDialer.Dial(bridgeURL.String(), nil)
			if err != nil {
				return fmt.Errorf("connect to bridge at %s: %w", cfg.Paths.BridgeBind, err)
			}
			defer conn.Close()

			hello := map[string]any{"kind": "hello", "hello": watchHello{Role: "watcher"}}
			if err := conn.WriteJSON(hello); err != nil {
				return fmt.Errorf("register watcher: %w", err)
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-sigCtx.Done()
				_ = conn.Close()
			}()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Following state updates; press Ctrl-C to stop")
			for {
				var f watchFrame
				if err := conn.ReadJSON(&f); err != nil {
					if sigCtx.Err() != nil {
						return nil
					}
					fmt.Fprintln(os.Stderr, "bridge connection closed")
					return nil
				}
				if f.Kind != "state" || f.Message == nil {
					continue
				}
				var app state.AppState
				if err := json.Unmarshal(f.Message.Payload, &app); err != nil {
					continue
				}
				fmt.Fprintf(out, "[%s] queue=%d playback=%s current=%s\n",
					formatUpdateTime(app.LastUpdated), len(app.Queue), app.PlaybackState, app.CurrentEpisodeID)
			}
		},
	}
}
