package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"watchq/internal/ipc"
	"watchq/internal/protocol"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Resume playback in the active site tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(ctx, cmd, protocol.ActionPlay)
		},
	}
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause playback in the active site tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControl(ctx, cmd, protocol.ActionPause)
		},
	}
}

func runControl(ctx *commandContext, cmd *cobra.Command, action string) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.ControlPlayback(action)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !resp.Success {
			fmt.Fprintln(out, "No playable tab responded; is a site tab open and active?")
			return nil
		}
		fmt.Fprintf(out, "Playback %s (state: %s)\n", action, resp.State)
		return nil
	})
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				runningKind := statusWarn
				if status.Running {
					runningKind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, yesNo(status.Running), colorize))
				fmt.Fprintln(out, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Queue length", statusInfo, fmt.Sprintf("%d", status.QueueLength), colorize))
				fmt.Fprintln(out, renderStatusLine("Playback", statusInfo, status.PlaybackState, colorize))
				if status.CurrentEpisodeID != "" {
					fmt.Fprintln(out, renderStatusLine("Current episode", statusInfo, status.CurrentEpisodeID, colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Page sessions", statusInfo, fmt.Sprintf("%d", status.Sessions), colorize))
				fmt.Fprintln(out, renderStatusLine("Bridge", statusInfo, status.BridgeBind, colorize))
				fmt.Fprintln(out, renderStatusLine("State DB", statusInfo, status.StateDBPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Lock", statusInfo, status.LockPath, colorize))
				return nil
			})
		},
	}
}
