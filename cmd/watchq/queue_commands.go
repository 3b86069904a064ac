package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"watchq/internal/ipc"
	"watchq/internal/language"
	"watchq/internal/state"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the watch queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueReorderCommand(ctx))
	queueCmd.AddCommand(newQueueSelectCommand(ctx))
	queueCmd.AddCommand(newQueueSetLanguageCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetState()
				if err != nil {
					return err
				}
				printQueue(cmd, resp.State)
				return nil
			})
		},
	}
}

func printQueue(cmd *cobra.Command, app *state.AppState) {
	if app == nil || len(app.Queue) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
		return
	}
	rows := make([][]string, 0, len(app.Queue))
	for i, episode := range app.Queue {
		current := ""
		if episode.ID == app.CurrentEpisodeID {
			current = "*"
		}
		added := ""
		if episode.AddedAt > 0 {
			added = time.UnixMilli(episode.AddedAt).Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			current,
			episode.ID,
			episode.Title,
			episode.Subtitle,
			language.LabelFor(episode.AudioLanguage),
			added,
		})
	}
	out := renderTable(
		[]string{"#", "", "ID", "Title", "Subtitle", "Audio", "Added"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
	fmt.Fprintln(cmd.OutOrStdout(), out)
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var id, title, subtitle, thumbnail, audioLanguage string

	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Add an episode to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodeURL := strings.TrimSpace(args[0])
			if episodeURL == "" {
				return errors.New("episode URL is required")
			}
			if id == "" {
				id = episodeIDFromURL(episodeURL)
			}
			if audioLanguage != "" && !language.Known(audioLanguage) {
				return unknownLanguageError(audioLanguage)
			}
			episode := state.Episode{
				ID:            id,
				URL:           episodeURL,
				Title:         title,
				Subtitle:      subtitle,
				Thumbnail:     thumbnail,
				AudioLanguage: audioLanguage,
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AddEpisodes([]state.Episode{episode})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d queued)\n", episode.ID, len(resp.State.Queue))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Episode id (derived from the URL when omitted)")
	cmd.Flags().StringVar(&title, "title", "", "Episode title")
	cmd.Flags().StringVar(&subtitle, "subtitle", "", "Episode subtitle")
	cmd.Flags().StringVar(&thumbnail, "thumbnail", "", "Thumbnail URL")
	cmd.Flags().StringVar(&audioLanguage, "language", "", "Audio language code")
	return cmd
}

// episodeIDFromURL pulls the path segment after /watch/ out of an episode
// URL, falling back to the URL itself.
func episodeIDFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	segments := strings.Split(parsed.Path, "/")
	for i, segment := range segments {
		if segment == "watch" && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1]
		}
	}
	return rawURL
}

func unknownLanguageError(code string) error {
	codes := make([]string, 0, len(language.Catalog))
	for _, option := range language.Catalog {
		codes = append(codes, option.Code)
	}
	return fmt.Errorf("unknown audio language %q (known: %s)", code, strings.Join(codes, ", "))
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove an episode from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RemoveEpisode(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%d queued)\n", args[0], len(resp.State.Queue))
				return nil
			})
		},
	}
}

func newQueueReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder ID...",
		Short: "Reorder the queue; listed ids come first, the rest keep their order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ReorderQueue(args)
				if err != nil {
					return err
				}
				printQueue(cmd, resp.State)
				return nil
			})
		},
	}
}

func newQueueSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select [ID]",
		Short: "Mark an episode as current; no argument clears the selection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SelectEpisode(id)
				if err != nil {
					return err
				}
				if resp.State.CurrentEpisodeID == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Selection cleared")
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Current episode: %s\n", resp.State.CurrentEpisodeID)
				}
				return nil
			})
		},
	}
}

func newQueueSetLanguageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-language ID CODE",
		Short: "Set the audio language for one queued episode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, code := args[0], args[1]
			if !language.Known(code) {
				return unknownLanguageError(code)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SetAudioLanguage(id, code); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Audio language for %s set to %s\n", id, language.LabelFor(code))
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every episode from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SetQueue(nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue cleared")
				return nil
			})
		},
	}
}
