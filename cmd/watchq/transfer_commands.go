package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"watchq/internal/ipc"
	"watchq/internal/state"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the queue as a JSON array",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetState()
				if err != nil {
					return err
				}
				queue := resp.State.Queue
				if queue == nil {
					queue = []state.Episode{}
				}
				encoded, err := json.MarshalIndent(queue, "", "  ")
				if err != nil {
					return fmt.Errorf("encode queue: %w", err)
				}
				encoded = append(encoded, '\n')
				if outputPath == "" {
					_, err = cmd.OutOrStdout().Write(encoded)
					return err
				}
				if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d episodes to %s\n", len(queue), outputPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the queue from an exported JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			queue, err := decodeQueueExport(raw)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetQueue(queue)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d episodes\n", len(resp.State.Queue))
				return nil
			})
		},
	}
}

// decodeQueueExport accepts only a JSON array of episodes. Anything else is
// rejected before the daemon is contacted, so a bad file never clobbers the
// queue.
func decodeQueueExport(raw []byte) ([]state.Episode, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, fmt.Errorf("import expects a JSON array of episodes")
	}
	var queue []state.Episode
	if err := json.Unmarshal([]byte(trimmed), &queue); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	return queue, nil
}

func newDumpCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the debug diagnostics snapshot as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DebugDump()
				if err != nil {
					return err
				}
				encoded, err := json.MarshalIndent(resp.Dump, "", "  ")
				if err != nil {
					return fmt.Errorf("encode dump: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return nil
			})
		},
	}
}
