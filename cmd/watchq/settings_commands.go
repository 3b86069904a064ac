package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"watchq/internal/ipc"
	"watchq/internal/language"
	"watchq/internal/protocol"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change daemon settings",
	}

	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))

	return settingsCmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetState()
				if err != nil {
					return err
				}
				settings := resp.State.Settings
				rows := [][]string{
					{"auto-remove-completed", yesNo(settings.AutoRemoveCompleted)},
					{"debug-logging", yesNo(settings.DebugLogging)},
					{"default-audio-language", fmt.Sprintf("%s (%s)", settings.DefaultAudioLanguage, language.LabelFor(settings.DefaultAudioLanguage))},
				}
				out := renderTable([]string{"Setting", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var autoRemove, debugLogging, defaultLanguage string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := protocol.SettingsPatch{}
			changed := false

			if autoRemove != "" {
				value, err := strconv.ParseBool(autoRemove)
				if err != nil {
					return fmt.Errorf("invalid --auto-remove-completed value %q", autoRemove)
				}
				patch.AutoRemoveCompleted = &value
				changed = true
			}
			if debugLogging != "" {
				value, err := strconv.ParseBool(debugLogging)
				if err != nil {
					return fmt.Errorf("invalid --debug-logging value %q", debugLogging)
				}
				patch.DebugLogging = &value
				changed = true
			}
			if defaultLanguage != "" {
				if !language.Known(defaultLanguage) {
					return unknownLanguageError(defaultLanguage)
				}
				patch.DefaultAudioLanguage = &defaultLanguage
				changed = true
			}
			if !changed {
				return errors.New("nothing to change; pass at least one flag")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.UpdateSettings(patch)
				if err != nil {
					return err
				}
				settings := resp.State.Settings
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "auto-remove-completed: %s\n", yesNo(settings.AutoRemoveCompleted))
				fmt.Fprintf(out, "debug-logging: %s\n", yesNo(settings.DebugLogging))
				fmt.Fprintf(out, "default-audio-language: %s\n", settings.DefaultAudioLanguage)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&autoRemove, "auto-remove-completed", "", "Remove the current episode when it finishes (true/false)")
	cmd.Flags().StringVar(&debugLogging, "debug-logging", "", "Enable verbose daemon logging (true/false)")
	cmd.Flags().StringVar(&defaultLanguage, "default-audio-language", "", "Default audio language for new episodes")
	return cmd
}

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported audio languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(language.Catalog))
			for _, option := range language.Catalog {
				rows = append(rows, []string{option.Code, option.Label})
			}
			out := renderTable([]string{"Code", "Label"}, rows, []columnAlignment{alignLeft, alignLeft})
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
