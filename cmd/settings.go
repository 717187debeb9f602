/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/longkey1/finanzas/internal/finanzas"
)

var settingsKeys = []string{"language", "theme", "voice_rate", "voice_pitch", "voice_volume", "api_key"}

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the saved user settings",
	Long: `Show or change the settings saved with the chat history:
language, theme, voice parameters and the API key override.

The API key override replaces the configured provider token for every
message sent from this data directory.`,
}

// settingsShowCmd prints the settings
var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{offline: true, quiet: true})
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.pipeline.Settings()
		fmt.Printf("language: %s (%s)\n", s.Language, s.Language.DisplayName())
		fmt.Printf("theme: %s\n", s.Theme)
		fmt.Printf("voice_rate: %.2f\n", s.Voice.Rate)
		fmt.Printf("voice_pitch: %.2f\n", s.Voice.Pitch)
		fmt.Printf("voice_volume: %.2f\n", s.Voice.Volume)
		fmt.Printf("api_key: %s\n", maskToken(s.APIKeyOverride))
		return nil
	},
}

// settingsSetCmd changes one setting
var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Change a saved setting",
	Long: `Change a saved setting.

Keys: language (en, hi), theme (light, dark), voice_rate, voice_pitch,
voice_volume, api_key. Omit the value of api_key to remove the override.

Examples:
  finanzas settings set language hi
  finanzas settings set voice_rate 1.25
  finanzas settings set api_key`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		value := ""
		if len(args) > 1 {
			value = args[1]
		}
		if key != "api_key" && value == "" {
			return fmt.Errorf("a value is required for %s", key)
		}

		a, err := newApp(cmd.Context(), appOptions{offline: true, quiet: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		switch key {
		case "language", "lang":
			lang, err := finanzas.ParseLanguage(value)
			if err != nil {
				return err
			}
			return a.pipeline.SetLanguage(ctx, lang)
		case "theme":
			theme, err := finanzas.ParseTheme(value)
			if err != nil {
				return err
			}
			return a.pipeline.SetTheme(ctx, theme)
		case "voice_rate", "voice_pitch", "voice_volume":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, value, err)
			}
			v := a.pipeline.Settings().Voice
			switch key {
			case "voice_rate":
				v.Rate = f
			case "voice_pitch":
				v.Pitch = f
			default:
				v.Volume = f
			}
			a.pipeline.SetVoice(ctx, v)
			return nil
		case "api_key":
			a.pipeline.SetAPIKeyOverride(ctx, value)
			return nil
		default:
			return fmt.Errorf("unknown setting %q (available: %s)", args[0], strings.Join(settingsKeys, ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}
