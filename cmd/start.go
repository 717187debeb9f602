/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/chat"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
)

// inputHistoryFile holds the lines typed at the prompt, not the chat history
const inputHistoryFile = "input_history"

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the finance coach.
The saved chat history is shown first. Type '/help' for commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("model") {
			if _, _, err := finanzas.ParseModelString(model); err != nil {
				return fmt.Errorf("invalid model from flag: %w", err)
			}
			viper.Set("model", model)
		}
		if cmd.Flags().Changed("speak") {
			viper.Set("speak", speak)
		}

		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := runInteractiveMode(cmd.Context(), a); err != nil {
			return fmt.Errorf("interactive mode: %w", err)
		}
		return nil
	},
}

// runInteractiveMode starts an interactive chat session
func runInteractiveMode(ctx context.Context, a *app) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyPath := filepath.Join(a.dataDir, inputHistoryFile)
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if err := os.MkdirAll(a.dataDir, 0755); err != nil {
			return
		}
		if f, err := os.OpenFile(historyPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(os.Stderr, "\n=== Finanzas [%s] ===\n", a.pipeline.ProviderName())
	fmt.Fprintf(os.Stderr, "Type '/help' for commands, '/exit' or 'Ctrl+D' to quit\n")
	fmt.Fprintf(os.Stderr, "=====================\n\n")

	// Welcome renders only into an empty history; otherwise replay what was saved
	if msgs := a.pipeline.History(); len(msgs) > 0 {
		for _, m := range msgs {
			a.terminal.Render(m)
		}
	} else {
		a.pipeline.Welcome(ctx)
	}

	for {
		input, err := line.Prompt("You> ")
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed terminal all end the session
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				logger.Debug("prompt ended", "error", err)
			}
			fmt.Fprintln(os.Stderr, "\nGoodbye!")
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if handleSpecialCommand(ctx, input, a) {
				continue
			}
			return nil
		}

		if _, err := a.pipeline.SendUserMessage(ctx, input); err != nil {
			// Rate-limit and reply failures are already shown as toasts
			if !errors.Is(err, chat.ErrRateLimited) && !errors.Is(err, chat.ErrReplyFailed) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}
}

// handleSpecialCommand processes special commands in interactive mode
// Returns true to continue the loop, false to exit
func handleSpecialCommand(ctx context.Context, input string, a *app) bool {
	fields := strings.Fields(input)
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "/help", "/h":
		fmt.Fprintln(os.Stderr, "\nAvailable commands:")
		fmt.Fprintln(os.Stderr, "  /help, /h              - Show this help message")
		fmt.Fprintln(os.Stderr, "  /lang [en|hi]          - Show or switch the language")
		fmt.Fprintln(os.Stderr, "  /theme [light|dark]    - Toggle or set the colour theme")
		fmt.Fprintln(os.Stderr, "  /quick [n]             - List suggested questions, or send number n")
		fmt.Fprintln(os.Stderr, "  /export [file]         - Export the chat history as JSON")
		fmt.Fprintln(os.Stderr, "  /clear, /c             - Clear the chat history")
		fmt.Fprintln(os.Stderr, "  /voice [on|off]        - Toggle spoken replies")
		fmt.Fprintln(os.Stderr, "  /voice rate|pitch|volume <value> - Adjust the voice")
		fmt.Fprintln(os.Stderr, "  /limit                 - Show the remaining messages in this window")
		fmt.Fprintln(os.Stderr, "  /exit, /quit           - Exit interactive mode")
		fmt.Fprintln(os.Stderr, "  Ctrl+D                 - Exit interactive mode")
		fmt.Fprintln(os.Stderr, "")
		return true

	case "/lang", "/l":
		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Language: %s\n", a.pipeline.Language().DisplayName())
			return true
		}
		if err := a.pipeline.SetLanguage(ctx, finanzas.Language(strings.ToLower(args[0]))); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return true
		}
		fmt.Fprintf(os.Stderr, "Language: %s\n", a.pipeline.Language().DisplayName())
		return true

	case "/theme":
		var theme finanzas.Theme
		if len(args) == 0 {
			theme = a.pipeline.ToggleTheme(ctx)
		} else {
			theme = finanzas.Theme(strings.ToLower(args[0]))
			if err := a.pipeline.SetTheme(ctx, theme); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return true
			}
		}
		fmt.Fprintf(os.Stderr, "Theme: %s\n", theme)
		return true

	case "/quick", "/q":
		replies := a.pipeline.QuickReplies()
		if len(args) == 0 {
			for i, r := range replies {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, r)
			}
			return true
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(replies) {
			fmt.Fprintf(os.Stderr, "Choose a number between 1 and %d\n", len(replies))
			return true
		}
		if _, err := a.pipeline.SendUserMessage(ctx, replies[n-1]); err != nil &&
			!errors.Is(err, chat.ErrRateLimited) && !errors.Is(err, chat.ErrReplyFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return true

	case "/export":
		path := a.pipeline.ExportFilename()
		if len(args) > 0 {
			path = args[0]
		}
		if err := exportTo(a, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return true
		}
		fmt.Fprintf(os.Stderr, "Exported to %s\n", path)
		return true

	case "/clear", "/c":
		a.pipeline.ClearHistory(ctx)
		return true

	case "/voice", "/v":
		return handleVoiceCommand(ctx, args, a)

	case "/limit":
		st := a.pipeline.RateLimitStatus()
		fmt.Fprintf(os.Stderr, "%d/%d %s (window %s)\n", st.Remaining, st.Limit, a.pipeline.T(i18n.RateLimit), st.Window)
		return true

	case "/exit", "/quit":
		fmt.Fprintln(os.Stderr, "Goodbye!")
		return false

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s (type '/help' for available commands)\n", command)
		return true
	}
}

func handleVoiceCommand(ctx context.Context, args []string, a *app) bool {
	if len(args) == 0 {
		a.pipeline.SetSpeak(!a.pipeline.Speaking())
	} else {
		switch strings.ToLower(args[0]) {
		case "on":
			a.pipeline.SetSpeak(true)
		case "off":
			a.pipeline.SetSpeak(false)
		case "rate", "pitch", "volume":
			if len(args) < 2 {
				fmt.Fprintf(os.Stderr, "Usage: /voice %s <value>\n", args[0])
				return true
			}
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid value %q\n", args[1])
				return true
			}
			v := a.pipeline.Settings().Voice
			switch strings.ToLower(args[0]) {
			case "rate":
				v.Rate = value
			case "pitch":
				v.Pitch = value
			default:
				v.Volume = value
			}
			a.pipeline.SetVoice(ctx, v)
		default:
			fmt.Fprintln(os.Stderr, "Usage: /voice [on|off|rate|pitch|volume <value>]")
			return true
		}
	}

	if a.speaker == nil && a.pipeline.Speaking() {
		fmt.Fprintf(os.Stderr, "Speech output unavailable: %q not found\n", a.cfg.SpeechCommand)
	}
	v := a.pipeline.Settings().Voice
	fmt.Fprintf(os.Stderr, "Voice: speak=%v rate=%.1f pitch=%.1f volume=%.1f\n", a.pipeline.Speaking(), v.Rate, v.Pitch, v.Volume)
	return true
}

// exportTo writes the chat history to path
func exportTo(a *app, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := a.pipeline.Export(f); err != nil {
		f.Close()
		return fmt.Errorf("exporting history: %w", err)
	}
	return f.Close()
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (format: provider:model)")
	startCmd.Flags().BoolVar(&speak, "speak", false, "Speak replies aloud")
}
