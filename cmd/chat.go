/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/chat"
)

var (
	model     string
	useEditor bool
	language  string
	speak     bool
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask a single question",
	Long: `Ask a single question and print the reply.
The question and the reply are added to the saved chat history and count
against the rate limit, exactly like messages sent from 'finanzas start'.

For an interactive conversation, use 'finanzas start' instead.

If no message is provided as an argument, it reads from stdin.
If --editor flag is set, it opens the default editor (from EDITOR environment variable) to compose the message.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get message from arguments, editor, or stdin
		var message string
		var err error
		if useEditor {
			message, err = getMessageFromEditor()
			if err != nil {
				return fmt.Errorf("getting message from editor: %w", err)
			}
		} else if len(args) > 0 {
			message = strings.Join(args, " ")
		} else {
			input, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading from stdin: %w", err)
			}
			message = strings.TrimSpace(string(input))
		}

		// Apply model with priority: flag > env > config file
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

		if cmd.Flags().Changed("lang") {
			if err := a.pipeline.SetLanguage(cmd.Context(), finanzas.Language(language)); err != nil {
				return err
			}
		}

		_, err = a.pipeline.SendUserMessage(cmd.Context(), message)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			return fmt.Errorf("no message given")
		case errors.Is(err, chat.ErrRateLimited):
			st := a.pipeline.RateLimitStatus()
			return fmt.Errorf("%w: try again after %s", err, st.ResetAt.Local().Format("15:04:05"))
		case err != nil:
			return fmt.Errorf("chat request failed: %w", err)
		}
		return nil
	},
}

// getMessageFromEditor opens the default editor and returns the edited message
func getMessageFromEditor() (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return "", fmt.Errorf("EDITOR environment variable is not set")
	}

	// Create a temporary file
	tmpFile, err := os.CreateTemp("", "finanzas-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	// Open the editor
	cmd := exec.Command(editor, tmpFile.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to open editor: %w", err)
	}

	// Read the edited content
	content, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read edited content: %w", err)
	}

	return strings.TrimSpace(string(content)), nil
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (format: provider:model, e.g., gemini:gemini-2.0-flash or canned:default)")
	chatCmd.Flags().BoolVarP(&useEditor, "editor", "e", false, "Use default editor (from EDITOR environment variable) to compose message")
	chatCmd.Flags().StringVarP(&language, "lang", "l", "", "Reply language for this and later messages (en or hi)")
	chatCmd.Flags().BoolVar(&speak, "speak", false, "Speak the reply aloud")
}
