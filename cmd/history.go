/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
	"github.com/longkey1/finanzas/internal/terminal"
)

var (
	historyLast  int
	historyStats bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the saved chat history",
	Long: `Manage the saved chat history.
At most the 100 most recent messages are kept.`,
}

// historyShowCmd shows the saved messages
var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved chat history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{offline: true, quiet: true})
		if err != nil {
			return err
		}
		defer a.Close()

		msgs := a.pipeline.History()
		if len(msgs) == 0 {
			fmt.Println("No messages.")
			return nil
		}
		if historyLast > 0 && historyLast < len(msgs) {
			msgs = msgs[len(msgs)-historyLast:]
		}

		if historyStats {
			counts := countByRole(msgs)
			fmt.Printf("messages: %d (user %d, assistant %d)\n", len(msgs), counts[finanzas.RoleUser], counts[finanzas.RoleAssistant])
			return nil
		}

		p := terminal.New(os.Stdout, os.Stderr, a.language)
		for _, m := range msgs {
			p.Render(m)
		}
		return nil
	},
}

// historyExportCmd writes the history as JSON
var historyExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the chat history as JSON",
	Long: `Export the chat history as an indented JSON array of
{role, content, timestamp} objects.

Without a file argument the export is written to finanzas-chat-YYYY-MM-DD.json
in the current directory. Use '-' to write to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{offline: true, quiet: true})
		if err != nil {
			return err
		}
		defer a.Close()

		path := a.pipeline.ExportFilename()
		if len(args) > 0 {
			path = args[0]
		}
		if path == "-" {
			return a.pipeline.Export(os.Stdout)
		}
		if err := exportTo(a, path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d messages to %s\n", len(a.pipeline.History()), path)
		return nil
	},
}

// historyClearCmd wipes the history
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the chat history",
	Long: `Clear the chat history. The welcome message is stored again
so the next conversation starts from a fresh greeting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{offline: true, quiet: true})
		if err != nil {
			return err
		}
		defer a.Close()

		a.pipeline.ClearHistory(cmd.Context())
		fmt.Println(a.pipeline.T(i18n.ChatCleared))
		return nil
	},
}

// historyImportCmd replaces the history with an export
var historyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the chat history with an exported JSON file",
	Long: `Replace the chat history with a file written by 'finanzas history export'.
Only the 100 most recent messages are kept. Use '-' to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{offline: true, quiet: true})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := importFrom(cmd.Context(), a, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Imported %d messages\n", n)
		return nil
	},
}

// importFrom reads an export from path, or stdin for "-"
func importFrom(ctx context.Context, a *app, path string) (int, error) {
	if path == "-" {
		return a.pipeline.Import(ctx, os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	n, err := a.pipeline.Import(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("importing %s: %w", path, err)
	}
	return n, nil
}

// countByRole tallies messages per role
func countByRole(msgs []finanzas.Message) map[finanzas.Role]int {
	counts := make(map[finanzas.Role]int)
	for _, m := range msgs {
		counts[m.Role]++
	}
	return counts
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyImportCmd)

	historyShowCmd.Flags().IntVarP(&historyLast, "last", "n", 0, "Show only the last N messages")
	historyShowCmd.Flags().BoolVar(&historyStats, "stats", false, "Print message counts instead of the messages")
}
