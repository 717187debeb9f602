/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/longkey1/finanzas/internal/finanzas/i18n"
)

// ratelimitCmd represents the ratelimit command
var ratelimitCmd = &cobra.Command{
	Use:     "ratelimit",
	Aliases: []string{"limit"},
	Short:   "Show or reset the message rate limit",
	Long: `Show or reset the message rate limit.
By default 3 messages may be sent in any 10 second window; change
rate_limit and rate_window in the config file to adjust it.`,
}

// ratelimitStatusCmd prints the current window
var ratelimitStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the messages left in the current window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{offline: true, quiet: true})
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.pipeline.RateLimitStatus()
		fmt.Printf("%s: %d/%d\n", a.pipeline.T(i18n.RateLimit), st.Remaining, st.Limit)
		fmt.Printf("window: %s\n", st.Window)
		if st.Remaining < st.Limit {
			fmt.Printf("resets at: %s\n", i18n.FormatTime(a.pipeline.Language(), st.ResetAt.Local()))
		}
		return nil
	},
}

// ratelimitResetCmd starts a fresh window
var ratelimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start a fresh rate-limit window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{offline: true, quiet: true})
		if err != nil {
			return err
		}
		defer a.Close()

		a.pipeline.ResetRateLimit(cmd.Context())
		st := a.pipeline.RateLimitStatus()
		fmt.Printf("%s: %d/%d\n", a.pipeline.T(i18n.RateLimit), st.Remaining, st.Limit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ratelimitCmd)
	ratelimitCmd.AddCommand(ratelimitStatusCmd)
	ratelimitCmd.AddCommand(ratelimitResetCmd)
}
