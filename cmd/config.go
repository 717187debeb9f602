package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/longkey1/finanzas/internal/finanzas/config"
)

// configFields lists the names accepted by 'finanzas config <field>'
var configFields = []string{
	"configfile", "model", "gemini_base_url", "gemini_token", "ark_base_url", "ark_token", "ark_region",
	"timeout", "temperature", "top_k", "top_p", "max_output_tokens", "rate_limit", "rate_window",
	"store", "data_dir", "redis_addr", "redis_db", "redis_prefix", "preamble_file", "speak",
	"speech_command", "server_addr", "server_rps", "server_burst",
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables.

If a field name is specified, only that field's value is displayed.
Tokens are always masked.

Examples:
  finanzas config                  # Show all configuration
  finanzas config model            # Show only model
  finanzas config store            # Show only the storage backend
  finanzas config gemini_token     # Show only Gemini token (masked)
  finanzas config rate_window      # Show only the rate-limit window`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration from file
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		values := configValues(cfg)

		// If a field is specified, show only that field
		if len(args) > 0 {
			field := strings.ToLower(strings.ReplaceAll(args[0], "-", "_"))
			value, ok := values[field]
			if !ok {
				fmt.Fprintf(os.Stderr, "Available fields: %s\n", strings.Join(configFields, ", "))
				return fmt.Errorf("unknown field: %s", args[0])
			}
			fmt.Println(value)
			return nil
		}

		// Display all configuration values
		for _, field := range configFields {
			fmt.Printf("%s: %s\n", field, values[field])
		}
		return nil
	},
}

// configValues renders every field as display text
func configValues(cfg *config.Config) map[string]string {
	dir := cfg.DataDir
	if dir == "" {
		dir, _ = dataDir(cfg)
	}
	return map[string]string{
		"configfile":        viper.ConfigFileUsed(),
		"model":             cfg.Model,
		"gemini_base_url":   cfg.GeminiBaseURL,
		"gemini_token":      maskToken(cfg.GeminiToken),
		"ark_base_url":      cfg.ArkBaseURL,
		"ark_token":         maskToken(cfg.ArkToken),
		"ark_region":        cfg.ArkRegion,
		"timeout":           cfg.Timeout,
		"temperature":       fmt.Sprint(cfg.Temperature),
		"top_k":             fmt.Sprint(cfg.TopK),
		"top_p":             fmt.Sprint(cfg.TopP),
		"max_output_tokens": fmt.Sprint(cfg.MaxOutputTokens),
		"rate_limit":        fmt.Sprint(cfg.RateLimit),
		"rate_window":       cfg.RateWindow,
		"store":             cfg.Store,
		"data_dir":          dir,
		"redis_addr":        cfg.RedisAddr,
		"redis_db":          fmt.Sprint(cfg.RedisDB),
		"redis_prefix":      cfg.RedisPrefix,
		"preamble_file":     cfg.PreambleFile,
		"speak":             fmt.Sprint(cfg.Speak),
		"speech_command":    cfg.SpeechCommand,
		"server_addr":       cfg.ServerAddr,
		"server_rps":        fmt.Sprint(cfg.ServerRPS),
		"server_burst":      fmt.Sprint(cfg.ServerBurst),
	}
}

// maskToken returns a masked version of the token for security
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
