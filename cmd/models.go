/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/longkey1/finanzas/internal/ark"
	"github.com/longkey1/finanzas/internal/canned"
	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/config"
	"github.com/longkey1/finanzas/internal/gemini"
)

var supportedProviders = []string{gemini.ProviderName, ark.ProviderName, canned.ProviderName}

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List available models for the specified provider(s)",
	Long: `List all available models for the specified provider.
Gemini models are fetched from the API when a token is configured; otherwise
the built-in list is shown.

Supported providers: gemini, ark, canned

If no provider is specified, lists models from all providers.

Example:
  finanzas models           # List models from all providers
  finanzas models gemini    # List Gemini models
  finanzas models canned    # List the offline answer table`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load config to get tokens
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// Determine which providers to list
		providers := supportedProviders
		if len(args) > 0 {
			targetProvider := args[0]
			if !containsProvider(targetProvider) {
				return fmt.Errorf("unsupported provider '%s'\nSupported providers: %s", targetProvider, strings.Join(supportedProviders, ", "))
			}
			providers = []string{targetProvider}
		}

		// Collect results and errors for all providers
		type providerResult struct {
			provider string
			models   []finanzas.ModelInfo
			err      error
		}

		var results []providerResult
		for _, targetProvider := range providers {
			logger.Debug("listing models", "provider", targetProvider)
			models, err := listModels(cmd.Context(), cfg, targetProvider)
			if err == nil && len(models) == 0 {
				err = fmt.Errorf("no models returned")
			}
			results = append(results, providerResult{provider: targetProvider, models: models, err: err})
		}

		// Display successful results first
		successCount := 0
		for _, result := range results {
			if result.err != nil {
				continue
			}

			if successCount > 0 {
				fmt.Println() // Add blank line between providers
			}
			successCount++

			fmt.Printf("Available models for %s:\n\n", result.provider)
			printModelTable(result.provider, result.models)
		}
		if successCount > 0 {
			fmt.Printf("\nUse a model with: finanzas chat --model <model> [message]\n")
		}

		// Display errors at the end
		errorCount := 0
		for _, result := range results {
			if result.err == nil {
				continue
			}

			if errorCount == 0 && successCount > 0 {
				fmt.Println() // Add blank line before error section
			}
			errorCount++

			fmt.Fprintf(os.Stderr, "Warning: Skipping %s - %v\n", result.provider, result.err)
		}

		return nil
	},
}

// listModels returns the models a provider offers
func listModels(ctx context.Context, cfg *config.Config, providerName string) ([]finanzas.ModelInfo, error) {
	switch providerName {
	case gemini.ProviderName:
		token, err := cfg.GetToken(providerName)
		if err != nil {
			logger.Debug("using built-in gemini model list", "reason", err)
			return gemini.SupportedModels(), nil
		}
		baseURL, err := cfg.GetBaseURL(providerName)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		p := gemini.NewProvider(gemini.Options{BaseURL: baseURL, Token: token, Logger: logger})
		models, err := p.ListModels(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: listing gemini models failed, showing built-in list: %v\n", err)
			return gemini.SupportedModels(), nil
		}
		return models, nil
	case ark.ProviderName:
		return nil, fmt.Errorf("endpoints are created per account; use ark:<endpoint-id>")
	case canned.ProviderName:
		return canned.Models(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

func printModelTable(providerName string, models []finanzas.ModelInfo) {
	// Calculate column widths
	maxModelWidth := 15
	maxModelIDWidth := 15
	for _, model := range models {
		modelName := finanzas.FormatModelString(providerName, model.ID)
		if len(modelName) > maxModelWidth {
			maxModelWidth = len(modelName)
		}
		if len(model.ID) > maxModelIDWidth {
			maxModelIDWidth = len(model.ID)
		}
	}

	fmt.Printf("%-*s  %-*s  %-10s  %s\n", maxModelWidth, "MODEL", maxModelIDWidth, "MODEL ID", "DEFAULT", "DESCRIPTION")
	fmt.Printf("%s  %s  %s  %s\n",
		strings.Repeat("-", maxModelWidth),
		strings.Repeat("-", maxModelIDWidth),
		strings.Repeat("-", 10),
		strings.Repeat("-", 50))

	for _, model := range models {
		defaultMark := ""
		if model.IsDefault {
			defaultMark = "Yes"
		}
		fmt.Printf("%-*s  %-*s  %-10s  %s\n",
			maxModelWidth,
			finanzas.FormatModelString(providerName, model.ID),
			maxModelIDWidth,
			model.ID,
			defaultMark,
			model.Description)
	}
}

func containsProvider(name string) bool {
	for _, p := range supportedProviders {
		if p == name {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
