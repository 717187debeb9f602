/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/config"
	"github.com/longkey1/finanzas/internal/finanzas/prompt"
)

var withQuestion string

// promptCmd represents the prompt command
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Show the system preamble sent with every question",
	Long: `Show the system preamble sent to the reply provider before every question.

The built-in preamble can be replaced with a TOML file referenced by
preamble_file in the config:
system = "You are Finanzas, ... Respond in {{language}}."

The {{language}} placeholder is replaced with the reply language.
Use --question to see the full text sent for a question.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger.Debug("preamble", "file", cfg.PreambleFile)

		preamble, err := prompt.NewPreamble(cfg.PreambleFile)
		if err != nil {
			return err
		}

		lang := finanzas.English
		if cmd.Flags().Changed("lang") {
			lang, err = finanzas.ParseLanguage(language)
			if err != nil {
				return err
			}
		}

		system := preamble.System(lang)
		if withQuestion != "" {
			fmt.Println(prompt.Compose(system, withQuestion))
			return nil
		}
		fmt.Println(system)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)

	promptCmd.Flags().StringVarP(&language, "lang", "l", "", "Language of the preamble (en or hi)")
	promptCmd.Flags().StringVarP(&withQuestion, "question", "q", "", "Compose the preamble with this question")
}
