/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/chat"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
	"github.com/longkey1/finanzas/internal/server"
	"github.com/longkey1/finanzas/internal/voice"
)

var (
	serveAddr  string
	serveQuiet bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat to a browser",
	Long: `Serve the chat over HTTP and WebSocket together with the installable web client.

The browser and the terminal share one conversation: messages sent from either
side appear in both. Speech recognition runs in the browser; recognized text is
placed in the input box for review before sending.

Endpoints:
  /            web client (works offline once installed)
  /api/...     JSON API
  /ws          live updates
  /metrics     Prometheus metrics
  /healthz     health check`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("model") {
			if _, _, err := finanzas.ParseModelString(model); err != nil {
				return fmt.Errorf("invalid model from flag: %w", err)
			}
			viper.Set("model", model)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var a *app
		lang := func() finanzas.Language {
			if a == nil {
				return finanzas.English
			}
			return a.language()
		}

		hub := server.NewHub(logger)
		recognition := voice.NewRecognition(nil, i18n.Locale(finanzas.English), hub.RecognitionHandler(lang))

		a, err := newApp(ctx, appOptions{
			presenters: chat.Presenters{hub},
			recognizer: recognition,
			quiet:      serveQuiet,
		})
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.cfg.ServerAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		srv, err := server.New(server.Options{
			Addr:        addr,
			Pipeline:    a.pipeline,
			Hub:         hub,
			Recognition: recognition,
			Metrics:     a.metrics,
			RPS:         a.cfg.ServerRPS,
			Burst:       a.cfg.ServerBurst,
			Logger:      logger,
		})
		if err != nil {
			return err
		}

		a.pipeline.Welcome(ctx)

		// Provider and store settings are read once; report edits so the
		// operator knows a restart is needed
		if viper.ConfigFileUsed() != "" {
			viper.OnConfigChange(func(e fsnotify.Event) {
				logger.Warn("config file changed, restart to apply", "file", e.Name, "op", e.Op.String())
			})
			viper.WatchConfig()
		}

		fmt.Fprintf(os.Stderr, "Serving Finanzas [%s] on http://%s\n", a.pipeline.ProviderName(), displayAddr(addr))
		return srv.Run(ctx)
	},
}

// displayAddr turns ":8080" into "localhost:8080"
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from server_addr)")
	serveCmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (format: provider:model)")
	serveCmd.Flags().BoolVarP(&serveQuiet, "quiet", "q", false, "Do not echo the conversation in this terminal")
}
