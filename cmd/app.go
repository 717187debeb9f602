package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/chat"
	"github.com/longkey1/finanzas/internal/finanzas/config"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
	"github.com/longkey1/finanzas/internal/finanzas/prompt"
	"github.com/longkey1/finanzas/internal/finanzas/session"
	"github.com/longkey1/finanzas/internal/finanzas/store"
	"github.com/longkey1/finanzas/internal/metrics"
	"github.com/longkey1/finanzas/internal/terminal"
	"github.com/longkey1/finanzas/internal/voice"
)

// app holds everything a command needs to talk to the pipeline
type app struct {
	cfg      *config.Config
	store    store.Store
	session  *session.Session
	pipeline *chat.Pipeline
	speaker  *voice.Speaker
	metrics  *metrics.Metrics
	terminal *terminal.Presenter
	dataDir  string
}

// appOptions selects the optional pieces of an app
type appOptions struct {
	// presenters receive pipeline events; the terminal presenter is added
	// unless quiet is set
	presenters chat.Presenters
	recognizer chat.LocaleSetter
	quiet      bool
	// offline skips provider construction; used by commands that never send
	offline bool
}

// dataDir returns the configured data directory, or the one next to the config file
func dataDir(cfg *config.Config) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	return session.GetDataDir(viper.ConfigFileUsed())
}

// openStore opens the configured storage backend
func openStore(cfg *config.Config, dir string) (store.Store, error) {
	kind := store.StoreType(cfg.Store)
	if ephemeral {
		kind = store.StoreTypeMemory
	}

	opts := []store.Option{
		store.WithDir(dir),
		store.WithRedisPrefix(cfg.RedisPrefix),
		store.WithLogger(logger),
	}
	if kind == store.StoreTypeRedis {
		opts = append(opts, store.WithRedisClient(store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)))
	}
	if kind == store.StoreTypeFile || kind == store.StoreTypeSQLite || kind == store.StoreTypePebble {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	st, err := store.New(kind, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", kind, err)
	}
	return st, nil
}

// newApp loads the configuration and session and builds the pipeline
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dir, err := dataDir(cfg)
	if err != nil {
		return nil, err
	}

	// Storage problems never stop the chat; it continues in memory with defaults
	st, err := openStore(cfg, dir)
	if err != nil {
		if errors.Is(err, store.ErrInvalidStoreType) || errors.Is(err, store.ErrInvalidConfig) {
			return nil, err
		}
		appLogger().Warn("storage unavailable, history and settings will not be saved", "store", cfg.Store, "error", err)
		st = store.NewMemory()
	}

	sess := session.New(st, logger)
	state, err := sess.Load(ctx)
	if err != nil {
		appLogger().Warn("failed to load saved session, using defaults", "error", err)
		state = session.DefaultState()
	}

	a := &app{
		cfg:     cfg,
		store:   st,
		session: sess,
		metrics: metrics.New(),
		dataDir: dir,
	}

	var provider finanzas.Provider = offlineProvider{}
	if !opts.offline {
		provider, err = newProvider(cfg)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("creating provider: %w", err)
		}
	}

	preamble, err := prompt.NewPreamble(cfg.PreambleFile)
	if err != nil {
		st.Close()
		return nil, err
	}

	timeout, _ := cfg.ReplyTimeout()
	window, _ := cfg.RateLimitWindow()

	presenters := opts.presenters
	if !opts.quiet {
		a.terminal = terminal.New(os.Stdout, os.Stderr, a.language)
		presenters = append(chat.Presenters{a.terminal}, presenters...)
	}

	var speaker chat.Speaker
	if cfg.SpeechCommand != "" {
		synth := voice.NewCommandSynthesizer(cfg.SpeechCommand)
		if synth.Available() {
			a.speaker = voice.NewSpeaker(synth, logger)
			speaker = a.speaker
		} else if cfg.Speak {
			logger.Warn("speech command not found, replies will not be spoken", "command", cfg.SpeechCommand)
		}
	}

	a.pipeline, err = chat.New(chat.Options{
		Provider:   provider,
		Session:    sess,
		State:      state,
		Preamble:   preamble,
		Limit:      cfg.RateLimit,
		Window:     window,
		Timeout:    timeout,
		Presenter:  presenters,
		Speaker:    speaker,
		Speak:      cfg.Speak,
		Recognizer: opts.recognizer,
		Metrics:    a.metrics,
		Logger:     logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

// appLogger returns the command logger, or the default before initLogger ran
func appLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// language reports the current language; safe before the pipeline exists
func (a *app) language() finanzas.Language {
	if a.pipeline == nil {
		return finanzas.English
	}
	return a.pipeline.Language()
}

// Close waits for speech to finish and closes the store
func (a *app) Close() error {
	if a.speaker != nil {
		a.speaker.Wait()
	}
	return a.store.Close()
}

// offlineProvider stands in for commands that never send messages
type offlineProvider struct{}

func (offlineProvider) Name() string { return "offline" }

func (offlineProvider) Reply(ctx context.Context, req finanzas.Request) (string, error) {
	return "", fmt.Errorf("no reply provider configured: %s", i18n.T(req.Language, i18n.OfflineMessage))
}
