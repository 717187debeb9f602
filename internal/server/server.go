// Package server exposes a chat pipeline over HTTP and WebSocket and serves
// the browser client.
package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/longkey1/finanzas/internal/finanzas/chat"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
	"github.com/longkey1/finanzas/internal/metrics"
	"github.com/longkey1/finanzas/internal/voice"
)

//go:embed static
var staticFiles embed.FS

const shutdownTimeout = 10 * time.Second

// Options configures a Server. Pipeline and Hub are required; the hub must
// be one of the pipeline's presenters for pushed events to reach browsers.
type Options struct {
	Addr        string
	Pipeline    *chat.Pipeline
	Hub         *Hub
	Recognition *voice.Recognition
	Metrics     *metrics.Metrics
	RPS         float64
	Burst       int
	Logger      *slog.Logger
}

// Server serves the chat API.
type Server struct {
	addr        string
	pipeline    *chat.Pipeline
	hub         *Hub
	recognition *voice.Recognition
	metrics     *metrics.Metrics
	limiters    *limiterPool
	logger      *slog.Logger
	upgrader    websocket.Upgrader

	// base outlives individual requests so replies started over the
	// websocket finish after the socket closes.
	base   context.Context
	cancel context.CancelFunc
}

// New validates opts and builds a server.
func New(opts Options) (*Server, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("server: pipeline is required")
	}
	if opts.Hub == nil {
		return nil, errors.New("server: hub is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recognition == nil {
		opts.Recognition = voice.NewRecognition(nil, i18n.Locale(opts.Pipeline.Language()), voice.Handler{})
	}

	base, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        opts.Addr,
		pipeline:    opts.Pipeline,
		hub:         opts.Hub,
		recognition: opts.Recognition,
		metrics:     opts.Metrics,
		limiters:    newLimiterPool(opts.RPS, opts.Burst),
		logger:      opts.Logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		base:   base,
		cancel: cancel,
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(s.limiters.middleware)

		api.Get("/messages", s.handleListMessages)
		api.Post("/messages", s.handleSendMessage)
		api.Delete("/messages", s.handleClearMessages)
		api.Get("/messages/export", s.handleExport)

		api.Get("/settings", s.handleGetSettings)
		api.Patch("/settings", s.handleUpdateSettings)

		api.Get("/quick-replies", s.handleQuickReplies)
		api.Get("/translations", s.handleTranslations)

		api.Get("/rate-limit", s.handleRateLimit)
		api.Post("/rate-limit/reset", s.handleResetRateLimit)
	})

	r.Get("/ws", s.handleWebSocket)

	static, _ := fs.Sub(staticFiles, "static")
	r.Handle("/*", http.FileServer(http.FS(static)))

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	defer s.cancel()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
