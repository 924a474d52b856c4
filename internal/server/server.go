// Package server exposes decoded mandate logs over HTTP. Snapshots are plain
// JSON; the websocket feed pushes a fresh snapshot whenever a mandate's
// stream version changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/five82/jibewatch/internal/follow"
)

const (
	defaultPushInterval = 500 * time.Millisecond
	defaultRate         = 20
	defaultBurst        = 40
	shutdownTimeout     = 5 * time.Second
)

// LogSource is the read side of follow.Follower.
type LogSource interface {
	RunID() string
	Tracked() []string
	View(mandateID string) (follow.View, bool)
	Version(mandateID string) (uint64, bool)
}

// Options configures a Server.
type Options struct {
	Addr              string
	Logs              LogSource
	Logger            zerolog.Logger
	PushInterval      time.Duration
	RequestsPerSecond float64
	AllowedOrigins    []string
}

// Server serves the block feed.
type Server struct {
	router       chi.Router
	httpServer   *http.Server
	logs         LogSource
	logger       zerolog.Logger
	pushInterval time.Duration
	stop         context.CancelFunc
}

// New creates a Server with all routes wired.
func New(opts Options) *Server {
	logger := opts.Logger.With().Str("component", "server").Logger()
	push := opts.PushInterval
	if push <= 0 {
		push = defaultPushInterval
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRate
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(requestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}).Handler)

	bg, stop := context.WithCancel(context.Background())
	s := &Server{
		router:       router,
		logs:         opts.Logs,
		logger:       logger,
		pushInterval: push,
		stop:         stop,
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(bg, rps, defaultBurst))
		r.Get("/mandates", s.listMandates)
		r.Get("/mandates/{mandateID}/blocks", s.getBlocks)
	})
	router.Get("/ws/mandates/{mandateID}", s.streamBlocks)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("block feed listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server.Start: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
