// Package server exposes the per-bot deviation views to the dashboard
// frontend: projections, refresh state, and the page-request setters, as a
// small JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"botwatch/internal/view"
)

// Options configure the HTTP listener.
type Options struct {
	Addr       string
	CORSOrigin string
}

// Server serves the dashboard-facing API.
type Server struct {
	opts   Options
	views  *view.Registry
	logger zerolog.Logger
}

// New constructs a Server around a view registry.
func New(views *view.Registry, opts Options, logger zerolog.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8090"
	}
	return &Server{
		opts:   opts,
		views:  views,
		logger: logger.With().Str("component", "server").Logger(),
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger())
	r.Use(requestMetrics())
	r.Use(cors(s.opts.CORSOrigin))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/bots/{botID}", func(r chi.Router) {
		r.Get("/table", s.handleTable)
		r.Get("/series", s.handleSeries)
		r.Get("/heatmap", s.handleHeatmap)
		r.Get("/state", s.handleState)
		r.Post("/refresh", s.handleRefresh)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
