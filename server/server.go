// Package server exposes the session API over HTTP as JSON.
//
// Every session lives in memory under a random id. Requests against one
// session are serialised, different sessions proceed in parallel. Trained
// models are never persisted.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ezoic/forestcal/config"
	"github.com/ezoic/forestcal/pkg/log"
)

// Server is the HTTP adapter.
type Server struct {
	settings config.Settings
	registry *Registry
	metrics  *Metrics
	router   *mux.Router
	logger   log.Logger
}

// New builds a Server and its routes.
func New(settings config.Settings) *Server {
	s := &Server{
		settings: settings,
		registry: NewRegistry(settings.Server.MaxSessions),
		metrics:  NewMetrics(),
		logger:   log.GetLoggerWithName("server"),
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Registry returns the session registry.
func (s *Server) Registry() *Registry { return s.registry }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.settings.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.settings.Server.ReadTimeout,
		WriteTimeout: s.settings.Server.WriteTimeout,
	}

	if ttl := s.settings.Server.SessionTTL; ttl > 0 {
		go s.expireLoop(ctx, ttl)
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Stopping HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) expireLoop(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.registry.Expire(ttl); n > 0 {
				s.logger.Info("Expired idle sessions", "count", n)
				s.metrics.SetSessions(s.registry.Len())
			}
		}
	}
}
