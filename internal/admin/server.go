// Package admin serves the operational surface: health, prometheus metrics
// and the exchange-record API. It listens on its own address so the proxy's
// listening surface stays a pure passthrough.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vialabs/tronbridge/internal/audit"
)

// Server is the admin HTTP server.
type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	store    audit.Store
	gatherer prometheus.Gatherer
	addr     string
}

// NewServer creates a new admin server.
func NewServer(addr string, store audit.Store, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		store:    store,
		gatherer: gatherer,
		addr:     addr,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /api/v1/exchanges", s.handleExchanges)
	s.mux.HandleFunc("GET /api/v1/stats", s.handleStats)
}

// ListenAndServe starts the admin HTTP server and closes it when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.logger.Info("starting admin server", "addr", s.addr)
	return srv.ListenAndServe()
}

// Handler returns the HTTP handler for embedding in other servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}
