// Package adminhttp is the read-only HTTP admin surface:
// liveness/readiness probes, Prometheus metrics, the configured market
// pairs, and a diagnostic status snapshot. No mutation endpoints; market
// pairs are static configuration and change only across restarts.
package adminhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/pkg/healthprobe"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// BookState is one (market, venue, outcome) top-of-book diagnostic row.
type BookState struct {
	MarketID     string `json:"market_id"`
	Venue        string `json:"venue"`
	Outcome      string `json:"outcome"`
	BestBid      string `json:"best_bid,omitempty"`
	BestBidSize  string `json:"best_bid_size,omitempty"`
	BestAsk      string `json:"best_ask,omitempty"`
	BestAskSize  string `json:"best_ask_size,omitempty"`
}

// Status is the orchestrator's diagnostic snapshot.
type Status struct {
	Environment       string      `json:"environment"`
	DryRun            bool        `json:"dry_run"`
	Uptime            string      `json:"uptime"`
	TradeInProgress   bool        `json:"trade_in_progress"`
	SoftResets        int64       `json:"soft_resets"`
	SingleBookState   string      `json:"single_book_connection_state"`
	TwoBookState      string      `json:"two_book_connection_state"`
	CumulativeSpent   string      `json:"cumulative_spent"`
	Books             []BookState `json:"books"`
}

// StatusProvider is implemented by the orchestrator.
type StatusProvider interface {
	Status() Status
}

// Server is the admin HTTP surface.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds admin server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	StatusProvider StatusProvider
	TargetMarkets []types.MarketPair
}

// New builds a Server. Call Start to begin serving.
func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())
	r.Get("/pairs", pairsHandler(cfg.TargetMarkets))
	if cfg.StatusProvider != nil {
		r.Get("/status", statusHandler(cfg.StatusProvider))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{server: srv, logger: cfg.Logger, healthChecker: cfg.HealthChecker}
}

// Start blocks until the server stops or errors.
func (s *Server) Start() error {
	s.logger.Info("admin-http-starting", zap.String("addr", s.server.Addr))
	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the admin server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("admin-http-shutting-down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func pairsHandler(pairs []types.MarketPair) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(pairs)
	}
}

func statusHandler(sp StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(sp.Status())
	}
}
