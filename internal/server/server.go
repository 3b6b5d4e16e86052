// Package server exposes the advisor, statistics and history over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/jacobarthurs/pgguard/internal/feedback"
	"github.com/jacobarthurs/pgguard/internal/history"
	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/rules"
	"github.com/jacobarthurs/pgguard/internal/stats"
)

const (
	maxBodyBytes    = 10 << 20
	shutdownTimeout = 5 * time.Second
)

// Planner produces plans for a query, optionally after a corrective action.
type Planner interface {
	Explain(ctx context.Context, sql string, opts plan.Options) (plan.ExplainOutput, error)
	ExplainWithFix(ctx context.Context, sql, ddl string, opts plan.Options) (plan.ExplainOutput, error)
}

type Options struct {
	// ConnStr is the connection used when a request names none. Empty lets
	// pgx fall back to the PG* environment variables.
	ConnStr string
	// Rules evaluated by /advise and /analyze; nil selects the built-in set.
	Rules []rules.Rule
	// History records every /analyze call. Nil disables the history
	// endpoints.
	History *history.Store
	// Timeout bounds each database-backed request.
	Timeout time.Duration
	// Notifier receives red flags in addition to websocket clients.
	Notifier feedback.Notifier
}

type Server struct {
	opts   Options
	hub    *feedback.Hub
	router chi.Router

	mu      sync.RWMutex
	connStr string
	rules   []rules.Rule

	newPlanner func(connStr string) Planner
	openStats  func(connStr string) (*stats.Collector, error)
}

func New(opts Options) *Server {
	s := &Server{
		opts:    opts,
		hub:     feedback.NewHub(),
		connStr: opts.ConnStr,
		rules:   opts.Rules,
		newPlanner: func(connStr string) Planner {
			return &plan.Explainer{ConnStr: connStr, Timeout: opts.Timeout}
		},
		openStats: stats.Open,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Post("/advise", s.handleAdvise)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/compare", s.handleCompare)
	r.Post("/rules/upload", s.handleRulesUpload)
	r.Get("/history", s.handleHistoryList)
	r.Post("/history", s.handleHistoryAdd)
	r.Get("/heatmap", s.handleHeatmap)
	r.Get("/dbinfo", s.handleDBInfo)
	r.Post("/check_connection", s.handleCheckConnection)
	r.Handle("/feedback", s.hub)

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Hub is the websocket feed of red flags.
func (s *Server) Hub() *feedback.Hub {
	return s.hub
}

func (s *Server) defaultConn() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connStr
}

func (s *Server) setDefaultConn(connStr string) {
	s.mu.Lock()
	s.connStr = connStr
	s.mu.Unlock()
}

func (s *Server) activeRules() []rules.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

func (s *Server) setRules(rs []rules.Rule) {
	s.mu.Lock()
	s.rules = rs
	s.mu.Unlock()
}

func (s *Server) notifier() feedback.Notifier {
	if s.opts.Notifier == nil {
		return s.hub
	}
	return feedback.Multi{s.hub, s.opts.Notifier}
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}
