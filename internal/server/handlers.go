package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/feedback"
	"github.com/jacobarthurs/pgguard/internal/history"
	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/output"
	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/rules"
	"github.com/jacobarthurs/pgguard/internal/stats"
)

var errHistoryDisabled = errors.New("history is disabled")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) resolveConn(c *Connection) (string, string) {
	if c == nil {
		return s.defaultConn(), ""
	}
	return c.String(), c.dbname()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"metrics": metrics.Keys()})
}

type adviseRequest struct {
	Plan    json.RawMessage `json:"plan"`
	AltPlan json.RawMessage `json:"alt_plan,omitempty"`
}

func (s *Server) handleAdvise(w http.ResponseWriter, r *http.Request) {
	var req adviseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := plan.ParseDocument(req.Plan)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("plan: %w", err))
		return
	}

	var alt *plan.PlanNode
	if len(req.AltPlan) > 0 && string(req.AltPlan) != "null" {
		altOut, err := plan.ParseDocument(req.AltPlan)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("alt_plan: %w", err))
			return
		}
		alt = &altOut.Plan
	}

	a := advisor.Build(&out.Plan, s.activeRules(), alt)
	writeJSON(w, http.StatusOK, output.NewReport("", out, a))
}

type analyzeRequest struct {
	Query      string      `json:"query"`
	Connection *Connection `json:"connection,omitempty"`
	// WhatIf measures every corrective action; on unless set to false.
	WhatIf *bool `json:"what_if,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	query, err := plan.CheckQuery(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	connStr, dbname := s.resolveConn(req.Connection)
	planner := s.newPlanner(connStr)

	out, err := planner.Explain(ctx, query, plan.EstimateOptions())
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("explain failed: %w", err))
		return
	}

	a := advisor.Build(&out.Plan, s.activeRules(), nil)
	if req.WhatIf == nil || *req.WhatIf {
		advisor.MeasureFixes(ctx, &a, func(ctx context.Context, ddl string) (plan.PlanNode, error) {
			fixed, err := planner.ExplainWithFix(ctx, query, ddl, plan.EstimateOptions())
			return fixed.Plan, err
		})
	}

	rec := history.Record{
		Query:  query,
		Table:  advisor.Placeholders(&out.Plan)["relation"],
		Advice: a.Advice,
	}
	rec.Metrics, rec.Locks = s.serverState(ctx, connStr, dbname, query)

	if s.opts.History != nil {
		if stored, err := s.opts.History.Add(rec); err != nil {
			slog.Error("recording history failed", "error", err)
		} else {
			rec = stored
		}
	}

	if err := feedback.SendAll(ctx, s.notifier(), feedback.RedFlags(a, query, rules.High)); err != nil {
		slog.Warn("sending feedback failed", "error", err)
	}

	writeJSON(w, http.StatusOK, rec)
}

// serverState collects server metrics and locks. Failures are logged and
// leave the corresponding part empty; the plan was already obtained.
func (s *Server) serverState(ctx context.Context, connStr, dbname, query string) (metrics.Snapshot, *stats.LockReport) {
	c, err := s.openStats(connStr)
	if err != nil {
		slog.Warn("statistics unavailable", "error", err)
		return nil, nil
	}
	defer c.Close()

	snap, err := c.Collect(ctx, dbname, query)
	if err != nil {
		slog.Warn("collecting server metrics failed", "error", err)
		return nil, nil
	}

	locks, err := c.CollectLocks(ctx)
	if err != nil {
		slog.Warn("collecting locks failed", "error", err)
		return snap, nil
	}
	return snap, &locks
}

type compareRequest struct {
	BeforeQuery string      `json:"before_query"`
	AfterQuery  string      `json:"after_query"`
	Connection  *Connection `json:"connection,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.BeforeQuery) == "" || strings.TrimSpace(req.AfterQuery) == "" {
		writeError(w, http.StatusBadRequest, errors.New("before_query and after_query are required"))
		return
	}
	for _, q := range []string{req.BeforeQuery, req.AfterQuery} {
		if _, err := plan.CheckQuery(q); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	connStr, _ := s.resolveConn(req.Connection)
	planner := s.newPlanner(connStr)

	before, err := planner.Explain(ctx, req.BeforeQuery, plan.EstimateOptions())
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("before_query: %w", err))
		return
	}
	after, err := planner.Explain(ctx, req.AfterQuery, plan.EstimateOptions())
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("after_query: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, advisor.ComparePlans(&before.Plan, &after.Plan))
}

// handleRulesUpload validates a YAML rule set and activates it after the
// configured rules, replacing any earlier upload.
func (s *Server) handleRulesUpload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("reading rules: %w", err))
		return
	}

	source := "upload"
	if name := r.URL.Query().Get("filename"); name != "" {
		source = name
	}

	uploaded, err := rules.Parse(source, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	base := s.opts.Rules
	if base == nil {
		base = rules.Builtin()
	}
	s.setRules(append(slices.Clone(base), uploaded...))
	slog.Info("rules uploaded", "source", source, "count", len(uploaded))

	names := make([]string, 0, len(uploaded))
	for _, rule := range uploaded {
		names = append(names, rule.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rules_loaded": names})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, _ *http.Request) {
	if s.opts.History == nil {
		writeError(w, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}
	records, err := s.opts.History.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

func (s *Server) handleHistoryAdd(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeError(w, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}

	var rec history.Record
	if err := decodeJSON(w, r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if rec.Query == "" || rec.Action == "" {
		writeError(w, http.StatusBadRequest, errors.New("query and action are required"))
		return
	}

	rec, err := s.opts.History.Add(rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "record": rec})
}

func (s *Server) handleHeatmap(w http.ResponseWriter, _ *http.Request) {
	if s.opts.History == nil {
		writeError(w, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}
	h, err := s.opts.History.Heatmap()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleDBInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	c, err := s.openStats(s.defaultConn())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	defer c.Close()

	info, err := c.DatabaseInfo(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleCheckConnection pings the given connection and, on success, makes it
// the default for later requests. Failure is reported in the body.
func (s *Server) handleCheckConnection(w http.ResponseWriter, r *http.Request) {
	var conn Connection
	if err := decodeJSON(w, r, &conn); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	connStr := conn.String()
	if err := s.ping(ctx, connStr); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	s.setDefaultConn(connStr)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "connection successful"})
}

func (s *Server) ping(ctx context.Context, connStr string) error {
	c, err := s.openStats(connStr)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Ping(ctx)
}
