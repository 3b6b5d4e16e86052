package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Options selects the EXPLAIN flavour and the session settings applied
// (transaction-locally) before the plan is produced.
type Options struct {
	Analyze  bool
	Verbose  bool
	Buffers  bool
	Settings bool
	Session  map[string]string
}

// DefaultOptions mirrors what the CLI asks for when it is given raw SQL.
// VERBOSE is left out: it qualifies column references with their table,
// which the column placeholder would then pick up.
func DefaultOptions() Options {
	return Options{Analyze: true, Buffers: true}
}

// EstimateOptions plans the query without executing it.
func EstimateOptions() Options {
	return Options{}
}

// ErrExplainPrefix reports a query that already starts with EXPLAIN.
var ErrExplainPrefix = errors.New("input should not include EXPLAIN prefix - provide the raw query only")

// CheckQuery trims sql and rejects empty input and input that is itself an
// EXPLAIN statement, which would be sent as EXPLAIN (...) EXPLAIN ...
func CheckQuery(sql string) (string, error) {
	query := strings.TrimSpace(sql)
	if query == "" {
		return "", fmt.Errorf("empty sql statement")
	}
	if word, _, _ := strings.Cut(query, " "); hasExplainKeyword(word) {
		return "", ErrExplainPrefix
	}
	return query, nil
}

func hasExplainKeyword(word string) bool {
	if len(word) < len("EXPLAIN") || !strings.EqualFold(word[:len("EXPLAIN")], "EXPLAIN") {
		return false
	}
	rest := word[len("EXPLAIN"):]
	return rest == "" || strings.ContainsAny(rest[:1], "(\t\n\r")
}

// Explainer runs EXPLAIN against a database. Every call opens its own
// connection and works inside a transaction that is rolled back, so neither
// ANALYZE side effects nor what-if DDL survive.
type Explainer struct {
	ConnStr string
	Timeout time.Duration
}

func (e *Explainer) Explain(ctx context.Context, sql string, opts Options) (ExplainOutput, error) {
	return e.run(ctx, sql, "", opts)
}

// ExplainWithFix applies ddl and explains sql in the same rolled-back
// transaction, producing the plan the engine would choose after the fix.
func (e *Explainer) ExplainWithFix(ctx context.Context, sql, ddl string, opts Options) (ExplainOutput, error) {
	if strings.TrimSpace(ddl) == "" {
		return ExplainOutput{}, fmt.Errorf("empty fix statement")
	}
	return e.run(ctx, sql, ddl, opts)
}

// ExplainWithSettings produces two plans for sql, one under each set of
// session settings.
func (e *Explainer) ExplainWithSettings(ctx context.Context, sql string, before, after map[string]string, opts Options) (ExplainOutput, ExplainOutput, error) {
	opts.Session = before
	b, err := e.run(ctx, sql, "", opts)
	if err != nil {
		return ExplainOutput{}, ExplainOutput{}, fmt.Errorf("before plan: %w", err)
	}
	opts.Session = after
	a, err := e.run(ctx, sql, "", opts)
	if err != nil {
		return ExplainOutput{}, ExplainOutput{}, fmt.Errorf("after plan: %w", err)
	}
	return b, a, nil
}

func (e *Explainer) run(ctx context.Context, sql, ddl string, opts Options) (ExplainOutput, error) {
	query, err := CheckQuery(sql)
	if err != nil {
		return ExplainOutput{}, err
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	conn, err := connectWithRetry(ctx, e.ConnStr)
	if err != nil {
		return ExplainOutput{}, fmt.Errorf("connecting to database: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	tx, err := conn.Begin(ctx)
	if err != nil {
		return ExplainOutput{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if e.Timeout > 0 {
		opts.Session = withSetting(opts.Session, "statement_timeout", fmt.Sprintf("%d", e.Timeout.Milliseconds()))
	}
	if err := applySession(ctx, tx, opts.Session); err != nil {
		return ExplainOutput{}, err
	}

	if ddl != "" {
		slog.Debug("applying fix in rolled-back transaction", "ddl", ddl)
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return ExplainOutput{}, fmt.Errorf("applying fix: %w", err)
		}
	}

	var jsonStr string
	err = tx.QueryRow(ctx, explainStatement(opts)+" "+query).Scan(&jsonStr)
	if err != nil {
		return ExplainOutput{}, fmt.Errorf("executing EXPLAIN: %w", err)
	}

	plans, err := ParseJSONPlan([]byte(jsonStr))
	if err != nil {
		return ExplainOutput{}, err
	}
	return plans[0], nil
}

func explainStatement(opts Options) string {
	var parts []string
	if opts.Analyze {
		parts = append(parts, "ANALYZE")
	}
	if opts.Verbose {
		parts = append(parts, "VERBOSE")
	}
	if opts.Buffers {
		parts = append(parts, "BUFFERS")
	}
	if opts.Settings {
		parts = append(parts, "SETTINGS")
	}
	parts = append(parts, "FORMAT JSON")
	return "EXPLAIN (" + strings.Join(parts, ", ") + ")"
}

// applySession uses set_config(..., true) so names and values are bound
// parameters and the change ends with the transaction.
func applySession(ctx context.Context, tx pgx.Tx, settings map[string]string) error {
	for _, name := range slices.Sorted(maps.Keys(settings)) {
		if _, err := tx.Exec(ctx, "SELECT set_config($1, $2, true)", name, settings[name]); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
	}
	return nil
}

func withSetting(settings map[string]string, name, value string) map[string]string {
	out := make(map[string]string, len(settings)+1)
	for k, v := range settings {
		out[k] = v
	}
	if _, ok := out[name]; !ok {
		out[name] = value
	}
	return out
}
