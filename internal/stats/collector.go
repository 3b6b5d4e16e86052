// Package stats reads server-wide runtime statistics, lock-table state and a
// database overview through database/sql.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/plan"
)

type Collector struct {
	db *sql.DB
}

func New(db *sql.DB) *Collector {
	return &Collector{db: db}
}

// Open connects through the pgx database/sql driver.
func Open(connStr string) (*Collector, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(2)
	return New(db), nil
}

func (c *Collector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Collector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

type scalarMetric struct {
	key   string
	query string
}

var serverMetrics = []scalarMetric{
	{metrics.CacheHitRatio, cacheHitRatioSQL},
	{metrics.IndexUsage, indexUsageSQL},
	{metrics.WaitTime, waitTimeSQL},
}

var trailingMetrics = []scalarMetric{
	{metrics.DeadlockCount, deadlockCountSQL},
	{metrics.Uptime, uptimeSQL},
	{metrics.ActiveConnections, activeConnectionsSQL},
	{metrics.LockContention, lockContentionSQL},
	{metrics.ReplicationLag, replicationLagSQL},
}

// Collect gathers the server-level metric keys. When query is non-empty the
// cost and rows of its estimated plan are included too. dbname selects the
// database whose size is reported; empty means the current one.
//
// Only a failed connection is an error. A single statistic that cannot be
// read, or reads NULL, is left out of the snapshot.
func (c *Collector) Collect(ctx context.Context, dbname, query string) (metrics.Snapshot, error) {
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := metrics.Snapshot{}

	if query != "" {
		if root, err := c.estimate(ctx, query); err != nil {
			slog.Warn("could not estimate query", "error", err)
		} else {
			est := advisor.ExtractMetrics(&root)
			for _, k := range []string{metrics.Cost, metrics.Rows} {
				if v, ok := est.Get(k); ok {
					s[k] = v
				}
			}
		}
	}

	for _, m := range serverMetrics {
		c.scalar(ctx, s, m.key, m.query)
	}

	c.scalar(ctx, s, metrics.DiskIORead, diskReadSQL)
	var hasWritten bool
	if err := c.db.QueryRowContext(ctx, hasBlocksWrittenSQL).Scan(&hasWritten); err != nil {
		slog.Warn("could not inspect pg_stat_database columns", "error", err)
	} else if hasWritten {
		c.scalar(ctx, s, metrics.DiskIOWrite, diskWriteSQL)
	}

	c.scalar(ctx, s, metrics.DatabaseSize, databaseSizeSQL, dbname)

	for _, m := range trailingMetrics {
		c.scalar(ctx, s, m.key, m.query)
	}

	return s, nil
}

func (c *Collector) scalar(ctx context.Context, s metrics.Snapshot, key, query string, args ...any) {
	var v sql.NullFloat64
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		slog.Warn("could not collect metric", "metric", key, "error", err)
		return
	}
	if v.Valid {
		s[key] = v.Float64
	}
}

func (c *Collector) estimate(ctx context.Context, query string) (plan.PlanNode, error) {
	query, err := plan.CheckQuery(query)
	if err != nil {
		return plan.PlanNode{}, err
	}
	var doc string
	if err := c.db.QueryRowContext(ctx, explainJSONSQL+query).Scan(&doc); err != nil {
		return plan.PlanNode{}, fmt.Errorf("executing EXPLAIN: %w", err)
	}
	return plan.ParsePlan([]byte(doc))
}
