package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultLongLockThreshold is how long a granted lock's query must have been
// running before it is reported by LongLocks.
const DefaultLongLockThreshold = 10 * time.Second

// Lock is one relation-level row of pg_locks joined with its backend.
type Lock struct {
	PID                int64    `json:"pid"`
	LockType           string   `json:"locktype"`
	Relation           string   `json:"relation"`
	Mode               string   `json:"mode"`
	Granted            bool     `json:"granted"`
	FastPath           bool     `json:"fastpath"`
	VirtualTransaction string   `json:"virtualtransaction,omitempty"`
	TransactionID      string   `json:"transactionid,omitempty"`
	VirtualXID         string   `json:"virtualxid,omitempty"`
	Database           string   `json:"database,omitempty"`
	ApplicationName    string   `json:"application_name,omitempty"`
	State              string   `json:"state,omitempty"`
	Query              string   `json:"query,omitempty"`
	QueryDuration      *float64 `json:"query_duration"` // seconds
}

type LockStats struct {
	TotalLocks    int            `json:"total_locks"`
	BlockedCount  int            `json:"blocked_count"`
	BlockedTables map[string]int `json:"blocked_tables"`
}

// BlockingPair is a waiting backend and a backend holding a conflicting lock.
type BlockingPair struct {
	WaitingPID    int64  `json:"waiting_pid"`
	WaitingQuery  string `json:"waiting_query"`
	WaitingState  string `json:"waiting_state"`
	BlockingPID   int64  `json:"blocking_pid"`
	BlockingQuery string `json:"blocking_query"`
	BlockingState string `json:"blocking_state"`
}

type LockReport struct {
	Stats     LockStats      `json:"lock_stats"`
	Blocked   []Lock         `json:"blocked_processes"`
	LongLocks []Lock         `json:"long_locks"`
	Deadlocks []BlockingPair `json:"deadlocks"`
}

// CurrentLocks lists relation locks, granted first and longest running first.
func (c *Collector) CurrentLocks(ctx context.Context) ([]Lock, error) {
	rows, err := c.db.QueryContext(ctx, currentLocksSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query pg_locks: %w", err)
	}
	defer rows.Close()

	var locks []Lock
	for rows.Next() {
		var l Lock
		var dur sql.NullFloat64
		err := rows.Scan(
			&l.PID,
			&l.LockType,
			&l.Relation,
			&l.Mode,
			&l.Granted,
			&l.FastPath,
			&l.VirtualTransaction,
			&l.TransactionID,
			&l.VirtualXID,
			&l.Database,
			&l.ApplicationName,
			&l.State,
			&l.Query,
			&dur,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pg_locks row: %w", err)
		}
		if dur.Valid {
			d := dur.Float64
			l.QueryDuration = &d
		}
		locks = append(locks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pg_locks rows: %w", err)
	}
	return locks, nil
}

func (c *Collector) BlockedProcesses(ctx context.Context) ([]Lock, error) {
	locks, err := c.CurrentLocks(ctx)
	if err != nil {
		return nil, err
	}
	return blocked(locks), nil
}

func (c *Collector) LockStats(ctx context.Context) (LockStats, error) {
	locks, err := c.CurrentLocks(ctx)
	if err != nil {
		return LockStats{}, err
	}
	return lockStats(locks), nil
}

// LongLocks returns granted locks whose query has run longer than threshold.
func (c *Collector) LongLocks(ctx context.Context, threshold time.Duration) ([]Lock, error) {
	locks, err := c.CurrentLocks(ctx)
	if err != nil {
		return nil, err
	}
	return longLocks(locks, threshold), nil
}

func (c *Collector) BlockingPairs(ctx context.Context) ([]BlockingPair, error) {
	rows, err := c.db.QueryContext(ctx, blockingPairsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocking locks: %w", err)
	}
	defer rows.Close()

	var pairs []BlockingPair
	for rows.Next() {
		var p BlockingPair
		if err := rows.Scan(&p.WaitingPID, &p.WaitingQuery, &p.WaitingState,
			&p.BlockingPID, &p.BlockingQuery, &p.BlockingState); err != nil {
			return nil, fmt.Errorf("failed to scan blocking lock row: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blocking lock rows: %w", err)
	}
	return pairs, nil
}

// CollectLocks reads the lock table once and derives every lock view from it.
func (c *Collector) CollectLocks(ctx context.Context) (LockReport, error) {
	locks, err := c.CurrentLocks(ctx)
	if err != nil {
		return LockReport{}, err
	}
	pairs, err := c.BlockingPairs(ctx)
	if err != nil {
		return LockReport{}, err
	}
	return LockReport{
		Stats:     lockStats(locks),
		Blocked:   blocked(locks),
		LongLocks: longLocks(locks, DefaultLongLockThreshold),
		Deadlocks: pairs,
	}, nil
}

func blocked(locks []Lock) []Lock {
	var out []Lock
	for _, l := range locks {
		if !l.Granted {
			out = append(out, l)
		}
	}
	return out
}

func lockStats(locks []Lock) LockStats {
	waiting := blocked(locks)
	tables := make(map[string]int)
	for _, l := range waiting {
		tables[l.Relation]++
	}
	return LockStats{
		TotalLocks:    len(locks),
		BlockedCount:  len(waiting),
		BlockedTables: tables,
	}
}

func longLocks(locks []Lock, threshold time.Duration) []Lock {
	var out []Lock
	for _, l := range locks {
		if l.Granted && l.QueryDuration != nil && *l.QueryDuration > threshold.Seconds() {
			out = append(out, l)
		}
	}
	return out
}
