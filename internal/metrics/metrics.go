// Package metrics defines the canonical metric key set shared by plan
// snapshots, server statistics and comparisons.
package metrics

import "slices"

const (
	Cost        = "cost"
	Rows        = "rows"
	Width       = "width"
	StartupCost = "startup_cost"
	ActualTime  = "actual_time"
	ActualRows  = "actual_rows"

	CacheHitRatio     = "cache_hit_ratio"
	IndexUsage        = "index_usage"
	WaitTime          = "wait_time"
	DiskIORead        = "disk_io_read"
	DiskIOWrite       = "disk_io_write"
	DatabaseSize      = "database_size"
	DeadlockCount     = "deadlock_count"
	Uptime            = "uptime"
	ActiveConnections = "active_connections"
	LockContention    = "lock_contention"
	ReplicationLag    = "replication_lag"
)

var keys = []string{
	Cost, Rows, Width, StartupCost, ActualTime, ActualRows,
	CacheHitRatio, IndexUsage, WaitTime, DiskIORead, DiskIOWrite,
	DatabaseSize, DeadlockCount, Uptime, ActiveConnections,
	LockContention, ReplicationLag,
}

// Keys returns every supported metric key in canonical order.
func Keys() []string {
	return slices.Clone(keys)
}

// Known reports whether key belongs to the canonical set.
func Known(key string) bool {
	return slices.Contains(keys, key)
}

// Snapshot maps metric keys to values. A key that could not be measured is
// absent; it is never stored as zero.
type Snapshot map[string]float64

// New copies the known keys of values into a Snapshot and drops the rest.
func New(values map[string]float64) Snapshot {
	s := make(Snapshot, len(values))
	for k, v := range values {
		if Known(k) {
			s[k] = v
		}
	}
	return s
}

func (s Snapshot) Get(key string) (float64, bool) {
	v, ok := s[key]
	return v, ok
}

// Or returns the value for key, or 0 when it is absent.
func (s Snapshot) Or(key string) float64 {
	return s[key]
}

// Merge returns a new snapshot holding s overlaid with other.
func (s Snapshot) Merge(other Snapshot) Snapshot {
	out := make(Snapshot, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Ordered returns the present keys of s in canonical order.
func (s Snapshot) Ordered() []string {
	var out []string
	for _, k := range keys {
		if _, ok := s[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
