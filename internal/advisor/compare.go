package advisor

import (
	"math"

	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/plan"
)

// ExtractMetrics maps a node's fields onto the canonical metric keys. Fields
// the node does not carry are left out.
func ExtractMetrics(node *plan.PlanNode) metrics.Snapshot {
	s := metrics.Snapshot{}
	putFloat(s, metrics.Cost, node.TotalCost)
	putFloat(s, metrics.Rows, node.PlanRows)
	putFloat(s, metrics.Width, node.PlanWidth)
	putFloat(s, metrics.StartupCost, node.StartupCost)
	putFloat(s, metrics.ActualTime, node.ActualTotalTime)
	putFloat(s, metrics.ActualRows, node.ActualRows)
	return s
}

func putFloat(s metrics.Snapshot, key string, v *float64) {
	if v != nil {
		s[key] = *v
	}
}

// comparedKeys are the keys reported in an improvement snapshot.
var comparedKeys = []string{metrics.Cost, metrics.Rows, metrics.ActualTime}

type Comparison struct {
	Before      metrics.Snapshot `json:"before"`
	After       metrics.Snapshot `json:"after"`
	Improvement metrics.Snapshot `json:"improvement"`
}

// Improvement computes before minus after for cost, rows and actual_time.
// A missing value counts as zero, so every compared key is always present.
// Positive values mean after is better.
func Improvement(before, after metrics.Snapshot) metrics.Snapshot {
	out := make(metrics.Snapshot, len(comparedKeys))
	for _, k := range comparedKeys {
		out[k] = before.Or(k) - after.Or(k)
	}
	return out
}

func Compare(before, after metrics.Snapshot) Comparison {
	return Comparison{
		Before:      before,
		After:       after,
		Improvement: Improvement(before, after),
	}
}

// ComparePlans compares the root snapshots of two plans.
func ComparePlans(before, after *plan.PlanNode) Comparison {
	return Compare(ExtractMetrics(before), ExtractMetrics(after))
}

type Direction int

const (
	Unchanged Direction = 0
	Improved  Direction = 1
	Regressed Direction = 2

	SignificanceThresholdPct = 1.0
)

func (d Direction) String() string {
	switch d {
	case Improved:
		return "improved"
	case Regressed:
		return "regressed"
	default:
		return "unchanged"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Direction classifies the change of key, where lower values are better.
// Changes smaller than thresholdPct percent are Unchanged.
func (c Comparison) Direction(key string, thresholdPct float64) Direction {
	return classify(c.Before.Or(key), c.After.Or(key), thresholdPct)
}

func classify(old, new, thresholdPct float64) Direction {
	if math.Abs(PctChange(old, new)) < thresholdPct {
		return Unchanged
	}
	if new < old {
		return Improved
	}
	return Regressed
}

func PctChange(old, new float64) float64 {
	if old == 0 {
		if new == 0 {
			return 0
		}
		return 100
	}
	return ((new - old) / old) * 100
}
