// Package advisor turns a plan tree and a rule set into an advisory: one flag
// per rule match, each carrying a recommendation, a priority, plan metrics and
// an optional corrective action.
package advisor

import (
	"sort"

	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/rules"
)

type Flag struct {
	Issue          string           `json:"issue"`
	Recommendation string           `json:"recommendation"`
	Priority       rules.Priority   `json:"priority"`
	Metrics        metrics.Snapshot `json:"metrics"`
	FixDDL         string           `json:"fix_ddl,omitempty"`

	// Set by MeasureFixes.
	MetricsAfter metrics.Snapshot `json:"metrics_after,omitempty"`
	Improvement  metrics.Snapshot `json:"improvement,omitempty"`
	Error        string           `json:"error,omitempty"`
}

type Advisory struct {
	Advice     []Flag      `json:"advice"`
	Comparison *Comparison `json:"comparison"`
}

// Build produces the advisory for root. A nil rule slice selects the built-in
// rules; an empty non-nil slice evaluates nothing. When alt is non-nil the
// advisory also compares root against it.
//
// Every flag reports the metrics and placeholder values of root, not of the
// node the rule matched.
func Build(root *plan.PlanNode, rs []rules.Rule, alt *plan.PlanNode) Advisory {
	if rs == nil {
		rs = rules.Builtin()
	}

	snapshot := ExtractMetrics(root)
	hits := Walk(root, rs)

	advice := make([]Flag, 0, len(hits))
	for _, h := range hits {
		advice = append(advice, Flag{
			Issue:          h.Rule.Name,
			Recommendation: h.Recommendation,
			Priority:       h.Rule.Priority,
			Metrics:        snapshot,
			FixDDL:         FillTemplate(h.Rule.FixDDL, root),
		})
	}

	a := Advisory{Advice: advice}
	if alt != nil {
		c := ComparePlans(root, alt)
		a.Comparison = &c
	}
	return a
}

// HasPriority reports whether any flag is at least p.
func (a Advisory) HasPriority(p rules.Priority) bool {
	for _, f := range a.Advice {
		if f.Priority >= p {
			return true
		}
	}
	return false
}

// Counts returns the number of flags per priority.
func (a Advisory) Counts() map[rules.Priority]int {
	counts := make(map[rules.Priority]int)
	for _, f := range a.Advice {
		counts[f.Priority]++
	}
	return counts
}

// ByPriority returns the flags ordered high to low, keeping match order
// within a priority.
func (a Advisory) ByPriority() []Flag {
	out := make([]Flag, len(a.Advice))
	copy(out, a.Advice)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}
