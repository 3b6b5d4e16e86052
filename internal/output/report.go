package output

import (
	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/stats"
)

// Report is everything one analysis produces: the advisory for a plan plus,
// when a database was consulted, server metrics and lock state.
type Report struct {
	Query         string           `json:"query,omitempty"`
	Plan          metrics.Snapshot `json:"plan_metrics"`
	PlanningTime  float64          `json:"planning_time,omitempty"`
	ExecutionTime float64          `json:"execution_time,omitempty"`

	advisor.Advisory

	Metrics metrics.Snapshot  `json:"metrics,omitempty"`
	Locks   *stats.LockReport `json:"locks,omitempty"`
}

func NewReport(query string, out plan.ExplainOutput, a advisor.Advisory) Report {
	return Report{
		Query:         query,
		Plan:          advisor.ExtractMetrics(&out.Plan),
		PlanningTime:  out.PlanningTime,
		ExecutionTime: out.ExecutionTime,
		Advisory:      a,
	}
}
