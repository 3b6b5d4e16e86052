package advisor

import (
	"context"

	"github.com/jacobarthurs/pgguard/internal/plan"
)

// FixPlanFunc returns the plan the query would get after ddl is applied.
type FixPlanFunc func(ctx context.Context, ddl string) (plan.PlanNode, error)

// MeasureFixes fills MetricsAfter and Improvement for every flag that carries
// a corrective action, comparing against the advisory's root snapshot. A fix
// that cannot be measured records Error on its flag and does not stop the
// others. Flags sharing the same action are measured once.
func MeasureFixes(ctx context.Context, a *Advisory, fixPlan FixPlanFunc) {
	type result struct {
		node plan.PlanNode
		err  error
	}
	seen := make(map[string]result)

	for i := range a.Advice {
		f := &a.Advice[i]
		if f.FixDDL == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			f.Error = err.Error()
			continue
		}

		r, ok := seen[f.FixDDL]
		if !ok {
			r.node, r.err = fixPlan(ctx, f.FixDDL)
			seen[f.FixDDL] = r
		}
		if r.err != nil {
			f.Error = r.err.Error()
			continue
		}

		after := ExtractMetrics(&r.node)
		f.MetricsAfter = after
		f.Improvement = Improvement(f.Metrics, after)
	}
}
