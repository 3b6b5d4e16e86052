package output

import (
	"fmt"
	"io"

	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/rules"
	"github.com/jacobarthurs/pgguard/internal/stats"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

type textWriter struct {
	w   io.Writer
	err error
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

func (tw *textWriter) heading(title string) {
	tw.printf("%s%s%s%s\n\n", colorBold, colorCyan, title, colorReset)
}

func RenderAdvisoryText(w io.Writer, r Report) error {
	tw := &textWriter{w: w}

	tw.heading("Plan Summary")
	if v, ok := r.Plan.Get(metrics.Cost); ok {
		tw.printf("  Total Cost:     %.2f\n", v)
	}
	if v, ok := r.Plan.Get(metrics.Rows); ok {
		tw.printf("  Plan Rows:      %.0f\n", v)
	}
	if r.ExecutionTime > 0 {
		tw.printf("  Execution Time: %.3f ms\n", r.ExecutionTime)
	}
	if r.PlanningTime > 0 {
		tw.printf("  Planning Time:  %.3f ms\n", r.PlanningTime)
	}
	tw.printf("\n")

	tw.renderAdvice(r.ByPriority(), r.Counts())

	if r.Comparison != nil {
		tw.printf("\n")
		tw.renderComparison(*r.Comparison)
	}
	if len(r.Metrics) > 0 {
		tw.printf("\n")
		tw.renderMetrics(r.Metrics)
	}
	if r.Locks != nil {
		tw.printf("\n")
		tw.renderLocks(*r.Locks)
	}

	return tw.err
}

func (tw *textWriter) renderAdvice(flags []advisor.Flag, counts map[rules.Priority]int) {
	if len(flags) == 0 {
		tw.printf("%s%sNo issues found.%s\n", colorBold, colorGreen, colorReset)
		return
	}

	tw.heading(fmt.Sprintf("Advice (%d high, %d medium, %d low)",
		counts[rules.High], counts[rules.Medium], counts[rules.Low]))

	for i, f := range flags {
		label, color := priorityFormat(f.Priority)
		tw.printf("  %s%-8s%s %s\n", color, label, colorReset, f.Issue)
		tw.printf("  %s→ %s%s\n", colorDim, f.Recommendation, colorReset)
		if f.FixDDL != "" {
			tw.printf("  fix: %s\n", f.FixDDL)
		}
		switch {
		case f.Error != "":
			tw.printf("  %sfix not measured: %s%s\n", colorRed, f.Error, colorReset)
		case f.MetricsAfter != nil:
			c := advisor.Compare(f.Metrics, f.MetricsAfter)
			tw.printf("  after fix: cost %s\n",
				formatDelta(c.Before.Or(metrics.Cost), c.After.Or(metrics.Cost), c.Direction(metrics.Cost, advisor.SignificanceThresholdPct), "%.2f"))
		}
		if i < len(flags)-1 {
			tw.printf("\n")
		}
	}
}

func priorityFormat(p rules.Priority) (string, string) {
	switch p {
	case rules.High:
		return "HIGH", colorRed
	case rules.Medium:
		return "MEDIUM", colorYellow
	default:
		return "LOW", colorCyan
	}
}

var comparisonRows = []struct {
	key, label, format string
}{
	{metrics.Cost, "Cost:          ", "%.2f"},
	{metrics.Rows, "Rows:          ", "%.0f"},
	{metrics.ActualTime, "Actual Time:   ", "%.3f ms"},
}

// RenderComparisonText writes a before/after comparison with a verdict.
func RenderComparisonText(w io.Writer, c advisor.Comparison) error {
	tw := &textWriter{w: w}
	tw.renderComparison(c)
	return tw.err
}

func (tw *textWriter) renderComparison(c advisor.Comparison) {
	tw.heading("Comparison")

	var improved, regressed int
	for _, row := range comparisonRows {
		dir := c.Direction(row.key, advisor.SignificanceThresholdPct)
		tw.printf("  %s %s\n", row.label, formatDelta(c.Before.Or(row.key), c.After.Or(row.key), dir, row.format))
		switch dir {
		case advisor.Improved:
			improved++
		case advisor.Regressed:
			regressed++
		}
	}

	switch {
	case improved > 0 && regressed == 0:
		tw.printf("\n%sVerdict: alternative is faster%s\n", colorGreen, colorReset)
	case regressed > 0 && improved == 0:
		tw.printf("\n%sVerdict: alternative is slower%s\n", colorRed, colorReset)
	case improved > 0:
		tw.printf("\n%sVerdict: mixed results%s\n", colorYellow, colorReset)
	default:
		tw.printf("\nVerdict: no significant change\n")
	}
}

func (tw *textWriter) renderMetrics(s metrics.Snapshot) {
	tw.heading("Server Metrics")
	for _, k := range s.Ordered() {
		tw.printf("  %-20s %s\n", k+":", formatValue(s[k]))
	}
}

func (tw *textWriter) renderLocks(l stats.LockReport) {
	tw.heading("Locks")
	tw.printf("  Total:      %d\n", l.Stats.TotalLocks)

	color := ""
	if l.Stats.BlockedCount > 0 {
		color = colorRed
	}
	tw.printf("  Blocked:    %s%d%s\n", color, l.Stats.BlockedCount, colorReset)
	tw.printf("  Long:       %d\n", len(l.LongLocks))
	tw.printf("  Conflicts:  %d\n", len(l.Deadlocks))

	for _, p := range l.Deadlocks {
		tw.printf("  %spid %d waits on pid %d%s\n", colorYellow, p.WaitingPID, p.BlockingPID, colorReset)
	}
}

func formatDelta(oldVal, newVal float64, dir advisor.Direction, fmtStr string) string {
	color := dirColor(dir)
	arrow := dirArrow(dir)
	oldStr := fmt.Sprintf(fmtStr, oldVal)
	newStr := fmt.Sprintf(fmtStr, newVal)
	return fmt.Sprintf("%s → %s%s %s (%+.1f%%)%s", oldStr, color, newStr, arrow, advisor.PctChange(oldVal, newVal), colorReset)
}

func dirColor(d advisor.Direction) string {
	switch d {
	case advisor.Improved:
		return colorGreen
	case advisor.Regressed:
		return colorRed
	default:
		return ""
	}
}

func dirArrow(d advisor.Direction) string {
	switch d {
	case advisor.Improved:
		return "↓"
	case advisor.Regressed:
		return "↑"
	default:
		return ""
	}
}

// formatValue drops the fraction of whole numbers.
func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.4f", v)
}
