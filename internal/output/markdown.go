package output

import (
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/metrics"
)

// RenderAdvisoryMarkdown writes r as a Markdown guard report suitable for a
// pull request comment.
func RenderAdvisoryMarkdown(w io.Writer, r Report) error {
	tw := &textWriter{w: w}

	tw.printf("# pgguard report\n\n")
	if r.Query != "" {
		tw.printf("```sql\n%s\n```\n\n", strings.TrimSpace(r.Query))
	}

	tw.printf("## Advice\n\n")
	flags := r.ByPriority()
	if len(flags) == 0 {
		tw.printf("_No issues found._\n")
	} else {
		tw.printf("| Priority | Issue | Recommendation | Fix |\n")
		tw.printf("|---|---|---|---|\n")
		for _, f := range flags {
			fix := ""
			if f.FixDDL != "" {
				fix = "`" + cell(f.FixDDL) + "`"
			}
			tw.printf("| %s | %s | %s | %s |\n", f.Priority, cell(f.Issue), cell(f.Recommendation), fix)
		}
	}

	if r.Comparison != nil {
		tw.printf("\n")
		tw.comparisonTable(*r.Comparison)
	}

	tw.printf("\n## Metrics\n\n")
	tw.metricsTable(r.Plan.Merge(r.Metrics))

	if r.Locks != nil {
		l := r.Locks
		tw.printf("\n## Locks\n\n")
		tw.printf("- Total locks: %d\n", l.Stats.TotalLocks)
		tw.printf("- Blocked processes: %d\n", l.Stats.BlockedCount)
		tw.printf("- Long-running locks: %d\n", len(l.LongLocks))
		for table, n := range sortedCounts(l.Stats.BlockedTables) {
			tw.printf("- Blocked on `%s`: %d\n", table, n)
		}
		for _, p := range l.Deadlocks {
			tw.printf("- pid %d waits on pid %d\n", p.WaitingPID, p.BlockingPID)
		}
	}

	return tw.err
}

func RenderComparisonMarkdown(w io.Writer, c advisor.Comparison) error {
	tw := &textWriter{w: w}
	tw.comparisonTable(c)
	return tw.err
}

func (tw *textWriter) comparisonTable(c advisor.Comparison) {
	tw.printf("## Comparison\n\n")
	tw.printf("| Metric | Before | After | Improvement | Change |\n")
	tw.printf("|---|---|---|---|---|\n")
	for _, row := range comparisonRows {
		tw.printf("| %s | %s | %s | %s | %s |\n", row.key,
			formatValue(c.Before.Or(row.key)),
			formatValue(c.After.Or(row.key)),
			formatValue(c.Improvement.Or(row.key)),
			c.Direction(row.key, advisor.SignificanceThresholdPct))
	}
}

func (tw *textWriter) metricsTable(s metrics.Snapshot) {
	keys := s.Ordered()
	if len(keys) == 0 {
		tw.printf("_None collected._\n")
		return
	}
	tw.printf("| Metric | Value |\n")
	tw.printf("|---|---|\n")
	for _, k := range keys {
		tw.printf("| %s | %s |\n", k, formatValue(s[k]))
	}
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func sortedCounts(m map[string]int) func(yield func(string, int) bool) {
	return func(yield func(string, int) bool) {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
