package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/rules"
	"github.com/jacobarthurs/pgguard/internal/stats"
)

func sampleReport() Report {
	out := plan.ExplainOutput{
		Plan: plan.PlanNode{
			NodeType:     "Seq Scan",
			RelationName: "orders",
			TotalCost:    plan.Float(1200),
			PlanRows:     plan.Float(50000),
		},
		ExecutionTime: 12.5,
	}
	a := advisor.Build(&out.Plan, nil, &plan.PlanNode{NodeType: "Index Scan", TotalCost: plan.Float(8), PlanRows: plan.Float(1)})
	return NewReport("SELECT * FROM orders", out, a)
}

func TestRenderAdvisoryText(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderAdvisoryText(&buf, sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := buf.String()

	for _, want := range []string{
		"Plan Summary",
		"Total Cost:     1200.00",
		"Execution Time: 12.500 ms",
		"HIGH",
		"seq_scan_large_table",
		"fix: CREATE INDEX ON orders (col1);",
		"Comparison",
		"Verdict: alternative is faster",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRenderAdvisoryText_NoIssues(t *testing.T) {
	r := NewReport("", plan.ExplainOutput{Plan: plan.PlanNode{NodeType: "Result"}}, advisor.Advisory{})

	var buf bytes.Buffer
	if err := RenderAdvisoryText(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No issues found.") {
		t.Errorf("expected no-issue message, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Comparison") {
		t.Error("comparison rendered without alternative plan")
	}
}

func TestRenderAdvisoryText_HighFirst(t *testing.T) {
	r := Report{Advisory: advisor.Advisory{Advice: []advisor.Flag{
		{Issue: "minor", Priority: rules.Low},
		{Issue: "major", Priority: rules.High},
	}}}

	var buf bytes.Buffer
	if err := RenderAdvisoryText(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := buf.String()
	if strings.Index(got, "major") > strings.Index(got, "minor") {
		t.Errorf("high priority flag not rendered first:\n%s", got)
	}
}

func TestRenderAdvisoryText_MeasuredFix(t *testing.T) {
	r := Report{Advisory: advisor.Advisory{Advice: []advisor.Flag{
		{
			Issue:        "seq_scan_large_table",
			Priority:     rules.High,
			FixDDL:       "CREATE INDEX ON orders (user_id);",
			Metrics:      metrics.Snapshot{metrics.Cost: 100},
			MetricsAfter: metrics.Snapshot{metrics.Cost: 10},
		},
		{Issue: "large_sort", Priority: rules.Medium, FixDDL: "bad", Error: "syntax error"},
	}}}

	var buf bytes.Buffer
	if err := RenderAdvisoryText(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "after fix: cost 100.00") || !strings.Contains(got, "-90.0%") {
		t.Errorf("measured fix not rendered:\n%s", got)
	}
	if !strings.Contains(got, "fix not measured: syntax error") {
		t.Errorf("fix error not rendered:\n%s", got)
	}
}

func TestRenderAdvisoryText_MetricsAndLocks(t *testing.T) {
	r := sampleReport()
	r.Metrics = metrics.Snapshot{metrics.CacheHitRatio: 0.99, metrics.ActiveConnections: 3}
	r.Locks = &stats.LockReport{
		Stats:     stats.LockStats{TotalLocks: 4, BlockedCount: 1},
		Deadlocks: []stats.BlockingPair{{WaitingPID: 10, BlockingPID: 20}},
	}

	var buf bytes.Buffer
	if err := RenderAdvisoryText(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := buf.String()
	for _, want := range []string{"Server Metrics", "cache_hit_ratio:", "0.9900", "active_connections:", "Locks", "pid 10 waits on pid 20"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRenderAdvisoryMarkdown(t *testing.T) {
	r := sampleReport()
	r.Locks = &stats.LockReport{Stats: stats.LockStats{TotalLocks: 2, BlockedTables: map[string]int{"orders": 1}}}

	var buf bytes.Buffer
	if err := RenderAdvisoryMarkdown(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := buf.String()

	for _, want := range []string{
		"# pgguard report",
		"```sql\nSELECT * FROM orders\n```",
		"## Advice",
		"| high | seq_scan_large_table |",
		"`CREATE INDEX ON orders (col1);`",
		"## Comparison",
		"| cost | 1200 | 8 | 1192 | improved |",
		"## Metrics",
		"| rows | 50000 |",
		"## Locks",
		"- Blocked on `orders`: 1",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q:\n%s", want, got)
		}
	}
}

func TestRenderAdvisoryMarkdown_EscapesCells(t *testing.T) {
	r := Report{Advisory: advisor.Advisory{Advice: []advisor.Flag{
		{Issue: "pipes", Recommendation: "use a | b\nor c", Priority: rules.Low},
	}}}

	var buf bytes.Buffer
	if err := RenderAdvisoryMarkdown(&buf, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `use a \| b or c`) {
		t.Errorf("cell not escaped:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "_None collected._") {
		t.Errorf("expected empty metrics marker:\n%s", buf.String())
	}
}

func TestRenderJSON_ReportShape(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderJSON(&buf, sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"query", "plan_metrics", "advice", "comparison"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, buf.String())
		}
	}
	if _, ok := raw["locks"]; ok {
		t.Error("locks should be omitted when not collected")
	}
}

type failWriter struct{ n int }

func (f *failWriter) Write(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errors.New("closed")
	}
	f.n--
	return len(p), nil
}

func TestRenderAdvisoryText_StopsOnWriteError(t *testing.T) {
	w := &failWriter{n: 2}
	if err := RenderAdvisoryText(w, sampleReport()); err == nil {
		t.Fatal("expected write error")
	}
}

func TestRenderComparison(t *testing.T) {
	c := advisor.Compare(
		metrics.Snapshot{metrics.Cost: 100, metrics.Rows: 10, metrics.ActualTime: 5},
		metrics.Snapshot{metrics.Cost: 150, metrics.Rows: 10, metrics.ActualTime: 9},
	)

	var text bytes.Buffer
	if err := RenderComparisonText(&text, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text.String(), "Verdict: alternative is slower") {
		t.Errorf("expected regression verdict:\n%s", text.String())
	}
	if !strings.Contains(text.String(), "+50.0%") {
		t.Errorf("expected cost change:\n%s", text.String())
	}

	var md bytes.Buffer
	if err := RenderComparisonMarkdown(&md, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"| cost | 100 | 150 | -50 | regressed |", "| rows | 10 | 10 | 0 | unchanged |"} {
		if !strings.Contains(md.String(), want) {
			t.Errorf("markdown missing %q:\n%s", want, md.String())
		}
	}
}

func TestRenderNodeDiffText(t *testing.T) {
	before := plan.PlanNode{
		NodeType:  "Limit",
		TotalCost: plan.Float(100),
		Plans: []plan.PlanNode{
			{NodeType: "Seq Scan", RelationName: "users", TotalCost: plan.Float(100), Filter: "(email = 'a')"},
		},
	}
	after := plan.PlanNode{
		NodeType:  "Limit",
		TotalCost: plan.Float(100),
		Plans: []plan.PlanNode{
			{NodeType: "Index Scan", RelationName: "users", TotalCost: plan.Float(8), IndexCond: "(email = 'a')"},
			{NodeType: "Materialize", TotalCost: plan.Float(1)},
		},
	}

	var buf bytes.Buffer
	if err := RenderNodeDiffText(&buf, advisor.DiffPlans(&before, &after, advisor.SignificanceThresholdPct)); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"0 modified, 1 type changed, 1 added, 0 removed",
		"~ Seq Scan → Index Scan",
		"on users",
		"filter removed: (email = 'a')",
		"index cond added: (email = 'a')",
		"+ Materialize",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "~ Limit") {
		t.Errorf("unchanged root should be skipped:\n%s", out)
	}
}

func TestRenderNodeDiff_Identical(t *testing.T) {
	p := plan.PlanNode{NodeType: "Seq Scan", TotalCost: plan.Float(10)}
	diff := advisor.DiffPlans(&p, &p, advisor.SignificanceThresholdPct)

	var text, md bytes.Buffer
	if err := RenderNodeDiffText(&text, diff); err != nil {
		t.Fatalf("text: %v", err)
	}
	if err := RenderNodeDiffMarkdown(&md, diff); err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if !strings.Contains(text.String(), "Plans are identical.") {
		t.Errorf("text:\n%s", text.String())
	}
	if !strings.Contains(md.String(), "_Plans are identical._") {
		t.Errorf("markdown:\n%s", md.String())
	}
}

func TestRenderNodeDiffMarkdown(t *testing.T) {
	before := plan.PlanNode{NodeType: "Sort", TotalCost: plan.Float(900), Plans: []plan.PlanNode{{NodeType: "Seq Scan"}}}
	after := plan.PlanNode{NodeType: "Index Scan", RelationName: "orders", TotalCost: plan.Float(40)}

	var buf bytes.Buffer
	if err := RenderNodeDiffMarkdown(&buf, advisor.DiffPlans(&before, &after, advisor.SignificanceThresholdPct)); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "- **type_changed** `Sort → Index Scan on orders` cost 900 → 40") {
		t.Errorf("missing root line:\n%s", out)
	}
	if !strings.Contains(out, "  - **removed** `Seq Scan`") {
		t.Errorf("missing removed child:\n%s", out)
	}
}
