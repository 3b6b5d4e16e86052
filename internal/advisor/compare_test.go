package advisor

import (
	"testing"

	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/plan"
)

func TestExtractMetrics_OmitsAbsent(t *testing.T) {
	node := &plan.PlanNode{
		NodeType:    "Seq Scan",
		TotalCost:   plan.Float(0),
		PlanRows:    plan.Float(100),
		StartupCost: plan.Float(1.5),
	}

	s := ExtractMetrics(node)
	if v, ok := s[metrics.Cost]; !ok || v != 0 {
		t.Errorf("cost = %v, %v; want explicit 0", v, ok)
	}
	if s[metrics.Rows] != 100 || s[metrics.StartupCost] != 1.5 {
		t.Errorf("snapshot = %v", s)
	}
	for _, k := range []string{metrics.Width, metrics.ActualTime, metrics.ActualRows} {
		if _, ok := s[k]; ok {
			t.Errorf("%s should be absent", k)
		}
	}
}

func TestExtractMetrics_AllFields(t *testing.T) {
	node := &plan.PlanNode{
		TotalCost:       plan.Float(10),
		PlanRows:        plan.Float(20),
		PlanWidth:       plan.Float(30),
		StartupCost:     plan.Float(1),
		ActualTotalTime: plan.Float(2.5),
		ActualRows:      plan.Float(19),
	}
	s := ExtractMetrics(node)
	if len(s) != 6 || s[metrics.Width] != 30 || s[metrics.ActualTime] != 2.5 || s[metrics.ActualRows] != 19 {
		t.Errorf("snapshot = %v", s)
	}
}

func TestImprovement(t *testing.T) {
	before := metrics.Snapshot{metrics.Cost: 100, metrics.Rows: 50}
	after := metrics.Snapshot{metrics.Cost: 40, metrics.Rows: 50}

	imp := Improvement(before, after)
	if imp[metrics.Cost] != 60 {
		t.Errorf("cost = %v, want 60", imp[metrics.Cost])
	}
	if imp[metrics.Rows] != 0 {
		t.Errorf("rows = %v, want 0", imp[metrics.Rows])
	}
	if v, ok := imp[metrics.ActualTime]; !ok || v != 0 {
		t.Errorf("actual_time = %v, %v; want present 0", v, ok)
	}
	if len(imp) != 3 {
		t.Errorf("improvement should carry exactly cost, rows, actual_time: %v", imp)
	}
}

func TestImprovement_MissingAfterCountsAsZero(t *testing.T) {
	before := metrics.Snapshot{metrics.ActualTime: 12.5}
	after := metrics.Snapshot{}

	if got := Improvement(before, after)[metrics.ActualTime]; got != 12.5 {
		t.Errorf("actual_time = %v, want 12.5", got)
	}
}

func TestCompare_KeepsSnapshots(t *testing.T) {
	before := metrics.Snapshot{metrics.Cost: 10, metrics.Width: 8}
	after := metrics.Snapshot{metrics.Cost: 20}

	c := Compare(before, after)
	if c.Before[metrics.Width] != 8 || c.After[metrics.Cost] != 20 {
		t.Errorf("comparison = %+v", c)
	}
	if c.Improvement[metrics.Cost] != -10 {
		t.Errorf("regression should be negative, got %v", c.Improvement[metrics.Cost])
	}
}

func TestComparison_Direction(t *testing.T) {
	c := Compare(
		metrics.Snapshot{metrics.Cost: 100, metrics.Rows: 50, metrics.ActualTime: 10},
		metrics.Snapshot{metrics.Cost: 40, metrics.Rows: 50.2, metrics.ActualTime: 20},
	)

	if d := c.Direction(metrics.Cost, SignificanceThresholdPct); d != Improved {
		t.Errorf("cost direction = %v", d)
	}
	if d := c.Direction(metrics.Rows, SignificanceThresholdPct); d != Unchanged {
		t.Errorf("rows direction = %v", d)
	}
	if d := c.Direction(metrics.ActualTime, SignificanceThresholdPct); d != Regressed {
		t.Errorf("actual_time direction = %v", d)
	}
}

func TestPctChange(t *testing.T) {
	tests := []struct{ old, new, want float64 }{
		{0, 0, 0},
		{0, 5, 100},
		{100, 50, -50},
		{50, 75, 50},
	}
	for _, tt := range tests {
		if got := PctChange(tt.old, tt.new); got != tt.want {
			t.Errorf("PctChange(%v, %v) = %v, want %v", tt.old, tt.new, got, tt.want)
		}
	}
}
