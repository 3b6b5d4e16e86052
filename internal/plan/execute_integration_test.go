//go:build integration

package plan

import (
	"context"
	"testing"
	"time"

	"github.com/jacobarthurs/pgguard/internal/testutil"
)

func TestExplain_Integration(t *testing.T) {
	connStr := testutil.SetupPostgres(t)
	ex := &Explainer{ConnStr: connStr, Timeout: 30 * time.Second}
	ctx := context.Background()

	out, err := ex.Explain(ctx, "SELECT * FROM users WHERE age > 30", DefaultOptions())
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if out.Plan.NodeType != "Seq Scan" {
		t.Errorf("NodeType = %q, want Seq Scan", out.Plan.NodeType)
	}
	if out.Plan.ActualTotalTime == nil {
		t.Error("ANALYZE should populate Actual Total Time")
	}
	if out.Plan.Filter == "" {
		t.Error("expected a Filter on the scan")
	}
}

func TestExplainWithFix_Integration(t *testing.T) {
	connStr := testutil.SetupPostgres(t)
	ex := &Explainer{ConnStr: connStr, Timeout: 30 * time.Second}
	ctx := context.Background()
	query := "SELECT * FROM users WHERE email = 'user42@example.com'"

	before, err := ex.Explain(ctx, query, Options{})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	after, err := ex.ExplainWithFix(ctx, query, "CREATE INDEX ON users (email)", Options{})
	if err != nil {
		t.Fatalf("ExplainWithFix: %v", err)
	}
	if *after.Plan.TotalCost >= *before.Plan.TotalCost {
		t.Errorf("index should lower cost: before %.2f after %.2f", *before.Plan.TotalCost, *after.Plan.TotalCost)
	}

	// The index must not survive the rolled-back transaction.
	again, err := ex.Explain(ctx, query, Options{})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if again.Plan.NodeType != before.Plan.NodeType {
		t.Errorf("plan changed after rollback: %q -> %q", before.Plan.NodeType, again.Plan.NodeType)
	}
}

func TestExplainWithSettings_Integration(t *testing.T) {
	connStr := testutil.SetupPostgres(t)
	ex := &Explainer{ConnStr: connStr}

	b, a, err := ex.ExplainWithSettings(context.Background(),
		"SELECT * FROM orders o JOIN users u ON u.id = o.user_id",
		map[string]string{"enable_hashjoin": "on"},
		map[string]string{"enable_hashjoin": "off"},
		Options{})
	if err != nil {
		t.Fatalf("ExplainWithSettings: %v", err)
	}
	if b.Plan.NodeType == a.Plan.NodeType && b.Plan.NodeType == "Hash Join" {
		t.Error("disabling hash joins should change the join strategy")
	}
}
