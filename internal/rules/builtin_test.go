package rules

import (
	"testing"

	"github.com/jacobarthurs/pgguard/internal/plan"
)

func TestBuiltin_Loads(t *testing.T) {
	rs := Builtin()
	if len(rs) == 0 {
		t.Fatal("builtin rule set is empty")
	}
	seen := map[string]bool{}
	for _, r := range rs {
		if seen[r.Name] {
			t.Errorf("duplicate builtin rule %q", r.Name)
		}
		seen[r.Name] = true
	}
	if !seen["seq_scan_large_table"] {
		t.Error("seq_scan_large_table missing from builtin rules")
	}
}

func TestBuiltin_ReturnsCopy(t *testing.T) {
	rs := Builtin()
	rs[0].Name = "mutated"
	if Builtin()[0].Name == "mutated" {
		t.Error("Builtin must not expose its backing slice")
	}
}

func TestBuiltin_SeqScanLargeTable(t *testing.T) {
	var rule Rule
	for _, r := range Builtin() {
		if r.Name == "seq_scan_large_table" {
			rule = r
		}
	}

	big := plan.PlanNode{NodeType: "Seq Scan", RelationName: "users", PlanRows: plan.Float(50000), Filter: "(age > 30)"}
	if !rule.Matches(&big) {
		t.Error("expected match on large seq scan")
	}
	small := plan.PlanNode{NodeType: "Seq Scan", PlanRows: plan.Float(10)}
	if rule.Matches(&small) {
		t.Error("small seq scan should not match")
	}
	if rule.FixDDL == "" || rule.Priority != High {
		t.Errorf("unexpected rule definition: %+v", rule)
	}
}

func TestCompose(t *testing.T) {
	dir := t.TempDir()
	extra := writeFile(t, dir, "extra.yaml", "- name: extra\n  recommendation: r\n  priority: low\n")

	with, err := Compose(true, extra)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(with) != len(Builtin())+1 || with[len(with)-1].Name != "extra" {
		t.Errorf("extra rules should follow builtin ones: %d rules", len(with))
	}

	without, err := Compose(false, extra)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(without) != 1 {
		t.Errorf("expected only the extra rule, got %d", len(without))
	}
}

func TestCompose_EmptyIsNotNil(t *testing.T) {
	rs, err := Compose(false)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if rs == nil || len(rs) != 0 {
		t.Errorf("Compose(false) = %v, want empty non-nil slice", rs)
	}
}
