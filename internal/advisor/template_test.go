package advisor

import (
	"testing"

	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/rules"
)

func TestPlaceholders_FilterColumn(t *testing.T) {
	vars := Placeholders(&plan.PlanNode{NodeType: "Seq Scan", RelationName: "users", Filter: "age > 30"})
	if vars["column"] != "age" || vars["join_column"] != "age" || vars["sort_column"] != "age" {
		t.Errorf("columns = %v", vars)
	}
	if vars["relation"] != "users" || vars["node_type"] != "Seq Scan" {
		t.Errorf("vars = %v", vars)
	}
}

func TestPlaceholders_Defaults(t *testing.T) {
	vars := Placeholders(&plan.PlanNode{})
	if vars["column"] != "col1" || vars["relation"] != "table" {
		t.Errorf("vars = %v", vars)
	}
	if _, ok := vars["node_type"]; ok {
		t.Error("node_type should be absent when the node has no kind")
	}
}

func TestPlaceholders_ConditionPriority(t *testing.T) {
	tests := []struct {
		name string
		node plan.PlanNode
		want string
	}{
		{"index cond first", plan.PlanNode{IndexCond: "(id = 1)", Filter: "(age > 30)"}, "id"},
		{"filter before hash", plan.PlanNode{Filter: "(status = 'x')", HashCond: "(a.b = c.d)"}, "status"},
		{"hash cond", plan.PlanNode{HashCond: "(o.user_id = u.id)"}, "o"},
		{"sort key list", plan.PlanNode{SortKey: plan.TextList{"created_at DESC", "id"}}, "created_at"},
		{"no identifier falls through", plan.PlanNode{IndexCond: "(1 = 1)", Filter: "(x < 2)"}, "x"},
		{"nothing usable", plan.PlanNode{Filter: "(1 > 0)"}, "col1"},
	}

	for _, tt := range tests {
		if got := Placeholders(&tt.node)["column"]; got != tt.want {
			t.Errorf("%s: column = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFillTemplate(t *testing.T) {
	node := &plan.PlanNode{NodeType: "Sort", RelationName: "orders", SortKey: plan.TextList{"created_at"}}

	tests := []struct {
		tmpl string
		want string
	}{
		{"", ""},
		{"CREATE INDEX ON {relation} ({sort_column});", "CREATE INDEX ON orders (created_at);"},
		{"-- {node_type} on {relation}", "-- Sort on orders"},
		{"SELECT '{{literal}}' -- {column}", "SELECT '{literal}' -- created_at"},
		{"no placeholders", "no placeholders"},
	}

	for _, tt := range tests {
		if got := FillTemplate(tt.tmpl, node); got != tt.want {
			t.Errorf("FillTemplate(%q) = %q, want %q", tt.tmpl, got, tt.want)
		}
	}
}

func TestFillTemplate_FailsOpen(t *testing.T) {
	node := &plan.PlanNode{NodeType: "Seq Scan", RelationName: "users"}

	for _, tmpl := range []string{
		"CREATE INDEX ON {relation} ({missing});",
		"CREATE INDEX ON {relation",
		"oops } here",
		"{0}",
		"{}",
	} {
		if got := FillTemplate(tmpl, node); got != tmpl {
			t.Errorf("FillTemplate(%q) = %q, want unchanged", tmpl, got)
		}
	}
}

func TestFillTemplate_NodeTypeMissing(t *testing.T) {
	tmpl := "-- {node_type}"
	if got := FillTemplate(tmpl, &plan.PlanNode{}); got != tmpl {
		t.Errorf("FillTemplate = %q, want unchanged", got)
	}
}

func TestRecommend_ResolvesNodeType(t *testing.T) {
	r := rules.Rule{Recommendation: "{node_type} is slow; check {node_type} inputs"}
	got := Recommend(r, &plan.PlanNode{NodeType: "Hash Join"})
	if got != "Hash Join is slow; check Hash Join inputs" {
		t.Errorf("Recommend = %q", got)
	}
}

func TestRecommend_EscapesMatchFixTemplates(t *testing.T) {
	node := &plan.PlanNode{NodeType: "Sort", RelationName: "orders"}
	text := "Use {{ordering}} on {node_type}"

	rec := Recommend(rules.Rule{Recommendation: text}, node)
	if rec != "Use {ordering} on Sort" {
		t.Errorf("Recommend = %q", rec)
	}
	if fix := FillTemplate(text, node); fix != rec {
		t.Errorf("FillTemplate = %q, Recommend = %q; want the same rendering", fix, rec)
	}
}

func TestRecommend_FailsOpen(t *testing.T) {
	text := "Check {relation} statistics"
	if got := Recommend(rules.Rule{Recommendation: text}, &plan.PlanNode{NodeType: "Seq Scan"}); got != text {
		t.Errorf("Recommend = %q, want unchanged %q", got, text)
	}
}
