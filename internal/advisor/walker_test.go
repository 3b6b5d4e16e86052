package advisor

import (
	"testing"

	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/rules"
)

func TestWalk_PreOrder(t *testing.T) {
	root := plan.PlanNode{
		NodeType: "A",
		Plans: []plan.PlanNode{
			{NodeType: "B", Plans: []plan.PlanNode{{NodeType: "C"}, {NodeType: "D"}}},
			{NodeType: "E"},
		},
	}
	r := rules.Rule{Name: "any", Recommendation: "{node_type}"}

	hits := Walk(&root, []rules.Rule{r})
	var got string
	for _, h := range hits {
		got += h.Recommendation
	}
	if got != "ABCDE" {
		t.Errorf("visit order = %q, want ABCDE", got)
	}
}

func TestWalk_RuleOrderWithinNode(t *testing.T) {
	root := plan.PlanNode{NodeType: "Seq Scan", Plans: []plan.PlanNode{{NodeType: "Seq Scan"}}}
	rs := []rules.Rule{{Name: "one", Recommendation: "1"}, {Name: "two", Recommendation: "2"}}

	hits := Walk(&root, rs)
	var got string
	for _, h := range hits {
		got += h.Rule.Name + " "
	}
	if got != "one two one two " {
		t.Errorf("order = %q", got)
	}
}

func TestWalk_SingleMatchDeepInTree(t *testing.T) {
	leaf := plan.PlanNode{NodeType: "Seq Scan", RelationName: "events", PlanRows: plan.Float(1e6)}
	root := leaf
	for i := 0; i < 200; i++ {
		root = plan.PlanNode{NodeType: "Limit", Plans: []plan.PlanNode{root}}
	}

	r := rules.Rule{
		Name:           "big_scan",
		Match:          rules.Matcher{{Kind: rules.NodeTypeEquals, Value: "Seq Scan"}, {Kind: rules.PlanRowsGreaterThan, Threshold: 1000}},
		Recommendation: "index {node_type}",
	}
	hits := Walk(&root, []rules.Rule{r})
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Recommendation != "index Seq Scan" {
		t.Errorf("Recommendation = %q", hits[0].Recommendation)
	}
}

func TestWalk_NodeTypeInOnMixedTree(t *testing.T) {
	root := sampleTree()
	r := rules.Rule{
		Name:  "joins",
		Match: rules.Matcher{{Kind: rules.NodeTypeIn, Set: []string{"Hash Join", "Hash"}}},
	}
	if n := len(Walk(&root, []rules.Rule{r})); n != 2 {
		t.Errorf("expected 2 hits, got %d", n)
	}
}

func TestWalk_Nil(t *testing.T) {
	if hits := Walk(nil, rules.Builtin()); hits != nil {
		t.Errorf("Walk(nil) = %v", hits)
	}
}
