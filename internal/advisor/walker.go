package advisor

import (
	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/rules"
)

// Hit is one rule firing on one node. Only values resolved at match time
// are kept; the node itself is not referenced.
type Hit struct {
	Rule           rules.Rule
	Recommendation string
}

// Walk evaluates every rule against every node of the tree rooted at root,
// visiting nodes in pre-order and rules in slice order at each node.
func Walk(root *plan.PlanNode, rs []rules.Rule) []Hit {
	if root == nil {
		return nil
	}

	var hits []Hit
	stack := []*plan.PlanNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, r := range rs {
			if r.Matches(node) {
				hits = append(hits, Hit{Rule: r, Recommendation: Recommend(r, node)})
			}
		}

		// Push children in reverse so the first child is visited next.
		for i := len(node.Plans) - 1; i >= 0; i-- {
			stack = append(stack, &node.Plans[i])
		}
	}
	return hits
}
