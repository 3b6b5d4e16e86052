package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jacobarthurs/pgguard/internal/plan"
)

// CriterionKind enumerates the match criteria a rule may combine. Adding a
// criterion means adding a kind, a match key and a case in Matches.
type CriterionKind int

const (
	NodeTypeEquals CriterionKind = iota
	NodeTypeIn
	PlanRowsGreaterThan
	TotalCostGreaterThan
	FilterAbsent
)

// Match keys accepted in a rule's match block.
const (
	keyNodeType     = "node_type"
	keyNodeTypeIn   = "node_type_in"
	keyPlanRowsGT   = "plan_rows_gt"
	keyTotalCostGT  = "total_cost_gt"
	keyFilterAbsent = "filter_absent"
)

func (k CriterionKind) String() string {
	switch k {
	case NodeTypeEquals:
		return keyNodeType
	case NodeTypeIn:
		return keyNodeTypeIn
	case PlanRowsGreaterThan:
		return keyPlanRowsGT
	case TotalCostGreaterThan:
		return keyTotalCostGT
	case FilterAbsent:
		return keyFilterAbsent
	default:
		return "unknown"
	}
}

type Criterion struct {
	Kind      CriterionKind
	Value     string
	Set       []string
	Threshold float64
}

func (c Criterion) Matches(node *plan.PlanNode) bool {
	switch c.Kind {
	case NodeTypeEquals:
		return node.NodeType == c.Value
	case NodeTypeIn:
		return slices.Contains(c.Set, node.NodeType)
	case PlanRowsGreaterThan:
		var rows float64
		if node.PlanRows != nil {
			rows = *node.PlanRows
		}
		return rows > c.Threshold
	case TotalCostGreaterThan:
		var cost float64
		if node.TotalCost != nil {
			cost = *node.TotalCost
		}
		return cost > c.Threshold
	case FilterAbsent:
		return node.Filter == ""
	default:
		return false
	}
}

func (c Criterion) String() string {
	switch c.Kind {
	case NodeTypeEquals:
		return fmt.Sprintf("%s = %s", c.Kind, c.Value)
	case NodeTypeIn:
		return fmt.Sprintf("%s in [%s]", c.Kind, strings.Join(c.Set, ", "))
	case PlanRowsGreaterThan, TotalCostGreaterThan:
		return fmt.Sprintf("%s %g", c.Kind, c.Threshold)
	default:
		return c.Kind.String()
	}
}

// Matcher is the conjunction of its criteria. An empty Matcher matches
// every node.
type Matcher []Criterion

func (m Matcher) Matches(node *plan.PlanNode) bool {
	for _, c := range m {
		if !c.Matches(node) {
			return false
		}
	}
	return true
}

func (m Matcher) String() string {
	if len(m) == 0 {
		return "any node"
	}
	parts := make([]string, len(m))
	for i, c := range m {
		parts[i] = c.String()
	}
	return strings.Join(parts, " and ")
}
