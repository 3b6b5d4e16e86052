package advisor

import (
	"regexp"

	"github.com/jacobarthurs/pgguard/internal/plan"
)

const (
	defaultRelation = "table"
	defaultColumn   = "col1"
)

var identifierRe = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)

// Placeholders derives the values available to corrective action templates.
// Column detection takes the first identifier in the first condition that
// contains one, checking Index Cond, Filter, Hash Cond and Sort Key in turn.
// It is a heuristic over free text and never fails.
func Placeholders(node *plan.PlanNode) map[string]string {
	relation := node.RelationName
	if relation == "" {
		relation = defaultRelation
	}

	column := defaultColumn
	for _, cond := range []string{node.IndexCond, node.Filter, node.HashCond, node.SortKey.String()} {
		if cond == "" {
			continue
		}
		if ident := identifierRe.FindString(cond); ident != "" {
			column = ident
			break
		}
	}

	vars := map[string]string{
		"relation":    relation,
		"column":      column,
		"join_column": column,
		"sort_column": column,
	}
	if node.NodeType != "" {
		vars["node_type"] = node.NodeType
	}
	return vars
}
