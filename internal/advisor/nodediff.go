package advisor

import (
	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/plan"
)

type ChangeType int

const (
	NoChange    ChangeType = 0
	Modified    ChangeType = 1
	Added       ChangeType = 2
	Removed     ChangeType = 3
	TypeChanged ChangeType = 4
)

func (c ChangeType) String() string {
	switch c {
	case Modified:
		return "modified"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case TypeChanged:
		return "type_changed"
	default:
		return "no_change"
	}
}

func (c ChangeType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// NodeDelta is the change of one plan node between two plans. Nodes are
// paired by position among their siblings.
type NodeDelta struct {
	NodeType   string     `json:"node_type"`
	Relation   string     `json:"relation,omitempty"`
	ChangeType ChangeType `json:"change"`

	OldNodeType string `json:"old_node_type,omitempty"`
	NewNodeType string `json:"new_node_type,omitempty"`

	Before metrics.Snapshot `json:"before,omitempty"`
	After  metrics.Snapshot `json:"after,omitempty"`

	CostDir Direction `json:"cost"`
	TimeDir Direction `json:"time"`

	OldFilter    string `json:"old_filter,omitempty"`
	NewFilter    string `json:"new_filter,omitempty"`
	OldIndexCond string `json:"old_index_cond,omitempty"`
	NewIndexCond string `json:"new_index_cond,omitempty"`
	OldIndexName string `json:"old_index_name,omitempty"`
	NewIndexName string `json:"new_index_name,omitempty"`

	Children []NodeDelta `json:"children,omitempty"`
}

// PlanDiff is a node-by-node diff of two plans with per-kind change counts.
type PlanDiff struct {
	Root NodeDelta `json:"root"`

	Added       int `json:"added"`
	Removed     int `json:"removed"`
	Modified    int `json:"modified"`
	TypeChanged int `json:"type_changed"`
}

func (d PlanDiff) Changes() int {
	return d.Added + d.Removed + d.Modified + d.TypeChanged
}

// DiffPlans walks both trees in parallel. Cost and time changes below
// thresholdPct percent do not count as modifications.
func DiffPlans(before, after *plan.PlanNode, thresholdPct float64) PlanDiff {
	d := differ{threshold: thresholdPct}
	diff := PlanDiff{Root: d.diffNodes(before, after)}
	countChanges(&diff.Root, &diff)
	return diff
}

func countChanges(delta *NodeDelta, diff *PlanDiff) {
	switch delta.ChangeType {
	case Added:
		diff.Added++
	case Removed:
		diff.Removed++
	case Modified:
		diff.Modified++
	case TypeChanged:
		diff.TypeChanged++
	}

	for i := range delta.Children {
		countChanges(&delta.Children[i], diff)
	}
}

type differ struct {
	threshold float64
}

func (d differ) diffNodes(old, new *plan.PlanNode) NodeDelta {
	delta := NodeDelta{
		Relation: coalesce(old.RelationName, new.RelationName),
		Before:   ExtractMetrics(old),
		After:    ExtractMetrics(new),
	}

	if old.NodeType != new.NodeType {
		delta.ChangeType = TypeChanged
		delta.OldNodeType = old.NodeType
		delta.NewNodeType = new.NodeType
		delta.NodeType = new.NodeType
	} else {
		delta.ChangeType = Modified
		delta.NodeType = old.NodeType
	}

	delta.CostDir = d.direction(delta, metrics.Cost)
	delta.TimeDir = d.direction(delta, metrics.ActualTime)

	if old.Filter != new.Filter {
		delta.OldFilter, delta.NewFilter = old.Filter, new.Filter
	}
	if old.IndexCond != new.IndexCond {
		delta.OldIndexCond, delta.NewIndexCond = old.IndexCond, new.IndexCond
	}
	if old.IndexName != new.IndexName {
		delta.OldIndexName, delta.NewIndexName = old.IndexName, new.IndexName
	}

	if delta.ChangeType == Modified && !d.isSignificant(delta) {
		delta.ChangeType = NoChange
	}

	delta.Children = d.diffChildren(old.Plans, new.Plans)

	return delta
}

func (d differ) diffChildren(oldKids, newKids []plan.PlanNode) []NodeDelta {
	var deltas []NodeDelta

	for i := range max(len(oldKids), len(newKids)) {
		if i >= len(oldKids) {
			deltas = append(deltas, addedNode(&newKids[i]))
			continue
		}
		if i >= len(newKids) {
			deltas = append(deltas, removedNode(&oldKids[i]))
			continue
		}
		deltas = append(deltas, d.diffNodes(&oldKids[i], &newKids[i]))
	}

	return deltas
}

func addedNode(node *plan.PlanNode) NodeDelta {
	delta := NodeDelta{
		ChangeType: Added,
		NodeType:   node.NodeType,
		Relation:   node.RelationName,
		After:      ExtractMetrics(node),
	}

	for i := range node.Plans {
		delta.Children = append(delta.Children, addedNode(&node.Plans[i]))
	}

	return delta
}

func removedNode(node *plan.PlanNode) NodeDelta {
	delta := NodeDelta{
		ChangeType: Removed,
		NodeType:   node.NodeType,
		Relation:   node.RelationName,
		Before:     ExtractMetrics(node),
	}

	for i := range node.Plans {
		delta.Children = append(delta.Children, removedNode(&node.Plans[i]))
	}

	return delta
}

func (d differ) direction(delta NodeDelta, key string) Direction {
	return classify(delta.Before.Or(key), delta.After.Or(key), d.threshold)
}

func (d differ) isSignificant(delta NodeDelta) bool {
	if delta.CostDir != Unchanged || delta.TimeDir != Unchanged {
		return true
	}
	if delta.Before.Or(metrics.ActualRows) != delta.After.Or(metrics.ActualRows) {
		return true
	}
	return delta.OldFilter != delta.NewFilter ||
		delta.OldIndexCond != delta.NewIndexCond ||
		delta.OldIndexName != delta.NewIndexName
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
