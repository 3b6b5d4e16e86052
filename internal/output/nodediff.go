package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/metrics"
)

// RenderNodeDiffText writes the node-by-node changes between two plans as an
// indented tree. Unchanged nodes are skipped but their children are not.
func RenderNodeDiffText(w io.Writer, d advisor.PlanDiff) error {
	tw := &textWriter{w: w}
	tw.heading("Node Details")

	if d.Changes() == 0 {
		tw.printf("%s%sPlans are identical.%s\n", colorBold, colorGreen, colorReset)
		return tw.err
	}

	tw.printf("  Changes: %d modified, %d type changed, %d added, %d removed\n\n",
		d.Modified, d.TypeChanged, d.Added, d.Removed)
	tw.renderDelta(d.Root, 0)

	return tw.err
}

func (tw *textWriter) renderDelta(d advisor.NodeDelta, depth int) {
	indent := strings.Repeat("  ", depth+1)

	switch d.ChangeType {
	case advisor.NoChange:
		for _, child := range d.Children {
			tw.renderDelta(child, depth)
		}
		return
	case advisor.Added:
		tw.printf("%s%s+ %s%s%s\n", indent, colorGreen, nodeLabel(d), colorReset, nodeCost(d.After))
	case advisor.Removed:
		tw.printf("%s%s- %s%s%s\n", indent, colorRed, nodeLabel(d), colorReset, nodeCost(d.Before))
	case advisor.TypeChanged:
		tw.printf("%s%s~ %s → %s%s", indent, colorYellow, d.OldNodeType, d.NewNodeType, colorReset)
		if d.Relation != "" {
			tw.printf(" on %s", d.Relation)
		}
		tw.printf("\n")
		tw.renderNodeChanges(indent, d)
	case advisor.Modified:
		tw.printf("%s%s~ %s%s\n", indent, colorYellow, nodeLabel(d), colorReset)
		tw.renderNodeChanges(indent, d)
	}

	for _, child := range d.Children {
		tw.renderDelta(child, depth+1)
	}
}

func (tw *textWriter) renderNodeChanges(indent string, d advisor.NodeDelta) {
	tw.printf("%s  cost: %s\n", indent, formatDelta(d.Before.Or(metrics.Cost), d.After.Or(metrics.Cost), d.CostDir, "%.2f"))
	if _, ok := d.After.Get(metrics.ActualTime); ok {
		tw.printf("%s  time: %s\n", indent, formatDelta(d.Before.Or(metrics.ActualTime), d.After.Or(metrics.ActualTime), d.TimeDir, "%.3f ms"))
	}
	if oldRows, newRows := d.Before.Or(metrics.ActualRows), d.After.Or(metrics.ActualRows); oldRows != newRows {
		tw.printf("%s  rows: %.0f → %.0f (%+.1f%%)\n", indent, oldRows, newRows, advisor.PctChange(oldRows, newRows))
	}
	tw.renderTextChange(indent, "filter", d.OldFilter, d.NewFilter)
	tw.renderTextChange(indent, "index cond", d.OldIndexCond, d.NewIndexCond)
	tw.renderTextChange(indent, "index", d.OldIndexName, d.NewIndexName)
}

func (tw *textWriter) renderTextChange(indent, label, oldVal, newVal string) {
	switch {
	case oldVal == newVal:
	case oldVal == "":
		tw.printf("%s  %s%s added: %s%s\n", indent, colorYellow, label, newVal, colorReset)
	case newVal == "":
		tw.printf("%s  %s%s removed: %s%s\n", indent, colorGreen, label, oldVal, colorReset)
	default:
		tw.printf("%s  %s%s: %s → %s%s\n", indent, colorYellow, label, oldVal, newVal, colorReset)
	}
}

// RenderNodeDiffMarkdown writes the changed nodes as a nested list.
func RenderNodeDiffMarkdown(w io.Writer, d advisor.PlanDiff) error {
	tw := &textWriter{w: w}
	tw.printf("## Node Details\n\n")

	if d.Changes() == 0 {
		tw.printf("_Plans are identical._\n")
		return tw.err
	}

	tw.printf("%d modified, %d type changed, %d added, %d removed\n\n",
		d.Modified, d.TypeChanged, d.Added, d.Removed)
	tw.deltaList(d.Root, 0)

	return tw.err
}

func (tw *textWriter) deltaList(d advisor.NodeDelta, depth int) {
	if d.ChangeType == advisor.NoChange {
		for _, child := range d.Children {
			tw.deltaList(child, depth)
		}
		return
	}

	label := nodeLabel(d)
	if d.ChangeType == advisor.TypeChanged {
		label = d.OldNodeType + " → " + label
	}
	tw.printf("%s- **%s** `%s` cost %s → %s\n", strings.Repeat("  ", depth), d.ChangeType, label,
		formatValue(d.Before.Or(metrics.Cost)), formatValue(d.After.Or(metrics.Cost)))

	for _, child := range d.Children {
		tw.deltaList(child, depth+1)
	}
}

func nodeLabel(d advisor.NodeDelta) string {
	if d.Relation != "" {
		return fmt.Sprintf("%s on %s", d.NodeType, d.Relation)
	}
	return d.NodeType
}

func nodeCost(s metrics.Snapshot) string {
	out := fmt.Sprintf(" (cost=%.2f", s[metrics.Cost])
	if t, ok := s[metrics.ActualTime]; ok && t > 0 {
		out += fmt.Sprintf(" time=%.3fms", t)
	}
	return out + ")"
}
