// Package rules holds the declarative rule model: named matchers over plan
// nodes that emit a recommendation, a priority and an optional corrective
// action template.
package rules

import (
	"fmt"
	"strings"

	"github.com/jacobarthurs/pgguard/internal/plan"
)

type Priority int

const (
	Low    Priority = 0
	Medium Priority = 1
	High   Priority = 2
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	default:
		return 0, fmt.Errorf("invalid priority %q (want low, medium or high)", s)
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	v, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Rule is immutable once loaded.
type Rule struct {
	Name           string
	Match          Matcher
	Recommendation string
	Priority       Priority
	FixDDL         string
}

func (r Rule) Matches(node *plan.PlanNode) bool {
	return r.Match.Matches(node)
}
