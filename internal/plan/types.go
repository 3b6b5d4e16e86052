package plan

import (
	"encoding/json"
	"strings"
)

// PlanNode is one node of a PostgreSQL EXPLAIN (FORMAT JSON) plan tree.
// Numeric fields are pointers so that a field the engine did not emit stays
// distinguishable from a measured zero. Row and loop counts are floats:
// PostgreSQL 18 reports actual rows as a per-loop average such as 1.50.
type PlanNode struct {
	NodeType           string `json:"Node Type"`
	ParentRelationship string `json:"Parent Relationship,omitempty"`

	// Estimates vs actuals
	StartupCost     *float64 `json:"Startup Cost,omitempty"`
	TotalCost       *float64 `json:"Total Cost,omitempty"`
	PlanRows        *float64 `json:"Plan Rows,omitempty"`
	PlanWidth       *float64 `json:"Plan Width,omitempty"`
	ActualTotalTime *float64 `json:"Actual Total Time,omitempty"`
	ActualRows      *float64 `json:"Actual Rows,omitempty"`
	ActualLoops     *float64 `json:"Actual Loops,omitempty"`

	// Relation/index info
	Schema       string `json:"Schema,omitempty"`
	RelationName string `json:"Relation Name,omitempty"`
	Alias        string `json:"Alias,omitempty"`
	IndexName    string `json:"Index Name,omitempty"`

	// Conditions
	IndexCond string   `json:"Index Cond,omitempty"`
	Filter    string   `json:"Filter,omitempty"`
	HashCond  string   `json:"Hash Cond,omitempty"`
	SortKey   TextList `json:"Sort Key,omitempty"`

	// Children
	Plans []PlanNode `json:"Plans,omitempty"`
}

// ExplainOutput represents the top-level EXPLAIN JSON output from PostgreSQL.
type ExplainOutput struct {
	Plan          PlanNode `json:"Plan"`
	PlanningTime  float64  `json:"Planning Time,omitempty"`
	ExecutionTime float64  `json:"Execution Time,omitempty"`
}

// TextList holds fields PostgreSQL emits as a list of expressions ("Sort Key")
// but that hand-written plans often carry as a single string.
type TextList []string

func (t *TextList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*t = nil
		} else {
			*t = TextList{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

func (t TextList) String() string {
	return strings.Join(t, ", ")
}

// Float returns a pointer to v, for building plans in code.
func Float(v float64) *float64 { return &v }
