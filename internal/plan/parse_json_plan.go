package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func ParseJSONPlan(data []byte) ([]ExplainOutput, error) {
	var plans []ExplainOutput
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("invalid EXPLAIN JSON: %w", err)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("empty EXPLAIN output")
	}
	return plans, nil
}

// ParseDocument accepts the full EXPLAIN array, a single {"Plan": ...} entry,
// or a bare plan node object.
func ParseDocument(data []byte) (ExplainOutput, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ExplainOutput{}, fmt.Errorf("empty plan input")
	}

	var out ExplainOutput
	switch trimmed[0] {
	case '[':
		plans, err := ParseJSONPlan(trimmed)
		if err != nil {
			return ExplainOutput{}, err
		}
		out = plans[0]
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return ExplainOutput{}, fmt.Errorf("invalid plan JSON: %w", err)
		}
		if _, ok := fields["Plan"]; ok {
			if err := json.Unmarshal(trimmed, &out); err != nil {
				return ExplainOutput{}, fmt.Errorf("invalid EXPLAIN JSON: %w", err)
			}
		} else if err := json.Unmarshal(trimmed, &out.Plan); err != nil {
			return ExplainOutput{}, fmt.Errorf("invalid plan node: %w", err)
		}
	default:
		return ExplainOutput{}, fmt.Errorf("invalid plan JSON: expected an array or object")
	}

	if out.Plan.NodeType == "" {
		return ExplainOutput{}, fmt.Errorf("plan root has no \"Node Type\"")
	}
	return out, nil
}

// ParsePlan is ParseDocument reduced to the root node.
func ParsePlan(data []byte) (PlanNode, error) {
	out, err := ParseDocument(data)
	if err != nil {
		return PlanNode{}, err
	}
	return out.Plan, nil
}
