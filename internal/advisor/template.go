package advisor

import (
	"fmt"
	"strings"

	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/rules"
)

// FillTemplate substitutes the node's placeholders into tmpl. An empty
// template yields "". If the template cannot be rendered it is returned
// unchanged.
func FillTemplate(tmpl string, node *plan.PlanNode) string {
	if tmpl == "" {
		return ""
	}
	out, err := render(tmpl, Placeholders(node))
	if err != nil {
		return tmpl
	}
	return out
}

// Recommend resolves {node_type} in the rule's recommendation against the
// matched node, with the same brace escaping as FillTemplate. Text that does
// not render is returned unchanged.
func Recommend(r rules.Rule, node *plan.PlanNode) string {
	out, err := render(r.Recommendation, map[string]string{"node_type": node.NodeType})
	if err != nil {
		return r.Recommendation
	}
	return out
}

// render expands {name} fields from vars. "{{" and "}}" are literal braces.
// A field naming an unknown placeholder, an unterminated field or a stray
// closing brace is an error.
func render(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated placeholder at offset %d", i)
			}
			name := tmpl[i+1 : i+1+end]
			v, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("unknown placeholder %q", name)
			}
			b.WriteString(v)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("single '}' at offset %d", i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
