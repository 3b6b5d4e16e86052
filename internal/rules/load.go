package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfig is matched by every *ConfigError.
var ErrConfig = errors.New("invalid rule configuration")

// ConfigError names the rule-set source and entry that failed to load.
// Index is zero-based; -1 means the document as a whole.
type ConfigError struct {
	Source string
	Index  int
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("%s: %s", e.Source, e.Reason)
	case e.Name != "":
		return fmt.Sprintf("%s: rule #%d (%q): %s", e.Source, e.Index+1, e.Name, e.Reason)
	default:
		return fmt.Sprintf("%s: rule #%d: %s", e.Source, e.Index+1, e.Reason)
	}
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

type ruleEntry struct {
	Name           string    `yaml:"name"`
	Match          yaml.Node `yaml:"match"`
	Recommendation string    `yaml:"recommendation"`
	Priority       string    `yaml:"priority"`
	FixDDL         string    `yaml:"fix_ddl"`
}

// Parse reads a YAML list of rule definitions. Definition order is kept.
// An empty document yields no rules.
func Parse(source string, data []byte) ([]Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Source: source, Index: -1, Reason: err.Error()}
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.SequenceNode {
		return nil, &ConfigError{Source: source, Index: -1, Reason: "expected a list of rules"}
	}

	rules := make([]Rule, 0, len(root.Content))
	for i, item := range root.Content {
		r, err := parseEntry(item)
		if err != nil {
			err.Source = source
			err.Index = i
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func parseEntry(item *yaml.Node) (Rule, *ConfigError) {
	if item.Kind != yaml.MappingNode {
		return Rule{}, &ConfigError{Reason: "entry is not a mapping"}
	}

	var e ruleEntry
	if err := item.Decode(&e); err != nil {
		return Rule{}, &ConfigError{Reason: err.Error()}
	}
	fail := func(format string, args ...any) (Rule, *ConfigError) {
		return Rule{}, &ConfigError{Name: e.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(e.Name) == "" {
		return fail("missing name")
	}
	if e.Recommendation == "" {
		return fail("missing recommendation")
	}
	if e.Priority == "" {
		return fail("missing priority")
	}
	priority, err := ParsePriority(e.Priority)
	if err != nil {
		return fail("%v", err)
	}
	match, err := parseMatch(&e.Match)
	if err != nil {
		return fail("%v", err)
	}

	return Rule{
		Name:           e.Name,
		Match:          match,
		Recommendation: e.Recommendation,
		Priority:       priority,
		FixDDL:         e.FixDDL,
	}, nil
}

func parseMatch(node *yaml.Node) (Matcher, error) {
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("match must be a mapping")
	}

	var m Matcher
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		c, skip, err := parseCriterion(key, val)
		if err != nil {
			return nil, fmt.Errorf("match.%s: %w", key, err)
		}
		if !skip {
			m = append(m, c)
		}
	}
	return m, nil
}

// parseCriterion reports skip for criteria that are present but disabled,
// such as filter_absent: false.
func parseCriterion(key string, val *yaml.Node) (Criterion, bool, error) {
	switch key {
	case keyNodeType:
		var s string
		if err := val.Decode(&s); err != nil {
			return Criterion{}, false, err
		}
		return Criterion{Kind: NodeTypeEquals, Value: s}, false, nil
	case keyNodeTypeIn:
		var set []string
		if err := val.Decode(&set); err != nil {
			return Criterion{}, false, err
		}
		return Criterion{Kind: NodeTypeIn, Set: set}, false, nil
	case keyPlanRowsGT, keyTotalCostGT:
		var f float64
		if err := val.Decode(&f); err != nil {
			return Criterion{}, false, err
		}
		kind := PlanRowsGreaterThan
		if key == keyTotalCostGT {
			kind = TotalCostGreaterThan
		}
		return Criterion{Kind: kind, Threshold: f}, false, nil
	case keyFilterAbsent:
		var b bool
		if err := val.Decode(&b); err != nil {
			return Criterion{}, false, err
		}
		return Criterion{Kind: FilterAbsent}, !b, nil
	default:
		return Criterion{}, false, fmt.Errorf("unknown match key")
	}
}

// LoadFile parses one rule file.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return Parse(path, data)
}

// LoadFiles concatenates the rules of every file in order. Rules with the
// same name are all kept. A directory contributes its files as LoadDir does.
func LoadFiles(paths ...string) ([]Rule, error) {
	var all []Rule
	for _, p := range paths {
		load := LoadFile
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			load = LoadDir
		}
		rs, err := load(p)
		if err != nil {
			return nil, err
		}
		all = append(all, rs...)
	}
	return all, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, in lexical order.
func LoadDir(dir string) ([]Rule, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	return LoadFiles(paths...)
}
