package rules

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"
)

//go:embed rulesets/builtin.yaml
var builtinYAML []byte

var builtin = sync.OnceValues(func() ([]Rule, error) {
	return Parse("builtin.yaml", builtinYAML)
})

// Builtin returns the standard rule set. The embedded file is validated by
// tests, so a parse failure here is a build defect.
func Builtin() []Rule {
	rs, err := builtin()
	if err != nil {
		panic(fmt.Sprintf("builtin rules: %v", err))
	}
	return slices.Clone(rs)
}

// Compose returns the built-in rules (unless withBuiltin is false) followed by
// the rules of every extra file. The result is never nil, so an empty
// composition evaluates nothing rather than falling back to the built-ins.
func Compose(withBuiltin bool, files ...string) ([]Rule, error) {
	rs := []Rule{}
	if withBuiltin {
		rs = Builtin()
	}
	extra, err := LoadFiles(files...)
	if err != nil {
		return nil, err
	}
	return append(rs, extra...), nil
}
