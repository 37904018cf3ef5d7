package tools

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Filter decides which tools are registered from allowed and denied glob
// patterns matched against tool names.
type Filter struct {
	allowed []glob.Glob
	denied  []glob.Glob
}

// NewFilter compiles the patterns. An empty allowed list allows every tool.
func NewFilter(allowed, denied []string) (*Filter, error) {
	f := &Filter{}

	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern '%s': %w", pattern, err)
		}
		f.allowed = append(f.allowed, g)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		f.denied = append(f.denied, g)
	}

	return f, nil
}

// Allows reports whether the named tool passes the filter. Denied patterns
// take precedence.
func (f *Filter) Allows(name string) bool {
	if f == nil {
		return true
	}
	for _, g := range f.denied {
		if g.Match(name) {
			return false
		}
	}
	if len(f.allowed) == 0 {
		return true
	}
	for _, g := range f.allowed {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Apply returns the tools that pass the filter, in order.
func (f *Filter) Apply(all []Tool) []Tool {
	out := make([]Tool, 0, len(all))
	for _, t := range all {
		if f.Allows(t.Name()) {
			out = append(out, t)
		}
	}
	return out
}
