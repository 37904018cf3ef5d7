package tools

import "fmt"

// Registry is an immutable, ordered set of tools keyed by name. A new
// Registry is built whenever the tool set changes.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry builds a Registry. Duplicate names are an error.
func NewRegistry(list ...Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]Tool, len(list))}
	for _, t := range list {
		if _, dup := r.byName[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name())
		}
		r.byName[t.Name()] = t
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.byName[name]
	return t, ok
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	if r == nil {
		return nil
	}
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns the registered tool names in order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}
