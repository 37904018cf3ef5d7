package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/entrhq/zotbridge/pkg/tools"
)

// catalog is a tool registry with compiled argument schemas. active counts
// the calls dispatched against it.
type catalog struct {
	registry *tools.Registry
	schemas  map[string]*jsonschema.Schema
	active   sync.WaitGroup
}

func newCatalog(reg *tools.Registry) (*catalog, error) {
	c := &catalog{registry: reg, schemas: make(map[string]*jsonschema.Schema)}
	if reg == nil {
		return c, nil
	}
	for _, t := range reg.List() {
		sch, err := compileSchema(t.Name(), t.Schema())
		if err != nil {
			return nil, err
		}
		c.schemas[t.Name()] = sch
	}
	return c, nil
}

func compileSchema(name string, schema map[string]interface{}) (*jsonschema.Schema, error) {
	if schema["type"] != "object" {
		return nil, fmt.Errorf("tool %s: input schema must have type object", name)
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("tool %s: encode schema: %w", name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tool %s: decode schema: %w", name, err)
	}
	loc := "mem:///tools/" + name + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource(loc, doc); err != nil {
		return nil, fmt.Errorf("tool %s: add schema: %w", name, err)
	}
	sch, err := compiler.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("tool %s: compile schema: %w", name, err)
	}
	return sch, nil
}

func (c *catalog) lookup(name string) (tools.Tool, *jsonschema.Schema, bool) {
	t, ok := c.registry.Get(name)
	if !ok {
		return nil, nil, false
	}
	return t, c.schemas[name], true
}

// validate checks args against the tool's schema. Absent arguments are
// validated as an empty object.
func validate(sch *jsonschema.Schema, args json.RawMessage) error {
	if sch == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(trimmed))
	if err != nil {
		return err
	}
	return sch.Validate(inst)
}

func (c *catalog) descriptors() []ToolDescriptor {
	list := c.registry.List()
	out := make([]ToolDescriptor, 0, len(list))
	for _, t := range list {
		out = append(out, ToolDescriptor{Name: t.Name(), Description: t.Description(), InputSchema: t.Schema()})
	}
	return out
}
