package tools

import (
	"context"
	"testing"
)

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(echoTool{"b"}, echoTool{"a"})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	if got := r.Names(); len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("expected registration order [b a], got %v", got)
	}

	tool, ok := r.Get("a")
	if !ok {
		t.Fatal("expected tool a")
	}
	out, _, err := tool.Execute(context.Background(), []byte(`{"text":"x"}`))
	if err != nil || out != "x" {
		t.Errorf("Execute = %q, %v", out, err)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing tool to be absent")
	}

	list := r.List()
	list[0] = nil
	if r.List()[0] == nil {
		t.Error("List should return a copy")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	if _, err := NewRegistry(echoTool{"a"}, echoTool{"a"}); err == nil {
		t.Error("expected duplicate name error")
	}
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	if _, ok := r.Get("a"); ok {
		t.Error("nil registry has no tools")
	}
	if r.List() != nil || r.Names() != nil {
		t.Error("nil registry lists nothing")
	}
}
