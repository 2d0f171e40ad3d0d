package perf

import (
	"testing"
)

func TestNodeRefCounting(t *testing.T) {
	n := NewNode("tl:tcp/:7777")
	if n.Refs() != 1 {
		t.Fatalf("fresh node refs = %d, want 1", n.Refs())
	}
	n.Ref()
	n.Ref()
	if n.Refs() != 3 {
		t.Fatalf("refs = %d, want 3", n.Refs())
	}
	n.Deref()
	n.Deref()
	if n.Refs() != 1 {
		t.Fatalf("refs = %d, want 1", n.Refs())
	}
}

func TestNodeReleasesChildrenOnLastDeref(t *testing.T) {
	a := NewNode("tl:mem/local")
	b := NewNode("tl:tcp/:7777")
	min := NewNode("min", a, b)

	// construction took one ref per child
	if a.Refs() != 2 || b.Refs() != 2 {
		t.Fatalf("child refs = %d/%d, want 2/2", a.Refs(), b.Refs())
	}

	min.Deref()
	if a.Refs() != 1 || b.Refs() != 1 {
		t.Fatalf("child refs after parent teardown = %d/%d, want 1/1", a.Refs(), b.Refs())
	}
}

func TestNodeDerefUnderflowPanics(t *testing.T) {
	n := NewNode("x")
	n.Deref()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on refcount underflow")
		}
	}()
	n.Deref()
}

func TestNodeReport(t *testing.T) {
	a := NewNode("tl:mem/local")
	min := NewNode("min", a)
	rep := min.Report()
	if rep["name"] != "min" {
		t.Fatalf("report name = %v", rep["name"])
	}
	kids, ok := rep["sources"].([]any)
	if !ok || len(kids) != 1 {
		t.Fatalf("report sources = %#v", rep["sources"])
	}
}

func TestNilNodeIsSafe(t *testing.T) {
	var n *Node
	n.Ref()
	n.Deref()
	if n.Report() != nil {
		t.Fatalf("nil node report must be nil")
	}
}
