package perf

import (
	"fmt"
	"sync/atomic"
)

// Node is a reference-counted record of how a performance estimate was
// derived. Nodes form a DAG: children are fixed at construction and must
// already exist, so cycles cannot be built. Multiple protocol configurations
// may share a node; it is torn down when its count reaches zero.
type Node struct {
	name     string
	children []*Node
	refs     atomic.Int32
}

// NewNode creates a node holding one creator reference, and takes a
// reference on each child.
func NewNode(name string, children ...*Node) *Node {
	n := &Node{name: name, children: append([]*Node(nil), children...)}
	n.refs.Store(1)
	for _, c := range n.children {
		c.Ref()
	}
	return n
}

// Name returns the diagnostic label.
func (n *Node) Name() string { return n.name }

// Refs returns the current reference count.
func (n *Node) Refs() int { return int(n.refs.Load()) }

// Ref acquires a reference.
func (n *Node) Ref() {
	if n == nil {
		return
	}
	n.refs.Add(1)
}

// Deref releases a reference. Dropping the last reference releases the
// node's hold on its children. Releasing more than was acquired is a
// programming error.
func (n *Node) Deref() {
	if n == nil {
		return
	}
	left := n.refs.Add(-1)
	if left < 0 {
		panic(fmt.Sprintf("perf node %q: reference count underflow", n.name))
	}
	if left == 0 {
		for _, c := range n.children {
			c.Deref()
		}
	}
}

// Report returns a nested diagnostic dump of the attribution graph.
func (n *Node) Report() map[string]any {
	if n == nil {
		return nil
	}
	out := map[string]any{"name": n.name}
	if len(n.children) > 0 {
		kids := make([]any, 0, len(n.children))
		for _, c := range n.children {
			kids = append(kids, c.Report())
		}
		out["sources"] = kids
	}
	return out
}
