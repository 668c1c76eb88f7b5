package objmeta

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when an operation names a node that is
	// not registered in the graph.
	ErrNodeNotFound = errors.New("objmeta: node not found")
	// ErrAlreadyRegistered is returned when adding a node that already
	// belongs to a graph.
	ErrAlreadyRegistered = errors.New("objmeta: node already registered")
	// ErrSelfParent is returned when a node is made its own parent.
	ErrSelfParent = errors.New("objmeta: node cannot be its own parent")
)

// Graph holds the object nodes of one frame. Iteration order is
// insertion order.
//
// Graph is not safe for concurrent use; the pipeline host gives each
// stage exclusive access to a frame for the duration of a call.
type Graph struct {
	nodes  map[NodeID]*ObjectNode
	order  []NodeID
	nextID NodeID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[NodeID]*ObjectNode)}
}

// Len returns the number of registered nodes.
func (g *Graph) Len() int { return len(g.order) }

// Add registers n and assigns its ID. The node must not belong to any
// graph.
func (g *Graph) Add(n *ObjectNode) (NodeID, error) {
	if n == nil {
		return 0, errors.New("objmeta: add nil node")
	}
	if n.graph != nil {
		return 0, fmt.Errorf("%w: id %d", ErrAlreadyRegistered, n.id)
	}
	g.nextID++
	n.id = g.nextID
	n.graph = g
	g.nodes[n.id] = n
	g.order = append(g.order, n.id)
	return n.id, nil
}

// Remove unregisters the node. Children keep their parent key, but
// Parent no longer resolves it. Removing an unknown node is an error.
func (g *Graph) Remove(id NodeID) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("remove %d: %w", id, ErrNodeNotFound)
	}
	delete(g.nodes, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	n.graph = nil
	n.id = 0
	n.parent = 0
	return nil
}

// Get returns the registered node with the given ID.
func (g *Graph) Get(id NodeID) (*ObjectNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Objects returns a snapshot of all nodes in insertion order. Mutating
// the graph afterwards does not change the returned slice.
func (g *Graph) Objects() []*ObjectNode {
	out := make([]*ObjectNode, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Select returns a snapshot of the nodes for which keep returns true,
// in insertion order.
func (g *Graph) Select(keep func(*ObjectNode) bool) []*ObjectNode {
	var out []*ObjectNode
	for _, id := range g.order {
		if n := g.nodes[id]; keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// SetParent links child to parent. Both must already be registered in
// this graph.
func (g *Graph) SetParent(child, parent NodeID) error {
	c, ok := g.nodes[child]
	if !ok {
		return fmt.Errorf("set parent of %d: child %w", child, ErrNodeNotFound)
	}
	if _, ok := g.nodes[parent]; !ok {
		return fmt.Errorf("set parent of %d: parent %d %w", child, parent, ErrNodeNotFound)
	}
	if child == parent {
		return fmt.Errorf("set parent of %d: %w", child, ErrSelfParent)
	}
	c.parent = parent
	return nil
}

// Parent resolves the parent of the given node. It reports false when
// the node has no parent, or its parent is no longer registered.
func (g *Graph) Parent(id NodeID) (*ObjectNode, bool) {
	n, ok := g.nodes[id]
	if !ok || n.parent == 0 {
		return nil, false
	}
	p, ok := g.nodes[n.parent]
	return p, ok
}

// Children returns the registered nodes whose parent is id, in
// insertion order.
func (g *Graph) Children(id NodeID) []*ObjectNode {
	if id == 0 {
		return nil
	}
	return g.Select(func(n *ObjectNode) bool { return n.parent == id })
}
