// Package graph implements spec.md §3's computation graph: a set of nodes
// each carrying an operator, its input edges, and its inferred output
// shape/scale, plus the subset of nodes declared graph inputs and outputs.
// Grounded on the teacher's network container (_teacher_ref/math/nn),
// which holds an ordered slice of layers with a Forward walk; here
// generalised to an arbitrary DAG (not just a chain) since spec.md's
// source graphs branch and merge freely.
package graph

import (
	"fmt"

	"github.com/zkmlgo/circuit/pkg/ops"
	"github.com/zkmlgo/circuit/pkg/tensor"
)

// NodeID identifies a node within a Graph. Top-level nodes use the
// loader's source identifier; nodes materialised from a subgraph
// expansion use a deterministic derived id (see DeriveSubgraphNodeID).
type NodeID string

// Node is one computation-graph vertex: an operator together with its
// input edges and inferred output shape/scale (spec.md §4.3).
type Node struct {
	ID       NodeID
	Op       ops.Operator
	Inputs   []NodeID
	OutShape tensor.Shape
	OutScale int
}

// Graph is a DAG of Nodes plus the subset serving as declared inputs and
// outputs. Subgraphs (spec.md's scan-like control flow) are held
// separately, keyed by the node id of the control-flow node that owns
// them, and are themselves Graphs — recursively the same shape.
type Graph struct {
	Nodes     map[NodeID]*Node
	Inputs    []NodeID
	Outputs   []NodeID
	Subgraphs map[NodeID]*Graph
}

// New returns an empty Graph ready for nodes to be added.
func New() *Graph {
	return &Graph{
		Nodes:     make(map[NodeID]*Node),
		Subgraphs: make(map[NodeID]*Graph),
	}
}

// AddNode inserts n, erroring if its id is already present (spec.md §7's
// "duplicate node id" load error).
func (g *Graph) AddNode(n *Node) error {
	if _, exists := g.Nodes[n.ID]; exists {
		return fmt.Errorf("graph: duplicate node id %q", n.ID)
	}
	g.Nodes[n.ID] = n
	return nil
}

// Topo returns the graph's nodes in a topological order (inputs before
// consumers), erroring if the graph contains a cycle or a dangling edge
// (spec.md §7). Ties are broken by NodeID so the order is deterministic
// across runs (spec.md §8 "layout determinism").
func (g *Graph) Topo() ([]*Node, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[NodeID]int, len(g.Nodes))
	order := make([]*Node, 0, len(g.Nodes))

	ids := make([]NodeID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sortNodeIDs(ids)

	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("graph: cycle detected at node %q", id)
		}
		n, ok := g.Nodes[id]
		if !ok {
			return fmt.Errorf("graph: dangling edge to node %q", id)
		}
		state[id] = visiting
		inputs := make([]NodeID, len(n.Inputs))
		copy(inputs, n.Inputs)
		sortNodeIDs(inputs)
		for _, dep := range inputs {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, n)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func sortNodeIDs(ids []NodeID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// Operators returns every node's operator, in map iteration order — only
// suitable for unordered collection (e.g. table.CollectRequired), never
// for anything order-sensitive.
func (g *Graph) Operators() []ops.Operator {
	out := make([]ops.Operator, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, n.Op)
	}
	return out
}
