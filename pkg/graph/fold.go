package graph

import (
	"fmt"

	"github.com/zkmlgo/circuit/pkg/ops"
	"github.com/zkmlgo/circuit/pkg/tensor"
)

// foldConstants replaces every Polynomial node whose inputs are all
// Constant with a single Constant node holding the precomputed result
// (SPEC_FULL.md supplemented feature 2, picked up from original_source/'s
// eager constant propagation pass). Runs in topological order so chains of
// foldable nodes collapse in one pass: folding node A lets any consumer of
// A see a Constant input when its own turn comes.
func foldConstants(g *Graph) error {
	order, err := g.Topo()
	if err != nil {
		return err
	}
	for _, n := range order {
		if n.Op.Kind() != ops.KindPoly || len(n.Inputs) == 0 {
			continue
		}
		ins := make([]tensor.IntTensor, len(n.Inputs))
		allConst := true
		for i, inID := range n.Inputs {
			dep, ok := g.Nodes[inID]
			if !ok || dep.Op.Kind() != ops.KindConstant {
				allConst = false
				break
			}
			ins[i] = dep.Op.(ops.Constant).Values
		}
		if !allConst {
			continue
		}
		out, err := n.Op.Forward(ins)
		if err != nil {
			return fmt.Errorf("graph: constant-fold node %q: %w", n.ID, err)
		}
		n.Op = ops.Constant{Values: out, Scale: n.OutScale}
		n.Inputs = nil
	}
	return nil
}
