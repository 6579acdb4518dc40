// Package layout implements spec.md §4.5's layout engine: the topological
// walk that threads a single (region, offset) pair through every graph
// node's Layout call, installs lookup tables ahead of the nodes that need
// them, and produces the witness assignment (results: node id -> ValTensor).
// Grounded on the teacher's network Forward walk
// (_teacher_ref/math/nn.Network.Forward, an ordered loop calling each
// layer's Forward and threading its output to the next layer's input),
// generalised from a linear chain to an arbitrary DAG via graph.Topo.
package layout

import (
	"fmt"

	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/field"
	"github.com/zkmlgo/circuit/pkg/graph"
	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/ops"
	"github.com/zkmlgo/circuit/pkg/table"
	"github.com/zkmlgo/circuit/pkg/valtensor"
)

// budgetDecodeBound is a loose upper bound used only to recover the signed
// integer a lookup's witness field element represents; it is far wider
// than any real fixed-point value so it never itself causes a decode
// failure (spec.md §4.4 bit budgeting just needs the magnitude, not a
// window-checked decode).
var budgetDecodeBound = ints.One().Lsh(120)

// Engine drives one graph's layout against a single backend region.
type Engine struct {
	Graph   *graph.Graph
	Cfg     backend.GateConfig
	Region  backend.Region
	Tables  *table.Manager
	NewCols func() backend.LookupColumns // allocates a fresh (input, output) column pair for a new table

	results map[graph.NodeID]*valtensor.ValTensor
	offset  int
}

// NewEngine constructs a layout engine for g, ready to have its tables
// installed and then run.
func NewEngine(g *graph.Graph, cfg backend.GateConfig, region backend.Region, newCols func() backend.LookupColumns) *Engine {
	return &Engine{
		Graph:   g,
		Cfg:     cfg,
		Region:  region,
		Tables:  table.NewManager(),
		NewCols: newCols,
		results: make(map[graph.NodeID]*valtensor.ValTensor),
	}
}

// LayoutTables installs and assigns every distinct lookup table the
// graph's operators require (spec.md §4.5's "layout_tables" step), before
// any node is laid out.
func (e *Engine) LayoutTables() error {
	required := table.CollectRequired(e.Graph.Operators())
	for _, lk := range required {
		t := e.Tables.Register(lk, e.NewCols)
		if err := t.Assign(e.Region); err != nil {
			if _, dup := err.(*table.AlreadyAssignedError); !dup {
				return err
			}
		}
	}
	return nil
}

// Bind seeds the witness for an Input or public-instance node before Run
// walks the graph (spec.md §4.5 step 2).
func (e *Engine) Bind(id graph.NodeID, v valtensor.ValTensor) {
	e.results[id] = &v
}

// Run walks the graph in topological order, laying out every node not
// already bound by Bind, and returns the fully populated results map.
func (e *Engine) Run() (map[graph.NodeID]*valtensor.ValTensor, error) {
	order, err := e.Graph.Topo()
	if err != nil {
		return nil, err
	}
	for _, n := range order {
		if _, bound := e.results[n.ID]; bound {
			continue
		}
		if n.Op.IsInput() {
			return nil, fmt.Errorf("layout: input node %q has no bound witness", n.ID)
		}

		inputs := make([]valtensor.ValTensor, len(n.Inputs))
		for i, inID := range n.Inputs {
			in, ok := e.results[inID]
			if !ok {
				return nil, fmt.Errorf("layout: node %q depends on unlaid-out node %q", n.ID, inID)
			}
			inputs[i] = *in
		}

		if lk, ok := n.Op.(ops.LookupOp); ok && len(inputs) > 0 {
			observeLookupInputs(e.Tables, lk, inputs[0])
		}

		op := homogenize(n.Op, inputs)
		out, err := op.Layout(e.Cfg, e.Region, inputs, &e.offset)
		if err != nil {
			return nil, fmt.Errorf("layout: node %q: %w", n.ID, err)
		}
		e.results[n.ID] = out
	}
	return e.results, nil
}

// observeLookupInputs decodes v's witness values back to signed integers
// and records them against op's table, feeding spec.md §4.4's bit-budget
// tracking. Values that don't decode within budgetDecodeBound are skipped
// rather than failing layout over what is, at worst, a missed warning.
func observeLookupInputs(tables *table.Manager, op ops.LookupOp, v valtensor.ValTensor) {
	xs := make([]ints.I128, 0, len(v.Values()))
	for _, e := range v.Values() {
		x, ok := field.ToSignedInt(e, budgetDecodeBound)
		if !ok {
			continue
		}
		xs = append(xs, x)
	}
	tables.Observe(op, xs)
}

// BudgetWarnings reports spec.md §7's non-fatal bit-budget recommendations
// observed so far, given the global fixed-point scale the graph was laid
// out at.
func (e *Engine) BudgetWarnings(scale int) []table.BudgetWarning {
	return e.Tables.BudgetWarnings(scale)
}

// Offset reports the number of constraint rows claimed so far.
func (e *Engine) Offset() int { return e.offset }

// CheckOutput asserts the computed output at id matches expected within
// tol, driven through a RangeCheck node so the assertion is itself proven
// rather than checked only client-side (spec.md §4.5's public-output
// binding step).
func (e *Engine) CheckOutput(id graph.NodeID, expected valtensor.ValTensor, tol ops.Tolerance, mode ops.CheckMode) (*valtensor.ValTensor, error) {
	out, ok := e.results[id]
	if !ok {
		return nil, fmt.Errorf("layout: no result for output node %q", id)
	}
	rc := ops.NewRangeCheck(tol, mode)
	resolved := rc.Rescale([]int{out.Scale, expected.Scale}, out.Scale).(ops.RangeCheck)
	return resolved.Layout(e.Cfg, e.Region, []valtensor.ValTensor{*out, expected}, &e.offset)
}

// PackOutput folds the tensor at id into a single scalar via base-weighted
// packing (spec.md §4.5 step 4, exercised when pack_base > 1).
func (e *Engine) PackOutput(id graph.NodeID, base, packScale int) (*valtensor.ValTensor, error) {
	out, ok := e.results[id]
	if !ok {
		return nil, fmt.Errorf("layout: no result for output node %q", id)
	}
	p := ops.Poly{PolyKind: ops.PolyPack, PackBase: base, PackScale: packScale}
	return p.Layout(e.Cfg, e.Region, []valtensor.ValTensor{*out}, &e.offset)
}

// homogenize wraps op in an ops.Rescaled when RequiresHomogeneousInputScales
// names indices whose scales currently differ, bringing every named input
// up to the maximum scale among them (spec.md §4.2).
func homogenize(op ops.Operator, inputs []valtensor.ValTensor) ops.Operator {
	idxs := op.RequiresHomogeneousInputScales()
	if len(idxs) == 0 {
		return op
	}
	maxScale := 0
	for _, i := range idxs {
		if i < len(inputs) && inputs[i].Scale > maxScale {
			maxScale = inputs[i].Scale
		}
	}
	uniform := true
	for _, i := range idxs {
		if i < len(inputs) && inputs[i].Scale != maxScale {
			uniform = false
		}
	}
	if uniform {
		return op
	}

	return ops.NewRescaled(op, multipliersFor(idxs, inputs, maxScale))
}

// multipliersFor returns one multiplier per input: 1 for inputs not named
// by idxs, and the scale-raising multiplier for those that are.
func multipliersFor(idxs []int, inputs []valtensor.ValTensor, maxScale int) []ints.I128 {
	named := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		named[i] = true
	}
	out := make([]ints.I128, len(inputs))
	for i := range inputs {
		if named[i] {
			out[i] = ops.MultiplierForScales(inputs[i].Scale, maxScale)
		} else {
			out[i] = ints.One()
		}
	}
	return out
}
