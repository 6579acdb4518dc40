package layout

import (
	"github.com/zkmlgo/circuit/internal/logger"
	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/field"
	"github.com/zkmlgo/circuit/pkg/graph"
	"github.com/zkmlgo/circuit/pkg/valtensor"
)

// dummyCell is the Cell a DummyRegion hands back: it carries no real
// backend handle, only the column/offset coordinates needed to satisfy
// later ConstrainEqual calls.
type dummyCell struct {
	col backend.ColumnID
	row int
}

func (c dummyCell) Column() backend.ColumnID { return c.col }
func (c dummyCell) Offset() int              { return c.row }

// DummyRegion satisfies backend.Region without touching any real
// constraint system: every assignment is accepted unconditionally. Used
// for the dummy-layout sizing pass (spec.md §8's "dummy/real parity"
// property — the same node sequence must claim the same number of rows
// whether run against a real or a dummy backend).
type DummyRegion struct{ nextCol int }

func (r *DummyRegion) AssignAdvice(col backend.ColumnID, offset int, value field.Elem) (backend.Cell, error) {
	return dummyCell{col: col, row: offset}, nil
}

func (r *DummyRegion) AssignFixed(col backend.ColumnID, offset int, value field.Elem) error {
	return nil
}

func (r *DummyRegion) ConstrainEqual(a, b backend.Cell) error { return nil }

// DummyGateConfig satisfies backend.GateConfig by assigning a cell in its
// single column Col at the caller's offset, claiming exactly one row per call like
// any real base gate would.
type DummyGateConfig struct{ Col backend.ColumnID }

func (g DummyGateConfig) Apply(region backend.Region, offset int, opName string, ins []backend.Cell) (backend.Cell, error) {
	return region.AssignAdvice(g.Col, offset, field.Elem{})
}

// NewDummyColumnAllocator allocates a fresh lookup column pair from an
// ever-incrementing counter, matching the real loader's column allocation
// strategy closely enough that a dummy run and a real run claim the same
// column count.
func NewDummyColumnAllocator() func() backend.LookupColumns {
	next := backend.ColumnID(0)
	return func() backend.LookupColumns {
		in, out := next, next+1
		next += 2
		return backend.LookupColumns{Input: in, Output: out}
	}
}

// CountConstraints runs a full dummy layout of g — binding every
// declared input to a zero-valued placeholder of its declared shape and
// scale — and returns the number of rows claimed, for ParameterBlock's
// num_constraints sizing (spec.md §3).
func CountConstraints(g *graph.Graph, scale int) (int, error) {
	region := &DummyRegion{}
	cfg := DummyGateConfig{Col: backend.ColumnID(0)}
	e := NewEngine(g, cfg, region, NewDummyColumnAllocator())
	if err := e.LayoutTables(); err != nil {
		return 0, err
	}
	for _, id := range g.Inputs {
		n, ok := g.Nodes[id]
		if !ok {
			continue
		}
		vt, err := valtensor.NewKnown(make([]field.Elem, n.OutShape.Size()), n.OutShape, n.OutScale)
		if err != nil {
			return 0, err
		}
		e.Bind(id, vt)
	}
	if _, err := e.Run(); err != nil {
		return 0, err
	}
	for _, w := range e.BudgetWarnings(scale) {
		ev := logger.TableEvent(logger.Log.Warn(), w.Bits, scale).Str(logger.FieldOp, w.Op).
			Str("params", w.ParamSignature).Str("max_observed", w.MaxObserved.String()).
			Int("recommended_bits", w.RecommendedBits).Int("recommended_scale", w.RecommendedScale)
		ev.Msg("lookup bit budget exceeded")
	}
	return e.Offset(), nil
}
