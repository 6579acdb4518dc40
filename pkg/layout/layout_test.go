package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/field"
	"github.com/zkmlgo/circuit/pkg/graph"
	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/ops"
	"github.com/zkmlgo/circuit/pkg/tensor"
	"github.com/zkmlgo/circuit/pkg/valtensor"
)

func knownScalar(v int64, scale int) valtensor.ValTensor {
	vt, err := valtensor.NewKnown([]field.Elem{field.FromSignedInt(ints.FromInt64(v))}, tensor.NewShape(1), scale)
	if err != nil {
		panic(err)
	}
	return vt
}

func buildAddGraph() *graph.Graph {
	g := graph.New()
	_ = g.AddNode(&graph.Node{ID: "x", Op: ops.Input{Scale: 4}, OutShape: tensor.NewShape(1), OutScale: 4})
	_ = g.AddNode(&graph.Node{ID: "y", Op: ops.Input{Scale: 4}, OutShape: tensor.NewShape(1), OutScale: 4})
	_ = g.AddNode(&graph.Node{ID: "sum", Op: ops.Poly{PolyKind: ops.PolyAdd}, Inputs: []graph.NodeID{"x", "y"}, OutShape: tensor.NewShape(1), OutScale: 4})
	g.Inputs = []graph.NodeID{"x", "y"}
	g.Outputs = []graph.NodeID{"sum"}
	return g
}

func TestEngine_Run_PropagatesWitness(t *testing.T) {
	g := buildAddGraph()
	region := &DummyRegion{}
	cfg := DummyGateConfig{Col: backend.ColumnID(0)}
	e := NewEngine(g, cfg, region, NewDummyColumnAllocator())
	require.NoError(t, e.LayoutTables())

	e.Bind("x", knownScalar(3, 4))
	e.Bind("y", knownScalar(5, 4))

	results, err := e.Run()
	require.NoError(t, err)
	sum, ok := results["sum"]
	require.True(t, ok)
	assert.True(t, sum.Shape().Equal(tensor.NewShape(1)))
	assert.Greater(t, e.Offset(), 0, "laying out sum must claim at least one row")
}

func TestEngine_Run_UnboundInput_Errors(t *testing.T) {
	g := buildAddGraph()
	region := &DummyRegion{}
	cfg := DummyGateConfig{Col: backend.ColumnID(0)}
	e := NewEngine(g, cfg, region, NewDummyColumnAllocator())
	require.NoError(t, e.LayoutTables())
	e.Bind("x", knownScalar(1, 4))
	// y left unbound
	_, err := e.Run()
	assert.Error(t, err)
}

func TestHomogenize_WrapsRescaledWhenScalesDiffer(t *testing.T) {
	op := ops.Poly{PolyKind: ops.PolyAdd}
	inputs := []valtensor.ValTensor{knownScalar(1, 2), knownScalar(1, 4)}
	wrapped := homogenize(op, inputs)
	_, isRescaled := wrapped.(ops.Rescaled)
	assert.True(t, isRescaled, "differing scales on a homogeneous-required op must be wrapped")
}

func TestHomogenize_NoopWhenScalesMatch(t *testing.T) {
	op := ops.Poly{PolyKind: ops.PolyAdd}
	inputs := []valtensor.ValTensor{knownScalar(1, 4), knownScalar(1, 4)}
	wrapped := homogenize(op, inputs)
	assert.Equal(t, op, wrapped, "matching scales must not wrap")
}

func TestHomogenize_NoopWhenOpDoesNotRequireIt(t *testing.T) {
	op := ops.Poly{PolyKind: ops.PolyMul}
	inputs := []valtensor.ValTensor{knownScalar(1, 2), knownScalar(1, 8)}
	wrapped := homogenize(op, inputs)
	assert.Equal(t, op, wrapped)
}

func TestEngine_LayoutTables_InstallsRequiredLookups(t *testing.T) {
	g := graph.New()
	_ = g.AddNode(&graph.Node{ID: "x", Op: ops.Input{Scale: 4}, OutShape: tensor.NewShape(1), OutScale: 4})
	_ = g.AddNode(&graph.Node{ID: "r", Op: ops.ReLU{Scale: 4}, Inputs: []graph.NodeID{"x"}, OutShape: tensor.NewShape(1), OutScale: 0})
	region := &DummyRegion{}
	cfg := DummyGateConfig{Col: backend.ColumnID(0)}
	e := NewEngine(g, cfg, region, NewDummyColumnAllocator())
	require.NoError(t, e.LayoutTables())
	assert.Len(t, e.Tables.Tables(), 1)
}

func TestEngine_CheckOutput(t *testing.T) {
	g := buildAddGraph()
	region := &DummyRegion{}
	cfg := DummyGateConfig{Col: backend.ColumnID(0)}
	e := NewEngine(g, cfg, region, NewDummyColumnAllocator())
	require.NoError(t, e.LayoutTables())
	e.Bind("x", knownScalar(3, 4))
	e.Bind("y", knownScalar(5, 4))
	_, err := e.Run()
	require.NoError(t, err)

	expected := knownScalar(8, 4)
	_, err = e.CheckOutput("sum", expected, ops.AbsTolerance{N: 0}, ops.Safe)
	require.NoError(t, err)
}

func TestEngine_Run_EmitsBudgetWarning(t *testing.T) {
	// spec.md §8 S6: bits=8, scale=7, max observed lookup input=500 ->
	// recommended_bits=10.
	prevBits := ops.LookupBits
	ops.LookupBits = 8
	defer func() { ops.LookupBits = prevBits }()

	g := graph.New()
	_ = g.AddNode(&graph.Node{ID: "x", Op: ops.Input{Scale: 7}, OutShape: tensor.NewShape(1), OutScale: 7})
	_ = g.AddNode(&graph.Node{ID: "r", Op: ops.ReLU{Scale: 7}, Inputs: []graph.NodeID{"x"}, OutShape: tensor.NewShape(1), OutScale: 0})
	g.Inputs = []graph.NodeID{"x"}
	g.Outputs = []graph.NodeID{"r"}

	region := &DummyRegion{}
	cfg := DummyGateConfig{Col: backend.ColumnID(0)}
	e := NewEngine(g, cfg, region, NewDummyColumnAllocator())
	require.NoError(t, e.LayoutTables())
	e.Bind("x", knownScalar(500, 7))
	_, err := e.Run()
	require.NoError(t, err)

	warnings := e.BudgetWarnings(7)
	require.Len(t, warnings, 1)
	assert.Equal(t, "ReLU", warnings[0].Op)
	assert.Equal(t, 8, warnings[0].Bits)
	assert.Equal(t, int64(500), warnings[0].MaxObserved.Int64())
	assert.Equal(t, 10, warnings[0].RecommendedBits)
}

func TestEngine_Run_NoBudgetWarningWithinWindow(t *testing.T) {
	prevBits := ops.LookupBits
	ops.LookupBits = 8
	defer func() { ops.LookupBits = prevBits }()

	g := graph.New()
	_ = g.AddNode(&graph.Node{ID: "x", Op: ops.Input{Scale: 7}, OutShape: tensor.NewShape(1), OutScale: 7})
	_ = g.AddNode(&graph.Node{ID: "r", Op: ops.ReLU{Scale: 7}, Inputs: []graph.NodeID{"x"}, OutShape: tensor.NewShape(1), OutScale: 0})
	g.Inputs = []graph.NodeID{"x"}
	g.Outputs = []graph.NodeID{"r"}

	region := &DummyRegion{}
	cfg := DummyGateConfig{Col: backend.ColumnID(0)}
	e := NewEngine(g, cfg, region, NewDummyColumnAllocator())
	require.NoError(t, e.LayoutTables())
	e.Bind("x", knownScalar(10, 7))
	_, err := e.Run()
	require.NoError(t, err)

	assert.Empty(t, e.BudgetWarnings(7))
}

func TestEngine_PackOutput(t *testing.T) {
	g := buildAddGraph()
	region := &DummyRegion{}
	cfg := DummyGateConfig{Col: backend.ColumnID(0)}
	e := NewEngine(g, cfg, region, NewDummyColumnAllocator())
	require.NoError(t, e.LayoutTables())
	e.Bind("x", knownScalar(3, 4))
	e.Bind("y", knownScalar(5, 4))
	_, err := e.Run()
	require.NoError(t, err)

	packed, err := e.PackOutput("sum", 1, 4)
	require.NoError(t, err)
	assert.True(t, packed.Shape().Equal(tensor.NewShape(1)))
}
