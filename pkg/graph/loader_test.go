package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkmlgo/circuit/pkg/ops"
)

func TestLoad_SimpleAddGraph(t *testing.T) {
	raw := `{
		"nodes": [
			{"name": "x", "op_type": "Input", "shape": [2]},
			{"name": "y", "op_type": "Input", "shape": [2]},
			{"name": "sum", "op_type": "Add", "inputs": ["x", "y"], "shape": [2]}
		],
		"inputs": ["x", "y"],
		"outputs": ["sum"]
	}`
	g, err := Load(strings.NewReader(raw), LoadOptions{Scale: 4})
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, []NodeID{"x", "y"}, g.Inputs)
	assert.Equal(t, []NodeID{"sum"}, g.Outputs)

	sum := g.Nodes["sum"]
	require.IsType(t, ops.Poly{}, sum.Op)
	assert.Equal(t, ops.PolyAdd, sum.Op.(ops.Poly).PolyKind)
}

func TestLoad_ConstantFoldsEagerly(t *testing.T) {
	raw := `{
		"nodes": [
			{"name": "a", "op_type": "Constant", "shape": [1], "data": [2.0]},
			{"name": "b", "op_type": "Constant", "shape": [1], "data": [3.0]},
			{"name": "c", "op_type": "Add", "inputs": ["a", "b"], "shape": [1]}
		],
		"inputs": [],
		"outputs": ["c"]
	}`
	g, err := Load(strings.NewReader(raw), LoadOptions{Scale: 0, ConstantFold: true})
	require.NoError(t, err)

	c := g.Nodes["c"]
	require.IsType(t, ops.Constant{}, c.Op)
	assert.Empty(t, c.Inputs, "folded node should have its inputs cleared")
	v, _ := c.Op.(ops.Constant).Values.Get(0)
	assert.Equal(t, int64(5), v.Int64())
}

func TestLoad_UnrecognisedOp_ErrorsByDefault(t *testing.T) {
	raw := `{"nodes": [{"name": "x", "op_type": "Bogus"}], "inputs": [], "outputs": []}`
	_, err := Load(strings.NewReader(raw), LoadOptions{Scale: 0})
	assert.Error(t, err)
}

func TestLoad_UnrecognisedOp_FallsBackToUnknown(t *testing.T) {
	raw := `{"nodes": [{"name": "x", "op_type": "Bogus", "shape": [2]}], "inputs": [], "outputs": []}`
	g, err := Load(strings.NewReader(raw), LoadOptions{Scale: 4, AllowUnknownOps: true})
	require.NoError(t, err)
	n := g.Nodes["x"]
	require.IsType(t, ops.Unknown{}, n.Op)
	assert.Equal(t, "Bogus", n.Op.(ops.Unknown).OpType)
}

func TestLoad_DuplicateNodeName_Errors(t *testing.T) {
	raw := `{"nodes": [
		{"name": "x", "op_type": "Input", "shape": [1]},
		{"name": "x", "op_type": "Input", "shape": [1]}
	], "inputs": [], "outputs": []}`
	_, err := Load(strings.NewReader(raw), LoadOptions{Scale: 0})
	assert.Error(t, err)
}

func TestLoad_LookupOps(t *testing.T) {
	raw := `{"nodes": [
		{"name": "x", "op_type": "Input", "shape": [1]},
		{"name": "r", "op_type": "ReLU", "inputs": ["x"], "shape": [1]},
		{"name": "d", "op_type": "Div", "inputs": ["r"], "shape": [1], "attrs": {"d": 4}}
	], "inputs": ["x"], "outputs": ["d"]}`
	g, err := Load(strings.NewReader(raw), LoadOptions{Scale: 4, Bits: 8})
	require.NoError(t, err)
	require.IsType(t, ops.ReLU{}, g.Nodes["r"].Op)
	require.IsType(t, ops.Div{}, g.Nodes["d"].Op)
	assert.Equal(t, int64(4), g.Nodes["d"].Op.(ops.Div).D)
}

func TestDeriveSubgraphNodeID_Deterministic(t *testing.T) {
	a := DeriveSubgraphNodeID("owner1", "local", 0)
	b := DeriveSubgraphNodeID("owner1", "local", 0)
	assert.Equal(t, a, b)

	c := DeriveSubgraphNodeID("owner1", "local", 1)
	assert.NotEqual(t, a, c, "different iteration must produce a different id")

	d := DeriveSubgraphNodeID("owner2", "local", 0)
	assert.NotEqual(t, a, d, "different owner must produce a different id")
}
