package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/field"
	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/tensor"
	"github.com/zkmlgo/circuit/pkg/valtensor"
)

// fakeLayoutCell/fakeLayoutRegion/fakeGateConfig are a minimal
// backend.Region/GateConfig for exercising Layout directly from pkg/ops
// tests, mirroring pkg/layout's DummyRegion/DummyGateConfig (which this
// package cannot import without an import cycle, since pkg/layout imports
// pkg/ops).
type fakeLayoutCell struct {
	col backend.ColumnID
	row int
}

func (c fakeLayoutCell) Column() backend.ColumnID { return c.col }
func (c fakeLayoutCell) Offset() int              { return c.row }

type fakeLayoutRegion struct{}

func newFakeLayoutRegion() *fakeLayoutRegion { return &fakeLayoutRegion{} }

func (r *fakeLayoutRegion) AssignAdvice(col backend.ColumnID, offset int, value field.Elem) (backend.Cell, error) {
	return fakeLayoutCell{col: col, row: offset}, nil
}
func (r *fakeLayoutRegion) AssignFixed(col backend.ColumnID, offset int, value field.Elem) error {
	return nil
}
func (r *fakeLayoutRegion) ConstrainEqual(a, b backend.Cell) error { return nil }

type fakeGateConfig struct{}

func (g fakeGateConfig) Apply(region backend.Region, offset int, opName string, ins []backend.Cell) (backend.Cell, error) {
	return region.AssignAdvice(backend.ColumnID(0), offset, field.Elem{})
}

func mustValTensor(t *testing.T, v int64, scale int) valtensor.ValTensor {
	t.Helper()
	vt, err := valtensor.NewKnown([]field.Elem{field.FromSignedInt(ints.FromInt64(v))}, tensor.NewShape(1), scale)
	require.NoError(t, err)
	return vt
}

func TestRescaled_Forward(t *testing.T) {
	inner := Poly{PolyKind: PolyAdd}
	r := NewRescaled(inner, []ints.I128{ints.FromInt64(1), ints.FromInt64(4)})
	out, err := r.Forward([]tensor.IntTensor{mustT(1, 2), mustT(1, 1)})
	require.NoError(t, err)
	// second input scaled by 4: [4,4]; add to [1,2] => [5,6]
	v, _ := out.Get(0)
	assert.Equal(t, int64(5), v.Int64())
	v, _ = out.Get(1)
	assert.Equal(t, int64(6), v.Int64())
}

func TestRescaled_IdentityMultiplierIsNoopPath(t *testing.T) {
	inner := Poly{PolyKind: PolyAdd}
	r := NewRescaled(inner, []ints.I128{ints.One(), ints.One()})
	out, err := r.Forward([]tensor.IntTensor{mustT(3, 3), mustT(2, 2)})
	require.NoError(t, err)
	v, _ := out.Get(0)
	assert.Equal(t, int64(5), v.Int64())
}

func TestRescaled_WrongMultiplierCount(t *testing.T) {
	inner := Poly{PolyKind: PolyAdd}
	r := NewRescaled(inner, []ints.I128{ints.One()})
	_, err := r.Forward([]tensor.IntTensor{mustT(1), mustT(1)})
	assert.Error(t, err)
}

func TestRescaled_FlattensNestedRescaled(t *testing.T) {
	inner := Poly{PolyKind: PolyMul}
	once := NewRescaled(inner, []ints.I128{ints.FromInt64(2), ints.FromInt64(3)})
	twice := NewRescaled(once, []ints.I128{ints.FromInt64(5), ints.FromInt64(7)})

	assert.Equal(t, inner, twice.Inner, "flattening must reach the original inner operator, not the intermediate Rescaled")
	require.Len(t, twice.Multipliers, 2)
	assert.Equal(t, int64(10), twice.Multipliers[0].Int64()) // 2*5
	assert.Equal(t, int64(21), twice.Multipliers[1].Int64()) // 3*7
}

func TestRescaled_Name(t *testing.T) {
	inner := Poly{PolyKind: PolyAdd}
	r := NewRescaled(inner, []ints.I128{ints.One(), ints.One()})
	assert.Equal(t, "Rescaled(Add)", r.Name())
	assert.Equal(t, KindRescaled, r.Kind())
}

func TestRescaled_DelegatesRequiredLookups(t *testing.T) {
	relu := ReLU{Scale: 4}
	r := NewRescaled(relu, []ints.I128{ints.One()})
	lookups := r.RequiredLookups()
	require.Len(t, lookups, 1)
	assert.Equal(t, "ReLU", lookups[0].Name())
}

func TestRescaled_OutScale_RaisesEachInputScaleByItsOwnShift(t *testing.T) {
	inner := Poly{PolyKind: PolyAdd}
	// input 0 sits at scale 5 and is multiplied by 4 (shift 2) to reach 7,
	// input 1 already sits at 7 and is left alone (multiplier 1, shift 0).
	r := NewRescaled(inner, []ints.I128{ints.FromInt64(4), ints.One()})
	assert.Equal(t, 7, r.OutScale([]int{5, 7}, 0), "both raised inputs must land on the homogenized scale before Add delegates")
}

func TestRescaled_Layout_TagsScaledInputWithPostMultiplyScale(t *testing.T) {
	inner := Poly{PolyKind: PolyAdd}
	r := NewRescaled(inner, []ints.I128{ints.FromInt64(4), ints.One()})
	region := newFakeLayoutRegion()
	cfg := fakeGateConfig{}
	offset := 0

	low := mustValTensor(t, 3, 5)
	high := mustValTensor(t, 7, 7)
	out, err := r.Layout(cfg, region, []valtensor.ValTensor{low, high}, &offset)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Scale, "Add of two scale-7 operands must report scale 7, not the pre-multiplication scale 5")
}

func TestMultiplierForScales(t *testing.T) {
	assert.Equal(t, int64(1), MultiplierForScales(4, 4).Int64())
	assert.Equal(t, int64(1), MultiplierForScales(8, 4).Int64(), "toScale <= fromScale yields identity")
	assert.Equal(t, int64(16), MultiplierForScales(0, 4).Int64())
}
