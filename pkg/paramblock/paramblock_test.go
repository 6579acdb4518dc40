package paramblock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkmlgo/circuit/pkg/ops"
	"github.com/zkmlgo/circuit/pkg/runargs"
	"github.com/zkmlgo/circuit/pkg/tensor"
)

func TestNew_RejectsEmptyVisibilityGroup(t *testing.T) {
	args := runargs.Default()
	shapes := map[runargs.Visibility][]tensor.Shape{
		runargs.VisibilityPublic: {},
	}
	_, err := New(args, shapes, 10, nil)
	assert.Error(t, err)
}

func TestNew_Success(t *testing.T) {
	args := runargs.Default()
	shapes := map[runargs.Visibility][]tensor.Shape{
		runargs.VisibilityPublic: {tensor.NewShape(1, 10)},
	}
	lookups := []ops.LookupOp{ops.ReLU{Scale: 4}, ops.Div{D: 2}}
	pb, err := New(args, shapes, 42, lookups)
	require.NoError(t, err)
	assert.Equal(t, 42, pb.NumConstraints)
	assert.Equal(t, args.CheckModeSafe, pb.CheckModeSafe)
	require.Len(t, pb.RequiredLookups, 2)
	assert.Equal(t, "ReLU", pb.RequiredLookups[0].Name)
}

func TestDescribeLookups(t *testing.T) {
	descs := DescribeLookups([]ops.LookupOp{ops.ReLU{Scale: 8}})
	require.Len(t, descs, 1)
	assert.Equal(t, "ReLU", descs[0].Name)
	assert.Equal(t, 8, descs[0].Bits)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parameter_block.json")

	args := runargs.Default()
	shapes := map[runargs.Visibility][]tensor.Shape{
		runargs.VisibilityPublic: {tensor.NewShape(4)},
	}
	pb, err := New(args, shapes, 7, []ops.LookupOp{ops.Div{D: 3}})
	require.NoError(t, err)
	require.NoError(t, pb.Save(path))

	loaded, err := LoadParameterBlock(path)
	require.NoError(t, err)
	assert.Equal(t, pb.NumConstraints, loaded.NumConstraints)
	assert.Equal(t, pb.RequiredLookups, loaded.RequiredLookups)
	assert.Equal(t, pb.RunArgs, loaded.RunArgs)
}

func TestAllocationFits(t *testing.T) {
	pb := ParameterBlock{NumConstraints: 100, RunArgs: runargs.RunArgs{AllocatedConstraints: 0}}
	assert.True(t, pb.AllocationFits(), "zero budget means unconstrained")

	pb.RunArgs.AllocatedConstraints = 50
	assert.False(t, pb.AllocationFits())

	pb.RunArgs.AllocatedConstraints = 200
	assert.True(t, pb.AllocationFits())
}

func TestLoadParameterBlock_MissingFile(t *testing.T) {
	_, err := LoadParameterBlock(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
