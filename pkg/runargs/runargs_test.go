package runargs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_RejectsBadFields(t *testing.T) {
	tests := []struct {
		name string
		mut  func(r RunArgs) RunArgs
	}{
		{"bits_zero", func(r RunArgs) RunArgs { r.Bits = 0; return r }},
		{"bits_too_large", func(r RunArgs) RunArgs { r.Bits = 33; return r }},
		{"logrows_zero", func(r RunArgs) RunArgs { r.LogRows = 0; return r }},
		{"batch_size_zero", func(r RunArgs) RunArgs { r.BatchSize = 0; return r }},
		{"pack_base_zero", func(r RunArgs) RunArgs { r.PackBase = 0; return r }},
		{"negative_tolerance", func(r RunArgs) RunArgs { r.TolerancePercent = -1; return r }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.mut(Default())
			assert.Error(t, r.Validate())
		})
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run_args.yaml")

	r := Default()
	r.Scale = 16
	r.Bits = 10
	r.TolerancePercent = 1.5
	require.NoError(t, Save(path, r))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, r, loaded)
}

func TestLoad_InvalidConfigPropagatesValidateError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, Save(path, RunArgs{Bits: 0}))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
