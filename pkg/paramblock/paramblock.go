// Package paramblock implements spec.md §3's ParameterBlock: the sidecar
// record persisted alongside a compiled circuit, carrying everything a
// later Setup/Prove/Verify stage needs without re-running the loader —
// run configuration, per-visibility-group instance shapes, constraint
// count, and the deduplicated set of required lookups. Grounded on the
// teacher's marshalled config types
// (_teacher_ref/marshaller_types/types.go), which pair a Go struct with a
// stable on-disk encoding the rest of the program treats as opaque.
package paramblock

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zkmlgo/circuit/pkg/ops"
	"github.com/zkmlgo/circuit/pkg/runargs"
	"github.com/zkmlgo/circuit/pkg/tensor"
)

// ParameterBlock is the full sidecar record spec.md §3 requires a compiled
// circuit to carry.
type ParameterBlock struct {
	RunArgs         runargs.RunArgs                       `json:"run_args"`
	InstanceShapes  map[runargs.Visibility][]tensor.Shape  `json:"instance_shapes"`
	NumConstraints  int                                    `json:"num_constraints"`
	RequiredLookups []LookupDescriptor                     `json:"required_lookups"`
	CheckModeSafe   bool                                   `json:"check_mode_safe"`
}

// LookupDescriptor is the persisted, backend-independent identity of one
// required lookup table: enough to re-derive and re-populate it without
// retaining the live ops.LookupOp value (which may hold a closure, as
// realLookup does).
type LookupDescriptor struct {
	Name           string `json:"name"`
	ParamSignature string `json:"param_signature"`
	Bits           int    `json:"bits"`
}

// DescribeLookups converts a deduplicated lookup set (e.g. from
// table.CollectRequired) into its persisted form.
func DescribeLookups(lookups []ops.LookupOp) []LookupDescriptor {
	out := make([]LookupDescriptor, len(lookups))
	for i, lk := range lookups {
		out[i] = LookupDescriptor{Name: lk.Name(), ParamSignature: lk.ParamSignature(), Bits: lk.Bits()}
	}
	return out
}

// New builds a ParameterBlock from its constituent pieces, validating that
// every declared visibility group's shape list is non-empty.
func New(args runargs.RunArgs, instanceShapes map[runargs.Visibility][]tensor.Shape, numConstraints int, lookups []ops.LookupOp) (ParameterBlock, error) {
	for vis, shapes := range instanceShapes {
		if len(shapes) == 0 {
			return ParameterBlock{}, fmt.Errorf("paramblock: visibility group %q declared with no shapes", vis)
		}
	}
	return ParameterBlock{
		RunArgs:         args,
		InstanceShapes:  instanceShapes,
		NumConstraints:  numConstraints,
		RequiredLookups: DescribeLookups(lookups),
		CheckModeSafe:   args.CheckModeSafe,
	}, nil
}

// Save persists the block as JSON to path.
func (p ParameterBlock) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadParameterBlock reads a ParameterBlock previously written by Save.
func LoadParameterBlock(path string) (ParameterBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParameterBlock{}, fmt.Errorf("paramblock: read %s: %w", path, err)
	}
	var p ParameterBlock
	if err := json.Unmarshal(data, &p); err != nil {
		return ParameterBlock{}, fmt.Errorf("paramblock: parse %s: %w", path, err)
	}
	return p, nil
}

// AllocationFits reports whether NumConstraints fits within the run's
// allocated_constraints budget, when one was declared (0 means
// unconstrained / auto-sized).
func (p ParameterBlock) AllocationFits() bool {
	if p.RunArgs.AllocatedConstraints <= 0 {
		return true
	}
	return p.NumConstraints <= p.RunArgs.AllocatedConstraints
}
