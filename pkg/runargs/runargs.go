// Package runargs holds the single run-wide configuration spec.md §3's
// ParameterBlock carries alongside a circuit: fixed-point scale, lookup
// bit width, proof-system sizing knobs, and the tolerance/visibility
// choices the loader and layout engine consult while building a circuit.
// Grounded on the teacher's YAML-driven robot config
// (_teacher_ref/marshaller_types/types.go's tagged config structs),
// generalised from robot/sensor parameters to circuit-compilation
// parameters but keeping the same yaml+json dual-tag convention.
package runargs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Visibility names which of a tensor's sources is public vs private
// (spec.md §3's VisibilityGroup).
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityPublic   Visibility = "public"
	VisibilityFixed    Visibility = "fixed"
)

// RunArgs is the full set of run-wide knobs governing how a graph is
// quantised, laid out, and sized.
type RunArgs struct {
	Scale               int        `yaml:"scale" json:"scale"`
	Bits                int        `yaml:"bits" json:"bits"`
	LogRows             int        `yaml:"logrows" json:"logrows"`
	BatchSize           int        `yaml:"batch_size" json:"batch_size"`
	PackBase            int        `yaml:"pack_base" json:"pack_base"`
	TolerancePercent    float64    `yaml:"tolerance_percent" json:"tolerance_percent"`
	InputVisibility     Visibility `yaml:"input_visibility" json:"input_visibility"`
	OutputVisibility    Visibility `yaml:"output_visibility" json:"output_visibility"`
	ParamVisibility     Visibility `yaml:"param_visibility" json:"param_visibility"`
	AllocatedConstraints int       `yaml:"allocated_constraints" json:"allocated_constraints"`
	CheckModeSafe       bool       `yaml:"check_mode_safe" json:"check_mode_safe"`
}

// Default returns the conservative defaults a new run starts from absent
// any user override.
func Default() RunArgs {
	return RunArgs{
		Scale:               12,
		Bits:                8,
		LogRows:             17,
		BatchSize:           1,
		PackBase:            1,
		TolerancePercent:    0,
		InputVisibility:     VisibilityPrivate,
		OutputVisibility:    VisibilityPublic,
		ParamVisibility:     VisibilityFixed,
		AllocatedConstraints: 0,
		CheckModeSafe:       true,
	}
}

// Validate rejects configurations the rest of the pipeline cannot handle
// (spec.md §7's "invalid configuration" load-time error).
func (r RunArgs) Validate() error {
	if r.Bits <= 0 || r.Bits > 32 {
		return fmt.Errorf("runargs: bits must be in (0,32], got %d", r.Bits)
	}
	if r.LogRows <= 0 {
		return fmt.Errorf("runargs: logrows must be positive, got %d", r.LogRows)
	}
	if r.BatchSize <= 0 {
		return fmt.Errorf("runargs: batch_size must be positive, got %d", r.BatchSize)
	}
	if r.PackBase < 1 {
		return fmt.Errorf("runargs: pack_base must be >= 1, got %d", r.PackBase)
	}
	if r.TolerancePercent < 0 {
		return fmt.Errorf("runargs: tolerance_percent must be non-negative, got %v", r.TolerancePercent)
	}
	return nil
}

// Load reads and validates a RunArgs from a YAML file at path.
func Load(path string) (RunArgs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunArgs{}, fmt.Errorf("runargs: read %s: %w", path, err)
	}
	r := Default()
	if err := yaml.Unmarshal(data, &r); err != nil {
		return RunArgs{}, fmt.Errorf("runargs: parse %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return RunArgs{}, err
	}
	return r, nil
}

// Save writes r to path as YAML.
func Save(path string, r RunArgs) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
