// Package table implements spec.md §4.4's lookup-table manager: for every
// distinct LookupOp a graph requires, materialise a (input, output) column
// pair populated in ascending x order over the signed window
// [-2^(bits-1), 2^(bits-1)), deduplicating instances that share a name and
// parameter signature, and guarding against assigning the same table
// twice. Grounded on the teacher's one-shot cache-population pattern in
// _teacher_ref/core_logger (a package-level sync.Once-guarded init), here
// generalised to a per-table idempotence guard since a circuit may need
// many distinct tables, not just one global logger.
package table

import (
	"fmt"
	"math"
	"sort"

	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/field"
	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/ops"
)

// AlreadyAssignedError reports a second attempt to populate a table that
// has already been assigned into the backend's fixed columns.
type AlreadyAssignedError struct {
	Name string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("table: %q already assigned", e.Name)
}

// Table is one lookup operator's materialised (input, output) column pair.
type Table struct {
	Op       ops.LookupOp
	Columns  backend.LookupColumns
	Bits     int
	assigned bool

	maxAbsObserved ints.I128 // spec.md §4.4 bit budgeting: widest |x| seen fed to this table
}

// Observe records the witness values actually fed to this table's lookup
// during layout, tracking the largest magnitude seen so BudgetWarning can
// later report whether it exceeded the table's declared window
// (spec.md §4.4, §7's "Budget warnings").
func (t *Table) Observe(xs []ints.I128) {
	for _, x := range xs {
		abs := x.Abs()
		if abs.Cmp(t.maxAbsObserved) > 0 {
			t.maxAbsObserved = abs
		}
	}
}

// key identifies a Table by its operator's name and parameter signature,
// the same total order ops.Equal uses to deduplicate operators (spec.md
// §4.4: "two LookupOp values with the same name and parameters share one
// table").
func key(op ops.LookupOp) string {
	return op.Name() + "/" + op.ParamSignature()
}

// Manager owns every distinct lookup table a circuit's operator catalogue
// requires, keyed by (name, parameter signature) so structurally identical
// requirements (e.g. two ReLU{scale=12} nodes) share one table instead of
// each claiming its own columns.
type Manager struct {
	tables map[string]*Table
	order  []string // insertion order, for deterministic layout (spec.md §8 "layout determinism")
}

// NewManager constructs an empty table manager.
func NewManager() *Manager {
	return &Manager{tables: make(map[string]*Table)}
}

// Register ensures a table exists for op, allocating fresh columns via
// newColumns only the first time this (name, params) pair is seen.
// Subsequent calls with an equal op return the existing table unchanged.
func (m *Manager) Register(op ops.LookupOp, newColumns func() backend.LookupColumns) *Table {
	k := key(op)
	if t, ok := m.tables[k]; ok {
		return t
	}
	t := &Table{Op: op, Columns: newColumns(), Bits: op.Bits()}
	m.tables[k] = t
	m.order = append(m.order, k)
	return t
}

// Tables returns every registered table in deterministic registration
// order.
func (m *Manager) Tables() []*Table {
	out := make([]*Table, len(m.order))
	for i, k := range m.order {
		out[i] = m.tables[k]
	}
	return out
}

// Lookup returns the already-registered table for op, or nil.
func (m *Manager) Lookup(op ops.LookupOp) *Table {
	return m.tables[key(op)]
}

// Observe forwards a batch of witness values laid out against op's lookup
// to its table's Observe, a no-op if op has no registered table.
func (m *Manager) Observe(op ops.LookupOp, xs []ints.I128) {
	if t, ok := m.tables[key(op)]; ok {
		t.Observe(xs)
	}
}

// BudgetWarning is the structured, non-fatal recommendation spec.md §7
// names "Budget warnings": a table observed a witness value wider than the
// bit window it was declared with, together with the (bits, scale) spec.md
// §7's formulas recommend instead.
type BudgetWarning struct {
	Op               string
	ParamSignature   string
	Bits             int
	MaxObserved      ints.I128
	RecommendedBits  int
	RecommendedScale int
}

func (w BudgetWarning) String() string {
	return fmt.Sprintf(
		"table: %s/%s observed |x|=%s, exceeding the bits=%d window; recommend bits=%d or scale=%d",
		w.Op, w.ParamSignature, w.MaxObserved.String(), w.Bits, w.RecommendedBits, w.RecommendedScale,
	)
}

// BudgetWarnings reports one BudgetWarning per registered table whose
// observed maximum |x| exceeded 2^(bits-1), computing:
//
//	recommended_bits  = ceil(log2(max)) + 1
//	recommended_scale = scale - ceil(log2(max / 2^(bits-1)))
//
// exactly as spec.md §7 specifies, given the global fixed-point scale in
// force when the graph was laid out.
func (m *Manager) BudgetWarnings(scale int) []BudgetWarning {
	var out []BudgetWarning
	for _, k := range m.order {
		t := m.tables[k]
		if t.Bits <= 0 || t.maxAbsObserved.IsZero() {
			continue
		}
		half := ints.One().Lsh(uint(t.Bits - 1))
		if t.maxAbsObserved.Cmp(half) <= 0 {
			continue
		}
		max := t.maxAbsObserved.Float64()
		recommendedBits := int(math.Ceil(math.Log2(max))) + 1
		recommendedScale := scale - int(math.Ceil(math.Log2(max/half.Float64())))
		out = append(out, BudgetWarning{
			Op:               t.Op.Name(),
			ParamSignature:   t.Op.ParamSignature(),
			Bits:             t.Bits,
			MaxObserved:      t.maxAbsObserved,
			RecommendedBits:  recommendedBits,
			RecommendedScale: recommendedScale,
		})
	}
	return out
}

// window returns the ascending signed domain [-2^(bits-1), 2^(bits-1))
// a table of the given bit width is populated over (spec.md §4.4).
func window(bits int) []ints.I128 {
	if bits <= 0 {
		return nil
	}
	half := ints.One().Lsh(uint(bits - 1))
	lo := half.Neg()
	out := make([]ints.I128, 0, 1<<uint(bits))
	for x := lo; x.Cmp(half) < 0; x = x.Add(ints.One()) {
		out = append(out, x)
	}
	return out
}

// Assign populates t's fixed columns with (x, f(x)) pairs for every x in
// its declared bit window, in ascending order, via region. Calling Assign
// twice on the same Table returns AlreadyAssignedError rather than
// silently re-writing the columns (spec.md §7's "Duplicate table
// assignment" error).
func (t *Table) Assign(region backend.Region) error {
	if t.assigned {
		return &AlreadyAssignedError{Name: t.Op.Name()}
	}
	for offset, x := range window(t.Bits) {
		y, ok := t.Op.F(x)
		if !ok {
			dx, dy := t.Op.DefaultPair()
			x, y = dx, dy
		}
		if err := region.AssignFixed(t.Columns.Input, offset, field.FromSignedInt(x)); err != nil {
			return err
		}
		if err := region.AssignFixed(t.Columns.Output, offset, field.FromSignedInt(y)); err != nil {
			return err
		}
	}
	t.assigned = true
	return nil
}

// CollectRequired walks a set of operators (typically every node in a
// graph) and returns the deduplicated, sorted set of LookupOps any of them
// require, ready for the layout engine to register in one pass
// (spec.md §4.5 step "layout_tables").
func CollectRequired(operators []ops.Operator) []ops.LookupOp {
	seen := make(map[string]ops.LookupOp)
	var names []string
	for _, op := range operators {
		for _, lk := range op.RequiredLookups() {
			k := key(lk)
			if _, ok := seen[k]; !ok {
				seen[k] = lk
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	out := make([]ops.LookupOp, len(names))
	for i, n := range names {
		out[i] = seen[n]
	}
	return out
}
