package graph

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/ops"
	"github.com/zkmlgo/circuit/pkg/quantize"
	"github.com/zkmlgo/circuit/pkg/tensor"
)

// RawGraph is the on-disk shape of a tensor-exchange-format computation
// graph (spec.md §1's "standard tensor-exchange format" licence): a flat
// list of nodes naming their operator type, attributes, and input edges,
// plus which node names are graph inputs/outputs. A real loader would
// decode this from the wire format's native encoding (protobuf, flatbuffer,
// ...); this package accepts the already-decoded JSON shape so the core
// stays decoupled from any one exchange format's SDK, per spec.md's remit.
type RawGraph struct {
	Nodes   []RawNode `json:"nodes"`
	Inputs  []string  `json:"inputs"`
	Outputs []string  `json:"outputs"`
}

// RawNode is one node of a RawGraph.
type RawNode struct {
	Name   string                 `json:"name"`
	OpType string                 `json:"op_type"`
	Inputs []string               `json:"inputs"`
	Attrs  map[string]interface{} `json:"attrs"`
	Shape  []int                  `json:"shape,omitempty"`
	// Data holds the flattened values of a Constant/initializer node, in
	// row-major order, already dequantised to float64 — the loader
	// re-quantises at the target scale (spec.md §4.3 "per-node construct").
	Data []float64 `json:"data,omitempty"`
}

// LoadOptions configures the graph loader.
type LoadOptions struct {
	Scale           int  // global fixed-point scale (spec.md's run_args.scale)
	Bits            int  // lookup-table bit window, propagated to every LookupOp built
	ConstantFold    bool // fold all-Constant Polynomial nodes at load time (SPEC_FULL supplemented feature 2)
	AllowUnknownOps bool // emit ops.Unknown instead of failing on an unrecognised op_type (SPEC_FULL supplemented feature 4)
}

// subgraphNamespace roots the deterministic UUID derivation used for
// subgraph node ids (spec.md's scan-like control flow): fixed so the same
// subgraph expanded at the same call site always produces the same ids
// across runs, which a random uuid.New() could not guarantee.
var subgraphNamespace = uuid.NewSHA1(uuid.Nil, []byte("github.com/zkmlgo/circuit/pkg/graph"))

// DeriveSubgraphNodeID returns a deterministic id for a node produced by
// expanding a control-flow node's subgraph at a given iteration, derived
// from the owning node's id, the subgraph-local node name, and the
// iteration index.
func DeriveSubgraphNodeID(owner NodeID, localName string, iteration int) NodeID {
	data := fmt.Sprintf("%s/%s/%d", owner, localName, iteration)
	id := uuid.NewSHA1(subgraphNamespace, []byte(data))
	return NodeID(id.String())
}

// Load parses r as a RawGraph and lowers it into a Graph of ops.Operator
// nodes, performing shape/scale inference, constant folding, and the
// Unknown-op fallback per opts (spec.md §4.3's load contract).
func Load(r io.Reader, opts LoadOptions) (*Graph, error) {
	var raw RawGraph
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("graph: decode: %w", err)
	}
	return build(&raw, opts)
}

func build(raw *RawGraph, opts LoadOptions) (*Graph, error) {
	g := New()
	outScale := make(map[NodeID]int)
	if opts.Bits > 0 {
		ops.LookupBits = opts.Bits
	}

	byName := make(map[string]*RawNode, len(raw.Nodes))
	for i := range raw.Nodes {
		byName[raw.Nodes[i].Name] = &raw.Nodes[i]
	}

	for i := range raw.Nodes {
		rn := &raw.Nodes[i]
		id := NodeID(rn.Name)
		inputs := make([]NodeID, len(rn.Inputs))
		for j, in := range rn.Inputs {
			inputs[j] = NodeID(in)
		}

		op, shape, scale, err := constructOp(rn, opts, outScale, inputs)
		if err != nil {
			if opts.AllowUnknownOps {
				op = ops.Unknown{OpType: rn.OpType, Shape: tensor.NewShape(rn.Shape...), Scale: opts.Scale}
				shape = tensor.NewShape(rn.Shape...)
				scale = opts.Scale
			} else {
				return nil, fmt.Errorf("graph: node %q: %w", rn.Name, err)
			}
		} else {
			inScales := make([]int, len(inputs))
			for j, in := range inputs {
				inScales[j] = outScale[in]
			}
			op = op.Rescale(inScales, opts.Scale)
		}

		n := &Node{ID: id, Op: op, Inputs: inputs, OutShape: shape, OutScale: scale}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
		outScale[id] = scale
	}

	for _, in := range raw.Inputs {
		g.Inputs = append(g.Inputs, NodeID(in))
	}
	for _, out := range raw.Outputs {
		g.Outputs = append(g.Outputs, NodeID(out))
	}

	if opts.ConstantFold {
		if err := foldConstants(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// constructOp builds the ops.Operator for one raw node. Unrecognised
// op_type strings are reported as an error for the caller to turn into an
// Unknown node if opts.AllowUnknownOps is set.
func constructOp(rn *RawNode, opts LoadOptions, outScale map[NodeID]int, inputs []NodeID) (ops.Operator, tensor.Shape, int, error) {
	shape := tensor.NewShape(rn.Shape...)

	switch rn.OpType {
	case "Input":
		return ops.Input{Scale: opts.Scale, Shape: shape}, shape, opts.Scale, nil

	case "Constant":
		values := make([]ints.I128, len(rn.Data))
		for i, v := range rn.Data {
			values[i] = quantize.Quantise(v, opts.Scale)
		}
		t, err := tensor.NewInt(values, shape)
		if err != nil {
			return nil, nil, 0, err
		}
		return ops.Constant{Values: t, Scale: opts.Scale}, shape, opts.Scale, nil

	case "Add", "Sub", "Mul", "Matmul":
		kinds := map[string]ops.PolyKind{"Add": ops.PolyAdd, "Sub": ops.PolySub, "Mul": ops.PolyMul, "Matmul": ops.PolyMatmul}
		return ops.Poly{PolyKind: kinds[rn.OpType]}, shape, polyOutScale(kinds[rn.OpType], inputs, outScale, opts.Scale), nil

	case "Conv2D":
		strideH := intAttr(rn.Attrs, "stride_h", 1)
		strideW := intAttr(rn.Attrs, "stride_w", 1)
		padTop := intAttr(rn.Attrs, "pad_top", 0)
		padLeft := intAttr(rn.Attrs, "pad_left", 0)
		return ops.Poly{PolyKind: ops.PolyConv2D, StrideH: strideH, StrideW: strideW, PadTop: padTop, PadLeft: padLeft},
			shape, polyOutScale(ops.PolyConv2D, inputs, outScale, opts.Scale), nil

	case "Pack":
		base := intAttr(rn.Attrs, "base", 1)
		return ops.Poly{PolyKind: ops.PolyPack, PackBase: base, PackScale: opts.Scale}, shape, opts.Scale, nil

	case "ReLU":
		return ops.ReLU{Scale: opts.Scale}, shape, 0, nil
	case "LeakyReLU":
		alphaNum := intAttr(rn.Attrs, "alpha_num", 1)
		alphaScale := intAttr(rn.Attrs, "alpha_scale", 3) // default alpha ~= 1/8
		return ops.LeakyReLU{Scale: opts.Scale, AlphaNum: int64(alphaNum), AlphaScale: alphaScale}, shape, 0, nil
	case "Sigmoid":
		return ops.NewSigmoid(opts.Scale, opts.Scale), shape, opts.Scale, nil
	case "Tanh":
		return ops.NewTanh(opts.Scale, opts.Scale), shape, opts.Scale, nil
	case "Erf":
		return ops.NewErf(opts.Scale, opts.Scale), shape, opts.Scale, nil
	case "Exp":
		return ops.NewExp(opts.Scale, opts.Scale), shape, opts.Scale, nil
	case "Sqrt":
		return ops.NewSqrt(opts.Scale, opts.Scale), shape, opts.Scale, nil
	case "Rsqrt":
		return ops.NewRsqrt(opts.Scale, opts.Scale), shape, opts.Scale, nil
	case "Recip":
		return ops.Recip{Scale: opts.Scale}, shape, opts.Scale, nil
	case "Div":
		d := intAttr(rn.Attrs, "d", 1)
		return ops.Div{D: int64(d)}, shape, 0, nil
	case "GreaterThan":
		a := floatAttr(rn.Attrs, "threshold", 0)
		return ops.NewGreaterThan(a), shape, 0, nil

	default:
		return nil, nil, 0, fmt.Errorf("unrecognised op_type %q", rn.OpType)
	}
}

func polyOutScale(kind ops.PolyKind, inputs []NodeID, outScale map[NodeID]int, globalScale int) int {
	inScales := make([]int, len(inputs))
	for i, in := range inputs {
		inScales[i] = outScale[in]
	}
	return ops.Poly{PolyKind: kind}.OutScale(inScales, globalScale)
}

func intAttr(attrs map[string]interface{}, key string, def int) int {
	if v, ok := attrs[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

func floatAttr(attrs map[string]interface{}, key string, def float64) float64 {
	if v, ok := attrs[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return def
}
