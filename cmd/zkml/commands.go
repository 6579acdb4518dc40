package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/zkmlgo/circuit/internal/logger"
	"github.com/zkmlgo/circuit/pkg/digest"
	"github.com/zkmlgo/circuit/pkg/graph"
	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/layout"
	"github.com/zkmlgo/circuit/pkg/ops"
	"github.com/zkmlgo/circuit/pkg/paramblock"
	"github.com/zkmlgo/circuit/pkg/quantize"
	"github.com/zkmlgo/circuit/pkg/runargs"
	"github.com/zkmlgo/circuit/pkg/table"
	"github.com/zkmlgo/circuit/pkg/tensor"
)

func loadGraph(path string, scale, bits int) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	ops.LookupBits = bits
	return graph.Load(f, graph.LoadOptions{
		Scale:           scale,
		Bits:            bits,
		ConstantFold:    true,
		AllowUnknownOps: true,
	})
}

func runTable(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("table", flag.ExitOnError)
	graphPath := fs.String("graph", "", "path to the input graph JSON file")
	scale := fs.Int("scale", 12, "fixed-point scale")
	bits := fs.Int("bits", 8, "lookup table bit width")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *graphPath == "" {
		return fmt.Errorf("table: -graph is required")
	}

	g, err := loadGraph(*graphPath, *scale, *bits)
	if err != nil {
		return err
	}
	required := table.CollectRequired(g.Operators())
	logger.Log.Info().Int("count", len(required)).Msg("required lookup tables")
	for _, lk := range required {
		fmt.Printf("%s/%s bits=%d rows=%d\n", lk.Name(), lk.ParamSignature(), lk.Bits(), 1<<uint(lk.Bits()))
	}
	return nil
}

func runMock(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mock", flag.ExitOnError)
	graphPath := fs.String("graph", "", "path to the input graph JSON file")
	scale := fs.Int("scale", 12, "fixed-point scale")
	bits := fs.Int("bits", 8, "lookup table bit width")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *graphPath == "" {
		return fmt.Errorf("mock: -graph is required")
	}

	g, err := loadGraph(*graphPath, *scale, *bits)
	if err != nil {
		return err
	}
	n, err := layout.CountConstraints(g, *scale)
	if err != nil {
		return fmt.Errorf("mock: dummy layout: %w", err)
	}
	fmt.Printf("num_constraints=%d\n", n)
	return nil
}

func runSetup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	graphPath := fs.String("graph", "", "path to the input graph JSON file")
	runArgsPath := fs.String("runargs", "", "path to a run_args YAML file (defaults applied if omitted)")
	out := fs.String("out", ".", "output directory for parameter_block.json and circuit.digest")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *graphPath == "" {
		return fmt.Errorf("setup: -graph is required")
	}

	ra := runargs.Default()
	if *runArgsPath != "" {
		loaded, err := runargs.Load(*runArgsPath)
		if err != nil {
			return err
		}
		ra = loaded
	}

	g, err := loadGraph(*graphPath, ra.Scale, ra.Bits)
	if err != nil {
		return err
	}
	numConstraints, err := layout.CountConstraints(g, ra.Scale)
	if err != nil {
		return fmt.Errorf("setup: dummy layout: %w", err)
	}

	required := table.CollectRequired(g.Operators())
	instanceShapes := map[runargs.Visibility][]tensor.Shape{}
	for _, id := range g.Outputs {
		if n, ok := g.Nodes[id]; ok {
			instanceShapes[ra.OutputVisibility] = append(instanceShapes[ra.OutputVisibility], n.OutShape)
		}
	}
	if len(instanceShapes) == 0 {
		instanceShapes[ra.OutputVisibility] = []tensor.Shape{tensor.NewShape(1)}
	}

	pb, err := paramblock.New(ra, instanceShapes, numConstraints, required)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	pbPath := filepath.Join(*out, "parameter_block.json")
	if err := pb.Save(pbPath); err != nil {
		return err
	}

	d := digest.FromParameterBlock(pb, len(g.Nodes))
	fp := digest.Fingerprint(d)
	digestPath := filepath.Join(*out, "circuit.digest")
	if err := os.WriteFile(digestPath, digest.Encode(d), 0o644); err != nil {
		return err
	}

	logger.Log.Info().Str("parameter_block", pbPath).Str("digest", digestPath).Msg("setup complete")
	fmt.Printf("fingerprint=%x\n", fp)
	return nil
}

func runProve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prove", flag.ExitOnError)
	paramsDir := fs.String("params", "", "directory containing parameter_block.json")
	witness := fs.String("witness", "", "path to a witness file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *paramsDir == "" || *witness == "" {
		return fmt.Errorf("prove: -params and -witness are required")
	}
	pb, err := paramblock.LoadParameterBlock(filepath.Join(*paramsDir, "parameter_block.json"))
	if err != nil {
		return err
	}
	_ = pb
	return fmt.Errorf("prove: no proving-system backend is linked into this build; this command only validates %s is loadable", *paramsDir)
}

func runVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	paramsDir := fs.String("params", "", "directory containing parameter_block.json")
	proof := fs.String("proof", "", "path to a proof file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *paramsDir == "" || *proof == "" {
		return fmt.Errorf("verify: -params and -proof are required")
	}
	return fmt.Errorf("verify: no proving-system backend is linked into this build")
}

func runFuzz(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fuzz", flag.ExitOnError)
	graphPath := fs.String("graph", "", "path to the input graph JSON file")
	scale := fs.Int("scale", 12, "fixed-point scale")
	n := fs.Int("n", 100, "number of random trials")
	seed := fs.Int64("seed", 1, "PRNG seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *graphPath == "" {
		return fmt.Errorf("fuzz: -graph is required")
	}

	g, err := loadGraph(*graphPath, *scale, 8)
	if err != nil {
		return err
	}
	order, err := g.Topo()
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	failures := 0
	for trial := 0; trial < *n; trial++ {
		values := make(map[graph.NodeID]tensor.IntTensor)
		for _, node := range order {
			if node.Op.IsInput() {
				buf := make([]ints.I128, node.OutShape.Size())
				for i := range buf {
					buf[i] = quantize.Quantise(rng.NormFloat64(), *scale)
				}
				t, err := tensor.NewInt(buf, node.OutShape)
				if err != nil {
					return err
				}
				values[node.ID] = t
				continue
			}
			if node.Op.Kind() == ops.KindConstant {
				continue
			}
			ins := make([]tensor.IntTensor, len(node.Inputs))
			ready := true
			for i, depID := range node.Inputs {
				dep, ok := g.Nodes[depID]
				if ok && dep.Op.Kind() == ops.KindConstant {
					ins[i] = dep.Op.(ops.Constant).Values
					continue
				}
				v, ok := values[depID]
				if !ok {
					ready = false
					break
				}
				ins[i] = v
			}
			if !ready {
				continue
			}
			out, err := node.Op.Forward(ins)
			if err != nil {
				failures++
				logger.NodeEvent(logger.Log.Warn(), string(node.ID), node.Op.Name()).Err(err).Msg("fuzz trial failed")
				continue
			}
			values[node.ID] = out
		}
	}
	fmt.Printf("trials=%d failures=%d\n", *n, failures)
	return nil
}

func runRenderCircuit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render-circuit", flag.ExitOnError)
	graphPath := fs.String("graph", "", "path to the input graph JSON file")
	scale := fs.Int("scale", 12, "fixed-point scale")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *graphPath == "" {
		return fmt.Errorf("render-circuit: -graph is required")
	}

	g, err := loadGraph(*graphPath, *scale, 8)
	if err != nil {
		return err
	}
	order, err := g.Topo()
	if err != nil {
		return err
	}
	for _, n := range order {
		fmt.Printf("%-20s %-12s shape=%v scale=%d inputs=%v\n", n.ID, n.Op.Name(), n.OutShape, n.OutScale, n.Inputs)
	}
	return nil
}
