// Command zkml compiles a neural-network computation graph into an
// arithmetic circuit over a prime field: it loads a graph, quantises its
// constants, lowers every operator into base constraints and lookup
// tables, and emits the resulting ParameterBlock and circuit digest.
// Proof generation, on-chain verification, and RPC/EVM glue are handled
// by a separate proving-system backend this command never imports
// (spec.md §1's explicit non-goals) — zkml's job ends at producing
// everything such a backend would need.
//
// Grounded on the teacher's cmd/spectrometer/main.go: a single flag-based
// dispatcher over verb subcommands, signal-aware context, and a
// -v/-vv verbosity pair feeding the shared logger instead of slog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/zkmlgo/circuit/internal/logger"
)

var (
	verbose = flag.Int("v", 0, "Set log verbosity level (0=ERROR, 1=WARN, 2=INFO, 3=DEBUG)")
	vv      = flag.Bool("vv", false, "Shortcut for -v=3 (maximum verbosity)")
)

func main() {
	flag.Parse()
	setupLogging()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	commandArgs := args[1:]

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case "table":
		err = runTable(ctx, commandArgs)
	case "mock":
		err = runMock(ctx, commandArgs)
	case "setup":
		err = runSetup(ctx, commandArgs)
	case "prove":
		err = runProve(ctx, commandArgs)
	case "verify":
		err = runVerify(ctx, commandArgs)
	case "fuzz":
		err = runFuzz(ctx, commandArgs)
	case "render-circuit":
		err = runRenderCircuit(ctx, commandArgs)
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Log.Error().Str("command", command).Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setupLogging() {
	level := *verbose
	if *vv {
		level = 3
	}
	switch level {
	case 0:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case 1:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case 2:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: zkml <command> [options]

Commands:
  table -graph FILE -scale N -bits N      List the lookup tables a graph requires
  mock -graph FILE -scale N -bits N       Run a dummy layout pass and report constraint count
  setup -graph FILE -runargs FILE -out DIR  Compile a graph and emit its ParameterBlock + digest
  prove -params DIR -witness FILE         Load parameter_block.json, then fail: no proving backend is linked
  verify -params DIR -proof FILE          Fail: no proving backend is linked
  fuzz -graph FILE -scale N -n N          Forward-evaluate a graph over random quantised inputs
  render-circuit -graph FILE              Print a human-readable dump of a loaded graph

Common flags:
  -v=N                                    Set log verbosity (0=ERROR .. 3=DEBUG)
  -vv                                     Shortcut for -v=3
  -h, --help, help                        Show this help message
`)
}
