package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/tebeka/atexit"

	physis "github.com/physis-lang/physis"
)

const defaultWritePermission = 0644 // -rw-r--r--

func main() {
	var (
		inputPath  = flag.String("input", "", "Path to the JSON intermediate-representation input file")
		outputPath = flag.String("output", "/dev/stdout", "Path to the output file")
		target     = flag.String("target", "reference", "Backend target: reference, cuda, mpi, or mpi-cuda")
		configPath = flag.String("config", "", "Path to a JSON file of config overrides (e.g. {\"mpi_cuda.multistream_boundary\": true})")

		dump       = flag.Bool("dump", false, "Dump the translated program instead of writing it")
		dumpRanges = flag.Bool("dump-ranges", false, "Dump the derived per-grid stencil ranges instead of writing the program")

		verbose = flag.Bool("verbose", false, "Enable debug-level session logging")
	)
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("Input not informed")
	}

	inputData, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Can't read input file: %s", err.Error())
	}

	prog, gridTypes, err := decodeProgram(inputData)
	if err != nil {
		log.Fatalf("Can't decode input: %s", err.Error())
	}

	cfg, err := loadConfig(*configPath, *target)
	if err != nil {
		log.Fatalf("Can't load config: %s", err.Error())
	}

	var logger *slog.Logger
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	sess := physis.NewSession(cfg, logger)

	for _, gt := range gridTypes {
		sess.RegisterGridType(gt)
	}

	backend := physis.BackendFromTarget(cfg.Target())
	result, terr := physis.Translate(sess, prog, backend)
	if terr != nil {
		log.Fatalf("Translation failed: %s", terr.Error())
	}
	for _, w := range result.Warnings {
		sess.Log().Warn("translation warning", "detail", w.Error())
	}

	var outputData string
	switch {
	case *dumpRanges:
		outputData = physis.FormatStencilRanges(result.Grids)
	case *dump:
		outputData = physis.FormatProgram(sess, result.Program)
	default:
		outputData = result.Program.String()
	}

	if err = os.WriteFile(*outputPath, []byte(outputData), defaultWritePermission); err != nil {
		log.Fatalf("Can't write output: %s", err.Error())
	}

	atexit.Register(func() {
		sess.Log().Debug("session finished", "id", sess.ID())
	})
	atexit.Exit(0)
}

// loadConfig builds the session config Physis's core needs: the
// default set reseeded with target, then (optionally) JSON overrides
// read from overridePath. Spec-observed config keys are typed; an
// override of a different type (bool/int/string) is accepted here and
// panics via cfgVal's own checkType only when the translator later
// reads that key, same as any other misuse of Config.
func loadConfig(overridePath, target string) (*physis.Config, error) {
	cfg := physis.NewConfig()
	cfg.SetString("backend.target", target)

	if overridePath == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("reading config overrides: %w", err)
	}
	return applyConfigOverrides(cfg, data)
}
