// pinvm CLI - compiles instruction programs and runs them on the virtual
// controller
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tebeka/atexit"
	"github.com/tliron/commonlog"

	"github.com/chazu/pinvm/compiler"
	"github.com/chazu/pinvm/image"
	"github.com/chazu/pinvm/manifest"
	"github.com/chazu/pinvm/server"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("pinvm.cmd")

func main() {
	verbose := flag.Int("v", -1, "Log verbosity (overrides pinvm.toml)")
	output := flag.String("o", "", "Write a CBOR image to this path instead of hex (compile)")
	writeImage := flag.Bool("image", false, "Write a CBOR image to the output path in pinvm.toml (compile)")
	clockMode := flag.String("clock", "", "Clock: synchronous or realtime (run)")
	sinkName := flag.String("trace", "", "Trace sink: log, discard or sqlite (run)")
	steps := flag.Int("steps", 0, "Step budget for the synchronous clock (run)")
	snapshot := flag.String("snapshot", "", "Write the final machine state as CBOR (run)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pinvm [options] <command> [file]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  compile [file]   Compile a program and print its byte stream in hex\n")
		fmt.Fprintf(os.Stderr, "  run [file]       Compile (or load a .pvm image) and execute it\n")
		fmt.Fprintf(os.Stderr, "  trace <run-id>   Print a run recorded by the sqlite trace sink\n")
		fmt.Fprintf(os.Stderr, "  lsp              Start the language server on stdio\n")
		fmt.Fprintf(os.Stderr, "\nWithout a file, the entry named in pinvm.toml is used.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		atexit.Exit(2)
	}

	m, err := loadManifest()
	if err != nil {
		fail(err)
	}
	if *verbose >= 0 {
		m.Log.Verbosity = *verbose
	}
	if *clockMode != "" {
		m.Machine.Clock = *clockMode
	}
	if *sinkName != "" {
		m.Trace.Sink = *sinkName
	}
	if *steps > 0 {
		m.Machine.Steps = *steps
	}
	if err := m.Validate(); err != nil {
		fail(err)
	}

	command, args := flag.Arg(0), flag.Args()[1:]

	// Trace lines are logged at info level.
	if command == "run" && m.Trace.Sink == manifest.TraceLog && m.Log.Verbosity < 1 {
		m.Log.Verbosity = 1
	}
	commonlog.Configure(m.Log.Verbosity, nil)

	switch command {
	case "compile":
		if *output == "" && *writeImage {
			*output = m.OutputPath()
		}
		err = compileCommand(m, args, *output)
	case "run":
		err = runCommand(m, args, *snapshot)
	case "trace":
		err = traceCommand(m, args)
	case "lsp":
		err = server.NewLSP().Run()
	default:
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		fail(err)
	}
	atexit.Exit(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	atexit.Exit(1)
}

// loadManifest finds pinvm.toml from the working directory, falling back
// to the defaults.
func loadManifest() (*manifest.Manifest, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
		m.Dir = wd
	}
	return m, nil
}

// sourcePath returns the file argument or the manifest entry.
func sourcePath(m *manifest.Manifest, args []string) (string, error) {
	switch len(args) {
	case 0:
		return m.EntryPath(), nil
	case 1:
		return args[0], nil
	}
	return "", errors.New("expected at most one file")
}

// build compiles a source file, or reads a compiled image when path ends
// in .pvm.
func build(path string) (*image.Artifact, error) {
	if strings.EqualFold(filepath.Ext(path), ".pvm") {
		return image.ReadFile(path)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	result, err := compiler.Build(string(source))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("compiled %s: %d bytes, %d identifiers", path, len(result.Code), len(result.Names))
	return image.FromResult(result), nil
}

func compileCommand(m *manifest.Manifest, args []string, output string) error {
	path, err := sourcePath(m, args)
	if err != nil {
		return err
	}
	artifact, err := build(path)
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Println(hex.EncodeToString(artifact.Code))
		return nil
	}
	if err := image.WriteFile(output, artifact); err != nil {
		return err
	}
	log.Infof("wrote %s", output)
	return nil
}
