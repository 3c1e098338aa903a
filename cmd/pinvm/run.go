package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/tebeka/atexit"

	"github.com/chazu/pinvm/clock"
	"github.com/chazu/pinvm/image"
	"github.com/chazu/pinvm/manifest"
	"github.com/chazu/pinvm/trace"
	"github.com/chazu/pinvm/tracestore"
	"github.com/chazu/pinvm/vm"
)

func runCommand(m *manifest.Manifest, args []string, snapshotPath string) error {
	path, err := sourcePath(m, args)
	if err != nil {
		return err
	}
	artifact, err := build(path)
	if err != nil {
		return err
	}

	sink, err := openSink(m)
	if err != nil {
		return err
	}

	opts := []vm.Option{
		vm.WithMemorySize(m.Machine.Memory),
		vm.WithMaxDelay(m.Machine.MaxDelay),
	}

	var p *vm.Program
	switch m.Machine.Clock {
	case manifest.ClockRealTime:
		rt := clock.NewRealTime()
		atexit.Register(rt.Close)
		p = vm.Load(artifact.Code, rt, sink, opts...)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = rt.Wait(ctx)
		if errors.Is(err, context.Canceled) {
			rt.Stop()
			log.Notice("interrupted")
			err = nil
		}
	default:
		sync := clock.NewSynchronous()
		p = vm.Load(artifact.Code, sync, sink, opts...)
		err = sync.Step(m.Machine.Steps)
		if err == nil && sync.Running() {
			log.Warningf("stopped after %d steps at offset %d", m.Machine.Steps, p.Counter())
		}
	}

	if snapshotPath != "" {
		if werr := writeSnapshot(snapshotPath, p); werr != nil {
			return werr
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if store, ok := sink.(*tracestore.Store); ok {
		return store.Err()
	}
	return nil
}

func openSink(m *manifest.Manifest) (trace.Sink, error) {
	switch m.Trace.Sink {
	case manifest.TraceDiscard:
		return trace.Discard, nil
	case manifest.TraceSQLite:
		store, err := tracestore.Open(m.DatabasePath())
		if err != nil {
			return nil, err
		}
		atexit.Register(func() { store.Close() })
		fmt.Fprintf(os.Stderr, "trace run %s\n", store.Run())
		return store, nil
	}
	return trace.NewLog(nil), nil
}

func writeSnapshot(path string, p *vm.Program) error {
	data, err := image.MarshalSnapshot(p.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func traceCommand(m *manifest.Manifest, args []string) error {
	store, err := tracestore.Open(m.DatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 0 {
		runs, err := store.Runs()
		if err != nil {
			return err
		}
		for _, run := range runs {
			fmt.Println(run)
		}
		return nil
	}

	lines, err := store.Lines(args[0])
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
