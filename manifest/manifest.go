// Package manifest handles pinvm.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "pinvm.toml"

// Clock modes.
const (
	ClockSynchronous = "synchronous"
	ClockRealTime    = "realtime"
)

// Trace sinks.
const (
	TraceLog     = "log"
	TraceDiscard = "discard"
	TraceSQLite  = "sqlite"
)

// Manifest represents a pinvm.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Source  Source  `toml:"source"`
	Machine Machine `toml:"machine"`
	Trace   Trace   `toml:"trace"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the pinvm.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures the program to compile.
type Source struct {
	Entry  string `toml:"entry"`
	Output string `toml:"output"`
}

// Machine configures the virtual controller.
type Machine struct {
	Memory   int           `toml:"memory"`
	MaxDelay time.Duration `toml:"max-delay"`
	Clock    string        `toml:"clock"`
	Steps    int           `toml:"steps"` // step budget for the synchronous clock
}

// Trace selects where trace lines go.
type Trace struct {
	Sink     string `toml:"sink"`
	Database string `toml:"database"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the manifest used when no pinvm.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses a pinvm.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a pinvm.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Source.Entry == "" {
		m.Source.Entry = "main.pin"
	}
	if m.Machine.Memory == 0 {
		m.Machine.Memory = 1024
	}
	if m.Machine.MaxDelay == 0 {
		m.Machine.MaxDelay = 6871 * time.Second
	}
	if m.Machine.Clock == "" {
		m.Machine.Clock = ClockSynchronous
	}
	if m.Machine.Steps == 0 {
		m.Machine.Steps = 1_000_000
	}
	if m.Trace.Sink == "" {
		m.Trace.Sink = TraceLog
	}
	if m.Trace.Database == "" {
		m.Trace.Database = filepath.Join(".pinvm", "trace.db")
	}
}

// Validate rejects settings the machine cannot run with.
func (m *Manifest) Validate() error {
	switch m.Machine.Clock {
	case ClockSynchronous, ClockRealTime:
	default:
		return fmt.Errorf("unknown clock %q", m.Machine.Clock)
	}
	switch m.Trace.Sink {
	case TraceLog, TraceDiscard, TraceSQLite:
	default:
		return fmt.Errorf("unknown trace sink %q", m.Trace.Sink)
	}
	if m.Machine.Memory < 0 {
		return fmt.Errorf("machine memory must be positive, got %d", m.Machine.Memory)
	}
	if m.Machine.MaxDelay < 0 {
		return fmt.Errorf("max-delay must be positive, got %s", m.Machine.MaxDelay)
	}
	if m.Machine.Steps < 0 {
		return fmt.Errorf("steps must be positive, got %d", m.Machine.Steps)
	}
	return nil
}

// EntryPath returns the absolute path of the source entry.
func (m *Manifest) EntryPath() string {
	return m.path(m.Source.Entry)
}

// OutputPath returns where the compiled image is written. Empty means
// next to the entry with a .pvm extension.
func (m *Manifest) OutputPath() string {
	if m.Source.Output != "" {
		return m.path(m.Source.Output)
	}
	entry := m.EntryPath()
	return entry[:len(entry)-len(filepath.Ext(entry))] + ".pvm"
}

// DatabasePath returns the absolute path of the trace database.
func (m *Manifest) DatabasePath() string {
	return m.path(m.Trace.Database)
}

func (m *Manifest) path(p string) string {
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
