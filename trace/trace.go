// Package trace is the write-only channel through which executing
// instructions report what they did.
package trace

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// Sink receives one call per traced instruction.
type Sink interface {
	Log(values ...any)
}

// Line joins values with single spaces.
func Line(values ...any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(...any) {}

// Log forwards every line to a commonlog logger at info level.
type Log struct {
	logger commonlog.Logger
}

// NewLog returns a sink writing to logger, or to the "pinvm.trace" logger
// when logger is nil.
func NewLog(logger commonlog.Logger) *Log {
	if logger == nil {
		logger = commonlog.GetLogger("pinvm.trace")
	}
	return &Log{logger: logger}
}

func (s *Log) Log(values ...any) {
	s.logger.Info(Line(values...))
}

// Capture keeps every line in memory, in order.
type Capture struct {
	mu    sync.Mutex
	lines []string
}

// NewCapture returns an empty capture sink.
func NewCapture() *Capture {
	return &Capture{}
}

func (s *Capture) Log(values ...any) {
	line := Line(values...)
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
}

// Lines returns a copy of the captured lines.
func (s *Capture) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Reset discards captured lines.
func (s *Capture) Reset() {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()
}

// Tee fans every line out to each of sinks.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Log(values ...any) {
	for _, s := range t {
		s.Log(values...)
	}
}
