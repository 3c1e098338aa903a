package vm

import (
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/pinvm/clock"
	"github.com/chazu/pinvm/pkg/bytecode"
	"github.com/chazu/pinvm/trace"
)

const (
	// NumPins is the size of the pin value, mode and type tables.
	NumPins = 16
	// NumSlots is the size of the variable table.
	NumSlots = 256

	DefaultMemorySize = 1024
	DefaultMaxDelay   = 6871000 * time.Millisecond
)

// Pin modes accepted by IoMode.
const (
	ModeInput byte = iota
	ModeOutput
	ModeInputPullUp
	ModeInputPullDown
)

// MaxPinType is the largest value accepted by IoType.
const MaxPinType = 4

// Program is a loaded byte stream plus the controller state it mutates.
// State is owned by Step; read it only between steps.
type Program struct {
	code    []byte
	counter int
	start   int // offset of the instruction being executed

	pins  [NumPins]byte
	modes [NumPins]byte
	kinds [NumPins]byte
	slots [NumSlots]Cell

	memory []byte
	halted bool
	debug  bool

	clock    clock.Clock
	sink     trace.Sink
	log      commonlog.Logger
	maxDelay time.Duration
}

// Option configures a Program at load time.
type Option func(*Program)

// WithMemorySize sets the scratch memory size in bytes.
func WithMemorySize(n int) Option {
	return func(p *Program) {
		if n >= 0 {
			p.memory = make([]byte, n)
		}
	}
}

// WithMaxDelay caps every Delay and Sleep request.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Program) {
		if d > 0 {
			p.maxDelay = d
		}
	}
}

// WithLogger replaces the "pinvm.vm" logger.
func WithLogger(log commonlog.Logger) Option {
	return func(p *Program) {
		if log != nil {
			p.log = log
		}
	}
}

// Load copies code into a new program, wires its Step into c and starts
// the clock. A nil sink discards traces.
func Load(code []byte, c clock.Clock, sink trace.Sink, opts ...Option) *Program {
	if sink == nil {
		sink = trace.Discard
	}
	p := &Program{
		code:     append([]byte(nil), code...),
		memory:   make([]byte, DefaultMemorySize),
		clock:    c,
		sink:     sink,
		log:      commonlog.GetLogger("pinvm.vm"),
		maxDelay: DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.log.Debugf("loaded %d bytes", len(p.code))
	c.OnTick(p.Step)
	c.Start()
	return p
}

// Counter is the offset of the next instruction.
func (p *Program) Counter() int { return p.counter }

// Len is the length of the loaded stream.
func (p *Program) Len() int { return len(p.code) }

// Halted reports whether the program stopped itself, by Halt, by running
// off the end of the stream or by a fault.
func (p *Program) Halted() bool { return p.halted }

// Debug reports whether the program switched debug output on.
func (p *Program) Debug() bool { return p.debug }

// Pin returns the value, mode and type of pin i.
func (p *Program) Pin(i int) (value, mode, kind byte, ok bool) {
	if i < 0 || i >= NumPins {
		return 0, 0, 0, false
	}
	return p.pins[i], p.modes[i], p.kinds[i], true
}

// SetPin drives an input pin from outside the program.
func (p *Program) SetPin(i int, value byte) bool {
	if i < 0 || i >= NumPins {
		return false
	}
	p.pins[i] = value
	return true
}

// Variable returns a copy of slot id.
func (p *Program) Variable(id int) (Cell, bool) {
	if id < 0 || id >= NumSlots {
		return Cell{}, false
	}
	return p.slots[id].Clone(), true
}

// Memory returns a copy of scratch memory.
func (p *Program) Memory() []byte {
	return append([]byte(nil), p.memory...)
}

// Clock returns the clock driving the program.
func (p *Program) Clock() clock.Clock { return p.clock }

// halt stops the clock; the program can be resumed by starting it again.
func (p *Program) halt() {
	p.halted = true
	p.clock.Stop()
}

func (p *Program) trace(op bytecode.Opcode, detail ...any) {
	p.sink.Log(append([]any{op.String()}, detail...)...)
}
