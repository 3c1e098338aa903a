package compiler

import "github.com/chazu/pinvm/pkg/bytecode"

// ---------------------------------------------------------------------------
// Instruction tree
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by every instruction-tree variant.
// The set of variants is closed; see the type switch in layout.
type Node interface {
	Span() Span
	node() // marker method
}

// Operand is a node that can appear in an operand slot: an identifier use
// or a literal value.
type Operand interface {
	Node
	operand() // marker method
}

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

// Identifier is a use (or the target of a declaration) of a named variable.
// ID is only meaningful once Resolved is set by ResolveIdentifiers.
type Identifier struct {
	SpanVal  Span
	Name     string // including the leading '$'
	ID       uint8
	Resolved bool
}

func (n *Identifier) Span() Span { return n.SpanVal }
func (n *Identifier) node()      {}
func (n *Identifier) operand()   {}

// Literal is a typed constant. Numeric types use Int, String uses Str.
type Literal struct {
	SpanVal Span
	Type    bytecode.ValueType
	Int     int64
	Str     string
}

func (n *Literal) Span() Span { return n.SpanVal }
func (n *Literal) node()      {}
func (n *Literal) operand()   {}

// ---------------------------------------------------------------------------
// Declarations and labels
// ---------------------------------------------------------------------------

// Declare introduces a variable of a fixed type with an initial value.
type Declare struct {
	SpanVal Span
	Type    bytecode.ValueType
	Target  *Identifier
	Value   *Literal
}

func (n *Declare) Span() Span { return n.SpanVal }
func (n *Declare) node()      {}

// Label marks a position in the stream. It occupies no bytes.
type Label struct {
	SpanVal Span
	Name    string
}

func (n *Label) Span() Span { return n.SpanVal }
func (n *Label) node()      {}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// Unary is Not, Inc or Dec applied in place to Target.
type Unary struct {
	SpanVal Span
	Op      bytecode.Opcode
	Target  *Identifier
}

func (n *Unary) Span() Span { return n.SpanVal }
func (n *Unary) node()      {}

// Binary computes Left Op Right into Target.
type Binary struct {
	SpanVal Span
	Op      bytecode.Opcode
	Target  *Identifier
	Left    Operand
	Right   Operand
}

func (n *Binary) Span() Span { return n.SpanVal }
func (n *Binary) node()      {}

// Assign copies Value into Target.
type Assign struct {
	SpanVal Span
	Target  *Identifier
	Value   Operand
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

// JumpTo moves the counter unconditionally. Either Address is set or Label
// names the destination until ResolveLabels fills Address in.
type JumpTo struct {
	SpanVal Span
	Label   string
	Address *Literal
}

func (n *JumpTo) Span() Span { return n.SpanVal }
func (n *JumpTo) node()      {}

// JumpIf moves the counter when Condition is truthy.
type JumpIf struct {
	SpanVal   Span
	Condition Operand
	Label     string
	Address   *Literal
}

func (n *JumpIf) Span() Span { return n.SpanVal }
func (n *JumpIf) node()      {}

// ---------------------------------------------------------------------------
// System instructions
// ---------------------------------------------------------------------------

type Halt struct{ SpanVal Span }

func (n *Halt) Span() Span { return n.SpanVal }
func (n *Halt) node()      {}

type Restart struct{ SpanVal Span }

func (n *Restart) Span() Span { return n.SpanVal }
func (n *Restart) node()      {}

type Noop struct{ SpanVal Span }

func (n *Noop) Span() Span { return n.SpanVal }
func (n *Noop) node()      {}

type SystemInfo struct{ SpanVal Span }

func (n *SystemInfo) Span() Span { return n.SpanVal }
func (n *SystemInfo) node()      {}

type Dump struct{ SpanVal Span }

func (n *Dump) Span() Span { return n.SpanVal }
func (n *Dump) node()      {}

type Yield struct{ SpanVal Span }

func (n *Yield) Span() Span { return n.SpanVal }
func (n *Yield) node()      {}

// Print emits Value to the trace sink.
type Print struct {
	SpanVal Span
	Value   Operand
}

func (n *Print) Span() Span { return n.SpanVal }
func (n *Print) node()      {}

// Debug toggles debug output on the controller.
type Debug struct {
	SpanVal Span
	Value   Operand
}

func (n *Debug) Span() Span { return n.SpanVal }
func (n *Debug) node()      {}

// Delay paces the next step by Value milliseconds.
type Delay struct {
	SpanVal Span
	Value   Operand
}

func (n *Delay) Span() Span { return n.SpanVal }
func (n *Delay) node()      {}

// Sleep behaves exactly like Delay.
type Sleep struct {
	SpanVal Span
	Value   Operand
}

func (n *Sleep) Span() Span { return n.SpanVal }
func (n *Sleep) node()      {}

// ---------------------------------------------------------------------------
// Pin IO
// ---------------------------------------------------------------------------

type IoWrite struct {
	SpanVal Span
	Pin     Operand
	Value   Operand
}

func (n *IoWrite) Span() Span { return n.SpanVal }
func (n *IoWrite) node()      {}

type IoRead struct {
	SpanVal Span
	Target  *Identifier
	Pin     Operand
}

func (n *IoRead) Span() Span { return n.SpanVal }
func (n *IoRead) node()      {}

type IoMode struct {
	SpanVal Span
	Pin     Operand
	Mode    Operand
}

func (n *IoMode) Span() Span { return n.SpanVal }
func (n *IoMode) node()      {}

type IoType struct {
	SpanVal Span
	Pin     Operand
	Kind    Operand
}

func (n *IoType) Span() Span { return n.SpanVal }
func (n *IoType) node()      {}

type IoAllOut struct{ SpanVal Span }

func (n *IoAllOut) Span() Span { return n.SpanVal }
func (n *IoAllOut) node()      {}

// ---------------------------------------------------------------------------
// Scratch memory
// ---------------------------------------------------------------------------

type MemGet struct {
	SpanVal Span
	Target  *Identifier
	Address Operand
}

func (n *MemGet) Span() Span { return n.SpanVal }
func (n *MemGet) node()      {}

type MemSet struct {
	SpanVal Span
	Address Operand
	Value   Operand
}

func (n *MemSet) Span() Span { return n.SpanVal }
func (n *MemSet) node()      {}

// MemCopy copies Length bytes from Src to Dest.
type MemCopy struct {
	SpanVal Span
	Dest    Operand
	Src     Operand
	Length  Operand
}

func (n *MemCopy) Span() Span { return n.SpanVal }
func (n *MemCopy) node()      {}
