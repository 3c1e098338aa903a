package bytecode

import "fmt"

// Version is the current revision of the opcode table. Streams carry no
// header, so producers and consumers must agree on it out of band.
const Version uint16 = 1

// Opcode identifies a single instruction.
// Opcodes are organized into ranges by category.
type Opcode byte

const (
	// ========================================================================
	// System instructions (0x01-0x1F)
	// ========================================================================

	OpNoop       Opcode = 0x01 // No operation
	OpHalt       Opcode = 0x02 // Stop the clock
	OpRestart    Opcode = 0x03 // Placeholder, trace only
	OpSystemInfo Opcode = 0x04 // Placeholder, trace only
	OpDebug      Opcode = 0x05 // OpDebug <value>
	OpDump       Opcode = 0x06 // Placeholder, trace only
	OpYield      Opcode = 0x07 // Placeholder, trace only
	OpDelay      Opcode = 0x08 // OpDelay <value:ms>
	OpPrint      Opcode = 0x09 // OpPrint <value>
	OpJumpTo     Opcode = 0x0a // OpJumpTo <address>
	OpJumpIf     Opcode = 0x0b // OpJumpIf <value> <address>
	OpSleep      Opcode = 0x0c // OpSleep <value:ms>
	OpDeclare    Opcode = 0x0d // OpDeclare <identifier> <value>

	// ========================================================================
	// Operators (0x20-0x3F)
	// ========================================================================

	OpGt       Opcode = 0x20 // OpGt <target> <a> <b>
	OpGte      Opcode = 0x21
	OpLt       Opcode = 0x22
	OpLte      Opcode = 0x23
	OpEqual    Opcode = 0x24
	OpNotEqual Opcode = 0x25
	OpXor      Opcode = 0x26
	OpAnd      Opcode = 0x27
	OpOr       Opcode = 0x28
	OpAdd      Opcode = 0x29
	OpSub      Opcode = 0x2a
	OpMul      Opcode = 0x2b
	OpDiv      Opcode = 0x2c
	OpMod      Opcode = 0x2d

	OpNot Opcode = 0x2e // OpNot <target>
	OpInc Opcode = 0x2f // OpInc <target>
	OpDec Opcode = 0x30 // OpDec <target>

	OpAssign Opcode = 0x31 // OpAssign <target> <value>

	// ========================================================================
	// Memory and IO (0x40-0x5F)
	// ========================================================================

	OpMemGet   Opcode = 0x40 // OpMemGet <target> <address>
	OpMemSet   Opcode = 0x41 // OpMemSet <address> <value>
	OpMemCopy  Opcode = 0x42 // OpMemCopy <dest:address> <src:address> <length>
	OpIoWrite  Opcode = 0x43 // OpIoWrite <pin> <value>
	OpIoRead   Opcode = 0x44 // OpIoRead <target> <pin>
	OpIoMode   Opcode = 0x45 // OpIoMode <pin> <mode>
	OpIoType   Opcode = 0x46 // OpIoType <pin> <type>
	OpIoAllOut Opcode = 0x47 // Every pin to output
)

// OpcodeInfo provides metadata about each opcode for tracing and validation.
type OpcodeInfo struct {
	Name     string // Human-readable name
	Operands int    // Number of tagged operands following the opcode
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNoop:       {"noop", 0},
	OpHalt:       {"halt", 0},
	OpRestart:    {"restart", 0},
	OpSystemInfo: {"sysinfo", 0},
	OpDebug:      {"debug", 1},
	OpDump:       {"dump", 0},
	OpYield:      {"yield", 0},
	OpDelay:      {"delay", 1},
	OpPrint:      {"print", 1},
	OpJumpTo:     {"jump", 1},
	OpJumpIf:     {"jump if", 2},
	OpSleep:      {"sleep", 1},
	OpDeclare:    {"declare", 2},

	OpGt:       {">", 3},
	OpGte:      {">=", 3},
	OpLt:       {"<", 3},
	OpLte:      {"<=", 3},
	OpEqual:    {"==", 3},
	OpNotEqual: {"!=", 3},
	OpXor:      {"^", 3},
	OpAnd:      {"&", 3},
	OpOr:       {"|", 3},
	OpAdd:      {"+", 3},
	OpSub:      {"-", 3},
	OpMul:      {"*", 3},
	OpDiv:      {"/", 3},
	OpMod:      {"%", 3},

	OpNot: {"not", 1},
	OpInc: {"inc", 1},
	OpDec: {"dec", 1},

	OpAssign: {"assign", 2},

	OpMemGet:   {"mem get", 2},
	OpMemSet:   {"mem set", 2},
	OpMemCopy:  {"mem copy", 3},
	OpIoWrite:  {"io write", 2},
	OpIoRead:   {"io read", 2},
	OpIoMode:   {"io mode", 2},
	OpIoType:   {"io type", 2},
	OpIoAllOut: {"io allout", 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// The second result is false if the opcode is not part of the table.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// Valid reports whether op is part of the opcode table.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	if info, ok := opcodeInfoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", byte(op))
}

// IsBinary returns true for the three-operand arithmetic, comparison and
// logic opcodes.
func (op Opcode) IsBinary() bool {
	return op >= OpGt && op <= OpMod
}

// IsComparison returns true if the opcode writes 0 or 1 into its target.
func (op Opcode) IsComparison() bool {
	return op >= OpGt && op <= OpNotEqual
}

// IsJump returns true if this opcode can move the counter.
func (op Opcode) IsJump() bool {
	return op == OpJumpTo || op == OpJumpIf
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
