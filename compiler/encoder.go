package compiler

import (
	"fmt"

	"github.com/chazu/pinvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Encoder: per-variant size and serialization
// ---------------------------------------------------------------------------

// addressWidth is the encoded size of an Address operand: tag plus 4 bytes.
const addressWidth = 5

// shape is the opcode and operand slots of one instruction. A nil operand
// stands for a jump address that has not been resolved yet.
type shape struct {
	op       bytecode.Opcode
	operands []Operand
	empty    bool
}

// layout maps every variant to its fixed operand list. SizeOf and Serialize
// both walk the same shape, which keeps their results in agreement.
func layout(n Node) (shape, error) {
	switch n := n.(type) {
	case *Label:
		return shape{empty: true}, nil

	case *Declare:
		return instr(bytecode.OpDeclare, n.Target, n.Value)
	case *Assign:
		return instr(bytecode.OpAssign, n.Target, n.Value)
	case *Unary:
		switch n.Op {
		case bytecode.OpNot, bytecode.OpInc, bytecode.OpDec:
		default:
			return shape{}, encodingf("invalid unary operator %s", n.Op)
		}
		return instr(n.Op, n.Target)
	case *Binary:
		if !n.Op.IsBinary() {
			return shape{}, encodingf("invalid binary operator %s", n.Op)
		}
		return instr(n.Op, n.Target, n.Left, n.Right)

	case *JumpTo:
		return shape{op: bytecode.OpJumpTo, operands: []Operand{addressOperand(n.Address)}}, nil
	case *JumpIf:
		if isNilOperand(n.Condition) {
			return shape{}, encodingf("jump if without a condition")
		}
		return shape{op: bytecode.OpJumpIf, operands: []Operand{n.Condition, addressOperand(n.Address)}}, nil

	case *Halt:
		return instr(bytecode.OpHalt)
	case *Restart:
		return instr(bytecode.OpRestart)
	case *Noop:
		return instr(bytecode.OpNoop)
	case *SystemInfo:
		return instr(bytecode.OpSystemInfo)
	case *Dump:
		return instr(bytecode.OpDump)
	case *Yield:
		return instr(bytecode.OpYield)
	case *Print:
		return instr(bytecode.OpPrint, n.Value)
	case *Debug:
		return instr(bytecode.OpDebug, n.Value)
	case *Delay:
		return instr(bytecode.OpDelay, n.Value)
	case *Sleep:
		return instr(bytecode.OpSleep, n.Value)

	case *IoWrite:
		return instr(bytecode.OpIoWrite, n.Pin, n.Value)
	case *IoRead:
		return instr(bytecode.OpIoRead, n.Target, n.Pin)
	case *IoMode:
		return instr(bytecode.OpIoMode, n.Pin, n.Mode)
	case *IoType:
		return instr(bytecode.OpIoType, n.Pin, n.Kind)
	case *IoAllOut:
		return instr(bytecode.OpIoAllOut)

	case *MemGet:
		return instr(bytecode.OpMemGet, n.Target, n.Address)
	case *MemSet:
		return instr(bytecode.OpMemSet, n.Address, n.Value)
	case *MemCopy:
		return instr(bytecode.OpMemCopy, n.Dest, n.Src, n.Length)

	case *Identifier, *Literal:
		return shape{}, encodingf("operand %T cannot appear as an instruction", n)
	}
	return shape{}, encodingf("unknown node %T", n)
}

// instr builds a shape, rejecting missing operands. Typed nil pointers
// (a nil *Identifier stored in an Operand) are caught here too.
func instr(op bytecode.Opcode, operands ...Operand) (shape, error) {
	for i, o := range operands {
		if isNilOperand(o) {
			return shape{}, encodingf("%s: missing operand %d", op, i+1)
		}
	}
	return shape{op: op, operands: operands}, nil
}

func isNilOperand(o Operand) bool {
	switch o := o.(type) {
	case nil:
		return true
	case *Identifier:
		return o == nil
	case *Literal:
		return o == nil
	}
	return false
}

// addressOperand returns nil for an unresolved jump.
func addressOperand(l *Literal) Operand {
	if l == nil {
		return nil
	}
	return l
}

// SizeOf returns the number of bytes Serialize produces for n.
func SizeOf(n Node) (int, error) {
	s, err := layout(n)
	if err != nil {
		return 0, err
	}
	if s.empty {
		return 0, nil
	}
	size := 1
	for _, o := range s.operands {
		size += operandSize(o)
	}
	return size, nil
}

func operandSize(o Operand) int {
	switch o := o.(type) {
	case nil:
		return addressWidth
	case *Identifier:
		return 2
	case *Literal:
		if o.Type == bytecode.TypeString {
			return 1 + len(o.Str) + 1
		}
		width, _ := o.Type.FixedWidth()
		return 1 + width
	}
	return 0
}

// Serialize encodes n as opcode byte plus tagged operands.
func Serialize(n Node) ([]byte, error) {
	s, err := layout(n)
	if err != nil {
		return nil, err
	}
	if s.empty {
		return nil, nil
	}
	out := []byte{byte(s.op)}
	for _, o := range s.operands {
		enc, err := encodeOperand(o)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.op, err)
		}
		out = append(out, enc...)
	}
	return out, nil
}

func encodeOperand(o Operand) ([]byte, error) {
	switch o := o.(type) {
	case nil:
		return nil, encodingf("unresolved jump address")
	case *Identifier:
		if !o.Resolved {
			return nil, encodingf("identifier %s has no slot id", o.Name)
		}
		return []byte{byte(bytecode.TypeIdentifier), o.ID}, nil
	case *Literal:
		return EncodeLiteral(o)
	}
	return nil, encodingf("unknown operand %T", o)
}

// EncodeLiteral returns the tagged wire form of a literal value.
func EncodeLiteral(l *Literal) ([]byte, error) {
	tag := byte(l.Type)
	switch l.Type {
	case bytecode.TypeNull:
		return []byte{tag}, nil

	case bytecode.TypeString:
		for i := 0; i < len(l.Str); i++ {
			c := l.Str[i]
			if c == 0 {
				return nil, encodingf("string contains a zero byte at %d", i)
			}
			if c > 0x7f {
				return nil, encodingf("string contains non-ASCII byte 0x%02x at %d", c, i)
			}
		}
		return append([]byte{tag}, bytecode.PutString(l.Str)...), nil

	case bytecode.TypeIdentifier, bytecode.TypeByte, bytecode.TypePin,
		bytecode.TypeAddress, bytecode.TypeInteger, bytecode.TypeSignedInteger:
		lo, hi := l.Type.Range()
		if l.Int < 0 && lo == 0 {
			return nil, encodingf("negative value %d where unsigned %s is required", l.Int, l.Type)
		}
		if l.Int < lo || l.Int > hi {
			return nil, encodingf("value %d out of range for %s", l.Int, l.Type)
		}
		return append([]byte{tag}, bytecode.PutNumber(l.Type, l.Int)...), nil
	}
	return nil, encodingf("unknown value type %d", byte(l.Type))
}
