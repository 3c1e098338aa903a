// Package bytecode defines the wire format shared by the pinvm compiler and
// virtual machine.
//
// A compiled program is a flat, headerless sequence of instructions. Each
// instruction is one opcode byte followed by zero or more tagged operands:
//
//	[opcode] [tag][payload] [tag][payload] ...
//
// The tag selects the payload width:
//
//   - Null: no payload
//   - Identifier, Byte, Pin: 1 byte
//   - Address, Integer: 4 bytes, unsigned little-endian
//   - SignedInteger: 4 bytes, two's complement little-endian
//   - String: raw ASCII bytes terminated by a single zero byte
//
// There is no magic number, length prefix or program header. A program ends
// at an explicit halt or at the end of the buffer. The opcode table is
// versioned by Version; any change to an opcode byte or operand layout is a
// breaking change to the format.
package bytecode
