package vm

import (
	"strconv"

	"github.com/chazu/pinvm/pkg/bytecode"
)

// Cell is one decoded value: a type tag and its raw payload. Stored in a
// variable slot it also carries the slot id.
//
// String payloads are kept without their zero terminator.
type Cell struct {
	Type bytecode.ValueType
	Raw  []byte
	ID   *uint8
}

// Clone returns a copy that shares no memory with c.
func (c Cell) Clone() Cell {
	out := Cell{Type: c.Type}
	if c.Raw != nil {
		out.Raw = append([]byte(nil), c.Raw...)
	}
	if c.ID != nil {
		id := *c.ID
		out.ID = &id
	}
	return out
}

// Int is the numeric payload of c. Non-numeric cells read as zero. A Pin
// reads as its pin number, not the pin's value.
func (c Cell) Int() int64 {
	return bytecode.Number(c.Type, c.Raw)
}

// Str is the payload of a String cell.
func (c Cell) Str() string {
	if c.Type != bytecode.TypeString {
		return ""
	}
	return string(c.Raw)
}

// String renders the payload without looking at pin state.
func (c Cell) String() string {
	switch {
	case c.Type == bytecode.TypeString:
		return string(c.Raw)
	case c.Type == bytecode.TypeNull:
		return "null"
	case c.Type.IsNumeric():
		return strconv.FormatInt(c.Int(), 10)
	}
	return "#" + strconv.FormatInt(c.Int(), 10)
}

// numberCell builds a cell of type t holding v, truncated to its width.
func numberCell(t bytecode.ValueType, v int64) Cell {
	return Cell{Type: t, Raw: bytecode.PutNumber(t, v)}
}

func stringCell(s string) Cell {
	return Cell{Type: bytecode.TypeString, Raw: []byte(s)}
}
