package vm

import (
	"bytes"
	"strconv"

	"github.com/chazu/pinvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Operand decoding
// ---------------------------------------------------------------------------

func (p *Program) readByte() (byte, error) {
	if p.counter >= len(p.code) {
		return 0, p.faultf("unexpected end of stream")
	}
	b := p.code[p.counter]
	p.counter++
	return b, nil
}

// operand decodes one tagged operand as written, without dereferencing
// identifiers. The payload is copied out of the stream.
func (p *Program) operand() (Cell, error) {
	tag, err := p.readByte()
	if err != nil {
		return Cell{}, err
	}
	t := bytecode.ValueType(tag)

	if t == bytecode.TypeString {
		end := bytes.IndexByte(p.code[p.counter:], 0)
		if end < 0 {
			return Cell{}, p.faultf("unterminated string")
		}
		raw := append([]byte(nil), p.code[p.counter:p.counter+end]...)
		p.counter += end + 1
		return Cell{Type: t, Raw: raw}, nil
	}

	width, ok := t.FixedWidth()
	if !ok {
		return Cell{}, p.faultf("invalid value type 0x%02x", tag)
	}
	if p.counter+width > len(p.code) {
		return Cell{}, p.faultf("truncated %s operand", t)
	}
	raw := append([]byte(nil), p.code[p.counter:p.counter+width]...)
	p.counter += width
	return Cell{Type: t, Raw: raw}, nil
}

// value decodes an operand as an owned copy. Identifier operands yield a
// copy of the slot they name.
func (p *Program) value() (Cell, error) {
	c, err := p.operand()
	if err != nil {
		return Cell{}, err
	}
	if c.Type == bytecode.TypeIdentifier {
		return p.slots[c.Raw[0]].Clone(), nil
	}
	return c, nil
}

// handle decodes an Identifier operand and returns the slot itself, so the
// caller mutates it in place.
func (p *Program) handle() (*Cell, uint8, error) {
	c, err := p.operand()
	if err != nil {
		return nil, 0, err
	}
	if c.Type != bytecode.TypeIdentifier {
		return nil, 0, p.faultf("expected Identifier, found %s", c.Type)
	}
	id := c.Raw[0]
	return &p.slots[id], id, nil
}

// ---------------------------------------------------------------------------
// Value views
// ---------------------------------------------------------------------------

// number is the numeric view of c. A Pin reads as the current value of the
// pin it names.
func (p *Program) number(c Cell) (int64, error) {
	switch {
	case c.Type == bytecode.TypePin:
		idx, err := p.pinIndex(c)
		if err != nil {
			return 0, err
		}
		return int64(p.pins[idx]), nil
	case c.Type == bytecode.TypeNull:
		return 0, nil
	case c.Type.IsNumeric():
		return c.Int(), nil
	}
	return 0, p.faultf("expected a number, found %s", c.Type)
}

// truthy is true for a nonzero number or a non-empty string.
func (p *Program) truthy(c Cell) (bool, error) {
	if c.Type == bytecode.TypeString {
		return len(c.Raw) > 0, nil
	}
	n, err := p.number(c)
	return n != 0, err
}

// pinIndex is c used as a pin number. For a Pin this is the payload itself.
func (p *Program) pinIndex(c Cell) (int, error) {
	if !c.Type.IsNumeric() {
		return 0, p.faultf("expected a pin, found %s", c.Type)
	}
	idx := c.Int()
	if idx < 0 || idx >= NumPins {
		return 0, p.faultf("pin %d out of range", idx)
	}
	return int(idx), nil
}

// address is c used as a memory offset, checked so that n bytes fit.
func (p *Program) address(c Cell, n int) (int, error) {
	addr, err := p.number(c)
	if err != nil {
		return 0, err
	}
	if addr < 0 || addr+int64(n) > int64(len(p.memory)) {
		return 0, p.faultf("memory access %d+%d out of range", addr, n)
	}
	return int(addr), nil
}

// render formats c for print and string concatenation.
func (p *Program) render(c Cell) string {
	if c.Type == bytecode.TypePin {
		if n, err := p.number(c); err == nil {
			return strconv.FormatInt(n, 10)
		}
	}
	return c.String()
}

// store writes v into the cell in its own type. Empty slots become
// Integer; String slots take the decimal rendering.
func store(cell *Cell, v int64) {
	switch t := cell.Type; {
	case t == bytecode.TypeString:
		cell.Raw = []byte(strconv.FormatInt(v, 10))
	case t.IsNumeric():
		cell.Raw = bytecode.PutNumber(t, v)
	default:
		cell.Type = bytecode.TypeInteger
		cell.Raw = bytecode.PutNumber(bytecode.TypeInteger, v)
	}
}
