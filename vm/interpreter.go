package vm

import (
	"fmt"
	"time"

	"github.com/chazu/pinvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Fetch, decode, execute
// ---------------------------------------------------------------------------

// Step executes exactly one instruction. Reaching the end of the stream
// stops the clock. A fault leaves the counter at the failing instruction
// and is returned to whoever drove the step.
func (p *Program) Step() error {
	if p.counter >= len(p.code) {
		p.halt()
		return nil
	}
	p.halted = false
	p.start = p.counter

	if err := p.execute(); err != nil {
		p.counter = p.start
		p.halted = true
		p.log.Errorf("%s", err)
		return err
	}

	if p.counter >= len(p.code) {
		p.halt()
	}
	return nil
}

func (p *Program) execute() error {
	b, err := p.readByte()
	if err != nil {
		return err
	}
	op := bytecode.Opcode(b)

	if op.IsBinary() {
		return p.binary(op)
	}

	switch op {
	case bytecode.OpNoop:
		p.trace(op)
		return nil

	case bytecode.OpHalt:
		p.trace(op)
		p.halt()
		return nil

	case bytecode.OpRestart, bytecode.OpSystemInfo, bytecode.OpDump, bytecode.OpYield, bytecode.OpIoAllOut:
		return p.system(op)

	case bytecode.OpDebug:
		v, err := p.value()
		if err != nil {
			return err
		}
		if p.debug, err = p.truthy(v); err != nil {
			return err
		}
		p.trace(op, onOff(p.debug))
		return nil

	case bytecode.OpPrint:
		v, err := p.value()
		if err != nil {
			return err
		}
		p.trace(op, p.render(v))
		return nil

	case bytecode.OpDelay, bytecode.OpSleep:
		return p.delay(op)

	case bytecode.OpJumpTo:
		return p.jumpTo(op)
	case bytecode.OpJumpIf:
		return p.jumpIf(op)

	case bytecode.OpDeclare:
		return p.declare(op)
	case bytecode.OpAssign:
		return p.assign(op)
	case bytecode.OpNot, bytecode.OpInc, bytecode.OpDec:
		return p.unary(op)

	case bytecode.OpIoWrite:
		return p.ioWrite(op)
	case bytecode.OpIoRead:
		return p.ioRead(op)
	case bytecode.OpIoMode, bytecode.OpIoType:
		return p.ioConfigure(op)

	case bytecode.OpMemGet:
		return p.memGet(op)
	case bytecode.OpMemSet:
		return p.memSet(op)
	case bytecode.OpMemCopy:
		return p.memCopy(op)
	}

	return p.faultf("invalid opcode 0x%02x", b)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// system handles the instructions that only report themselves, plus
// IoAllOut which switches every pin to output.
func (p *Program) system(op bytecode.Opcode) error {
	switch op {
	case bytecode.OpIoAllOut:
		for i := range p.modes {
			p.modes[i] = ModeOutput
		}
	case bytecode.OpSystemInfo:
		p.trace(op, fmt.Sprintf("%d bytes, counter %d, memory %d", len(p.code), p.counter, len(p.memory)))
		return nil
	case bytecode.OpDump:
		p.trace(op, fmt.Sprintf("% x", p.code))
		return nil
	}
	p.trace(op)
	return nil
}

func (p *Program) delay(op bytecode.Opcode) error {
	v, err := p.value()
	if err != nil {
		return err
	}
	ms, err := p.number(v)
	if err != nil {
		return err
	}
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond
	if d > p.maxDelay {
		d = p.maxDelay
	}
	p.trace(op, d.Milliseconds())
	p.clock.Delay(d)
	return nil
}

// jumpTarget decodes an address operand and checks it lies in the stream.
// The end of the stream is a valid target; it halts.
func (p *Program) jumpTarget() (int, error) {
	v, err := p.value()
	if err != nil {
		return 0, err
	}
	addr, err := p.number(v)
	if err != nil {
		return 0, err
	}
	if addr < 0 || addr > int64(len(p.code)) {
		return 0, p.faultf("jump to %d outside the program", addr)
	}
	return int(addr), nil
}

func (p *Program) jumpTo(op bytecode.Opcode) error {
	addr, err := p.jumpTarget()
	if err != nil {
		return err
	}
	p.counter = addr
	p.trace(op, "to", addr)
	return nil
}

func (p *Program) jumpIf(op bytecode.Opcode) error {
	cond, err := p.value()
	if err != nil {
		return err
	}
	addr, err := p.jumpTarget()
	if err != nil {
		return err
	}
	ok, err := p.truthy(cond)
	if err != nil {
		return err
	}
	if ok {
		p.counter = addr
		p.trace(op, addr)
	}
	return nil
}

func (p *Program) declare(op bytecode.Opcode) error {
	target, err := p.operand()
	if err != nil {
		return err
	}
	if target.Type != bytecode.TypeIdentifier {
		return p.faultf("expected Identifier, found %s", target.Type)
	}
	v, err := p.value()
	if err != nil {
		return err
	}

	id := target.Raw[0]
	v.ID = &id
	p.slots[id] = v
	p.trace(op, fmt.Sprintf("#%d, %s, %s", id, v.Type, p.render(v)))
	return nil
}

// assign copies the source payload into the target slot, keeping its id.
func (p *Program) assign(op bytecode.Opcode) error {
	cell, id, err := p.handle()
	if err != nil {
		return err
	}
	v, err := p.value()
	if err != nil {
		return err
	}

	cell.Type = v.Type
	cell.Raw = v.Raw
	p.trace(op, fmt.Sprintf("#%d = %s", id, p.render(*cell)))
	return nil
}

func (p *Program) unary(op bytecode.Opcode) error {
	cell, id, err := p.handle()
	if err != nil {
		return err
	}

	var v int64
	switch op {
	case bytecode.OpNot:
		t, err := p.truthy(*cell)
		if err != nil {
			return err
		}
		if !t {
			v = 1
		}
	default:
		switch cell.Type {
		case bytecode.TypeString:
			return p.faultf("cannot %s a String", op)
		case bytecode.TypePin:
			v = cell.Int()
		default:
			if v, err = p.number(*cell); err != nil {
				return err
			}
		}
		if op == bytecode.OpInc {
			v++
		} else {
			v--
		}
	}

	store(cell, v)
	p.trace(op, fmt.Sprintf("#%d = %s", id, cell))
	return nil
}

func (p *Program) binary(op bytecode.Opcode) error {
	cell, id, err := p.handle()
	if err != nil {
		return err
	}
	a, err := p.value()
	if err != nil {
		return err
	}
	b, err := p.value()
	if err != nil {
		return err
	}

	if op == bytecode.OpAdd && (a.Type == bytecode.TypeString || b.Type == bytecode.TypeString) {
		s := stringCell(p.render(a) + p.render(b))
		cell.Type, cell.Raw = s.Type, s.Raw
		p.trace(op, fmt.Sprintf("#%d = %s", id, cell))
		return nil
	}

	x, err := p.number(a)
	if err != nil {
		return err
	}
	y, err := p.number(b)
	if err != nil {
		return err
	}
	v, err := p.arithmetic(op, x, y)
	if err != nil {
		return err
	}

	store(cell, v)
	p.trace(op, fmt.Sprintf("#%d = %s", id, p.render(*cell)))
	return nil
}

func (p *Program) arithmetic(op bytecode.Opcode, x, y int64) (int64, error) {
	switch op {
	case bytecode.OpGt:
		return boolInt(x > y), nil
	case bytecode.OpGte:
		return boolInt(x >= y), nil
	case bytecode.OpLt:
		return boolInt(x < y), nil
	case bytecode.OpLte:
		return boolInt(x <= y), nil
	case bytecode.OpEqual:
		return boolInt(x == y), nil
	case bytecode.OpNotEqual:
		return boolInt(x != y), nil
	case bytecode.OpXor:
		return x ^ y, nil
	case bytecode.OpAnd:
		return x & y, nil
	case bytecode.OpOr:
		return x | y, nil
	case bytecode.OpAdd:
		return x + y, nil
	case bytecode.OpSub:
		return x - y, nil
	case bytecode.OpMul:
		return x * y, nil
	case bytecode.OpDiv, bytecode.OpMod:
		if y == 0 {
			return 0, p.faultf("division by zero")
		}
		if op == bytecode.OpDiv {
			return x / y, nil
		}
		return x % y, nil
	}
	return 0, p.faultf("invalid operator %s", op)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Pins
// ---------------------------------------------------------------------------

func (p *Program) ioWrite(op bytecode.Opcode) error {
	pin, err := p.value()
	if err != nil {
		return err
	}
	v, err := p.value()
	if err != nil {
		return err
	}
	idx, err := p.pinIndex(pin)
	if err != nil {
		return err
	}
	on, err := p.truthy(v)
	if err != nil {
		return err
	}

	p.pins[idx] = byte(boolInt(on))
	p.trace(op, fmt.Sprintf("pin %d, %d", idx, p.pins[idx]))
	return nil
}

func (p *Program) ioRead(op bytecode.Opcode) error {
	cell, id, err := p.handle()
	if err != nil {
		return err
	}
	pin, err := p.value()
	if err != nil {
		return err
	}
	idx, err := p.pinIndex(pin)
	if err != nil {
		return err
	}

	store(cell, int64(p.pins[idx]))
	p.trace(op, fmt.Sprintf("#%d, pin %d", id, idx))
	return nil
}

// ioConfigure sets a pin mode (0..3) or type (0..4). Values outside the
// range are reported and ignored.
func (p *Program) ioConfigure(op bytecode.Opcode) error {
	pin, err := p.value()
	if err != nil {
		return err
	}
	v, err := p.value()
	if err != nil {
		return err
	}
	idx, err := p.pinIndex(pin)
	if err != nil {
		return err
	}
	n, err := p.number(v)
	if err != nil {
		return err
	}

	table, limit := &p.modes, int64(ModeInputPullDown)
	if op == bytecode.OpIoType {
		table, limit = &p.kinds, MaxPinType
	}
	if n < 0 || n > limit {
		p.trace(op, fmt.Sprintf("pin %d, %d ignored", idx, n))
		return nil
	}

	table[idx] = byte(n)
	p.trace(op, fmt.Sprintf("pin %d, %d", idx, n))
	return nil
}

// ---------------------------------------------------------------------------
// Scratch memory
// ---------------------------------------------------------------------------

// memGet reads as many bytes as the target's type holds. String targets
// read up to the next zero byte.
func (p *Program) memGet(op bytecode.Opcode) error {
	cell, id, err := p.handle()
	if err != nil {
		return err
	}
	at, err := p.value()
	if err != nil {
		return err
	}

	t := cell.Type
	if t == bytecode.TypeNull || t == bytecode.TypeIdentifier {
		t = bytecode.TypeByte
	}

	var raw []byte
	if t == bytecode.TypeString {
		addr, err := p.address(at, 0)
		if err != nil {
			return err
		}
		end := addr
		for end < len(p.memory) && p.memory[end] != 0 {
			end++
		}
		raw = append([]byte(nil), p.memory[addr:end]...)
	} else {
		width, _ := t.FixedWidth()
		addr, err := p.address(at, width)
		if err != nil {
			return err
		}
		raw = append([]byte(nil), p.memory[addr:addr+width]...)
	}

	cell.Type, cell.Raw = t, raw
	p.trace(op, fmt.Sprintf("#%d, %d", id, at.Int()))
	return nil
}

// memSet writes the value's payload; strings include their terminator.
func (p *Program) memSet(op bytecode.Opcode) error {
	at, err := p.value()
	if err != nil {
		return err
	}
	v, err := p.value()
	if err != nil {
		return err
	}

	payload := v.Raw
	if v.Type == bytecode.TypeString {
		payload = append(append([]byte(nil), v.Raw...), 0)
	}
	addr, err := p.address(at, len(payload))
	if err != nil {
		return err
	}

	copy(p.memory[addr:], payload)
	p.trace(op, fmt.Sprintf("%d, %d bytes", addr, len(payload)))
	return nil
}

func (p *Program) memCopy(op bytecode.Opcode) error {
	dst, err := p.value()
	if err != nil {
		return err
	}
	src, err := p.value()
	if err != nil {
		return err
	}
	length, err := p.value()
	if err != nil {
		return err
	}

	n, err := p.number(length)
	if err != nil {
		return err
	}
	if n < 0 || n > int64(len(p.memory)) {
		return p.faultf("memory copy of %d bytes out of range", n)
	}
	to, err := p.address(dst, int(n))
	if err != nil {
		return err
	}
	from, err := p.address(src, int(n))
	if err != nil {
		return err
	}

	copy(p.memory[to:to+int(n)], p.memory[from:from+int(n)])
	p.trace(op, fmt.Sprintf("%d, %d, %d", to, from, n))
	return nil
}
