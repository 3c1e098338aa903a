package vm

import (
	"fmt"

	"github.com/chazu/pinvm/pkg/bytecode"
)

// Snapshot is a copy of the controller state between two steps. The code
// buffer is not included.
type Snapshot struct {
	Counter int         `cbor:"1,keyasint"`
	Pins    []byte      `cbor:"2,keyasint"`
	Modes   []byte      `cbor:"3,keyasint"`
	Kinds   []byte      `cbor:"4,keyasint"`
	Slots   []SlotState `cbor:"5,keyasint,omitempty"` // declared slots only
	Memory  []byte      `cbor:"6,keyasint"`
	Halted  bool        `cbor:"7,keyasint"`
	Debug   bool        `cbor:"8,keyasint"`
}

// SlotState is one non-empty variable slot.
type SlotState struct {
	ID   uint8              `cbor:"1,keyasint"`
	Type bytecode.ValueType `cbor:"2,keyasint"`
	Raw  []byte             `cbor:"3,keyasint"`
}

// Snapshot captures the current state.
func (p *Program) Snapshot() Snapshot {
	s := Snapshot{
		Counter: p.counter,
		Pins:    append([]byte(nil), p.pins[:]...),
		Modes:   append([]byte(nil), p.modes[:]...),
		Kinds:   append([]byte(nil), p.kinds[:]...),
		Memory:  p.Memory(),
		Halted:  p.halted,
		Debug:   p.debug,
	}
	for i, c := range p.slots {
		if c.Type == bytecode.TypeNull && c.ID == nil {
			continue
		}
		s.Slots = append(s.Slots, SlotState{
			ID:   uint8(i),
			Type: c.Type,
			Raw:  append([]byte(nil), c.Raw...),
		})
	}
	return s
}

// Restore replaces the state with s. The snapshot must fit this program's
// stream and memory.
func (p *Program) Restore(s Snapshot) error {
	if s.Counter < 0 || s.Counter > len(p.code) {
		return fmt.Errorf("snapshot counter %d outside a %d byte program", s.Counter, len(p.code))
	}
	if len(s.Pins) != NumPins || len(s.Modes) != NumPins || len(s.Kinds) != NumPins {
		return fmt.Errorf("snapshot pin tables must hold %d entries", NumPins)
	}
	if len(s.Memory) != len(p.memory) {
		return fmt.Errorf("snapshot memory is %d bytes, program has %d", len(s.Memory), len(p.memory))
	}

	p.counter = s.Counter
	copy(p.pins[:], s.Pins)
	copy(p.modes[:], s.Modes)
	copy(p.kinds[:], s.Kinds)
	copy(p.memory, s.Memory)
	p.halted = s.Halted
	p.debug = s.Debug

	p.slots = [NumSlots]Cell{}
	for _, slot := range s.Slots {
		id := slot.ID
		p.slots[id] = Cell{Type: slot.Type, Raw: append([]byte(nil), slot.Raw...), ID: &id}
	}
	return nil
}
