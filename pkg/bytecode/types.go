package bytecode

import (
	"encoding/binary"
	"fmt"
)

// ValueType is the tag byte that precedes every operand payload.
type ValueType byte

const (
	TypeNull          ValueType = 0
	TypeIdentifier    ValueType = 1
	TypeByte          ValueType = 2
	TypePin           ValueType = 3
	TypeAddress       ValueType = 4
	TypeInteger       ValueType = 5
	TypeSignedInteger ValueType = 6
	TypeString        ValueType = 7
)

var typeNames = [...]string{
	TypeNull:          "Null",
	TypeIdentifier:    "Identifier",
	TypeByte:          "Byte",
	TypePin:           "Pin",
	TypeAddress:       "Address",
	TypeInteger:       "Integer",
	TypeSignedInteger: "SignedInteger",
	TypeString:        "String",
}

func (t ValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", byte(t))
}

// Valid reports whether t is one of the eight defined tags.
func (t ValueType) Valid() bool {
	return t <= TypeString
}

// IsNumeric reports whether payloads of this type are numbers.
func (t ValueType) IsNumeric() bool {
	switch t {
	case TypeByte, TypePin, TypeAddress, TypeInteger, TypeSignedInteger:
		return true
	}
	return false
}

// FixedWidth returns the payload width for fixed-size types. Strings are
// variable width and report ok=false.
func (t ValueType) FixedWidth() (width int, ok bool) {
	switch t {
	case TypeNull:
		return 0, true
	case TypeIdentifier, TypeByte, TypePin:
		return 1, true
	case TypeAddress, TypeInteger, TypeSignedInteger:
		return 4, true
	}
	return 0, false
}

// Range returns the inclusive numeric bounds representable by t.
func (t ValueType) Range() (lo, hi int64) {
	switch t {
	case TypeIdentifier, TypeByte, TypePin:
		return 0, 0xff
	case TypeAddress, TypeInteger:
		return 0, 0xffffffff
	case TypeSignedInteger:
		return -1 << 31, 1<<31 - 1
	}
	return 0, 0
}

// PutNumber encodes v as the payload of a numeric type. The caller must
// have range-checked v; values are truncated to the type width.
func PutNumber(t ValueType, v int64) []byte {
	switch t {
	case TypeIdentifier, TypeByte, TypePin:
		return []byte{byte(v)}
	case TypeAddress, TypeInteger, TypeSignedInteger:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v))
		return buf
	}
	return nil
}

// Number decodes a numeric payload. Integer and Address are unsigned,
// SignedInteger is two's complement.
func Number(t ValueType, payload []byte) int64 {
	switch t {
	case TypeIdentifier, TypeByte, TypePin:
		if len(payload) < 1 {
			return 0
		}
		return int64(payload[0])
	case TypeAddress, TypeInteger:
		if len(payload) < 4 {
			return 0
		}
		return int64(binary.LittleEndian.Uint32(payload))
	case TypeSignedInteger:
		if len(payload) < 4 {
			return 0
		}
		return int64(int32(binary.LittleEndian.Uint32(payload)))
	}
	return 0
}

// PutString encodes a string payload with its zero terminator.
func PutString(s string) []byte {
	buf := make([]byte, 0, len(s)+1)
	buf = append(buf, s...)
	return append(buf, 0)
}
