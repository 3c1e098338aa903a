package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info, ok := GetOpcodeInfo(op)
		if !ok || info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02x has no metadata", byte(op))
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	if got := OpcodeCount(); got != 39 {
		t.Errorf("OpcodeCount() = %d, want 39", got)
	}
}

func TestOpcodeBytes(t *testing.T) {
	tests := []struct {
		op   Opcode
		want byte
	}{
		{OpNoop, 0x01},
		{OpHalt, 0x02},
		{OpJumpTo, 0x0a},
		{OpJumpIf, 0x0b},
		{OpDeclare, 0x0d},
		{OpGt, 0x20},
		{OpNot, 0x2e},
		{OpInc, 0x2f},
		{OpDec, 0x30},
		{OpAssign, 0x31},
		{OpMemGet, 0x40},
		{OpMemCopy, 0x42},
		{OpIoAllOut, 0x47},
	}

	for _, tt := range tests {
		if byte(tt.op) != tt.want {
			t.Errorf("%s = 0x%02x, want 0x%02x", tt.op, byte(tt.op), tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE)
	if op.Valid() {
		t.Fatal("0xEE should not be valid")
	}
	if got := op.String(); got != "UNKNOWN(0xee)" {
		t.Errorf("String() = %q, want UNKNOWN(0xee)", got)
	}
}

func TestOpcodeCategories(t *testing.T) {
	for _, op := range AllOpcodes() {
		info, _ := GetOpcodeInfo(op)
		if op.IsBinary() && info.Operands != 3 {
			t.Errorf("%s is binary but takes %d operands", op, info.Operands)
		}
	}
	if !OpEqual.IsComparison() || OpAdd.IsComparison() {
		t.Error("comparison classification is wrong")
	}
	if !OpJumpIf.IsJump() || OpHalt.IsJump() {
		t.Error("jump classification is wrong")
	}
}
