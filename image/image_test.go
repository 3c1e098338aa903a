package image

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/pinvm/clock"
	"github.com/chazu/pinvm/compiler"
	"github.com/chazu/pinvm/pkg/bytecode"
	"github.com/chazu/pinvm/vm"
)

const blink = `
pin $led = pin(2)
byte $on = 1
loop:
  io write $led, $on
  not $on
  delay 500
  jump loop
`

func build(t *testing.T, source string) *Artifact {
	t.Helper()
	r, err := compiler.Build(source)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return FromResult(r)
}

func TestArtifactRoundTrip(t *testing.T) {
	a := build(t, blink)

	data, err := MarshalArtifact(a)
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	got, err := UnmarshalArtifact(data)
	if err != nil {
		t.Fatalf("UnmarshalArtifact: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Errorf("round trip = %+v, want %+v", got, a)
	}

	if id, ok := got.Slot("$on"); !ok || id != 1 {
		t.Errorf("Slot($on) = %d, %v", id, ok)
	}
	if _, ok := got.Slot("$missing"); ok {
		t.Error("Slot found an undeclared name")
	}
	if got.Types["$led"] != bytecode.TypePin {
		t.Errorf("Types[$led] = %s", got.Types["$led"])
	}
}

func TestArtifactEncodingIsDeterministic(t *testing.T) {
	first, err := MarshalArtifact(build(t, blink))
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	second, err := MarshalArtifact(build(t, blink))
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("encodings of the same program differ")
	}
}

func TestArtifactVersionMismatch(t *testing.T) {
	a := build(t, "halt")
	a.Version = bytecode.Version + 1
	data, err := MarshalArtifact(a)
	if err != nil {
		t.Fatalf("MarshalArtifact: %v", err)
	}
	_, err = UnmarshalArtifact(data)
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("UnmarshalArtifact error = %v, want version mismatch", err)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := UnmarshalArtifact([]byte{0xff, 0x00}); err == nil {
		t.Error("UnmarshalArtifact accepted garbage")
	}
	if _, err := UnmarshalSnapshot([]byte{0xff, 0x00}); err == nil {
		t.Error("UnmarshalSnapshot accepted garbage")
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blink.pvm")
	a := build(t, blink)
	if err := WriteFile(path, a); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got.Code, a.Code) {
		t.Errorf("code = % x, want % x", got.Code, a.Code)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	a := build(t, "uint $n = 3\nio write 1, 1\nmem set 4, $n\nhalt")
	clk := clock.NewSynchronous()
	p := vm.Load(a.Code, clk, nil)
	if err := clk.Step(10); err != nil {
		t.Fatalf("Step: %v", err)
	}

	snap := p.Snapshot()
	data, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	got, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Errorf("snapshot round trip differs:\n%+v\n%+v", got, snap)
	}

	q := vm.Load(a.Code, clock.NewSynchronous(), nil)
	if err := q.Restore(got); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !q.Halted() || q.Memory()[4] != 3 {
		t.Errorf("restored program: halted = %v, memory[4] = %d", q.Halted(), q.Memory()[4])
	}
}
