// Package image stores compiled programs and machine snapshots as CBOR.
//
// The raw opcode stream has no header. An image wraps it with the opcode
// table version and the symbol tables the compiler produced, so tools can
// name slots and labels without recompiling.
package image

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/pinvm/compiler"
	"github.com/chazu/pinvm/pkg/bytecode"
	"github.com/chazu/pinvm/vm"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Artifact is a compiled program with its symbol tables.
type Artifact struct {
	Version uint16                        `cbor:"1,keyasint"`
	Code    []byte                        `cbor:"2,keyasint"`
	Names   []string                      `cbor:"3,keyasint,omitempty"`
	Types   map[string]bytecode.ValueType `cbor:"4,keyasint,omitempty"`
	Labels  map[string]int                `cbor:"5,keyasint,omitempty"`
}

// FromResult wraps a compilation result at the current opcode version.
func FromResult(r *compiler.Result) *Artifact {
	return &Artifact{
		Version: bytecode.Version,
		Code:    r.Code,
		Names:   r.Names,
		Types:   r.Types,
		Labels:  r.Labels,
	}
}

// Slot returns the slot id of an identifier.
func (a *Artifact) Slot(name string) (uint8, bool) {
	for i, n := range a.Names {
		if n == name {
			return uint8(i), true
		}
	}
	return 0, false
}

// MarshalArtifact serializes an Artifact to CBOR bytes.
func MarshalArtifact(a *Artifact) ([]byte, error) {
	return cborEncMode.Marshal(a)
}

// UnmarshalArtifact deserializes an Artifact and checks its version.
func UnmarshalArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := cbor.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("image: unmarshal artifact: %w", err)
	}
	if a.Version != bytecode.Version {
		return nil, fmt.Errorf("image: artifact version %d, want %d", a.Version, bytecode.Version)
	}
	return &a, nil
}

// MarshalSnapshot serializes a machine snapshot to CBOR bytes.
func MarshalSnapshot(s vm.Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a machine snapshot.
func UnmarshalSnapshot(data []byte) (vm.Snapshot, error) {
	var s vm.Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return vm.Snapshot{}, fmt.Errorf("image: unmarshal snapshot: %w", err)
	}
	return s, nil
}

// WriteFile writes an artifact to path.
func WriteFile(path string, a *Artifact) error {
	data, err := MarshalArtifact(a)
	if err != nil {
		return fmt.Errorf("image: marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("image: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads an artifact from path.
func ReadFile(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: read %s: %w", path, err)
	}
	return UnmarshalArtifact(data)
}
