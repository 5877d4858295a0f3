package bytecode

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// DebugInfo is the symbol sidecar written next to an object file.
// It is never read by the interpreter; listings and debuggers use it to
// name addresses.
type DebugInfo struct {
	Program  string       `cbor:"1,keyasint"`
	CodeHash [32]byte     `cbor:"2,keyasint"` // sha256 of the code section it describes
	Methods  []MethodInfo `cbor:"3,keyasint,omitempty"`
	Globals  []VarInfo    `cbor:"4,keyasint,omitempty"`
	Lines    []LineEntry  `cbor:"5,keyasint,omitempty"`
}

// MethodInfo describes one compiled method.
type MethodInfo struct {
	Name    string `cbor:"1,keyasint"`
	Entry   int    `cbor:"2,keyasint"`
	Params  int    `cbor:"3,keyasint"`
	Locals  int    `cbor:"4,keyasint"`
	Returns string `cbor:"5,keyasint,omitempty"` // empty for void
}

// VarInfo describes a global variable slot.
type VarInfo struct {
	Name string `cbor:"1,keyasint"`
	Slot int    `cbor:"2,keyasint"`
	Type string `cbor:"3,keyasint"`
}

// LineEntry maps the first instruction of a statement to its source position.
type LineEntry struct {
	PC     int `cbor:"1,keyasint"`
	Line   int `cbor:"2,keyasint"`
	Column int `cbor:"3,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// AddLine records a statement start. Entries at the same PC collapse to the latest one,
// which happens when a statement emits no code.
func (d *DebugInfo) AddLine(pc, line, column int) {
	if n := len(d.Lines); n > 0 && d.Lines[n-1].PC == pc {
		d.Lines[n-1] = LineEntry{PC: pc, Line: line, Column: column}
		return
	}
	d.Lines = append(d.Lines, LineEntry{PC: pc, Line: line, Column: column})
}

// Bind records the hash of the code section the info belongs to.
func (d *DebugInfo) Bind(o *Object) {
	d.CodeHash = sha256.Sum256(o.Code)
}

// Matches reports whether the info was produced for o.
func (d *DebugInfo) Matches(o *Object) bool {
	return d.CodeHash == sha256.Sum256(o.Code)
}

// MethodAt returns the method whose entry is exactly pc.
func (d *DebugInfo) MethodAt(pc int) (MethodInfo, bool) {
	if d == nil {
		return MethodInfo{}, false
	}
	for _, m := range d.Methods {
		if m.Entry == pc {
			return m, true
		}
	}
	return MethodInfo{}, false
}

// LineAt returns the source position of the statement containing pc.
// Returns 0, 0 if no mapping exists.
func (d *DebugInfo) LineAt(pc int) (line, column int) {
	if d == nil {
		return 0, 0
	}
	i := sort.Search(len(d.Lines), func(i int) bool { return d.Lines[i].PC > pc })
	if i == 0 {
		return 0, 0
	}
	e := d.Lines[i-1]
	return e.Line, e.Column
}

// MarshalDebugInfo serializes debug info to canonical CBOR.
func MarshalDebugInfo(d *DebugInfo) ([]byte, error) {
	return cborEncMode.Marshal(d)
}

// UnmarshalDebugInfo deserializes debug info from CBOR bytes.
func UnmarshalDebugInfo(data []byte) (*DebugInfo, error) {
	var d DebugInfo
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal debug info: %w", err)
	}
	return &d, nil
}

// WriteDebugFile writes the sidecar to path.
func WriteDebugFile(path string, d *DebugInfo) error {
	data, err := MarshalDebugInfo(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// ReadDebugFile reads a sidecar written by WriteDebugFile.
func ReadDebugFile(path string) (*DebugInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalDebugInfo(data)
}
