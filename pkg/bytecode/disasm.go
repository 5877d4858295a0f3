package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the object.
func (o *Object) Disassemble() string {
	return o.DisassembleWithInfo(nil)
}

// DisassembleWithInfo returns a listing annotated with method names and
// source lines from d. A nil d produces a plain listing.
func (o *Object) DisassembleWithInfo(d *DebugInfo) string {
	var sb strings.Builder

	if d != nil && d.Program != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", d.Program))
	}
	sb.WriteString("; MicroJava object\n")
	sb.WriteString(fmt.Sprintf("; Code: %d bytes\n", len(o.Code)))
	sb.WriteString(fmt.Sprintf("; Data: %d words\n", o.DataSize))
	sb.WriteString(fmt.Sprintf("; Main: %04X\n", o.MainPC))

	if d != nil && len(d.Globals) > 0 {
		sb.WriteString("; Globals:\n")
		for _, g := range d.Globals {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s %s\n", g.Slot, g.Type, g.Name))
		}
	}
	sb.WriteString("\n")

	lastLine := 0
	offset := 0
	for offset < len(o.Code) {
		if m, ok := d.MethodAt(offset); ok {
			sb.WriteString(fmt.Sprintf("\n%s:  ; params=%d locals=%d\n", m.Name, m.Params, m.Locals))
		}

		line, instrLen := o.disassembleInstruction(offset)

		if srcLine, srcCol := d.LineAt(offset); srcLine > 0 && srcLine != lastLine {
			sb.WriteString(fmt.Sprintf("%04X  %-30s ; line %d:%d\n", offset, line, srcLine, srcCol))
			lastLine = srcLine
		} else {
			sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		}

		offset += instrLen
	}

	return sb.String()
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length.
func (o *Object) disassembleInstruction(offset int) (string, int) {
	if offset >= len(o.Code) {
		return "<end of code>", 0
	}

	op := Opcode(o.Code[offset])
	if !op.Valid() {
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), 1
	}
	info := GetOpcodeInfo(op)
	instrLen := 1 + info.OperandLen()
	if offset+instrLen > len(o.Code) {
		return fmt.Sprintf("%s <truncated>", info.Name), len(o.Code) - offset
	}

	switch {
	case op == OpConst:
		v := int32(binary.BigEndian.Uint32(o.Code[offset+1:]))
		return fmt.Sprintf("const %d", v), instrLen

	case op.IsJump():
		target := o.readUint16(offset + 1)
		return fmt.Sprintf("%s %04X", info.Name, target), instrLen

	case op == OpCall:
		target := o.readUint16(offset + 1)
		return fmt.Sprintf("call %04X", target), instrLen

	case op == OpEnter:
		return fmt.Sprintf("enter params=%d locals=%d", o.Code[offset+1], o.Code[offset+2]), instrLen

	case op == OpNewArray:
		kind := "word"
		if o.Code[offset+1] == 0 {
			kind = "byte"
		}
		return fmt.Sprintf("newarray %s", kind), instrLen
	}

	// Default: format operands by declared width
	if len(info.Operands) == 0 {
		return info.Name, instrLen
	}
	operands := make([]string, 0, len(info.Operands))
	pos := offset + 1
	for _, w := range info.Operands {
		switch w {
		case 1:
			operands = append(operands, fmt.Sprintf("%d", o.Code[pos]))
		case 2:
			operands = append(operands, fmt.Sprintf("%d", o.readUint16(pos)))
		case 4:
			operands = append(operands, fmt.Sprintf("%d", int32(binary.BigEndian.Uint32(o.Code[pos:]))))
		}
		pos += w
	}
	return fmt.Sprintf("%s %s", info.Name, strings.Join(operands, " ")), instrLen
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (o *Object) DisassembleInstruction(offset int) string {
	line, _ := o.disassembleInstruction(offset)
	return line
}

// readUint16 reads a big-endian uint16 from the code at the given offset.
func (o *Object) readUint16(offset int) uint16 {
	if offset+1 >= len(o.Code) {
		return 0
	}
	return binary.BigEndian.Uint16(o.Code[offset:])
}

// DisassembleToLines returns the plain listing as a slice of lines.
func (o *Object) DisassembleToLines() []string {
	var lines []string
	offset := 0
	for offset < len(o.Code) {
		line, instrLen := o.disassembleInstruction(offset)
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, line))
		offset += instrLen
	}
	return lines
}

// Instruction is one decoded instruction.
type Instruction struct {
	Offset   int
	Op       Opcode
	Operands []int // Decoded immediates, signed for const, unsigned otherwise
}

// Decode splits the code section into instructions. Decoding stops at the
// first unknown opcode or truncated instruction and reports it as an error.
func (o *Object) Decode() ([]Instruction, error) {
	var out []Instruction
	offset := 0
	for offset < len(o.Code) {
		op := Opcode(o.Code[offset])
		if !op.Valid() {
			return out, fmt.Errorf("bytecode: unknown opcode 0x%02X at %04X", byte(op), offset)
		}
		info := GetOpcodeInfo(op)
		if offset+1+info.OperandLen() > len(o.Code) {
			return out, fmt.Errorf("bytecode: truncated %s at %04X", info.Name, offset)
		}
		ins := Instruction{Offset: offset, Op: op}
		pos := offset + 1
		for _, w := range info.Operands {
			switch w {
			case 1:
				ins.Operands = append(ins.Operands, int(o.Code[pos]))
			case 2:
				ins.Operands = append(ins.Operands, int(binary.BigEndian.Uint16(o.Code[pos:])))
			case 4:
				ins.Operands = append(ins.Operands, int(int32(binary.BigEndian.Uint32(o.Code[pos:]))))
			}
			pos += w
		}
		out = append(out, ins)
		offset = pos
	}
	return out, nil
}

// InstructionCount returns the number of instructions in the code section.
// Note: This iterates through all code, so it's O(n).
func (o *Object) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(o.Code) {
		op := Opcode(o.Code[offset])
		offset += op.InstructionLen()
		count++
	}
	return count
}
