package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// The numeric values are part of the object file format and must never change.
type Opcode byte

const (
	// ========================================================================
	// Local variables (1-10)
	// ========================================================================

	OpLoad   Opcode = 1  // Push local slot: OpLoad <slot:u8>
	OpLoad0  Opcode = 2  // Push local slot 0
	OpLoad1  Opcode = 3  // Push local slot 1
	OpLoad2  Opcode = 4  // Push local slot 2
	OpLoad3  Opcode = 5  // Push local slot 3
	OpStore  Opcode = 6  // Pop into local slot: OpStore <slot:u8>
	OpStore0 Opcode = 7  // Pop into local slot 0
	OpStore1 Opcode = 8  // Pop into local slot 1
	OpStore2 Opcode = 9  // Pop into local slot 2
	OpStore3 Opcode = 10 // Pop into local slot 3

	// ========================================================================
	// Globals and fields (11-14)
	// ========================================================================

	OpGetStatic Opcode = 11 // Push global: OpGetStatic <slot:u16>
	OpPutStatic Opcode = 12 // Pop into global: OpPutStatic <slot:u16>
	OpGetField  Opcode = 13 // obj -> obj.f: OpGetField <field:u16>
	OpPutField  Opcode = 14 // obj val -> (obj.f = val): OpPutField <field:u16>

	// ========================================================================
	// Constants (15-22)
	// ========================================================================

	OpConst0  Opcode = 15 // Push 0
	OpConst1  Opcode = 16 // Push 1
	OpConst2  Opcode = 17 // Push 2
	OpConst3  Opcode = 18 // Push 3
	OpConst4  Opcode = 19 // Push 4
	OpConst5  Opcode = 20 // Push 5
	OpConstM1 Opcode = 21 // Push -1
	OpConst   Opcode = 22 // Push word: OpConst <value:i32>

	// ========================================================================
	// Arithmetic (23-30)
	// ========================================================================

	OpAdd Opcode = 23 // Pop two, push sum
	OpSub Opcode = 24 // Pop two, push difference (a - b where b is TOS)
	OpMul Opcode = 25 // Pop two, push product
	OpDiv Opcode = 26 // Pop two, push quotient (truncated toward zero)
	OpRem Opcode = 27 // Pop two, push remainder (sign of dividend)
	OpNeg Opcode = 28 // Negate top of stack
	OpShl Opcode = 29 // Pop two, push a << b
	OpShr Opcode = 30 // Pop two, push a >> b

	// ========================================================================
	// Heap (31-37)
	// ========================================================================

	OpNew         Opcode = 31 // Allocate object: OpNew <fields:u16>
	OpNewArray    Opcode = 32 // len -> array: OpNewArray <word:u8> (0 = bytes, 1 = words)
	OpALoad       Opcode = 33 // arr idx -> arr[idx] (word)
	OpAStore      Opcode = 34 // arr idx val -> (arr[idx] = val) (word)
	OpBALoad      Opcode = 35 // arr idx -> arr[idx] (byte)
	OpBAStore     Opcode = 36 // arr idx val -> (arr[idx] = val) (byte)
	OpArrayLength Opcode = 37 // arr -> len(arr)

	// ========================================================================
	// Stack (38)
	// ========================================================================

	OpPop Opcode = 38 // Discard top of stack

	// ========================================================================
	// Control flow (39-47)
	// ========================================================================

	OpJmp    Opcode = 39 // Jump: OpJmp <addr:u16>
	OpJeq    Opcode = 40 // Pop two, jump if a == b: OpJeq <addr:u16>
	OpJne    Opcode = 41 // Pop two, jump if a != b
	OpJlt    Opcode = 42 // Pop two, jump if a < b
	OpJle    Opcode = 43 // Pop two, jump if a <= b
	OpJgt    Opcode = 44 // Pop two, jump if a > b
	OpJge    Opcode = 45 // Pop two, jump if a >= b
	OpCall   Opcode = 46 // Call method: OpCall <addr:u16>
	OpReturn Opcode = 47 // Return to caller

	// ========================================================================
	// Frames (48-49)
	// ========================================================================

	OpEnter Opcode = 48 // Allocate frame: OpEnter <params:u8> <locals:u8>
	OpExit  Opcode = 49 // Release frame

	// ========================================================================
	// I/O and traps (50-54)
	// ========================================================================

	OpRead   Opcode = 50 // Read int, push it
	OpPrint  Opcode = 51 // val width -> print int
	OpBRead  Opcode = 52 // Read char, push it
	OpBPrint Opcode = 53 // val width -> print char
	OpTrap   Opcode = 54 // Abort execution: OpTrap <code:u8>
)

// OpcodeInfo provides metadata about each opcode for listings and validation.
type OpcodeInfo struct {
	Name     string // Mnemonic
	Operands []int  // Width in bytes of each immediate operand
}

// OperandLen returns the total number of operand bytes.
func (i OpcodeInfo) OperandLen() int {
	n := 0
	for _, w := range i.Operands {
		n += w
	}
	return n
}

var (
	noOperands = []int(nil)
	u8         = []int{1}
	u16        = []int{2}
	i32        = []int{4}
)

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpLoad:   {"load", u8},
	OpLoad0:  {"load_0", noOperands},
	OpLoad1:  {"load_1", noOperands},
	OpLoad2:  {"load_2", noOperands},
	OpLoad3:  {"load_3", noOperands},
	OpStore:  {"store", u8},
	OpStore0: {"store_0", noOperands},
	OpStore1: {"store_1", noOperands},
	OpStore2: {"store_2", noOperands},
	OpStore3: {"store_3", noOperands},

	OpGetStatic: {"getstatic", u16},
	OpPutStatic: {"putstatic", u16},
	OpGetField:  {"getfield", u16},
	OpPutField:  {"putfield", u16},

	OpConst0:  {"const_0", noOperands},
	OpConst1:  {"const_1", noOperands},
	OpConst2:  {"const_2", noOperands},
	OpConst3:  {"const_3", noOperands},
	OpConst4:  {"const_4", noOperands},
	OpConst5:  {"const_5", noOperands},
	OpConstM1: {"const_m1", noOperands},
	OpConst:   {"const", i32},

	OpAdd: {"add", noOperands},
	OpSub: {"sub", noOperands},
	OpMul: {"mul", noOperands},
	OpDiv: {"div", noOperands},
	OpRem: {"rem", noOperands},
	OpNeg: {"neg", noOperands},
	OpShl: {"shl", noOperands},
	OpShr: {"shr", noOperands},

	OpNew:         {"new", u16},
	OpNewArray:    {"newarray", u8},
	OpALoad:       {"aload", noOperands},
	OpAStore:      {"astore", noOperands},
	OpBALoad:      {"baload", noOperands},
	OpBAStore:     {"bastore", noOperands},
	OpArrayLength: {"arraylength", noOperands},

	OpPop: {"pop", noOperands},

	OpJmp:    {"jmp", u16},
	OpJeq:    {"jeq", u16},
	OpJne:    {"jne", u16},
	OpJlt:    {"jlt", u16},
	OpJle:    {"jle", u16},
	OpJgt:    {"jgt", u16},
	OpJge:    {"jge", u16},
	OpCall:   {"call", u16},
	OpReturn: {"return", noOperands},

	OpEnter: {"enter", []int{1, 1}},
	OpExit:  {"exit", noOperands},

	OpRead:   {"read", noOperands},
	OpPrint:  {"print", noOperands},
	OpBRead:  {"bread", noOperands},
	OpBPrint: {"bprint", noOperands},
	OpTrap:   {"trap", u8},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an info with name "UNKNOWN(0xNN)" and no operands if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen()
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true for the unconditional and conditional jumps.
func (op Opcode) IsJump() bool {
	return op >= OpJmp && op <= OpJge
}

// IsConditionalJump returns true for the six relational jumps.
func (op Opcode) IsConditionalJump() bool {
	return op >= OpJeq && op <= OpJge
}

var inverseJumps = map[Opcode]Opcode{
	OpJeq: OpJne,
	OpJne: OpJeq,
	OpJlt: OpJge,
	OpJge: OpJlt,
	OpJle: OpJgt,
	OpJgt: OpJle,
}

// Inverse returns the conditional jump taken exactly when op is not taken.
// Non-conditional opcodes return themselves.
func (op Opcode) Inverse() Opcode {
	if inv, ok := inverseJumps[op]; ok {
		return inv
	}
	return op
}

// AllOpcodes returns a slice of all defined opcodes in ascending order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := OpLoad; op <= OpTrap; op++ {
		if op.Valid() {
			opcodes = append(opcodes, op)
		}
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
