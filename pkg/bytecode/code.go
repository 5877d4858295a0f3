package bytecode

import "fmt"

// MaxCodeSize is the largest code section addressable by 2-byte jump and call operands.
const MaxCodeSize = 1 << 16

// initialCodeSize is the starting capacity of a code buffer.
const initialCodeSize = 8192

// Code is the instruction buffer a compilation emits into.
//
// Writes happen at the cursor (PC). Retract moves the cursor back without
// erasing anything: retracted bytes are overwritten by the next writes, and
// only the bytes below the cursor are ever part of the program.
type Code struct {
	buf []byte
	pc  int

	// DataSize is the number of global variable slots.
	DataSize int

	// MainPC is the entry address of main.
	MainPC int
}

// NewCode creates an empty code buffer.
func NewCode() *Code {
	return &Code{buf: make([]byte, 0, initialCodeSize)}
}

// PC returns the current write position.
func (c *Code) PC() int {
	return c.pc
}

// Len returns the length of the emitted code.
func (c *Code) Len() int {
	return c.pc
}

// Bytes returns the emitted code. The slice aliases the buffer.
func (c *Code) Bytes() []byte {
	return c.buf[:c.pc]
}

// Put appends a single byte.
func (c *Code) Put(x int) {
	if c.pc < len(c.buf) {
		c.buf[c.pc] = byte(x)
	} else {
		c.buf = append(c.buf, byte(x))
	}
	c.pc++
}

// Put2 appends a big-endian 16-bit value.
func (c *Code) Put2(x int) {
	c.Put(x >> 8)
	c.Put(x)
}

// Put4 appends a big-endian 32-bit value.
func (c *Code) Put4(x int32) {
	c.Put2(int(x >> 16))
	c.Put2(int(x))
}

// PutAt2 overwrites two bytes at an earlier position with a big-endian value.
// The cursor is left unchanged.
func (c *Code) PutAt2(pos int, x int) {
	if pos < 0 || pos+2 > c.pc {
		panic(fmt.Sprintf("bytecode: patch at %d outside code [0,%d)", pos, c.pc))
	}
	c.buf[pos] = byte(x >> 8)
	c.buf[pos+1] = byte(x)
}

// Emit appends an opcode followed by raw operand bytes. Returns the opcode's position.
func (c *Code) Emit(op Opcode, operands ...byte) int {
	offset := c.pc
	c.Put(int(op))
	for _, b := range operands {
		c.Put(int(b))
	}
	return offset
}

// Emit2 appends an opcode with a 2-byte operand. Returns the opcode's position.
func (c *Code) Emit2(op Opcode, x int) int {
	offset := c.pc
	c.Put(int(op))
	c.Put2(x)
	return offset
}

// Retract moves the cursor back by n bytes.
func (c *Code) Retract(n int) {
	if n < 0 || n > c.pc {
		panic(fmt.Sprintf("bytecode: cannot retract %d bytes from %d", n, c.pc))
	}
	c.pc -= n
}

// RetractTo moves the cursor back to pos.
func (c *Code) RetractTo(pos int) {
	c.Retract(c.pc - pos)
}

// LoadConst emits the shortest push for value.
func (c *Code) LoadConst(value int32) {
	switch {
	case value == -1:
		c.Put(int(OpConstM1))
	case value >= 0 && value <= 5:
		c.Put(int(OpConst0) + int(value))
	default:
		c.Put(int(OpConst))
		c.Put4(value)
	}
}

// PutJump emits an unconditional jump to target.
// Returns the position of the 2-byte target operand for later fixup.
func (c *Code) PutJump(target int) int {
	c.Put(int(OpJmp))
	c.Put2(target)
	return c.pc - 2
}

// PutFalseJump emits the inverse of the conditional jump cond, so that the
// jump is taken when the condition is false.
// Returns the position of the 2-byte target operand for later fixup.
func (c *Code) PutFalseJump(cond Opcode, target int) int {
	c.Put(int(cond.Inverse()))
	c.Put2(target)
	return c.pc - 2
}

// Fixup patches the jump operand at pos to point at the current position.
func (c *Code) Fixup(pos int) {
	c.PutAt2(pos, c.pc)
}

// Object snapshots the buffer as an object file image.
func (c *Code) Object() *Object {
	code := make([]byte, c.pc)
	copy(code, c.buf[:c.pc])
	return &Object{
		Code:     code,
		DataSize: c.DataSize,
		MainPC:   c.MainPC,
	}
}
