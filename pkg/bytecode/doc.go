// Package bytecode defines the instruction set and object file format of the
// MicroJava stack machine, and the buffer the compiler emits into.
//
// The format is designed for:
//   - Compact representation (one-byte opcodes, 0-4 operand bytes)
//   - Trivial decoding (fixed operand widths per opcode, big-endian)
//   - Single-pass generation (forward jumps are backpatched in place)
//
// # Components
//
//   - Opcodes: 54 stack-machine instructions covering local/global/field/array
//     access, constants, arithmetic, allocation, jumps, calls, frames and I/O.
//     The byte values are fixed; interpreters depend on them bit-exactly.
//
//   - Code: the growable emission buffer. It supports retracting the cursor
//     (used by constant folding) and overwriting a 2-byte operand at an earlier
//     position (used by jump fixups).
//
//   - Object: the persisted artifact, a 14-byte header ("MJ", code length,
//     global slot count, main entry address) followed by the code.
//
//   - DebugInfo: an optional CBOR sidecar naming methods, globals and
//     statement positions, bound to an object by the hash of its code.
//
// # Object layout
//
//	offset  size  field
//	     0     2  magic 'M' 'J'
//	     2     4  code length
//	     6     4  global variable slot count
//	    10     4  entry address of main
//	    14     n  instruction stream
package bytecode
