// Package bytecode benchmarks
//
// These benchmarks measure the performance of:
// - Code emission and constant loading
// - Object file serialization and deserialization
// - Debug sidecar encoding
// - Disassembly
//
// Run: go test -bench=. ./pkg/bytecode/...
// Run with memory stats: go test -bench=. -benchmem ./pkg/bytecode/...
package bytecode

import (
	"bytes"
	"io"
	"testing"
)

// ============================================================
// Emission Benchmarks
// ============================================================

// BenchmarkEmitLoop measures emission of a counting loop with a fixup
func BenchmarkEmitLoop(b *testing.B) {
	for i := 0; i < b.N; i++ {
		c := NewCode()
		c.Emit(OpEnter, 0, 1)
		top := c.PC()
		c.Emit(OpLoad0)
		c.LoadConst(1000)
		exit := c.PutFalseJump(OpJlt, 0)
		c.Emit(OpLoad0)
		c.Emit(OpConst1)
		c.Emit(OpAdd)
		c.Emit(OpStore0)
		c.PutJump(top)
		c.Fixup(exit)
		c.Emit(OpExit)
		c.Emit(OpReturn)
	}
}

// BenchmarkLoadConst measures short and long constant pushes
func BenchmarkLoadConst(b *testing.B) {
	c := NewCode()
	for i := 0; i < b.N; i++ {
		c.LoadConst(int32(i%12) - 2)
		if c.PC() > 1<<12 {
			c.RetractTo(0)
		}
	}
}

// ============================================================
// Serialization Benchmarks
// ============================================================

func largeObject() *Object {
	c := NewCode()
	for c.PC() < MaxCodeSize/2 {
		c.LoadConst(int32(c.PC()))
		c.Emit2(OpPutStatic, c.PC()%100)
	}
	c.DataSize = 100
	return c.Object()
}

// BenchmarkWriteObjectSmall measures writing a minimal program
func BenchmarkWriteObjectSmall(b *testing.B) {
	o := sampleObject()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = o.WriteTo(io.Discard)
	}
}

// BenchmarkWriteObjectLarge measures writing a half-full code section
func BenchmarkWriteObjectLarge(b *testing.B) {
	o := largeObject()
	b.SetBytes(int64(HeaderSize + len(o.Code)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = o.WriteTo(io.Discard)
	}
}

// BenchmarkReadObjectLarge measures parsing a half-full code section
func BenchmarkReadObjectLarge(b *testing.B) {
	var buf bytes.Buffer
	largeObject().WriteTo(&buf)
	data := buf.Bytes()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ReadObject(bytes.NewReader(data))
	}
}

// BenchmarkDebugInfoRoundTrip measures CBOR encoding and decoding of the sidecar
func BenchmarkDebugInfoRoundTrip(b *testing.B) {
	d := sampleDebugInfo()
	for pc := 20; pc < 2000; pc += 7 {
		d.AddLine(pc, pc/7, 3)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, err := MarshalDebugInfo(d)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := UnmarshalDebugInfo(data); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================
// Disassembly Benchmarks
// ============================================================

// BenchmarkDisassemble measures listing a half-full code section
func BenchmarkDisassemble(b *testing.B) {
	o := largeObject()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = o.Disassemble()
	}
}

// BenchmarkDecode measures instruction decoding
func BenchmarkDecode(b *testing.B) {
	o := largeObject()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = o.Decode()
	}
}
