/*
 * rv64sim - General-purpose and floating-point register files.
 *
 * Copyright 2026, rv64sim contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package regs holds the integer and floating-point register files of a
// single hart. x0 is hardwired to zero; the FP file has no such register.
package regs


// Int is the 32-entry 64-bit integer register file.
type Int struct {
	x [32]uint64
}

// NewInt returns a zeroed integer register file.
func NewInt() *Int { return &Int{} }

// Read returns register i, or 0 for x0.
func (r *Int) Read(i int) uint64 {
	if i == 0 {
		return 0
	}
	return r.x[i&31]
}

// Write stores value into register i; writes to x0 are discarded.
func (r *Int) Write(i int, value uint64) {
	if i == 0 {
		return
	}
	r.x[i&31] = value
}

// Snapshot returns a copy of all 32 registers, for the inspector.
func (r *Int) Snapshot() [32]uint64 { return r.x }

const nanBoxTop uint64 = 0xffffffff00000000

// Float is the 32-entry 64-bit FP register file. Values are stored NaN-
// boxed: a single-precision result is written with the upper 32 bits all
// ones (spec §4.2).
type Float struct {
	f [32]uint64
}

// NewFloat returns a zeroed floating-point register file.
func NewFloat() *Float { return &Float{} }

// ReadDouble returns the raw 64-bit bit pattern of register i.
func (r *Float) ReadDouble(i int) uint64 { return r.f[i&31] }

// WriteDouble stores a 64-bit bit pattern into register i.
func (r *Float) WriteDouble(i int, bits uint64) { r.f[i&31] = bits }

// ReadFloat32 returns register i as a float32. If the register is not
// correctly NaN-boxed (upper 32 bits aren't all ones), the canonical
// quiet NaN is returned instead, per the RISC-V NaN-boxing rule.
func (r *Float) ReadFloat32(i int) uint32 {
	v := r.f[i&31]
	if v&nanBoxTop != nanBoxTop {
		return 0x7fc00000 // canonical float32 qNaN
	}
	return uint32(v)
}

// WriteFloat32 stores a float32 bit pattern into register i, NaN-boxed
// into the upper half.
func (r *Float) WriteFloat32(i int, bits uint32) {
	r.f[i&31] = nanBoxTop | uint64(bits)
}

// Snapshot returns a copy of all 32 FP registers (raw 64-bit patterns).
func (r *Float) Snapshot() [32]uint64 { return r.f }

// CanonicalNaN64 is the canonical double-precision quiet NaN bit pattern.
func CanonicalNaN64() uint64 { return 0x7ff8000000000000 }
