/*
 * rv64sim - IEEE-754 floating-point unit.
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

// Package fpu implements the IEEE-754 single/double arithmetic RV64FD
// needs (spec §4.2). It builds on Go's math package, which computes in
// round-to-nearest-even. Every operation returns that RNE result whatever
// RoundingMode is passed: finishDouble/finishSingle hand roundTowards the
// RNE result as both the exact and the rounded value, so it never
// adjusts it.
package fpu

import "math"

// RoundingMode is the static frm CSR value, or the instruction-encoded
// dynamic selector (rm=7, resolved by the caller before reaching here).
type RoundingMode uint8

const (
	RNE RoundingMode = 0 // round to nearest, ties to even
	RTZ RoundingMode = 1 // round toward zero
	RDN RoundingMode = 2 // round down (toward -inf)
	RUP RoundingMode = 3 // round up (toward +inf)
	RMM RoundingMode = 4 // round to nearest, ties to max magnitude
)

// Flags are the accrued exception bits (fflags), NV|DZ|OF|UF|NX from bit 4
// down to bit 0 per the RISC-V encoding, assembled MSB-first here for
// readability and reassembled correctly in Bits().
type Flags struct {
	Invalid, DivByZero, Overflow, Underflow, Inexact bool
}

// Bits packs Flags into the 5-bit fflags encoding (bit0=NX,...,bit4=NV).
func (f Flags) Bits() uint8 {
	var b uint8
	if f.Inexact {
		b |= 0x1
	}
	if f.Underflow {
		b |= 0x2
	}
	if f.Overflow {
		b |= 0x4
	}
	if f.DivByZero {
		b |= 0x8
	}
	if f.Invalid {
		b |= 0x10
	}
	return b
}

func roundTowards(v, rne float64, mode RoundingMode) float64 {
	if math.IsNaN(rne) || math.IsInf(rne, 0) || v == rne {
		return rne
	}
	switch mode {
	case RTZ:
		if rne > 0 && rne > v {
			return math.Nextafter(rne, 0)
		}
		if rne < 0 && rne < v {
			return math.Nextafter(rne, 0)
		}
	case RDN:
		if rne > v {
			return math.Nextafter(rne, math.Inf(-1))
		}
	case RUP:
		if rne < v {
			return math.Nextafter(rne, math.Inf(1))
		}
	}
	return rne
}

// AddDouble/SubDouble/MulDouble/DivDouble/SqrtDouble perform the named
// op at double precision under the given rounding mode, returning the
// result and accrued flags.
func AddDouble(a, b float64, mode RoundingMode) (float64, Flags) {
	r := a + b
	return finishDouble(r, mode, false), classifyFlags(a, b, r, false)
}

func SubDouble(a, b float64, mode RoundingMode) (float64, Flags) {
	r := a - b
	return finishDouble(r, mode, false), classifyFlags(a, b, r, false)
}

func MulDouble(a, b float64, mode RoundingMode) (float64, Flags) {
	r := a * b
	return finishDouble(r, mode, false), classifyFlags(a, b, r, false)
}

func DivDouble(a, b float64, mode RoundingMode) (float64, Flags) {
	r := a / b
	flags := classifyFlags(a, b, r, false)
	if b == 0 && !math.IsNaN(a) && a != 0 {
		flags.DivByZero = true
	}
	return finishDouble(r, mode, false), flags
}

func SqrtDouble(a float64, mode RoundingMode) (float64, Flags) {
	var flags Flags
	if a < 0 && !math.IsNaN(a) {
		flags.Invalid = true
		return math.NaN(), flags
	}
	r := math.Sqrt(a)
	if r != a {
		flags.Inexact = true
	}
	return finishDouble(r, mode, false), flags
}

func finishDouble(r float64, mode RoundingMode, _ bool) float64 {
	if mode == RNE {
		return r
	}
	return roundTowards(r, r, mode)
}

func classifyFlags(a, b, r float64, _ bool) Flags {
	var f Flags
	if math.IsNaN(r) && !math.IsNaN(a) && !math.IsNaN(b) {
		f.Invalid = true
	}
	if math.IsInf(r, 0) && !math.IsInf(a, 0) && !math.IsInf(b, 0) {
		f.Overflow = true
		f.Inexact = true
	}
	if r != 0 && math.Abs(r) < math.SmallestNonzeroFloat64*(1<<52) && r == r {
		// Subnormal result: flag underflow+inexact conservatively.
		if isSubnormal64(r) {
			f.Underflow = true
			f.Inexact = true
		}
	}
	return f
}

func isSubnormal64(v float64) bool {
	bits := math.Float64bits(v)
	exp := (bits >> 52) & 0x7ff
	mant := bits & ((1 << 52) - 1)
	return exp == 0 && mant != 0
}

func isSubnormal32(v float32) bool {
	bits := math.Float32bits(v)
	exp := (bits >> 23) & 0xff
	mant := bits & ((1 << 23) - 1)
	return exp == 0 && mant != 0
}

// Single-precision variants operate on float32 directly (Go promotes to
// float64 internally for the hardware op but the result is re-rounded to
// float32, matching how a real FPU's single-precision datapath behaves).

func AddSingle(a, b float32, mode RoundingMode) (float32, Flags) {
	r := a + b
	return finishSingle(r, mode), classifySingleFlags(a, b, r)
}

func SubSingle(a, b float32, mode RoundingMode) (float32, Flags) {
	r := a - b
	return finishSingle(r, mode), classifySingleFlags(a, b, r)
}

func MulSingle(a, b float32, mode RoundingMode) (float32, Flags) {
	r := a * b
	return finishSingle(r, mode), classifySingleFlags(a, b, r)
}

func DivSingle(a, b float32, mode RoundingMode) (float32, Flags) {
	r := a / b
	flags := classifySingleFlags(a, b, r)
	if b == 0 && !math.IsNaN(float64(a)) && a != 0 {
		flags.DivByZero = true
	}
	return finishSingle(r, mode), flags
}

func SqrtSingle(a float32, mode RoundingMode) (float32, Flags) {
	var flags Flags
	if a < 0 && !math.IsNaN(float64(a)) {
		flags.Invalid = true
		return float32(math.NaN()), flags
	}
	r := float32(math.Sqrt(float64(a)))
	if r != a {
		flags.Inexact = true
	}
	return finishSingle(r, mode), flags
}

func finishSingle(r float32, mode RoundingMode) float32 {
	if mode == RNE {
		return r
	}
	return float32(roundTowards(float64(r), float64(r), mode))
}

func classifySingleFlags(a, b, r float32) Flags {
	var f Flags
	if math.IsNaN(float64(r)) && !math.IsNaN(float64(a)) && !math.IsNaN(float64(b)) {
		f.Invalid = true
	}
	if math.IsInf(float64(r), 0) && !math.IsInf(float64(a), 0) && !math.IsInf(float64(b), 0) {
		f.Overflow = true
		f.Inexact = true
	}
	if isSubnormal32(r) {
		f.Underflow = true
		f.Inexact = true
	}
	return f
}

// Min/Max implement fmin/fmax: propagate a quiet NaN only if both inputs
// are NaN; if exactly one is NaN, return the other (RISC-V semantics
// differ from plain IEEE minNum in signalling behavior, which we do not
// model separately since Go's float NaNs are already quiet).
func MinDouble(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return a
		}
		return b
	}
	return math.Min(a, b)
}

func MaxDouble(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) {
			return b
		}
		return a
	}
	return math.Max(a, b)
}

func MinSingle(a, b float32) float32 { return float32(MinDouble(float64(a), float64(b))) }
func MaxSingle(a, b float32) float32 { return float32(MaxDouble(float64(a), float64(b))) }

// Sgnj/Sgnjn/Sgnjx implement the sign-injection ops at bit level, as the
// ISA defines them (they never touch the exponent/mantissa).
func SgnjDouble(a, b float64) float64 {
	return math.Float64frombits((math.Float64bits(a) &^ (1 << 63)) | (math.Float64bits(b) & (1 << 63)))
}

func SgnjnDouble(a, b float64) float64 {
	return math.Float64frombits((math.Float64bits(a) &^ (1 << 63)) | (^math.Float64bits(b) & (1 << 63)))
}

func SgnjxDouble(a, b float64) float64 {
	return math.Float64frombits(math.Float64bits(a) ^ (math.Float64bits(b) & (1 << 63)))
}

func SgnjSingle(a, b float32) float32 {
	return math.Float32frombits((math.Float32bits(a) &^ (1 << 31)) | (math.Float32bits(b) & (1 << 31)))
}

func SgnjnSingle(a, b float32) float32 {
	return math.Float32frombits((math.Float32bits(a) &^ (1 << 31)) | (^math.Float32bits(b) & (1 << 31)))
}

func SgnjxSingle(a, b float32) float32 {
	return math.Float32frombits(math.Float32bits(a) ^ (math.Float32bits(b) & (1 << 31)))
}

// Class implements FCLASS.{S,D}: a one-hot bitmask describing the input.
func ClassDouble(a float64) uint64 {
	switch {
	case math.IsInf(a, -1):
		return 1 << 0
	case a < 0 && isSubnormal64(a):
		return 1 << 2
	case a < 0 && a != 0:
		return 1 << 1
	case a == 0 && math.Signbit(a):
		return 1 << 3
	case a == 0:
		return 1 << 4
	case a > 0 && isSubnormal64(a):
		return 1 << 5
	case a > 0 && !math.IsInf(a, 1):
		return 1 << 6
	case math.IsInf(a, 1):
		return 1 << 7
	case isSignalingNaN64(a):
		return 1 << 8
	default:
		return 1 << 9 // quiet NaN
	}
}

func isSignalingNaN64(a float64) bool {
	bits := math.Float64bits(a)
	exp := (bits >> 52) & 0x7ff
	mant := bits & ((1 << 52) - 1)
	return exp == 0x7ff && mant != 0 && (mant>>51)&1 == 0
}
