/*
 * rv64sim - Integer ALU.
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

// Package alu is the pure combinational integer compute unit (spec §4.2).
// Every function here is a plain value->value mapping: no CSR access, no
// side effects, so it can be unit tested exhaustively and invoked
// identically whether forwarding is enabled or not (spec §8 invariant 3).
package alu

import "math/bits"

// Op names an integer ALU operation, shared by the ALU-reg and ALU-imm
// decoded instruction classes.
type Op int

const (
	Add Op = iota
	Sub
	Sll
	Slt
	Sltu
	Xor
	Srl
	Sra
	Or
	And
	Mul
	MulH
	MulHSU
	MulHU
	Div
	DivU
	Rem
	RemU
)

// Exec performs a 64-bit integer op. For word-width (*W instructions) the
// caller truncates/sign-extends around this call via ExecWord.
func Exec(op Op, a, b uint64) uint64 {
	switch op {
	case Add:
		return a + b
	case Sub:
		return a - b
	case Sll:
		return a << (b & 63)
	case Slt:
		return boolToU64(int64(a) < int64(b))
	case Sltu:
		return boolToU64(a < b)
	case Xor:
		return a ^ b
	case Srl:
		return a >> (b & 63)
	case Sra:
		return uint64(int64(a) >> (b & 63))
	case Or:
		return a | b
	case And:
		return a & b
	case Mul:
		return a * b
	case MulH:
		return uint64(mulHigh64(int64(a), int64(b)))
	case MulHSU:
		return uint64(mulHighSU64(int64(a), b))
	case MulHU:
		return mulHighU64(a, b)
	case Div:
		return divS64(int64(a), int64(b))
	case DivU:
		return divU64(a, b)
	case Rem:
		return remS64(int64(a), int64(b))
	case RemU:
		return remU64(a, b)
	default:
		return 0
	}
}

// ExecWord performs the 32-bit ("W"-suffixed) variant: operands are
// truncated to 32 bits (shift amounts mask to 5 bits instead of 6), the
// result is computed in 32 bits, then sign-extended back to 64 (spec
// §4.2).
func ExecWord(op Op, a, b uint64) uint64 {
	a32, b32 := uint32(a), uint32(b)
	var r uint32
	switch op {
	case Add:
		r = a32 + b32
	case Sub:
		r = a32 - b32
	case Sll:
		r = a32 << (b32 & 31)
	case Srl:
		r = a32 >> (b32 & 31)
	case Sra:
		r = uint32(int32(a32) >> (b32 & 31))
	case Mul:
		r = a32 * b32
	case Div:
		return uint64(int32(divS32(int32(a32), int32(b32))))
	case DivU:
		return uint64(int32(divU32(a32, b32)))
	case Rem:
		return uint64(int32(remS32(int32(a32), int32(b32))))
	case RemU:
		return uint64(int32(remU32(a32, b32)))
	default:
		r = uint32(Exec(op, a, b))
	}
	return uint64(int32(r))
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// divS64 implements signed 64-bit division per the RISC-V rules (spec
// §4.2): divide by zero yields -1, and INT_MIN/-1 yields INT_MIN with no
// overflow trap.
func divS64(a, b int64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	if a == minInt64 && b == -1 {
		return uint64(a)
	}
	return uint64(a / b)
}

func divU64(a, b uint64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	return a / b
}

func remS64(a, b int64) uint64 {
	if b == 0 {
		return uint64(a)
	}
	if a == minInt64 && b == -1 {
		return 0
	}
	return uint64(a % b)
}

func remU64(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return a % b
}

const minInt64 = int64(-1) << 63
const minInt32 = int32(-1) << 31

func divS32(a, b int32) int32 {
	if b == 0 {
		return -1
	}
	if a == minInt32 && b == -1 {
		return a
	}
	return a / b
}

func divU32(a, b uint32) uint32 {
	if b == 0 {
		return ^uint32(0)
	}
	return a / b
}

func remS32(a, b int32) int32 {
	if b == 0 {
		return a
	}
	if a == minInt32 && b == -1 {
		return 0
	}
	return a % b
}

func remU32(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}

// mulHigh64/mulHighU64/mulHighSU64 compute the high 64 bits of a 128-bit
// product, starting from the unsigned 64x64->128 primitive and applying
// the standard sign correction (hi -= other operand's unsigned value for
// each negative input), since the upper word of a two's-complement
// product only needs a linear correction in its low 64 bits.
func mulHigh64(a, b int64) int64 {
	ua, ub := uint64(a), uint64(b)
	hi, _ := bits.Mul64(ua, ub)
	if a < 0 {
		hi -= ub
	}
	if b < 0 {
		hi -= ua
	}
	return int64(hi)
}

func mulHighU64(a, b uint64) uint64 {
	hi, _ := bits.Mul64(a, b)
	return hi
}

func mulHighSU64(a int64, b uint64) int64 {
	ua := uint64(a)
	hi, _ := bits.Mul64(ua, b)
	if a < 0 {
		hi -= b
	}
	return int64(hi)
}
