/*
 * rv64sim - 32-bit and compressed (16-bit) instruction decoder.
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

// Package decode turns a 32-bit fetch word into a flat Inst record (spec
// §3 "Decoded instruction"). It does not execute anything; EX/MEM/WB
// interpret the record's Class and fields, the same separation the
// teacher keeps between its decoder tables and its opXXX execute
// handlers.
package decode

import "github.com/rv64lab/rv64sim/emu/alu"

// Class tags the broad opcode family of a decoded instruction.
type Class int

const (
	ClassALUReg Class = iota
	ClassALUImm
	ClassLoad
	ClassStore
	ClassBranch
	ClassJAL
	ClassJALR
	ClassLUI
	ClassAUIPC
	ClassSystem
	ClassCSR
	ClassFP
	ClassFPLoad
	ClassFPStore
	ClassAtomic
	ClassFence
	ClassIllegal
)

// Inst is the decoded instruction record carried through the pipeline.
type Inst struct {
	Raw        uint32 // original bits, for ILLEGAL mtval and disassembly
	Class      Class
	Op         alu.Op // integer ALU op, when Class is ALUReg/ALUImm
	FPOp       FPOp
	Rd, Rs1, Rs2, Rs3 int
	Imm        int64
	Funct3     uint32
	Funct7     uint32
	Width      int  // access width in bytes for loads/stores/atomics, 0 otherwise
	Unsigned   bool // unsigned load (LBU/LHU/LWU)
	Word       bool // *W 32-bit-result variant (ADDW, SUBW, ...)
	Compressed bool // came from a 16-bit encoding (PC+2 not PC+4)
	AqRl       uint8 // aq (bit1) / rl (bit0) for atomics; bits 27:24 (predecessor set) for FENCE
	Amo        AmoOp
	SystemFn   SystemFn
}

// FPOp enumerates the floating-point operations the FPU understands.
type FPOp int

const (
	FPNone FPOp = iota
	FAdd
	FSub
	FMul
	FDiv
	FSqrt
	FMin
	FMax
	FSgnj
	FSgnjn
	FSgnjx
	FCmpEq
	FCmpLt
	FCmpLe
	FClass
	FCvtFToI
	FCvtIToF
	FCvtFToF
	FMvXW
	FMvWX
	FMAdd
	FMSub
	FNMSub
	FNMAdd
	FLoad
	FStore
)

// AmoOp enumerates atomic memory operations (spec §4.7).
type AmoOp int

const (
	AmoNone AmoOp = iota
	AmoLR
	AmoSC
	AmoSwap
	AmoAdd
	AmoXor
	AmoAnd
	AmoOr
	AmoMin
	AmoMax
	AmoMinu
	AmoMaxu
)

// SystemFn enumerates the privileged SYSTEM-class non-CSR operations.
type SystemFn int

const (
	SysNone SystemFn = iota
	SysECall
	SysEBreak
	SysMRET
	SysSRET
	SysWFI
	SysSFenceVMA
)

func signExtend(v uint32, bits int) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift)) >> shift
}

func bits(w uint32, hi, lo int) uint32 {
	return (w >> lo) & ((1 << (hi - lo + 1)) - 1)
}

// Decode expands a 32-bit fetch word into an Inst. If the low two bits of
// word are not 11, word is treated as containing a 16-bit compressed
// instruction in its low half and expanded via DecodeCompressed instead
// (spec §4.3).
func Decode(word uint32) Inst {
	if word&0x3 != 0x3 {
		return DecodeCompressed(uint16(word))
	}
	return decode32(word)
}

func decode32(w uint32) Inst {
	opcode := bits(w, 6, 0)
	rd := int(bits(w, 11, 7))
	funct3 := bits(w, 14, 12)
	rs1 := int(bits(w, 19, 15))
	rs2 := int(bits(w, 24, 20))
	funct7 := bits(w, 31, 25)

	inst := Inst{Raw: w, Rd: rd, Rs1: rs1, Rs2: rs2, Funct3: funct3, Funct7: funct7}

	switch opcode {
	case 0b0110011, 0b0111011: // OP / OP-32 (register-register)
		inst.Word = opcode == 0b0111011
		inst.Class = ClassALUReg
		op, ok := regALUOp(funct3, funct7, inst.Word)
		if !ok {
			return illegal(w)
		}
		inst.Op = op
		return inst

	case 0b0010011, 0b0011011: // OP-IMM / OP-IMM-32
		inst.Word = opcode == 0b0011011
		inst.Class = ClassALUImm
		imm := signExtend(w>>20, 12)
		inst.Imm = imm
		op, shamtOp, ok := immALUOp(funct3, funct7, inst.Word)
		if !ok {
			return illegal(w)
		}
		if shamtOp {
			shamtBits := 6
			if inst.Word {
				shamtBits = 5
			}
			mask := uint32(1<<shamtBits) - 1
			inst.Imm = int64(bits(w, 24, 20) & mask)
		}
		inst.Op = op
		return inst

	case 0b0000011: // LOAD
		inst.Class = ClassLoad
		inst.Imm = signExtend(w>>20, 12)
		width, unsigned, ok := loadWidth(funct3)
		if !ok {
			return illegal(w)
		}
		inst.Width, inst.Unsigned = width, unsigned
		return inst

	case 0b0100011: // STORE
		inst.Class = ClassStore
		immHi := bits(w, 31, 25)
		immLo := bits(w, 11, 7)
		inst.Imm = signExtend((immHi<<5)|immLo, 12)
		width, ok := storeWidth(funct3)
		if !ok {
			return illegal(w)
		}
		inst.Width = width
		return inst

	case 0b1100011: // BRANCH
		inst.Class = ClassBranch
		b12 := bits(w, 31, 31)
		b11 := bits(w, 7, 7)
		b10_5 := bits(w, 30, 25)
		b4_1 := bits(w, 11, 8)
		raw := (b12 << 12) | (b11 << 11) | (b10_5 << 5) | (b4_1 << 1)
		inst.Imm = signExtend(raw, 13)
		return inst

	case 0b1101111: // JAL
		inst.Class = ClassJAL
		b20 := bits(w, 31, 31)
		b19_12 := bits(w, 19, 12)
		b11 := bits(w, 20, 20)
		b10_1 := bits(w, 30, 21)
		raw := (b20 << 20) | (b19_12 << 12) | (b11 << 11) | (b10_1 << 1)
		inst.Imm = signExtend(raw, 21)
		return inst

	case 0b1100111: // JALR
		if funct3 != 0 {
			return illegal(w)
		}
		inst.Class = ClassJALR
		inst.Imm = signExtend(w>>20, 12)
		return inst

	case 0b0110111: // LUI
		inst.Class = ClassLUI
		inst.Imm = int64(int32(w & 0xfffff000))
		return inst

	case 0b0010111: // AUIPC
		inst.Class = ClassAUIPC
		inst.Imm = int64(int32(w & 0xfffff000))
		return inst

	case 0b0001111: // FENCE / FENCE.I
		inst.Class = ClassFence
		inst.AqRl = uint8(bits(w, 27, 24))
		inst.SystemFn = SysNone
		if funct3 == 1 {
			inst.Funct3 = 1 // FENCE.I marker
		}
		return inst

	case 0b1110011: // SYSTEM: ECALL/EBREAK/MRET/SRET/WFI/SFENCE.VMA/CSRxx
		return decodeSystem(inst, w, funct3, rs1, rs2, funct7)

	case 0b0101111: // AMO
		return decodeAtomic(inst, w, funct3, funct7)

	case 0b0000111: // FLOAT LOAD
		inst.Class = ClassFPLoad
		inst.Imm = signExtend(w>>20, 12)
		inst.Width = fpWidth(funct3)
		if inst.Width == 0 {
			return illegal(w)
		}
		return inst

	case 0b0100111: // FLOAT STORE
		inst.Class = ClassFPStore
		immHi := bits(w, 31, 25)
		immLo := bits(w, 11, 7)
		inst.Imm = signExtend((immHi<<5)|immLo, 12)
		inst.Width = fpWidth(funct3)
		if inst.Width == 0 {
			return illegal(w)
		}
		return inst

	case 0b1000011, 0b1000111, 0b1001011, 0b1001111: // FMADD/FMSUB/FNMSUB/FNMADD
		inst.Class = ClassFP
		inst.Rs3 = int(bits(w, 31, 27))
		inst.FPOp = []FPOp{FMAdd, FMSub, FNMSub, FNMAdd}[(opcode>>2)&0x3]
		inst.Width = fpFmtWidth(bits(w, 26, 25))
		return inst

	case 0b1010011: // OP-FP
		return decodeOPFP(inst, w, funct7, rs2)

	default:
		return illegal(w)
	}
}

func illegal(w uint32) Inst { return Inst{Raw: w, Class: ClassIllegal} }

func regALUOp(funct3, funct7 uint32, word bool) (alu.Op, bool) {
	switch funct3 {
	case 0x0:
		switch funct7 {
		case 0x00:
			return alu.Add, true
		case 0x20:
			return alu.Sub, true
		case 0x01:
			return alu.Mul, true
		}
	case 0x1:
		if funct7 == 0x01 {
			return alu.MulH, true
		}
		return alu.Sll, funct7 == 0x00
	case 0x2:
		if funct7 == 0x01 && !word {
			return alu.MulHSU, true
		}
		return alu.Slt, funct7 == 0x00
	case 0x3:
		if funct7 == 0x01 && !word {
			return alu.MulHU, true
		}
		return alu.Sltu, funct7 == 0x00
	case 0x4:
		if funct7 == 0x01 {
			return alu.Div, true
		}
		return alu.Xor, funct7 == 0x00
	case 0x5:
		if funct7 == 0x01 {
			return alu.DivU, true
		}
		switch funct7 {
		case 0x00:
			return alu.Srl, true
		case 0x20:
			return alu.Sra, true
		}
	case 0x6:
		if funct7 == 0x01 {
			return alu.Rem, true
		}
		return alu.Or, funct7 == 0x00
	case 0x7:
		if funct7 == 0x01 {
			return alu.RemU, true
		}
		return alu.And, funct7 == 0x00
	}
	return 0, false
}

func immALUOp(funct3, funct7 uint32, word bool) (op alu.Op, isShamt bool, ok bool) {
	switch funct3 {
	case 0x0:
		return alu.Add, false, true
	case 0x1:
		return alu.Sll, true, (funct7 >> 1) == 0
	case 0x2:
		return alu.Slt, false, true
	case 0x3:
		return alu.Sltu, false, true
	case 0x4:
		return alu.Xor, false, true
	case 0x5:
		top := funct7 >> 1
		if top == 0x00 {
			return alu.Srl, true, true
		}
		if top == 0x10 {
			return alu.Sra, true, true
		}
		return 0, false, false
	case 0x6:
		return alu.Or, false, true
	case 0x7:
		return alu.And, false, true
	}
	return 0, false, false
}

func loadWidth(funct3 uint32) (width int, unsigned bool, ok bool) {
	switch funct3 {
	case 0x0:
		return 1, false, true
	case 0x1:
		return 2, false, true
	case 0x2:
		return 4, false, true
	case 0x3:
		return 8, false, true
	case 0x4:
		return 1, true, true
	case 0x5:
		return 2, true, true
	case 0x6:
		return 4, true, true
	}
	return 0, false, false
}

func storeWidth(funct3 uint32) (width int, ok bool) {
	switch funct3 {
	case 0x0:
		return 1, true
	case 0x1:
		return 2, true
	case 0x2:
		return 4, true
	case 0x3:
		return 8, true
	}
	return 0, false
}

func fpWidth(funct3 uint32) int {
	switch funct3 {
	case 0x2:
		return 4
	case 0x3:
		return 8
	}
	return 0
}

func fpFmtWidth(fmt uint32) int {
	if fmt == 1 {
		return 8
	}
	return 4
}

func decodeSystem(inst Inst, w uint32, funct3 uint32, rs1, rs2 int, funct7 uint32) Inst {
	if funct3 == 0 {
		inst.Class = ClassSystem
		switch {
		case w == 0x00000073:
			inst.SystemFn = SysECall
		case w == 0x00100073:
			inst.SystemFn = SysEBreak
		case w == 0x30200073:
			inst.SystemFn = SysMRET
		case w == 0x10200073:
			inst.SystemFn = SysSRET
		case w == 0x10500073:
			inst.SystemFn = SysWFI
		case funct7 == 0x09:
			inst.SystemFn = SysSFenceVMA
			inst.Rs1, inst.Rs2 = rs1, rs2
		default:
			return illegal(w)
		}
		return inst
	}
	// CSR instructions: funct3 in {1,2,3,5,6,7}.
	inst.Class = ClassCSR
	inst.Imm = int64(bits(w, 31, 20)) // CSR address
	inst.Funct3 = funct3
	inst.Rs1 = rs1
	return inst
}

func decodeAtomic(inst Inst, w uint32, funct3, funct7 uint32) Inst {
	if funct3 != 2 && funct3 != 3 {
		return illegal(w)
	}
	inst.Class = ClassAtomic
	inst.Width = 4
	if funct3 == 3 {
		inst.Width = 8
	}
	inst.AqRl = uint8(funct7 & 0x3)
	switch funct7 >> 2 {
	case 0x02:
		inst.Amo = AmoLR
	case 0x03:
		inst.Amo = AmoSC
	case 0x01:
		inst.Amo = AmoSwap
	case 0x00:
		inst.Amo = AmoAdd
	case 0x04:
		inst.Amo = AmoXor
	case 0x0c:
		inst.Amo = AmoAnd
	case 0x08:
		inst.Amo = AmoOr
	case 0x10:
		inst.Amo = AmoMin
	case 0x14:
		inst.Amo = AmoMax
	case 0x18:
		inst.Amo = AmoMinu
	case 0x1c:
		inst.Amo = AmoMaxu
	default:
		return illegal(w)
	}
	return inst
}

func decodeOPFP(inst Inst, w uint32, funct7 uint32, rs2 int) Inst {
	inst.Class = ClassFP
	inst.Width = fpFmtWidth(funct7 & 0x3)
	switch funct7 >> 2 {
	case 0x00:
		inst.FPOp = FAdd
	case 0x01:
		inst.FPOp = FSub
	case 0x02:
		inst.FPOp = FMul
	case 0x03:
		inst.FPOp = FDiv
	case 0x0b:
		inst.FPOp = FSqrt
	case 0x04:
		switch inst.Funct3 {
		case 0:
			inst.FPOp = FSgnj
		case 1:
			inst.FPOp = FSgnjn
		case 2:
			inst.FPOp = FSgnjx
		}
	case 0x05:
		if inst.Funct3 == 0 {
			inst.FPOp = FMin
		} else {
			inst.FPOp = FMax
		}
	case 0x14:
		switch inst.Funct3 {
		case 0:
			inst.FPOp = FCmpLe
		case 1:
			inst.FPOp = FCmpLt
		case 2:
			inst.FPOp = FCmpEq
		}
	case 0x18:
		inst.FPOp = FCvtFToI
		inst.Rs2 = rs2 // encodes destination signedness/width
	case 0x1a:
		inst.FPOp = FCvtIToF
		inst.Rs2 = rs2
	case 0x08:
		inst.FPOp = FCvtFToF
		inst.Rs2 = rs2
	case 0x1c:
		if inst.Funct3 == 1 {
			inst.FPOp = FClass
		} else {
			inst.FPOp = FMvXW
		}
	case 0x1e:
		inst.FPOp = FMvWX
	default:
		return illegal(w)
	}
	return inst
}
