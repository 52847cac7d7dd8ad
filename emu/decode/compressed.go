/*
 * rv64sim - Compressed (RVC) instruction expansion.
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

package decode

import "github.com/rv64lab/rv64sim/emu/alu"

// compressedReg maps a 3-bit RVC register field to the full x8-x15 range
// used by the "popular register" compressed formats (C.LW, C.ADD, etc).
func compressedReg(r uint16) int { return int(r&0x7) + 8 }

// DecodeCompressed expands a 16-bit instruction into the equivalent Inst
// a 32-bit encoding would have produced, flagging Compressed so the fetch
// stage advances PC by 2 instead of 4 (spec §4.3).
func DecodeCompressed(c uint16) Inst {
	op := c & 0x3
	funct3 := (c >> 13) & 0x7

	inst := Inst{Raw: uint32(c), Compressed: true}

	if c == 0 {
		return illegalC(c)
	}

	switch op {
	case 0x0: // Quadrant 0
		rd := compressedReg(c >> 2)
		rs1 := compressedReg(c >> 7)
		switch funct3 {
		case 0x0: // C.ADDI4SPN
			nzuimm := ((c >> 7) & 0x30) | ((c >> 1) & 0x3c0) | ((c >> 4) & 0x4) | ((c >> 2) & 0x8)
			if nzuimm == 0 {
				return illegalC(c)
			}
			inst.Class = ClassALUImm
			inst.Op = alu.Add
			inst.Rd = rd
			inst.Rs1 = 2
			inst.Imm = int64(nzuimm)
			return inst
		case 0x2: // C.LW
			inst.Class = ClassLoad
			inst.Width = 4
			inst.Rd = rd
			inst.Rs1 = rs1
			inst.Imm = int64(clwImm(c))
			return inst
		case 0x3: // C.LD
			inst.Class = ClassLoad
			inst.Width = 8
			inst.Rd = rd
			inst.Rs1 = rs1
			inst.Imm = int64(cldImm(c))
			return inst
		case 0x6: // C.SW
			inst.Class = ClassStore
			inst.Width = 4
			inst.Rs1 = rs1
			inst.Rs2 = rd
			inst.Imm = int64(clwImm(c))
			return inst
		case 0x7: // C.SD
			inst.Class = ClassStore
			inst.Width = 8
			inst.Rs1 = rs1
			inst.Rs2 = rd
			inst.Imm = int64(cldImm(c))
			return inst
		}
		return illegalC(c)

	case 0x1: // Quadrant 1
		rd := int((c >> 7) & 0x1f)
		switch funct3 {
		case 0x0: // C.ADDI / C.NOP
			inst.Class = ClassALUImm
			inst.Op = alu.Add
			inst.Rd = rd
			inst.Rs1 = rd
			inst.Imm = ciImm(c)
			return inst
		case 0x1: // C.ADDIW
			inst.Class = ClassALUImm
			inst.Op = alu.Add
			inst.Word = true
			inst.Rd = rd
			inst.Rs1 = rd
			inst.Imm = ciImm(c)
			if rd == 0 {
				return illegalC(c)
			}
			return inst
		case 0x2: // C.LI
			inst.Class = ClassALUImm
			inst.Op = alu.Add
			inst.Rd = rd
			inst.Rs1 = 0
			inst.Imm = ciImm(c)
			return inst
		case 0x3:
			if rd == 2 { // C.ADDI16SP
				nz := ((c >> 3) & 0x200) | ((c >> 2) & 0x10) | ((c << 1) & 0x40) |
					((c << 4) & 0x180) | ((c << 3) & 0x20)
				imm := signExtendU16(nz, 10)
				inst.Class = ClassALUImm
				inst.Op = alu.Add
				inst.Rd = 2
				inst.Rs1 = 2
				inst.Imm = imm
				return inst
			}
			// C.LUI
			nz := ((uint32(c) << 5) & 0x20000) | ((uint32(c) << 10) & 0x1f000)
			inst.Class = ClassLUI
			inst.Rd = rd
			inst.Imm = signExtend(nz, 18)
			if rd == 0 {
				return illegalC(c)
			}
			return inst
		case 0x4:
			return decodeCQ1Arith(inst, c)
		case 0x5: // C.J
			inst.Class = ClassJAL
			inst.Rd = 0
			inst.Imm = cjImm(c)
			return inst
		case 0x6: // C.BEQZ
			inst.Class = ClassBranch
			inst.Funct3 = 0 // BEQ
			inst.Rs1 = compressedReg(c >> 7)
			inst.Rs2 = 0
			inst.Imm = cbImm(c)
			return inst
		case 0x7: // C.BNEZ
			inst.Class = ClassBranch
			inst.Funct3 = 1 // BNE
			inst.Rs1 = compressedReg(c >> 7)
			inst.Rs2 = 0
			inst.Imm = cbImm(c)
			return inst
		}
		return illegalC(c)

	case 0x2: // Quadrant 2
		rd := int((c >> 7) & 0x1f)
		rs2 := int((c >> 2) & 0x1f)
		switch funct3 {
		case 0x0: // C.SLLI
			shamt := ((c >> 7) & 0x20) | ((c >> 2) & 0x1f)
			inst.Class = ClassALUImm
			inst.Op = alu.Sll
			inst.Rd = rd
			inst.Rs1 = rd
			inst.Imm = int64(shamt)
			return inst
		case 0x2: // C.LWSP
			if rd == 0 {
				return illegalC(c)
			}
			off := ((c >> 7) & 0x20) | ((c >> 2) & 0x1c) | ((c << 4) & 0xc0)
			inst.Class = ClassLoad
			inst.Width = 4
			inst.Rd = rd
			inst.Rs1 = 2
			inst.Imm = int64(off)
			return inst
		case 0x3: // C.LDSP
			if rd == 0 {
				return illegalC(c)
			}
			off := ((c >> 7) & 0x20) | ((c << 4) & 0x1c0) | ((c >> 2) & 0x18)
			inst.Class = ClassLoad
			inst.Width = 8
			inst.Rd = rd
			inst.Rs1 = 2
			inst.Imm = int64(off)
			return inst
		case 0x4:
			lowBit := (c >> 12) & 1
			if lowBit == 0 {
				if rs2 == 0 { // C.JR
					if rd == 0 {
						return illegalC(c)
					}
					inst.Class = ClassJALR
					inst.Rd = 0
					inst.Rs1 = rd
					inst.Imm = 0
					return inst
				}
				// C.MV
				inst.Class = ClassALUReg
				inst.Op = alu.Add
				inst.Rd = rd
				inst.Rs1 = 0
				inst.Rs2 = rs2
				return inst
			}
			if rs2 == 0 {
				if rd == 0 { // C.EBREAK
					inst.Class = ClassSystem
					inst.SystemFn = SysEBreak
					return inst
				}
				// C.JALR
				inst.Class = ClassJALR
				inst.Rd = 1
				inst.Rs1 = rd
				inst.Imm = 0
				return inst
			}
			// C.ADD
			inst.Class = ClassALUReg
			inst.Op = alu.Add
			inst.Rd = rd
			inst.Rs1 = rd
			inst.Rs2 = rs2
			if rd == 0 {
				return illegalC(c)
			}
			return inst
		case 0x6: // C.SWSP
			off := ((c >> 7) & 0x3c) | ((c >> 1) & 0xc0)
			inst.Class = ClassStore
			inst.Width = 4
			inst.Rs1 = 2
			inst.Rs2 = rs2
			inst.Imm = int64(off)
			return inst
		case 0x7: // C.SDSP
			off := ((c >> 7) & 0x38) | ((c >> 1) & 0x1c0)
			inst.Class = ClassStore
			inst.Width = 8
			inst.Rs1 = 2
			inst.Rs2 = rs2
			inst.Imm = int64(off)
			return inst
		}
		return illegalC(c)
	}
	return illegalC(c)
}

func decodeCQ1Arith(inst Inst, c uint16) Inst {
	rdp := compressedReg(c >> 7)
	sub := (c >> 10) & 0x3
	switch sub {
	case 0x0: // C.SRLI
		shamt := ((c >> 7) & 0x20) | ((c >> 2) & 0x1f)
		inst.Class = ClassALUImm
		inst.Op = alu.Srl
		inst.Rd, inst.Rs1 = rdp, rdp
		inst.Imm = int64(shamt)
		return inst
	case 0x1: // C.SRAI
		shamt := ((c >> 7) & 0x20) | ((c >> 2) & 0x1f)
		inst.Class = ClassALUImm
		inst.Op = alu.Sra
		inst.Rd, inst.Rs1 = rdp, rdp
		inst.Imm = int64(shamt)
		return inst
	case 0x2: // C.ANDI
		inst.Class = ClassALUImm
		inst.Op = alu.And
		inst.Rd, inst.Rs1 = rdp, rdp
		inst.Imm = ciImm(c)
		return inst
	case 0x3:
		rs2 := compressedReg(c >> 2)
		isWord := (c>>12)&1 != 0
		funct2 := (c >> 5) & 0x3
		inst.Rd, inst.Rs1, inst.Rs2 = rdp, rdp, rs2
		inst.Class = ClassALUReg
		inst.Word = isWord
		switch funct2 {
		case 0x0:
			inst.Op = alu.Sub
		case 0x1:
			inst.Op = alu.Xor
			if isWord { // C.ADDW
				inst.Op = alu.Add
			}
		case 0x2:
			inst.Op = alu.Or
		case 0x3:
			inst.Op = alu.And
		}
		return inst
	}
	return illegalC(c)
}

func illegalC(c uint16) Inst {
	return Inst{Raw: uint32(c), Class: ClassIllegal, Compressed: true}
}

func signExtendU16(v uint16, bits int) int64 {
	shift := 32 - bits
	return int64(int32(uint32(v)<<shift)) >> shift
}

func clwImm(c uint16) uint32 {
	return uint32(((c >> 7) & 0x38) | ((c << 1) & 0x40) | ((c >> 4) & 0x4))
}

func cldImm(c uint16) uint32 {
	return uint32(((c >> 7) & 0x38) | ((c << 1) & 0xc0))
}

func ciImm(c uint16) int64 {
	raw := ((c >> 7) & 0x20) | ((c >> 2) & 0x1f)
	return signExtendU16(raw, 6)
}

func cjImm(c uint16) int64 {
	raw := ((c >> 1) & 0x800) | ((c << 2) & 0x400) | ((c >> 1) & 0x300) |
		((c << 1) & 0x80) | ((c >> 1) & 0x40) | ((c << 3) & 0x20) |
		((c >> 7) & 0x10) | ((c >> 2) & 0xe)
	return signExtendU16(raw, 12)
}

func cbImm(c uint16) int64 {
	raw := ((c >> 4) & 0x100) | ((c << 1) & 0xc0) | ((c << 3) & 0x20) |
		((c >> 7) & 0x18) | ((c >> 2) & 0x6)
	return signExtendU16(raw, 9)
}
