/*
 * rv64sim - Hex dump and instruction-latch formatting helpers.
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

// Package hexfmt formats raw bytes, words, and decoded instruction
// latches for the monitor's dumps. Kept as a
// standalone package (rather than inlined in command/monitor) the way
// the teacher keeps its own hex formatter separate from the console
// reader that consumes it.
package hexfmt

import (
	"fmt"
	"strings"

	"github.com/rv64lab/rv64sim/emu/decode"
)

var hexMap = "0123456789abcdef"

// FormatWords renders a slice of 64-bit words as space-separated 16-digit
// hex, the shape the monitor's `reg` register dump uses.
func FormatWords(str *strings.Builder, words []uint64) {
	for _, w := range words {
		shift := 60
		for range 16 {
			str.WriteByte(hexMap[(w>>shift)&0xf])
			shift -= 4
		}
		str.WriteByte(' ')
	}
}

// FormatBytes renders data as hex digit pairs, optionally space separated.
func FormatBytes(str *strings.Builder, space bool, data []byte) {
	for _, by := range data {
		str.WriteByte(hexMap[(by>>4)&0xf])
		str.WriteByte(hexMap[by&0xf])
		if space {
			str.WriteByte(' ')
		}
	}
}

// FormatByte renders a single byte as two hex digits.
func FormatByte(str *strings.Builder, data byte) {
	str.WriteByte(hexMap[(data>>4)&0xf])
	str.WriteByte(hexMap[data&0xf])
}

var classNames = map[decode.Class]string{
	decode.ClassALUReg:   "alu.reg",
	decode.ClassALUImm:   "alu.imm",
	decode.ClassLoad:     "load",
	decode.ClassStore:    "store",
	decode.ClassBranch:   "branch",
	decode.ClassJAL:      "jal",
	decode.ClassJALR:     "jalr",
	decode.ClassLUI:      "lui",
	decode.ClassAUIPC:    "auipc",
	decode.ClassSystem:   "system",
	decode.ClassCSR:      "csr",
	decode.ClassFP:       "fp",
	decode.ClassFPLoad:   "fp.load",
	decode.ClassFPStore:  "fp.store",
	decode.ClassAtomic:   "atomic",
	decode.ClassFence:    "fence",
	decode.ClassIllegal:  "illegal",
}

// FormatInst renders a decoded instruction compactly as a field dump,
// not a full RV64 mnemonic table. command/monitor does not call it.
func FormatInst(raw uint32, inst decode.Inst) string {
	name, ok := classNames[inst.Class]
	if !ok {
		name = "?"
	}
	width := 32
	if inst.Compressed {
		width = 16
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%0*x %-9s rd=x%-2d rs1=x%-2d rs2=x%-2d imm=%#x", width/4, raw, name, inst.Rd, inst.Rs1, inst.Rs2, inst.Imm)
	if inst.Class == decode.ClassFP || inst.Class == decode.ClassFPLoad || inst.Class == decode.ClassFPStore {
		fmt.Fprintf(&b, " fpop=%d rs3=f%d", inst.FPOp, inst.Rs3)
	}
	if inst.Class == decode.ClassAtomic {
		fmt.Fprintf(&b, " amo=%d", inst.Amo)
	}
	return b.String()
}
