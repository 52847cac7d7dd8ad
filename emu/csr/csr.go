/*
 * rv64sim - Control and Status Register file.
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

// Package csr implements the machine/supervisor control-and-status
// register file (spec §4.1). It is deliberately a field of whatever
// aggregate owns a hart (emu/core.Core), never a package-level global —
// see Design Note "Global state."
package csr

import (
	"github.com/rv64lab/rv64sim/emu/trap"
)

// Addresses of the CSRs this emulator implements (spec §3 "CSR entry").
const (
	addrFFlags     = 0x001
	addrFRM        = 0x002
	addrFCSR       = 0x003
	addrCycle      = 0xc00
	addrTime       = 0xc01
	addrInstret    = 0xc02
	addrSstatus    = 0x100
	addrSie        = 0x104
	addrStvec      = 0x105
	addrSscratch   = 0x140
	addrSepc       = 0x141
	addrScause     = 0x142
	addrStval      = 0x143
	addrSip        = 0x144
	addrSatp       = 0x180
	addrMstatus    = 0x300
	addrMisa       = 0x301
	addrMedeleg    = 0x302
	addrMideleg    = 0x303
	addrMie        = 0x304
	addrMtvec      = 0x305
	addrMcountinhibit = 0x320
	addrMscratch   = 0x340
	addrMepc       = 0x341
	addrMcause     = 0x342
	addrMtval      = 0x343
	addrMip        = 0x344
	addrMcycle     = 0xb00
	addrMinstret   = 0xb02
)

// mstatus bit layout (subset needed at RV64 M/S/U with no H extension).
const (
	statusSIE  = uint64(1) << 1
	statusMIE  = uint64(1) << 3
	statusSPIE = uint64(1) << 5
	statusMPIE = uint64(1) << 7
	statusSPP  = uint64(1) << 8
	statusMPPShift = 11
	statusMPPMask  = uint64(0x3) << statusMPPShift
	statusSUM  = uint64(1) << 18
	statusMXR  = uint64(1) << 19
	statusMPRV = uint64(1) << 17
)

// mip/mie interrupt bit positions.
const (
	bitSSIP = uint64(1) << 1
	bitMSIP = uint64(1) << 3
	bitSTIP = uint64(1) << 5
	bitMTIP = uint64(1) << 7
	bitSEIP = uint64(1) << 9
	bitMEIP = uint64(1) << 11
)

// File is the CSR register file for one hart.
type File struct {
	mstatus uint64
	medeleg uint64
	mideleg uint64
	mie     uint64
	mip     uint64
	mtvec   uint64
	mscratch uint64
	mepc    uint64
	mcause  uint64
	mtval   uint64

	stvec    uint64
	sscratch uint64
	sepc     uint64
	scause   uint64
	stval    uint64

	satp uint64
	fcsr uint64 // fflags[4:0] | frm[7:5]

	cycle   uint64
	time    uint64
	instret uint64
	countInhibit uint64

	// SatpChanged is latched true whenever a write to satp happens that
	// changes its value; emu/core hands the new satp to the MMU (which
	// flushes its TLB) and clears it.
	SatpChanged bool

	// MtimecmpWrite is a hook for mtimecmp updates; nothing in this
	// repository sets or calls it.
	MtimecmpWrite func(value uint64)
}

// New returns a CSR file reset to the power-on state (M-mode, all
// interrupts and delegation clear).
func New() *File {
	return &File{mtvec: 0, stvec: 0}
}

func privOf(addr uint16) trap.Mode {
	return trap.Mode((addr >> 8) & 0x3)
}

func readOnly(addr uint16) bool {
	return (addr>>10)&0x3 == 0x3
}

// Read performs a privilege-checked CSR read. ok is false (illegal
// instruction) if addr is unimplemented or priv is insufficient.
func (f *File) Read(addrv uint16, priv trap.Mode) (value uint64, ok bool) {
	if priv < privOf(addrv) {
		return 0, false
	}
	switch addrv {
	case addrFFlags:
		return f.fcsr & 0x1f, true
	case addrFRM:
		return (f.fcsr >> 5) & 0x7, true
	case addrFCSR:
		return f.fcsr & 0xff, true
	case addrCycle, addrMcycle:
		return f.cycle, true
	case addrTime:
		return f.time, true
	case addrInstret, addrMinstret:
		return f.instret, true
	case addrSstatus:
		return f.sstatusView(), true
	case addrSie:
		return f.mie & f.mideleg, true
	case addrStvec:
		return f.stvec, true
	case addrSscratch:
		return f.sscratch, true
	case addrSepc:
		return f.sepc, true
	case addrScause:
		return f.scause, true
	case addrStval:
		return f.stval, true
	case addrSip:
		return f.mip & f.mideleg, true
	case addrSatp:
		return f.satp, true
	case addrMstatus:
		return f.mstatus, true
	case addrMisa:
		// RV64IMAFDC with S and U modes: bits for I,M,A,F,D,C,S,U plus
		// MXL=2 (64-bit) in [63:62].
		return (uint64(2) << 62) | misaExtBits(), true
	case addrMedeleg:
		return f.medeleg, true
	case addrMideleg:
		return f.mideleg, true
	case addrMie:
		return f.mie, true
	case addrMtvec:
		return f.mtvec, true
	case addrMcountinhibit:
		return f.countInhibit, true
	case addrMscratch:
		return f.mscratch, true
	case addrMepc:
		return f.mepc, true
	case addrMcause:
		return f.mcause, true
	case addrMtval:
		return f.mtval, true
	case addrMip:
		return f.mip, true
	default:
		return 0, false
	}
}

func misaExtBits() uint64 {
	bit := func(letter rune) uint64 { return 1 << (uint64(letter) - 'A') }
	return bit('I') | bit('M') | bit('A') | bit('F') | bit('D') | bit('C') | bit('S') | bit('U')
}

// sstatusView projects the S-mode-visible subset of mstatus.
func (f *File) sstatusView() uint64 {
	const mask = statusSIE | statusSPIE | statusSPP | statusSUM | statusMXR
	return f.mstatus & mask
}

// Write performs a privilege-checked CSR write. ok is false if addr is
// read-only, unimplemented, or priv is insufficient (spec §4.1: writes to
// unimplemented CSRs raise illegal-instruction).
func (f *File) Write(addrv uint16, value uint64, priv trap.Mode) (ok bool) {
	if priv < privOf(addrv) {
		return false
	}
	if readOnly(addrv) {
		return false
	}
	switch addrv {
	case addrFFlags:
		f.fcsr = (f.fcsr &^ 0x1f) | (value & 0x1f)
	case addrFRM:
		f.fcsr = (f.fcsr &^ (0x7 << 5)) | ((value & 0x7) << 5)
	case addrFCSR:
		f.fcsr = value & 0xff
	case addrSstatus:
		const mask = statusSIE | statusSPIE | statusSPP | statusSUM | statusMXR
		f.mstatus = (f.mstatus &^ mask) | (value & mask)
	case addrSie:
		f.mie = (f.mie &^ f.mideleg) | (value & f.mideleg)
	case addrStvec:
		f.stvec = value
	case addrSscratch:
		f.sscratch = value
	case addrSepc:
		f.sepc = value &^ 1
	case addrScause:
		f.scause = value
	case addrStval:
		f.stval = value
	case addrSip:
		// Only SSIP is software-settable through sip; STIP/SEIP are owned
		// by CLINT/PLIC-equivalent hardware (spec §4.1: "writes to
		// mip.MTIP are ignored").
		const writable = bitSSIP
		f.mip = (f.mip &^ (writable & f.mideleg)) | (value & writable & f.mideleg)
	case addrSatp:
		if f.satp != value {
			f.SatpChanged = true
		}
		f.satp = value
	case addrMstatus:
		const mask = statusSIE | statusMIE | statusSPIE | statusMPIE | statusSPP |
			statusMPPMask | statusSUM | statusMXR | statusMPRV
		f.mstatus = (f.mstatus &^ mask) | (value & mask)
	case addrMedeleg:
		f.medeleg = value
	case addrMideleg:
		f.mideleg = value
	case addrMie:
		f.mie = value
	case addrMtvec:
		f.mtvec = value
	case addrMcountinhibit:
		f.countInhibit = value
	case addrMscratch:
		f.mscratch = value
	case addrMepc:
		f.mepc = value &^ 1
	case addrMcause:
		f.mcause = value
	case addrMtval:
		f.mtval = value
	case addrMip:
		// Only MSIP/SSIP/SEIP are writable by software; MTIP is CLINT-owned.
		const writable = bitSSIP | bitMSIP | bitSEIP
		f.mip = (f.mip &^ writable) | (value & writable)
	default:
		return false
	}
	return true
}

// CSRRW/CSRRS/CSRRC combinators perform the atomic read-then-masked-write
// that the SYSTEM/CSR opcode class needs (spec §4.1).

// ReadModifyWriteSwap implements csrrw: returns old value, writes newValue.
func (f *File) ReadModifyWriteSwap(addrv uint16, newValue uint64, priv trap.Mode, readOldValue bool) (old uint64, ok bool) {
	if readOldValue {
		old, ok = f.Read(addrv, priv)
		if !ok {
			return 0, false
		}
	}
	if !f.Write(addrv, newValue, priv) {
		return 0, false
	}
	return old, true
}

// ReadModifySet implements csrrs: old | set bits from mask are ORed in
// (rs1/imm == 0 means read-only, no write attempted so a read-only CSR
// can still be read this way).
func (f *File) ReadModifySet(addrv uint16, mask uint64, priv trap.Mode, doWrite bool) (old uint64, ok bool) {
	old, ok = f.Read(addrv, priv)
	if !ok || !doWrite || mask == 0 {
		return old, ok
	}
	return old, f.Write(addrv, old|mask, priv)
}

// ReadModifyClear implements csrrc: clears the bits set in mask.
func (f *File) ReadModifyClear(addrv uint16, mask uint64, priv trap.Mode, doWrite bool) (old uint64, ok bool) {
	old, ok = f.Read(addrv, priv)
	if !ok || !doWrite || mask == 0 {
		return old, ok
	}
	return old, f.Write(addrv, old&^mask, priv)
}

// Tick advances mcycle/minstret bookkeeping. retired indicates whether an
// instruction retired this cycle (minstret only bumps on retirement;
// mcycle bumps every cycle unless inhibited).
func (f *File) Tick(retired bool) {
	if f.countInhibit&0x1 == 0 {
		f.cycle++
	}
	if retired && f.countInhibit&0x4 == 0 {
		f.instret++
	}
}

// SetTime is called by the CLINT device to publish the memory-mapped
// MTIME register into the `time` CSR.
func (f *File) SetTime(t uint64) { f.time = t }

// SetTimerPending sets or clears mip.MTIP; owned exclusively by CLINT.
func (f *File) SetTimerPending(pending bool) {
	if pending {
		f.mip |= bitMTIP
	} else {
		f.mip &^= bitMTIP
	}
}

// SetExternalPending sets or clears mip.MEIP (used by UART RX-ready
// interrupts in configurations that wire the UART to a PLIC-like line;
// unused in the default machine but kept for completeness of the CSR
// model).
func (f *File) SetExternalPending(pending bool) {
	if pending {
		f.mip |= bitMEIP
	} else {
		f.mip &^= bitMEIP
	}
}

// SetSoftwarePending sets or clears mip.MSIP (CLINT MSIP register).
func (f *File) SetSoftwarePending(pending bool) {
	if pending {
		f.mip |= bitMSIP
	} else {
		f.mip &^= bitMSIP
	}
}

// PendingEnabled returns the set of currently pending-and-enabled
// interrupts (mip & mie), used by WFI and by interrupt sampling at
// writeback.
func (f *File) PendingEnabled() uint64 { return f.mip & f.mie }

// AnyPending reports whether any interrupt is pending regardless of mie,
// which is what WFI waits for (spec §4.10: "WFI stalls ... regardless of
// MIE").
func (f *File) AnyPending() bool { return f.mip != 0 }

// Mstatus exposes the raw mstatus value for the pipeline's trap/MRET logic.
func (f *File) Mstatus() uint64 { return f.mstatus }

// SetMstatus installs a raw mstatus value (used by the trap-entry/MRET
// sequencing in emu/core, which manipulates the MIE/MPIE/MPP stack as a
// unit rather than CSR-address by CSR-address).
func (f *File) SetMstatus(v uint64) { f.mstatus = v }

// MPP returns the previous-privilege field of mstatus.
func (f *File) MPP() trap.Mode { return trap.Mode((f.mstatus & statusMPPMask) >> statusMPPShift) }

// SetMPP sets the previous-privilege field of mstatus.
func (f *File) SetMPP(m trap.Mode) {
	f.mstatus = (f.mstatus &^ statusMPPMask) | (uint64(m) << statusMPPShift)
}

// SPP/SetSPP manipulate the single-bit supervisor previous-privilege field.
func (f *File) SPP() trap.Mode {
	if f.mstatus&statusSPP != 0 {
		return trap.ModeSupervisor
	}
	return trap.ModeUser
}

func (f *File) SetSPP(m trap.Mode) {
	if m == trap.ModeSupervisor {
		f.mstatus |= statusSPP
	} else {
		f.mstatus &^= statusSPP
	}
}

// Medeleg/Mideleg expose the delegation bitmaps for the trap dispatcher.
func (f *File) Medeleg() uint64 { return f.medeleg }
func (f *File) Mideleg() uint64 { return f.mideleg }

// Mtvec/Stvec expose the trap-vector base+mode for dispatch.
func (f *File) Mtvec() uint64 { return f.mtvec }
func (f *File) Stvec() uint64 { return f.stvec }

// SetMepc/Mepc, SetMcause, SetMtval, SetSepc/Sepc, SetScause and
// SetStval give the trap dispatcher direct,
// un-privilege-checked access (the dispatcher runs in the hardware's own
// trap-entry microcode, which is exempt from the CSR privilege check that
// software CSR instructions go through).
func (f *File) SetMepc(v uint64)   { f.mepc = v }
func (f *File) Mepc() uint64       { return f.mepc }
func (f *File) SetMcause(v Cause)  { f.mcause = uint64(v) }
func (f *File) SetMtval(v uint64)  { f.mtval = v }
func (f *File) SetSepc(v uint64)   { f.sepc = v }
func (f *File) Sepc() uint64       { return f.sepc }
func (f *File) SetScause(v Cause)  { f.scause = uint64(v) }
func (f *File) SetStval(v uint64)  { f.stval = v }

// Cause is a local alias so callers in this package's API don't need to
// import trap just to pass a cause into SetMcause/SetScause.
type Cause = trap.Cause

// FFlags/SetFFlags manipulate the five IEEE-754 accrued exception flags
// (NX, UF, OF, DZ, NV from bit 0) that FPU ops accumulate into (spec §4.2).
func (f *File) FFlags() uint8 { return uint8(f.fcsr & 0x1f) }
func (f *File) AccumulateFlags(flags uint8) {
	f.fcsr |= uint64(flags) & 0x1f
}

// FRM returns the static rounding mode field; a dynamic rm=7 instruction
// encoding means "use this value instead."
func (f *File) FRM() uint8 { return uint8((f.fcsr >> 5) & 0x7) }
