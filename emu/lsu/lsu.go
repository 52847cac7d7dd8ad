/*
 * rv64sim - Load/store unit: address translation, misaligned splitting,
 * LR/SC reservations, and atomic memory operations.
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

// Package lsu sits between the pipeline's MEM stage and the physical
// bus: it translates the effective virtual address, splits misaligned
// accesses into single-byte accesses, and implements the
// RV64A atomic instruction semantics (spec §4.6, §4.7).
package lsu

import (
	"github.com/rv64lab/rv64sim/emu/addr"
	"github.com/rv64lab/rv64sim/emu/alu"
	"github.com/rv64lab/rv64sim/emu/decode"
	"github.com/rv64lab/rv64sim/emu/mmu"
	"github.com/rv64lab/rv64sim/emu/trap"
)

// BusIO is the minimal bus surface the LSU needs, kept as an interface
// so tests can supply a fake backing store.
type BusIO interface {
	Load(a addr.Phys, width int) (uint64, bool)
	Store(a addr.Phys, width int, value uint64) bool
}

// Unit is the load/store unit for one hart. It owns the LR/SC
// reservation set (spec §4.7: "a single global reservation per hart,
// cleared by any intervening store to the reserved line or by a trap").
type Unit struct {
	Bus        BusIO
	MMU        *mmu.MMU
	reserved   bool
	reserveAddr addr.Phys
}

// New constructs an LSU wired to the given bus and MMU.
func New(bus BusIO, m *mmu.MMU) *Unit {
	return &Unit{Bus: bus, MMU: m}
}

// Result carries either a loaded value or a fault back to the pipeline.
type Result struct {
	Value uint64
	Fault addr.Fault
}

func (u *Unit) translate(va addr.Virt, kind addr.AccessKind, priv trap.Mode, sum, mxr bool) (addr.Phys, addr.Fault) {
	if u.MMU == nil {
		return addr.Phys(va), addr.FaultNone
	}
	return u.MMU.Translate(va, kind, priv, sum, mxr)
}

// Load performs a width-byte load from virtual address va, checking
// alignment first: a misaligned load, whether or not it crosses a page,
// goes through splitLoad, which translates and loads one byte at a time
// (spec §4.6).
func (u *Unit) Load(va addr.Virt, width int, unsigned bool, priv trap.Mode, sum, mxr bool) Result {
	if !addr.Aligned(uint64(va), widthOf(width)) {
		return u.splitLoad(va, width, unsigned, priv, sum, mxr)
	}
	pa, fault := u.translate(va, addr.AccessLoad, priv, sum, mxr)
	if fault != addr.FaultNone {
		return Result{Fault: fault}
	}
	raw, ok := u.Bus.Load(pa, width)
	if !ok {
		return Result{Fault: addr.FaultAccess}
	}
	return Result{Value: signExtend(raw, width, unsigned)}
}

// splitLoad handles a misaligned load that may straddle a page boundary
// by translating and fetching one byte at a time and assembling the
// little-endian result; simple, and correct regardless of where the
// crossing falls.
func (u *Unit) splitLoad(va addr.Virt, width int, unsigned bool, priv trap.Mode, sum, mxr bool) Result {
	var raw uint64
	for i := 0; i < width; i++ {
		pa, fault := u.translate(va+addr.Virt(i), addr.AccessLoad, priv, sum, mxr)
		if fault != addr.FaultNone {
			return Result{Fault: fault}
		}
		b, ok := u.Bus.Load(pa, 1)
		if !ok {
			return Result{Fault: addr.FaultAccess}
		}
		raw |= b << (8 * uint(i))
	}
	return Result{Value: signExtend(raw, width, unsigned)}
}

// Store performs a width-byte store to virtual address va.
func (u *Unit) Store(va addr.Virt, width int, value uint64, priv trap.Mode, sum, mxr bool) addr.Fault {
	if !addr.Aligned(uint64(va), widthOf(width)) {
		return u.splitStore(va, width, value, priv, sum, mxr)
	}
	pa, fault := u.translate(va, addr.AccessStore, priv, sum, mxr)
	if fault != addr.FaultNone {
		return fault
	}
	u.clearIfOverlaps(pa, width)
	if !u.Bus.Store(pa, width, value) {
		return addr.FaultAccess
	}
	return addr.FaultNone
}

func (u *Unit) splitStore(va addr.Virt, width int, value uint64, priv trap.Mode, sum, mxr bool) addr.Fault {
	for i := 0; i < width; i++ {
		pa, fault := u.translate(va+addr.Virt(i), addr.AccessStore, priv, sum, mxr)
		if fault != addr.FaultNone {
			return fault
		}
		u.clearIfOverlaps(pa, 1)
		b := (value >> (8 * uint(i))) & 0xff
		if !u.Bus.Store(pa, 1, b) {
			return addr.FaultAccess
		}
	}
	return addr.FaultNone
}

func widthOf(bytes int) addr.Width {
	switch bytes {
	case 1:
		return addr.Byte
	case 2:
		return addr.Half
	case 4:
		return addr.Word
	default:
		return addr.Dword
	}
}

func signExtend(raw uint64, width int, unsigned bool) uint64 {
	if unsigned || width == 8 {
		return raw
	}
	bits := width * 8
	shift := 64 - bits
	return uint64(int64(raw<<shift) >> shift)
}

// LoadReserved implements LR.W/LR.D: loads width bytes and establishes a
// reservation on the containing physical address.
func (u *Unit) LoadReserved(va addr.Virt, width int, priv trap.Mode, sum, mxr bool) Result {
	pa, fault := u.translate(va, addr.AccessLoad, priv, sum, mxr)
	if fault != addr.FaultNone {
		return Result{Fault: fault}
	}
	raw, ok := u.Bus.Load(pa, width)
	if !ok {
		return Result{Fault: addr.FaultAccess}
	}
	u.reserved = true
	u.reserveAddr = pa
	return Result{Value: signExtend(raw, width, false)}
}

// StoreConditional implements SC.W/SC.D: succeeds (returns 0) only if a
// matching reservation is still live, else fails (returns 1) without
// writing memory (spec §4.7).
func (u *Unit) StoreConditional(va addr.Virt, width int, value uint64, priv trap.Mode, sum, mxr bool) (result uint64, fault addr.Fault) {
	pa, f := u.translate(va, addr.AccessStore, priv, sum, mxr)
	if f != addr.FaultNone {
		return 0, f
	}
	if !u.reserved || u.reserveAddr != pa {
		return 1, addr.FaultNone
	}
	u.reserved = false
	if !u.Bus.Store(pa, width, value) {
		return 0, addr.FaultAccess
	}
	return 0, addr.FaultNone
}

// clearIfOverlaps invalidates any live LR reservation that a competing
// store (from this hart or, in a multi-hart build, another) would
// invalidate per the architecture's "any store to the reserved block"
// rule. The reserved block is the aligned doubleword containing the
// reservation address.
func (u *Unit) clearIfOverlaps(pa addr.Phys, width int) {
	if !u.reserved {
		return
	}
	block := uint64(u.reserveAddr) &^ 7
	if uint64(pa) < block+8 && uint64(pa)+uint64(width) > block {
		u.reserved = false
	}
}

// ClearReservation drops any live LR reservation; called on trap entry
// and context switch, since the architecture permits (and real
// implementations require) clearing on any intervening trap.
func (u *Unit) ClearReservation() { u.reserved = false }

// AMO performs a read-modify-write atomic memory operation at va,
// returning the value loaded (the pre-image, per RV64A semantics: "the
// destination register gets the value from memory before the
// operation").
func (u *Unit) AMO(op decode.AmoOp, va addr.Virt, width int, operand uint64, priv trap.Mode, sum, mxr bool) Result {
	pa, fault := u.translate(va, addr.AccessLoad, priv, sum, mxr)
	if fault != addr.FaultNone {
		return Result{Fault: fault}
	}
	// Re-translate for store permission too (fetch is load+store checked
	// separately since a PTE could be read-only).
	paStore, fault := u.translate(va, addr.AccessStore, priv, sum, mxr)
	if fault != addr.FaultNone {
		return Result{Fault: fault}
	}
	_ = paStore

	old, ok := u.Bus.Load(pa, width)
	if !ok {
		return Result{Fault: addr.FaultAccess}
	}
	oldSigned := signExtend(old, width, false)

	var newVal uint64
	switch op {
	case decode.AmoSwap:
		newVal = operand
	case decode.AmoAdd:
		newVal = old + operand
	case decode.AmoXor:
		newVal = old ^ operand
	case decode.AmoAnd:
		newVal = old & operand
	case decode.AmoOr:
		newVal = old | operand
	case decode.AmoMin:
		if int64(oldSigned) < int64(operand) {
			newVal = old
		} else {
			newVal = operand
		}
	case decode.AmoMax:
		if int64(oldSigned) > int64(operand) {
			newVal = old
		} else {
			newVal = operand
		}
	case decode.AmoMinu:
		newVal = alu.Exec(alu.Sltu, old, operand)
		if newVal != 0 {
			newVal = old
		} else {
			newVal = operand
		}
	case decode.AmoMaxu:
		newVal = alu.Exec(alu.Sltu, operand, old)
		if newVal != 0 {
			newVal = old
		} else {
			newVal = operand
		}
	default:
		newVal = old
	}

	u.clearIfOverlaps(pa, width)
	if !u.Bus.Store(pa, width, newVal) {
		return Result{Fault: addr.FaultAccess}
	}
	return Result{Value: oldSigned}
}
