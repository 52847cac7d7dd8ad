/*
 * rv64sim - Trap entry/return sequencing: privilege transition, mstatus
 * stacking, and vectored mtvec/stvec dispatch.
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

package core

import (
	"github.com/rv64lab/rv64sim/emu/addr"
	"github.com/rv64lab/rv64sim/emu/trap"
)

const (
	mstatusSIE  = uint64(1) << 1
	mstatusMIE  = uint64(1) << 3
	mstatusSPIE = uint64(1) << 5
	mstatusMPIE = uint64(1) << 7
	mstatusSPP  = uint64(1) << 8
	mstatusMPPShift = 11
	mstatusMPPMask  = uint64(0x3) << mstatusMPPShift
)

// checkInterrupt samples CSR.PendingEnabled against the current privilege
// and mstatus.{M,S}IE, returning the highest-priority pending-and-enabled
// interrupt, if any (spec §4.10, priority order external > software > timer
// within a privilege level, machine before supervisor).
func (c *Core) checkInterrupt() (trap.Cause, bool) {
	pending := c.CSR.PendingEnabled()
	if pending == 0 {
		return 0, false
	}

	mstatus := c.CSR.Mstatus()
	mEnabled := c.Priv < trap.ModeMachine || (c.Priv == trap.ModeMachine && mstatus&mstatusMIE != 0)
	mideleg := c.CSR.Mideleg()

	order := []trap.Cause{trap.IrqExternal, trap.IrqSoftware, trap.IrqTimer}
	for _, code := range order {
		bit := interruptBit(code)
		if pending&bit == 0 {
			continue
		}
		isDelegated := mideleg&bit != 0
		if !isDelegated {
			if mEnabled {
				return trap.Interrupt(code), true
			}
			continue
		}
		sEnabled := c.Priv < trap.ModeSupervisor || (c.Priv == trap.ModeSupervisor && mstatus&mstatusSIE != 0)
		if sEnabled {
			return trap.Interrupt(code), true
		}
	}
	return 0, false
}

// interruptBit maps a cause category to the mip bit that hardware (CLINT,
// SYSCON/PLIC-equivalent) actually sets. Only the machine-level bits are
// hardware-driven in this model; a delegated interrupt is still reported
// under the same cause code trap.Cause defines for it (spec §4.10 keeps a
// single cause constant per category rather than separate M/S codes).
func interruptBit(code trap.Cause) uint64 {
	switch code {
	case trap.IrqSoftware:
		return 1 << 3 // MSIP
	case trap.IrqTimer:
		return 1 << 7 // MTIP
	case trap.IrqExternal:
		return 1 << 11 // MEIP
	default:
		return 0
	}
}

// trapException dispatches a synchronous exception taken at the
// instruction currently at c.PC.
func (c *Core) trapException(cause trap.Cause, tval uint64) {
	c.dispatchTrap(cause, tval, uint64(c.PC))
}

// dispatchTrap performs the privilege transition for cause, delegating to
// S-mode when medeleg/mideleg says to and the current privilege is at or
// below S, otherwise taking the trap in M-mode (spec §4.10).
func (c *Core) dispatchTrap(cause trap.Cause, tval, epc uint64) {
	c.LSU.ClearReservation()

	delegate := c.Priv != trap.ModeMachine && delegated(c.CSR.Medeleg(), c.CSR.Mideleg(), cause)

	if delegate {
		c.CSR.SetSepc(epc)
		c.CSR.SetScause(cause)
		c.CSR.SetStval(tval)
		mstatus := c.CSR.Mstatus()
		if mstatus&mstatusSIE != 0 {
			mstatus |= mstatusSPIE
		} else {
			mstatus &^= mstatusSPIE
		}
		mstatus &^= mstatusSIE
		if c.Priv == trap.ModeSupervisor {
			mstatus |= mstatusSPP
		} else {
			mstatus &^= mstatusSPP
		}
		c.CSR.SetMstatus(mstatus)
		c.Priv = trap.ModeSupervisor
		c.PC = vectoredTarget(c.CSR.Stvec(), cause)
		return
	}

	c.CSR.SetMepc(epc)
	c.CSR.SetMcause(cause)
	c.CSR.SetMtval(tval)
	mstatus := c.CSR.Mstatus()
	if mstatus&mstatusMIE != 0 {
		mstatus |= mstatusMPIE
	} else {
		mstatus &^= mstatusMPIE
	}
	mstatus &^= mstatusMIE
	mstatus = (mstatus &^ mstatusMPPMask) | (uint64(c.Priv) << mstatusMPPShift)
	c.CSR.SetMstatus(mstatus)
	c.Priv = trap.ModeMachine
	c.PC = vectoredTarget(c.CSR.Mtvec(), cause)
}

func delegated(medeleg, mideleg uint64, cause trap.Cause) bool {
	if cause.IsInterrupt() {
		bit := interruptBitForCode(cause.Code())
		return bit != 0 && mideleg&bit != 0
	}
	return medeleg&(1<<cause.Code()) != 0
}

func interruptBitForCode(code uint64) uint64 {
	switch trap.Cause(code) {
	case trap.IrqSoftware:
		return interruptBit(trap.IrqSoftware)
	case trap.IrqTimer:
		return interruptBit(trap.IrqTimer)
	case trap.IrqExternal:
		return interruptBit(trap.IrqExternal)
	default:
		return 0
	}
}

// vectoredTarget computes the trap entry PC from an mtvec/stvec value:
// mode 0 is Direct (always base), mode 1 is Vectored (base + 4*cause for
// interrupts only).
func vectoredTarget(tvec uint64, cause trap.Cause) addr.Virt {
	base := tvec &^ 0x3
	mode := tvec & 0x3
	if mode == 1 && cause.IsInterrupt() {
		base += 4 * cause.Code()
	}
	return addr.Virt(base)
}

// returnFromTrap implements MRET/SRET: restores privilege from MPP/SPP,
// restores the enable bit from the stacked *PIE, and returns the PC to
// resume at (spec §4.10).
func (c *Core) returnFromTrap(from trap.Mode) addr.Virt {
	c.LSU.ClearReservation()
	mstatus := c.CSR.Mstatus()

	if from == trap.ModeMachine {
		prev := c.CSR.MPP()
		if mstatus&mstatusMPIE != 0 {
			mstatus |= mstatusMIE
		} else {
			mstatus &^= mstatusMIE
		}
		mstatus |= mstatusMPIE
		mstatus = (mstatus &^ mstatusMPPMask) | (uint64(trap.ModeUser) << mstatusMPPShift)
		c.CSR.SetMstatus(mstatus)
		c.Priv = prev
		return addr.Virt(c.CSR.Mepc())
	}

	prev := c.CSR.SPP()
	if mstatus&mstatusSPIE != 0 {
		mstatus |= mstatusSIE
	} else {
		mstatus &^= mstatusSIE
	}
	mstatus |= mstatusSPIE
	mstatus &^= mstatusSPP
	c.CSR.SetMstatus(mstatus)
	c.Priv = prev
	return addr.Virt(c.CSR.Sepc())
}
