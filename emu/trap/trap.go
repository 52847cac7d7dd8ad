/*
 * rv64sim - Trap cause encoding and privilege transitions.
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

// Package trap represents a RISC-V trap as a plain value, never as a
// host-level exception (Design Note: "Trap as control flow"). emu/core
// dispatches a trap as soon as it detects it; pipeline.Latch has an
// *Event field, but core.Step does not fill it.
package trap

import "fmt"

// Cause is the standard RISC-V mcause/scause encoding: bit 63 set means
// interrupt, otherwise exception; the low bits are the cause code.
type Cause uint64

const interruptBit = uint64(1) << 63

// Exception causes (spec §7).
const (
	CauseInstrMisaligned  Cause = 0
	CauseInstrAccessFault Cause = 1
	CauseIllegalInstr     Cause = 2
	CauseBreakpoint       Cause = 3
	CauseLoadMisaligned   Cause = 4
	CauseLoadAccessFault  Cause = 5
	CauseStoreMisaligned  Cause = 6
	CauseStoreAccessFault Cause = 7
	CauseECallFromU       Cause = 8
	CauseECallFromS       Cause = 9
	CauseECallFromM       Cause = 11
	CauseInstrPageFault   Cause = 12
	CauseLoadPageFault    Cause = 13
	CauseStorePageFault   Cause = 15
)

// Interrupt causes (low bits of mcause/scause with the interrupt bit set).
const (
	IrqSoftware Cause = 3
	IrqTimer    Cause = 7
	IrqExternal Cause = 11
)

// Interrupt packs an interrupt code into a Cause with bit 63 set.
func Interrupt(code Cause) Cause { return Cause(interruptBit) | code }

// IsInterrupt reports whether c is an asynchronous interrupt.
func (c Cause) IsInterrupt() bool { return uint64(c)&interruptBit != 0 }

// Code strips the interrupt bit, leaving the bare cause number.
func (c Cause) Code() uint64 { return uint64(c) &^ interruptBit }

func (c Cause) String() string {
	if c.IsInterrupt() {
		return fmt.Sprintf("interrupt %d", c.Code())
	}
	return fmt.Sprintf("exception %d", c.Code())
}

// Mode is a RISC-V privilege level.
type Mode int

const (
	ModeUser Mode = 0
	ModeSupervisor Mode = 1
	ModeMachine Mode = 3
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "U"
	case ModeSupervisor:
		return "S"
	case ModeMachine:
		return "M"
	default:
		return "?"
	}
}

// Event is the value a pipeline stage returns to signal a trap. A nil
// *Event means "no trap this cycle."
type Event struct {
	Cause   Cause
	TVal    uint64 // faulting address or offending instruction bits
	EPC     uint64 // PC of the faulting/trapping instruction
}

func (e *Event) String() string {
	if e == nil {
		return "<no trap>"
	}
	return fmt.Sprintf("%s at pc=0x%x tval=0x%x", e.Cause, e.EPC, e.TVal)
}

// Delegatable reports whether cause is delegatable at all (some causes,
// like causes reserved/unused, never appear here; this is a hook point for
// future cause additions, but today all declared causes are delegatable).
func Delegatable(c Cause) bool { return true }
