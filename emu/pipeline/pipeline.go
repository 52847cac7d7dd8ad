/*
 * rv64sim - Five-stage in-order pipeline.
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

// Package pipeline holds the bookkeeping for the five-stage in-order
// IF/ID/EX/MEM/WB datapath (spec §4.9): the per-stage Latch record, the
// load-use hazard and forwarding helpers, and branch resolution. It has
// no stage functions. core.Step executes each instruction to completion
// in one sequential pass, records it in the ID latch, uses
// ResolveBranch, and dispatches traps directly rather than through the
// latches (see DESIGN.md).
package pipeline

import (
	"github.com/rv64lab/rv64sim/emu/addr"
	"github.com/rv64lab/rv64sim/emu/decode"
	"github.com/rv64lab/rv64sim/emu/trap"
)

// Stage names the five pipeline stages, used as Latch array indices.
type Stage int

const (
	StageIF Stage = iota
	StageID
	StageEX
	StageMEM
	StageWB
	numStages
)

// Latch is the register holding one in-flight instruction's state as it
// crosses from one stage's output into the next stage's input. Latches
// keeps numStages of these, one per writing stage; no stage reads the
// WB entry.
type Latch struct {
	Valid      bool
	Bubble     bool // inserted bubble, not a real instruction
	PC         addr.Virt
	Raw        uint32
	Inst       decode.Inst
	PredictedTaken bool
	PredictedTarget addr.Virt

	Rs1Val, Rs2Val uint64
	ALUResult      uint64
	MemResult      uint64
	MemFault       addr.Fault
	TrapEvent      *trap.Event // non-nil once a stage detects a trapping condition
}

// Latches holds the pipeline registers between stages. Index i holds the
// latch written by stage i and read by stage i+1.
type Latches [numStages]Latch

// HazardInfo is what the ID stage needs from later stages to detect a
// load-use hazard and stall (spec §4.9: "a load followed immediately by
// a dependent use stalls one cycle").
type HazardInfo struct {
	PendingLoadReg int  // destination register of an in-flight load, 0 if none
	HasPendingLoad bool
}

// ForwardSource identifies where a stage can source an operand from
// instead of the register file, implementing full EX/MEM and MEM/WB
// forwarding (spec §4.9, invariant 3: "forwarding never changes the
// architectural result, only its latency").
type ForwardSource struct {
	Reg   int
	Value uint64
	Valid bool
}

// Forward resolves operand value for register reg, preferring the
// newest available forwarded value (EX/MEM over MEM/WB) and falling
// back to regVal (the value read from the register file in ID).
func Forward(reg int, regVal uint64, exmem, memwb ForwardSource) uint64 {
	if reg == 0 {
		return 0
	}
	if exmem.Valid && exmem.Reg == reg {
		return exmem.Value
	}
	if memwb.Valid && memwb.Reg == reg {
		return memwb.Value
	}
	return regVal
}

// DestReg returns the architectural destination register an instruction
// writes, or 0 if it writes none (x0 doubles as "no destination" since
// writes to x0 are always discarded).
func DestReg(inst decode.Inst) int {
	switch inst.Class {
	case decode.ClassStore, decode.ClassBranch, decode.ClassFence, decode.ClassFPStore:
		return 0
	case decode.ClassSystem:
		return 0
	default:
		return inst.Rd
	}
}

// IsLoad reports whether inst reads memory, for load-use hazard
// detection in ID.
func IsLoad(inst decode.Inst) bool {
	return inst.Class == decode.ClassLoad || inst.Class == decode.ClassFPLoad ||
		(inst.Class == decode.ClassAtomic && inst.Amo == decode.AmoLR)
}

// DetectLoadUseHazard reports whether the instruction currently in ID
// needs operand reg from a load still in EX, which requires a one-cycle
// stall since the loaded value isn't available until MEM completes.
func DetectLoadUseHazard(idInst decode.Inst, exLatch Latch) bool {
	if !exLatch.Valid || exLatch.Bubble || !IsLoad(exLatch.Inst) {
		return false
	}
	dest := DestReg(exLatch.Inst)
	if dest == 0 {
		return false
	}
	return idInst.Rs1 == dest || (usesRs2(idInst) && idInst.Rs2 == dest)
}

func usesRs2(inst decode.Inst) bool {
	switch inst.Class {
	case decode.ClassALUReg, decode.ClassStore, decode.ClassBranch, decode.ClassFPStore, decode.ClassAtomic:
		return true
	default:
		return false
	}
}

// BranchOutcome is what EX resolves a branch/jump to, consulted by WB
// (in program order) to decide whether to flush younger instructions
// and redirect fetch.
type BranchOutcome struct {
	Taken      bool
	Target     addr.Virt
	Mispredict bool
}

// ResolveBranch compares the actual outcome of a branch/jump against
// what was predicted at fetch time.
func ResolveBranch(predictedTaken bool, predictedTarget, actualTarget addr.Virt, actuallyTaken bool) BranchOutcome {
	mis := actuallyTaken != predictedTaken
	if actuallyTaken && predictedTaken && actualTarget != predictedTarget {
		mis = true
	}
	return BranchOutcome{Taken: actuallyTaken, Target: actualTarget, Mispredict: mis}
}
