/*
 * rv64sim - Sv39 virtual memory management unit.
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

// Package mmu implements the Sv39 three-level page-table walker and its
// TLB (spec §4.6). Reader is the callback into physical memory the
// walker uses to fetch PTEs, kept as a function value rather than a
// concrete dependency so the MMU never needs to import emu/bus.
package mmu

import (
	"github.com/rv64lab/rv64sim/emu/addr"
	"github.com/rv64lab/rv64sim/emu/trap"
)

const (
	pteV = 1 << 0
	pteR = 1 << 1
	pteW = 1 << 2
	pteX = 1 << 3
	pteU = 1 << 4
	pteG = 1 << 5
	pteA = 1 << 6
	pteD = 1 << 7

	levelBits = 9
	pageShift = 12
)

// Reader fetches the 8-byte PTE at physical address a.
type Reader func(a addr.Phys) uint64

// Writer stores an updated PTE back to physical memory; the walker does
// not call it.
type Writer func(a addr.Phys, v uint64)

type tlbKey struct {
	vpn  uint64
	asid uint64
}

type tlbEntry struct {
	ppn     uint64
	level   int // 0 = 4K, 1 = 2M superpage, 2 = 1G superpage
	perm    uint8
	user    bool
	global  bool
}

// MMU holds the satp-derived root and a TLB map keyed by (VPN, ASID)
// (spec §4.6).
type MMU struct {
	enabled bool
	root    addr.Phys
	asid    uint64
	tlb     map[tlbKey]tlbEntry
	Read    Reader
	Write   Writer
}

// New constructs an MMU with an empty TLB and paging disabled (Bare mode).
func New(read Reader, write Writer) *MMU {
	return &MMU{tlb: make(map[tlbKey]tlbEntry), Read: read, Write: write}
}

// SetSatp installs a new satp value, decoding MODE/ASID/PPN, and flushes
// the TLB (spec §4.1: "a write to satp ... flushes the TLB").
func (m *MMU) SetSatp(satp uint64) {
	mode := satp >> 60
	m.asid = (satp >> 44) & 0xffff
	m.root = addr.Phys((satp & 0xfffffffffff) << pageShift)
	m.enabled = mode == 8 // Sv39
	m.FlushAll()
}

// FlushAll drops every TLB entry (SFENCE.VMA with rs1=x0, rs2=x0).
func (m *MMU) FlushAll() {
	m.tlb = make(map[tlbKey]tlbEntry)
}

// FlushVA drops TLB entries whose VPN matches va (SFENCE.VMA rs1!=x0).
func (m *MMU) FlushVA(va addr.Virt) {
	vpn := uint64(va) >> pageShift
	for k := range m.tlb {
		if k.vpn == vpn {
			delete(m.tlb, k)
		}
	}
}

// Translate walks (or consults the TLB for) va, applying the permission
// checks for the given access kind and privilege mode. sum/mxr come from
// mstatus.SUM/MXR (spec §4.6: "SUM permits S-mode access to U pages when
// set; MXR permits loads from executable-but-not-readable pages").
func (m *MMU) Translate(va addr.Virt, kind addr.AccessKind, priv trap.Mode, sum, mxr bool) (addr.Phys, addr.Fault) {
	if !m.enabled || priv == trap.ModeMachine {
		return addr.Phys(va), addr.FaultNone
	}

	vpn := uint64(va) >> pageShift
	if e, ok := m.tlb[tlbKey{vpn: vpn, asid: m.asid}]; ok {
		if fault := m.checkPerm(e, kind, priv, sum, mxr); fault != addr.FaultNone {
			return 0, fault
		}
		pageSize := uint64(1) << (pageShift + levelBits*e.level)
		offset := uint64(va) & (pageSize - 1)
		return addr.Phys((e.ppn << pageShift) + offset), addr.FaultNone
	}

	ppn, level, pte, fault := m.walk(va)
	if fault != addr.FaultNone {
		return 0, fault
	}
	entry := tlbEntry{
		ppn:    ppn,
		level:  level,
		perm:   uint8(pte & (pteR | pteW | pteX | pteU)),
		user:   pte&pteU != 0,
		global: pte&pteG != 0,
	}
	if fault := m.checkPerm(entry, kind, priv, sum, mxr); fault != addr.FaultNone {
		return 0, fault
	}
	m.tlb[tlbKey{vpn: vpn, asid: m.asid}] = entry

	pageSize := uint64(1) << (pageShift + levelBits*level)
	offset := uint64(va) & (pageSize - 1)
	return addr.Phys((ppn << pageShift) + offset), addr.FaultNone
}

// walk performs the three-level (or early-terminating superpage) Sv39
// table walk (spec §4.6). It only reads PTEs: the A and D bits are
// neither checked nor set.
func (m *MMU) walk(va addr.Virt) (ppn uint64, level int, pte uint64, fault addr.Fault) {
	vpnParts := [3]uint64{
		(uint64(va) >> 12) & 0x1ff,
		(uint64(va) >> 21) & 0x1ff,
		(uint64(va) >> 30) & 0x1ff,
	}
	tablePPN := uint64(m.root) >> pageShift
	for lvl := 2; lvl >= 0; lvl-- {
		pteAddr := addr.Phys((tablePPN << pageShift) + vpnParts[lvl]*8)
		p := m.Read(pteAddr)
		if p&pteV == 0 || (p&pteR == 0 && p&pteW != 0) {
			return 0, 0, 0, addr.FaultPage
		}
		if p&(pteR|pteX) != 0 {
			// Leaf PTE.
			leafPPN := p >> 10
			if lvl > 0 {
				lowMask := uint64(1)<<(levelBits*lvl) - 1
				if leafPPN&lowMask != 0 {
					return 0, 0, 0, addr.FaultPage // misaligned superpage
				}
			}
			return leafPPN, lvl, p, addr.FaultNone
		}
		tablePPN = p >> 10
	}
	return 0, 0, 0, addr.FaultPage
}

func (m *MMU) checkPerm(e tlbEntry, kind addr.AccessKind, priv trap.Mode, sum, mxr bool) addr.Fault {
	if e.user && priv == trap.ModeSupervisor && !sum {
		return addr.FaultPage
	}
	if !e.user && priv == trap.ModeUser {
		return addr.FaultPage
	}
	switch kind {
	case addr.AccessFetch:
		if e.perm&pteX == 0 {
			return addr.FaultPage
		}
	case addr.AccessLoad:
		if e.perm&pteR == 0 && !(mxr && e.perm&pteX != 0) {
			return addr.FaultPage
		}
	case addr.AccessStore:
		if e.perm&pteW == 0 {
			return addr.FaultPage
		}
	}
	return addr.FaultNone
}

// Enabled reports whether Sv39 translation is currently active.
func (m *MMU) Enabled() bool { return m.enabled }
