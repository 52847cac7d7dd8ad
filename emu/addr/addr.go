/*
 * rv64sim - Address and error primitives.
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

// Package addr holds the address and fault types shared by every other
// emulator package: the MMU, the bus, the cache, and the LSU all pass these
// around instead of bare uint64s so a virtual address can never silently
// leak onto the physical side of the MMU boundary.
package addr

import "fmt"

// Virt is a 64-bit RISC-V virtual address (as seen by a load/store/fetch
// before translation).
type Virt uint64

// Phys is a 64-bit physical address (as seen by the bus and devices).
type Phys uint64

func (v Virt) String() string { return fmt.Sprintf("0x%016x", uint64(v)) }
func (p Phys) String() string { return fmt.Sprintf("0x%016x", uint64(p)) }

// Width is the size in bytes of a memory access.
type Width int

const (
	Byte Width = 1
	Half Width = 2
	Word Width = 4
	Dword Width = 8
)

// AccessKind distinguishes why an address is being touched, since the
// fault cause differs for instruction fetch vs load vs store.
type AccessKind int

const (
	AccessFetch AccessKind = iota
	AccessLoad
	AccessStore
)

// Fault is the taxonomy of guest-visible memory errors raised by the MMU,
// cache, or bus. A Fault is never thrown as a Go panic/error up to the
// host; the pipeline converts it into a trap.Cause at the stage boundary
// where it occurred (see emu/trap).
type Fault int

const (
	FaultNone Fault = iota
	FaultMisaligned
	FaultAccess
	FaultPage
)

// Aligned reports whether addr is naturally aligned for width. Alignment
// is a property of the access (spec §3), not of the address itself.
func Aligned(a uint64, width Width) bool {
	return a&(uint64(width)-1) == 0
}
