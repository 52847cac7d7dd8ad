/*
 * rv64sim - Memory-mapped device interface.
 *
 * Copyright 2026, rv64sim contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
 * THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
 * FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
 * DEALINGS IN THE SOFTWARE.
 */

// Package device defines the memory-mapped I/O device interface the bus
// dispatches loads and stores to (spec §5), plus the four concrete
// devices the default machine wires up: UART, CLINT, SYSCON, and a
// block-addressed disk.
package device

import "github.com/rv64lab/rv64sim/emu/addr"

// Device is anything the bus can route a load/store to by physical
// address. Size is in bytes (1, 2, 4, or 8); implementations that don't
// care about width should just mask/extend internally.
type Device interface {
	Load(offset addr.Phys, size int) uint64
	Store(offset addr.Phys, size int, value uint64)
	// Name returns a short identifier for the device.
	Name() string
}

// Region associates a device with its base address and span in the
// physical address map, the unit emu/bus routes on.
type Region struct {
	Base   addr.Phys
	Size   uint64
	Device Device
}

// Contains reports whether phys addr a falls within this region.
func (r Region) Contains(a addr.Phys) bool {
	return uint64(a) >= uint64(r.Base) && uint64(a) < uint64(r.Base)+r.Size
}
