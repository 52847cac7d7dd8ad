/*
 * rv64sim - Core-Local Interruptor (CLINT).
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

package device

import "github.com/rv64lab/rv64sim/emu/addr"

// CLINT register offsets within its region (spec §5.3, SiFive/QEMU
// layout): MSIP at 0x0000, MTIMECMP at 0x4000, MTIME at 0xbff8.
const (
	clintMSIP     = 0x0000
	clintMTimeCmp = 0x4000
	clintMTime    = 0xbff8
)

// CLINT owns mtime/mtimecmp and raises mip.MTIP/MSIP through the
// callbacks the core wires in (spec §4.1: "mip.MTIP is CLINT-owned").
type CLINT struct {
	mtime    uint64
	mtimecmp uint64
	msip     uint32

	SetTimerPending    func(bool)
	SetSoftwarePending func(bool)
}

// NewCLINT constructs a CLINT with mtime/mtimecmp both zero.
func NewCLINT() *CLINT { return &CLINT{} }

func (c *CLINT) Name() string { return "clint" }

// Tick advances mtime by one and re-evaluates the timer-pending
// condition; called once per core cycle from core.tickTimers at the
// start of Step (spec §4.11).
func (c *CLINT) Tick() {
	c.mtime++
	c.refresh()
}

func (c *CLINT) refresh() {
	if c.SetTimerPending != nil {
		c.SetTimerPending(c.mtime >= c.mtimecmp)
	}
}

func (c *CLINT) Load(offset addr.Phys, size int) uint64 {
	switch {
	case offset == clintMSIP:
		return uint64(c.msip)
	case offset == clintMTimeCmp:
		return c.mtimecmp
	case offset == clintMTime:
		return c.mtime
	default:
		return 0
	}
}

func (c *CLINT) Store(offset addr.Phys, size int, value uint64) {
	switch {
	case offset == clintMSIP:
		c.msip = uint32(value)
		if c.SetSoftwarePending != nil {
			c.SetSoftwarePending(c.msip&0x1 != 0)
		}
	case offset == clintMTimeCmp:
		c.mtimecmp = value
		c.refresh()
	case offset == clintMTime:
		c.mtime = value
		c.refresh()
	}
}

// MTime returns the current timer value, surfaced to the csr.File via
// the core's per-cycle SetTime call.
func (c *CLINT) MTime() uint64 { return c.mtime }
