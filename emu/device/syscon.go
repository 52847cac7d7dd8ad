/*
 * rv64sim - SYSCON power/reset device.
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

// SYSCON mirrors the QEMU "sifive_test" finisher: a single 32-bit
// register at offset 0 which, when written, tells the simulator to
// stop (spec §5.4: "a write encodes pass/fail/reset for the harness").
const (
	SysconFinishPass = 0x5555
	SysconFinishFail = 0x3333
	SysconFinishReset = 0x7777
)

// Outcome reports what a write to SYSCON requested.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomePass
	OutcomeFail
	OutcomeReset
)

// String returns the outcome's lower-case name.
func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "pass"
	case OutcomeFail:
		return "fail"
	case OutcomeReset:
		return "reset"
	default:
		return "none"
	}
}

// SYSCON is the poweroff/reset test-finisher device.
type SYSCON struct {
	Halt func(outcome Outcome, exitCode uint32)
}

// NewSYSCON constructs a SYSCON that invokes halt when written.
func NewSYSCON(halt func(Outcome, uint32)) *SYSCON {
	return &SYSCON{Halt: halt}
}

func (s *SYSCON) Name() string { return "syscon" }

func (s *SYSCON) Load(offset addr.Phys, size int) uint64 { return 0 }

func (s *SYSCON) Store(offset addr.Phys, size int, value uint64) {
	if offset != 0 || s.Halt == nil {
		return
	}
	v := uint32(value)
	switch v & 0xffff {
	case SysconFinishPass:
		s.Halt(OutcomePass, 0)
	case SysconFinishFail:
		s.Halt(OutcomeFail, v>>16)
	case SysconFinishReset:
		s.Halt(OutcomeReset, 0)
	}
}
