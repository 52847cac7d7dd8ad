/*
 * rv64sim - 16550A-compatible UART.
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

import (
	"bufio"
	"io"
	"sync"

	"github.com/rv64lab/rv64sim/emu/addr"
)

// UART register offsets, 16550A subset (spec §5.2): THR/RBR/DLL share
// offset 0, IER/DLM share offset 1, LSR is read-only status.
const (
	uartRBR = 0x0 // receive buffer (read) / transmit holding (write)
	uartIER = 0x1
	uartIIR = 0x2
	uartLCR = 0x3
	uartMCR = 0x4
	uartLSR = 0x5
	uartMSR = 0x6
	uartSCR = 0x7
)

const (
	lsrDataReady    = 1 << 0
	lsrTHRE         = 1 << 5
	lsrTransmitEmpty = 1 << 6
)

// UART is a minimal polled/interrupt-capable 16550A: a single-byte
// transmit path written straight to Out, and a single-byte receive
// buffer filled from In on a Load of RBR/LSR while it is empty (spec
// §5.2: "no FIFO depth beyond one byte each way"). That read from In
// blocks until In yields a byte or an error.
type UART struct {
	mu  sync.Mutex
	Out io.Writer
	In  *bufio.Reader

	ier uint8
	lcr uint8
	mcr uint8
	scr uint8

	rxByte  byte
	rxValid bool

	// IRQ is invoked (if non-nil) when a received byte becomes available
	// while IER bit 0 is set; a transmit-empty condition never invokes
	// it. core.New leaves it unset.
	IRQ func()
}

// NewUART constructs a UART writing to out and reading from in.
func NewUART(out io.Writer, in io.Reader) *UART {
	return &UART{Out: out, In: bufio.NewReader(in)}
}

func (u *UART) Name() string { return "uart" }

func (u *UART) pollRx() {
	if u.rxValid || u.In == nil {
		return
	}
	if b, err := u.In.ReadByte(); err == nil {
		u.rxByte = b
		u.rxValid = true
		if u.ier&0x1 != 0 && u.IRQ != nil {
			u.IRQ()
		}
	}
}

func (u *UART) Load(offset addr.Phys, size int) uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch offset {
	case uartRBR:
		u.pollRx()
		if u.rxValid {
			b := u.rxByte
			u.rxValid = false
			return uint64(b)
		}
		return 0
	case uartIER:
		return uint64(u.ier)
	case uartIIR:
		return 0x01 // no interrupt pending, FIFO disabled
	case uartLCR:
		return uint64(u.lcr)
	case uartMCR:
		return uint64(u.mcr)
	case uartLSR:
		u.pollRx()
		lsr := uint8(lsrTHRE | lsrTransmitEmpty)
		if u.rxValid {
			lsr |= lsrDataReady
		}
		return uint64(lsr)
	case uartMSR:
		return 0
	case uartSCR:
		return uint64(u.scr)
	default:
		return 0
	}
}

func (u *UART) Store(offset addr.Phys, size int, value uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch offset {
	case uartRBR:
		if u.Out != nil {
			u.Out.Write([]byte{byte(value)})
		}
	case uartIER:
		u.ier = uint8(value)
	case uartLCR:
		u.lcr = uint8(value)
	case uartMCR:
		u.mcr = uint8(value)
	case uartSCR:
		u.scr = uint8(value)
	}
}
