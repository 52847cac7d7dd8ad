/*
 * rv64sim - Inspector REPL command table.
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

// Package monitor implements the inspector REPL's command table (spec
// §4.12): reg/mem/step/continue/stop/break/watch/load/quit, operating on
// a *core.Core through its exported control-channel and inspector
// surface. watch is an alias for break: it sets a PC breakpoint, not a
// memory watchpoint. Grounded on the teacher's command/parser tokenizer (the
// min-match abbreviation scheme) and command/reader's liner-backed
// console loop, generalized so the same table drives both a local
// stdin session and a remote telnet/debugport connection.
package monitor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rv64lab/rv64sim/emu/addr"
	"github.com/rv64lab/rv64sim/emu/core"
	"github.com/rv64lab/rv64sim/util/hexfmt"
)

type cmd struct {
	name    string
	min     int
	process func(*Monitor, []string, *strings.Builder) (bool, error)
}

var cmdTable = []cmd{
	{name: "reg", min: 1, process: (*Monitor).cmdReg},
	{name: "mem", min: 1, process: (*Monitor).cmdMem},
	{name: "step", min: 2, process: (*Monitor).cmdStep},
	{name: "continue", min: 1, process: (*Monitor).cmdContinue},
	{name: "stop", min: 2, process: (*Monitor).cmdStop},
	{name: "break", min: 3, process: (*Monitor).cmdBreak},
	{name: "watch", min: 1, process: (*Monitor).cmdBreak},
	{name: "load", min: 1, process: (*Monitor).cmdLoad},
	{name: "quit", min: 1, process: (*Monitor).cmdQuit},
}

// Monitor binds the command table to one Core. A Monitor is not safe
// for concurrent ProcessCommand calls from more than one session (the
// local stdin REPL and the debug port are meant to be used one at a
// time, mirroring the teacher's single active console).
type Monitor struct {
	Core *core.Core

	mu          sync.Mutex
	breakpoints map[addr.Virt]bool
	watchCancel chan struct{}
}

// New binds a Monitor to c. New itself sends nothing; the commands talk
// to the hart only through its control channel, so c.Start must have
// been called before the first command runs.
func New(c *core.Core) *Monitor {
	return &Monitor{Core: c, breakpoints: map[addr.Virt]bool{}}
}

// ProcessCommand executes one command line, returning true if the
// session should end (the `quit` command).
func (m *Monitor) ProcessCommand(line string) (string, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false, nil
	}
	name := strings.ToLower(fields[0])

	var match *cmd
	for i := range cmdTable {
		c := &cmdTable[i]
		if len(name) < c.min || len(name) > len(c.name) {
			continue
		}
		if c.name[:len(name)] != name {
			continue
		}
		if match != nil {
			return "", false, fmt.Errorf("ambiguous command: %s", name)
		}
		match = c
	}
	if match == nil {
		return "", false, fmt.Errorf("unknown command: %s", name)
	}

	var out strings.Builder
	quit, err := match.process(m, fields[1:], &out)
	return out.String(), quit, err
}

func parseAddr(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func (m *Monitor) cmdReg(args []string, out *strings.Builder) (bool, error) {
	c := m.Core
	fmt.Fprintf(out, "pc=%s priv=%s halted=%v\n", c.PC, c.Priv, c.Halted)
	var words [32]uint64
	for i := range words {
		words[i] = c.Int.Read(i)
	}
	var b strings.Builder
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(out, "x%-2d ", i)
		hexfmt.FormatWords(&b, words[i:i+4])
		out.WriteString(b.String())
		out.WriteByte('\n')
		b.Reset()
	}
	return false, nil
}

func (m *Monitor) cmdMem(args []string, out *strings.Builder) (bool, error) {
	if len(args) < 1 {
		return false, errors.New("usage: mem <addr> [count]")
	}
	a, err := parseAddr(args[0])
	if err != nil {
		return false, fmt.Errorf("invalid address: %w", err)
	}
	count := 64
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return false, fmt.Errorf("invalid count: %w", err)
		}
		count = n
	}
	data := m.Core.Bus.LoadBytes(addr.Phys(a), count)
	var b strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(out, "%016x: ", a+uint64(off))
		hexfmt.FormatBytes(&b, true, data[off:end])
		out.WriteString(b.String())
		out.WriteByte('\n')
		b.Reset()
	}
	return false, nil
}

func (m *Monitor) cmdStep(args []string, out *strings.Builder) (bool, error) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("invalid step count: %w", err)
		}
		n = v
	}
	for i := 0; i < n && !m.Core.Halted; i++ {
		m.Core.Send(core.ControlStep)
	}
	fmt.Fprintf(out, "pc=%s\n", m.Core.PC)
	return false, nil
}

func (m *Monitor) cmdContinue(_ []string, out *strings.Builder) (bool, error) {
	m.mu.Lock()
	if len(m.breakpoints) == 0 {
		m.mu.Unlock()
		m.Core.Send(core.ControlRun)
		out.WriteString("running\n")
		return false, nil
	}
	cancel := make(chan struct{})
	m.watchCancel = cancel
	m.mu.Unlock()

	m.Core.Send(core.ControlRun)
	go m.watchBreakpoints(cancel)
	out.WriteString("running (breakpoints armed)\n")
	return false, nil
}

// watchBreakpoints polls PC for a hit against the breakpoint set. This
// is an inspector-side approximation (spec §4.12 asks only that break
// stop execution at an address, not that it be race-free against the
// hart's own goroutine) rather than a trap the core itself raises.
func (m *Monitor) watchBreakpoints(cancel chan struct{}) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			m.mu.Lock()
			hit := m.breakpoints[m.Core.PC]
			m.mu.Unlock()
			if hit || m.Core.Halted {
				m.Core.Send(core.ControlStop)
				return
			}
		}
	}
}

func (m *Monitor) cmdStop(_ []string, out *strings.Builder) (bool, error) {
	m.mu.Lock()
	if m.watchCancel != nil {
		close(m.watchCancel)
		m.watchCancel = nil
	}
	m.mu.Unlock()
	m.Core.Send(core.ControlStop)
	fmt.Fprintf(out, "stopped at pc=%s\n", m.Core.PC)
	return false, nil
}

func (m *Monitor) cmdBreak(args []string, out *strings.Builder) (bool, error) {
	if len(args) == 0 {
		m.mu.Lock()
		defer m.mu.Unlock()
		for a := range m.breakpoints {
			fmt.Fprintf(out, "%s\n", a)
		}
		return false, nil
	}
	a, err := parseAddr(args[0])
	if err != nil {
		return false, fmt.Errorf("invalid address: %w", err)
	}
	m.mu.Lock()
	m.breakpoints[addr.Virt(a)] = true
	m.mu.Unlock()
	fmt.Fprintf(out, "breakpoint set at %#x\n", a)
	return false, nil
}

func (m *Monitor) cmdLoad(args []string, out *strings.Builder) (bool, error) {
	if len(args) < 2 {
		return false, errors.New("usage: load <path> <addr>")
	}
	a, err := parseAddr(args[1])
	if err != nil {
		return false, fmt.Errorf("invalid address: %w", err)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return false, err
	}
	m.Core.LoadImage(data, addr.Phys(a))
	fmt.Fprintf(out, "loaded %d bytes at %#x\n", len(data), a)
	return false, nil
}

func (m *Monitor) cmdQuit(_ []string, out *strings.Builder) (bool, error) {
	return true, nil
}

// CompleteCmd offers command-name completions for the given partial
// line, the callback liner.SetCompleter expects.
func CompleteCmd(line string) []string {
	if strings.ContainsAny(line, " \t") {
		return nil
	}
	name := strings.ToLower(line)
	var matches []string
	for _, c := range cmdTable {
		if strings.HasPrefix(c.name, name) {
			matches = append(matches, c.name+" ")
		}
	}
	return matches
}
