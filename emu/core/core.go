/*
 * rv64sim - Hart aggregate: registers, CSRs, MMU, caches, bus, pipeline
 * bookkeeping and the goroutine that drives them.
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

// Package core owns a single hart: its architectural state (emu/regs,
// emu/csr), the memory system that surrounds it (emu/bus, emu/mmu,
// emu/cache), the fetch/execute helpers (emu/lsu, emu/bpred), and the
// pipeline bookkeeping (emu/pipeline). Core is a plain struct driven by
// explicit method calls — never a package-level global — so a harness
// can run several independent instances in one process (see Design Note
// "Global state").
package core

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rv64lab/rv64sim/emu/addr"
	"github.com/rv64lab/rv64sim/emu/bpred"
	"github.com/rv64lab/rv64sim/emu/bus"
	"github.com/rv64lab/rv64sim/emu/cache"
	"github.com/rv64lab/rv64sim/emu/csr"
	"github.com/rv64lab/rv64sim/emu/device"
	"github.com/rv64lab/rv64sim/emu/event"
	"github.com/rv64lab/rv64sim/emu/lsu"
	"github.com/rv64lab/rv64sim/emu/mmu"
	"github.com/rv64lab/rv64sim/emu/pipeline"
	"github.com/rv64lab/rv64sim/emu/regs"
	"github.com/rv64lab/rv64sim/emu/trap"
)

// Config describes how to assemble a Core's memory system (spec §4.11,
// driven from the TOML configuration file).
type Config struct {
	RAMBase  addr.Phys
	RAMSize  uint64
	ICache   cache.Config
	DCache   cache.Config
	BPredKind bpred.Kind
	BTBSize   int
	DiskPath  string
	UARTOut   io.Writer
	UARTIn    io.Reader
}

// Core is one RV64IMAFDC hart plus everything it needs to run
// standalone: memory, devices, and pipeline bookkeeping.
type Core struct {
	Int   *regs.Int
	Float *regs.Float
	CSR   *csr.File
	PC    addr.Virt
	Priv  trap.Mode

	Bus    *bus.Bus
	MMU    *mmu.MMU
	LSU    *lsu.Unit
	ICache *cache.Cache
	DCache *cache.Cache
	BPred     bpred.Predictor
	BPredKind bpred.Kind
	BTB       *bpred.BTB
	Events *event.List

	CLINT  *device.CLINT
	UART   *device.UART
	SYSCON *device.SYSCON
	Disk   *device.Disk

	Latches pipeline.Latches

	Halted      bool
	HaltOutcome device.Outcome
	ExitCode    uint32

	Cycles   uint64
	Retired  uint64
	reserveCleared bool

	Log *slog.Logger

	wg      sync.WaitGroup
	done    chan struct{}
	running bool
	control chan ControlMsg
}

// ControlMsg is a request sent across Core's control channel while its
// run loop is active (spec §4.12: the monitor talks to a running core
// this way instead of touching its state directly from another
// goroutine).
type ControlMsg struct {
	Kind  ControlKind
	Reply chan struct{}
}

// ControlKind enumerates the requests the monitor issues to a running core.
type ControlKind int

const (
	ControlRun ControlKind = iota
	ControlStop
	ControlStep
)

// New assembles a Core from cfg. It wires the CLINT's timer- and
// software-pending callbacks into the CSR file, mirroring how a real
// SoC's interrupt lines are fixed at integration time rather than
// runtime-configurable. The UART's IRQ callback is left unset.
func New(cfg Config, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Core{
		Int:    regs.NewInt(),
		Float:  regs.NewFloat(),
		CSR:    csr.New(),
		Priv:   trap.ModeMachine,
		Bus:    bus.New(cfg.RAMBase, cfg.RAMSize),
		Events: event.New(),
		CLINT:  device.NewCLINT(),
		SYSCON: device.NewSYSCON(nil),
		Log:    logger,
		done:    make(chan struct{}),
		control: make(chan ControlMsg, 8),
	}
	c.MMU = mmu.New(c.readPTE, c.writePTE)
	c.LSU = lsu.New(c.Bus, c.MMU)
	if cfg.ICache.Lines > 0 {
		c.ICache = cache.New(cfg.ICache, 1)
	}
	if cfg.DCache.Lines > 0 {
		c.DCache = cache.New(cfg.DCache, 2)
	}
	btbSize := cfg.BTBSize
	if btbSize <= 0 {
		btbSize = 64
	}
	c.BTB = bpred.NewBTB(btbSize)
	c.BPred = bpred.New(cfg.BPredKind, 1024)
	c.BPredKind = cfg.BPredKind

	c.CLINT.SetTimerPending = c.CSR.SetTimerPending
	c.CLINT.SetSoftwarePending = c.CSR.SetSoftwarePending
	c.SYSCON.Halt = func(o device.Outcome, code uint32) {
		c.Halted = true
		c.HaltOutcome = o
		c.ExitCode = code
	}
	if cfg.UARTOut != nil || cfg.UARTIn != nil {
		c.UART = device.NewUART(cfg.UARTOut, cfg.UARTIn)
	}

	return c
}

func (c *Core) readPTE(a addr.Phys) uint64 {
	v, _ := c.Bus.Load(a, 8)
	return v
}

func (c *Core) writePTE(a addr.Phys, v uint64) {
	c.Bus.Store(a, 8, v)
}

// MapDevice registers a device region on the bus.
func (c *Core) MapDevice(base addr.Phys, size uint64, d device.Device) {
	c.Bus.Map(device.Region{Base: base, Size: size, Device: d})
}

// LoadImage copies data into RAM starting at base (spec §4.12: used by
// the monitor's `load` command and by cmd/rv64sim at startup).
func (c *Core) LoadImage(data []byte, base addr.Phys) {
	c.Bus.StoreBytes(base, data)
}

// Reset returns the hart to its power-on state: PC at resetPC, M-mode,
// all registers zero, MMU/TLB flushed.
func (c *Core) Reset(resetPC addr.Virt) {
	c.Int = regs.NewInt()
	c.Float = regs.NewFloat()
	c.CSR = csr.New()
	c.PC = resetPC
	c.Priv = trap.ModeMachine
	c.Halted = false
	c.Cycles = 0
	c.Retired = 0
	c.MMU.FlushAll()
}

// sum/mxr reads mstatus's SUM/MXR bits for the MMU/LSU permission checks.
func (c *Core) sum() bool { return c.CSR.Mstatus()&(1<<18) != 0 }
func (c *Core) mxr() bool { return c.CSR.Mstatus()&(1<<19) != 0 }

// effectivePriv returns the privilege level loads/stores should be
// checked against: MPRV in mstatus makes M-mode loads/stores behave as
// MPP for memory-access purposes (spec §4.1).
func (c *Core) effectivePriv() trap.Mode {
	const mprv = uint64(1) << 17
	if c.Priv == trap.ModeMachine && c.CSR.Mstatus()&mprv != 0 {
		return c.CSR.MPP()
	}
	return c.Priv
}

// tickTimers advances the CLINT's mtime and publishes it into the time
// CSR, then drains any delta-queue events due this cycle (spec §4.11).
func (c *Core) tickTimers() {
	c.CLINT.Tick()
	c.CSR.SetTime(c.CLINT.MTime())
	c.Events.Advance(1)
}

// Start runs the core's fetch/execute loop on its own goroutine,
// accepting ControlMsg requests on its control channel the way the
// teacher's core.Start processes packets from its master channel.
func (c *Core) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if c.running && !c.Halted {
				c.Step()
			}
			select {
			case <-c.done:
				c.Log.Info("shutting down hart")
				return
			case msg := <-c.control:
				c.handleControl(msg)
			default:
			}
		}
	}()
}

func (c *Core) handleControl(msg ControlMsg) {
	switch msg.Kind {
	case ControlRun:
		c.running = true
	case ControlStop:
		c.running = false
	case ControlStep:
		c.running = false
		if !c.Halted {
			c.Step()
		}
	}
	if msg.Reply != nil {
		close(msg.Reply)
	}
}

// Send posts a control message and waits for it to be processed.
func (c *Core) Send(kind ControlKind) {
	reply := make(chan struct{})
	c.control <- ControlMsg{Kind: kind, Reply: reply}
	<-reply
}

// Stop signals the run loop to exit and waits (bounded) for it to do so.
func (c *Core) Stop() {
	close(c.done)
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		c.Log.Warn("timed out waiting for hart to stop")
	}
}
