/*
 * rv64sim - Main process.
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

// Command rv64sim boots the RV64IMAFDC simulator from a TOML
// configuration file, optionally loading a kernel/disk/DTB image,
// and drops into the inspector REPL when --monitor is given (spec §6).
// Grounded on the teacher's root main.go: getopt flag parsing, the
// slog logger wrapper, a signal-driven shutdown, and a CPU goroutine
// the main routine starts and later stops.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterh/liner"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rv64lab/rv64sim/command/monitor"
	config "github.com/rv64lab/rv64sim/config/configparser"
	"github.com/rv64lab/rv64sim/emu/addr"
	core "github.com/rv64lab/rv64sim/emu/core"
	"github.com/rv64lab/rv64sim/emu/device"
	"github.com/rv64lab/rv64sim/telnet/debugport"
	logger "github.com/rv64lab/rv64sim/util/logger"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "rv64sim.toml", "Configuration file")
	optKernel := getopt.StringLong("kernel", 'k', "", "Kernel image to load at pc_reset")
	optDisk := getopt.StringLong("disk", 'd', "", "Disk image (overrides config disk_path)")
	optDTB := getopt.StringLong("dtb", 0, "", "Device tree blob to load")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optMonitor := getopt.BoolLong("monitor", 'm', "Drop into the inspector REPL after boot")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLogFile != "" {
		var err error
		logFile, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "rv64sim: cannot create log file:", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	debug := false
	log := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}, &debug))
	slog.SetDefault(log)

	log.Info("rv64sim started")

	cfg, err := config.Load(*optConfig)
	if err != nil {
		log.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	if *optKernel != "" {
		cfg.KernelPath = *optKernel
	}
	if *optDisk != "" {
		cfg.DiskPath = *optDisk
	}
	if *optDTB != "" {
		cfg.DTBPath = *optDTB
	}

	c := buildCore(cfg, log)

	if cfg.KernelPath == "" {
		log.Error("no kernel image specified (--kernel or config kernel_path)")
		os.Exit(1)
	}
	kernel, err := os.ReadFile(cfg.KernelPath)
	if err != nil {
		log.Error("reading kernel image", "error", err)
		os.Exit(1)
	}
	c.LoadImage(kernel, addr.Phys(cfg.PCReset))

	if cfg.DTBPath != "" {
		dtb, err := os.ReadFile(cfg.DTBPath)
		if err != nil {
			log.Error("reading device tree blob", "error", err)
			os.Exit(1)
		}
		c.LoadImage(dtb, addr.Phys(cfg.DTBLoadAddr))
		c.Int.Write(11, cfg.DTBLoadAddr) // a1 = dtb address
	}
	c.Int.Write(10, 0) // a0 = hart id

	var dbg *debugport.Server
	mon := monitor.New(c)
	if cfg.DebugPortAddr != "" {
		dbg, err = debugport.New(cfg.DebugPortAddr, mon, log)
		if err != nil {
			log.Error("starting debug port", "error", err)
			os.Exit(1)
		}
		dbg.Start()
		log.Info("debug port listening", "addr", cfg.DebugPortAddr)
	}

	c.Start()
	c.Send(core.ControlRun)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *optMonitor {
		runConsole(mon, sigChan)
	} else {
		<-sigChan
		fmt.Println("rv64sim: shutting down")
	}

	log.Info("shutting down hart")
	c.Stop()
	if dbg != nil {
		dbg.Stop()
	}

	if c.Halted {
		os.Exit(int(c.ExitCode))
	}
}

// buildCore assembles the Core described by cfg, wiring the optional
// disk device's memory callbacks back into the bus exactly as
// emu/core.New wires the MMU's PTE reader/writer.
func buildCore(cfg *config.Config, log *slog.Logger) *core.Core {
	coreCfg := core.Config{
		RAMBase:   addr.Phys(cfg.RAMBase),
		RAMSize:   uint64(cfg.RAMSizeMB) * 1024 * 1024,
		ICache:    cfg.CacheI.CacheConfig(),
		DCache:    cfg.CacheD.CacheConfig(),
		BPredKind: config.BPredKind(cfg.BranchPredictor),
		BTBSize:   cfg.BTBSize,
		UARTOut:   os.Stdout,
		UARTIn:    os.Stdin,
	}
	c := core.New(coreCfg, log)
	c.PC = addr.Virt(cfg.PCReset)

	c.MapDevice(addr.Phys(cfg.UARTBase), 8, c.UART)
	c.MapDevice(addr.Phys(cfg.CLINTBase), 0x10000, c.CLINT)
	c.MapDevice(addr.Phys(cfg.SYSCONBase), 4, c.SYSCON)

	if cfg.DiskPath != "" {
		disk, err := device.NewDisk(cfg.DiskPath, c.Bus.StoreBytes, c.Bus.LoadBytes)
		if err != nil {
			log.Error("opening disk image", "error", err)
			os.Exit(1)
		}
		c.Disk = disk
		c.MapDevice(addr.Phys(cfg.DiskBase), 0x1000, disk)
	}

	return c
}

// runConsole drives the stdin inspector REPL with peterh/liner, the
// teacher's own line-editing library, until `quit` or Ctrl-D.
func runConsole(mon *monitor.Monitor, sigChan chan os.Signal) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(monitor.CompleteCmd)

	for {
		select {
		case <-sigChan:
			return
		default:
		}

		input, err := line.Prompt("rv64sim> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error("reading console line", "error", err)
			return
		}
		line.AppendHistory(input)

		out, quit, err := mon.ProcessCommand(input)
		if out != "" {
			fmt.Print(out)
		}
		if err != nil {
			fmt.Println("error:", err.Error())
		}
		if quit {
			return
		}
	}
}
