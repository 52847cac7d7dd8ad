/*
 * rv64sim - TOML configuration record loader.
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

// Package configparser loads the machine description the CLI hands to
// emu/core (spec §6): RAM geometry, cache/predictor selection, device
// base addresses, and image paths. Replaces the teacher's hand-rolled
// line-oriented grammar with github.com/BurntSushi/toml, already in the
// teacher's own dependency graph, decoding directly into Config.
package configparser

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/rv64lab/rv64sim/emu/bpred"
	"github.com/rv64lab/rv64sim/emu/cache"
)

// CacheSpec mirrors spec §6's `cache.{i,d}.{size, line, ways, policy}`.
type CacheSpec struct {
	SizeKB int    `toml:"size_kb"`
	Line   int    `toml:"line"`
	Ways   int    `toml:"ways"`
	Policy string `toml:"policy"` // lru | plru | random
}

// Config is the single record decoded from the TOML configuration file
// (spec §6). Field names follow spec.md's configuration list exactly.
type Config struct {
	RAMSizeMB int    `toml:"ram_size_mb"`
	RAMBase   uint64 `toml:"ram_base"`
	PCReset   uint64 `toml:"pc_reset"`

	CacheI CacheSpec `toml:"cache_i"`
	CacheD CacheSpec `toml:"cache_d"`

	BranchPredictor string `toml:"branch_predictor"` // static | bimodal | gshare | tage
	BTBSize         int    `toml:"btb_size"`

	MTimeHz        uint64 `toml:"mtime_hz"`
	CyclesPerMTime uint64 `toml:"cycles_per_mtime"`

	UARTBase   uint64 `toml:"uart_base"`
	CLINTBase  uint64 `toml:"clint_base"`
	SYSCONBase uint64 `toml:"syscon_base"`
	DiskBase   uint64 `toml:"disk_base"`

	KernelPath string `toml:"kernel_path"`
	DiskPath   string `toml:"disk_path"`

	DTBPath     string `toml:"dtb_path"`
	DTBLoadAddr uint64 `toml:"dtb_load_addr"`

	DebugPortAddr string `toml:"debugport_addr"` // empty disables the TCP debug port
}

// Default returns the configuration spec.md's §6 defaults specify,
// before a file is decoded over it.
func Default() *Config {
	return &Config{
		RAMSizeMB:       128,
		RAMBase:         0x8000_0000,
		PCReset:         0x8000_0000,
		BranchPredictor: "static",
		BTBSize:         64,
		MTimeHz:         10_000_000,
		CyclesPerMTime:  10,
		UARTBase:        0x1000_0000,
		CLINTBase:       0x0200_0000,
		SYSCONBase:      0x0010_0000,
		DiskBase:        0x9000_0000,
	}
}

// Load reads and decodes the TOML configuration file at path over the
// default record.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("configparser: %w", err)
	}
	return cfg, nil
}

// ReplacementPolicy maps a policy name to emu/cache's Replacement enum,
// defaulting to LRU on an unrecognized or empty name.
func ReplacementPolicy(name string) cache.Replacement {
	switch name {
	case "plru":
		return cache.ReplacePLRU
	case "random":
		return cache.ReplaceRandom
	default:
		return cache.ReplaceLRU
	}
}

// CacheConfig converts a CacheSpec into emu/cache's Config, computing
// total line count from size and line width. A zero SizeKB yields a
// zero-Lines cache.Config, which emu/core.New reads as "no cache."
func (c CacheSpec) CacheConfig() cache.Config {
	if c.SizeKB <= 0 {
		return cache.Config{}
	}
	line := c.Line
	if line <= 0 {
		line = 64
	}
	ways := c.Ways
	if ways <= 0 {
		ways = 4
	}
	lines := (c.SizeKB * 1024) / line
	return cache.Config{Lines: lines, Ways: ways, LineSize: line, Replacement: ReplacementPolicy(c.Policy)}
}

// BPredKind maps a predictor name to emu/bpred's Kind enum, defaulting
// to the static backward-taken heuristic on an unrecognized name.
func BPredKind(name string) bpred.Kind {
	switch name {
	case "bimodal":
		return bpred.KindBimodal
	case "gshare":
		return bpred.KindGshare
	case "tage":
		return bpred.KindTAGE
	default:
		return bpred.KindStatic
	}
}
