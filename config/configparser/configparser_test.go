/*
 * rv64sim - Configuration file parser test set.
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

package configparser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rv64lab/rv64sim/emu/bpred"
	"github.com/rv64lab/rv64sim/emu/cache"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rv64sim.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.RAMBase != 0x8000_0000 {
		t.Errorf("RAMBase = %#x, want 0x80000000", cfg.RAMBase)
	}
	if cfg.PCReset != cfg.RAMBase {
		t.Errorf("PCReset = %#x, want RAMBase %#x", cfg.PCReset, cfg.RAMBase)
	}
	if cfg.BranchPredictor != "static" {
		t.Errorf("BranchPredictor = %q, want static", cfg.BranchPredictor)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
ram_size_mb = 256
ram_base = 0x80000000
pc_reset = 0x80000000
branch_predictor = "gshare"
kernel_path = "kernel.bin"
disk_path = "disk.img"
debugport_addr = ":9001"

[cache_i]
size_kb = 32
line = 64
ways = 4
policy = "plru"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RAMSizeMB != 256 {
		t.Errorf("RAMSizeMB = %d, want 256", cfg.RAMSizeMB)
	}
	if cfg.BranchPredictor != "gshare" {
		t.Errorf("BranchPredictor = %q, want gshare", cfg.BranchPredictor)
	}
	if cfg.KernelPath != "kernel.bin" || cfg.DiskPath != "disk.img" {
		t.Errorf("paths = %q/%q, want kernel.bin/disk.img", cfg.KernelPath, cfg.DiskPath)
	}
	if cfg.DebugPortAddr != ":9001" {
		t.Errorf("DebugPortAddr = %q, want :9001", cfg.DebugPortAddr)
	}
	// Fields not present in the file keep their Default() value.
	if cfg.SYSCONBase != 0x0010_0000 {
		t.Errorf("SYSCONBase = %#x, want default 0x100000", cfg.SYSCONBase)
	}

	cc := cfg.CacheI.CacheConfig()
	if cc.Lines != 512 || cc.Ways != 4 || cc.LineSize != 64 || cc.Replacement != cache.ReplacePLRU {
		t.Errorf("CacheConfig = %+v, want 512/4/64/PLRU", cc)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load of missing file: expected error, got nil")
	}
}

func TestCacheSpecZeroSizeDisabled(t *testing.T) {
	var spec CacheSpec
	cc := spec.CacheConfig()
	if cc.Lines != 0 {
		t.Errorf("Lines = %d, want 0 for unconfigured cache", cc.Lines)
	}
}

func TestBPredKind(t *testing.T) {
	cases := map[string]bpred.Kind{
		"static":  bpred.KindStatic,
		"bimodal": bpred.KindBimodal,
		"gshare":  bpred.KindGshare,
		"tage":    bpred.KindTAGE,
		"unknown": bpred.KindStatic,
	}
	for name, want := range cases {
		if got := BPredKind(name); got != want {
			t.Errorf("BPredKind(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestReplacementPolicy(t *testing.T) {
	cases := map[string]cache.Replacement{
		"lru":     cache.ReplaceLRU,
		"plru":    cache.ReplacePLRU,
		"random":  cache.ReplaceRandom,
		"unknown": cache.ReplaceLRU,
	}
	for name, want := range cases {
		if got := ReplacementPolicy(name); got != want {
			t.Errorf("ReplacementPolicy(%q) = %v, want %v", name, got, want)
		}
	}
}
