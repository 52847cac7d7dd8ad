/*
 * rv64sim - Set-associative instruction/data cache model.
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

// Package cache models a set-associative write-back, write-allocate
// cache (spec §4.5). It does not hold data itself — memory remains the
// single source of truth in emu/bus — it only tracks which lines are
// resident, dirty, and which replacement candidate goes next, and
// reports hit/miss plus any evicted line that needs writing back.
package cache

import (
	"math/rand"

	"github.com/rv64lab/rv64sim/emu/addr"
)

// Replacement selects the victim-choice policy within a set.
type Replacement int

const (
	ReplaceLRU Replacement = iota
	ReplacePLRU
	ReplaceRandom
)

type line struct {
	valid bool
	dirty bool
	tag   uint64
}

// Config describes the cache geometry (spec §4.5: configurable size,
// associativity, line size, replacement policy).
type Config struct {
	Lines       int // total lines (sets * ways)
	Ways        int
	LineSize    int // bytes per line, power of two
	Replacement Replacement
}

// Cache is one instruction or data cache instance.
type Cache struct {
	cfg        Config
	sets       int
	lineShift  uint
	setShift   uint
	setMask    uint64
	ways       [][]line
	lru        [][]int  // per-set, most-recently-used order, front = MRU
	plruBits   [][]bool // per-set tree bits for PLRU
	rng        *rand.Rand
	hits       uint64
	misses     uint64
	evictions  uint64
	writebacks uint64
}

// New constructs a cache from cfg. rngSeed drives the random-replacement
// policy only, so results stay reproducible across runs with the same
// seed (spec §8: deterministic replay requires no hidden entropy).
func New(cfg Config, rngSeed int64) *Cache {
	if cfg.Ways <= 0 {
		cfg.Ways = 1
	}
	sets := cfg.Lines / cfg.Ways
	if sets <= 0 {
		sets = 1
	}
	lineShift := bitlen(cfg.LineSize) - 1
	setShift := bitlen(sets) - 1

	c := &Cache{
		cfg:       cfg,
		sets:      sets,
		lineShift: uint(lineShift),
		setShift:  uint(setShift),
		setMask:   uint64(sets - 1),
		ways:      make([][]line, sets),
		lru:       make([][]int, sets),
		plruBits:  make([][]bool, sets),
		rng:       rand.New(rand.NewSource(rngSeed)),
	}
	for s := 0; s < sets; s++ {
		c.ways[s] = make([]line, cfg.Ways)
		order := make([]int, cfg.Ways)
		for i := range order {
			order[i] = i
		}
		c.lru[s] = order
		c.plruBits[s] = make([]bool, cfg.Ways)
	}
	return c
}

func bitlen(v int) int {
	n := 0
	for (1 << n) < v {
		n++
	}
	return n + 1
}

func (c *Cache) decompose(a addr.Phys) (tag, set uint64) {
	blockIdx := uint64(a) >> c.lineShift
	set = blockIdx & c.setMask
	tag = blockIdx >> c.setShift
	return
}

// Lookup probes the cache for address a. hit reports whether the line is
// resident; a hit is counted and promotes the line, a miss is counted.
func (c *Cache) Lookup(a addr.Phys) (hit bool) {
	tag, set := c.decompose(a)
	for _, l := range c.ways[set] {
		if l.valid && l.tag == tag {
			c.hits++
			c.touch(int(set), tag)
			return true
		}
	}
	c.misses++
	return false
}

func (c *Cache) touch(set int, tag uint64) {
	ways := c.ways[set]
	for i, l := range ways {
		if l.valid && l.tag == tag {
			c.promote(set, i)
			return
		}
	}
}

// promote marks way i as most-recently-used in set, under whichever
// policy is configured.
func (c *Cache) promote(set, way int) {
	switch c.cfg.Replacement {
	case ReplaceLRU:
		order := c.lru[set]
		for i, w := range order {
			if w == way {
				copy(order[1:i+1], order[:i])
				order[0] = way
				break
			}
		}
	case ReplacePLRU:
		c.setPLRUBit(set, way, true)
	}
}

func (c *Cache) setPLRUBit(set, way int, accessed bool) {
	// Simplified pseudo-LRU: one recently-used bool per way rather than
	// a binary tree. When every way's bit is set, all are cleared except
	// the way just accessed.
	c.plruBits[set][way] = accessed
	allSet := true
	for _, b := range c.plruBits[set] {
		if !b {
			allSet = false
			break
		}
	}
	if allSet {
		for i := range c.plruBits[set] {
			c.plruBits[set][i] = false
		}
		c.plruBits[set][way] = true
	}
}

// victim selects the way to evict in set under the configured policy.
func (c *Cache) victim(set int) int {
	ways := c.ways[set]
	for i, l := range ways {
		if !l.valid {
			return i
		}
	}
	switch c.cfg.Replacement {
	case ReplaceLRU:
		return c.lru[set][len(c.lru[set])-1]
	case ReplacePLRU:
		for i, b := range c.plruBits[set] {
			if !b {
				return i
			}
		}
		return 0
	default: // ReplaceRandom
		return c.rng.Intn(len(ways))
	}
}

// Insert installs the line for address a (following a miss), returning
// whether an existing dirty line had to be written back, and that
// line's address, so the caller can issue the writeback to the bus.
func (c *Cache) Insert(a addr.Phys, dirty bool) (evictedAddr addr.Phys, evicted bool) {
	tag, set := c.decompose(a)
	way := c.victim(int(set))
	old := c.ways[set][way]
	if old.valid && old.dirty {
		evicted = true
		evictedAddr = (addr.Phys(old.tag)<<c.setShift | addr.Phys(uint64(set))) << c.lineShift
		c.writebacks++
	}
	if old.valid {
		c.evictions++
	}
	c.ways[set][way] = line{valid: true, dirty: dirty, tag: tag}
	c.promote(int(set), way)
	return evictedAddr, evicted
}

// MarkDirty flags the resident line containing a as dirty (a store hit).
func (c *Cache) MarkDirty(a addr.Phys) {
	tag, set := c.decompose(a)
	for i, l := range c.ways[set] {
		if l.valid && l.tag == tag {
			c.ways[set][i].dirty = true
			return
		}
	}
}

// Invalidate drops any resident line containing a. Nothing in emu/core
// calls it.
func (c *Cache) Invalidate(a addr.Phys) {
	tag, set := c.decompose(a)
	for i, l := range c.ways[set] {
		if l.valid && l.tag == tag {
			c.ways[set][i] = line{}
		}
	}
}

// Stats holds cumulative hit/miss/eviction/writeback counters.
type Stats struct {
	Hits, Misses, Evictions, Writebacks uint64
}

func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions, Writebacks: c.writebacks}
}

// LineSize reports the configured line size in bytes.
func (c *Cache) LineSize() int { return c.cfg.LineSize }
