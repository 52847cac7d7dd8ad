/*
 * rv64sim - Branch prediction.
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

// Package bpred implements the fetch-stage branch predictor and branch
// target buffer the pipeline consults every cycle (spec §4.4). Four
// direction predictors are selectable at configuration time; all of them
// satisfy the same Predictor interface so the pipeline's IF stage never
// needs to know which one is active.
package bpred

import "github.com/rv64lab/rv64sim/emu/addr"

// Predictor is the direction predictor interface: given the address of a
// branch, predict taken/not-taken; after resolution, Update trains it.
type Predictor interface {
	Predict(pc addr.Virt) bool
	Update(pc addr.Virt, taken bool)
}

// Kind names the selectable predictor algorithms (spec §4.4).
type Kind int

const (
	KindStatic Kind = iota
	KindBimodal
	KindGshare
	KindTAGE
)

// New constructs the selected predictor kind with the given table size
// (entries, rounded up to a power of two).
func New(kind Kind, entries int) Predictor {
	switch kind {
	case KindBimodal:
		return newBimodal(entries)
	case KindGshare:
		return newGshare(entries)
	case KindTAGE:
		return newTAGE(entries)
	default:
		return staticPredictor{}
	}
}

// staticPredictor is the Predictor for KindStatic: Predict always
// returns not-taken and it never updates. The backward-taken rule needs
// the branch target, so it lives in StaticPredict.
type staticPredictor struct{}

func (staticPredictor) Predict(pc addr.Virt) bool { return false }
func (staticPredictor) Update(pc addr.Virt, taken bool) {}

// StaticPredict applies the backward-taken heuristic given both the
// branch PC and its target, since the zero-state Predictor interface
// above doesn't carry a target. The pipeline calls this directly for
// KindStatic instead of going through Predictor.Predict.
func StaticPredict(pc, target addr.Virt) bool { return target < pc }

// twoBitCounter is the classic saturating up/down counter used by every
// table-based predictor below (0,1 = not-taken; 2,3 = taken).
type twoBitCounter uint8

func (c twoBitCounter) taken() bool { return c >= 2 }

func (c *twoBitCounter) train(taken bool) {
	if taken {
		if *c < 3 {
			*c++
		}
	} else {
		if *c > 0 {
			*c--
		}
	}
}

func pow2Mask(entries int) uint64 {
	n := 1
	for n < entries {
		n <<= 1
	}
	if n == 0 {
		n = 1
	}
	return uint64(n - 1)
}

// bimodal indexes a single PHT by PC bits alone.
type bimodal struct {
	mask uint64
	pht  []twoBitCounter
}

func newBimodal(entries int) *bimodal {
	mask := pow2Mask(entries)
	return &bimodal{mask: mask, pht: make([]twoBitCounter, mask+1)}
}

func (b *bimodal) index(pc addr.Virt) uint64 { return (uint64(pc) >> 1) & b.mask }

func (b *bimodal) Predict(pc addr.Virt) bool { return b.pht[b.index(pc)].taken() }

func (b *bimodal) Update(pc addr.Virt, taken bool) {
	c := &b.pht[b.index(pc)]
	c.train(taken)
}

// gshare XORs a global history register into the PC before indexing the
// PHT, capturing correlations a plain bimodal table misses.
type gshare struct {
	mask    uint64
	pht     []twoBitCounter
	history uint64
	histLen uint
}

func newGshare(entries int) *gshare {
	mask := pow2Mask(entries)
	histLen := uint(0)
	for (uint64(1) << histLen) <= mask {
		histLen++
	}
	return &gshare{mask: mask, pht: make([]twoBitCounter, mask+1), histLen: histLen}
}

func (g *gshare) index(pc addr.Virt) uint64 {
	histMask := (uint64(1) << g.histLen) - 1
	return ((uint64(pc) >> 1) ^ (g.history & histMask)) & g.mask
}

func (g *gshare) Predict(pc addr.Virt) bool { return g.pht[g.index(pc)].taken() }

func (g *gshare) Update(pc addr.Virt, taken bool) {
	c := &g.pht[g.index(pc)]
	c.train(taken)
	g.history <<= 1
	if taken {
		g.history |= 1
	}
}

// tage is a small stand-in for a TAgged GEometric-history-length
// predictor: a base bimodal table backed by two tagged tables indexed
// with progressively longer folded history, each entry carrying a tag
// and a confidence counter so a longer history component can override
// the base predictor once it has seen the branch before (spec §4.4: the
// TAGE entry "may consult longer history lengths for improved accuracy").
type tage struct {
	base    *gshare
	tagged  [2]tageTable
	history uint64
}

type tageEntry struct {
	valid bool
	tag   uint16
	ctr   twoBitCounter
}

type tageTable struct {
	mask    uint64
	histLen uint
	entries []tageEntry
}

func newTAGE(entries int) *tage {
	t := &tage{base: newGshare(entries)}
	sizes := [2]int{entries / 4, entries / 4}
	histLens := [2]uint{8, 16}
	for i := range t.tagged {
		mask := pow2Mask(sizes[i])
		t.tagged[i] = tageTable{mask: mask, histLen: histLens[i], entries: make([]tageEntry, mask+1)}
	}
	return t
}

func (t *tage) foldedIndex(pc addr.Virt, tt tageTable) (idx uint64, tag uint16) {
	histMask := uint64(1)<<tt.histLen - 1
	h := t.history & histMask
	idx = ((uint64(pc) >> 1) ^ h) & tt.mask
	tag = uint16(((uint64(pc) >> 2) ^ (h >> 3)) & 0xffff)
	return
}

func (t *tage) Predict(pc addr.Virt) bool {
	for i := len(t.tagged) - 1; i >= 0; i-- {
		idx, tag := t.foldedIndex(pc, t.tagged[i])
		e := t.tagged[i].entries[idx]
		if e.valid && e.tag == tag {
			return e.ctr.taken()
		}
	}
	return t.base.Predict(pc)
}

func (t *tage) Update(pc addr.Virt, taken bool) {
	for i := len(t.tagged) - 1; i >= 0; i-- {
		idx, tag := t.foldedIndex(pc, t.tagged[i])
		e := &t.tagged[i].entries[idx]
		if e.valid && e.tag == tag {
			e.ctr.train(taken)
			t.base.Update(pc, taken)
			t.history = (t.history << 1)
			if taken {
				t.history |= 1
			}
			return
		}
	}
	// Allocate into the shortest-history table that's free or evict.
	idx, tag := t.foldedIndex(pc, t.tagged[0])
	e := &t.tagged[0].entries[idx]
	e.valid, e.tag = true, tag
	if taken {
		e.ctr = 2
	} else {
		e.ctr = 1
	}
	t.base.Update(pc, taken)
	t.history <<= 1
	if taken {
		t.history |= 1
	}
}

// BTBEntry records the last-seen target for an indirect/taken branch PC.
type BTBEntry struct {
	Valid  bool
	Tag    uint64
	Target addr.Virt
}

// BTB is a direct-mapped branch target buffer (spec §4.4).
type BTB struct {
	mask    uint64
	entries []BTBEntry
}

// NewBTB constructs a BTB with the given number of entries (rounded to a
// power of two).
func NewBTB(entries int) *BTB {
	mask := pow2Mask(entries)
	return &BTB{mask: mask, entries: make([]BTBEntry, mask+1)}
}

func (b *BTB) index(pc addr.Virt) uint64 { return (uint64(pc) >> 1) & b.mask }

// Lookup returns the predicted target for pc, if the BTB holds a
// matching, tag-verified entry.
func (b *BTB) Lookup(pc addr.Virt) (target addr.Virt, ok bool) {
	e := b.entries[b.index(pc)]
	if e.Valid && e.Tag == uint64(pc) {
		return e.Target, true
	}
	return 0, false
}

// Insert records (or overwrites) the resolved target for pc.
func (b *BTB) Insert(pc, target addr.Virt) {
	idx := b.index(pc)
	b.entries[idx] = BTBEntry{Valid: true, Tag: uint64(pc), Target: target}
}
