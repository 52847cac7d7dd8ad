/*
 * rv64sim - Delta-queue event scheduler.
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

// Package event implements a delta queue of pending timer callbacks for
// any device that needs to fire after N cycles (spec §4.11); emu/core
// advances it once per cycle. The CLINT does not schedule into it: its
// MTIME/MTIMECMP comparison runs on every CLINT.Tick. Unlike the
// scheduler this is adapted from, List is a value
// owned by whichever Core instance schedules into it, not a
// package-level global (see Design Note "Global state").
package event

// Callback runs when an event's delay reaches zero. arg is the opaque
// value passed to Add.
type Callback func(arg int)

type node struct {
	delta int64 // cycles after the previous node fires
	cb    Callback
	arg   int
	id    uint64
	next  *node
}

// List is a delta-queue of pending callbacks, sorted by time-to-fire.
// Each node stores only the delta from the node before it, so Advance
// need only decrement the head.
type List struct {
	head   *node
	nextID uint64
}

// New returns an empty event list.
func New() *List { return &List{} }

// Add schedules cb to run arg cycles from now (or immediately if cycles
// is zero or negative). It returns an id that Cancel can use to remove
// it before it fires.
func (l *List) Add(cycles int64, cb Callback, arg int) uint64 {
	if cycles <= 0 {
		cb(arg)
		return 0
	}
	l.nextID++
	id := l.nextID
	n := &node{cb: cb, arg: arg, id: id}

	var prev *node
	cur := l.head
	remaining := cycles
	for cur != nil && remaining >= cur.delta {
		remaining -= cur.delta
		prev = cur
		cur = cur.next
	}
	n.delta = remaining
	n.next = cur
	if cur != nil {
		cur.delta -= remaining
	}
	if prev == nil {
		l.head = n
	} else {
		prev.next = n
	}
	return id
}

// Cancel removes a pending event by id, folding its delta into the
// following node so overall fire times are unaffected.
func (l *List) Cancel(id uint64) {
	if id == 0 {
		return
	}
	var prev *node
	cur := l.head
	for cur != nil {
		if cur.id == id {
			if cur.next != nil {
				cur.next.delta += cur.delta
			}
			if prev == nil {
				l.head = cur.next
			} else {
				prev.next = cur.next
			}
			return
		}
		prev = cur
		cur = cur.next
	}
}

// Advance moves time forward by cycles, firing (and removing) every
// event whose deadline falls within that span, in order.
func (l *List) Advance(cycles int64) {
	for cycles >= 0 && l.head != nil {
		if l.head.delta > cycles {
			l.head.delta -= cycles
			return
		}
		cycles -= l.head.delta
		n := l.head
		l.head = n.next
		n.cb(n.arg)
	}
}

// Pending reports whether any event is queued.
func (l *List) Pending() bool { return l.head != nil }
