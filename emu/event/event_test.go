/*
 * rv64sim - Delta-queue event scheduler test cases.
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

package event

import "testing"

type recorder struct {
	iarg int
	time int64
}

func (r *recorder) callback(clock *int64) Callback {
	return func(iarg int) {
		r.iarg = iarg
		r.time = *clock
	}
}

func advance(l *List, clock *int64, cycles int64) {
	for i := int64(0); i < cycles; i++ {
		*clock++
		l.Advance(1)
	}
}

func TestAddEventFiresOnce(t *testing.T) {
	var clock int64
	l := New()
	var a recorder
	l.Add(10, a.callback(&clock), 1)
	advance(l, &clock, 20)
	if a.time != 10 {
		t.Errorf("fired at %d, want 10", a.time)
	}
	if a.iarg != 1 {
		t.Errorf("iarg = %d, want 1", a.iarg)
	}
}

func TestAddEventTwoDistinctTimes(t *testing.T) {
	var clock int64
	l := New()
	var a, b recorder
	l.Add(10, a.callback(&clock), 1)
	l.Add(5, b.callback(&clock), 2)
	advance(l, &clock, 20)
	if a.time != 10 || a.iarg != 1 {
		t.Errorf("a = %+v, want time=10 iarg=1", a)
	}
	if b.time != 5 || b.iarg != 2 {
		t.Errorf("b = %+v, want time=5 iarg=2", b)
	}
}

func TestAddEventSameTime(t *testing.T) {
	var clock int64
	l := New()
	var a, b recorder
	l.Add(10, a.callback(&clock), 1)
	l.Add(10, b.callback(&clock), 2)
	advance(l, &clock, 20)
	if a.time != 10 || a.iarg != 1 {
		t.Errorf("a = %+v, want time=10 iarg=1", a)
	}
	if b.time != 10 || b.iarg != 2 {
		t.Errorf("b = %+v, want time=10 iarg=2", b)
	}
}

func TestAddEventDuringCallback(t *testing.T) {
	var clock int64
	l := New()
	var a, c, e recorder
	l.Add(20, a.callback(&clock), 5)
	l.Add(10, func(iarg int) {
		c.iarg = iarg
		c.time = clock
		l.Add(2, e.callback(&clock), 7)
	}, 2)
	advance(l, &clock, 30)
	if c.time != 10 || c.iarg != 2 {
		t.Errorf("c = %+v, want time=10 iarg=2", c)
	}
	if e.time != 12 || e.iarg != 7 {
		t.Errorf("e = %+v, want time=12 iarg=7 (scheduled from within c's callback)", e)
	}
	if a.time != 20 || a.iarg != 5 {
		t.Errorf("a = %+v, want time=20 iarg=5 (unaffected by the nested Add)", a)
	}
}

func TestAddEventOutOfOrder(t *testing.T) {
	var clock int64
	l := New()
	var a, b, d recorder
	l.Add(20, a.callback(&clock), 1)
	l.Add(20, b.callback(&clock), 2)
	l.Add(25, d.callback(&clock), 3)
	advance(l, &clock, 30)
	if a.time != 20 || a.iarg != 1 {
		t.Errorf("a = %+v, want time=20 iarg=1", a)
	}
	if b.time != 20 || b.iarg != 2 {
		t.Errorf("b = %+v, want time=20 iarg=2", b)
	}
	if d.time != 25 || d.iarg != 3 {
		t.Errorf("d = %+v, want time=25 iarg=3", d)
	}
}

func TestCancelEvent(t *testing.T) {
	var clock int64
	l := New()
	var a, b recorder
	l.Add(10, a.callback(&clock), 5)
	id := l.Add(20, b.callback(&clock), 2)
	for i := 0; i < 30; i++ {
		clock++
		l.Advance(1)
		if a.iarg == 5 {
			l.Cancel(id)
		}
	}
	if a.time != 10 || a.iarg != 5 {
		t.Errorf("a = %+v, want time=10 iarg=5", a)
	}
	if b.time != 0 || b.iarg != 0 {
		t.Errorf("b = %+v, want cancelled (time=0 iarg=0)", b)
	}
}

func TestCancelEventLeavesOthersIntact(t *testing.T) {
	var clock int64
	l := New()
	var a, b, d recorder
	l.Add(10, a.callback(&clock), 5)
	id := l.Add(20, b.callback(&clock), 2)
	l.Add(30, d.callback(&clock), 3)
	for i := 0; i < 30; i++ {
		clock++
		l.Advance(1)
		if a.iarg == 5 {
			l.Cancel(id)
		}
	}
	if b.time != 0 || b.iarg != 0 {
		t.Errorf("b = %+v, want cancelled", b)
	}
	if d.time != 30 || d.iarg != 3 {
		t.Errorf("d = %+v, want time=30 iarg=3", d)
	}
}

func TestAddEventZeroCyclesFiresImmediately(t *testing.T) {
	var clock int64
	l := New()
	var a recorder
	l.Add(0, a.callback(&clock), 5)
	if a.time != 0 || a.iarg != 5 {
		t.Errorf("a = %+v, want immediate fire with iarg=5", a)
	}
	if l.Pending() {
		t.Error("Pending() = true after only a zero-delay event")
	}
}

func TestPendingReflectsQueueState(t *testing.T) {
	l := New()
	if l.Pending() {
		t.Error("Pending() = true on empty list")
	}
	var a recorder
	var clock int64
	id := l.Add(5, a.callback(&clock), 1)
	if !l.Pending() {
		t.Error("Pending() = false with a scheduled event")
	}
	l.Cancel(id)
	if l.Pending() {
		t.Error("Pending() = true after cancelling the only event")
	}
}
