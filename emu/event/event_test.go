/*
 * IECPrint - Event scheduler test cases.
 *
 * Copyright 2024, Richard Cornwell
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

// Records when it was called and with what.
type client struct {
	now  *uint64
	iarg int
	time uint64
	hits int
}

func (c *client) callback(iarg int) {
	c.iarg = iarg
	c.time = *c.now
	c.hits++
}

// Run list for n steps.
func run(el *List, now *uint64, n int) {
	for range n {
		*now++
		el.Advance(1)
	}
}

func TestListSingle(t *testing.T) {
	var now uint64
	el := NewList()
	a := &client{now: &now}
	el.Add(a, a.callback, 10, 1)
	if !el.Any() {
		t.Errorf("List should have pending event")
	}
	if el.Next() != 10 {
		t.Errorf("Next event expected at %d got %d", 10, el.Next())
	}
	run(el, &now, 20)
	if a.time != 10 {
		t.Errorf("Event did not fire at correct time %d got %d", 10, a.time)
	}
	if a.iarg != 1 {
		t.Errorf("Event did not set data correct %d got %d", 1, a.iarg)
	}
	if el.Any() {
		t.Errorf("List should be empty")
	}
	if el.Next() != -1 {
		t.Errorf("Empty list next should be -1 got %d", el.Next())
	}
}

// Second event added ahead of first.
func TestListOrder(t *testing.T) {
	var now uint64
	el := NewList()
	a := &client{now: &now}
	b := &client{now: &now}
	d := &client{now: &now}
	el.Add(a, a.callback, 20, 1)
	el.Add(b, b.callback, 5, 2)
	el.Add(d, d.callback, 20, 3)
	run(el, &now, 30)
	if b.time != 5 || b.iarg != 2 {
		t.Errorf("Event B wrong time %d or data %d", b.time, b.iarg)
	}
	if a.time != 20 || a.iarg != 1 {
		t.Errorf("Event A wrong time %d or data %d", a.time, a.iarg)
	}
	if d.time != 20 || d.iarg != 3 {
		t.Errorf("Event D wrong time %d or data %d", d.time, d.iarg)
	}
}

// Event scheduled from inside a callback.
func TestListChain(t *testing.T) {
	var now uint64
	el := NewList()
	a := &client{now: &now}
	c := &client{now: &now}
	el.Add(c, func(iarg int) {
		c.callback(iarg)
		el.Add(a, a.callback, iarg, iarg)
	}, 10, 4)
	run(el, &now, 30)
	if c.time != 10 {
		t.Errorf("Event C did not fire at correct time %d got %d", 10, c.time)
	}
	if a.time != 14 || a.iarg != 4 {
		t.Errorf("Chained event wrong time %d or data %d", a.time, a.iarg)
	}
}

// Cancel events while others are pending.
func TestListCancel(t *testing.T) {
	var now uint64
	el := NewList()
	a := &client{now: &now}
	b := &client{now: &now}
	d := &client{now: &now}
	el.Add(a, a.callback, 10, 5)
	el.Add(b, b.callback, 40, 2)
	el.Add(d, d.callback, 30, 3)
	el.Add(d, d.callback, 50, 4)
	for range 60 {
		now++
		el.Advance(1)
		if a.iarg == 5 {
			el.Cancel(b, 2)
			el.Cancel(d, 4)
		}
	}
	if a.time != 10 {
		t.Errorf("Event A did not fire at correct time %d got %d", 10, a.time)
	}
	if b.hits != 0 {
		t.Errorf("Event B was canceled but fired %d times", b.hits)
	}
	if d.hits != 1 || d.time != 30 || d.iarg != 3 {
		t.Errorf("Event D fired %d times, last at %d with %d", d.hits, d.time, d.iarg)
	}
}

// Advance past several events in one call.
func TestListOvershoot(t *testing.T) {
	var now uint64
	el := NewList()
	a := &client{now: &now}
	b := &client{now: &now}
	el.Add(a, a.callback, 3, 1)
	el.Add(b, b.callback, 8, 2)
	now = 5
	el.Advance(5)
	if a.hits != 1 {
		t.Errorf("Event A should have fired")
	}
	if b.hits != 0 {
		t.Errorf("Event B fired too early")
	}
	if el.Next() != 3 {
		t.Errorf("Event B expected in %d got %d", 3, el.Next())
	}
	now = 8
	el.Advance(3)
	if b.hits != 1 {
		t.Errorf("Event B should have fired")
	}
}

// Zero time runs right away.
func TestListZero(t *testing.T) {
	var now uint64
	el := NewList()
	a := &client{now: &now}
	el.Add(a, a.callback, 0, 5)
	if a.hits != 1 || a.iarg != 5 {
		t.Errorf("Event A did not run at once, hits %d data %d", a.hits, a.iarg)
	}
	if el.Any() {
		t.Errorf("Zero time event should not be queued")
	}
}
