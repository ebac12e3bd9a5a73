package event

/*
 * IECPrint  - Event scheduler
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

// Callback is run when an event expires.
type Callback = func(iarg int)

type Event struct {
	time  int      // Number of microseconds to event, relative to previous.
	owner any      // Who registered the event.
	cb    Callback // Function to callback
	iarg  int      // Integer argument
	prev  *Event
	next  *Event
}

// List holds pending events ordered by expiry. Each event time is
// relative to the one before it.
type List struct {
	head *Event
	tail *Event
}

// Create empty event list.
func NewList() *List {
	return &List{}
}

// Add an event. An event with time 0 is run right away.
func (el *List) Add(owner any, cb Callback, time int, iarg int) {
	// If time is 0 process event immediately
	if time <= 0 {
		cb(iarg)
		return
	}

	ev := &Event{owner: owner, cb: cb, time: time, iarg: iarg}

	evptr := el.head
	// If empty put on head
	if evptr == nil {
		el.head = ev
		el.tail = ev
		return
	}

	// Scan for place to install it
	for evptr != nil {
		// Event before next event
		if ev.time <= evptr.time {
			// Remove current time from next time
			evptr.time -= ev.time
			ev.prev = evptr.prev
			ev.next = evptr
			evptr.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				el.head = ev
			}
			return
		}
		// Make new event relative to head of list
		ev.time -= evptr.time
		evptr = evptr.next
	}

	// Get here, put it on tail of list
	ev.prev = el.tail
	el.tail.next = ev
	el.tail = ev
}

// Remove first event matching owner and argument.
func (el *List) Cancel(owner any, iarg int) {
	for evptr := el.head; evptr != nil; evptr = evptr.next {
		if evptr.owner != owner || evptr.iarg != iarg {
			continue
		}
		nxt := evptr.next
		if nxt != nil {
			// Give time to next event.
			nxt.time += evptr.time
			nxt.prev = evptr.prev
		} else {
			el.tail = evptr.prev
		}

		if evptr.prev != nil {
			evptr.prev.next = nxt
		} else {
			el.head = nxt
		}
		return
	}
}

// Advance time by t microseconds, running any expired events.
func (el *List) Advance(t int) {
	evptr := el.head
	if evptr == nil {
		return
	}
	evptr.time -= t
	for evptr != nil && evptr.time <= 0 {
		// Carry any overshoot to the next event.
		over := evptr.time
		el.head = evptr.next
		if el.head != nil {
			el.head.prev = nil
			el.head.time += over
		} else {
			el.tail = nil
		}
		evptr.cb(evptr.iarg)
		evptr = el.head
	}
}

// Any events pending.
func (el *List) Any() bool {
	return el.head != nil
}

// Time until next event, -1 if none.
func (el *List) Next() int {
	if el.head == nil {
		return -1
	}
	return el.head.time
}
