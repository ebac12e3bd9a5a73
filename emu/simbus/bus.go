/*
 * IECPrint - Simulated serial bus.
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

/*
   The bus is a wired-OR of open collector drivers: a line reads high only
   when nobody pulls it low. Time only moves when the device sleeps, each
   microsecond the event list is advanced and the host gets to look at the
   lines.
*/

package simbus

import (
	"fmt"

	"github.com/rcornwell/iecprint/emu/event"
	"github.com/rcornwell/iecprint/emu/iecbus"
)

// DefaultLimit is the virtual time a simulation may run, in microseconds.
const DefaultLimit = 60 * 1000 * 1000

type Bus struct {
	now    uint64       // Current virtual time in microseconds.
	start  uint64       // Time limit counted from here.
	limit  uint64       // Maximum run time.
	host   [3]bool      // Lines pulled low by host.
	device [3]bool      // Lines pulled low by device.
	events *event.List  // Pending host events.
	hosts  []*Host      // Hosts attached to bus.
	trace  func(string) // Optional trace output.
}

// Create an idle bus.
func New() *Bus {
	return &Bus{events: event.NewList(), limit: DefaultLimit}
}

// Set maximum virtual run time from now.
func (bus *Bus) SetLimit(us uint64) {
	bus.start = bus.now
	bus.limit = us
}

// Set trace function.
func (bus *Bus) SetTrace(fn func(string)) {
	bus.trace = fn
}

// Level of line as seen by everybody.
func (bus *Bus) Level(line iecbus.Line) bool {
	return !bus.host[line] && !bus.device[line]
}

// Is line pulled by the device.
func (bus *Bus) DeviceAsserts(line iecbus.Line) bool {
	return bus.device[line]
}

// Current virtual time.
func (bus *Bus) Now() uint64 {
	return bus.now
}

// Event list driving the host.
func (bus *Bus) Events() *event.List {
	return bus.events
}

// Advance time by one microsecond.
func (bus *Bus) tick() {
	bus.now++
	if bus.now-bus.start > bus.limit {
		panic(fmt.Sprintf("simbus: virtual time limit of %dus exceeded", bus.limit))
	}
	bus.events.Advance(1)
	for _, h := range bus.hosts {
		h.poll()
	}
}

// Let time pass with nobody but the host acting.
func (bus *Bus) Idle(us uint64) {
	for range us {
		bus.tick()
	}
}

// Lines as seen from the device.
func (bus *Bus) Lines() iecbus.Lines {
	return deviceLines{bus: bus}
}

// Virtual clock for the device.
func (bus *Bus) Clock() iecbus.TimeBase {
	return virtualClock{bus: bus}
}

func (bus *Bus) logf(format string, a ...any) {
	if bus.trace != nil {
		bus.trace(fmt.Sprintf("%8d: ", bus.now) + fmt.Sprintf(format, a...))
	}
}

type deviceLines struct {
	bus *Bus
}

func (l deviceLines) Read(line iecbus.Line) bool {
	return l.bus.Level(line)
}

func (l deviceLines) Write(line iecbus.Line, asserted bool) {
	if line == iecbus.ATN {
		// Only the host drives attention.
		return
	}
	if l.bus.device[line] != asserted {
		l.bus.logf("device %s %v", line, asserted)
	}
	l.bus.device[line] = asserted
}

type virtualClock struct {
	bus *Bus
}

func (c virtualClock) Now() uint64 {
	return c.bus.now
}

func (c virtualClock) Sleep(us uint32) {
	for range us {
		c.bus.tick()
	}
}
