/*
 * IECPrint - Scripted bus host.
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

package simbus

import (
	"fmt"

	"github.com/rcornwell/iecprint/emu/iecbus"
)

// Host side timing, in microseconds.
const (
	hostATNSetup   = 1000   // Attention to first byte.
	hostPresent    = 5000   // Wait for a device to answer attention.
	hostReady      = 200000 // Wait for listener ready for data.
	hostFrame      = 1000   // Wait for listener to accept a byte.
	hostNoEOI      = 40     // Ready for data to first bit.
	hostBitSetup   = 20     // Data valid before clock release.
	hostBitHold    = 60     // Clock released time.
	hostByteGap    = 100    // Between two bytes.
	hostEOIDetect  = 220    // Clock high time that means EOI.
	hostEOIAck     = 60     // EOI acknowledge pulse.
	hostTurnAround = 20     // Between releasing ATN and clock.
)

// A step returns true when it is finished.
type step func(h *Host) bool

// Host plays the computer end of the bus from a script built up front.
// The script runs on the bus virtual time.
type Host struct {
	bus      *Bus
	steps    []step
	pos      int
	errs     []error
	received []byte
	eoi      []bool

	// Scratch for the step in progress.
	started bool
	fired   bool
	mark    uint64
	phase   int
	rx      byte
	rxEOI   bool
}

// Attach a new host to the bus.
func (bus *Bus) NewHost() *Host {
	h := &Host{bus: bus}
	bus.hosts = append(bus.hosts, h)
	return h
}

// Script finished.
func (h *Host) Done() bool {
	return h.pos >= len(h.steps)
}

// Errors seen by the host while running the script.
func (h *Host) Errors() []error {
	return h.errs
}

// Bytes received while listening to the device.
func (h *Host) Received() []byte {
	return h.received
}

// EOI flag for each received byte.
func (h *Host) ReceivedEOI() []bool {
	return h.eoi
}

// Run next steps until one has to wait.
func (h *Host) poll() {
	for h.pos < len(h.steps) {
		if !h.steps[h.pos](h) {
			return
		}
		h.pos++
		h.started = false
	}
}

func (h *Host) add(s step) {
	h.steps = append(h.steps, s)
}

func (h *Host) fail(format string, a ...any) {
	err := fmt.Errorf("%d: "+format, append([]any{h.bus.now}, a...)...)
	h.bus.logf("host error %v", err)
	h.errs = append(h.errs, err)
}

func (h *Host) drive(line iecbus.Line, asserted bool) {
	if h.bus.host[line] != asserted {
		h.bus.logf("host %s %v", line, asserted)
	}
	h.bus.host[line] = asserted
}

// Pull or release a line.
func (h *Host) Set(line iecbus.Line, asserted bool) {
	h.add(func(h *Host) bool {
		h.drive(line, asserted)
		return true
	})
}

// Wait for line to reach level, record an error after timeout.
func (h *Host) Wait(line iecbus.Line, high bool, timeout uint64, what string) {
	h.add(func(h *Host) bool {
		if !h.started {
			h.started = true
			h.mark = h.bus.now
		}
		if h.bus.Level(line) == high {
			return true
		}
		if h.bus.now-h.mark >= timeout {
			h.fail("timeout: %s", what)
			return true
		}
		return false
	})
}

// Do nothing for a while.
func (h *Host) Delay(us int) {
	h.add(func(h *Host) bool {
		if !h.started {
			h.started = true
			h.fired = false
			h.bus.events.Add(h, func(_ int) { h.fired = true }, us, 0)
		}
		return h.fired
	})
}

// Run function as a step.
func (h *Host) Call(fn func(h *Host)) {
	h.add(func(h *Host) bool {
		fn(h)
		return true
	})
}

// Send one byte as talker, the host must hold clock when called.
func (h *Host) SendByte(b byte, eoi bool) {
	// Ready to send, wait for all listeners to be ready for data.
	h.Set(iecbus.Clock, false)
	h.Wait(iecbus.Data, true, hostReady, "listener not ready for data")
	if eoi {
		// Hold clock high, listener acknowledges with a pulse on data.
		h.Wait(iecbus.Data, false, hostFrame, "no eoi acknowledge")
		h.Wait(iecbus.Data, true, hostFrame, "eoi acknowledge stuck")
	} else {
		h.Delay(hostNoEOI)
	}
	h.Set(iecbus.Clock, true)

	for i := range 8 {
		bit := (b >> i) & 1
		h.Set(iecbus.Data, bit == 0)
		h.Delay(hostBitSetup)
		h.Set(iecbus.Clock, false)
		h.Delay(hostBitHold)
		h.Set(iecbus.Clock, true)
	}
	h.Set(iecbus.Data, false)

	// Listener must accept the frame.
	h.Wait(iecbus.Data, false, hostFrame, fmt.Sprintf("frame error on %02x", b))
	h.Delay(hostByteGap)
}

// Send a block of bytes, optionally last one with EOI.
func (h *Host) SendBytes(data []byte, eoiLast bool) {
	for i, b := range data {
		h.SendByte(b, eoiLast && i == len(data)-1)
	}
}

// Send some bits of a byte and then hold clock low, stalling the listener.
func (h *Host) Stall(bits int, us int) {
	h.Set(iecbus.Clock, false)
	h.Wait(iecbus.Data, true, hostReady, "listener not ready for data")
	h.Delay(hostNoEOI)
	h.Set(iecbus.Clock, true)
	for range bits {
		h.Set(iecbus.Data, false)
		h.Delay(hostBitSetup)
		h.Set(iecbus.Clock, false)
		h.Delay(hostBitHold)
		h.Set(iecbus.Clock, true)
	}
	h.Set(iecbus.Data, false)
	h.Delay(us)
}

// Receive one byte as listener, the host must hold data when called.
func (h *Host) ReceiveByte() {
	h.Wait(iecbus.Clock, true, hostReady, "talker not ready")
	h.Set(iecbus.Data, false)

	// Clock held high for long means last byte.
	h.add(func(h *Host) bool {
		if !h.started {
			h.started = true
			h.mark = h.bus.now
			h.phase = 0
			h.rx = 0
			h.rxEOI = false
		}
		now := h.bus.now
		switch h.phase {
		case 0:
			if !h.bus.Level(iecbus.Clock) {
				return true
			}
			if now-h.mark > hostEOIDetect {
				h.rxEOI = true
				h.drive(iecbus.Data, true)
				h.mark = now
				h.phase = 1
			}
		case 1:
			if now-h.mark >= hostEOIAck {
				h.drive(iecbus.Data, false)
				h.mark = now
				h.phase = 2
			}
		case 2:
			if !h.bus.Level(iecbus.Clock) {
				return true
			}
			if now-h.mark > hostReady {
				h.fail("talker stuck after eoi")
				return true
			}
		}
		return false
	})

	for range 8 {
		h.Wait(iecbus.Clock, true, hostFrame, "bit clock")
		h.Call(func(h *Host) {
			h.rx >>= 1
			if h.bus.Level(iecbus.Data) {
				h.rx |= 0x80
			}
		})
		h.Wait(iecbus.Clock, false, hostFrame, "bit clock release")
	}

	h.Call(func(h *Host) {
		h.received = append(h.received, h.rx)
		h.eoi = append(h.eoi, h.rxEOI)
	})
	// Accept byte, hold it long enough for the talker to see.
	h.Set(iecbus.Data, true)
	h.Delay(hostByteGap)
}

// Receive a number of bytes.
func (h *Host) ReceiveBytes(n int) {
	for range n {
		h.ReceiveByte()
	}
}
