/*
 * IECPrint - Serial bus driver.
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

package iecbus

// Driver does the electrical part of the protocol: edge waits with
// timeout, byte handshakes and bus turnaround. It knows nothing about
// what the bytes mean.
type Driver struct {
	lines    Lines
	clock    TimeBase
	critical Critical
	state    Status
}

// Create a driver on the given lines.
func NewDriver(lines Lines, clock TimeBase, critical Critical) *Driver {
	if critical == nil {
		critical = NoCritical{}
	}
	return &Driver{lines: lines, clock: clock, critical: critical}
}

// Return status of last transfer.
func (drv *Driver) State() Status {
	return drv.state
}

// Clock used by driver.
func (drv *Driver) Clock() TimeBase {
	return drv.clock
}

// Release clock and data to the passive state.
func (drv *Driver) Release() {
	drv.lines.Write(Clock, false)
	drv.lines.Write(Data, false)
}

// Wait for line to reach requested level. Returns true on timeout, in
// which case the lines are released, the error flag is set and we wait
// for the host to drop attention.
func (drv *Driver) WaitLine(line Line, untilHigh bool) bool {
	for range timeoutPolls {
		if drv.lines.Read(line) == untilHigh {
			return false
		}
		drv.clock.Sleep(timingPoll)
	}

	drv.Release()
	drv.state = StatusError

	// Problem might have happened during attention, wait for it to go away.
	// No timeout here, a host holding ATN forever needs a reset anyway.
	for !drv.lines.Read(ATN) {
		drv.clock.Sleep(timingPoll)
	}
	return true
}

// Receive one byte as listener. On error returns 0, caller must check
// the status to see if the value is valid.
func (drv *Driver) ReceiveByte() byte {
	drv.critical.Enter()
	defer drv.critical.Exit()
	return drv.receiveByte()
}

func (drv *Driver) receiveByte() byte {
	drv.state = StatusNone

	// Wait for talker ready.
	if drv.WaitLine(Clock, true) {
		return 0
	}

	// Say we are ready.
	drv.lines.Write(Data, false)

	// Record how long clock stays high, more than 200us means EOI.
	n := 0
	for drv.lines.Read(Clock) && n < timingEOIThresh {
		drv.clock.Sleep(timingEOIStep)
		n++
	}

	if n >= timingEOIThresh {
		drv.state |= StatusEOI

		// Acknowledge by pulling data down for more than 60us.
		drv.lines.Write(Data, true)
		drv.clock.Sleep(timingBit)
		drv.lines.Write(Data, false)

		// But still wait for clock.
		if drv.WaitLine(Clock, false) {
			return 0
		}
	}

	// Sample attention.
	if !drv.lines.Read(ATN) {
		drv.state |= StatusATN
	}

	// Get the bits, sampling on clock rising edge.
	var data byte
	for range 8 {
		data >>= 1
		if drv.WaitLine(Clock, true) {
			return 0
		}
		if drv.lines.Read(Data) {
			data |= 0x80
		}
		if drv.WaitLine(Clock, false) {
			return 0
		}
	}

	// Signal we accepted data.
	drv.lines.Write(Data, true)
	return data
}

// Send one byte as talker. Returns false on timeout.
func (drv *Driver) SendByte(data byte, eoi bool) bool {
	drv.critical.Enter()
	defer drv.critical.Exit()
	return drv.sendByte(data, eoi)
}

func (drv *Driver) sendByte(data byte, eoi bool) bool {
	drv.state = StatusNone

	// Listener must have accepted previous data.
	if drv.WaitLine(Data, false) {
		return false
	}

	// Say we are ready.
	drv.lines.Write(Clock, false)

	// Wait for listener to be ready.
	if drv.WaitLine(Data, true) {
		return false
	}

	if eoi {
		// Signal EOI by waiting 200us.
		drv.clock.Sleep(timingEOIWait)

		// Get EOI acknowledge.
		if drv.WaitLine(Data, false) {
			return false
		}
		if drv.WaitLine(Data, true) {
			return false
		}
		drv.state |= StatusEOI
	}

	drv.clock.Sleep(timingNoEOI)

	// Send bits, data line asserted is a zero.
	for range 8 {
		drv.lines.Write(Clock, true)
		drv.lines.Write(Data, (data&1) == 0)
		drv.clock.Sleep(timingBit)
		drv.lines.Write(Clock, false)
		drv.clock.Sleep(timingBit)
		data >>= 1
	}

	drv.lines.Write(Clock, true)
	drv.lines.Write(Data, false)

	drv.clock.Sleep(timingStable)

	// Wait for listener to accept data.
	return !drv.WaitLine(Data, false)
}

// Switch from listener to talker.
func (drv *Driver) TurnAround() bool {
	drv.critical.Enter()
	defer drv.critical.Exit()

	// Wait until clock is released.
	if drv.WaitLine(Clock, true) {
		return false
	}

	drv.lines.Write(Data, false)
	drv.clock.Sleep(timingBit)
	drv.lines.Write(Clock, true)
	drv.clock.Sleep(timingBit)
	return true
}

// Switch back from talker to listener.
func (drv *Driver) UndoTurnAround() bool {
	drv.critical.Enter()
	defer drv.critical.Exit()

	drv.lines.Write(Data, true)
	drv.clock.Sleep(timingBit)
	drv.lines.Write(Clock, false)
	drv.clock.Sleep(timingBit)

	// Wait until the host takes the clock line.
	return !drv.WaitLine(Clock, false)
}
