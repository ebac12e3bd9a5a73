/*
 * IECPrint - Commodore serial bus definitions.
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

import "errors"

// Line names one of the three bus signals the device takes part in.
type Line int

const (
	ATN   Line = iota // Attention, driven by the host only.
	Clock             // Clock, driven by the current talker.
	Data              // Data, driven by talker and listeners.
)

func (l Line) String() string {
	switch l {
	case ATN:
		return "ATN"
	case Clock:
		return "CLOCK"
	case Data:
		return "DATA"
	}
	return "???"
}

// Lines is the open-drain line I/O primitive.
//
// Read returns true when the line is electrically high, that is when no
// participant on the bus pulls it low. Write with asserted true pulls the
// line low, asserted false releases it.
type Lines interface {
	Read(line Line) bool
	Write(line Line, asserted bool)
}

// TimeBase is used for all bus timing. Now returns a monotonic timestamp
// in microseconds, Sleep waits for the given number of microseconds.
type TimeBase interface {
	Now() uint64
	Sleep(us uint32)
}

// Critical brackets the timing sensitive part of a byte transfer. Between
// Enter and Exit the caller must not be preempted for longer than one bit
// period.
type Critical interface {
	Enter()
	Exit()
}

// NoCritical is used when the platform offers no way to hold off
// preemption.
type NoCritical struct{}

func (NoCritical) Enter() {}
func (NoCritical) Exit()  {}

// Status flags, reset at the start of every byte transfer.
type Status uint8

const (
	StatusError Status = 1 << iota // A wait exceeded its timeout.
	StatusEOI                      // Talker signaled last byte of segment.
	StatusATN                      // Attention asserted during transfer.
	StatusNone  Status = 0
)

func (s Status) String() string {
	if s == StatusNone {
		return "none"
	}
	str := ""
	if (s & StatusError) != 0 {
		str += "error "
	}
	if (s & StatusEOI) != 0 {
		str += "eoi "
	}
	if (s & StatusATN) != 0 {
		str += "atn "
	}
	return str[:len(str)-1]
}

// Bus timing, all values in microseconds. These follow the published
// serial bus timing and must not be changed.
const (
	timingBit       = 70  // Bit clock hi/lo time.
	timingNoEOI     = 20  // Delay before bits.
	timingEOIWait   = 200 // Delay to signal EOI.
	timingEOIThresh = 20  // Threshold for EOI detect, in 10us steps.
	timingEOIStep   = 10  // One EOI measurement step.
	timingStable    = 20  // Line stabilization.
	timingATNPre    = 50  // Delay required in attention.
	timingATNDelay  = 100 // Delay required after attention.
	timingPoll      = 2   // Line sample period while waiting.

	// Number of samples before a wait gives up, roughly 130ms.
	timeoutPolls = 65000
)

// Attention command codes.
const (
	CodeListen   uint8 = 0x20 // Listen, ored with device address.
	CodeTalk     uint8 = 0x40 // Talk, ored with device address.
	CodeData     uint8 = 0x60 // Data on secondary channel.
	CodeClose    uint8 = 0xe0 // Close secondary channel.
	CodeOpen     uint8 = 0xf0 // Open secondary channel.
	CodeUnlisten uint8 = 0x3f // Bus wide unlisten.
	CodeUntalk   uint8 = 0x5f // Bus wide untalk.

	codeMask    uint8 = 0xf0 // Command part of secondary.
	channelMask uint8 = 0x0f // Channel part of secondary.
)

// MaxAddress is the highest device address usable on the bus.
const MaxAddress = 30

// ErrBadAddress is returned for device numbers outside 0-30.
var ErrBadAddress = errors.New("device address must be 0 to 30")

// Command returns the command part of a secondary address byte.
func Command(code uint8) uint8 {
	return code & codeMask
}

// Channel returns the channel part of a secondary address byte.
func Channel(code uint8) uint8 {
	return code & channelMask
}
