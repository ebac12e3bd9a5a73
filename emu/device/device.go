/*
 * IECPrint - Bus device interface.
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

package device

// Interface for devices attached to the serial bus. The session handler
// calls these as the host addresses the device.
type Device interface {
	// Called once per handler cycle before looking at the bus. Returns
	// true if the device used the cycle.
	Poll() bool

	Listen(secondary uint8) // Addressed as listener with secondary.
	Unlisten()              // Listener released.
	Talk(secondary uint8)   // Addressed as talker with secondary.
	Untalk()                // Talker released.

	// Greater than zero when device will take a byte.
	CanWrite() int8
	Write(data uint8, eoi bool)

	// Zero when nothing to send, one when next byte is the last one.
	CanRead() int8
	Read() uint8

	Reset()
}

// Return values of CanRead.
const (
	ReadNone int8 = 0 // Nothing to send.
	ReadLast int8 = 1 // Next byte is last.
	ReadMore int8 = 2 // More to follow next byte.
)
