/*
 * IECPrint - Host bus sequences.
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

import "github.com/rcornwell/iecprint/emu/iecbus"

// Take the bus: assert attention and clock, wait for a device to answer.
func (h *Host) Attention() {
	h.Set(iecbus.ATN, true)
	h.Set(iecbus.Clock, true)
	h.Set(iecbus.Data, false)
	h.Delay(hostATNSetup)
	h.Wait(iecbus.Data, false, hostPresent, "device not present")
}

// Drop attention, host stays talker.
func (h *Host) ReleaseATN() {
	h.Set(iecbus.ATN, false)
	h.Delay(hostTurnAround)
}

// Address device as listener with secondary.
func (h *Host) Listen(dev uint8, sa uint8) {
	h.Attention()
	h.SendByte(iecbus.CodeListen|dev, false)
	h.SendByte(sa, false)
	h.ReleaseATN()
}

// Unlisten all devices and release the bus.
func (h *Host) Unlisten() {
	h.Attention()
	h.SendByte(iecbus.CodeUnlisten, false)
	h.ReleaseATN()
	h.Set(iecbus.Clock, false)
	h.Delay(hostByteGap)
}

// Address device as talker with secondary and turn the bus around.
func (h *Host) Talk(dev uint8, sa uint8) {
	h.Attention()
	h.SendByte(iecbus.CodeTalk|dev, false)
	h.SendByte(sa, false)
	h.Set(iecbus.Data, true)
	h.ReleaseATN()
	h.Set(iecbus.Clock, false)
	h.Wait(iecbus.Clock, false, hostReady, "device did not turn around")
}

// Untalk all devices and release the bus.
func (h *Host) Untalk() {
	h.Attention()
	h.SendByte(iecbus.CodeUntalk, false)
	h.ReleaseATN()
	h.Set(iecbus.Clock, false)
	h.Delay(hostByteGap)
}

// Open channel on device with optional name.
func (h *Host) Open(dev uint8, ch uint8, name []byte) {
	h.Listen(dev, iecbus.CodeOpen|ch)
	h.SendBytes(name, true)
	h.Unlisten()
}

// Close channel on device.
func (h *Host) Close(dev uint8, ch uint8) {
	h.Listen(dev, iecbus.CodeClose|ch)
	h.Unlisten()
}

// Print data to a channel, like CMD and PRINT# do. When unlisten is false
// the bus is left with the device listening.
func (h *Host) Print(dev uint8, ch uint8, data []byte, eoiLast bool, unlisten bool) {
	h.Listen(dev, iecbus.CodeData|ch)
	h.SendBytes(data, eoiLast)
	if unlisten {
		h.Unlisten()
	}
}
