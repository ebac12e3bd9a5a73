//go:build linux

/*
 * IECPrint - Raspberry Pi GPIO bus lines.
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

package gpio

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/rcornwell/iecprint/emu/iecbus"
	"golang.org/x/sys/unix"
)

// DefaultDevice gives access to the GPIO block without root.
const DefaultDevice = "/dev/gpiomem"

// BCM283x GPIO register word offsets.
const (
	regFSel = 0x00 / 4 // Function select, three bits per pin.
	regSet  = 0x1c / 4 // Output set.
	regClr  = 0x28 / 4 // Output clear.
	regLev  = 0x34 / 4 // Pin level.
	memSize = 4096
	maxPin  = 53
)

// Pin functions.
const (
	modeIn  = 0
	modeOut = 1
)

// Lines drives the bus through open collector style pins: an asserted line
// is an output driven low, a released line is an input.
type Lines struct {
	mem  []byte
	regs []uint32
	pins [3]int
}

// Map GPIO registers and release the bus lines.
func Open(device string, atn, clock, data int) (*Lines, error) {
	for _, pin := range []int{atn, clock, data} {
		if pin < 0 || pin > maxPin {
			return nil, fmt.Errorf("gpio pin %d out of range", pin)
		}
	}
	file, err := os.OpenFile(device, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("gpio open: %w", err)
	}
	defer file.Close()

	mem, err := unix.Mmap(int(file.Fd()), 0, memSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("gpio map: %w", err)
	}
	regs := unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), memSize/4)
	l := newLines(regs, atn, clock, data)
	l.mem = mem
	return l, nil
}

func newLines(regs []uint32, atn, clock, data int) *Lines {
	l := &Lines{regs: regs}
	l.pins[iecbus.ATN] = atn
	l.pins[iecbus.Clock] = clock
	l.pins[iecbus.Data] = data
	l.Release()
	return l
}

// Read line, true when high.
func (l *Lines) Read(line iecbus.Line) bool {
	pin := l.pins[line]
	v := atomic.LoadUint32(&l.regs[regLev+pin/32])
	return v&(1<<(pin%32)) != 0
}

// Pull line low or let it float.
func (l *Lines) Write(line iecbus.Line, asserted bool) {
	pin := l.pins[line]
	if asserted {
		// Latch a low before switching to output so the line never
		// sees a high pulse.
		atomic.StoreUint32(&l.regs[regClr+pin/32], 1<<(pin%32))
		l.setMode(pin, modeOut)
		return
	}
	l.setMode(pin, modeIn)
}

func (l *Lines) setMode(pin int, mode uint32) {
	reg := &l.regs[regFSel+pin/10]
	shift := uint(pin%10) * 3
	v := atomic.LoadUint32(reg)
	v = (v &^ (7 << shift)) | (mode << shift)
	atomic.StoreUint32(reg, v)
}

// Let all lines float.
func (l *Lines) Release() {
	for _, pin := range l.pins {
		l.setMode(pin, modeIn)
	}
}

// Release lines and unmap registers.
func (l *Lines) Close() error {
	l.Release()
	if l.mem == nil {
		return nil
	}
	err := unix.Munmap(l.mem)
	l.mem = nil
	l.regs = nil
	return err
}
