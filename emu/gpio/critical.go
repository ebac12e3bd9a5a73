//go:build linux

/*
 * IECPrint - GPIO real time critical section.
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
	"log/slog"
	"runtime"

	"golang.org/x/sys/unix"
)

// Critical pins the bus goroutine to its thread and raises the thread
// priority while a byte is moved.
type Critical struct {
	boost  int // Nice value while inside.
	normal int
	warned bool
}

// Create critical section, boost is the nice value to run at.
func NewCritical(boost int) *Critical {
	c := &Critical{boost: boost}
	// Kernel returns 20 - nice.
	if prio, err := unix.Getpriority(unix.PRIO_PROCESS, 0); err == nil {
		c.normal = 20 - prio
	}
	return c
}

func (c *Critical) Enter() {
	runtime.LockOSThread()
	err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), c.boost)
	if err != nil && !c.warned {
		c.warned = true
		slog.Warn("Unable to raise bus thread priority", "nice", c.boost, "error", err)
	}
}

func (c *Critical) Exit() {
	_ = unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), c.normal)
	runtime.UnlockOSThread()
}
