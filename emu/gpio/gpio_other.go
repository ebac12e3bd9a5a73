//go:build !linux

/*
 * IECPrint - GPIO stubs for systems without a GPIO block.
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
	"errors"

	"github.com/rcornwell/iecprint/emu/iecbus"
)

const DefaultDevice = "/dev/gpiomem"

var ErrUnsupported = errors.New("gpio not supported on this system")

type Lines struct{}

func Open(_ string, _, _, _ int) (*Lines, error) {
	return nil, ErrUnsupported
}

func (l *Lines) Read(_ iecbus.Line) bool {
	return true
}

func (l *Lines) Write(_ iecbus.Line, _ bool) {}

func (l *Lines) Release() {}

func (l *Lines) Close() error {
	return nil
}

type Critical struct{}

func NewCritical(_ int) *Critical {
	return &Critical{}
}

func (c *Critical) Enter() {}

func (c *Critical) Exit() {}
