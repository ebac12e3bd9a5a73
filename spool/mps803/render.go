/*
 * IECPrint - MPS-803 print data renderer.
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

package mps803

import (
	"image"
	"image/color"
)

// Printer head and command codes.
const (
	DotRowHeight = 7   // Dots printed by one pass of the head.
	DefaultWidth = 640 // Dots across the paper.

	cmdBitImage = 0x08
	cmdLF       = 0x0a
	cmdCR       = 0x0d
	cmdRepeat   = 0x1a
	cmdTab      = 0x09

	textAdvance = 6  // Dots per character cell.
	tabStop     = 48 // Eight characters.
)

const (
	bg = 0xff
	fg = 0x00
)

type canvas struct {
	width  int
	height int
	pix    []uint8
}

func (c *canvas) ensureHeight(h int) {
	if h <= c.height {
		return
	}
	grow := make([]uint8, (h-c.height)*c.width)
	for i := range grow {
		grow[i] = bg
	}
	c.pix = append(c.pix, grow...)
	c.height = h
}

// One column of the head, LSB at top.
func (c *canvas) plotColumn(x, y int, pattern byte) {
	if x < 0 || x >= c.width {
		return
	}
	c.ensureHeight(y + DotRowHeight)
	for b := range DotRowHeight {
		if (pattern>>b)&1 != 0 {
			c.pix[(y+b)*c.width+x] = fg
		}
	}
}

// Render raw printer data. Only bit image graphics make dots, text
// moves the carriage.
func Render(raw []byte, width int) *image.Gray {
	if width <= 0 {
		width = DefaultWidth
	}
	c := &canvas{width: width}
	c.ensureHeight(1)

	x, y := 0, 0
	bitImage := false
	n := len(raw)
	for i := 0; i < n; {
		b := raw[i]
		i++

		switch {
		case b == cmdBitImage:
			bitImage = true

		case b == cmdLF || b == cmdCR:
			// CR LF pair is a single line feed.
			if i < n && (raw[i] == cmdLF || raw[i] == cmdCR) && raw[i] != b {
				i++
			}
			x = 0
			y += DotRowHeight
			c.ensureHeight(y + DotRowHeight)
			// Graphics must be selected again on each line.
			bitImage = false

		case b == cmdRepeat:
			if i+2 > n {
				continue
			}
			count := int(raw[i])
			pattern := raw[i+1]
			i += 2
			if count == 0 {
				count = 256
			}
			if bitImage {
				todo := min(count, max(0, width-x))
				for range todo {
					c.plotColumn(x, y, pattern)
					x++
				}
				// Keep carriage position past the margin.
				x += count - todo
			}

		case bitImage:
			c.plotColumn(x, y, b)
			x++

		case b >= 32 && b <= 126:
			x = min(width-1, x+textAdvance)

		case b == cmdTab:
			x = min(width-1, (x/tabStop+1)*tabStop)
		}
	}
	return c.trim()
}

// Cut blank border, an empty page is a single blank dot.
func (c *canvas) trim() *image.Gray {
	r0, r1, c0, c1 := c.height, -1, c.width, -1
	for y := range c.height {
		row := c.pix[y*c.width : (y+1)*c.width]
		for x, v := range row {
			if v == bg {
				continue
			}
			r0 = min(r0, y)
			r1 = max(r1, y)
			c0 = min(c0, x)
			c1 = max(c1, x)
		}
	}
	if r1 < 0 {
		img := image.NewGray(image.Rect(0, 0, 1, 1))
		img.SetGray(0, 0, color.Gray{Y: bg})
		return img
	}
	img := image.NewGray(image.Rect(0, 0, c1-c0+1, r1-r0+1))
	for y := r0; y <= r1; y++ {
		copy(img.Pix[(y-r0)*img.Stride:], c.pix[y*c.width+c0:y*c.width+c1+1])
	}
	return img
}
