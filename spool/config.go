/*
 * IECPrint - Print server configuration.
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

package spool

import (
	"fmt"

	"github.com/rcornwell/iecprint/emu/dispatch"
	"github.com/rcornwell/iecprint/spool/mps803"
)

// Config for print server.
type Config struct {
	Listen      string  `mapstructure:"listen" yaml:"listen"`
	HTTP        string  `mapstructure:"http" yaml:"http"`
	OutDir      string  `mapstructure:"out_dir" yaml:"out_dir"`
	Width       int     `mapstructure:"width" yaml:"width"`
	DPI         int     `mapstructure:"dpi" yaml:"dpi"`
	PaperWidth  float64 `mapstructure:"paper_width" yaml:"paper_width"`
	PaperHeight float64 `mapstructure:"paper_height" yaml:"paper_height"`
	Print       bool    `mapstructure:"print" yaml:"print"`
	PrintCmd    string  `mapstructure:"print_cmd" yaml:"print_cmd"`
	History     int     `mapstructure:"history" yaml:"history"`
	ReadTimeout int     `mapstructure:"read_timeout" yaml:"read_timeout"` // Seconds.
}

// Default server settings, listening where the printer sends.
func DefaultConfig() Config {
	paper := mps803.DefaultPaper()
	return Config{
		Listen:      fmt.Sprintf(":%d", dispatch.DefaultPort),
		HTTP:        ":8080",
		OutDir:      "output",
		Width:       mps803.DefaultWidth,
		DPI:         paper.DPI,
		PaperWidth:  paper.Width,
		PaperHeight: paper.Height,
		PrintCmd:    "lp",
		History:     100,
		ReadTimeout: 60,
	}
}

// Paper described by configuration.
func (c Config) Paper() mps803.Paper {
	paper := mps803.DefaultPaper()
	if c.DPI > 0 {
		paper.DPI = c.DPI
	}
	if c.PaperWidth > 0 {
		paper.Width = c.PaperWidth
	}
	if c.PaperHeight > 0 {
		paper.Height = c.PaperHeight
	}
	return paper
}
