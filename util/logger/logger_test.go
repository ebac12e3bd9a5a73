/*
 * IECPrint - Log handler test cases.
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

package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFile(t *testing.T) {
	var file, console bytes.Buffer
	h := NewHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	h.SetConsole(&console)
	log := slog.New(h)

	log.Debug("quiet", "device", 4)
	if !strings.Contains(file.String(), "DEBUG: quiet device=4") {
		t.Errorf("Debug not written to file: %q", file.String())
	}
	if console.Len() != 0 {
		t.Errorf("Debug written to console: %q", console.String())
	}

	log.Info("loud")
	if !strings.Contains(console.String(), "INFO: loud") {
		t.Errorf("Info not written to console: %q", console.String())
	}

	h.SetDebug(true)
	console.Reset()
	log.Debug("now visible")
	if !strings.Contains(console.String(), "now visible") {
		t.Errorf("Debug flag did not copy to console")
	}
}

func TestHandlerAttrs(t *testing.T) {
	var file, console bytes.Buffer
	h := NewHandler(&file, nil, false)
	h.SetConsole(&console)
	log := slog.New(h).With("module", "printer")

	log.Warn("overflow", "bytes", 16)
	line := file.String()
	if !strings.Contains(line, "module=printer") || !strings.Contains(line, "bytes=16") {
		t.Errorf("Attributes missing: %q", line)
	}
	if !strings.Contains(console.String(), "overflow") {
		t.Errorf("Handler from With lost console")
	}
}

func TestHandlerLevel(t *testing.T) {
	var file bytes.Buffer
	h := NewHandler(&file, &slog.HandlerOptions{Level: slog.LevelWarn}, false)
	h.SetConsole(&bytes.Buffer{})
	log := slog.New(h)
	log.Info("dropped")
	if file.Len() != 0 {
		t.Errorf("Info written below level: %q", file.String())
	}
}
