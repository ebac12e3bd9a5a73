/*
 * IECPrint - Print server command test cases.
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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/rcornwell/iecprint/spool"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := spool.DefaultConfig()
	if cfg.Listen != def.Listen || cfg.Width != def.Width || cfg.PrintCmd != "lp" {
		t.Errorf("Defaults not applied %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "spool.yaml")
	text := "listen: \":7000\"\nout_dir: /tmp/jobs\nprint: true\nwidth: 480\n"
	if err := os.WriteFile(name, []byte(text), 0o644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	cfg, err := loadConfig(name)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != ":7000" || cfg.OutDir != "/tmp/jobs" || !cfg.Print || cfg.Width != 480 {
		t.Errorf("File not applied %+v", cfg)
	}
	if cfg.DPI != 300 {
		t.Errorf("Default DPI lost, got %d", cfg.DPI)
	}

	if err := os.WriteFile(name, []byte("width: 0\n"), 0o644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := loadConfig(name); err == nil {
		t.Errorf("Zero width accepted")
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Missing file accepted")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigDump(t *testing.T) {
	out, err := run(t, "config", "dump")
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	var cfg spool.Config
	if err := yaml.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("Dump not YAML: %v", err)
	}
	if cfg != spool.DefaultConfig() {
		t.Errorf("Dump gave %+v", cfg)
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "job.prn")
	if err := os.WriteFile(name, []byte{0x08, 0x1a, 30, 0x7f}, 0o644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out, err := run(t, "render", name)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := filepath.Join(dir, "job.bmp")
	if strings.TrimSpace(out) != want {
		t.Errorf("Render output %q", out)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("Image not written: %v", err)
	}

	if _, err := run(t, "render"); err == nil {
		t.Errorf("Render without files accepted")
	}
}
