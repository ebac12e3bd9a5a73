/*
 * IECPrint - Device configuration keywords.
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

package devconfig

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	config "github.com/rcornwell/iecprint/config/configparser"
	"github.com/rcornwell/iecprint/emu/dispatch"
	"github.com/rcornwell/iecprint/emu/iecbus"
	"github.com/rcornwell/iecprint/emu/printer"
)

// BCM pin numbers of the bus lines.
type GPIO struct {
	ATN   int
	Clock int
	Data  int
}

// Settings collected from a configuration file.
type Settings struct {
	Address   uint8
	Printer   printer.Config
	Target    dispatch.Target
	SpoolDir  string
	GPIO      GPIO
	DebugFile string
	Debug     map[string][]string // Debug options per module.
}

// Defaults used for anything the file does not set.
func Default() Settings {
	target, _ := dispatch.ParseTarget("")
	return Settings{
		Address: 4,
		Printer: printer.DefaultConfig(),
		Target:  target,
		GPIO:    GPIO{ATN: 17, Clock: 27, Data: 22},
		Debug:   map[string][]string{},
	}
}

var (
	ErrOption = errors.New("invalid option")
	ErrValue  = errors.New("invalid value")
)

// Settings being loaded, the parser calls back into the handlers below.
var (
	mu      sync.Mutex
	current *Settings
)

// register keywords on initialize.
func init() {
	config.RegisterModel("IECPRINTER", setPrinter)
	config.RegisterOptions("SERVER", setServer)
	config.RegisterOptions("SPOOL", setSpool)
	config.RegisterOptions("GPIO", setGPIO)
	config.RegisterOption("DEBUGFILE", setDebugFile)
	config.RegisterOptions("DEBUG", setDebug)
}

// Load configuration file.
func Load(name string) (Settings, error) {
	return load(func() error { return config.LoadConfigFile(name) })
}

// Load configuration from reader.
func LoadReader(r io.Reader) (Settings, error) {
	return load(func() error { return config.LoadConfig(r) })
}

func load(fn func() error) (Settings, error) {
	mu.Lock()
	defer mu.Unlock()
	s := Default()
	current = &s
	defer func() { current = nil }()
	if err := fn(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func number(opt config.Option, bits int) (uint64, error) {
	v, err := strconv.ParseUint(opt.EqualOpt, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%s", ErrValue, opt.Name, opt.EqualOpt)
	}
	return v, nil
}

func onOff(opt config.Option) (bool, error) {
	switch strings.ToLower(opt.EqualOpt) {
	case "on", "yes", "true", "1", "":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s=%s", ErrValue, opt.Name, opt.EqualOpt)
}

// IECPRINTER <address> guard=ms minjob=n maxjob=n unlisten=policy eoi=on|off openname=on|off.
func setPrinter(devNum uint16, _ string, options []config.Option) error {
	if devNum > iecbus.MaxAddress {
		return fmt.Errorf("%w: %d", iecbus.ErrBadAddress, devNum)
	}
	s := current
	s.Address = uint8(devNum)
	for _, opt := range options {
		switch strings.ToUpper(opt.Name) {
		case "GUARD":
			v, err := number(opt, 32)
			if err != nil {
				return err
			}
			s.Printer.Guard = time.Duration(v) * time.Millisecond
		case "MINJOB":
			v, err := number(opt, 32)
			if err != nil {
				return err
			}
			s.Printer.MinJob = int(v)
		case "MAXJOB":
			v, err := number(opt, 32)
			if err != nil || v == 0 {
				return fmt.Errorf("%w: maxjob=%s", ErrValue, opt.EqualOpt)
			}
			s.Printer.MaxJob = int(v)
		case "UNLISTEN":
			pol, err := printer.ParsePolicy(opt.EqualOpt)
			if err != nil {
				return err
			}
			s.Printer.Unlisten = pol
		case "EOI":
			v, err := onOff(opt)
			if err != nil {
				return err
			}
			s.Printer.FinalizeOnEOI = v
		case "OPENNAME":
			v, err := onOff(opt)
			if err != nil {
				return err
			}
			s.Printer.OpenName = v
		default:
			return fmt.Errorf("%w: IECPRINTER %s", ErrOption, opt.Name)
		}
	}
	return nil
}

// SERVER host=name port=n chunk=n timeout=ms.
func setServer(_ uint16, first string, options []config.Option) error {
	s := current
	if first != "" {
		t, err := dispatch.ParseTarget(first)
		if err != nil {
			return err
		}
		s.Target.Host = t.Host
		s.Target.Port = t.Port
	}
	for _, opt := range options {
		switch strings.ToUpper(opt.Name) {
		case "HOST":
			s.Target.Host = opt.EqualOpt
		case "PORT":
			v, err := number(opt, 16)
			if err != nil || v == 0 {
				return fmt.Errorf("%w: port=%s", ErrValue, opt.EqualOpt)
			}
			s.Target.Port = int(v)
		case "CHUNK":
			v, err := number(opt, 16)
			if err != nil || v == 0 {
				return fmt.Errorf("%w: chunk=%s", ErrValue, opt.EqualOpt)
			}
			s.Target.Chunk = int(v)
		case "TIMEOUT":
			v, err := number(opt, 32)
			if err != nil {
				return err
			}
			s.Target.Timeout = time.Duration(v) * time.Millisecond
		default:
			return fmt.Errorf("%w: SERVER %s", ErrOption, opt.Name)
		}
	}
	return nil
}

// SPOOL dir=path.
func setSpool(_ uint16, first string, options []config.Option) error {
	s := current
	s.SpoolDir = first
	for _, opt := range options {
		if !strings.EqualFold(opt.Name, "DIR") {
			return fmt.Errorf("%w: SPOOL %s", ErrOption, opt.Name)
		}
		s.SpoolDir = opt.EqualOpt
	}
	return nil
}

// GPIO atn=pin clock=pin data=pin.
func setGPIO(_ uint16, _ string, options []config.Option) error {
	s := current
	for _, opt := range options {
		v, err := number(opt, 8)
		if err != nil || v > 53 {
			return fmt.Errorf("%w: %s=%s", ErrValue, opt.Name, opt.EqualOpt)
		}
		switch strings.ToUpper(opt.Name) {
		case "ATN":
			s.GPIO.ATN = int(v)
		case "CLOCK":
			s.GPIO.Clock = int(v)
		case "DATA":
			s.GPIO.Data = int(v)
		default:
			return fmt.Errorf("%w: GPIO %s", ErrOption, opt.Name)
		}
	}
	g := s.GPIO
	if g.ATN == g.Clock || g.ATN == g.Data || g.Clock == g.Data {
		return fmt.Errorf("%w: GPIO pins must differ", ErrValue)
	}
	return nil
}

// DEBUGFILE name.
func setDebugFile(_ uint16, fileName string, _ []config.Option) error {
	current.DebugFile = fileName
	return nil
}

// DEBUG <module|address> option,option.
func setDebug(devNum uint16, module string, options []config.Option) error {
	s := current
	switch {
	case devNum != config.NoDev:
		module = "PRINTER"
	case module == "":
		return errors.New("debug requires module name")
	default:
		module = strings.ToUpper(module)
		if module == "IECPRINTER" {
			module = "PRINTER"
		}
	}
	if module != "PRINTER" && module != "BUS" {
		return errors.New("debug option invalid: " + module)
	}
	for _, opt := range options {
		s.Debug[module] = append(s.Debug[module], strings.ToUpper(opt.Name))
		for _, value := range opt.Value {
			s.Debug[module] = append(s.Debug[module], strings.ToUpper(*value))
		}
	}
	return nil
}

// Debug target, implemented by printer and session.
type Debugger interface {
	Debug(opt string) error
}

// Apply debug options of module to target.
func (s *Settings) ApplyDebug(module string, target Debugger) error {
	for _, opt := range s.Debug[module] {
		if err := target.Debug(opt); err != nil {
			return err
		}
	}
	return nil
}
