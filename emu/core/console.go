/*
 * IECPrint - Console interface to the bus loop.
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

package core

import (
	"errors"
	"strings"
	"time"

	command "github.com/rcornwell/iecprint/command/command"
	"github.com/rcornwell/iecprint/emu/dispatch"
	"github.com/rcornwell/iecprint/emu/printer"
)

var errTimeout = errors.New("bus loop not responding")

// Options the console may set or show.
func (core *Core) Options() []command.Options {
	return []command.Options{
		{Name: "server", OptionType: command.OptionName, OptionValid: command.ValidSet},
		{Name: "spool", OptionType: command.OptionName, OptionValid: command.ValidSet},
		{Name: "guard", OptionType: command.OptionNumber, OptionValid: command.ValidSet},
		{Name: "minjob", OptionType: command.OptionNumber, OptionValid: command.ValidSet},
		{Name: "maxjob", OptionType: command.OptionNumber, OptionValid: command.ValidSet},
		{
			Name: "unlisten", OptionType: command.OptionList, OptionValid: command.ValidSet,
			OptionList: []string{"guard", "finalize", "ignore"},
		},
		{Name: "eoi", OptionType: command.OptionSwitch, OptionValid: command.ValidSet},
		{Name: "noeoi", OptionType: command.OptionSwitch, OptionValid: command.ValidSet},
		{
			Name: "debug", OptionType: command.OptionList, OptionValid: command.ValidSet,
			OptionList: []string{"CMD", "DATA", "DETAIL"},
		},
		{
			Name: "busdebug", OptionType: command.OptionList, OptionValid: command.ValidSet,
			OptionList: []string{"CMD", "DATA"},
		},
		{Name: "online", OptionType: command.OptionSwitch, OptionValid: command.ValidSet},
		{Name: "offline", OptionType: command.OptionSwitch, OptionValid: command.ValidSet},
		{Name: "printer", OptionType: command.OptionSwitch, OptionValid: command.ValidShow},
		{Name: "bus", OptionType: command.OptionSwitch, OptionValid: command.ValidShow},
		{Name: "dispatch", OptionType: command.OptionSwitch, OptionValid: command.ValidShow},
	}
}

// Apply options on the bus loop.
func (core *Core) Set(options []*command.CmdOption) error {
	errc := make(chan error, 1)
	select {
	case core.Master <- Packet{Msg: Configure, Options: options, Err: errc}:
	case <-time.After(time.Second):
		return errTimeout
	}
	select {
	case err := <-errc:
		return err
	case <-time.After(time.Second):
		return errTimeout
	}
}

func (core *Core) Show(options []*command.CmdOption) string {
	return core.status(options)
}

func (core *Core) Reset() {
	core.SendReset()
}

// Apply options, nothing changes when one is bad.
func (core *Core) configure(options []*command.CmdOption) error {
	cfg := core.prn.Config()
	var target *dispatch.Target
	var spool *string
	debug := map[string][]string{}
	running := core.running

	for _, opt := range options {
		switch opt.Name {
		case "server":
			t, err := dispatch.ParseTarget(opt.EqualOpt)
			if err != nil {
				return err
			}
			old := core.disp.Target()
			t.Chunk = old.Chunk
			t.Timeout = old.Timeout
			target = &t
		case "spool":
			dir := opt.EqualOpt
			if dir == "none" {
				dir = ""
			}
			spool = &dir
		case "guard":
			cfg.Guard = time.Duration(opt.Value) * time.Millisecond
		case "minjob":
			cfg.MinJob = opt.Value
		case "maxjob":
			if opt.Value == 0 {
				return errors.New("maxjob must be greater than zero")
			}
			cfg.MaxJob = opt.Value
		case "unlisten":
			pol, err := printer.ParsePolicy(opt.EqualOpt)
			if err != nil {
				return err
			}
			cfg.Unlisten = pol
		case "eoi":
			cfg.FinalizeOnEOI = true
		case "noeoi":
			cfg.FinalizeOnEOI = false
		case "debug", "busdebug":
			debug[opt.Name] = append(debug[opt.Name], strings.Split(strings.ToUpper(opt.EqualOpt), ",")...)
		case "online":
			running = true
		case "offline":
			running = false
		default:
			return errors.New("option not supported: " + opt.Name)
		}
	}

	for _, opt := range debug["debug"] {
		if err := core.prn.Debug(opt); err != nil {
			return err
		}
	}
	for _, opt := range debug["busdebug"] {
		if err := core.sess.Debug(opt); err != nil {
			return err
		}
	}
	core.prn.SetConfig(cfg)
	if target != nil {
		core.disp.SetTarget(*target)
	}
	if spool != nil {
		core.disp.SetSpool(*spool)
	}
	switch {
	case running && !core.running:
		core.processPacket(Packet{Msg: Start})
	case !running && core.running:
		core.processPacket(Packet{Msg: Stop})
	}
	return nil
}
