/*
 * IECPrint - Serial bus printer interface.
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
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"
	reader "github.com/rcornwell/iecprint/command/reader"
	"github.com/rcornwell/iecprint/config/devconfig"
	"github.com/rcornwell/iecprint/config/watch"
	core "github.com/rcornwell/iecprint/emu/core"
	"github.com/rcornwell/iecprint/emu/dispatch"
	"github.com/rcornwell/iecprint/emu/gpio"
	"github.com/rcornwell/iecprint/emu/iecbus"
	"github.com/rcornwell/iecprint/emu/printer"
	"github.com/rcornwell/iecprint/emu/session"
	"github.com/rcornwell/iecprint/util/debug"
	logger "github.com/rcornwell/iecprint/util/logger"
)

// Nice value of bus thread while moving a byte.
const busPriority = -10

func main() {
	optConfig := getopt.StringLong("config", 'c', "iecprint.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optDevice := getopt.StringLong("gpio", 'g', gpio.DefaultDevice, "GPIO device")
	optNoWatch := getopt.BoolLong("nowatch", 'n', "Do not reload configuration on change")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("Unable to create log file", "error", err)
			os.Exit(1)
		}
		defer file.Close()
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	handler := logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, *optDebug)
	Logger := slog.New(handler)
	slog.SetDefault(Logger)

	Logger.Info("IECPrint Started")
	_, err := os.Stat(*optConfig)
	if os.IsNotExist(err) {
		Logger.Error("Configuration file can't be found", "file", *optConfig)
		os.Exit(1)
	}
	settings, err := devconfig.Load(*optConfig)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	if settings.DebugFile != "" {
		if err := debug.Open(settings.DebugFile); err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		defer debug.Close()
	}

	lines, err := gpio.Open(*optDevice, settings.GPIO.ATN, settings.GPIO.Clock, settings.GPIO.Data)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	defer lines.Close()

	clock := gpio.NewClock()
	drv := iecbus.NewDriver(lines, clock, gpio.NewCritical(busPriority))
	parser, err := iecbus.NewParser(drv, settings.Address)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	prn := printer.New(settings.Address, clock, settings.Printer)
	sess := session.New(parser, prn)
	if err := settings.ApplyDebug("PRINTER", prn); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	if err := settings.ApplyDebug("BUS", sess); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	disp := dispatch.New(settings.Target, settings.SpoolDir, dispatch.DefaultDepth)
	disp.Start()

	// Create new routine to run bus.
	bus := core.New(make(chan core.Packet), sess, prn, disp)
	bus.SetRelease(drv.Release)
	bus.Go()

	var watcher *watch.Watcher
	if !*optNoWatch {
		watcher, err = watch.New(*optConfig, func(s devconfig.Settings) {
			if s.Address != settings.Address || s.GPIO != settings.GPIO {
				Logger.Warn("Device address and pins change on restart")
			}
			bus.SendReload(s.Printer, s.Target, s.SpoolDir)
		})
		if err != nil {
			Logger.Warn("Configuration reload disabled", "error", err)
			watcher = nil
		} else {
			watcher.Start()
		}
	}

	msg := make(chan string, 1)
	go func() {
		reader.ConsoleReader(bus)
		msg <- ""
	}()

	// Wait on shutdown option
	<-msg

	if watcher != nil {
		watcher.Stop()
	}
	bus.Stop()
	disp.Stop()
	Logger.Info("Printer stopped.")
}
