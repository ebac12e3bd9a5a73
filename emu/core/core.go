/*
 * IECPrint - Main bus loop.
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
	"fmt"
	"log/slog"
	"sync"
	"time"

	command "github.com/rcornwell/iecprint/command/command"
	"github.com/rcornwell/iecprint/emu/dispatch"
	"github.com/rcornwell/iecprint/emu/iecbus"
	"github.com/rcornwell/iecprint/emu/printer"
	"github.com/rcornwell/iecprint/emu/session"
)

// Messages to the bus loop.
type Msg int

const (
	Start     Msg = iota // Serve the bus.
	Stop                 // Release bus and stop serving.
	Reset                // Reset printer, discard partial job.
	Status               // Reply with status text.
	SetServer            // Change print server.
	Configure            // Apply console set options.
	Reload               // Apply reloaded configuration.
)

// Packet sent to bus loop. Reply and Err, when not nil, get the result.
type Packet struct {
	Msg     Msg
	Target  dispatch.Target
	Options []*command.CmdOption
	Printer printer.Config
	Spool   string
	Reply   chan string
	Err     chan error
}

// Counters kept by the loop.
type Stats struct {
	Errors    uint64 // Bus errors.
	Submitted uint64 // Jobs handed to dispatcher.
	Refused   uint64 // Hand offs refused by dispatcher.
}

type Core struct {
	wg      sync.WaitGroup
	done    chan struct{} // Signal to shutdown.
	running bool          // Indicate when bus is served.
	Master  chan Packet
	sess    *session.Session
	prn     *printer.Printer
	disp    *dispatch.Dispatcher
	release func()
	stats   Stats
	waiting bool // Job refused, retry on next cycle.
}

// Create bus loop for printer on session.
func New(master chan Packet, sess *session.Session, prn *printer.Printer, disp *dispatch.Dispatcher) *Core {
	return &Core{
		Master:  master,
		done:    make(chan struct{}),
		running: true,
		sess:    sess,
		prn:     prn,
		disp:    disp,
	}
}

// Function called to release bus lines when stopped.
func (core *Core) SetRelease(fn func()) {
	core.release = fn
}

// Run bus loop in its own goroutine, Stop waits for it.
func (core *Core) Go() {
	core.wg.Add(1)
	go func() {
		defer core.wg.Done()
		core.Start()
	}()
}

// Run bus loop until Stop.
func (core *Core) Start() {
	slog.Info("Printer online", "device", core.prn.Address())
	for {
		if core.running {
			core.Step()
		} else {
			time.Sleep(time.Millisecond)
		}
		select {
		case <-core.done:
			if core.release != nil {
				core.release()
			}
			return
		case packet := <-core.Master:
			core.processPacket(packet)
		default:
		}
	}
}

// Run one cycle of the bus and hand off any finished job.
func (core *Core) Step() iecbus.ATNCheck {
	ret := core.sess.Handler()
	if ret == iecbus.ATNError {
		core.stats.Errors++
	}
	core.handOff()
	return ret
}

// Give finished job to dispatcher, the printer keeps it until accepted.
func (core *Core) handOff() {
	if !core.prn.IsJobActive() {
		return
	}
	if core.waiting && core.disp.Full() && !core.disp.Stopped() {
		return
	}
	job := dispatch.NewJob(core.prn.JobChannel(), core.prn.Job())
	err := core.disp.Submit(job)
	if err != nil {
		if !core.waiting {
			core.stats.Refused++
			slog.Warn("Print job held", "id", job.ID, "error", err)
		}
		core.waiting = !errors.Is(err, dispatch.ErrStopped)
		if !core.waiting {
			// Nobody will ever take it.
			core.prn.JobHandled()
		}
		return
	}
	core.waiting = false
	core.stats.Submitted++
	slog.Info("Print job queued", "id", job.ID, "bytes", len(job.Data), "channel", job.Channel)
	core.prn.JobHandled()
}

// Stop bus loop, waits at most one second.
func (core *Core) Stop() {
	slog.Info("Shutting down bus")
	close(core.done)
	done := make(chan struct{})
	go func() {
		core.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for bus to finish.")
		return
	}
}

func (core *Core) Stats() Stats {
	return core.stats
}

// Start serving the bus.
func (core *Core) SendStart() {
	core.Master <- Packet{Msg: Start}
}

// Stop serving the bus.
func (core *Core) SendStop() {
	core.Master <- Packet{Msg: Stop}
}

// Reset printer.
func (core *Core) SendReset() {
	core.Master <- Packet{Msg: Reset}
}

// Change print server.
func (core *Core) SendServer(target dispatch.Target) {
	core.Master <- Packet{Msg: SetServer, Target: target}
}

// Apply printer settings, server and spool directory from a reloaded
// configuration.
func (core *Core) SendReload(cfg printer.Config, target dispatch.Target, spool string) {
	core.Master <- Packet{Msg: Reload, Printer: cfg, Target: target, Spool: spool}
}

// Ask loop for status.
func (core *Core) SendStatus() string {
	return core.status(nil)
}

func (core *Core) status(options []*command.CmdOption) string {
	reply := make(chan string, 1)
	select {
	case core.Master <- Packet{Msg: Status, Options: options, Reply: reply}:
	case <-time.After(time.Second):
		return "bus loop not responding\n"
	}
	select {
	case s := <-reply:
		return s
	case <-time.After(time.Second):
		return "bus loop not responding\n"
	}
}

// Process a packet sent to the bus loop.
func (core *Core) processPacket(packet Packet) {
	switch packet.Msg {
	case Start:
		core.running = true
	case Stop:
		core.running = false
		if core.release != nil {
			core.release()
		}
	case Reset:
		core.prn.Reset()
		core.waiting = false
		slog.Info("Printer reset", "device", core.prn.Address())
	case SetServer:
		core.disp.SetTarget(packet.Target)
	case Status:
		if packet.Reply != nil {
			packet.Reply <- core.show(packet.Options)
		}
	case Reload:
		core.prn.SetConfig(packet.Printer)
		core.disp.SetTarget(packet.Target)
		core.disp.SetSpool(packet.Spool)
		slog.Info("Configuration reloaded", "server", packet.Target.String(), "spool", packet.Spool)
	case Configure:
		err := core.configure(packet.Options)
		if packet.Err != nil {
			packet.Err <- err
		}
	}
}

// Status text, options pick the sections.
func (core *Core) show(options []*command.CmdOption) string {
	want := map[string]bool{}
	for _, opt := range options {
		want[opt.Name] = true
	}
	all := len(want) == 0
	str := ""
	if all || want["printer"] {
		state := "online"
		if !core.running {
			state = "offline"
		}
		str += fmt.Sprintf("%s printer %s\n", state, core.prn.Show())
	}
	if all || want["bus"] {
		str += fmt.Sprintf("bus: %s errors=%d\n", core.sess.Show(), core.stats.Errors)
	}
	if all || want["dispatch"] {
		ds := core.disp.Stats()
		str += fmt.Sprintf("dispatch: server=%s spool=%q queued=%d sent=%d spooled=%d failed=%d submitted=%d refused=%d\n",
			core.disp.Target(), core.disp.Spool(), core.disp.Queued(), ds.Sent, ds.Spooled, ds.Failed,
			core.stats.Submitted, core.stats.Refused)
	}
	return str
}
