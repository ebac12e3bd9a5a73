/*
 * IECPrint - Serial bus session test cases.
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

package session

import (
	"bytes"
	"testing"

	"github.com/rcornwell/iecprint/emu/iecbus"
	"github.com/rcornwell/iecprint/emu/printer"
	"github.com/rcornwell/iecprint/emu/simbus"
)

const devAddr = 4

type rig struct {
	bus  *simbus.Bus
	host *simbus.Host
	sess *Session
	prn  *printer.Printer
}

func newRig(t *testing.T) *rig {
	t.Helper()
	bus := simbus.New()
	host := bus.NewHost()
	drv := iecbus.NewDriver(bus.Lines(), bus.Clock(), nil)
	parser, err := iecbus.NewParser(drv, devAddr)
	if err != nil {
		t.Fatalf("Unable to create parser: %v", err)
	}
	prn := printer.New(devAddr, bus.Clock(), printer.DefaultConfig())
	return &rig{bus: bus, host: host, sess: New(parser, prn), prn: prn}
}

// Run handler until host script is finished, return the non idle outcomes.
func (r *rig) run(t *testing.T) []iecbus.ATNCheck {
	t.Helper()
	got := []iecbus.ATNCheck{}
	for range 200000 {
		if r.host.Done() {
			return got
		}
		ret := r.sess.Handler()
		if ret != iecbus.ATNIdle {
			got = append(got, ret)
		}
	}
	t.Fatalf("Host script did not finish")
	return got
}

func (r *rig) checkHost(t *testing.T) {
	t.Helper()
	for _, err := range r.host.Errors() {
		t.Errorf("Host error: %v", err)
	}
}

// Run handler for an amount of virtual time.
func (r *rig) idle(us uint64) {
	start := r.bus.Now()
	for r.bus.Now()-start < us {
		r.sess.Handler()
	}
}

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('A' + i%26)
	}
	return data
}

// A single segment ended by EOI is one job.
func TestSessionEOIJob(t *testing.T) {
	r := newRig(t)
	data := pattern(150)
	r.host.Print(devAddr, 4, data, true, true)
	got := r.run(t)
	r.checkHost(t)

	if len(got) != 1 || got[0] != iecbus.ATNCmdListen {
		t.Errorf("Outcomes expected one listen got %v", got)
	}
	if !r.prn.IsJobActive() {
		t.Fatalf("Job not completed")
	}
	if !bytes.Equal(r.prn.Job(), data) {
		t.Errorf("Job data mismatch, got %d bytes", len(r.prn.Job()))
	}
	if r.sess.Stats().Received != 150 {
		t.Errorf("Received count expected 150 got %d", r.sess.Stats().Received)
	}

	r.prn.JobHandled()
	if r.prn.IsJobActive() || r.prn.Pending() != 0 {
		t.Errorf("JobHandled did not clear job")
	}
}

// Short segment followed by unlisten is printed after the guard time.
func TestSessionGuard(t *testing.T) {
	r := newRig(t)
	r.host.Print(devAddr, 4, []byte("ABC"), false, true)
	r.run(t)
	r.checkHost(t)

	if r.prn.IsJobActive() {
		t.Fatalf("Job completed before guard")
	}
	if r.prn.State() != printer.StateAwaitingContinuation {
		t.Errorf("State expected awaiting got %s", r.prn.State())
	}
	r.idle(1900 * 1000)
	if r.prn.IsJobActive() {
		t.Errorf("Guard expired early")
	}
	r.idle(200 * 1000)
	if !r.prn.IsJobActive() {
		t.Fatalf("Guard did not complete job")
	}
	if string(r.prn.Job()) != "ABC" {
		t.Errorf("Job expected ABC got %q", r.prn.Job())
	}

	// Further polling does not make another job.
	r.prn.JobHandled()
	r.idle(3000 * 1000)
	if r.prn.IsJobActive() || r.prn.Stats().Jobs != 1 {
		t.Errorf("Guard fired twice, jobs %d", r.prn.Stats().Jobs)
	}
}

// Program that reopens the channel between lines produces one job.
func TestSessionReopen(t *testing.T) {
	r := newRig(t)
	r.host.Open(devAddr, 4, nil)
	r.host.Print(devAddr, 4, pattern(40), false, true)
	r.host.Open(devAddr, 4, nil)
	r.host.Print(devAddr, 4, pattern(20), false, true)
	r.host.Close(devAddr, 4)
	got := r.run(t)
	r.checkHost(t)

	cmds := 0
	for _, ret := range got {
		if ret == iecbus.ATNCmdStr {
			cmds++
		}
	}
	if cmds != 3 {
		t.Errorf("Expected 3 commands got %d: %v", cmds, got)
	}
	if !r.prn.IsJobActive() {
		t.Fatalf("Close did not complete job")
	}
	want := append(pattern(40), pattern(20)...)
	if !bytes.Equal(r.prn.Job(), want) {
		t.Errorf("Job expected %d bytes got %d", len(want), len(r.prn.Job()))
	}
	if r.prn.Stats().Jobs != 1 {
		t.Errorf("Expected one job got %d", r.prn.Stats().Jobs)
	}
	if r.prn.Channel() != printer.NoChannel {
		t.Errorf("Channel still open %d", r.prn.Channel())
	}
}

// Host stalls in the middle of a byte.
func TestSessionTimeout(t *testing.T) {
	r := newRig(t)
	r.host.Listen(devAddr, iecbus.CodeData|4)
	r.host.SendBytes([]byte("OK"), false)
	r.host.Stall(3, 200*1000)
	r.host.Set(iecbus.Clock, false)

	start := r.bus.Now()
	got := r.run(t)
	if len(got) != 1 || got[0] != iecbus.ATNError {
		t.Errorf("Outcomes expected one error got %v", got)
	}
	if r.bus.Now()-start < 130*1000 {
		t.Errorf("Error reported before timeout")
	}
	if r.bus.DeviceAsserts(iecbus.Clock) || r.bus.DeviceAsserts(iecbus.Data) {
		t.Errorf("Device holds lines after timeout")
	}
	if r.prn.Pending() != 2 {
		t.Errorf("Partial byte stored, pending %d", r.prn.Pending())
	}
	if r.sess.Stats().Errors != 1 {
		t.Errorf("Error count expected 1 got %d", r.sess.Stats().Errors)
	}
}

// Data for another device is ignored.
func TestSessionOtherDevice(t *testing.T) {
	r := newRig(t)
	r.host.Print(8, 4, []byte("NOT FOR THIS PRINTER"), true, true)
	got := r.run(t)

	if len(got) != 0 {
		t.Errorf("Outcomes expected none got %v", got)
	}
	if r.prn.Pending() != 0 || r.prn.IsJobActive() {
		t.Errorf("Printer took data for other device")
	}
	if r.prn.State() != printer.StateIdle {
		t.Errorf("State expected idle got %s", r.prn.State())
	}
}

// Jobs ended by EOI must reach the minimum size.
func TestSessionMinimum(t *testing.T) {
	r := newRig(t)
	r.host.Print(devAddr, 4, pattern(9), true, true)
	r.host.Print(devAddr, 4, pattern(10), true, true)
	r.run(t)
	r.checkHost(t)

	if !r.prn.IsJobActive() || len(r.prn.Job()) != 10 {
		t.Errorf("Expected 10 byte job got %d", len(r.prn.Job()))
	}
	if r.prn.Stats().Skipped != 1 {
		t.Errorf("Expected one skipped job got %d", r.prn.Stats().Skipped)
	}
}

// Reading status channel.
func TestSessionStatus(t *testing.T) {
	r := newRig(t)
	r.host.Talk(devAddr, iecbus.CodeData|15)
	r.host.ReceiveBytes(6)
	r.host.Untalk()
	r.host.Talk(devAddr, iecbus.CodeData|4)
	r.host.ReceiveBytes(1)
	r.host.Untalk()
	got := r.run(t)
	r.checkHost(t)

	if len(got) != 2 || got[0] != iecbus.ATNCmdTalk || got[1] != iecbus.ATNCmdTalk {
		t.Errorf("Outcomes expected two talks got %v", got)
	}
	recv := r.host.Received()
	if string(recv) != "00,OK\r\x00" {
		t.Errorf("Host received %q", recv)
	}
	eoi := r.host.ReceivedEOI()
	for i, e := range eoi {
		last := i == 5 || i == 6
		if e != last {
			t.Errorf("Byte %d EOI %v", i, e)
		}
	}
}

// Check the device has let go of both lines.
func (r *rig) checkReleased(t *testing.T) {
	t.Helper()
	if r.bus.DeviceAsserts(iecbus.Clock) || r.bus.DeviceAsserts(iecbus.Data) {
		t.Errorf("Device holds lines")
	}
}

// A name given with OPEN is printed when the channel is closed.
func TestSessionOpenData(t *testing.T) {
	r := newRig(t)
	r.host.Open(devAddr, 1, []byte("HELLO PRINTER"))
	r.host.Close(devAddr, 1)
	got := r.run(t)
	r.checkHost(t)

	if len(got) != 2 || got[0] != iecbus.ATNCmdStr || got[1] != iecbus.ATNCmdStr {
		t.Errorf("Outcomes expected two commands got %v", got)
	}
	if !r.prn.IsJobActive() {
		t.Fatalf("Close did not complete job")
	}
	if string(r.prn.Job()) != "HELLO PRINTER" {
		t.Errorf("Job expected HELLO PRINTER got %q", r.prn.Job())
	}
	r.checkReleased(t)
}

// With names kept the OPEN string makes no job.
func TestSessionOpenName(t *testing.T) {
	r := newRig(t)
	cfg := printer.DefaultConfig()
	cfg.OpenName = true
	r.prn.SetConfig(cfg)
	r.host.Open(devAddr, 1, []byte("HELLO PRINTER"))
	r.host.Close(devAddr, 1)
	r.run(t)
	r.checkHost(t)

	if r.prn.IsJobActive() || r.prn.Pending() != 0 {
		t.Errorf("Open name printed, pending %d", r.prn.Pending())
	}
	if r.prn.Name() != "HELLO PRINTER" {
		t.Errorf("Name got %q", r.prn.Name())
	}
}

// Smallest possible segment goes all the way through.
func TestSessionSingleByte(t *testing.T) {
	r := newRig(t)
	cfg := printer.DefaultConfig()
	cfg.MinJob = 1
	r.prn.SetConfig(cfg)
	r.host.Print(devAddr, 4, []byte{'Q'}, true, true)
	got := r.run(t)
	r.checkHost(t)

	if len(got) != 1 || got[0] != iecbus.ATNCmdListen {
		t.Errorf("Outcomes expected one listen got %v", got)
	}
	if !r.prn.IsJobActive() || string(r.prn.Job()) != "Q" {
		t.Errorf("Job expected Q got %q", r.prn.Job())
	}
	if r.sess.Stats().Received != 1 {
		t.Errorf("Received count expected 1 got %d", r.sess.Stats().Received)
	}
	r.checkReleased(t)
}

// Segment exactly filling the job buffer loses nothing, one more byte does.
func TestSessionJobLimit(t *testing.T) {
	r := newRig(t)
	cfg := printer.DefaultConfig()
	cfg.MaxJob = 64
	r.prn.SetConfig(cfg)
	r.host.Print(devAddr, 4, pattern(64), true, true)
	r.run(t)
	r.checkHost(t)

	if !bytes.Equal(r.prn.Job(), pattern(64)) {
		t.Errorf("Job expected 64 bytes got %d", len(r.prn.Job()))
	}
	if r.prn.Stats().Overflow != 0 {
		t.Errorf("Overflow at limit: %d", r.prn.Stats().Overflow)
	}
	r.prn.JobHandled()

	r.host.Print(devAddr, 4, pattern(65), true, true)
	r.run(t)
	r.checkHost(t)
	if !bytes.Equal(r.prn.Job(), pattern(64)) {
		t.Errorf("Job expected 64 bytes got %d", len(r.prn.Job()))
	}
	if r.prn.Stats().Overflow != 1 {
		t.Errorf("Overflow count expected 1 got %d", r.prn.Stats().Overflow)
	}
	if r.sess.Stats().Received != 129 {
		t.Errorf("Received count expected 129 got %d", r.sess.Stats().Received)
	}
}

// Host signals EOI, sees the acknowledge and then never sends the byte.
func TestSessionEOITimeout(t *testing.T) {
	r := newRig(t)
	r.host.Listen(devAddr, iecbus.CodeData|4)
	r.host.SendBytes([]byte("OK"), false)
	r.host.Set(iecbus.Clock, false)
	r.host.Wait(iecbus.Data, true, 200*1000, "listener not ready")
	r.host.Wait(iecbus.Data, false, 1000, "no eoi acknowledge")
	r.host.Wait(iecbus.Data, true, 1000, "eoi acknowledge stuck")
	r.host.Delay(300 * 1000)

	start := r.bus.Now()
	got := r.run(t)
	r.checkHost(t)
	if len(got) != 1 || got[0] != iecbus.ATNError {
		t.Errorf("Outcomes expected one error got %v", got)
	}
	if r.bus.Now()-start < 130*1000 {
		t.Errorf("Error reported before timeout")
	}
	r.checkReleased(t)
	if r.prn.Pending() != 2 || r.prn.IsJobActive() {
		t.Errorf("Partial byte stored, pending %d", r.prn.Pending())
	}
	if r.sess.Stats().Received != 2 || r.sess.Stats().Errors != 1 {
		t.Errorf("Stats %s", r.sess.Show())
	}
}

// Host asks for status and then never takes a byte.
func TestSessionTalkTimeout(t *testing.T) {
	r := newRig(t)
	r.host.Talk(devAddr, iecbus.CodeData|15)
	r.host.Delay(300 * 1000)
	r.host.Set(iecbus.Data, false)

	start := r.bus.Now()
	got := r.run(t)
	r.checkHost(t)
	if len(got) != 1 || got[0] != iecbus.ATNError {
		t.Errorf("Outcomes expected one error got %v", got)
	}
	if r.bus.Now()-start < 130*1000 {
		t.Errorf("Error reported before timeout")
	}
	r.checkReleased(t)
	if len(r.host.Received()) != 0 {
		t.Errorf("Host received %q", r.host.Received())
	}
	if r.sess.Stats().Sent != 0 || r.sess.Stats().Errors != 1 {
		t.Errorf("Stats %s", r.sess.Show())
	}
}
