/*
 * IECPrint - Attention parser test cases.
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

package iecbus_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rcornwell/iecprint/emu/iecbus"
	"github.com/rcornwell/iecprint/emu/simbus"
)

const devAddr = 4

func newParser(t *testing.T) (*simbus.Bus, *simbus.Host, *iecbus.Parser) {
	t.Helper()
	bus, host, drv := newDriver()
	p, err := iecbus.NewParser(drv, devAddr)
	if err != nil {
		t.Fatalf("Unable to create parser: %v", err)
	}
	return bus, host, p
}

// Poll until something happens.
func waitATN(t *testing.T, p *iecbus.Parser, cmd *iecbus.ATNCmd) iecbus.ATNCheck {
	t.Helper()
	for range 1000 {
		r := p.CheckATN(cmd)
		if r != iecbus.ATNIdle || cmd.Code != 0 {
			return r
		}
	}
	t.Fatalf("No attention sequence seen")
	return iecbus.ATNIdle
}

func TestParserAddress(t *testing.T) {
	_, _, drv := newDriver()
	if _, err := iecbus.NewParser(drv, 31); !errors.Is(err, iecbus.ErrBadAddress) {
		t.Errorf("Address 31 should be refused got %v", err)
	}
	p, err := iecbus.NewParser(drv, 30)
	if err != nil || p.Address() != 30 {
		t.Errorf("Address 30 should be accepted got %v", err)
	}
}

// Idle bus takes the settle delay and nothing else.
func TestParserIdle(t *testing.T) {
	bus, _, p := newParser(t)
	var cmd iecbus.ATNCmd
	start := bus.Now()
	if r := p.CheckATN(&cmd); r != iecbus.ATNIdle {
		t.Errorf("Idle bus returned %s", r)
	}
	if bus.Now()-start < 100 {
		t.Errorf("Idle check did not wait settle time")
	}
	if cmd.Code != 0 || cmd.StrLen != 0 {
		t.Errorf("Idle check changed command %02x %d", cmd.Code, cmd.StrLen)
	}
}

// Accept of the last byte is held through the settle delay.
func TestParserIdleHoldsAccept(t *testing.T) {
	bus, _, p := newParser(t)
	bus.Lines().Write(iecbus.Data, true)
	held := false
	bus.Events().Add(p, func(_ int) { held = bus.DeviceAsserts(iecbus.Data) }, 50, 0)
	var cmd iecbus.ATNCmd
	if r := p.CheckATN(&cmd); r != iecbus.ATNIdle {
		t.Errorf("Idle bus returned %s", r)
	}
	if !held {
		t.Errorf("Data released before settle delay")
	}
	if bus.DeviceAsserts(iecbus.Data) || bus.DeviceAsserts(iecbus.Clock) {
		t.Errorf("Lines held after idle check")
	}
}

// Listen on data channel.
func TestParserListenData(t *testing.T) {
	bus, host, p := newParser(t)
	host.Listen(devAddr, iecbus.CodeData|4)

	var cmd iecbus.ATNCmd
	r := waitATN(t, p, &cmd)
	if r != iecbus.ATNCmdListen {
		t.Errorf("Listen expected listen got %s", r)
	}
	if cmd.Code != 0x64 {
		t.Errorf("Listen code expected %02x got %02x", 0x64, cmd.Code)
	}
	// Host drops attention after the secondary.
	bus.Idle(1000)
	checkHost(t, host)
}

// Open with file name is a command string.
func TestParserOpenName(t *testing.T) {
	bus, host, p := newParser(t)
	host.Open(devAddr, 2, []byte("HELLO"))

	var cmd iecbus.ATNCmd
	r := waitATN(t, p, &cmd)
	if r != iecbus.ATNCmdStr {
		t.Errorf("Open expected cmd got %s", r)
	}
	if cmd.Code != 0xf2 {
		t.Errorf("Open code expected %02x got %02x", 0xf2, cmd.Code)
	}
	if !bytes.Equal(cmd.Bytes(), []byte("HELLO")) {
		t.Errorf("Open name expected HELLO got %q", cmd.Bytes())
	}
	if !bus.Level(iecbus.ATN) {
		t.Errorf("Command string returned while attention held")
	}
	bus.Idle(1000)
	checkHost(t, host)
}

// Close without string.
func TestParserClose(t *testing.T) {
	bus, host, p := newParser(t)
	host.Close(devAddr, 2)

	var cmd iecbus.ATNCmd
	r := waitATN(t, p, &cmd)
	if r != iecbus.ATNCmdStr {
		t.Errorf("Close expected cmd got %s", r)
	}
	if cmd.Code != 0xe2 || cmd.StrLen != 0 {
		t.Errorf("Close code %02x length %d", cmd.Code, cmd.StrLen)
	}
	if !bus.Level(iecbus.ATN) {
		t.Errorf("Close returned while attention held")
	}
	bus.Idle(1000)
	checkHost(t, host)
}

// Command string longer than buffer.
func TestParserOverflow(t *testing.T) {
	_, host, p := newParser(t)
	host.Open(devAddr, 2, bytes.Repeat([]byte{'A'}, iecbus.CmdMaxLength+1))

	var cmd iecbus.ATNCmd
	r := waitATN(t, p, &cmd)
	if r != iecbus.ATNError {
		t.Errorf("Overflow expected error got %s", r)
	}
}

// Sequence for another device.
func TestParserOtherDevice(t *testing.T) {
	bus, host, p := newParser(t)
	host.Print(8, 4, []byte("NOT FOR US"), true, true)

	var cmd iecbus.ATNCmd
	for range 10000 {
		if host.Done() {
			break
		}
		r := p.CheckATN(&cmd)
		if r != iecbus.ATNIdle {
			t.Fatalf("Other device returned %s", r)
		}
		if cmd.Code != 0 && cmd.Code != iecbus.CodeUnlisten {
			t.Errorf("Other device set code %02x", cmd.Code)
		}
	}
	if !host.Done() {
		t.Errorf("Host script did not finish")
	}
	if bus.DeviceAsserts(iecbus.Clock) || bus.DeviceAsserts(iecbus.Data) {
		t.Errorf("Device holds lines after foreign sequence")
	}
}

// Talk, send reply and untalk.
func TestParserTalk(t *testing.T) {
	bus, host, p := newParser(t)
	host.Talk(devAddr, iecbus.CodeData|15)
	host.ReceiveBytes(1)
	host.Untalk()

	var cmd iecbus.ATNCmd
	r := waitATN(t, p, &cmd)
	if r != iecbus.ATNCmdTalk {
		t.Fatalf("Talk expected talk got %s", r)
	}
	if cmd.Code != 0x6f {
		t.Errorf("Talk code expected %02x got %02x", 0x6f, cmd.Code)
	}
	if !bus.DeviceAsserts(iecbus.Clock) {
		t.Errorf("Device did not take clock after turn around")
	}

	drv := p.Driver()
	if !drv.SendByte(0x00, true) {
		t.Errorf("Talk reply failed")
	}
	if !drv.UndoTurnAround() {
		t.Errorf("Undo turn around failed")
	}

	r = waitATN(t, p, &cmd)
	if r != iecbus.ATNIdle || cmd.Code != iecbus.CodeUntalk {
		t.Errorf("Untalk expected idle/%02x got %s/%02x", iecbus.CodeUntalk, r, cmd.Code)
	}
	bus.Idle(1000)
	checkHost(t, host)
	if got := host.Received(); len(got) != 1 || got[0] != 0x00 {
		t.Errorf("Host received % x", got)
	}
}

// Attention in the middle of data continues with the select byte.
func TestParserContinue(t *testing.T) {
	bus, host, p := newParser(t)
	host.Print(devAddr, 4, []byte("AB"), false, true)

	var cmd iecbus.ATNCmd
	if r := waitATN(t, p, &cmd); r != iecbus.ATNCmdListen {
		t.Fatalf("Print expected listen got %s", r)
	}
	drv := p.Driver()
	got := []byte{}
	for {
		b := drv.ReceiveByte()
		st := drv.State()
		if (st & iecbus.StatusError) != 0 {
			t.Fatalf("Receive error")
		}
		if (st & iecbus.StatusATN) != 0 {
			if b != iecbus.CodeUnlisten {
				t.Errorf("Select byte expected %02x got %02x", iecbus.CodeUnlisten, b)
			}
			r := p.ContinueATN(b, &cmd)
			if r != iecbus.ATNIdle || cmd.Code != iecbus.CodeUnlisten {
				t.Errorf("Continue expected idle/%02x got %s/%02x", iecbus.CodeUnlisten, r, cmd.Code)
			}
			break
		}
		got = append(got, b)
	}
	if string(got) != "AB" {
		t.Errorf("Data expected AB got %q", got)
	}
	bus.Idle(1000)
	checkHost(t, host)
}
