/*
 * IECPrint - Serial bus session handler.
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
	"errors"
	"fmt"
	"log/slog"

	dev "github.com/rcornwell/iecprint/emu/device"
	"github.com/rcornwell/iecprint/emu/iecbus"
	"github.com/rcornwell/iecprint/util/debug"
)

const (
	// Debug options.
	debugCmd = 1 << iota
	debugData
)

var debugOption = map[string]int{
	"CMD":  debugCmd,
	"DATA": debugData,
}

// Limit of attention sequences chained by the host asserting attention
// during data in one handler call.
const maxChain = 16

// Outcome counters.
type Stats struct {
	Cycles   uint64 // Handler calls.
	Polled   uint64 // Cycles used by device poll.
	Idle     uint64
	Errors   uint64
	Commands uint64
	Listens  uint64
	Talks    uint64
	Received uint64 // Data bytes received.
	Sent     uint64 // Data bytes sent.
}

// Session connects one device to the bus.
type Session struct {
	parser   *iecbus.Parser
	drv      *iecbus.Driver
	dev      dev.Device
	cmd      iecbus.ATNCmd
	stats    Stats
	debugMsk int
}

// Create session for device on parser.
func New(parser *iecbus.Parser, device dev.Device) *Session {
	return &Session{parser: parser, drv: parser.Driver(), dev: device}
}

// Enable debug options.
func (s *Session) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("bus debug option invalid: " + opt)
	}
	s.debugMsk |= flag
	return nil
}

// Return counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// Device served by session.
func (s *Session) Device() dev.Device {
	return s.dev
}

// Run one bus cycle: poll the device, then handle whatever attention
// sequence the host has started.
func (s *Session) Handler() iecbus.ATNCheck {
	s.stats.Cycles++
	if s.dev.Poll() {
		s.stats.Polled++
		return iecbus.ATNIdle
	}

	ret := s.parser.CheckATN(&s.cmd)
	for range maxChain {
		var next uint8
		var pending bool

		s.trace(ret)
		switch ret {
		case iecbus.ATNError:
			s.stats.Errors++
			slog.Debug("Bus error", "device", s.parser.Address(), "state", s.drv.State())
			return ret

		case iecbus.ATNIdle:
			s.stats.Idle++
			switch s.cmd.Code {
			case iecbus.CodeUnlisten:
				s.dev.Unlisten()
			case iecbus.CodeUntalk:
				s.dev.Untalk()
			}
			return ret

		case iecbus.ATNCmdStr:
			s.stats.Commands++
			s.dev.Listen(s.cmd.Code)
			str := s.cmd.Bytes()
			for i, b := range str {
				s.dev.Write(b, i == len(str)-1)
			}
			// Command strings always end with unlisten.
			s.dev.Unlisten()
			return ret

		case iecbus.ATNCmdListen:
			s.stats.Listens++
			s.dev.Listen(s.cmd.Code)
			next, pending = s.receive()
			if s.drv.State()&iecbus.StatusError != 0 {
				s.stats.Errors++
				return iecbus.ATNError
			}

		case iecbus.ATNCmdTalk:
			s.stats.Talks++
			s.dev.Talk(s.cmd.Code)
			if !s.send() {
				s.stats.Errors++
				return iecbus.ATNError
			}
		}

		if !pending {
			return ret
		}
		// Host asserted attention in the middle of our data.
		ret = s.parser.ContinueATN(next, &s.cmd)
	}
	slog.Warn("Too many chained attention sequences", "device", s.parser.Address())
	return ret
}

// Receive data until EOI, attention or the device refuses. Returns the
// select byte when attention interrupted the data.
func (s *Session) receive() (uint8, bool) {
	for s.dev.CanWrite() > 0 {
		b := s.drv.ReceiveByte()
		st := s.drv.State()
		if (st & iecbus.StatusError) != 0 {
			return 0, false
		}
		if (st & iecbus.StatusATN) != 0 {
			return b, true
		}
		s.stats.Received++
		eoi := (st & iecbus.StatusEOI) != 0
		debug.DebugDevf(s.parser.Address(), s.debugMsk, debugData, "recv %02x eoi=%v", b, eoi)
		s.dev.Write(b, eoi)
		if eoi {
			break
		}
	}
	return 0, false
}

// Send what the device has, nothing to send is a single zero with EOI.
func (s *Session) send() bool {
	if s.dev.CanRead() == 0 {
		if !s.drv.SendByte(0, true) {
			return false
		}
		return s.drv.UndoTurnAround()
	}
	for {
		n := s.dev.CanRead()
		if n == 0 {
			break
		}
		b := s.dev.Read()
		if !s.drv.SendByte(b, n == dev.ReadLast) {
			return false
		}
		s.stats.Sent++
		if n == dev.ReadLast {
			break
		}
	}
	return s.drv.UndoTurnAround()
}

func (s *Session) trace(ret iecbus.ATNCheck) {
	debug.DebugDevf(s.parser.Address(), s.debugMsk, debugCmd, "atn %s code %02x len %d",
		ret, s.cmd.Code, s.cmd.StrLen)
}

// Show counters.
func (s *Session) Show() string {
	st := s.stats
	return fmt.Sprintf("cycles=%d errors=%d commands=%d listens=%d talks=%d received=%d sent=%d",
		st.Cycles, st.Errors, st.Commands, st.Listens, st.Talks, st.Received, st.Sent)
}
