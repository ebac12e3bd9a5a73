/*
 * IECPrint - Serial bus printer.
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

/*
   The printer collects everything sent to it on a data channel into one
   job. A job ends when the channel is closed, when the host sends EOI on
   a large enough job, or when the host unlistens and does not come back
   within the guard time. Programs like to print one line per OPEN/PRINT#
   cycle so the guard keeps those together.

*/

package printer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rcornwell/iecprint/emu/iecbus"
	"github.com/rcornwell/iecprint/util/debug"
)

const (
	// Debug options.
	debugCmd = 1 << iota
	debugData
	debugDetail
)

var debugOption = map[string]int{
	"CMD":    debugCmd,
	"DATA":   debugData,
	"DETAIL": debugDetail,
}

// NoChannel is reported when no channel is open.
const NoChannel uint8 = 0xff

// Status channel of the device.
const StatusChannel uint8 = 15

// Reply to a read of the status channel.
var statusOK = []byte("00,OK\r")

// What to do when the host unlistens after sending data.
type UnlistenPolicy int

const (
	UnlistenGuard    UnlistenPolicy = iota // Wait for more data for guard time.
	UnlistenFinalize                       // Job ends now.
	UnlistenIgnore                         // Only CLOSE or EOI end a job.
)

var policyNames = map[string]UnlistenPolicy{
	"GUARD":    UnlistenGuard,
	"FINALIZE": UnlistenFinalize,
	"IGNORE":   UnlistenIgnore,
}

func (p UnlistenPolicy) String() string {
	for k, v := range policyNames {
		if v == p {
			return strings.ToLower(k)
		}
	}
	return "???"
}

var ErrPolicy = errors.New("unlisten policy must be guard, finalize or ignore")

// Convert name to unlisten policy.
func ParsePolicy(name string) (UnlistenPolicy, error) {
	p, ok := policyNames[strings.ToUpper(name)]
	if !ok {
		return UnlistenGuard, fmt.Errorf("%w: %s", ErrPolicy, name)
	}
	return p, nil
}

// Config holds the end of job rules.
type Config struct {
	Guard         time.Duration  // Wait for more data after unlisten.
	MinJob        int            // Smaller jobs ended by EOI are dropped.
	MaxJob        int            // Limit of job buffer.
	Unlisten      UnlistenPolicy // Action on unlisten.
	FinalizeOnEOI bool           // EOI ends a job.
	OpenName      bool           // OPEN string is a name, not print data.
}

// Default job rules.
func DefaultConfig() Config {
	return Config{
		Guard:         2000 * time.Millisecond,
		MinJob:        10,
		MaxJob:        1024 * 1024,
		Unlisten:      UnlistenGuard,
		FinalizeOnEOI: true,
	}
}

// State of printer as shown to operator.
type State int

const (
	StateIdle State = iota
	StateChannelOpen
	StateReceiving
	StateAwaitingContinuation
	StateJobReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChannelOpen:
		return "channel open"
	case StateReceiving:
		return "receiving"
	case StateAwaitingContinuation:
		return "awaiting continuation"
	case StateJobReady:
		return "job ready"
	}
	return "???"
}

// Job counters.
type Stats struct {
	Jobs     uint64 // Jobs completed.
	Skipped  uint64 // Short jobs dropped.
	Overflow uint64 // Bytes lost due to full buffer.
	Bytes    uint64 // Bytes received on data channels.
}

// Clock gives current time in microseconds.
type Clock interface {
	Now() uint64
}

type Printer struct {
	addr        uint8  // Device number.
	clock       Clock  // Time source for guard.
	cfg         Config // End of job rules.
	channelOpen bool   // Channel opened by OPEN.
	channel     uint8  // Current channel.
	listening   bool   // Addressed as listener.
	secondary   uint8  // Secondary of last listen.
	jobActive   bool   // Job complete, waiting for hand off.
	awaiting    bool   // Guard running.
	lastData    uint64 // Time of last byte or unlisten on data channel.
	buffer      []byte // Job data.
	name        []byte // Name given on OPEN.
	reply       []byte // Data for talk.
	full        bool   // Job lost data.
	jobChannel  uint8  // Channel job was printed on.
	stats       Stats
	debugMsk    int // Debug option mask.
}

// Create printer at device number.
func New(addr uint8, clock Clock, cfg Config) *Printer {
	if cfg.MaxJob <= 0 {
		cfg.MaxJob = DefaultConfig().MaxJob
	}
	return &Printer{addr: addr, clock: clock, cfg: cfg, channel: NoChannel}
}

// Device number.
func (p *Printer) Address() uint8 {
	return p.addr
}

// Current job rules.
func (p *Printer) Config() Config {
	return p.cfg
}

// Change job rules, takes effect on next event.
func (p *Printer) SetConfig(cfg Config) {
	if cfg.MaxJob <= 0 {
		cfg.MaxJob = p.cfg.MaxJob
	}
	p.cfg = cfg
}

// Enable debug options.
func (p *Printer) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("printer debug option invalid: " + opt)
	}
	p.debugMsk |= flag
	return nil
}

// Check guard timer. Returns true if a job was completed.
func (p *Printer) Poll() bool {
	if !p.awaiting {
		return false
	}
	elapsed := p.clock.Now() - p.lastData
	if elapsed <= uint64(p.cfg.Guard.Microseconds()) {
		return false
	}
	p.awaiting = false
	if p.jobActive || len(p.buffer) == 0 {
		return false
	}
	p.finalize("guard")
	return true
}

// Addressed as listener.
func (p *Printer) Listen(secondary uint8) {
	debug.DebugDevf(p.addr, p.debugMsk, debugCmd, "listen %02x", secondary)
	p.listening = true
	p.secondary = secondary
	ch := iecbus.Channel(secondary)

	switch iecbus.Command(secondary) {
	case iecbus.CodeOpen:
		p.channelOpen = true
		p.channel = ch
		p.awaiting = false
		p.name = p.name[:0]
		slog.Debug("Printer channel open", "device", p.addr, "channel", ch)

	case iecbus.CodeClose:
		if len(p.buffer) != 0 && !p.jobActive {
			p.finalize("close")
		}
		p.awaiting = false
		p.channelOpen = false
		p.channel = NoChannel
		slog.Debug("Printer channel closed", "device", p.addr, "channel", ch)

	case iecbus.CodeData:
		p.awaiting = false
		p.channel = ch
	}
}

// Listener released.
func (p *Printer) Unlisten() {
	if !p.listening {
		return
	}
	debug.DebugDevf(p.addr, p.debugMsk, debugCmd, "unlisten %02x", p.secondary)
	p.listening = false

	switch iecbus.Command(p.secondary) {
	case iecbus.CodeData:
	case iecbus.CodeOpen:
		if p.cfg.OpenName {
			return
		}
	default:
		return
	}
	if p.jobActive || len(p.buffer) == 0 {
		return
	}

	switch p.cfg.Unlisten {
	case UnlistenGuard:
		p.awaiting = true
		p.lastData = p.clock.Now()
	case UnlistenFinalize:
		p.finalize("unlisten")
	case UnlistenIgnore:
	}
}

// Addressed as talker.
func (p *Printer) Talk(secondary uint8) {
	debug.DebugDevf(p.addr, p.debugMsk, debugCmd, "talk %02x", secondary)
	p.reply = p.reply[:0]
	if iecbus.Channel(secondary) == StatusChannel {
		p.reply = append(p.reply, statusOK...)
	}
}

// Talker released.
func (p *Printer) Untalk() {
	debug.DebugDevf(p.addr, p.debugMsk, debugCmd, "untalk")
	p.reply = p.reply[:0]
}

// Will take data while addressed as listener.
func (p *Printer) CanWrite() int8 {
	if p.listening {
		return 1
	}
	return 0
}

// Receive one byte from host. Bytes of a command string are print data
// too, but never end a job.
func (p *Printer) Write(data uint8, eoi bool) {
	switch iecbus.Command(p.secondary) {
	case iecbus.CodeData:
	case iecbus.CodeOpen:
		if p.cfg.OpenName {
			if len(p.name) < iecbus.CmdMaxLength {
				p.name = append(p.name, data)
			}
			if eoi {
				slog.Debug("Printer open name", "device", p.addr, "name", string(p.name))
			}
			return
		}
		eoi = false
	default:
		eoi = false
	}

	debug.DebugDevf(p.addr, p.debugMsk, debugData, "data %02x eoi=%v", data, eoi)
	p.stats.Bytes++
	if len(p.buffer) < p.cfg.MaxJob {
		p.buffer = append(p.buffer, data)
	} else {
		if !p.full {
			slog.Warn("Print job buffer full, data lost", "device", p.addr, "limit", p.cfg.MaxJob)
			p.full = true
		}
		p.stats.Overflow++
	}
	p.awaiting = false
	p.lastData = p.clock.Now()

	if !eoi || !p.cfg.FinalizeOnEOI || p.jobActive {
		return
	}
	if len(p.buffer) >= p.cfg.MinJob {
		p.finalize("eoi")
		return
	}
	slog.Info("Print job skipped, too small", "device", p.addr, "bytes", len(p.buffer))
	p.stats.Skipped++
	p.buffer = nil
	p.full = false
}

// Bytes left to send.
func (p *Printer) CanRead() int8 {
	switch len(p.reply) {
	case 0:
		return 0
	case 1:
		return 1
	}
	return 2
}

// Next byte to send.
func (p *Printer) Read() uint8 {
	if len(p.reply) == 0 {
		return 0
	}
	b := p.reply[0]
	p.reply = p.reply[1:]
	return b
}

// Return printer to power on state, pending job is lost.
func (p *Printer) Reset() {
	if p.jobActive || len(p.buffer) != 0 {
		slog.Warn("Printer reset dropped job", "device", p.addr, "bytes", len(p.buffer))
	}
	p.channelOpen = false
	p.channel = NoChannel
	p.listening = false
	p.secondary = 0
	p.jobActive = false
	p.awaiting = false
	p.buffer = nil
	p.full = false
	p.name = nil
	p.reply = nil
}

// Mark job complete.
func (p *Printer) finalize(reason string) {
	p.jobActive = true
	p.awaiting = false
	p.jobChannel = p.channel
	p.stats.Jobs++
	slog.Info("Print job ready", "device", p.addr, "bytes", len(p.buffer), "reason", reason)
}

// Is a completed job waiting.
func (p *Printer) IsJobActive() bool {
	return p.jobActive
}

// Data of the completed job, valid until JobHandled.
func (p *Printer) Job() []byte {
	if !p.jobActive {
		return nil
	}
	return p.buffer
}

// Job was taken, start a new one.
func (p *Printer) JobHandled() {
	p.jobActive = false
	p.awaiting = false
	p.buffer = nil
	p.full = false
}

// Name given on the last OPEN when names are kept.
func (p *Printer) Name() string {
	return string(p.name)
}

// Current channel or NoChannel.
func (p *Printer) Channel() uint8 {
	if !p.channelOpen {
		return NoChannel
	}
	return p.channel
}

// Channel of the completed job.
func (p *Printer) JobChannel() uint8 {
	return p.jobChannel
}

// Bytes in job buffer.
func (p *Printer) Pending() int {
	return len(p.buffer)
}

// Job counters.
func (p *Printer) Stats() Stats {
	return p.stats
}

// Current state.
func (p *Printer) State() State {
	switch {
	case p.jobActive:
		return StateJobReady
	case p.awaiting:
		return StateAwaitingContinuation
	case p.listening && iecbus.Command(p.secondary) == iecbus.CodeData:
		return StateReceiving
	case p.channelOpen:
		return StateChannelOpen
	}
	return StateIdle
}

// Show printer status.
func (p *Printer) Show() string {
	str := fmt.Sprintf("%d: %s", p.addr, p.State())
	if p.channelOpen {
		str += fmt.Sprintf(" channel=%d", p.channel)
	}
	str += fmt.Sprintf(" pending=%d jobs=%d skipped=%d overflow=%d", len(p.buffer),
		p.stats.Jobs, p.stats.Skipped, p.stats.Overflow)
	str += fmt.Sprintf(" unlisten=%s guard=%s minjob=%d", p.cfg.Unlisten, p.cfg.Guard, p.cfg.MinJob)
	if p.cfg.OpenName {
		str += " openname"
	}
	return str
}
