/*
 * IECPrint - Attention sequence parser.
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

package iecbus

// CmdMaxLength is the capacity of a command string.
const CmdMaxLength = 40

// ATNCheck is the outcome of one attention cycle.
type ATNCheck int

const (
	ATNIdle      ATNCheck = iota // Nothing for us, or bus wide command.
	ATNError                     // Timeout or command overflow.
	ATNCmdStr                    // Command string ended by unlisten.
	ATNCmdListen                 // Caller must receive data now.
	ATNCmdTalk                   // Caller must send data now.
)

func (c ATNCheck) String() string {
	switch c {
	case ATNIdle:
		return "idle"
	case ATNError:
		return "error"
	case ATNCmdStr:
		return "cmd"
	case ATNCmdListen:
		return "listen"
	case ATNCmdTalk:
		return "talk"
	}
	return "???"
}

// ATNCmd holds what was received during one attention cycle.
type ATNCmd struct {
	Code   uint8               // Secondary address or bus wide code.
	Str    [CmdMaxLength]uint8 // Command string.
	StrLen int                 // Number of bytes in Str.
}

// Bytes returns the valid part of the command string.
func (cmd *ATNCmd) Bytes() []byte {
	return cmd.Str[:cmd.StrLen]
}

// Parser classifies attention sequences addressed to one device.
type Parser struct {
	drv     *Driver
	address uint8
}

// Create parser for device number.
func NewParser(drv *Driver, address uint8) (*Parser, error) {
	if address > MaxAddress {
		return nil, ErrBadAddress
	}
	return &Parser{drv: drv, address: address}, nil
}

// Device address parser answers to.
func (p *Parser) Address() uint8 {
	return p.address
}

// Driver under the parser.
func (p *Parser) Driver() *Driver {
	return p.drv
}

// Check for attention and process the sequence if there is one.
func (p *Parser) CheckATN(cmd *ATNCmd) ATNCheck {
	*cmd = ATNCmd{}
	lines := p.drv.lines

	if lines.Read(ATN) {
		// No attention. Hold an accept of the last byte long enough for
		// the talker to see it, then let the lines go.
		p.drv.clock.Sleep(timingATNDelay)
		p.drv.Release()
		return ATNIdle
	}

	// Attention is active, go to listener mode and get message.
	lines.Write(Data, true)
	lines.Write(Clock, false)
	p.drv.clock.Sleep(timingATNPre)

	// First byte is either listen, talk or a bus wide command.
	c := p.drv.ReceiveByte()
	if (p.drv.state & StatusError) != 0 {
		return ATNError
	}
	return p.process(c, cmd)
}

// Process an attention sequence whose first byte was already received,
// this happens when the host asserts attention in the middle of a data
// segment.
func (p *Parser) ContinueATN(first uint8, cmd *ATNCmd) ATNCheck {
	*cmd = ATNCmd{}
	return p.process(first, cmd)
}

// Process the attention sequence following the device select byte.
func (p *Parser) process(c uint8, cmd *ATNCmd) ATNCheck {
	ret := ATNIdle

	switch c {
	case CodeListen | p.address:
		ret = p.listen(cmd)
	case CodeTalk | p.address:
		ret = p.talk(cmd)
	case CodeUnlisten, CodeUntalk:
		// Bus wide, let caller know what happened.
		cmd.Code = c
		p.endATN()
	default:
		p.endATN()
	}

	if ret == ATNError {
		return ret
	}
	p.drv.clock.Sleep(timingATNDelay)
	return ret
}

// We are addressed as listener, get secondary.
func (p *Parser) listen(cmd *ATNCmd) ATNCheck {
	c := p.drv.ReceiveByte()
	if (p.drv.state & StatusError) != 0 {
		return ATNError
	}
	cmd.Code = c

	if Command(c) == CodeData {
		return ATNCmdListen
	}

	if c == CodeUnlisten {
		p.endATN()
		return ATNIdle
	}

	// Some other command. Record the string until unlisten is sent.
	for {
		c = p.drv.ReceiveByte()
		if (p.drv.state & StatusError) != 0 {
			return ATNError
		}
		if (p.drv.state&StatusATN) != 0 && c == CodeUnlisten {
			break
		}
		if cmd.StrLen >= CmdMaxLength {
			// Overflow.
			p.drv.Release()
			return ATNError
		}
		cmd.Str[cmd.StrLen] = c
		cmd.StrLen++
	}
	// Unlisten came under attention, the host still holds it.
	p.endATN()
	return ATNCmdStr
}

// We are addressed as talker, get secondary and turn the bus around.
func (p *Parser) talk(cmd *ATNCmd) ATNCheck {
	c := p.drv.ReceiveByte()
	if (p.drv.state & StatusError) != 0 {
		return ATNError
	}
	cmd.Code = c

	// Collect anything else sent while attention is held.
	lines := p.drv.lines
	for !lines.Read(ATN) {
		if lines.Read(Clock) {
			c = p.drv.ReceiveByte()
			if (p.drv.state & StatusError) != 0 {
				return ATNError
			}
			if cmd.StrLen >= CmdMaxLength {
				p.drv.Release()
				return ATNError
			}
			cmd.Str[cmd.StrLen] = c
			cmd.StrLen++
			continue
		}
		p.drv.clock.Sleep(timingPoll)
	}

	if !p.drv.TurnAround() {
		return ATNError
	}
	return ATNCmdTalk
}

// Release bus and wait for the host to drop attention.
func (p *Parser) endATN() {
	p.drv.clock.Sleep(timingATNDelay)
	p.drv.Release()
	for !p.drv.lines.Read(ATN) {
		p.drv.clock.Sleep(timingPoll)
	}
}
