/*
 * IECPrint - Console command line parser.
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

package parser

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	command "github.com/rcornwell/iecprint/command/command"
)

type cmd struct {
	Name     string // Command name.
	Min      int    // Minimum match size.
	Process  func(*cmdLine, command.Command) (bool, string, error)
	Complete func(*cmdLine, command.Command) []string
}

type cmdLine struct {
	line string // Current command.
	pos  int    // Position in line.
}

// Execute the command line given. Returns true when the console should
// quit and any text to show.
func ProcessCommand(commandLine string, target command.Command) (bool, string, error) {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)
	if name == "" {
		if !line.isEOL() {
			return false, "", errors.New("command not found: " + strings.TrimSpace(commandLine))
		}
		return false, "", nil
	}

	match := matchList(name)
	if len(match) == 0 {
		return false, "", errors.New("command not found: " + name)
	}

	if len(match) > 1 {
		return false, "", errors.New("unique command not found: " + name)
	}

	return match[0].Process(&line, target)
}

// Check if command matches at least to minimum length.
func matchCommand(match cmd, command string) bool {
	if len(command) > len(match.Name) {
		return false
	}
	return strings.HasPrefix(match.Name, command) && len(command) >= match.Min
}

// Check if command matches one of the commands.
func matchList(command string) []cmd {
	// If command empty just return.
	if command == "" {
		return []cmd{}
	}

	// Try and match one command.
	var match []cmd
	for _, m := range cmdList {
		if m.Name == command {
			return []cmd{m}
		}
		if matchCommand(m, command) {
			match = append(match, m)
		}
	}
	return match
}

// Match list of options.
func matchOption(option string, optList []command.Options, cmdType int) command.Options {
	for _, opt := range optList {
		if (opt.OptionValid & cmdType) == 0 {
			continue
		}
		if opt.Name == option {
			return opt
		}
	}
	return command.Options{OptionType: -1}
}

// Skip forward over line until none whitespace character found.
func (line *cmdLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line.
func (line *cmdLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#'
}

// Return current character and advance to next.
func (line *cmdLine) getCurrent() byte {
	if line.isEOL() {
		return 0
	}
	by := line.line[line.pos]
	line.pos++
	return by
}

// Parse string that is "string" or just string.
func (line *cmdLine) parseQuoteString() (string, bool) {
	inQuote := false
	value := ""

	by := line.getCurrent()
	if by == 0 {
		return "", false
	}

	if by == '"' {
		inQuote = true
		by = line.getCurrent()
	}

	for by != 0 {
		// If processing a quoted string "" gets replaced by single quote
		if by == '"' && inQuote {
			by = line.getCurrent()
			if by != '"' {
				return value, true
			}
		}

		// Space terminates a non quoted string.
		if !inQuote && unicode.IsSpace(rune(by)) {
			return value, true
		}

		value += string(by)
		by = line.getCurrent()
	}
	return value, !inQuote
}

// Parse a decimal number.
func (line *cmdLine) getNumber() (int, error) {
	start := line.pos
	for !line.isEOL() && !unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
	value, err := strconv.Atoi(line.line[start:line.pos])
	if err != nil || value < 0 {
		return 0, errors.New("not a number")
	}
	return value, nil
}

// Parse option name, stopping at = when equal is set.
func (line *cmdLine) getWord(equal bool) string {
	line.skipSpace()

	value := ""
	pos := line.pos
	for !line.isEOL() {
		by := line.line[line.pos]
		if unicode.IsSpace(rune(by)) {
			break
		}
		if by == '=' && equal {
			break
		}
		if !unicode.IsLetter(rune(by)) {
			line.pos = pos
			return ""
		}
		value += string([]byte{by})
		line.pos++
	}
	return strings.ToLower(value)
}

// Get an option.
func (line *cmdLine) getOption(opts []command.Options, cmdType int) (*command.CmdOption, error) {
	name := line.getWord(true)
	if name == "" {
		if !line.isEOL() {
			return nil, errors.New("invalid option")
		}
		return nil, nil
	}
	opt := command.CmdOption{Name: name}

	match := matchOption(name, opts, cmdType)
	if match.OptionType == -1 {
		return nil, errors.New("unknown option: " + name)
	}
	if match.OptionType == command.OptionSwitch {
		if !line.isEOL() && line.line[line.pos] == '=' {
			return nil, errors.New("switch option can't have arguments: " + name)
		}
		return &opt, nil
	}
	if line.getCurrent() != '=' {
		return nil, errors.New("option must be followed by value: " + name)
	}

	switch match.OptionType {
	case command.OptionNumber:
		num, err := line.getNumber()
		if err != nil {
			return nil, errors.New("number options must be followed by number: " + name)
		}
		opt.Value = num
		opt.EqualOpt = strconv.Itoa(num)

	case command.OptionName:
		value, ok := line.parseQuoteString()
		if !ok || value == "" {
			return nil, errors.New("value not valid: " + name)
		}
		opt.EqualOpt = value

	case command.OptionList:
		value, ok := line.parseQuoteString()
		if !ok || value == "" {
			return nil, errors.New("option must be followed by name: " + name)
		}
		value = strings.ToLower(value)
		for _, item := range strings.Split(value, ",") {
			if !inList(item, match.OptionList) {
				return nil, errors.New("value not valid for " + name + ": " + item)
			}
		}
		opt.EqualOpt = value

	default:
		return nil, errors.New("invalid option type: " + name)
	}
	return &opt, nil
}

func inList(item string, list []string) bool {
	for _, mod := range list {
		if strings.ToLower(mod) == item {
			return true
		}
	}
	return false
}

// Scan options and return a list of options.
func (line *cmdLine) getOptions(target command.Command, cmdType int) ([]*command.CmdOption, error) {
	optlist := []*command.CmdOption{}
	opts := target.Options()
	for {
		opt, err := line.getOption(opts, cmdType)
		if err != nil {
			return optlist, err
		}
		if opt == nil {
			break
		}
		optlist = append(optlist, opt)
	}
	return optlist, nil
}
