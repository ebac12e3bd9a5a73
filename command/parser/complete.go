/*
 * IECPrint - Console command completion.
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
	"slices"
	"strings"
	"unicode"

	command "github.com/rcornwell/iecprint/command/command"
)

// Called to complete a command line, during line editing.
func CompleteCmd(commandLine string, target command.Command) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)

	// We have a command, let it try and complete it.
	if !line.isEOL() && unicode.IsSpace(rune(line.line[line.pos])) {
		match := matchList(name)
		if len(match) != 1 || match[0].Complete == nil {
			return nil
		}
		return match[0].Complete(&line, target)
	}

	// Try and match one command.
	var matches []string
	for _, m := range cmdList {
		if strings.HasPrefix(m.Name, name) {
			matches = append(matches, m.Name+" ")
		}
	}
	slices.Sort(matches)
	return matches
}

// Complete the last option on the line.
func (line *cmdLine) scanOptions(target command.Command, cmdType int) []string {
	opts := target.Options()

	// Skip over complete options.
	for {
		line.skipSpace()
		start := line.pos
		for line.pos < len(line.line) && !unicode.IsSpace(rune(line.line[line.pos])) {
			line.pos++
		}
		if line.pos >= len(line.line) {
			line.pos = start
			break
		}
	}

	leading := line.line[:line.pos]
	word := line.line[line.pos:]
	name, value, hasValue := strings.Cut(word, "=")
	name = strings.ToLower(name)

	matches := []string{}
	if !hasValue {
		for _, opt := range opts {
			if (opt.OptionValid&cmdType) == 0 || !strings.HasPrefix(opt.Name, name) {
				continue
			}
			if opt.OptionType == command.OptionSwitch {
				matches = append(matches, leading+opt.Name+" ")
			} else {
				matches = append(matches, leading+opt.Name+"=")
			}
		}
		slices.Sort(matches)
		return matches
	}

	opt := matchOption(name, opts, cmdType)
	if opt.OptionType != command.OptionList {
		return nil
	}

	// Complete the last element of a comma list.
	done := ""
	if i := strings.LastIndexByte(value, ','); i >= 0 {
		done = value[:i+1]
		value = value[i+1:]
	}
	value = strings.ToLower(value)
	for _, item := range opt.OptionList {
		item = strings.ToLower(item)
		if strings.HasPrefix(item, value) {
			matches = append(matches, leading+name+"="+done+item)
		}
	}
	slices.Sort(matches)
	return matches
}
