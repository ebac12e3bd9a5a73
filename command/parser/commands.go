/*
 * IECPrint - Console commands.
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
	"log/slog"
	"strings"

	command "github.com/rcornwell/iecprint/command/command"
)

var cmdList = []cmd{
	{Name: "set", Min: 2, Process: set, Complete: setComplete},
	{Name: "show", Min: 2, Process: show, Complete: showComplete},
	{Name: "reset", Min: 3, Process: reset},
	{Name: "help", Min: 1, Process: help},
	{Name: "quit", Min: 4, Process: quit},
}

// Handle set commands.
func set(line *cmdLine, target command.Command) (bool, string, error) {
	slog.Debug("Command Set")

	optlist, err := line.getOptions(target, command.ValidSet)
	if err != nil {
		return false, "", err
	}
	if len(optlist) == 0 {
		return false, "", errors.New("no options given to set command")
	}
	return false, "", target.Set(optlist)
}

// Set command completion.
func setComplete(line *cmdLine, target command.Command) []string {
	return line.scanOptions(target, command.ValidSet)
}

// Process the show command.
func show(line *cmdLine, target command.Command) (bool, string, error) {
	slog.Debug("Command Show")

	optlist, err := line.getOptions(target, command.ValidShow)
	if err != nil {
		return false, "", err
	}
	return false, target.Show(optlist), nil
}

// Show command completion.
func showComplete(line *cmdLine, target command.Command) []string {
	return line.scanOptions(target, command.ValidShow)
}

// Reset the printer.
func reset(_ *cmdLine, target command.Command) (bool, string, error) {
	slog.Debug("Command Reset")
	target.Reset()
	return false, "", nil
}

// List commands.
func help(_ *cmdLine, target command.Command) (bool, string, error) {
	var b strings.Builder
	b.WriteString("commands: set show reset help quit\n")
	for _, ty := range []int{command.ValidSet, command.ValidShow} {
		if ty == command.ValidSet {
			b.WriteString("set:")
		} else {
			b.WriteString("show:")
		}
		for _, opt := range target.Options() {
			if opt.OptionValid&ty == 0 {
				continue
			}
			b.WriteString(" " + opt.Name)
			switch opt.OptionType {
			case command.OptionNumber:
				b.WriteString("=n")
			case command.OptionName:
				b.WriteString("=name")
			case command.OptionList:
				b.WriteString("=" + strings.Join(opt.OptionList, ","))
			}
		}
		b.WriteString("\n")
	}
	return false, b.String(), nil
}

// Handle commands that quit.
func quit(_ *cmdLine, _ command.Command) (bool, string, error) {
	slog.Debug("Command Quit")
	return true, "", nil
}
