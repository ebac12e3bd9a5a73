/*
 * IECPrint - Console command test cases.
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
	"testing"

	command "github.com/rcornwell/iecprint/command/command"
)

type testTarget struct {
	set   []*command.CmdOption
	shown []*command.CmdOption
	reset bool
}

func (t *testTarget) Options() []command.Options {
	return []command.Options{
		{Name: "server", OptionType: command.OptionName, OptionValid: command.ValidSet},
		{Name: "guard", OptionType: command.OptionNumber, OptionValid: command.ValidSet},
		{Name: "unlisten", OptionType: command.OptionList, OptionValid: command.ValidSet,
			OptionList: []string{"guard", "finalize", "ignore"}},
		{Name: "debug", OptionType: command.OptionList, OptionValid: command.ValidSet,
			OptionList: []string{"CMD", "DATA", "DETAIL"}},
		{Name: "online", OptionType: command.OptionSwitch, OptionValid: command.ValidSet},
		{Name: "printer", OptionType: command.OptionSwitch, OptionValid: command.ValidShow},
	}
}

func (t *testTarget) Set(options []*command.CmdOption) error {
	t.set = options
	return nil
}

func (t *testTarget) Show(options []*command.CmdOption) string {
	t.shown = options
	return "status\n"
}

func (t *testTarget) Reset() {
	t.reset = true
}

func TestSetCommand(t *testing.T) {
	target := &testTarget{}
	quit, _, err := ProcessCommand("set server=printhost:9100 guard=1500 unlisten=Finalize debug=cmd,data online", target)
	if err != nil || quit {
		t.Fatalf("Set failed: %v", err)
	}
	want := []command.CmdOption{
		{Name: "server", EqualOpt: "printhost:9100"},
		{Name: "guard", EqualOpt: "1500", Value: 1500},
		{Name: "unlisten", EqualOpt: "finalize"},
		{Name: "debug", EqualOpt: "cmd,data"},
		{Name: "online"},
	}
	if len(target.set) != len(want) {
		t.Fatalf("Set got %d options", len(target.set))
	}
	for i, opt := range target.set {
		if *opt != want[i] {
			t.Errorf("Option %d got %+v expected %+v", i, *opt, want[i])
		}
	}
}

func TestSetErrors(t *testing.T) {
	target := &testTarget{}
	for _, text := range []string{
		"set",
		"set color=red",
		"set guard=soon",
		"set unlisten=never",
		"set debug=cmd,disk",
		"set online=yes",
		"set server",
		"set printer",
	} {
		if _, _, err := ProcessCommand(text, target); err == nil {
			t.Errorf("%q accepted", text)
		}
	}
}

func TestCommands(t *testing.T) {
	target := &testTarget{}
	_, out, err := ProcessCommand("sh printer", target)
	if err != nil || out != "status\n" || len(target.shown) != 1 {
		t.Errorf("Show got %q %v", out, err)
	}
	if _, _, err := ProcessCommand("res", target); err != nil || !target.reset {
		t.Errorf("Reset not done: %v", err)
	}
	if quit, _, _ := ProcessCommand("quit", target); !quit {
		t.Errorf("Quit did not quit")
	}
	if _, _, err := ProcessCommand("qu", target); err == nil {
		t.Errorf("Short quit accepted")
	}
	if _, _, err := ProcessCommand("  # comment", target); err != nil {
		t.Errorf("Comment gave %v", err)
	}
	if _, _, err := ProcessCommand("ipl 00c", target); err == nil {
		t.Errorf("Unknown command accepted")
	}
	_, out, _ = ProcessCommand("help", target)
	if !strings.Contains(out, "unlisten=guard,finalize,ignore") {
		t.Errorf("Help %q", out)
	}
}

func TestComplete(t *testing.T) {
	target := &testTarget{}
	if got := CompleteCmd("s", target); !slices.Equal(got, []string{"set ", "show "}) {
		t.Errorf("Command completion %v", got)
	}
	if got := CompleteCmd("set gu", target); !slices.Equal(got, []string{"set guard="}) {
		t.Errorf("Option completion %v", got)
	}
	if got := CompleteCmd("set guard=10 unlisten=f", target); !slices.Equal(got, []string{"set guard=10 unlisten=finalize"}) {
		t.Errorf("Value completion %v", got)
	}
	if got := CompleteCmd("set debug=cmd,d", target); !slices.Equal(got, []string{"set debug=cmd,data", "set debug=cmd,detail"}) {
		t.Errorf("List completion %v", got)
	}
	if got := CompleteCmd("show ", target); !slices.Equal(got, []string{"show printer "}) {
		t.Errorf("Show completion %v", got)
	}
}
