/*
 * IECPrint - Configuration file parser
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

package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// NoDev is passed to create functions when the line has no device number.
const NoDev uint16 = 0xffff

// List of options to pass to create routine.
type Option struct {
	Name     string    // Name of option.
	EqualOpt string    // Value of string after =.
	Value    []*string // Value of option.
}

// Option after keyword.
type FirstOption struct {
	devNum uint16 // Value of option if number.
	isAddr bool   // Valid address in devNum
	value  string // String value of option.
}

// Current option line being parsed.
type optionLine struct {
	line   string // Current option line.
	pos    int    // Current position in line.
	number int    // Line number in file.
}

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> := <keyword> <whitespace> <address> <whitespace> <options> |
 *            <keyword> <word> |
 *            <keyword> [<word>] <options> |
 *            <keyword>
 * <address> ::= <number>
 * <options> ::= *(<option> *(<whitespace>))
 * <option> ::= <name> ['=' <quoteopt>] *(<commaopt>)
 * <commaopt> ::= ',' *(<whitespace>) <name>
 * <quoteopt> ::= <word> | '"' *(<letter> | <whitespace>) '"'
 * <word> ::= *(<letter> | <number> | '.' | '_' | '-' | '/' | ':' | '~' | '+')
 * <name> ::= <letter> *(<letter> | <number>)
 */

const (
	TypeModel   = 1 + iota // Device with number.
	TypeOption             // Accepts a single parameter.
	TypeOptions            // Accepts a list of options.
	TypeSwitch             // Keyword only used to set a flag.
)

var (
	ErrUnknown  = errors.New("unknown keyword")
	ErrWrongUse = errors.New("keyword used in wrong form")
	ErrSyntax   = errors.New("syntax error")
)

// Creation function list.
type modelDef struct {
	create func(uint16, string, []Option) error
	ty     int
}

var models = map[string]modelDef{}

// Return type of model or 0 if no model.
func getModel(mod string) int {
	model, ok := models[mod]
	if !ok {
		return 0
	}
	return model.ty
}

func register(mod string, ty int, fn func(uint16, string, []Option) error) {
	mod = strings.ToUpper(mod)
	slog.Debug("Registering configuration keyword", "keyword", mod, "type", ty)
	models[mod] = modelDef{create: fn, ty: ty}
}

// Register a device keyword, should be called from init functions.
func RegisterModel(mod string, fn func(uint16, string, []Option) error) {
	register(mod, TypeModel, fn)
}

// Register keyword without arguments.
func RegisterSwitch(mod string, fn func(uint16, string, []Option) error) {
	register(mod, TypeSwitch, fn)
}

// Register keyword with one value.
func RegisterOption(mod string, fn func(uint16, string, []Option) error) {
	register(mod, TypeOption, fn)
}

// Register keyword with list of options.
func RegisterOptions(mod string, fn func(uint16, string, []Option) error) {
	register(mod, TypeOptions, fn)
}

// Look up keyword of required type.
func lookup(mod string, ty int) (modelDef, error) {
	mod = strings.ToUpper(mod)
	model, ok := models[mod]
	if !ok {
		return model, fmt.Errorf("%w: %s", ErrUnknown, mod)
	}
	if model.ty != ty {
		return model, fmt.Errorf("%w: %s", ErrWrongUse, mod)
	}
	return model, nil
}

// Create a device of type model.
func createModel(mod string, first *FirstOption, options []Option) error {
	model, err := lookup(mod, TypeModel)
	if err != nil {
		return err
	}
	return model.create(first.devNum, "", options)
}

// Create a option with one parameter.
func createOption(mod string, first *FirstOption) error {
	model, err := lookup(mod, TypeOption)
	if err != nil {
		return err
	}
	if first.isAddr {
		return model.create(first.devNum, first.value, []Option{})
	}
	return model.create(NoDev, first.value, []Option{})
}

// Create a option with options.
func createOptions(mod string, first *FirstOption, options []Option) error {
	model, err := lookup(mod, TypeOptions)
	if err != nil {
		return err
	}
	if first.isAddr {
		return model.create(first.devNum, first.value, options)
	}
	return model.create(NoDev, first.value, options)
}

// Create switch option.
func createSwitch(mod string) error {
	model, err := lookup(mod, TypeSwitch)
	if err != nil {
		return err
	}
	return model.create(NoDev, "", nil)
}

// Load in a configuration file.
func LoadConfigFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	return LoadConfig(file)
}

// Process configuration from reader.
func LoadConfig(r io.Reader) error {
	reader := bufio.NewReader(r)
	number := 0
	for {
		text, err := reader.ReadString('\n')
		number++
		if len(text) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		line := optionLine{line: text, number: number}
		if perr := line.parseLine(); perr != nil {
			return perr
		}
	}
	return nil
}

// Parse one line from file.
func (line *optionLine) parseLine() error {
	model := line.parseModel()
	if model == "" {
		return nil
	}
	switch getModel(model) {
	case TypeModel:
		// Get device number
		first := line.parseFirst()
		if first == nil || !first.isAddr {
			return fmt.Errorf("%w: %s requires device number, line: %d", ErrSyntax, model, line.number)
		}
		// Get any remaining options.
		options, err := line.parseOptions()
		if err != nil {
			return err
		}

		// Try and create the device.
		return createModel(model, first, options)

	case TypeOption:
		first := line.parseFirst()
		line.skipSpace()
		if !line.isEOL() || first == nil {
			return fmt.Errorf("%w: %s not followed by single value, line: %d", ErrSyntax, model, line.number)
		}
		return createOption(model, first)

	case TypeOptions:
		// First value is optional, options may start right away.
		save := line.pos
		first := line.parseFirst()
		if first == nil || (!line.isEOL() && line.line[line.pos] == '=') {
			line.pos = save
			first = &FirstOption{devNum: NoDev}
		}
		options, err := line.parseOptions()
		if err != nil {
			return err
		}
		return createOptions(model, first, options)

	case TypeSwitch:
		line.skipSpace()
		if !line.isEOL() {
			return fmt.Errorf("%w: switch %s followed by options, line: %d", ErrSyntax, model, line.number)
		}
		return createSwitch(model)
	}
	return fmt.Errorf("%w: %s, line: %d", ErrUnknown, model, line.number)
}

// Characters allowed in an unquoted value.
func isWord(by byte) bool {
	if unicode.IsLetter(rune(by)) || unicode.IsNumber(rune(by)) {
		return true
	}
	return strings.IndexByte("._-/:~+", by) >= 0
}

// Skip forward over line until none whitespace character found.
func (line *optionLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line.
func (line *optionLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#'
}

// Return next character of a value. 0 if EOL or separator.
func (line *optionLine) getNext(inQuote bool) byte {
	line.pos++
	if line.isEOL() {
		return 0
	}
	by := line.line[line.pos]
	if inQuote || isWord(by) {
		return by
	}
	return 0
}

// Peek at next character.
func (line *optionLine) getPeek() byte {
	if (line.pos + 1) >= len(line.line) {
		return 0
	}
	return line.line[line.pos+1]
}

// Parse keyword.
func (line *optionLine) parseModel() string {
	line.skipSpace()
	if line.isEOL() {
		return ""
	}

	start := line.pos
	for !line.isEOL() {
		by := line.line[line.pos]
		if !unicode.IsLetter(rune(by)) && !unicode.IsNumber(rune(by)) {
			break
		}
		line.pos++
	}
	return strings.ToUpper(line.line[start:line.pos])
}

// Parse first option parameter.
func (line *optionLine) parseFirst() *FirstOption {
	line.skipSpace()
	if line.isEOL() {
		return nil
	}

	start := line.pos
	for !line.isEOL() && isWord(line.line[line.pos]) {
		line.pos++
	}
	value := line.line[start:line.pos]
	if value == "" {
		return nil
	}

	option := FirstOption{devNum: NoDev, value: value}

	// Device numbers are decimal like on the bus.
	devNum, err := strconv.ParseUint(value, 10, 8)
	if err == nil {
		option.devNum = uint16(devNum)
		option.isAddr = true
	}
	return &option
}

// Parse string that is "string" or just string.
func (line *optionLine) parseQuoteString() (string, bool) {
	inQuote := false
	value := ""

	// If quote, set we are in quoted string
	if line.getPeek() == '"' {
		inQuote = true
		_ = line.getNext(true)
	}

	for {
		by := line.getNext(inQuote)
		// If processing a quoted string "" gets replaced by signal quote
		if by == '"' && inQuote {
			by = line.getNext(inQuote)
			if by != '"' {
				return value, true
			}
		}

		// Space or comma terminates a no quoted string.
		if !inQuote && (by == 0 || by == ',') {
			return value, true
		}

		value += string(by)
		if line.isEOL() {
			return value, !inQuote
		}
	}
}

// Parse option name.
func (line *optionLine) getName() (string, error) {
	if line.isEOL() {
		return "", nil
	}

	// First character must be alphabetic.
	by := line.line[line.pos]
	if !unicode.IsLetter(rune(by)) {
		return "", fmt.Errorf("%w: invalid option line: %d [%d]", ErrSyntax, line.number, line.pos)
	}

	start := line.pos
	for !line.isEOL() {
		by = line.line[line.pos]
		if !unicode.IsLetter(rune(by)) && !unicode.IsNumber(rune(by)) {
			break
		}
		line.pos++
	}
	return line.line[start:line.pos], nil
}

// Parse options for a line.
func (line *optionLine) parseOption() (*Option, error) {
	line.skipSpace()

	value, err := line.getName()
	if value == "" {
		return nil, err
	}

	option := Option{Name: value}

	if line.isEOL() {
		return &option, nil
	}

	// Check if equals option.
	if line.line[line.pos] == '=' {
		v, ok := line.parseQuoteString()
		if !ok {
			return nil, fmt.Errorf("%w: invalid quoted string line: %d [%d]", ErrSyntax, line.number, line.pos)
		}
		option.EqualOpt = v
	}

	line.skipSpace()

	// Grab all , options
	for !line.isEOL() && line.line[line.pos] == ',' {
		line.pos++
		line.skipSpace()
		v, err := line.getName()
		if err != nil {
			return nil, err
		}
		if v != "" {
			option.Value = append(option.Value, &v)
		}
		line.skipSpace()
	}

	return &option, nil
}

// Collect all options for line.
func (line *optionLine) parseOptions() ([]Option, error) {
	options := []Option{}
	for {
		option, err := line.parseOption()
		if err != nil {
			return nil, err
		}
		if option == nil {
			break
		}
		options = append(options, *option)
	}
	return options, nil
}
