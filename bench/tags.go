// Package bench runs the read benchmark: it parses the tag scenario,
// drives a driver through connect, timed read cycles and disconnect, and
// summarises the timings.
package bench

import (
	"bufio"
	"fmt"
	"strings"

	"s7bench/s7"
)

// DefaultTags is the built-in scenario used when neither inline tags nor a
// tags file are configured. It matches the reference test data block DB4.
const DefaultTags = `%DB4:0.0:BOOL|BOOL;true
%DB4:1:BYTE|USINT;42
%DB4:2:WORD|UINT;42424
%DB4:4:DWORD|UDINT;4242442424
%DB4:16:SINT|SINT;-42
%DB4:17:USINT|USINT;42
%DB4:18:INT|INT;-2424
%DB4:20:UINT|UINT;42424
%DB4:22:DINT|DINT;-242442424
%DB4:26:UDINT|UDINT;4242442424
%DB4:46:REAL|REAL;3.141593
%DB4:50:LREAL|LREAL;2.71828182846
%DB4:136:CHAR|CHAR;H
%DB4:138:WCHAR|WCHAR;w
%DB4:140:STRING(10)|STRING;hurz
%DB4:396:WSTRING(10)|WSTRING;wolf
%DB4:58:TIME|TIME;PT1.234S
%DB4:70:DATE|DATE;1998-03-28
%DB4:72:TIME_OF_DAY|TIME_OF_DAY;15:36:30.123
`

// TagSpec is one scenario entry: a named address and the value it must read.
type TagSpec struct {
	Name     string
	Address  string
	Literal  string // "TYPE;literal" as written in the list
	Expected s7.Value
}

// ParseTagList parses "address|TYPE;literal" lines. Blank lines, comments
// starting with '#' and lines without '|' are skipped. A repeated address
// keeps the position of its first occurrence and the literal of its last.
// Tags are named tag-1..tag-N in list order.
func ParseTagList(text string) ([]TagSpec, error) {
	type entry struct {
		address, literal string
		line             int
	}

	var entries []entry
	index := make(map[string]int)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		address, literal, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		address = strings.TrimSpace(address)
		literal = strings.TrimSpace(literal)

		if i, seen := index[address]; seen {
			entries[i].literal = literal
			entries[i].line = lineNo
			continue
		}
		index[address] = len(entries)
		entries = append(entries, entry{address: address, literal: literal, line: lineNo})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	specs := make([]TagSpec, 0, len(entries))
	for i, e := range entries {
		if err := s7.ValidateAddress(e.address); err != nil {
			return nil, fmt.Errorf("line %d: %w", e.line, err)
		}
		expected, err := s7.ParseExpected(e.literal)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", e.line, e.address, err)
		}
		specs = append(specs, TagSpec{
			Name:     fmt.Sprintf("tag-%d", i+1),
			Address:  e.address,
			Literal:  e.literal,
			Expected: expected,
		})
	}
	return specs, nil
}

// TagMap returns the name -> address map passed to Driver.Read.
func TagMap(specs []TagSpec) map[string]string {
	tags := make(map[string]string, len(specs))
	for _, s := range specs {
		tags[s.Name] = s.Address
	}
	return tags
}

// SeedSimulator stores every expected value in sim so a benchmark against
// the simulator verifies cleanly.
func SeedSimulator(sim *s7.Simulator, specs []TagSpec) error {
	for _, s := range specs {
		d, err := s7.ParseAddress(s.Address)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		if err := sim.Seed(d, s.Expected); err != nil {
			return fmt.Errorf("%s (%s): %w", s.Name, s.Address, err)
		}
	}
	return nil
}
