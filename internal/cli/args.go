// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// ============================================================================
// ARGUMENT PARSER
// ============================================================================

// ArgParser splits a raw argument list into flags and positionals. Flags
// accept both "--flag value" and "--flag=value" forms; a flag with no
// value is recorded as a boolean.
type ArgParser struct {
	flags       map[string]string
	boolFlags   map[string]bool
	positionals []string
}

// boolValueFlags lists flags that never consume the next argument.
var boolValueFlags = map[string]bool{
	"confirm":    true,
	"json":       true,
	"no-color":   true,
	"plain":      true,
	"timestamps": true,
	"help":       true,
	"version":    true,
}

// NewArgParser parses the argument list.
func NewArgParser(args []string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			p.positionals = append(p.positionals, arg)
			continue
		}

		name := strings.TrimPrefix(arg, "--")
		if eq := strings.Index(name, "="); eq >= 0 {
			p.flags[name[:eq]] = name[eq+1:]
			continue
		}

		if boolValueFlags[name] {
			p.boolFlags[name] = true
			continue
		}

		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			p.flags[name] = args[i+1]
			i++
		} else {
			p.boolFlags[name] = true
		}
	}

	return p
}

// Flag returns the named flag value and whether it was set.
func (p *ArgParser) Flag(name string) (string, bool) {
	v, ok := p.flags[name]
	return v, ok
}

// FlagOrDefault returns the named flag value, or def when unset.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v, ok := p.flags[name]; ok {
		return v
	}
	return def
}

// FlagInt parses the named flag as an integer.
func (p *ArgParser) FlagInt(name string) (int, bool, error) {
	v, ok := p.flags[name]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("flag --%s: %q is not a number", name, v)
	}
	return n, true, nil
}

// FlagIntOrDefault parses the named flag as an integer, or returns def
// when unset or unparseable.
func (p *ArgParser) FlagIntOrDefault(name string, def int) int {
	n, ok, err := p.FlagInt(name)
	if !ok || err != nil {
		return def
	}
	return n
}

// BoolFlag reports whether a valueless flag was given.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[name]
}

// HasFlag reports whether the flag appeared in any form.
func (p *ArgParser) HasFlag(name string) bool {
	if _, ok := p.flags[name]; ok {
		return true
	}
	return p.boolFlags[name]
}

// Positional returns the positional argument at index i, or "".
func (p *ArgParser) Positional(i int) string {
	if i < 0 || i >= len(p.positionals) {
		return ""
	}
	return p.positionals[i]
}

// Positionals returns all positional arguments.
func (p *ArgParser) Positionals() []string {
	return p.positionals
}

// JoinPositionals joins all positional arguments from index start with
// spaces. Useful for free-text queries given unquoted.
func (p *ArgParser) JoinPositionals(start int) string {
	if start < 0 || start >= len(p.positionals) {
		return ""
	}
	return strings.Join(p.positionals[start:], " ")
}
