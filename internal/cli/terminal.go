// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ============================================================================
// TERMINAL DETECTION
// ============================================================================

// IsTTY reports whether the given file descriptor is a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// IsStdoutTTY reports whether stdout is a terminal. Markdown rendering
// and colored tables are gated on this so piped output stays plain.
func IsStdoutTTY() bool {
	return IsTTY(os.Stdout.Fd())
}

// IsStdinTTY reports whether stdin is a terminal.
func IsStdinTTY() bool {
	return IsTTY(os.Stdin.Fd())
}

// GetTerminalWidth returns the current terminal width, defaulting to 80
// when detection fails and clamping to a sane minimum.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	if width < 40 {
		return 40
	}
	return width
}

// ============================================================================
// COLOR SUPPORT
// ============================================================================

var (
	colorsOnce    sync.Once
	colorsEnabled bool
)

// ColorsEnabled reports whether colored output should be produced.
// NO_COLOR always wins; FORCE_COLOR overrides TTY detection.
func ColorsEnabled() bool {
	colorsOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorsEnabled = false
			return
		}
		if os.Getenv("FORCE_COLOR") != "" {
			colorsEnabled = true
			return
		}
		colorsEnabled = IsStdoutTTY()
	})
	return colorsEnabled
}

// GetColorProfile returns the termenv profile to render with, degraded
// to ASCII when colors are disabled.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
