// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ============================================================================
// THEME
// ============================================================================

// Theme bundles the pre-built styles used by the chat TUI. Build one with
// NewTheme and share it; styles are immutable after construction.
type Theme struct {
	// Terminal capabilities detected at construction.
	Profile termenv.Profile
	HasDark bool
	ColorOK bool

	// Chrome.
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	HelpBar   lipgloss.Style

	// Transcript.
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantText  lipgloss.Style
	SystemText     lipgloss.Style
	ErrorText      lipgloss.Style
	Timestamp      lipgloss.Style

	// Input area.
	InputBox       lipgloss.Style
	InputBoxActive lipgloss.Style

	// Session sidebar.
	SidebarBox      lipgloss.Style
	SessionItem     lipgloss.Style
	SessionActive   lipgloss.Style
	SessionSelected lipgloss.Style

	// Dialogs.
	ConfirmBox  lipgloss.Style
	TitleEditor lipgloss.Style

	// Spinner.
	Spinner lipgloss.Style
}

// NewTheme detects terminal capabilities and builds the style set.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	hasDark := termenv.HasDarkBackground()

	t := &Theme{
		Profile: profile,
		HasDark: hasDark,
		ColorOK: profile != termenv.Ascii,
	}

	t.Header = lipgloss.NewStyle().
		Foreground(ColorPurple).
		Bold(true).
		Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(ColorSubtext).
		Background(ColorSurface).
		Padding(0, 1)

	t.HelpBar = lipgloss.NewStyle().
		Foreground(ColorMutedText).
		Padding(0, 1)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(ColorUserBubble).
		Bold(true)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(ColorAssistantBubble).
		Bold(true)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(ColorText).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorUserBubble).
		Padding(0, 1)

	t.AssistantText = lipgloss.NewStyle().
		Foreground(ColorText)

	t.SystemText = lipgloss.NewStyle().
		Foreground(ColorSystemText).
		Italic(true)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(ColorRose)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(ColorMutedText)

	t.InputBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorderDim).
		Padding(0, 1)

	t.InputBoxActive = t.InputBox.
		BorderForeground(ColorBorderGlow)

	t.SidebarBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorderDim).
		Padding(0, 1)

	t.SessionItem = lipgloss.NewStyle().
		Foreground(ColorSubtext)

	t.SessionActive = lipgloss.NewStyle().
		Foreground(ColorEmerald)

	t.SessionSelected = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(ColorOverlay).
		Bold(true)

	t.ConfirmBox = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(ColorRose).
		Padding(1, 2)

	t.TitleEditor = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAmber).
		Padding(0, 1)

	t.Spinner = lipgloss.NewStyle().
		Foreground(ColorCyan)

	return t
}
