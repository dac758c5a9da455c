// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// ============================================================================
// COLOR PALETTE
// ============================================================================
// Adaptive colors automatically select the right variant for light or dark
// terminal backgrounds. The Light value is used on light backgrounds, Dark
// on dark backgrounds.

var (
	// Primary accent, used for headers and active elements.
	ColorPurple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

	// Secondary accent, used for links and highlights.
	ColorCyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

	// Success states and the assistant's accent.
	ColorEmerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

	// Errors and destructive prompts.
	ColorRose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

	// Warnings and in-progress states.
	ColorAmber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
)

// ============================================================================
// SURFACES AND TEXT
// ============================================================================

var (
	// Surface colors for panels and bubbles.
	ColorSurface = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1E1E2E"}
	ColorOverlay = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#313244"}

	// Text tiers, from primary down to muted.
	ColorText       = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	ColorSubtext    = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#A6ADC8"}
	ColorMutedText  = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	ColorBorderDim  = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#45475A"}
	ColorBorderGlow = ColorPurple
)

// ============================================================================
// MESSAGE BUBBLES
// ============================================================================

var (
	// User messages lean on the primary accent.
	ColorUserBubble = ColorPurple

	// Assistant messages use the calmer secondary accent.
	ColorAssistantBubble = ColorCyan

	// System and error transcript entries.
	ColorSystemText = ColorAmber
)

// ============================================================================
// STATUS INDICATORS
// ============================================================================

// StatusIndicators maps status names to their display glyphs.
var StatusIndicators = map[string]string{
	"idle":      "●",
	"streaming": "◐",
	"error":     "✗",
	"done":      "✓",
}

// ============================================================================
// RENDER HELPERS
// ============================================================================

// RenderSuccess renders text in the success color.
func RenderSuccess(text string) string {
	return lipgloss.NewStyle().Foreground(ColorEmerald).Render(text)
}

// RenderError renders text in the error color.
func RenderError(text string) string {
	return lipgloss.NewStyle().Foreground(ColorRose).Render(text)
}

// RenderWarning renders text in the warning color.
func RenderWarning(text string) string {
	return lipgloss.NewStyle().Foreground(ColorAmber).Render(text)
}

// RenderInfo renders text in the info color.
func RenderInfo(text string) string {
	return lipgloss.NewStyle().Foreground(ColorCyan).Render(text)
}

// RenderMuted renders text in the muted tier.
func RenderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(ColorMutedText).Render(text)
}
