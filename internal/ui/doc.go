// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the interactive terminal interface built on
// Bubble Tea. The model renders the active chat transcript in a
// viewport, streams assistant responses at a steady frame rate, and
// provides a session sidebar for switching, renaming, and deleting
// conversations.
package ui
