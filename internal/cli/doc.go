// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the command-line surface: argument parsing,
// terminal capability detection, the line-based chat REPL, and the
// session management subcommands. The default invocation with no
// subcommand launches the full-screen TUI.
package cli
