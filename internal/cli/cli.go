// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
)

// ============================================================================
// COMMANDS
// ============================================================================

// Command identifies which subcommand was requested.
type Command int

const (
	// CommandTUI launches the full-screen interface. It is the default.
	CommandTUI Command = iota
	// CommandChat starts the line-based REPL.
	CommandChat
	// CommandSessions lists stored sessions.
	CommandSessions
	// CommandSearch searches message history.
	CommandSearch
	// CommandDelete removes a session.
	CommandDelete
	// CommandConfig prints the effective configuration.
	CommandConfig
	// CommandVersion prints version information.
	CommandVersion
	// CommandHelp prints usage.
	CommandHelp
)

// String returns the subcommand name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CommandTUI:
		return "tui"
	case CommandChat:
		return "chat"
	case CommandSessions:
		return "sessions"
	case CommandSearch:
		return "search"
	case CommandDelete:
		return "delete"
	case CommandConfig:
		return "config"
	case CommandVersion:
		return "version"
	case CommandHelp:
		return "help"
	default:
		return "unknown"
	}
}

const usageText = `mia - local chat for LM Studio

Usage:
  mia                      Launch the full-screen chat interface
  mia chat                 Start a line-based chat in this terminal
  mia sessions             List stored chat sessions
  mia search <query>       Search message history
  mia delete <id>          Delete a session (requires --confirm)
  mia config               Show the effective configuration
  mia version              Show version information
  mia help                 Show this help

Flags:
  --role <user|assistant>  Restrict search to one role (search)
  --session <id>           Restrict search to one session (search)
  --limit <n>              Maximum search results (search, default 50)
  --confirm                Actually perform the deletion (delete)
  --plain                  Disable markdown rendering (chat)

Environment:
  MIA_SERVER_URL           Override the LM Studio base URL
  MIA_MODEL                Override the model identifier
  MIA_STORAGE_PATH         Override the session storage file
  NO_COLOR                 Disable colored output
`

// Usage returns the top-level help text.
func Usage() string {
	return usageText
}

// Parse maps the raw arguments to a command and its parsed flags. The
// first positional selects the subcommand; no arguments means the TUI.
func Parse(args []string) (Command, *ArgParser, error) {
	p := NewArgParser(args)

	if p.BoolFlag("help") {
		return CommandHelp, p, nil
	}
	if p.BoolFlag("version") {
		return CommandVersion, p, nil
	}

	sub := p.Positional(0)
	switch sub {
	case "":
		return CommandTUI, p, nil
	case "tui":
		return CommandTUI, p, nil
	case "chat":
		return CommandChat, p, nil
	case "sessions", "ls":
		return CommandSessions, p, nil
	case "search":
		return CommandSearch, p, nil
	case "delete", "rm":
		return CommandDelete, p, nil
	case "config":
		return CommandConfig, p, nil
	case "version":
		return CommandVersion, p, nil
	case "help":
		return CommandHelp, p, nil
	default:
		return CommandHelp, p, fmt.Errorf("unknown command %q", sub)
	}
}
