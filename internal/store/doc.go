// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store is the single source of truth for chat sessions.
//
// The Store holds the session list (most-recent-first) and the active
// session pointer, and funnels every mutation through its methods so
// readers always observe a consistent snapshot. Each mutation persists the
// full {sessions, activeChatId} snapshot synchronously through a Persister;
// the file persister writes the same JSON shape the Lumia desktop app uses,
// so both programs can share one storage file. An optional fsnotify watcher
// reloads the store when the file changes underneath it.
package store
