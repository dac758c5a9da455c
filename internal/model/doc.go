// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// The JSON shape of these types is shared with the Lumia desktop app's
// chat storage, so field names and formats must stay stable:
//
//	Message:     {id, role, content, timestamp}
//	ChatSession: {id, title, messages}
//
// A committed message is never mutated in place. Text accumulated during
// streaming lives in the chat controller's live buffer and only becomes a
// Message when the stream completes.
package model
