// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates one user-turn/assistant-turn cycle.
//
// A Controller glues the session store and the streaming completion client
// together: it validates the send, derives the session title on the first
// message, appends the user message optimistically, assembles the outbound
// payload through its policy, streams fragments into a live buffer, and
// commits exactly one assistant message on completion. Failures become
// visible assistant messages in the transcript instead of stuck spinners.
//
// The two chat surfaces differ only in payload assembly, captured by the
// two Policy implementations: FullHistoryPolicy forwards the whole session
// history behind a system persona preamble, AlternatingPolicy folds the
// persona into the first user message and enforces strict user/assistant
// alternation.
package chat
