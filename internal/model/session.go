// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"github.com/google/uuid"
)

// DefaultTitle is the placeholder title a fresh session carries until the
// first user message derives a real one.
const DefaultTitle = "New Chat"

// TitleMaxLen is how many leading characters of the first user message
// become the auto-derived session title.
const TitleMaxLen = 35

// =============================================================================
// CHAT SESSION
// =============================================================================

// ChatSession holds one independent conversation with its own history and
// title. Messages are in insertion order, which is chronological order.
type ChatSession struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// NewChatSession creates an empty session with a generated ID and the
// default title.
func NewChatSession() *ChatSession {
	return &ChatSession{
		ID:       generateSessionID(),
		Title:    DefaultTitle,
		Messages: []Message{},
	}
}

// HasDefaultTitle reports whether the title was never customized or derived.
func (s *ChatSession) HasDefaultTitle() bool {
	return s.Title == DefaultTitle
}

// IsEmpty reports whether the session has no messages.
func (s *ChatSession) IsEmpty() bool {
	return len(s.Messages) == 0
}

// LastMessage returns the most recent message, or a zero Message and false
// when the session is empty.
func (s *ChatSession) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Clone returns a deep copy of the session. The store hands clones to
// readers so no caller can mutate store state behind its back.
func (s *ChatSession) Clone() *ChatSession {
	clone := &ChatSession{
		ID:       s.ID,
		Title:    s.Title,
		Messages: make([]Message, len(s.Messages)),
	}
	copy(clone.Messages, s.Messages)
	return clone
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// DeriveTitle builds a session title from the first user message: the
// leading TitleMaxLen characters, with "..." appended when truncated.
func DeriveTitle(input string) string {
	runes := []rune(input)
	if len(runes) <= TitleMaxLen {
		return input
	}
	return string(runes[:TitleMaxLen]) + "..."
}

// generateSessionID creates a collision-resistant session ID. Keeps the
// "chat-" prefix the desktop app uses so shared storage files stay readable.
func generateSessionID() string {
	return "chat-" + uuid.NewString()
}
