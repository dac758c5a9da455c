// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"strings"
	"testing"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRoleDisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Mia"},
		{RoleSystem, "System"},
		{Role("tool"), "tool"},
	}

	for _, tt := range tests {
		if got := tt.role.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleUser.Valid() || !RoleAssistant.Valid() || !RoleSystem.Valid() {
		t.Error("known roles should be valid")
	}
	if Role("other").Valid() {
		t.Error("unknown role should not be valid")
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if !strings.HasPrefix(msg.ID, "msg-") {
		t.Errorf("ID should start with 'msg-', got %q", msg.ID)
	}
	if msg.Timestamp == "" {
		t.Error("Timestamp should be set at creation")
	}
}

func TestMessageIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		msg := NewUserMessage("x")
		if seen[msg.ID] {
			t.Fatalf("duplicate message ID %q", msg.ID)
		}
		seen[msg.ID] = true
	}
}

func TestMessagePreview(t *testing.T) {
	msg := NewAssistantMessage("hello world this is a long message")

	if got := msg.Preview(100); got != msg.Content {
		t.Errorf("Preview shorter than limit should return full content, got %q", got)
	}
	if got := msg.Preview(8); got != "hello..." {
		t.Errorf("Preview = %q, want %q", got, "hello...")
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewChatSession(t *testing.T) {
	s := NewChatSession()

	if !strings.HasPrefix(s.ID, "chat-") {
		t.Errorf("ID should start with 'chat-', got %q", s.ID)
	}
	if s.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", s.Title, DefaultTitle)
	}
	if !s.HasDefaultTitle() {
		t.Error("fresh session should report default title")
	}
	if !s.IsEmpty() {
		t.Error("fresh session should be empty")
	}
}

func TestSessionIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := NewChatSession()
		if seen[s.ID] {
			t.Fatalf("duplicate session ID %q", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestSessionClone(t *testing.T) {
	s := NewChatSession()
	s.Messages = append(s.Messages, NewUserMessage("one"))

	clone := s.Clone()
	clone.Title = "changed"
	clone.Messages[0].Content = "mutated"
	clone.Messages = append(clone.Messages, NewUserMessage("two"))

	if s.Title != DefaultTitle {
		t.Error("clone title edit leaked into original")
	}
	if s.Messages[0].Content != "one" {
		t.Error("clone message edit leaked into original")
	}
	if len(s.Messages) != 1 {
		t.Error("clone append leaked into original")
	}
}

func TestLastMessage(t *testing.T) {
	s := NewChatSession()
	if _, ok := s.LastMessage(); ok {
		t.Error("empty session should have no last message")
	}

	s.Messages = append(s.Messages, NewUserMessage("a"), NewAssistantMessage("b"))
	last, ok := s.LastMessage()
	if !ok || last.Content != "b" {
		t.Errorf("LastMessage = %q, %v; want %q, true", last.Content, ok, "b")
	}
}

// =============================================================================
// TITLE DERIVATION TESTS
// =============================================================================

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "short input kept verbatim",
			input: "Plan my week",
			want:  "Plan my week",
		},
		{
			name:  "exactly at limit kept verbatim",
			input: strings.Repeat("a", TitleMaxLen),
			want:  strings.Repeat("a", TitleMaxLen),
		},
		{
			name:  "long input truncated with ellipsis",
			input: "Let's plan a trip to the mountains for next weekend with the whole family",
			want:  "Let's plan a trip to the mountains ...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTitle(tt.input)
			if got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
