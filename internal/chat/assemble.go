// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates one user-turn/assistant-turn cycle.
package chat

import (
	"github.com/lumia-app/mia-tui/internal/lmstudio"
	"github.com/lumia-app/mia-tui/internal/model"
)

// =============================================================================
// PERSONAS
// =============================================================================

// ChatPersona steers the full chat page. Sent as a separate system message.
const ChatPersona = "You are Mia, a friendly assistant. Pretend that you are a real girl with interests and feelings."

// AssistantPersona steers the floating assistant. Folded into the first
// user message because the dialog never sends a system role.
const AssistantPersona = "You are Mia, a friendly and concise AI assistant. Pretend that you are a real girl with interests and feelings."

// AssistantGreeting is the canned opener the floating assistant shows. It
// is UI furniture, never part of the outbound payload or the alternation
// walk.
const AssistantGreeting = "Hello! How can I assist you today?"

// =============================================================================
// ASSEMBLY POLICY
// =============================================================================

// Policy builds the outbound message list for one turn. history is the
// session's committed messages before this turn; input is the new user
// text. Policies are pure: no store access, no network, fully
// unit-testable.
type Policy interface {
	Assemble(history []model.Message, input string) []lmstudio.Message
}

// =============================================================================
// FULL HISTORY POLICY
// =============================================================================

// FullHistoryPolicy forwards the persona as a system preamble, then every
// prior non-system message with its role preserved, then the new input.
// The canned greeting stays out of the payload on this surface too.
// Used by the full chat page.
type FullHistoryPolicy struct {
	Persona  string
	Greeting string
}

// NewFullHistoryPolicy creates the policy with the chat page persona.
func NewFullHistoryPolicy() FullHistoryPolicy {
	return FullHistoryPolicy{Persona: ChatPersona, Greeting: AssistantGreeting}
}

// Assemble implements Policy.
func (p FullHistoryPolicy) Assemble(history []model.Message, input string) []lmstudio.Message {
	out := make([]lmstudio.Message, 0, len(history)+2)
	out = append(out, lmstudio.NewSystemMessage(p.Persona))

	for _, msg := range history {
		if msg.Role == model.RoleSystem {
			continue
		}
		if isGreeting(msg, p.Greeting) {
			continue
		}
		out = append(out, lmstudio.Message{Role: msg.Role.String(), Content: msg.Content})
	}

	out = append(out, lmstudio.NewUserMessage(input))
	return out
}

// isGreeting reports whether msg is the seeded assistant opener. The role
// check keeps a user message that happens to repeat the greeting text in
// the payload.
func isGreeting(msg model.Message, greeting string) bool {
	return greeting != "" && msg.Role == model.RoleAssistant && msg.Content == greeting
}

// =============================================================================
// ALTERNATING POLICY
// =============================================================================

// AlternatingPolicy enforces strict user/assistant alternation: the walk
// expects a user message first and flips expectation after each accepted
// message; anything out of turn is skipped, not sent. The persona is
// concatenated into the first accepted user message, and the greeting is
// excluded before the walk begins. Used by the floating assistant dialog.
type AlternatingPolicy struct {
	Persona  string
	Greeting string
}

// NewAlternatingPolicy creates the policy with the assistant dialog
// persona and greeting.
func NewAlternatingPolicy() AlternatingPolicy {
	return AlternatingPolicy{Persona: AssistantPersona, Greeting: AssistantGreeting}
}

// Assemble implements Policy.
func (p AlternatingPolicy) Assemble(history []model.Message, input string) []lmstudio.Message {
	conversation := make([]model.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == model.RoleSystem {
			continue
		}
		if isGreeting(msg, p.Greeting) {
			continue
		}
		conversation = append(conversation, msg)
	}

	// First real message of the dialog: persona and input travel together.
	if len(conversation) == 0 {
		return []lmstudio.Message{lmstudio.NewUserMessage(p.Persona + " " + input)}
	}

	out := make([]lmstudio.Message, 0, len(conversation)+1)
	userTurn := true
	for _, msg := range conversation {
		switch {
		case userTurn && msg.Role == model.RoleUser:
			content := msg.Content
			if len(out) == 0 {
				content = p.Persona + " " + content
			}
			out = append(out, lmstudio.NewUserMessage(content))
			userTurn = false
		case !userTurn && msg.Role == model.RoleAssistant:
			out = append(out, lmstudio.NewAssistantMessage(msg.Content))
			userTurn = true
		default:
			// Breaks the expected alternation; skip rather than send.
		}
	}

	// Append the new input only when the walk left us expecting a user
	// message; otherwise the history already ends mid-turn and the input
	// would break alternation too.
	if userTurn {
		content := input
		if len(out) == 0 {
			content = p.Persona + " " + content
		}
		out = append(out, lmstudio.NewUserMessage(content))
	}

	return out
}
