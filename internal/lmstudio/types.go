// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lmstudio provides the HTTP client for an LM Studio-compatible
// chat completion endpoint.
package lmstudio

// =============================================================================
// WIRE TYPES
// =============================================================================

// Message is one role/content pair in the outbound request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// ChatRequest is the JSON body of a streaming completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// chunkPayload is the JSON shape of one "data: " line. Only the delta
// content path is read; everything else in the chunk is ignored.
type chunkPayload struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// Options are the per-call generation parameters. The desktop app's two
// call sites use different profiles, so these stay configurable rather
// than baked into the client.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// AssistantOptions is the profile used by the floating assistant dialog and
// the first message of a new chat (longer, more deterministic replies).
func AssistantOptions() Options {
	return Options{Temperature: 0.6, MaxTokens: 4096}
}

// FollowUpOptions is the profile used for inline follow-up turns in the
// full chat page (shorter, slightly warmer replies).
func FollowUpOptions() Options {
	return Options{Temperature: 0.7, MaxTokens: 500}
}

// =============================================================================
// STREAM CHUNK
// =============================================================================

// StreamChunk is one increment delivered to the stream callback.
type StreamChunk struct {
	// Content is the incremental text fragment. May be empty on the final
	// chunk.
	Content string

	// Done is true exactly once, on the sentinel or end of stream.
	Done bool

	// Err carries a stream failure when delivered over a channel.
	Err error
}

// StreamCallback is called synchronously for each chunk, in arrival order.
type StreamCallback func(chunk StreamChunk)
