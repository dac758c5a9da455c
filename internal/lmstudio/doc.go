// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lmstudio provides the HTTP client for an LM Studio-compatible
// chat completion endpoint.
//
// The endpoint speaks the OpenAI-style streaming protocol: one POST with
// stream=true, then a body of server-sent-event lines. Lines of interest
// start with "data: " and carry either a JSON chunk whose incremental text
// lives at choices[0].delta.content, or the literal "[DONE]" sentinel.
//
// The client delivers fragments through a synchronous callback in arrival
// order. Cancellation is context-driven and honored both while awaiting the
// first byte and between chunks. Malformed data lines are logged and
// skipped; they never abort the stream.
package lmstudio
