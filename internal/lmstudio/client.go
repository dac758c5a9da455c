// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lmstudio provides the HTTP client for an LM Studio-compatible
// chat completion endpoint.
package lmstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeHTTP
	ErrTypeNoBody
)

// ClientError represents an error from the completion client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error

	// StatusCode and Body are set for ErrTypeHTTP so the failure can be
	// surfaced in the transcript with full detail.
	StatusCode int
	Body       string
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg += ": status " + strconv.Itoa(e.StatusCode)
		if e.Body != "" {
			msg += ", body: " + e.Body
		}
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrNotRunning = &ClientError{Type: ErrTypeConnection, Message: "model server is not reachable"}
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNoBody     = &ClientError{Type: ErrTypeNoBody, Message: "response has no readable body"}
)

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return false
}

// IsNotRunning checks if an error indicates the server is unreachable.
func IsNotRunning(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeConnection
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the completion client.
type ClientConfig struct {
	// BaseURL of the LM Studio server (default: http://localhost:1234)
	BaseURL string

	// Model identifier sent with every request (default: gemma-3-4b-it-qat)
	Model string

	// RequestTimeout bounds the whole streaming call, first byte through
	// last chunk (default: 2m). Zero disables the timeout.
	RequestTimeout time.Duration

	// RequestsPerSecond throttles how fast calls may be issued against the
	// local server (default: 2). Zero disables throttling.
	RequestsPerSecond float64
}

// completionsPath is the OpenAI-compatible endpoint path LM Studio serves.
const completionsPath = "/v1/chat/completions"

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "http://localhost:1234",
		Model:             "gemma-3-4b-it-qat",
		RequestTimeout:    2 * time.Minute,
		RequestsPerSecond: 2,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client issues streaming chat completion requests.
//
// The Client is safe for concurrent use; each call gets its own stream
// reader. A shared rate limiter keeps rapid send-retry loops from hammering
// the local server.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:1234"
	}
	if config.Model == "" {
		config.Model = "gemma-3-4b-it-qat"
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		config: config,
		// Streaming responses stay open for the whole generation, so the
		// overall deadline comes from the request context, not the client.
		httpClient: &http.Client{},
		limiter:    limiter,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.config.Model
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream sends a streaming completion request and calls the callback
// for each chunk, in arrival order, until the sentinel, end of stream, or
// an error. The context cancels the call at any suspension point; a
// canceled call returns the context's error.
func (c *Client) ChatStream(ctx context.Context, messages []Message, opts Options, callback StreamCallback) error {
	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	reqBody := ChatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return &ClientError{Type: ErrTypeConnection, Message: "model server is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read the error body so the failure is actionable in the UI.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return &ClientError{
			Type:       ErrTypeHTTP,
			Message:    "completion request failed",
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if resp.Body == nil {
		return ErrNoBody
	}

	reader := NewStreamReader(resp.Body)
	return reader.Process(ctx, callback)
}

// ChatStreamChan sends a streaming completion request and returns a channel
// of chunks. The channel is closed when streaming completes or fails;
// errors arrive as a final chunk with Err set.
func (c *Client) ChatStreamChan(ctx context.Context, messages []Message, opts Options) <-chan StreamChunk {
	ch := make(chan StreamChunk)

	go func() {
		defer close(ch)

		err := c.ChatStream(ctx, messages, opts, func(chunk StreamChunk) {
			select {
			case ch <- chunk:
			case <-ctx.Done():
			}
		})

		if err != nil {
			select {
			case ch <- StreamChunk{Err: err, Done: true}:
			case <-ctx.Done():
			}
		}
	}()

	return ch
}
