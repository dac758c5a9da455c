// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates one user-turn/assistant-turn cycle.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/lumia-app/mia-tui/internal/lmstudio"
	"github.com/lumia-app/mia-tui/internal/model"
	"github.com/lumia-app/mia-tui/internal/store"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput is returned when the send text is empty or whitespace.
	ErrEmptyInput = errors.New("input is empty")

	// ErrBusy is returned when a stream is already in flight on this
	// surface. The send is a no-op; callers typically ignore it.
	ErrBusy = errors.New("a response is already streaming")

	// ErrEmptyTitle is returned when a title edit commits empty text.
	ErrEmptyTitle = errors.New("title is empty")
)

// ErrorMessagePrefix starts every assistant message that records a failed
// request in the transcript. UIs use it to pick an error style.
const ErrorMessagePrefix = "Sorry, I encountered an error: "

// =============================================================================
// PHASE
// =============================================================================

// Phase is the per-turn state of one chat surface.
type Phase int

const (
	PhaseIdle       Phase = iota // No turn in progress
	PhaseRequesting              // Request issued, first fragment not yet seen
	PhaseStreaming               // Fragments arriving
	PhaseCompleted               // Last turn committed normally
	PhaseFailed                  // Last turn ended in a visible error message
	PhaseAborted                 // Last turn was cancelled; nothing committed
)

// String returns the phase name for logs and tests.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRequesting:
		return "requesting"
	case PhaseStreaming:
		return "streaming"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Busy reports whether a stream is in flight.
func (p Phase) Busy() bool {
	return p == PhaseRequesting || p == PhaseStreaming
}

// =============================================================================
// COMPLETER
// =============================================================================

// Completer is the streaming completion dependency. *lmstudio.Client
// satisfies it; tests substitute fakes.
type Completer interface {
	ChatStream(ctx context.Context, messages []lmstudio.Message, opts lmstudio.Options, callback lmstudio.StreamCallback) error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Config selects the surface-specific behavior of a Controller.
type Config struct {
	// Policy assembles the outbound payload (full history vs alternation).
	Policy Policy

	// Options are the generation parameters for this surface.
	Options lmstudio.Options

	// Greeting, when true, seeds each new session with the canned
	// assistant opener. Assembly policies that exclude the greeting
	// keep it out of the outbound payload.
	Greeting bool

	// OnUpdate, when set, is invoked after every live-buffer change and on
	// every phase transition. Runs on the streaming goroutine; front ends
	// use it to schedule a redraw.
	OnUpdate func()
}

// Controller drives the turn-taking protocol for one chat surface. The
// full chat page and the floating assistant each own one Controller; they
// share only the store.
type Controller struct {
	store  *store.Store
	client Completer
	config Config

	mu     sync.Mutex
	phase  Phase
	live   strings.Builder
	cancel context.CancelFunc
}

// NewController creates a controller bound to a store and completion
// client.
func NewController(st *store.Store, client Completer, config Config) *Controller {
	if config.Policy == nil {
		config.Policy = NewFullHistoryPolicy()
	}
	if config.Options == (lmstudio.Options{}) {
		config.Options = lmstudio.FollowUpOptions()
	}
	return &Controller{
		store:  st,
		client: client,
		config: config,
	}
}

// Store returns the shared session store.
func (c *Controller) Store() *store.Store {
	return c.store
}

// Phase returns the current turn phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Busy reports whether a stream is in flight on this surface.
func (c *Controller) Busy() bool {
	return c.Phase().Busy()
}

// Live returns the in-progress assistant text accumulated so far. Empty
// outside the streaming phase.
func (c *Controller) Live() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live.String()
}

// =============================================================================
// SEND
// =============================================================================

// Send runs one full turn: validate, derive title, append the user
// message, stream the assistant response, commit. Blocks until the turn
// reaches a terminal phase; front ends run it on their own goroutine and
// watch OnUpdate. A second Send while one is in flight returns ErrBusy
// without side effects.
func (c *Controller) Send(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.phase.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.phase = PhaseRequesting
	c.live.Reset()
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()
	c.update()

	// Loading state must clear no matter how the turn ends.
	defer func() {
		c.mu.Lock()
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.live.Reset()
		c.mu.Unlock()
		c.update()
	}()

	session := c.store.EnsureActive()

	// First message into a default-titled empty session names the session
	// after the input, before the message lands.
	if session.HasDefaultTitle() && session.IsEmpty() {
		title := model.DeriveTitle(input)
		if err := c.store.UpdateSession(session.ID, store.SessionUpdate{Title: &title}); err != nil {
			c.setPhase(PhaseFailed)
			return err
		}
	}

	// Optimistic append: the user's message is in the transcript before
	// the model answers.
	if err := c.store.AddMessage(session.ID, model.NewUserMessage(input)); err != nil {
		c.setPhase(PhaseFailed)
		return err
	}

	outbound := c.config.Policy.Assemble(session.Messages, input)

	streamErr := c.client.ChatStream(ctx, outbound, c.config.Options, func(chunk lmstudio.StreamChunk) {
		if chunk.Content == "" {
			return
		}
		c.mu.Lock()
		c.phase = PhaseStreaming
		c.live.WriteString(chunk.Content)
		c.mu.Unlock()
		c.update()
	})

	c.mu.Lock()
	content := strings.TrimSpace(c.live.String())
	c.mu.Unlock()

	switch {
	case streamErr == nil:
		// Empty streams commit nothing; an empty assistant bubble tells
		// the user less than no bubble at all.
		if content != "" {
			if err := c.store.AddMessage(session.ID, model.NewAssistantMessage(content)); err != nil {
				c.setPhase(PhaseFailed)
				return err
			}
		}
		c.setPhase(PhaseCompleted)
		return nil

	case errors.Is(streamErr, context.Canceled):
		// Abandoned turn: partial content is discarded, nothing commits.
		c.setPhase(PhaseAborted)
		return streamErr

	default:
		// The failure lands in the transcript so it cannot be missed.
		errMsg := model.NewAssistantMessage(ErrorMessagePrefix + streamErr.Error())
		if addErr := c.store.AddMessage(session.ID, errMsg); addErr != nil {
			c.setPhase(PhaseFailed)
			return errors.Join(streamErr, addErr)
		}
		c.setPhase(PhaseFailed)
		return streamErr
	}
}

// CancelActive aborts the in-flight stream, if any. Safe to call at any
// time.
func (c *Controller) CancelActive() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// =============================================================================
// SESSION MANAGEMENT
// =============================================================================

// NewSession creates a fresh default-titled session and makes it active.
func (c *Controller) NewSession() *model.ChatSession {
	sess := model.NewChatSession()
	c.store.AddSession(sess)
	c.store.SetActiveChat(sess.ID)
	if c.config.Greeting {
		// A fresh session cannot be missing, so the error is impossible.
		_ = c.store.AddMessage(sess.ID, model.NewAssistantMessage(AssistantGreeting))
	}
	return c.store.Session(sess.ID)
}

// DeleteSession removes a session. Callers confirm with the user first.
func (c *Controller) DeleteSession(id string) error {
	return c.store.DeleteSession(id)
}

// RenameSession commits a title edit: trimmed, non-empty.
func (c *Controller) RenameSession(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	return c.store.UpdateSession(id, store.SessionUpdate{Title: &title})
}

// =============================================================================
// INTERNAL
// =============================================================================

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
	c.update()
}

func (c *Controller) update() {
	if c.config.OnUpdate != nil {
		c.config.OnUpdate()
	}
}
