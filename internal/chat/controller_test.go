// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lumia-app/mia-tui/internal/lmstudio"
	"github.com/lumia-app/mia-tui/internal/model"
	"github.com/lumia-app/mia-tui/internal/store"
)

// =============================================================================
// FAKE COMPLETER
// =============================================================================

// fakeCompleter plays back scripted fragments, optionally blocking until
// released so tests can observe the in-flight state.
type fakeCompleter struct {
	fragments []string
	err       error

	// block, when non-nil, is closed by the test to let the stream finish.
	block chan struct{}

	calls    atomic.Int64
	mu       sync.Mutex
	lastSent []lmstudio.Message
	lastOpts lmstudio.Options
}

func (f *fakeCompleter) ChatStream(ctx context.Context, messages []lmstudio.Message, opts lmstudio.Options, callback lmstudio.StreamCallback) error {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastSent = messages
	f.lastOpts = opts
	f.mu.Unlock()

	for _, frag := range f.fragments {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		callback(lmstudio.StreamChunk{Content: frag})
	}

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if f.err != nil {
		return f.err
	}
	callback(lmstudio.StreamChunk{Done: true})
	return nil
}

func newTestController(f *fakeCompleter) (*Controller, *store.Store) {
	st := store.New()
	ctrl := NewController(st, f, Config{
		Policy:  NewFullHistoryPolicy(),
		Options: lmstudio.FollowUpOptions(),
	})
	return ctrl, st
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSend_CommitsAccumulatedResponse(t *testing.T) {
	f := &fakeCompleter{fragments: []string{"Hel", "lo ", "world"}}
	ctrl, st := newTestController(f)

	if err := ctrl.Send(context.Background(), "hi there"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	active := st.EnsureActive()
	if len(active.Messages) != 2 {
		t.Fatalf("message count = %d, want 2 (user + assistant)", len(active.Messages))
	}
	if active.Messages[0].Role != model.RoleUser || active.Messages[0].Content != "hi there" {
		t.Errorf("user message = %+v", active.Messages[0])
	}
	if active.Messages[1].Role != model.RoleAssistant || active.Messages[1].Content != "Hello world" {
		t.Errorf("assistant message = %+v", active.Messages[1])
	}

	if ctrl.Live() != "" {
		t.Errorf("live buffer = %q, want empty after commit", ctrl.Live())
	}
	if ctrl.Phase() != PhaseCompleted {
		t.Errorf("phase = %v, want completed", ctrl.Phase())
	}
}

func TestSend_EmptyInputRejected(t *testing.T) {
	f := &fakeCompleter{}
	ctrl, st := newTestController(f)

	for _, input := range []string{"", "   ", "\n\t"} {
		if err := ctrl.Send(context.Background(), input); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Send(%q) err = %v, want ErrEmptyInput", input, err)
		}
	}
	if f.calls.Load() != 0 {
		t.Error("no network call expected for empty input")
	}
	if st.Count() != 0 {
		t.Error("no store mutation expected for empty input")
	}
}

func TestSend_DerivesTitleOnFirstMessage(t *testing.T) {
	f := &fakeCompleter{fragments: []string{"ok"}}
	ctrl, st := newTestController(f)

	input := "Let's plan a trip to the mountains for next weekend with the whole family"
	if err := ctrl.Send(context.Background(), input); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	active := st.EnsureActive()
	want := "Let's plan a trip to the mountains ..."
	if active.Title != want {
		t.Errorf("title = %q, want %q", active.Title, want)
	}

	// A second message must not re-derive the title.
	if err := ctrl.Send(context.Background(), "and pack warm clothes"); err != nil {
		t.Fatalf("second Send failed: %v", err)
	}
	if got := st.EnsureActive().Title; got != want {
		t.Errorf("title after second send = %q, want unchanged %q", got, want)
	}
}

func TestSend_CustomTitleNeverOverwritten(t *testing.T) {
	f := &fakeCompleter{fragments: []string{"ok"}}
	ctrl, st := newTestController(f)

	sess := ctrl.NewSession()
	if err := ctrl.RenameSession(sess.ID, "My plans"); err != nil {
		t.Fatalf("RenameSession failed: %v", err)
	}

	if err := ctrl.Send(context.Background(), "first message"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := st.Session(sess.ID).Title; got != "My plans" {
		t.Errorf("title = %q, want custom title preserved", got)
	}
}

func TestSend_AtMostOneInFlight(t *testing.T) {
	f := &fakeCompleter{fragments: []string{"slow"}, block: make(chan struct{})}
	ctrl, st := newTestController(f)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- ctrl.Send(context.Background(), "first")
	}()

	// Wait until the first send is visibly streaming.
	deadline := time.After(3 * time.Second)
	for ctrl.Live() == "" {
		select {
		case <-deadline:
			t.Fatal("first send never started streaming")
		case <-time.After(time.Millisecond):
		}
	}

	if err := ctrl.Send(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("second Send err = %v, want ErrBusy", err)
	}

	close(f.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Send failed: %v", err)
	}

	if f.calls.Load() != 1 {
		t.Errorf("network calls = %d, want exactly 1", f.calls.Load())
	}

	active := st.EnsureActive()
	assistants := 0
	for _, m := range active.Messages {
		if m.Role == model.RoleAssistant {
			assistants++
		}
	}
	if assistants != 1 {
		t.Errorf("assistant messages = %d, want exactly 1", assistants)
	}
}

func TestSend_FailureBecomesVisibleMessage(t *testing.T) {
	f := &fakeCompleter{err: &lmstudio.ClientError{
		Type:       lmstudio.ErrTypeHTTP,
		Message:    "completion request failed",
		StatusCode: 500,
		Body:       "internal error",
	}}
	ctrl, st := newTestController(f)

	err := ctrl.Send(context.Background(), "hi")
	if err == nil {
		t.Fatal("Send should propagate the stream error")
	}

	active := st.EnsureActive()
	last, ok := active.LastMessage()
	if !ok || last.Role != model.RoleAssistant {
		t.Fatal("failure should commit an assistant-role message")
	}
	if !strings.Contains(last.Content, "Sorry, I encountered an error") {
		t.Errorf("error message = %q", last.Content)
	}
	if !strings.Contains(last.Content, "500") || !strings.Contains(last.Content, "internal error") {
		t.Errorf("error message should embed status and body, got %q", last.Content)
	}

	if ctrl.Phase() != PhaseFailed {
		t.Errorf("phase = %v, want failed", ctrl.Phase())
	}
	if ctrl.Live() != "" {
		t.Error("live buffer should be cleared after failure")
	}
}

func TestSend_PartialFragmentsThenFailureStillVisible(t *testing.T) {
	f := &fakeCompleter{fragments: []string{"half a rep"}, err: errors.New("connection reset")}
	ctrl, st := newTestController(f)

	if err := ctrl.Send(context.Background(), "hi"); err == nil {
		t.Fatal("Send should fail")
	}

	last, _ := st.EnsureActive().LastMessage()
	if !strings.Contains(last.Content, "connection reset") {
		t.Errorf("transcript error = %q", last.Content)
	}
}

func TestSend_CancellationCommitsNothing(t *testing.T) {
	f := &fakeCompleter{fragments: []string{"partial "}, block: make(chan struct{})}
	ctrl, st := newTestController(f)

	done := make(chan error, 1)
	go func() {
		done <- ctrl.Send(context.Background(), "hi")
	}()

	deadline := time.After(3 * time.Second)
	for ctrl.Live() == "" {
		select {
		case <-deadline:
			t.Fatal("send never started streaming")
		case <-time.After(time.Millisecond):
		}
	}

	ctrl.CancelActive()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if ctrl.Phase() != PhaseAborted {
		t.Errorf("phase = %v, want aborted", ctrl.Phase())
	}

	active := st.EnsureActive()
	if len(active.Messages) != 1 {
		t.Fatalf("message count = %d, want only the user message", len(active.Messages))
	}
	if active.Messages[0].Role != model.RoleUser {
		t.Error("only the optimistic user message should remain")
	}
	if ctrl.Live() != "" {
		t.Error("live buffer should be cleared after abort")
	}
}

func TestSend_EmptyStreamCommitsNoAssistantMessage(t *testing.T) {
	f := &fakeCompleter{}
	ctrl, st := newTestController(f)

	if err := ctrl.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	active := st.EnsureActive()
	if len(active.Messages) != 1 {
		t.Errorf("message count = %d, want 1 (user only)", len(active.Messages))
	}
	if ctrl.Phase() != PhaseCompleted {
		t.Errorf("phase = %v, want completed", ctrl.Phase())
	}
}

func TestSend_OutboundExcludesNewMessageFromHistory(t *testing.T) {
	f := &fakeCompleter{fragments: []string{"reply"}}
	ctrl, _ := newTestController(f)

	if err := ctrl.Send(context.Background(), "only message"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	f.mu.Lock()
	sent := f.lastSent
	f.mu.Unlock()

	// system persona + the new input; the optimistic append must not leak
	// a duplicate user message into the payload.
	if len(sent) != 2 {
		t.Fatalf("outbound len = %d, want 2: %+v", len(sent), sent)
	}
	if sent[1].Content != "only message" {
		t.Errorf("outbound input = %q", sent[1].Content)
	}
}

func TestSend_UsesConfiguredOptions(t *testing.T) {
	f := &fakeCompleter{fragments: []string{"ok"}}
	st := store.New()
	ctrl := NewController(st, f, Config{
		Policy:  NewAlternatingPolicy(),
		Options: lmstudio.AssistantOptions(),
	})

	if err := ctrl.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	f.mu.Lock()
	opts := f.lastOpts
	f.mu.Unlock()
	if opts != lmstudio.AssistantOptions() {
		t.Errorf("opts = %+v, want assistant profile", opts)
	}
}

// =============================================================================
// UPDATE NOTIFICATION TESTS
// =============================================================================

func TestOnUpdateFiresDuringStreaming(t *testing.T) {
	var updates atomic.Int64
	f := &fakeCompleter{fragments: []string{"a", "b", "c"}}
	st := store.New()
	ctrl := NewController(st, f, Config{
		Policy:   NewFullHistoryPolicy(),
		OnUpdate: func() { updates.Add(1) },
	})

	if err := ctrl.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// At least one update per fragment, plus phase transitions.
	if updates.Load() < 3 {
		t.Errorf("updates = %d, want >= 3", updates.Load())
	}
}

// =============================================================================
// SESSION MANAGEMENT TESTS
// =============================================================================

func TestNewSessionBecomesActive(t *testing.T) {
	ctrl, st := newTestController(&fakeCompleter{})

	sess := ctrl.NewSession()
	if st.ActiveChatID() != sess.ID {
		t.Error("new session should become active")
	}
	if !sess.IsEmpty() {
		t.Error("new session should start empty without the greeting enabled")
	}
}

func TestSend_SeededGreetingStaysOutOfFullHistoryPayload(t *testing.T) {
	st := store.New()
	fake := &fakeCompleter{fragments: []string{"ok"}}
	ctrl := NewController(st, fake, Config{
		Policy:   NewFullHistoryPolicy(),
		Greeting: true,
	})
	ctrl.NewSession()

	if err := ctrl.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	fake.mu.Lock()
	sent := fake.lastSent
	fake.mu.Unlock()
	for i, m := range sent {
		if m.Role == "assistant" && m.Content == AssistantGreeting {
			t.Errorf("greeting leaked into outbound payload at index %d", i)
		}
	}
	if len(sent) != 2 {
		t.Errorf("payload len = %d, want persona + input only", len(sent))
	}
}

func TestNewSession_SeedsGreetingWhenEnabled(t *testing.T) {
	st := store.New()
	ctrl := NewController(st, &fakeCompleter{}, Config{Greeting: true})

	sess := ctrl.NewSession()
	last, ok := sess.LastMessage()
	if !ok {
		t.Fatal("greeting-enabled session should open with a message")
	}
	if last.Role != model.RoleAssistant || last.Content != AssistantGreeting {
		t.Errorf("opener = %q (%s), want the assistant greeting", last.Content, last.Role)
	}
}

func TestRenameSession_Validation(t *testing.T) {
	ctrl, st := newTestController(&fakeCompleter{})
	sess := ctrl.NewSession()

	if err := ctrl.RenameSession(sess.ID, "  "); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("err = %v, want ErrEmptyTitle", err)
	}
	if err := ctrl.RenameSession(sess.ID, "  Trimmed  "); err != nil {
		t.Fatalf("RenameSession failed: %v", err)
	}
	if got := st.Session(sess.ID).Title; got != "Trimmed" {
		t.Errorf("title = %q, want %q", got, "Trimmed")
	}
}

func TestPhaseString(t *testing.T) {
	phases := map[Phase]string{
		PhaseIdle:       "idle",
		PhaseRequesting: "requesting",
		PhaseStreaming:  "streaming",
		PhaseCompleted:  "completed",
		PhaseFailed:     "failed",
		PhaseAborted:    "aborted",
	}
	for p, want := range phases {
		if p.String() != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, p.String(), want)
		}
	}
}
