// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/lumia-app/mia-tui/internal/chat"
	"github.com/lumia-app/mia-tui/internal/config"
	"github.com/lumia-app/mia-tui/internal/lmstudio"
	"github.com/lumia-app/mia-tui/internal/model"
	"github.com/lumia-app/mia-tui/internal/store"
)

// scriptedCompleter plays back a fixed response without a server.
type scriptedCompleter struct {
	fragments []string
	err       error
}

func (s *scriptedCompleter) ChatStream(ctx context.Context, msgs []lmstudio.Message, opts lmstudio.Options, cb lmstudio.StreamCallback) error {
	for _, f := range s.fragments {
		cb(lmstudio.StreamChunk{Content: f})
	}
	if s.err != nil {
		return s.err
	}
	cb(lmstudio.StreamChunk{Done: true})
	return nil
}

func newTestModel(t *testing.T, fragments ...string) (Model, *store.Store) {
	t.Helper()
	st := store.New()
	ctrl := chat.NewController(st, &scriptedCompleter{fragments: fragments}, chat.Config{})
	cfg := config.Default()
	m := New(ctrl, cfg)

	resized, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return resized.(Model), st
}

func key(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	panic("unknown key: " + s)
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

// drain executes a command tree and feeds every resulting message back
// into the model, skipping timer-based ticks so tests stay instant.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c != nil {
				m = drain(t, m, c)
			}
		}
		return m
	}
	switch msg.(type) {
	case streamTickMsg, statusClearMsg:
		return m
	}
	next, follow := m.Update(msg)
	m = next.(Model)
	switch msg.(type) {
	case streamDoneMsg:
		return m
	}
	_ = follow
	return m
}

// ============================================================================
// LAYOUT AND STATE
// ============================================================================

func TestNewModel_StartsInInputState(t *testing.T) {
	m, _ := newTestModel(t)
	if m.state != StateInput {
		t.Errorf("state = %v, want StateInput", m.state)
	}
	if !m.ready {
		t.Error("model should be ready after resize")
	}
}

func TestResize_ReservesChromeRows(t *testing.T) {
	m, _ := newTestModel(t)
	// 120 columns is wide enough for the sidebar.
	require.Equal(t, 120-sidebarWidth, m.viewport.Width)
	require.Equal(t, 40-reservedHeight, m.viewport.Height)
}

func TestResize_NarrowHidesSidebar(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	if m.sidebarVisible() {
		t.Error("sidebar should be hidden below the breakpoint")
	}
	require.Equal(t, 80, m.viewport.Width)
}

func TestTabTogglesSidebarFocus(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, "tab")
	if m.state != StateSidebar {
		t.Fatalf("state = %v, want StateSidebar", m.state)
	}
	m, _ = press(t, m, "esc")
	if m.state != StateInput {
		t.Fatalf("state = %v, want StateInput", m.state)
	}
}

// ============================================================================
// SESSION MANAGEMENT
// ============================================================================

func seedThree(st *store.Store) {
	for _, title := range []string{"First", "Second", "Third"} {
		s := model.NewChatSession()
		s.Title = title
		st.AddSession(s)
	}
}

func TestSidebarNavigation_StaysInBounds(t *testing.T) {
	m, st := newTestModel(t)
	seedThree(st)

	m, _ = press(t, m, "tab")
	m, _ = press(t, m, "up", "up")
	require.Equal(t, 0, m.selected)

	m, _ = press(t, m, "down", "down", "down", "down")
	require.Equal(t, 2, m.selected)
}

func TestSidebarEnter_ActivatesSelection(t *testing.T) {
	m, st := newTestModel(t)
	seedThree(st)

	m, _ = press(t, m, "tab", "down", "enter")
	sessions := st.Sessions()
	require.Equal(t, sessions[1].ID, st.ActiveChatID())
	require.Equal(t, StateInput, m.state)
}

func TestCtrlN_CreatesSession(t *testing.T) {
	m, st := newTestModel(t)
	before := st.Count()
	m, _ = press(t, m, "ctrl+n")
	require.Equal(t, before+1, st.Count())
	require.Equal(t, 0, m.selected)
}

func TestDeleteFlow_ConfirmRemovesSession(t *testing.T) {
	m, st := newTestModel(t)
	seedThree(st)
	doomed := st.Sessions()[0].ID

	m, _ = press(t, m, "tab", "d")
	require.Equal(t, StateConfirmDelete, m.state)

	m, _ = press(t, m, "y")
	require.Equal(t, StateSidebar, m.state)
	require.Equal(t, 2, st.Count())
	require.Nil(t, st.Session(doomed))
}

func TestDeleteFlow_DeclineKeepsSession(t *testing.T) {
	m, st := newTestModel(t)
	seedThree(st)

	m, _ = press(t, m, "tab", "d", "n")
	require.Equal(t, StateSidebar, m.state)
	require.Equal(t, 3, st.Count())
}

func TestRenameFlow_CommitsNewTitle(t *testing.T) {
	m, st := newTestModel(t)
	seedThree(st)
	target := st.Sessions()[0]

	m, _ = press(t, m, "tab", "r")
	require.Equal(t, StateTitleEdit, m.state)
	require.Equal(t, target.Title, m.titleInput.Value())

	m.titleInput.SetValue("Weekend plans")
	m, _ = press(t, m, "enter")
	require.Equal(t, StateSidebar, m.state)
	require.Equal(t, "Weekend plans", st.Sessions()[0].Title)
}

func TestRenameFlow_EmptyTitleRejected(t *testing.T) {
	m, st := newTestModel(t)
	seedThree(st)

	m, _ = press(t, m, "tab", "r")
	m.titleInput.SetValue("   ")
	m, _ = press(t, m, "enter")
	require.Equal(t, StateTitleEdit, m.state)
	require.NotEmpty(t, m.status)
}

func TestRenameFlow_EscapeDiscardsEdit(t *testing.T) {
	m, st := newTestModel(t)
	seedThree(st)
	original := st.Sessions()[0].Title

	m, _ = press(t, m, "tab", "r")
	m.titleInput.SetValue("Discarded")
	m, _ = press(t, m, "esc")
	require.Equal(t, StateSidebar, m.state)
	require.Equal(t, original, st.Sessions()[0].Title)
}

// ============================================================================
// SENDING AND STREAMING
// ============================================================================

func TestSubmit_EmptyInputIsNoop(t *testing.T) {
	m, _ := newTestModel(t)
	m.input.SetValue("   ")
	m, cmd := press(t, m, "enter")
	require.Equal(t, StateInput, m.state)
	require.Nil(t, cmd)
}

func TestSubmit_RunsFullRoundTrip(t *testing.T) {
	m, st := newTestModel(t, "Hello ", "there")
	st.EnsureActive()

	m.input.SetValue("hi")
	m, cmd := press(t, m, "enter")
	require.Equal(t, StateStreaming, m.state)
	require.Empty(t, m.input.Value())

	m = drain(t, m, cmd)
	require.Equal(t, StateInput, m.state)

	active := st.Session(st.ActiveChatID())
	require.NotNil(t, active)
	last, ok := active.LastMessage()
	require.True(t, ok)
	require.Equal(t, model.RoleAssistant, last.Role)
	require.Equal(t, "Hello there", last.Content)
}

func TestTranscript_ShowsErrorMessages(t *testing.T) {
	m, st := newTestModel(t)
	s := st.EnsureActive()
	require.NoError(t, st.AddMessage(s.ID, model.NewAssistantMessage(
		chat.ErrorMessagePrefix+"connection refused")))

	out := m.renderTranscript(80)
	if !strings.Contains(out, "connection refused") {
		t.Errorf("transcript missing error content:\n%s", out)
	}
}

func TestView_RendersWithoutPanic(t *testing.T) {
	m, st := newTestModel(t)
	st.EnsureActive()
	for _, state := range []State{StateInput, StateStreaming, StateSidebar, StateTitleEdit, StateConfirmDelete} {
		m.state = state
		out := m.View()
		if out == "" {
			t.Errorf("empty view in state %v", state)
		}
	}
}

func TestTranscript_ShowsTimestampsWhenEnabled(t *testing.T) {
	m, st := newTestModel(t)
	s := st.EnsureActive()
	msg := model.NewUserMessage("timestamped")
	msg.Timestamp = "09:26"
	require.NoError(t, st.AddMessage(s.ID, msg))

	m.cfg.UI.ShowTimestamps = true
	require.Contains(t, m.renderTranscript(80), "09:26")

	m.cfg.UI.ShowTimestamps = false
	require.NotContains(t, m.renderTranscript(80), "09:26")
}
