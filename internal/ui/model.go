// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumia-app/mia-tui/internal/chat"
	"github.com/lumia-app/mia-tui/internal/config"
	"github.com/lumia-app/mia-tui/internal/model"
	"github.com/lumia-app/mia-tui/internal/ui/styles"
)

// ============================================================================
// STATES
// ============================================================================

// State represents the current interaction mode of the TUI.
type State int

const (
	// StateInput is the default mode, typing into the message box.
	StateInput State = iota
	// StateStreaming is active while a response is being received.
	StateStreaming
	// StateSidebar is active while navigating the session list.
	StateSidebar
	// StateTitleEdit is active while renaming a session.
	StateTitleEdit
	// StateConfirmDelete is active while a delete prompt is shown.
	StateConfirmDelete
)

// ============================================================================
// MESSAGES
// ============================================================================

// streamTickMsg drives transcript refreshes while a response streams.
// Rendering on a timer instead of per token keeps redraw cost bounded.
type streamTickMsg time.Time

// streamDoneMsg is emitted when the in-flight request finishes.
type streamDoneMsg struct {
	err error
}

// storeChangedMsg is emitted when the session store changes outside of
// the update loop, such as a reload triggered by the file watcher.
type storeChangedMsg struct{}

// statusClearMsg clears a transient status line message.
type statusClearMsg struct{}

// streamFrameInterval is roughly 30 frames per second.
const streamFrameInterval = 33 * time.Millisecond

// statusDuration is how long a transient status message stays visible.
const statusDuration = 3 * time.Second

// ============================================================================
// LAYOUT CONSTANTS
// ============================================================================

const (
	headerHeight = 1
	statusHeight = 1
	helpHeight   = 1
	// Input box is one line of text plus its border.
	inputHeight = 3

	reservedHeight = headerHeight + statusHeight + helpHeight + inputHeight

	// Sidebar is rendered alongside the transcript on wide terminals.
	sidebarWidth    = 30
	wideBreakpoint  = 100
	minViewportCols = 20
)

// ============================================================================
// MODEL
// ============================================================================

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	ctrl *chat.Controller
	cfg  *config.Config

	state State

	viewport   viewport.Model
	input      textinput.Model
	titleInput textinput.Model
	spinner    spinner.Model
	theme      *styles.Theme

	width  int
	height int
	ready  bool

	// Sidebar selection index into the store's session order.
	selected int
	// Session targeted by rename or delete while the dialog is open.
	targetID string

	status string
}

// New builds the initial model. The controller owns all chat state; the
// model only renders it and translates key presses into operations.
func New(ctrl *chat.Controller, cfg *config.Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	edit := textinput.New()
	edit.Placeholder = "Session title"
	edit.Prompt = "> "
	edit.CharLimit = 120

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}

	theme := styles.NewTheme()
	sp.Style = theme.Spinner

	vp := viewport.New(80, 20)

	return Model{
		ctrl:       ctrl,
		cfg:        cfg,
		state:      StateInput,
		viewport:   vp,
		input:      ti,
		titleInput: edit,
		spinner:    sp,
		theme:      theme,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// ============================================================================
// UPDATE
// ============================================================================

// Update handles incoming messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamTickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		m.refreshViewport()
		return m, streamTick()

	case streamDoneMsg:
		m.state = StateInput
		m.input.Focus()
		m.refreshViewport()
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, context.Canceled):
			m.status = "Response cancelled"
			return m, clearStatusAfter()
		case errors.Is(msg.err, chat.ErrBusy), errors.Is(msg.err, chat.ErrEmptyInput):
			// Guarded before dispatch; nothing to report.
		default:
			// The failure is already part of the transcript.
			m.status = "Request failed"
			return m, clearStatusAfter()
		}
		return m, nil

	case storeChangedMsg:
		m.clampSelection()
		m.refreshViewport()
		return m, nil

	case statusClearMsg:
		m.status = ""
		return m, nil

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

// updateFocused routes non-key messages to whichever component has focus.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state {
	case StateTitleEdit:
		m.titleInput, cmd = m.titleInput.Update(msg)
	default:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	vpWidth := msg.Width
	if m.sidebarVisible() {
		vpWidth -= sidebarWidth
	}
	if vpWidth < minViewportCols {
		vpWidth = minViewportCols
	}
	vpHeight := msg.Height - reservedHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.input.Width = msg.Width - 6
	m.titleInput.Width = msg.Width/2 - 6
	m.refreshViewport()
}

func (m Model) sidebarVisible() bool {
	return m.width >= wideBreakpoint
}

// ============================================================================
// KEY HANDLING
// ============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case StateStreaming:
		return m.handleStreamingKey(msg)
	case StateSidebar:
		return m.handleSidebarKey(msg)
	case StateTitleEdit:
		return m.handleTitleEditKey(msg)
	case StateConfirmDelete:
		return m.handleConfirmKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		return m.submit()

	case "esc", "tab":
		m.state = StateSidebar
		m.input.Blur()
		m.syncSelectionToActive()
		return m, nil

	case "ctrl+n":
		m.ctrl.NewSession()
		m.selected = 0
		m.refreshViewport()
		return m, nil

	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleStreamingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.ctrl.CancelActive()
		return m, nil

	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	// Typing ahead while streaming is allowed.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.ctrl.Store().Sessions()

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc", "tab":
		m.state = StateInput
		m.input.Focus()
		return m, textinput.Blink

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case "down", "j":
		if m.selected < len(sessions)-1 {
			m.selected++
		}
		return m, nil

	case "enter":
		if s := m.selectedSession(sessions); s != nil {
			m.ctrl.Store().SetActiveChat(s.ID)
		}
		m.state = StateInput
		m.input.Focus()
		m.refreshViewport()
		return m, textinput.Blink

	case "n":
		m.ctrl.NewSession()
		m.selected = 0
		m.refreshViewport()
		return m, nil

	case "r":
		if s := m.selectedSession(sessions); s != nil {
			m.state = StateTitleEdit
			m.targetID = s.ID
			m.titleInput.SetValue(s.Title)
			m.titleInput.Focus()
			return m, textinput.Blink
		}
		return m, nil

	case "d":
		if s := m.selectedSession(sessions); s != nil {
			m.state = StateConfirmDelete
			m.targetID = s.ID
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleTitleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		title := strings.TrimSpace(m.titleInput.Value())
		if err := m.ctrl.RenameSession(m.targetID, title); err != nil {
			m.status = "Title cannot be empty"
			return m, clearStatusAfter()
		}
		m.state = StateSidebar
		m.titleInput.Blur()
		m.targetID = ""
		return m, nil

	case "esc":
		m.state = StateSidebar
		m.titleInput.Blur()
		m.targetID = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if err := m.ctrl.DeleteSession(m.targetID); err != nil {
			m.status = "Delete failed"
		} else {
			m.status = "Session deleted"
		}
		m.state = StateSidebar
		m.targetID = ""
		m.clampSelection()
		m.refreshViewport()
		return m, clearStatusAfter()

	case "n", "N", "esc":
		m.state = StateSidebar
		m.targetID = ""
		return m, nil
	}
	return m, nil
}

// ============================================================================
// COMMANDS
// ============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.ctrl.Busy() {
		m.status = "Still responding, press Esc to cancel"
		return m, clearStatusAfter()
	}

	m.input.SetValue("")
	m.state = StateStreaming
	m.refreshViewport()

	send := func() tea.Msg {
		return streamDoneMsg{err: m.ctrl.Send(context.Background(), text)}
	}
	return m, tea.Batch(send, m.spinner.Tick, streamTick())
}

func streamTick() tea.Cmd {
	return tea.Tick(streamFrameInterval, func(t time.Time) tea.Msg {
		return streamTickMsg(t)
	})
}

func clearStatusAfter() tea.Cmd {
	return tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return statusClearMsg{}
	})
}

// ============================================================================
// SELECTION HELPERS
// ============================================================================

func (m Model) selectedSession(sessions []*model.ChatSession) *model.ChatSession {
	if m.selected < 0 || m.selected >= len(sessions) {
		return nil
	}
	return sessions[m.selected]
}

func (m *Model) clampSelection() {
	count := m.ctrl.Store().Count()
	if count == 0 {
		m.selected = 0
		return
	}
	if m.selected >= count {
		m.selected = count - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) syncSelectionToActive() {
	active := m.ctrl.Store().ActiveChatID()
	for i, s := range m.ctrl.Store().Sessions() {
		if s.ID == active {
			m.selected = i
			return
		}
	}
	m.selected = 0
}
