// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/lumia-app/mia-tui/internal/chat"
	"github.com/lumia-app/mia-tui/internal/model"
)

// ============================================================================
// VIEW
// ============================================================================

// View renders the full screen.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	main := m.viewport.View()
	if m.sidebarVisible() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
	} else if m.state == StateSidebar || m.state == StateConfirmDelete || m.state == StateTitleEdit {
		main = m.renderSessionList(m.viewport.Width, m.viewport.Height)
	}
	b.WriteString(main)
	b.WriteString("\n")

	switch m.state {
	case StateTitleEdit:
		b.WriteString(m.renderTitleEditor())
	case StateConfirmDelete:
		b.WriteString(m.renderConfirm())
	default:
		b.WriteString(m.renderInput())
	}
	b.WriteString("\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.theme.HelpBar.Render(m.helpText()))

	return b.String()
}

func (m Model) renderHeader() string {
	title := "New Chat"
	if s := m.activeSession(); s != nil {
		title = s.Title
	}
	left := m.theme.Header.Render("mia")
	right := m.theme.Timestamp.Render(runewidth.Truncate(title, 60, "..."))
	return left + " " + right
}

func (m Model) renderInput() string {
	box := m.theme.InputBox
	if m.state == StateInput {
		box = m.theme.InputBoxActive
	}
	return box.Width(m.width - 2).Render(m.input.View())
}

func (m Model) renderTitleEditor() string {
	label := m.theme.AssistantLabel.Render("Rename session")
	return m.theme.TitleEditor.Width(m.width - 2).
		Render(label + "\n" + m.titleInput.View())
}

func (m Model) renderConfirm() string {
	title := ""
	if s := m.ctrl.Store().Session(m.targetID); s != nil {
		title = s.Title
	}
	prompt := fmt.Sprintf("Delete %q? This cannot be undone.  [y/n]", title)
	return m.theme.ConfirmBox.Render(m.theme.ErrorText.Render(prompt))
}

func (m Model) renderStatusBar() string {
	if m.status != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.status)
	}
	indicator := "●  idle"
	if m.state == StateStreaming {
		indicator = m.spinner.View() + "  streaming"
	}
	count := m.ctrl.Store().Count()
	right := fmt.Sprintf("%d session(s)", count)
	gap := m.width - lipgloss.Width(indicator) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).
		Render(indicator + strings.Repeat(" ", gap) + right)
}

func (m Model) helpText() string {
	switch m.state {
	case StateStreaming:
		return "esc cancel • pgup/pgdn scroll"
	case StateSidebar:
		return "j/k move • enter open • n new • r rename • d delete • esc back"
	case StateTitleEdit:
		return "enter save • esc cancel"
	case StateConfirmDelete:
		return "y confirm • n cancel"
	default:
		return "enter send • tab sessions • ctrl+n new chat • ctrl+c quit"
	}
}

// ============================================================================
// SIDEBAR
// ============================================================================

func (m Model) renderSidebar() string {
	inner := sidebarWidth - 4
	return m.theme.SidebarBox.
		Width(sidebarWidth - 2).
		Height(m.viewport.Height - 2).
		Render(m.renderSessionList(inner, m.viewport.Height-2))
}

func (m Model) renderSessionList(width, height int) string {
	sessions := m.ctrl.Store().Sessions()
	if len(sessions) == 0 {
		return m.theme.SessionItem.Render("No sessions yet")
	}

	active := m.ctrl.Store().ActiveChatID()
	lines := make([]string, 0, len(sessions))
	for i, s := range sessions {
		marker := "  "
		if s.ID == active {
			marker = m.theme.SessionActive.Render("● ")
		}
		label := runewidth.Truncate(s.Title, width-4, "...")
		style := m.theme.SessionItem
		if i == m.selected && (m.state == StateSidebar || m.state == StateConfirmDelete || m.state == StateTitleEdit) {
			style = m.theme.SessionSelected
		}
		lines = append(lines, marker+style.Render(label))
		if len(lines) >= height && height > 0 {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// ============================================================================
// TRANSCRIPT
// ============================================================================

// refreshViewport rebuilds the transcript content and keeps the view
// pinned to the bottom so new tokens stay visible.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m *Model) activeSession() *model.ChatSession {
	st := m.ctrl.Store()
	return st.Session(st.ActiveChatID())
}

func (m Model) renderTranscript(width int) string {
	session := m.activeSession()
	if session == nil || len(session.Messages) == 0 {
		if live := m.ctrl.Live(); live == "" && m.state != StateStreaming {
			return m.theme.SystemText.Render("Start the conversation by typing below.")
		}
	}

	var parts []string
	if session != nil {
		for _, msg := range session.Messages {
			parts = append(parts, m.renderMessage(msg, width))
		}
	}

	if m.state == StateStreaming {
		label := m.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName())
		body := m.ctrl.Live()
		if body == "" {
			body = m.spinner.View()
		}
		parts = append(parts, label+"\n"+m.theme.AssistantText.Width(width-2).Render(body))
	}

	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg model.Message, width int) string {
	var label, body string
	switch {
	case msg.Role == model.RoleUser:
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
		body = m.theme.UserBubble.Width(width - 4).Render(msg.Content)
	case strings.HasPrefix(msg.Content, chat.ErrorMessagePrefix):
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
		body = m.theme.ErrorText.Width(width - 2).Render(msg.Content)
	default:
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
		body = m.theme.AssistantText.Width(width - 2).Render(msg.Content)
	}

	if m.cfg != nil && m.cfg.UI.ShowTimestamps && msg.Timestamp != "" {
		label += "  " + m.theme.Timestamp.Render(msg.Timestamp)
	}
	return label + "\n" + body
}
