// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumia-app/mia-tui/internal/chat"
	"github.com/lumia-app/mia-tui/internal/config"
)

// Run starts the interactive interface and blocks until the user quits.
// Store changes made outside the update loop, such as file-watcher
// reloads, are forwarded into the program as messages.
func Run(ctrl *chat.Controller, cfg *config.Config) error {
	ctrl.Store().EnsureActive()

	p := tea.NewProgram(New(ctrl, cfg), tea.WithAltScreen())

	unsubscribe := ctrl.Store().Subscribe(func() {
		p.Send(storeChangedMsg{})
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
