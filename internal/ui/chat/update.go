// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/personachat/internal/driver"
	"github.com/jeranaias/personachat/internal/ui/view"
)

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case SnapshotMsg:
		cmd := m.applySnapshot(snapshotOf(msg))
		return m, cmd

	case OpResultMsg:
		return m.handleResult(msg), nil

	case spinner.TickMsg:
		if !m.view.Typing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.picker.open {
			return m.handlePickerKey(msg)
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleResult(msg OpResultMsg) Model {
	if msg.Err == nil {
		m.notice = ""
		return m
	}
	if driver.IsNoop(msg.Err) {
		log.Debug().Err(msg.Err).Str("op", msg.Op).Msg("ignored")
		return m
	}
	// Provider failures are already reflected in the snapshot.
	if !m.driver.Snapshot().Failed() {
		m.notice = msg.Err.Error()
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Personas):
		m.picker.openAt(m.view.PersonaOptions, m.view.Persona)
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		if !m.view.CanRetry {
			return m, nil
		}
		return m, retryCmd(m.ctx, m.driver)

	case key.Matches(msg, m.keys.Submit):
		if !m.view.InputEnabled {
			return m, nil
		}
		text, ok := view.Submission(m.input.Value())
		if !ok {
			return m, nil
		}
		m.input.Reset()
		m.notice = ""
		return m, submitCmd(m.ctx, m.driver, text)

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if !m.view.InputEnabled {
		return m, nil
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.driver.SetInput(after)
	}
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.PickerUp):
		m.picker.move(-1)
	case key.Matches(msg, m.keys.PickerDown):
		m.picker.move(1)
	case key.Matches(msg, m.keys.PickerClose):
		m.picker.close()
	case key.Matches(msg, m.keys.PickerSelect):
		choice := m.picker.selected()
		m.picker.close()
		m.refreshViewport()
		if choice == "" {
			return m, nil
		}
		m.input.Reset()
		m.notice = ""
		return m, personaCmd(m.ctx, m.driver, choice)
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	}
	m.refreshViewport()
	return m, nil
}
