// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/personachat/internal/session"
	"github.com/jeranaias/personachat/internal/ui/styles"
	"github.com/jeranaias/personachat/internal/ui/view"
)

// Layout rows outside the viewport: header, typing/error line, input, status bar.
const chromeHeight = 6

// Options configures the chat view.
type Options struct {
	// Personas are the catalog names in display order.
	Personas []string
	Theme    *styles.Theme
	// Markdown renders assistant replies through glamour.
	Markdown       bool
	ShowTimestamps bool
	// Backend is shown in the header, e.g. "openai/gpt-3.5-turbo".
	Backend string
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx    context.Context
	driver Driver
	opts   Options
	theme  *styles.Theme
	keys   KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	md       *glamour.TermRenderer

	snap   session.Snapshot
	view   view.View
	picker picker

	// notice is a transient message for errors that do not fail the session,
	// such as an unknown persona.
	notice string

	width, height int
	sized         bool
}

// New creates the chat model. The first snapshot is read from d.
func New(ctx context.Context, d Driver, opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("auto")
	}

	ti := textinput.New()
	ti.Placeholder = "Type a message"
	ti.Prompt = "> "
	ti.PromptStyle = opts.Theme.InputPrompt
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
		FPS:    time.Second / 6,
	}
	sp.Style = opts.Theme.Typing

	m := Model{
		ctx:      ctx,
		driver:   d,
		opts:     opts,
		theme:    opts.Theme,
		keys:     DefaultKeyMap(),
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
	m.applySnapshot(d.Snapshot())
	return m
}

// Init starts the cursor blink and, on first mount, initializes the driver.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.snap.State == session.StateUninitialized {
		cmds = append(cmds, initCmd(m.ctx, m.driver))
	}
	if m.view.Typing {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// ViewState returns the projection currently drawn.
func (m Model) ViewState() view.View {
	return m.view
}

// PickerOpen reports whether the persona picker is showing.
func (m Model) PickerOpen() bool {
	return m.picker.open
}

// applySnapshot installs a new snapshot and re-derives everything drawn from it.
// It returns a spinner tick when the typing indicator just appeared.
func (m *Model) applySnapshot(snap session.Snapshot) tea.Cmd {
	if snap.Version < m.snap.Version && snap.SessionID == m.snap.SessionID {
		return nil
	}
	wasTyping := m.view.Typing
	m.snap = snap
	m.view = view.Render(snap, m.opts.Personas)

	if m.view.InputEnabled {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	if m.view.CanRetry {
		m.notice = ""
	}

	m.refreshViewport()

	if m.view.Typing && !wasTyping {
		return m.spinner.Tick
	}
	return nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.sized = true

	m.viewport.Width = width
	vh := height - chromeHeight
	if vh < 3 {
		vh = 3
	}
	m.viewport.Height = vh
	m.input.Width = width - 4

	m.md = nil
	if m.opts.Markdown {
		style := "light"
		if m.theme.IsDark {
			style = "dark"
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(styles.BubbleWidth(width)-4),
		)
		if err == nil {
			m.md = r
		}
	}
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
