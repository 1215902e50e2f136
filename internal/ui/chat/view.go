// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/personachat/internal/ui/styles"
	"github.com/jeranaias/personachat/internal/ui/view"
)

// View renders the model.
func (m Model) View() string {
	width := m.width
	if !m.sized {
		width = 80
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")
	if m.picker.open {
		b.WriteString(m.renderPicker())
	} else {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderActivity())
	b.WriteString("\n")
	b.WriteString(m.renderInput(width))
	b.WriteString("\n")
	b.WriteString(m.renderStatus(width))
	return b.String()
}

func (m Model) renderHeader(width int) string {
	title := m.theme.HeaderTitle.Render("personachat")
	meta := "persona: " + m.view.Persona
	if m.opts.Backend != "" {
		meta += "  |  " + m.opts.Backend
	}
	// Keep the header on one line; persona names and model ids can be long.
	room := width - runewidth.StringWidth("personachat") - 6
	if room < 10 {
		room = 10
	}
	meta = runewidth.Truncate(meta, room, "...")
	return m.theme.Header.Width(width).Render(title + "  " + m.theme.HeaderMeta.Render(meta))
}

// renderTranscript draws one bubble per visible message.
func (m Model) renderTranscript() string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	bw := styles.BubbleWidth(width)

	parts := make([]string, 0, len(m.view.Bubbles))
	for _, bubble := range m.view.Bubbles {
		parts = append(parts, m.renderBubble(bubble, bw, width))
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderBubble(bubble view.Bubble, bubbleWidth, width int) string {
	senderStyle, bodyStyle := m.theme.SenderAssistant, m.theme.AssistantBubble
	if bubble.Outgoing() {
		senderStyle, bodyStyle = m.theme.SenderUser, m.theme.UserBubble
	}

	label := senderStyle.Render(bubble.Sender)
	if m.opts.ShowTimestamps && bubble.Time != "" {
		label += " " + m.theme.Timestamp.Render(bubble.Time)
	}

	text := bubble.Text
	if !bubble.Outgoing() {
		text = m.renderMarkdown(text)
	}
	box := lipgloss.JoinVertical(lipgloss.Left, label, bodyStyle.Width(bubbleWidth).Render(text))

	if bubble.Outgoing() {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, box)
	}
	return box
}

// renderMarkdown renders assistant text through glamour when enabled.
// Returns the original content if rendering fails or the renderer is unavailable.
func (m Model) renderMarkdown(content string) string {
	if m.md == nil {
		return content
	}
	out, err := m.md.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// renderActivity is the typing indicator, the failure line, or a notice.
func (m Model) renderActivity() string {
	switch {
	case m.view.Typing:
		who := m.view.Persona
		if who == view.NoPersonaOption {
			who = "assistant"
		}
		return m.spinner.View() + " " + m.theme.Typing.Render(who+" is typing")
	case m.view.CanRetry:
		return styles.RenderError(m.view.Error) + "  " +
			m.theme.Hint.Render("ctrl+r retry  ctrl+p change persona")
	case m.notice != "":
		return m.theme.ErrorLine.Render(m.notice)
	}
	return ""
}

func (m Model) renderInput(width int) string {
	var line string
	switch {
	case m.view.InputEnabled:
		line = m.input.View()
	case m.view.CanRetry:
		line = m.theme.InputDisabled.Render("> press ctrl+r to retry")
	default:
		line = m.theme.InputDisabled.Render("> waiting for reply...")
	}
	return m.theme.InputContainer.Width(width).Render(line)
}

func (m Model) renderStatus(width int) string {
	var state string
	switch {
	case m.view.CanRetry:
		state = m.theme.StatusFailed.Render(styles.StatusIndicators.Error + " failed")
	case m.view.Typing:
		state = m.theme.StatusPending.Render(styles.StatusIndicators.Pending + " " + m.view.State)
	default:
		state = m.theme.StatusReady.Render(styles.StatusIndicators.Ready + " " + m.view.State)
	}

	var hints []string
	for _, k := range m.keys.ShortHelp(m.view.CanRetry) {
		h := k.Help()
		hints = append(hints, h.Key+" "+h.Desc)
	}
	return m.theme.StatusBar.Width(width).Render(state + "  " + strings.Join(hints, "  "))
}

func (m Model) renderPicker() string {
	var b strings.Builder
	b.WriteString(m.theme.PickerTitle.Render("Choose a persona"))
	b.WriteString("\n")
	for i, opt := range m.picker.options {
		line := opt
		if opt == m.view.Persona {
			line += m.theme.PickerCurrent.Render("  (current)")
		}
		if i == m.picker.cursor {
			b.WriteString(m.theme.PickerSelected.Render("> " + line))
		} else {
			b.WriteString(m.theme.PickerItem.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return m.theme.Picker.Render(strings.TrimRight(b.String(), "\n"))
}
