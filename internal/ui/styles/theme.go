// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the Lip Gloss styles used by the chat view.
type Theme struct {
	IsDark bool

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SenderUser      lipgloss.Style
	SenderAssistant lipgloss.Style
	Timestamp       lipgloss.Style

	Typing    lipgloss.Style
	ErrorLine lipgloss.Style
	Hint      lipgloss.Style

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	InputDisabled  lipgloss.Style

	Picker         lipgloss.Style
	PickerTitle    lipgloss.Style
	PickerItem     lipgloss.Style
	PickerSelected lipgloss.Style
	PickerCurrent  lipgloss.Style

	StatusBar     lipgloss.Style
	StatusReady   lipgloss.Style
	StatusPending lipgloss.Style
	StatusFailed  lipgloss.Style
}

// NewTheme builds a theme for mode "dark", "light" or "auto". Auto asks the
// terminal for its background.
func NewTheme(mode string) *Theme {
	var isDark bool
	switch mode {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderMeta = lipgloss.NewStyle().Foreground(TextSecondary)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)
	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1)
	t.SenderUser = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.SenderAssistant = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

	t.Typing = lipgloss.NewStyle().Foreground(Amber).Italic(true)
	t.ErrorLine = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.InputDisabled = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.Picker = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 2)
	t.PickerTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple).MarginBottom(1)
	t.PickerItem = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.PickerSelected = lipgloss.NewStyle().
		Foreground(Purple).
		Background(SelectionBg).
		Bold(true).
		PaddingLeft(2)
	t.PickerCurrent = lipgloss.NewStyle().Foreground(TextMuted)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusReady = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.StatusPending = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.StatusFailed = lipgloss.NewStyle().Foreground(Rose).Bold(true)
}

// BubbleWidth returns the bubble width for a terminal width, leaving room for
// the indent that separates outgoing from incoming bubbles.
func BubbleWidth(termWidth int) int {
	w := termWidth * 3 / 4
	if w < 20 {
		w = termWidth - 2
	}
	if w < 10 {
		w = 10
	}
	return w
}
