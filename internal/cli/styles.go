// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/personachat/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// Shared styles for line-oriented output.
var (
	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(styles.Cyan)
	LabelStyle     = lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(16)
	DimStyle       = lipgloss.NewStyle().Foreground(styles.TextMuted)
	ErrorStyle     = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	PromptStyle    = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	AssistantStyle = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	TypingStyle    = lipgloss.NewStyle().Foreground(styles.Amber).Italic(true)
)
