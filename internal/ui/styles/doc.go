// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the personachat TUI.

Colors are Lip Gloss AdaptiveColor values, so they follow the terminal's
light or dark background. NewTheme can force either mode from the ui.theme
setting.

# Colors

  - Cyan - brand and outgoing (user) bubbles
  - Purple - incoming (assistant) bubbles and the persona picker
  - Amber - reply pending
  - Rose - failed state
  - Emerald - ready state

# Usage

	theme := styles.NewTheme(cfg.UI.Theme)
	bubble := theme.AssistantBubble.Width(styles.BubbleWidth(width)).Render(text)
*/
package styles
