// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	assert.True(t, NewTheme("dark").IsDark)
	assert.False(t, NewTheme("light").IsDark)
}

func TestBubbleWidth(t *testing.T) {
	assert.Equal(t, 60, BubbleWidth(80))
	assert.Equal(t, 18, BubbleWidth(20))
	assert.Equal(t, 10, BubbleWidth(5))
}

func TestRenderError(t *testing.T) {
	out := RenderError("connection refused")
	assert.True(t, strings.Contains(out, "connection refused"))
	assert.True(t, strings.Contains(out, StatusIndicators.Error))
}
