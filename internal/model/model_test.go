// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRole_Direction(t *testing.T) {
	assert.Equal(t, DirectionOutgoing, RoleUser.Direction())
	assert.Equal(t, DirectionIncoming, RoleAssistant.Direction())
	assert.Equal(t, DirectionIncoming, RoleSystem.Direction())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.True(t, RoleSystem.Valid())
	assert.False(t, Role("tool").Valid())
}

func TestLabels_For(t *testing.T) {
	labels := DefaultLabels()
	assert.Equal(t, "User", labels.For(RoleUser))
	assert.Equal(t, "ChatGPT", labels.For(RoleAssistant))
	assert.Equal(t, "System", labels.For(RoleSystem))

	custom := Labels{Assistant: "Hermione"}
	assert.Equal(t, "Hermione", custom.For(RoleAssistant))
	assert.Equal(t, "User", custom.For(RoleUser), "empty labels fall back to defaults")
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	before := time.Now()
	msg := NewMessage(RoleUser, "User", "Hello")

	assert.True(t, strings.HasPrefix(msg.ID, "msg_"))
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "Hello", msg.Content)
	assert.Equal(t, "User", msg.Sender)
	assert.False(t, msg.Timestamp.Before(before))
	assert.True(t, msg.Outgoing())

	other := NewMessage(RoleUser, "User", "Hello")
	assert.NotEqual(t, msg.ID, other.ID, "IDs must be unique")
}

func TestMessage_SentTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 14, 5, 9, 0, time.Local)
	msg := Message{Timestamp: ts}
	assert.Equal(t, "14:05:09", msg.SentTime())
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscript_AppendKeepsOrder(t *testing.T) {
	var tr Transcript
	require.True(t, tr.IsEmpty())

	tr.Append(NewMessage(RoleAssistant, "ChatGPT", "Ready to answer your questions"))
	tr.Append(NewMessage(RoleUser, "User", "Hello"))
	tr.Append(NewMessage(RoleAssistant, "ChatGPT", "Hi there"))

	require.Equal(t, 3, tr.Len())
	msgs := tr.Messages()
	assert.Equal(t, "Ready to answer your questions", msgs[0].Content)
	assert.Equal(t, "Hello", msgs[1].Content)
	assert.Equal(t, "Hi there", msgs[2].Content)

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, "Hi there", last.Content)
}

func TestTranscript_MessagesIsACopy(t *testing.T) {
	tr := NewTranscript(NewMessage(RoleUser, "User", "original"))
	msgs := tr.Messages()
	msgs[0].Content = "mutated"

	again := tr.Messages()
	assert.Equal(t, "original", again[0].Content)
}

func TestTranscript_VisibleExcludesSystem(t *testing.T) {
	tr := NewTranscript(
		NewMessage(RoleSystem, "System", "You are Harry Potter."),
		NewMessage(RoleAssistant, "ChatGPT", "Hello, Muggle!"),
		NewMessage(RoleUser, "User", "Hi"),
	)

	visible := tr.Visible()
	require.Len(t, visible, 2)
	for _, m := range visible {
		assert.NotEqual(t, RoleSystem, m.Role)
	}
	assert.Equal(t, 3, tr.Len(), "projection must not change the transcript")
}

func TestTranscript_LastByRole(t *testing.T) {
	tr := NewTranscript(
		NewMessage(RoleUser, "User", "first"),
		NewMessage(RoleAssistant, "ChatGPT", "reply"),
		NewMessage(RoleUser, "User", "second"),
	)

	msg, ok := tr.LastByRole(RoleUser)
	require.True(t, ok)
	assert.Equal(t, "second", msg.Content)

	_, ok = tr.LastByRole(RoleSystem)
	assert.False(t, ok)

	var empty Transcript
	_, ok = empty.Last()
	assert.False(t, ok)
}

func TestTranscript_Clone(t *testing.T) {
	tr := NewTranscript(NewMessage(RoleUser, "User", "a"))
	clone := tr.Clone()
	clone.Append(NewMessage(RoleUser, "User", "b"))

	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, 2, clone.Len())
}
