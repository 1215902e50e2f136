// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/personachat/internal/session"
)

// SnapshotMsg carries a new session snapshot into the program.
type SnapshotMsg session.Snapshot

// OpResultMsg reports the outcome of a driver call.
type OpResultMsg struct {
	Op  string
	Err error
}

// Driver is the conversation surface the view talks to.
// *driver.Driver implements it.
type Driver interface {
	Initialize(ctx context.Context) error
	Submit(ctx context.Context, text string) error
	SelectPersona(ctx context.Context, name string) error
	Retry(ctx context.Context) error
	SetInput(text string)
	Snapshot() session.Snapshot
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

func initCmd(ctx context.Context, d Driver) tea.Cmd {
	return func() tea.Msg {
		return OpResultMsg{Op: "init", Err: d.Initialize(ctx)}
	}
}

func submitCmd(ctx context.Context, d Driver, text string) tea.Cmd {
	return func() tea.Msg {
		return OpResultMsg{Op: "submit", Err: d.Submit(ctx, text)}
	}
}

func personaCmd(ctx context.Context, d Driver, name string) tea.Cmd {
	return func() tea.Msg {
		return OpResultMsg{Op: "persona", Err: d.SelectPersona(ctx, name)}
	}
}

func retryCmd(ctx context.Context, d Driver) tea.Cmd {
	return func() tea.Msg {
		return OpResultMsg{Op: "retry", Err: d.Retry(ctx)}
	}
}

func snapshotOf(msg SnapshotMsg) session.Snapshot {
	return session.Snapshot(msg)
}
