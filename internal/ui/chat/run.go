// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/jeranaias/personachat/internal/session"
)

// Run starts the full-screen chat on the alternate screen and blocks until
// the user quits or ctx is cancelled.
func Run(ctx context.Context, d Driver, store *session.Store, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(
		New(ctx, d, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	watching := store.Watch(ctx, func(snap session.Snapshot) {
		p.Send(SnapshotMsg(snap))
	})

	_, err := p.Run()
	cancel()
	<-watching

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "chat ui")
	}
	return nil
}
