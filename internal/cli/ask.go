// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"

	"github.com/jeranaias/personachat/internal/driver"
	"github.com/jeranaias/personachat/internal/model"
)

// Ask initializes a conversation, submits question and writes the reply to
// out. With markdown set the reply is rendered through glamour.
func Ask(ctx context.Context, d *driver.Driver, question string, out io.Writer, markdown bool) error {
	if strings.TrimSpace(question) == "" {
		return errors.New("nothing to ask")
	}
	if err := d.Initialize(ctx); err != nil {
		return errors.Wrap(err, "initialize")
	}
	if err := d.Submit(ctx, question); err != nil {
		return errors.Wrap(err, "ask")
	}

	reply, ok := d.Snapshot().Transcript.LastByRole(model.RoleAssistant)
	if !ok {
		return errors.New("no reply")
	}

	text := reply.Content
	if markdown {
		text = renderMarkdown(text, GetTerminalWidth())
	}
	_, err := fmt.Fprintln(out, strings.TrimRight(text, "\n"))
	return err
}

// renderMarkdown renders text for the terminal, returning it unchanged when
// glamour fails.
func renderMarkdown(text string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}
