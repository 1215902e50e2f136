// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/jeranaias/personachat/internal/driver"
	"github.com/jeranaias/personachat/internal/model"
	"github.com/jeranaias/personachat/internal/persona"
	"github.com/jeranaias/personachat/internal/session"
	"github.com/jeranaias/personachat/internal/ui/view"
)

// LineReader is the subset of liner.State the REPL uses.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// REPL is the line-oriented chat front-end.
type REPL struct {
	d     *driver.Driver
	store *session.Store
	in    LineReader

	outMu sync.Mutex
	out   io.Writer

	// Incoming bubbles already printed for the transcript whose first
	// message is firstID.
	printed int
	firstID string
	typing  bool
}

// NewREPL creates a REPL over d reading from in and writing to out.
func NewREPL(d *driver.Driver, in LineReader, out io.Writer) *REPL {
	return &REPL{d: d, store: d.Store(), in: in, out: out}
}

// RunREPL runs the REPL on the terminal with liner line editing. History is
// kept in memory for the lifetime of the process.
func RunREPL(ctx context.Context, d *driver.Driver) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	return NewREPL(d, line, os.Stdout).Run(ctx)
}

// Run initializes the conversation and reads lines until /quit, EOF or ctrl+c.
func (r *REPL) Run(ctx context.Context) error {
	unsubscribe := r.store.Subscribe(r.onSnapshot)
	defer unsubscribe()

	r.println(TitleStyle.Render("personachat") + DimStyle.Render("  /help for commands"))
	r.report(r.d.Initialize(ctx))

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := r.in.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "read input")
		}

		text, ok := view.Submission(input)
		if !ok {
			continue
		}
		r.in.AppendHistory(text)

		if strings.HasPrefix(text, "/") {
			if quit := r.command(ctx, text); quit {
				return nil
			}
			continue
		}
		r.report(r.d.Submit(ctx, text))
	}
}

// command runs a slash command and reports whether the REPL should exit.
func (r *REPL) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/?":
		r.printHelp()

	case "/personas":
		r.printPersonas()

	case "/persona":
		if arg == "" {
			r.println("Persona: " + r.current())
			return false
		}
		err := r.d.SelectPersona(ctx, arg)
		if errors.Is(err, persona.ErrUnknownPersona) {
			r.println(ErrorStyle.Render("Unknown persona: "+arg) + DimStyle.Render("  (see /personas)"))
			return false
		}
		r.report(err)

	case "/retry":
		err := r.d.Retry(ctx)
		if errors.Is(err, driver.ErrNotFailed) {
			r.println(DimStyle.Render("Nothing to retry."))
			return false
		}
		r.report(err)

	default:
		r.println(ErrorStyle.Render("Unknown command: "+name) + DimStyle.Render("  (see /help)"))
	}
	return false
}

// onSnapshot prints a typing line when a call starts. It runs synchronously
// inside store updates and must not touch the store.
func (r *REPL) onSnapshot(snap session.Snapshot) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if snap.Loading && !r.typing {
		fmt.Fprintln(r.out, TypingStyle.Render(assistantLabel(snap)+" is typing..."))
	}
	r.typing = snap.Loading
}

// report prints new replies and, when the conversation failed, the error.
func (r *REPL) report(err error) {
	v := view.Render(r.store.Snapshot(), r.d.Catalog().Names())
	r.printBubbles(v)

	switch {
	case errors.Is(err, driver.ErrFailed):
		r.println(DimStyle.Render("The conversation failed. Type /retry first."))
	case v.CanRetry:
		r.println(ErrorStyle.Render("Error: " + v.Error))
		r.println(DimStyle.Render("Type /retry to try again or /persona <name> to start over."))
	case errors.Is(err, driver.ErrBusy), errors.Is(err, driver.ErrNotReady):
		r.println(DimStyle.Render(err.Error()))
	}
}

func (r *REPL) printBubbles(v view.View) {
	if len(v.Bubbles) == 0 {
		r.printed, r.firstID = 0, ""
		return
	}
	if v.Bubbles[0].ID != r.firstID {
		r.printed, r.firstID = 0, v.Bubbles[0].ID
	}
	for _, b := range v.Bubbles[r.printed:] {
		if !b.Outgoing() {
			r.println(AssistantStyle.Render(b.Sender+":") + " " + b.Text)
		}
	}
	r.printed = len(v.Bubbles)
}

func (r *REPL) printHelp() {
	rows := [][2]string{
		{"/persona [name]", "show or switch persona (\"none\" clears it)"},
		{"/personas", "list personas"},
		{"/retry", "re-send after a failure"},
		{"/quit", "exit"},
	}
	for _, row := range rows {
		r.println(LabelStyle.Render(row[0]) + " " + row[1])
	}
}

func (r *REPL) printPersonas() {
	current := r.current()
	for _, name := range append([]string{driver.NoPersona}, r.d.Catalog().Names()...) {
		marker := "  "
		if strings.EqualFold(name, current) {
			marker = "* "
		}
		r.println(marker + name)
	}
}

func (r *REPL) current() string {
	if p := r.store.Snapshot().Persona; p != "" {
		return p
	}
	return driver.NoPersona
}

func assistantLabel(snap session.Snapshot) string {
	if last, ok := snap.Transcript.LastByRole(model.RoleAssistant); ok {
		return last.Sender
	}
	return "Assistant"
}

func (r *REPL) println(s string) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintln(r.out, s)
}
