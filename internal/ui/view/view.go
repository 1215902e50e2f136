// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package view projects a session snapshot onto what every front-end draws:
// bubbles, typing indicator, input state, persona options and the failure line.
// Render is a pure function; the TUI, REPL and web front-end all use it.
package view

import (
	"strings"

	"github.com/jeranaias/personachat/internal/model"
	"github.com/jeranaias/personachat/internal/session"
)

// NoPersonaOption is the selector entry for "no persona".
const NoPersonaOption = "none"

// Bubble is one rendered transcript entry.
type Bubble struct {
	ID        string          `json:"id"`
	Sender    string          `json:"sender"`
	Text      string          `json:"text"`
	Time      string          `json:"time"`
	Direction model.Direction `json:"direction"`
}

// Outgoing reports whether the bubble was sent by the user.
func (b Bubble) Outgoing() bool {
	return b.Direction == model.DirectionOutgoing
}

// View is the front-end state derived from a snapshot.
type View struct {
	SessionID      string   `json:"session_id"`
	Version        uint64   `json:"version"`
	Bubbles        []Bubble `json:"bubbles"`
	Typing         bool     `json:"typing"`
	InputEnabled   bool     `json:"input_enabled"`
	Input          string   `json:"input"`
	Persona        string   `json:"persona"`
	PersonaOptions []string `json:"persona_options"`
	State          string   `json:"state"`
	Error          string   `json:"error,omitempty"`
	CanRetry       bool     `json:"can_retry"`
}

// Render builds the View for snap. personas are the catalog names in display
// order; "none" is prepended.
func Render(snap session.Snapshot, personas []string) View {
	visible := snap.Visible()
	bubbles := make([]Bubble, 0, len(visible))
	for _, m := range visible {
		bubbles = append(bubbles, Bubble{
			ID:        m.ID,
			Sender:    m.Sender,
			Text:      m.Content,
			Time:      m.SentTime(),
			Direction: m.Direction(),
		})
	}

	options := make([]string, 0, len(personas)+1)
	options = append(options, NoPersonaOption)
	options = append(options, personas...)

	current := snap.Persona
	if current == "" {
		current = NoPersonaOption
	}

	return View{
		SessionID:      snap.SessionID,
		Version:        snap.Version,
		Bubbles:        bubbles,
		Typing:         snap.Loading,
		InputEnabled:   !snap.Loading && snap.State == session.StateReady,
		Input:          snap.Input,
		Persona:        current,
		PersonaOptions: options,
		State:          snap.State.String(),
		Error:          snap.ErrMessage(),
		CanRetry:       snap.State == session.StateFailed,
	}
}

// Submission trims raw input. ok is false when nothing is left to send.
func Submission(raw string) (text string, ok bool) {
	text = strings.TrimSpace(raw)
	return text, text != ""
}
