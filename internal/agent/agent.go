// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent builds the client the conversation driver talks to.
//
// An Agent pairs a completion Provider with a prompting strategy (Type), an
// optional persona instruction used as the system prompt, and a tool set.
// Agents are immutable: a persona change builds a new one.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/personachat/internal/model"
)

// Type selects how the agent assembles context for each call.
type Type string

const (
	// TypeConversational sends the full prior transcript with every call.
	TypeConversational Type = "chat-conversational-react-description"
	// TypeZeroShot sends only the system prompt and the latest input.
	TypeZeroShot Type = "zero-shot-react-description"
)

// SeedInput is the user turn sent with the persona instruction to obtain the
// persona's opening line.
const SeedInput = "Introduce yourself in character."

// DefaultType is used when Options.Type is empty.
const DefaultType = TypeConversational

// Valid reports whether t is a known agent type.
func (t Type) Valid() bool {
	return t == TypeConversational || t == TypeZeroShot
}

// Errors returned by the agent.
var (
	ErrUnknownType = errors.New("unknown agent type")
	ErrNoProvider  = errors.New("no completion provider")
	ErrToolsUnused = errors.New("tools are not supported")
	ErrEmptyInput  = errors.New("empty input")
	ErrEmptyReply  = errors.New("provider returned an empty reply")
	ErrNoPersona   = errors.New("agent has no persona instruction")
)

// Provider performs a single non-streaming completion over a message list.
// cloud.Client and ollama.Client implement it.
type Provider interface {
	Name() string
	Complete(ctx context.Context, msgs []model.Message) (string, error)
}

// Tool is a named capability an agent may call. personachat always builds
// agents with an empty tool set.
type Tool interface {
	Name() string
}

// Options configures a new Agent.
type Options struct {
	Type Type
	// SystemPrompt is the persona instruction; empty means none.
	SystemPrompt string
	Tools        []Tool
}

// Agent turns a transcript plus a new input into one completion.
type Agent struct {
	provider Provider
	typ      Type
	system   string
}

// New builds an Agent. It rejects unknown types and non-empty tool sets.
func New(p Provider, opts Options) (*Agent, error) {
	if p == nil {
		return nil, ErrNoProvider
	}
	typ := opts.Type
	if typ == "" {
		typ = DefaultType
	}
	if !typ.Valid() {
		return nil, errors.Wrapf(ErrUnknownType, "%q", string(typ))
	}
	if len(opts.Tools) > 0 {
		return nil, ErrToolsUnused
	}
	return &Agent{
		provider: p,
		typ:      typ,
		system:   strings.TrimSpace(opts.SystemPrompt),
	}, nil
}

// Type returns the agent's prompting strategy.
func (a *Agent) Type() Type { return a.typ }

// SystemPrompt returns the persona instruction, if any.
func (a *Agent) SystemPrompt() string { return a.system }

// ProviderName returns the backing provider's name.
func (a *Agent) ProviderName() string { return a.provider.Name() }

// Call sends history plus input and returns the reply text. System messages in
// history are ignored; the agent's own system prompt is always sent first.
func (a *Agent) Call(ctx context.Context, history []model.Message, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyInput
	}

	msgs := a.prompt(history, input)

	start := time.Now()
	reply, err := a.provider.Complete(ctx, msgs)
	if err != nil {
		return "", errors.Wrapf(err, "%s completion", a.provider.Name())
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyReply
	}

	log.Debug().
		Str("provider", a.provider.Name()).
		Str("agent_type", string(a.typ)).
		Int("messages", len(msgs)).
		Dur("duration", time.Since(start)).
		Msg("agent call")
	return reply, nil
}

// Seed asks the persona for its opening line. The instruction travels as the
// system prompt; no history is sent.
func (a *Agent) Seed(ctx context.Context) (string, error) {
	if a.system == "" {
		return "", ErrNoPersona
	}
	return a.Call(ctx, nil, SeedInput)
}

func (a *Agent) prompt(history []model.Message, input string) []model.Message {
	msgs := make([]model.Message, 0, len(history)+2)
	if a.system != "" {
		msgs = append(msgs, model.NewMessage(model.RoleSystem, model.DefaultSystemLabel, a.system))
	}
	if a.typ == TypeConversational {
		for _, m := range history {
			if m.Role == model.RoleSystem {
				continue
			}
			msgs = append(msgs, m)
		}
	}
	return append(msgs, model.NewMessage(model.RoleUser, model.DefaultUserLabel, input))
}

// Factory builds an Agent for the given options. The driver calls it on every
// (re)initialization.
type Factory func(ctx context.Context, opts Options) (*Agent, error)

// StaticFactory returns a Factory that wraps a single provider.
func StaticFactory(p Provider) Factory {
	return func(_ context.Context, opts Options) (*Agent, error) {
		return New(p, opts)
	}
}
