// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package driver runs a conversation: it initializes the agent, submits user
// text, switches personas and retries failed calls, recording every step in a
// session.Store.
//
// Driver methods block for the duration of the remote call. Presentation
// layers call them off their event loop and redraw from store snapshots.
package driver

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/personachat/internal/agent"
	"github.com/jeranaias/personachat/internal/model"
	"github.com/jeranaias/personachat/internal/persona"
	"github.com/jeranaias/personachat/internal/session"
)

// NoPersona is the selector value that clears the persona.
const NoPersona = "none"

// Errors returned when an operation is not applicable. None of them change
// the session.
var (
	ErrNotReady  = errors.New("conversation is not ready")
	ErrBusy      = errors.New("a reply is still pending")
	ErrFailed    = errors.New("conversation failed; retry or choose another persona")
	ErrNotFailed = errors.New("nothing to retry")
	ErrEmpty     = errors.New("empty message")
	// ErrStale is returned when a reply arrives after the session was
	// re-initialized. The reply is discarded.
	ErrStale = errors.New("reply discarded after re-initialization")
)

// IsNoop reports whether err means the call was ignored without touching the
// session. Presentation layers can drop these silently.
func IsNoop(err error) bool {
	return errors.Is(err, ErrNotReady) || errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrEmpty) || errors.Is(err, ErrStale) ||
		errors.Is(err, ErrNotFailed) || errors.Is(err, ErrFailed)
}

// Options configures a Driver.
type Options struct {
	// Factory builds the agent on every (re)initialization. Required.
	Factory agent.Factory
	// Catalog is the persona catalog; nil uses the built-in one.
	Catalog *persona.Catalog
	// AgentType is passed to the factory.
	AgentType agent.Type
	// Labels are the sender labels stamped on new messages.
	Labels model.Labels
	// Greeting is the static first message when no persona is selected.
	Greeting string
	// Persona is the initial selection; empty means none.
	Persona string
}

// pendingOp is the operation Retry re-issues.
type pendingOp struct {
	init    bool
	history []model.Message
	input   string
}

// Driver orchestrates one conversation. It is safe for concurrent use.
type Driver struct {
	store   *session.Store
	factory agent.Factory
	catalog *persona.Catalog
	typ     agent.Type
	labels  model.Labels
	greet   string
	logger  zerolog.Logger

	mu         sync.Mutex
	agent      *agent.Agent
	generation uint64
	failed     *pendingOp
}

// New creates a Driver over store. It validates the initial persona but does
// not contact the provider; call Initialize for that.
func New(store *session.Store, opts Options) (*Driver, error) {
	if store == nil {
		return nil, errors.New("driver: nil store")
	}
	if opts.Factory == nil {
		return nil, errors.New("driver: nil agent factory")
	}
	if opts.Catalog == nil {
		opts.Catalog = persona.Builtin()
	}
	if opts.Greeting == "" {
		opts.Greeting = DefaultGreeting
	}
	d := &Driver{
		store:   store,
		factory: opts.Factory,
		catalog: opts.Catalog,
		typ:     opts.AgentType,
		labels:  opts.Labels,
		greet:   opts.Greeting,
		logger:  log.With().Str("session", store.SessionID()).Logger(),
	}

	name, err := d.resolvePersona(opts.Persona)
	if err != nil {
		return nil, err
	}
	store.SetPersona(name)
	return d, nil
}

// DefaultGreeting is the assistant's first message without a persona.
const DefaultGreeting = "Ready to answer your questions"

// Store returns the session the driver writes to.
func (d *Driver) Store() *session.Store { return d.store }

// Catalog returns the persona catalog.
func (d *Driver) Catalog() *persona.Catalog { return d.catalog }

// Snapshot returns the current session state.
func (d *Driver) Snapshot() session.Snapshot { return d.store.Snapshot() }

// SetInput mirrors the presentation layer's input buffer into the session.
func (d *Driver) SetInput(text string) { d.store.SetInput(text) }

func (d *Driver) resolvePersona(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, NoPersona) {
		return "", nil
	}
	p, err := d.catalog.Lookup(name)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// =============================================================================
// INITIALIZE
// =============================================================================

// Initialize discards the current agent and transcript, builds a new agent and
// obtains the opening message: the static greeting without a persona, or the
// persona's seed reply.
func (d *Driver) Initialize(ctx context.Context) error {
	d.mu.Lock()
	gen, name := d.beginInitLocked(nil)
	d.mu.Unlock()
	return d.runInit(ctx, gen, name)
}

// SelectPersona switches persona and re-initializes. An unknown name returns
// persona.ErrUnknownPersona and changes nothing. Any reply still in flight for
// the previous persona is discarded when it arrives.
func (d *Driver) SelectPersona(ctx context.Context, name string) error {
	resolved, err := d.resolvePersona(name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	gen, _ := d.beginInitLocked(&resolved)
	d.mu.Unlock()

	d.logger.Info().Str("persona", displayPersona(resolved)).Msg("persona selected")
	return d.runInit(ctx, gen, resolved)
}

// beginInitLocked starts a new generation and resets the session.
func (d *Driver) beginInitLocked(newPersona *string) (uint64, string) {
	d.generation++
	d.agent = nil
	d.failed = nil

	snap := d.store.Update(func(m session.Mutation) {
		if newPersona != nil {
			m.SetPersona(*newPersona)
		}
		m.ClearTranscript()
		m.SetInput("")
		m.SetLoading(true)
		m.SetState(session.StateInitializing)
	})
	return d.generation, snap.Persona
}

func (d *Driver) runInit(ctx context.Context, gen uint64, name string) error {
	var instruction string
	if name != "" {
		p, err := d.catalog.Lookup(name)
		if err != nil {
			return d.finishFailed(gen, &pendingOp{init: true}, err)
		}
		instruction = p.Instruction
	}

	a, err := d.factory(ctx, agent.Options{Type: d.typ, SystemPrompt: instruction})
	if err != nil {
		return d.finishFailed(gen, &pendingOp{init: true}, errors.Wrap(err, "create agent"))
	}

	opening := d.greet
	if instruction != "" {
		opening, err = a.Seed(ctx)
		if err != nil {
			return d.finishFailed(gen, &pendingOp{init: true}, err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation {
		d.logger.Debug().Uint64("generation", gen).Msg("dropping stale initialization")
		return ErrStale
	}
	d.agent = a
	d.store.Update(func(m session.Mutation) {
		m.Append(model.NewMessage(model.RoleAssistant, d.labels.For(model.RoleAssistant), opening))
		m.SetLoading(false)
		m.SetState(session.StateReady)
	})
	d.logger.Info().
		Str("persona", displayPersona(name)).
		Str("provider", a.ProviderName()).
		Msg("conversation ready")
	return nil
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit sends text to the agent and appends the exchange to the transcript.
// It is a no-op returning ErrNotReady, ErrBusy, ErrFailed or ErrEmpty when the
// conversation cannot accept input.
func (d *Driver) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmpty
	}

	d.mu.Lock()
	snap := d.store.Snapshot()
	switch {
	case snap.Loading:
		d.mu.Unlock()
		return ErrBusy
	case snap.State == session.StateFailed:
		d.mu.Unlock()
		return ErrFailed
	case d.agent == nil || snap.State != session.StateReady:
		d.mu.Unlock()
		return ErrNotReady
	}

	history := snap.Transcript.Messages()
	d.store.Update(func(m session.Mutation) {
		m.SetInput("")
		m.SetLoading(true)
		m.SetState(session.StateWaitingForReply)
		m.Append(model.NewMessage(model.RoleUser, d.labels.For(model.RoleUser), text))
	})
	gen, a := d.generation, d.agent
	d.mu.Unlock()

	return d.complete(ctx, gen, a, history, text)
}

// complete runs one agent call and records its outcome.
func (d *Driver) complete(ctx context.Context, gen uint64, a *agent.Agent, history []model.Message, text string) error {
	reply, err := a.Call(ctx, history, text)
	if err != nil {
		return d.finishFailed(gen, &pendingOp{history: history, input: text}, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation {
		d.logger.Debug().Uint64("generation", gen).Msg("dropping stale reply")
		return ErrStale
	}
	d.store.Update(func(m session.Mutation) {
		m.Append(model.NewMessage(model.RoleAssistant, d.labels.For(model.RoleAssistant), reply))
		m.SetLoading(false)
		m.SetState(session.StateReady)
	})
	return nil
}

// finishFailed records a failed operation unless its generation is stale.
func (d *Driver) finishFailed(gen uint64, op *pendingOp, err error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation {
		d.logger.Debug().Err(err).Uint64("generation", gen).Msg("dropping stale failure")
		return ErrStale
	}
	d.failed = op
	d.store.Fail(err)
	d.logger.Warn().Err(err).Bool("during_init", op.init).Msg("conversation failed")
	return err
}

// =============================================================================
// RETRY
// =============================================================================

// Retry re-issues the operation that moved the conversation to Failed. A
// failed initialization runs again; a failed submission re-sends the same user
// message without appending it a second time.
func (d *Driver) Retry(ctx context.Context) error {
	d.mu.Lock()
	snap := d.store.Snapshot()
	if snap.State != session.StateFailed || d.failed == nil {
		d.mu.Unlock()
		return ErrNotFailed
	}
	op := d.failed

	if op.init || d.agent == nil {
		gen, name := d.beginInitLocked(nil)
		d.mu.Unlock()
		d.logger.Info().Msg("retrying initialization")
		return d.runInit(ctx, gen, name)
	}

	d.failed = nil
	d.store.Update(func(m session.Mutation) {
		m.SetLoading(true)
		m.SetState(session.StateWaitingForReply)
	})
	gen, a := d.generation, d.agent
	d.mu.Unlock()

	d.logger.Info().Msg("retrying submission")
	return d.complete(ctx, gen, a, op.history, op.input)
}

func displayPersona(name string) string {
	if name == "" {
		return NoPersona
	}
	return name
}
