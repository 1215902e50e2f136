// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package driver

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/personachat/internal/agent"
	"github.com/jeranaias/personachat/internal/model"
	"github.com/jeranaias/personachat/internal/persona"
	"github.com/jeranaias/personachat/internal/session"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeProvider answers completions through handle and records every call.
type fakeProvider struct {
	mu     sync.Mutex
	calls  [][]model.Message
	handle func(msgs []model.Message) (string, error)
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(_ context.Context, msgs []model.Message) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, msgs)
	h := p.handle
	p.mu.Unlock()
	if h == nil {
		return "ok", nil
	}
	return h(msgs)
}

func (p *fakeProvider) Calls() [][]model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]model.Message(nil), p.calls...)
}

func replyWith(text string) func([]model.Message) (string, error) {
	return func([]model.Message) (string, error) { return text, nil }
}

func isSeed(msgs []model.Message) bool {
	return len(msgs) > 0 && msgs[len(msgs)-1].Content == agent.SeedInput
}

func newDriver(t *testing.T, p *fakeProvider, opts Options) *Driver {
	t.Helper()
	if opts.Factory == nil {
		opts.Factory = agent.StaticFactory(p)
	}
	d, err := New(session.NewStore(), opts)
	require.NoError(t, err)
	return d
}

func readyDriver(t *testing.T, p *fakeProvider) *Driver {
	t.Helper()
	d := newDriver(t, p, Options{})
	require.NoError(t, d.Initialize(context.Background()))
	return d
}

func senders(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Sender + ": " + m.Content
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

// =============================================================================
// INITIALIZE
// =============================================================================

func TestInitialize_NoPersonaGreets(t *testing.T) {
	p := &fakeProvider{}
	d := readyDriver(t, p)

	snap := d.Snapshot()
	assert.Equal(t, []string{"ChatGPT: Ready to answer your questions"}, senders(snap.Transcript.Messages()))
	assert.False(t, snap.Loading)
	assert.Equal(t, session.StateReady, snap.State)
	assert.Empty(t, p.Calls(), "the static greeting needs no remote call")
}

func TestInitialize_CustomGreetingAndLabels(t *testing.T) {
	p := &fakeProvider{}
	d := newDriver(t, p, Options{
		Greeting: "Ask away",
		Labels:   model.Labels{Assistant: "Bot"},
	})
	require.NoError(t, d.Initialize(context.Background()))
	assert.Equal(t, []string{"Bot: Ask away"}, senders(d.Snapshot().Transcript.Messages()))
}

func TestInitialize_WithPersonaSeeds(t *testing.T) {
	p := &fakeProvider{handle: replyWith("Arr, welcome aboard!")}
	d := newDriver(t, p, Options{Persona: "pirate captain"})
	require.NoError(t, d.Initialize(context.Background()))

	snap := d.Snapshot()
	assert.Equal(t, "Pirate Captain", snap.Persona, "persona name is canonicalized")
	assert.Equal(t, []string{"ChatGPT: Arr, welcome aboard!"}, senders(snap.Transcript.Messages()))
	require.Len(t, p.Calls(), 1)
}

func TestInitialize_FactoryError(t *testing.T) {
	d, err := New(session.NewStore(), Options{
		Factory: func(context.Context, agent.Options) (*agent.Agent, error) {
			return nil, errors.New("no api key")
		},
	})
	require.NoError(t, err)

	err = d.Initialize(context.Background())
	require.Error(t, err)

	snap := d.Snapshot()
	assert.Equal(t, session.StateFailed, snap.State)
	assert.False(t, snap.Loading)
	assert.Contains(t, snap.ErrMessage(), "no api key")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Options{Factory: agent.StaticFactory(&fakeProvider{})})
	assert.Error(t, err)

	_, err = New(session.NewStore(), Options{})
	assert.Error(t, err)

	_, err = New(session.NewStore(), Options{
		Factory: agent.StaticFactory(&fakeProvider{}),
		Persona: "Gandalf",
	})
	assert.ErrorIs(t, err, persona.ErrUnknownPersona)
}

func TestInitialize_PassesAgentType(t *testing.T) {
	var got agent.Options
	p := &fakeProvider{}
	d, err := New(session.NewStore(), Options{
		AgentType: agent.TypeZeroShot,
		Factory: func(ctx context.Context, opts agent.Options) (*agent.Agent, error) {
			got = opts
			return agent.New(p, opts)
		},
	})
	require.NoError(t, err)
	require.NoError(t, d.Initialize(context.Background()))

	assert.Equal(t, agent.TypeZeroShot, got.Type)
	assert.Empty(t, got.Tools, "agents are built with an empty tool set")
	assert.Empty(t, got.SystemPrompt)
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_HelloHiThere(t *testing.T) {
	release := make(chan struct{})
	p := &fakeProvider{handle: func([]model.Message) (string, error) {
		<-release
		return "Hi there", nil
	}}
	d := readyDriver(t, p)
	d.SetInput("Hello")

	done := make(chan error, 1)
	go func() { done <- d.Submit(context.Background(), "Hello") }()

	waitFor(t, func() bool { return len(p.Calls()) == 1 })
	snap := d.Snapshot()
	assert.True(t, snap.Loading)
	assert.Equal(t, session.StateWaitingForReply, snap.State)
	assert.Empty(t, snap.Input, "input buffer is cleared on submit")
	assert.Equal(t, []string{
		"ChatGPT: Ready to answer your questions",
		"User: Hello",
	}, senders(snap.Transcript.Messages()))

	close(release)
	require.NoError(t, <-done)

	snap = d.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, session.StateReady, snap.State)
	assert.Equal(t, []string{
		"ChatGPT: Ready to answer your questions",
		"User: Hello",
		"ChatGPT: Hi there",
	}, senders(snap.Transcript.Messages()))

	last, _ := snap.Transcript.Last()
	assert.Equal(t, model.DirectionIncoming, last.Direction())
}

func TestSubmit_SendsPriorContext(t *testing.T) {
	p := &fakeProvider{handle: replyWith("reply")}
	d := readyDriver(t, p)

	require.NoError(t, d.Submit(context.Background(), "one"))
	require.NoError(t, d.Submit(context.Background(), "two"))

	calls := p.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{
		"ChatGPT: Ready to answer your questions",
		"User: one",
		"ChatGPT: reply",
		"User: two",
	}, senders(calls[1]))
}

func TestSubmit_TrimsAndIgnoresEmpty(t *testing.T) {
	p := &fakeProvider{}
	d := readyDriver(t, p)

	assert.ErrorIs(t, d.Submit(context.Background(), "   \n"), ErrEmpty)
	assert.Equal(t, 1, d.Snapshot().Transcript.Len())

	require.NoError(t, d.Submit(context.Background(), "  padded  "))
	msgs := d.Snapshot().Transcript.Messages()
	assert.Equal(t, "padded", msgs[1].Content)
}

func TestSubmit_BeforeInitialize(t *testing.T) {
	p := &fakeProvider{}
	d := newDriver(t, p, Options{})

	before := d.Snapshot()
	err := d.Submit(context.Background(), "Hello")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.True(t, IsNoop(err))

	after := d.Snapshot()
	assert.Equal(t, before.Version, after.Version, "no-op does not touch the session")
	assert.Empty(t, p.Calls())
}

func TestSubmit_NoopWhileLoading(t *testing.T) {
	release := make(chan struct{})
	p := &fakeProvider{handle: func([]model.Message) (string, error) {
		<-release
		return "done", nil
	}}
	d := readyDriver(t, p)

	done := make(chan error, 1)
	go func() { done <- d.Submit(context.Background(), "first") }()
	waitFor(t, func() bool { return len(p.Calls()) == 1 })

	d.SetInput("typed while waiting")
	before := d.Snapshot()

	err := d.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	after := d.Snapshot()
	assert.Equal(t, before.Transcript.Len(), after.Transcript.Len())
	assert.Equal(t, "typed while waiting", after.Input)
	assert.Len(t, p.Calls(), 1)

	close(release)
	require.NoError(t, <-done)
}

func TestTranscriptLength_2NPlusGreeting(t *testing.T) {
	for _, personaName := range []string{"", "Socrates"} {
		t.Run(displayPersona(personaName), func(t *testing.T) {
			p := &fakeProvider{handle: replyWith("answer")}
			d := newDriver(t, p, Options{Persona: personaName})
			require.NoError(t, d.Initialize(context.Background()))

			for n := 1; n <= 5; n++ {
				require.NoError(t, d.Submit(context.Background(), fmt.Sprintf("q%d", n)))
				assert.Equal(t, 2*n+1, d.Snapshot().Transcript.Len())
			}
		})
	}
}

func TestLoadingMatchesOutstandingCall(t *testing.T) {
	p := &fakeProvider{handle: replyWith("x")}
	d := newDriver(t, p, Options{Persona: "Yoda"})

	var snaps []session.Snapshot
	var mu sync.Mutex
	d.Store().Subscribe(func(s session.Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	require.NoError(t, d.Initialize(context.Background()))
	require.NoError(t, d.Submit(context.Background(), "hi"))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snaps)
	for _, s := range snaps {
		busy := s.State == session.StateInitializing || s.State == session.StateWaitingForReply
		assert.Equal(t, busy, s.Loading, "version %d state %s", s.Version, s.State)
	}
	last := snaps[len(snaps)-1]
	assert.False(t, last.Loading)
}

// =============================================================================
// PERSONA
// =============================================================================

func TestSelectPersona_HarryPotter(t *testing.T) {
	harry, err := persona.Builtin().Lookup("Harry Potter")
	require.NoError(t, err)

	p := &fakeProvider{handle: replyWith("Hello! I'm Harry.")}
	d := readyDriver(t, p)
	require.NoError(t, d.Submit(context.Background(), "earlier question"))
	callsBefore := len(p.Calls())

	require.NoError(t, d.SelectPersona(context.Background(), "Harry Potter"))

	calls := p.Calls()
	require.Len(t, calls, callsBefore+1, "exactly one seed call")
	seed := calls[len(calls)-1]
	require.NotEmpty(t, seed)
	assert.Equal(t, model.RoleSystem, seed[0].Role)
	assert.Equal(t, harry.Instruction, seed[0].Content)
	for _, m := range seed {
		assert.NotEqual(t, "earlier question", m.Content, "prior history is discarded")
	}

	snap := d.Snapshot()
	assert.Equal(t, "Harry Potter", snap.Persona)
	assert.Equal(t, []string{"ChatGPT: Hello! I'm Harry."}, senders(snap.Transcript.Messages()))
	assert.Equal(t, session.StateReady, snap.State)
	assert.False(t, snap.Loading)
}

func TestSelectPersona_ClearToNone(t *testing.T) {
	p := &fakeProvider{handle: replyWith("Hmm, greet you I do.")}
	d := newDriver(t, p, Options{Persona: "Yoda"})
	require.NoError(t, d.Initialize(context.Background()))

	require.NoError(t, d.SelectPersona(context.Background(), NoPersona))
	snap := d.Snapshot()
	assert.Empty(t, snap.Persona)
	assert.Equal(t, []string{"ChatGPT: Ready to answer your questions"}, senders(snap.Transcript.Messages()))
}

func TestSelectPersona_Unknown(t *testing.T) {
	p := &fakeProvider{}
	d := readyDriver(t, p)
	require.NoError(t, d.Submit(context.Background(), "keep me"))
	before := d.Snapshot()

	err := d.SelectPersona(context.Background(), "Gandalf")
	assert.ErrorIs(t, err, persona.ErrUnknownPersona)

	after := d.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Transcript.Len(), after.Transcript.Len())
	assert.Empty(t, after.Persona)
}

func TestSelectPersona_DropsStaleReply(t *testing.T) {
	release := make(chan struct{})
	p := &fakeProvider{handle: func(msgs []model.Message) (string, error) {
		if isSeed(msgs) {
			return "Patience you must have.", nil
		}
		<-release
		return "late answer", nil
	}}
	d := readyDriver(t, p)

	done := make(chan error, 1)
	go func() { done <- d.Submit(context.Background(), "slow question") }()
	waitFor(t, func() bool { return len(p.Calls()) == 1 })

	require.NoError(t, d.SelectPersona(context.Background(), "Yoda"))
	close(release)
	assert.ErrorIs(t, <-done, ErrStale)

	snap := d.Snapshot()
	assert.Equal(t, []string{"ChatGPT: Patience you must have."}, senders(snap.Transcript.Messages()))
	assert.Equal(t, session.StateReady, snap.State)
	assert.False(t, snap.Loading)
}

func TestSelectPersona_DuringInitialization(t *testing.T) {
	release := make(chan struct{})
	p := &fakeProvider{handle: func(msgs []model.Message) (string, error) {
		if msgs[0].Content != "" && len(msgs) == 2 {
			sys := msgs[0].Content
			yoda, _ := persona.Builtin().Lookup("Yoda")
			if sys == yoda.Instruction {
				return "Yoda here.", nil
			}
		}
		<-release
		return "Elementary.", nil
	}}
	d := newDriver(t, p, Options{Persona: "Sherlock Holmes"})

	done := make(chan error, 1)
	go func() { done <- d.Initialize(context.Background()) }()
	waitFor(t, func() bool { return len(p.Calls()) == 1 })

	require.NoError(t, d.SelectPersona(context.Background(), "Yoda"))
	close(release)
	assert.ErrorIs(t, <-done, ErrStale)

	assert.Equal(t, []string{"ChatGPT: Yoda here."}, senders(d.Snapshot().Transcript.Messages()))
}

// =============================================================================
// FAILURE AND RETRY
// =============================================================================

func TestSubmit_FailureThenRetry(t *testing.T) {
	var fail = true
	var mu sync.Mutex
	p := &fakeProvider{handle: func([]model.Message) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return "", errors.New("quota exceeded")
		}
		return "Hi there", nil
	}}
	d := readyDriver(t, p)

	err := d.Submit(context.Background(), "Hello")
	require.Error(t, err)
	assert.False(t, IsNoop(err))

	snap := d.Snapshot()
	assert.Equal(t, session.StateFailed, snap.State)
	assert.False(t, snap.Loading, "failure resets the loading flag")
	assert.Contains(t, snap.ErrMessage(), "quota exceeded")
	assert.Equal(t, 2, snap.Transcript.Len(), "the user message stays")

	assert.ErrorIs(t, d.Submit(context.Background(), "another"), ErrFailed)
	assert.Equal(t, 2, d.Snapshot().Transcript.Len())

	mu.Lock()
	fail = false
	mu.Unlock()
	require.NoError(t, d.Retry(context.Background()))

	snap = d.Snapshot()
	assert.Equal(t, session.StateReady, snap.State)
	assert.Nil(t, snap.Err)
	assert.Equal(t, []string{
		"ChatGPT: Ready to answer your questions",
		"User: Hello",
		"ChatGPT: Hi there",
	}, senders(snap.Transcript.Messages()), "retry does not duplicate the user message")

	calls := p.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, senders(calls[0]), senders(calls[1]), "retry re-sends the same context")
}

func TestInitialize_FailureThenRetry(t *testing.T) {
	attempts := 0
	p := &fakeProvider{handle: func([]model.Message) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("connection refused")
		}
		return "To be, or not to be.", nil
	}}
	d := newDriver(t, p, Options{Persona: "William Shakespeare"})

	require.Error(t, d.Initialize(context.Background()))
	snap := d.Snapshot()
	assert.Equal(t, session.StateFailed, snap.State)
	assert.False(t, snap.Loading)
	assert.True(t, snap.Transcript.IsEmpty())
	assert.ErrorIs(t, d.Submit(context.Background(), "hi"), ErrFailed)

	require.NoError(t, d.Retry(context.Background()))
	snap = d.Snapshot()
	assert.Equal(t, session.StateReady, snap.State)
	assert.Equal(t, []string{"ChatGPT: To be, or not to be."}, senders(snap.Transcript.Messages()))
}

func TestRetry_NotFailed(t *testing.T) {
	d := readyDriver(t, &fakeProvider{})
	before := d.Snapshot()
	assert.ErrorIs(t, d.Retry(context.Background()), ErrNotFailed)
	assert.Equal(t, before.Version, d.Snapshot().Version)
}

func TestSelectPersona_RecoversFromFailure(t *testing.T) {
	p := &fakeProvider{handle: func(msgs []model.Message) (string, error) {
		if isSeed(msgs) {
			return "Bonjour.", nil
		}
		return "", errors.New("boom")
	}}
	d := readyDriver(t, p)
	require.Error(t, d.Submit(context.Background(), "x"))
	require.Equal(t, session.StateFailed, d.Snapshot().State)

	require.NoError(t, d.SelectPersona(context.Background(), "Marie Curie"))
	snap := d.Snapshot()
	assert.Equal(t, session.StateReady, snap.State)
	assert.Nil(t, snap.Err)
	assert.ErrorIs(t, d.Retry(context.Background()), ErrNotFailed)
}
