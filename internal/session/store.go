// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/personachat/internal/model"
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a copy of the store at one point in time. It shares no memory
// with the store.
type Snapshot struct {
	SessionID  string
	Version    uint64
	Transcript model.Transcript
	Loading    bool
	Input      string
	Persona    string
	State      State
	// Err is the last failure; nil unless State is StateFailed.
	Err       error
	UpdatedAt time.Time
}

// Visible returns the transcript entries a presentation layer renders.
func (s Snapshot) Visible() []model.Message {
	return s.Transcript.Visible()
}

// ErrMessage returns the failure text, or "" when there is none.
func (s Snapshot) ErrMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Failed reports whether the conversation is in the Failed state.
func (s Snapshot) Failed() bool {
	return s.State == StateFailed
}

// =============================================================================
// STORE
// =============================================================================

// Store holds one conversation's state. It is safe for concurrent use.
type Store struct {
	// publishMu serializes mutate+notify so subscribers observe mutation order.
	publishMu sync.Mutex
	mu        sync.Mutex

	sessionID  string
	version    uint64
	transcript model.Transcript
	loading    bool
	input      string
	persona    string
	state      State
	err        error
	updatedAt  time.Time

	nextSubID   int
	subscribers map[int]func(Snapshot)
	subOrder    []int
}

// NewStore returns an empty store in StateUninitialized.
func NewStore() *Store {
	return &Store{
		sessionID:   uuid.NewString(),
		updatedAt:   time.Now(),
		subscribers: make(map[int]func(Snapshot)),
	}
}

// SessionID returns the store's identifier.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:  s.sessionID,
		Version:    s.version,
		Transcript: s.transcript.Clone(),
		Loading:    s.loading,
		Input:      s.input,
		Persona:    s.persona,
		State:      s.state,
		Err:        s.err,
		UpdatedAt:  s.updatedAt,
	}
}

// Subscribe registers fn for every future snapshot and returns a function
// that removes it. fn is not called with the current state; use Snapshot.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subOrder = append(s.subOrder, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			for i, sid := range s.subOrder {
				if sid == id {
					s.subOrder = append(s.subOrder[:i], s.subOrder[i+1:]...)
					break
				}
			}
		})
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Mutation is the writable view passed to Update.
type Mutation struct {
	s *Store
}

// SetInput replaces the input buffer.
func (m Mutation) SetInput(text string) { m.s.input = text }

// SetLoading sets the loading flag.
func (m Mutation) SetLoading(loading bool) { m.s.loading = loading }

// SetPersona sets the persona selection.
func (m Mutation) SetPersona(name string) { m.s.persona = name }

// SetState sets the lifecycle state. Leaving StateFailed clears the error.
func (m Mutation) SetState(st State) {
	m.s.state = st
	if st != StateFailed {
		m.s.err = nil
	}
}

// Append adds messages to the transcript.
func (m Mutation) Append(msgs ...model.Message) {
	for _, msg := range msgs {
		m.s.transcript.Append(msg)
	}
}

// ClearTranscript discards every message.
func (m Mutation) ClearTranscript() { m.s.transcript = model.NewTranscript() }

// Fail records err, clears the loading flag and enters StateFailed.
func (m Mutation) Fail(err error) {
	m.s.err = err
	m.s.loading = false
	m.s.state = StateFailed
}

// Update applies fn atomically and publishes a single snapshot.
func (s *Store) Update(fn func(m Mutation)) Snapshot {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	fn(Mutation{s: s})
	s.version++
	s.updatedAt = time.Now()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subOrder))
	for _, id := range s.subOrder {
		subs = append(subs, s.subscribers[id])
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

// SetInput replaces the input buffer.
func (s *Store) SetInput(text string) {
	s.Update(func(m Mutation) { m.SetInput(text) })
}

// SetLoading sets the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.Update(func(m Mutation) { m.SetLoading(loading) })
}

// SetPersona sets the persona selection.
func (s *Store) SetPersona(name string) {
	s.Update(func(m Mutation) { m.SetPersona(name) })
}

// SetState sets the lifecycle state.
func (s *Store) SetState(st State) {
	s.Update(func(m Mutation) { m.SetState(st) })
}

// Append adds messages to the transcript.
func (s *Store) Append(msgs ...model.Message) {
	s.Update(func(m Mutation) { m.Append(msgs...) })
}

// Fail records err and enters StateFailed with loading cleared.
func (s *Store) Fail(err error) {
	s.Update(func(m Mutation) { m.Fail(err) })
}
