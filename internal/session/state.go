// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// State is the conversation lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateWaitingForReply
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateWaitingForReply:
		return "waiting_for_reply"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name for JSON snapshots.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AcceptsInput reports whether a submission may start in this state.
func (s State) AcceptsInput() bool {
	return s == StateReady
}
