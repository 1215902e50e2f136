// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the state of one conversation.
//
// A Store owns the transcript, loading flag, input buffer, persona selection,
// conversation state and last failure. Every mutation publishes an immutable
// Snapshot to subscribers, which is how presentation layers learn to redraw.
//
// # Key Types
//
//   - Store: Goroutine-safe state holder with subscriptions
//   - Snapshot: Deep copy of the state at one point in time
//   - State: Conversation lifecycle (Uninitialized, Initializing, Ready, WaitingForReply, Failed)
//
// # Usage
//
//	store := session.NewStore()
//	unsubscribe := store.Subscribe(func(s session.Snapshot) {
//	    program.Send(snapshotMsg(s))
//	})
//	defer unsubscribe()
//
// Subscribers run on the mutating goroutine after the store lock is released,
// in mutation order. They must not mutate the store synchronously.
package session
