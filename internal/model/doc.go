// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat transcripts and messages.
//
// # Key Types
//
//   - Message: a single immutable entry with role, content, sender label and timestamp
//   - Transcript: the insertion-ordered list of messages forming one conversation
//   - Role / Direction: who sent a message and which side of the chat it is drawn on
//
// Messages are value types. A Transcript hands out copies, so a rendered
// projection can never mutate the conversation it was taken from.
package model
