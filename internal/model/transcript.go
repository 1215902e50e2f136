// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is the insertion-ordered list of messages exchanged in one
// conversation. It has no size bound.
//
// The zero value is an empty transcript ready to use. Transcript is not
// safe for concurrent use; the session store guards it.
type Transcript struct {
	messages []Message
}

// NewTranscript creates a transcript holding the given messages in order.
func NewTranscript(msgs ...Message) Transcript {
	t := Transcript{}
	for _, m := range msgs {
		t.Append(m)
	}
	return t
}

// Append adds a message to the end of the transcript.
func (t *Transcript) Append(msg Message) {
	t.messages = append(t.messages, msg)
}

// Len returns the number of messages.
func (t Transcript) Len() int {
	return len(t.messages)
}

// IsEmpty returns true if there are no messages.
func (t Transcript) IsEmpty() bool {
	return len(t.messages) == 0
}

// Messages returns a copy of all messages in chronological order.
func (t Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Visible returns the messages a presentation layer should draw.
// System-role messages carry instructions for the model and are excluded.
func (t Transcript) Visible() []Message {
	out := make([]Message, 0, len(t.messages))
	for _, m := range t.messages {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Last returns the most recent message and true, or false if empty.
func (t Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastByRole returns the most recent message with the given role.
func (t Transcript) LastByRole(role Role) (Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == role {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

// Clone returns an independent copy of the transcript.
func (t Transcript) Clone() Transcript {
	return Transcript{messages: t.Messages()}
}
