// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Direction returns which side of the chat a message with this role is drawn on.
func (r Role) Direction() Direction {
	if r == RoleUser {
		return DirectionOutgoing
	}
	return DirectionIncoming
}

// =============================================================================
// DIRECTION TYPE
// =============================================================================

// Direction tells the presentation layer which side a bubble belongs to.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// =============================================================================
// SENDER LABELS
// =============================================================================

// Default sender labels used when no assistant name is configured.
const (
	DefaultUserLabel      = "User"
	DefaultAssistantLabel = "ChatGPT"
	DefaultSystemLabel    = "System"
)

// Labels maps roles to the sender names shown above each bubble.
type Labels struct {
	User      string
	Assistant string
	System    string
}

// DefaultLabels returns the stock sender labels.
func DefaultLabels() Labels {
	return Labels{
		User:      DefaultUserLabel,
		Assistant: DefaultAssistantLabel,
		System:    DefaultSystemLabel,
	}
}

// For returns the label for the given role, falling back to the defaults
// for any label left empty.
func (l Labels) For(r Role) string {
	switch r {
	case RoleUser:
		if l.User != "" {
			return l.User
		}
		return DefaultUserLabel
	case RoleAssistant:
		if l.Assistant != "" {
			return l.Assistant
		}
		return DefaultAssistantLabel
	case RoleSystem:
		if l.System != "" {
			return l.System
		}
		return DefaultSystemLabel
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// SentTimeLayout is the layout used for the display timestamp.
const SentTimeLayout = "15:04:05"

// Message represents a single message in a transcript.
// A Message is never modified after it is created.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a new message with a generated ID and the current time.
func NewMessage(role Role, sender, content string) Message {
	return Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// Direction returns the bubble direction derived from the role.
func (m Message) Direction() Direction {
	return m.Role.Direction()
}

// Outgoing reports whether the message was written by the local user.
func (m Message) Outgoing() bool {
	return m.Direction() == DirectionOutgoing
}

// SentTime returns the local time-of-day the message was created.
func (m Message) SentTime() string {
	return m.Timestamp.Local().Format(SentTimeLayout)
}
