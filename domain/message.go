// Package domain contains core concepts of the chat session state.
// This file defines Message values and their ordering rules.
package domain

import (
	"strings"
	"time"
)

type MessageStatus string

const (
	StatusPending MessageStatus = "pending"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

// Message is one entry of a session log. A locally inserted message starts
// as pending under a temporary id and is reconciled in place when the
// authoritative echo for the same send arrives.
type Message struct {
	ID          string                   `json:"id"`
	AuthorID    string                   `json:"authorId"`
	Body        string                   `json:"body"`
	SentAt      time.Time                `json:"sentAt"`
	Status      MessageStatus            `json:"status"`
	Reactions   map[string]ReactionGroup `json:"reactions,omitempty"`
	Attachments []Attachment             `json:"attachments,omitempty"`
}

// Less orders messages by SentAt ascending with ID as a stable tie-break.
// The log order is a property of the timestamps, not of arrival order.
func (m Message) Less(other Message) bool {
	if !m.SentAt.Equal(other.SentAt) {
		return m.SentAt.Before(other.SentAt)
	}
	return strings.Compare(m.ID, other.ID) < 0
}

// Clone returns a deep copy safe to publish in an immutable snapshot.
func (m Message) Clone() Message {
	out := m
	if m.Reactions != nil {
		out.Reactions = make(map[string]ReactionGroup, len(m.Reactions))
		for emoji, group := range m.Reactions {
			out.Reactions[emoji] = group.Clone()
		}
	}
	if m.Attachments != nil {
		out.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return out
}
