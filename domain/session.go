package domain

import "time"

// SessionKind distinguishes two-party chats, which carry the two-member
// roster invariant, from N-party groups.
type SessionKind string

const (
	KindDirect  SessionKind = "direct"
	KindGroup   SessionKind = "group"
	KindUnknown SessionKind = "unknown"
)

// TypingEntry is the ephemeral composing indicator for one participant.
// Entries expire by TTL and are never persisted.
type TypingEntry struct {
	Participant Participant `json:"participant"`
	StartedAt   time.Time   `json:"startedAt"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

// Session is the unit of chat state for one conversation id.
type Session struct {
	ID           string                 `json:"id"`
	Kind         SessionKind            `json:"kind"`
	Title        string                 `json:"title,omitempty"`
	AvatarRef    string                 `json:"avatarRef,omitempty"`
	CreatedBy    string                 `json:"createdBy,omitempty"`
	Participants []Participant          `json:"participants"`
	Messages     []Message              `json:"messages"`
	Typing       map[string]TypingEntry `json:"-"`
}

// SessionDescriptor carries the metadata used to create a session or merge
// non-conflicting fields into an existing one. Messages, reactions and
// typing state are never part of a descriptor.
type SessionDescriptor struct {
	ID           string
	Kind         SessionKind
	Title        string
	AvatarRef    string
	CreatedBy    string
	Participants []Participant
}

// Clone returns a deep copy safe to publish in an immutable snapshot.
func (s Session) Clone() Session {
	out := s
	if s.Participants != nil {
		out.Participants = append([]Participant(nil), s.Participants...)
	}
	if s.Messages != nil {
		out.Messages = make([]Message, len(s.Messages))
		for i, m := range s.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	if s.Typing != nil {
		out.Typing = make(map[string]TypingEntry, len(s.Typing))
		for id, entry := range s.Typing {
			out.Typing[id] = entry
		}
	}
	return out
}

// Counterpart resolves "the other participant" of a direct session relative
// to the given viewer. Returns false when none is known yet.
func (s Session) Counterpart(selfID string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID != selfID {
			return p, true
		}
	}
	return Participant{}, false
}
