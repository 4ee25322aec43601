package storage

import (
	"encoding/json"

	"chat-sync/domain"
)

// PersistedState is the durable snapshot shape. Sessions are kept as raw
// JSON entries so a corrupt one decodes (and fails) independently of the
// rest; typing state is ephemeral and never serialized.
type PersistedState struct {
	ActiveSessionID *string           `json:"activeSessionId"`
	Sessions        []json.RawMessage `json:"sessions"`
}

// PersistedSession mirrors one session on disk. The field names follow the
// wire shape of the persistence layer, not the in-memory model.
type PersistedSession struct {
	ID           string               `json:"id"`
	Type         string               `json:"type"`
	Title        string               `json:"title,omitempty"`
	Avatar       string               `json:"avatar,omitempty"`
	CreatedBy    string               `json:"createdBy,omitempty"`
	Participants []domain.Participant `json:"participants"`
	Messages     []domain.Message     `json:"messages"`
}

// EncodeSession marshals one session for persistence, dropping typing state.
func EncodeSession(sess domain.Session) (json.RawMessage, error) {
	return json.Marshal(PersistedSession{
		ID:           sess.ID,
		Type:         string(sess.Kind),
		Title:        sess.Title,
		Avatar:       sess.AvatarRef,
		CreatedBy:    sess.CreatedBy,
		Participants: sess.Participants,
		Messages:     sess.Messages,
	})
}

// DecodeSession unmarshals one persisted entry. Minimal validity — a
// conversation id and at least one participant — is checked by the caller.
func DecodeSession(raw json.RawMessage) (PersistedSession, error) {
	var sess PersistedSession
	err := json.Unmarshal(raw, &sess)
	return sess, err
}
