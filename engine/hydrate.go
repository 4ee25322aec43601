package engine

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"chat-sync/convid"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/storage"
)

// Hydrate replays a persisted snapshot into the store. Each session entry
// decodes independently: a corrupt entry is logged and skipped so one bad
// record never prevents the rest from loading. Typing state was never
// persisted, so every hydrated session starts with no presence.
func (e *Engine) Hydrate(provider storage.Provider) error {
	raw, err := provider.GetItem(e.snapshotKey)
	if stderrors.Is(err, errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading persisted snapshot: %w", err)
	}

	var state storage.PersistedState
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("decoding persisted snapshot: %w", err)
	}

	for _, entry := range state.Sessions {
		sess, err := storage.DecodeSession(entry)
		if err != nil {
			e.log.Warn("skipping persisted session",
				"error", fmt.Errorf("%w: %v", errors.ErrCorruptPersistedSession, err))
			continue
		}
		if sess.ID == "" || len(sess.Participants) == 0 {
			e.log.Warn("skipping persisted session",
				"error", errors.ErrCorruptPersistedSession, "conversation", sess.ID)
			continue
		}

		e.store.EnsureSession(domain.SessionDescriptor{
			ID:           sess.ID,
			Kind:         persistedKind(sess),
			Title:        sess.Title,
			AvatarRef:    sess.Avatar,
			CreatedBy:    sess.CreatedBy,
			Participants: sess.Participants,
		})
		for _, msg := range sess.Messages {
			e.store.AddMessage(sess.ID, msg, false)
			e.indexMessage(sess.ID, msg)
		}
	}

	if state.ActiveSessionID != nil {
		e.store.SetActiveSession(*state.ActiveSessionID)
	}
	return nil
}

// Persist writes the inverse of Hydrate. Typing state is deliberately
// excluded: it is ephemeral by definition.
func (e *Engine) Persist(provider storage.Provider) error {
	snap := e.store.Snapshot()

	state := storage.PersistedState{
		Sessions: make([]json.RawMessage, 0, len(snap.Order)),
	}
	if snap.ActiveSessionID != "" {
		active := snap.ActiveSessionID
		state.ActiveSessionID = &active
	}
	for _, sess := range snap.Ordered() {
		entry, err := storage.EncodeSession(sess)
		if err != nil {
			e.log.Warn("skipping unserializable session", "conversation", sess.ID, "error", err)
			continue
		}
		state.Sessions = append(state.Sessions, entry)
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return provider.SetItem(e.snapshotKey, raw)
}

func persistedKind(sess storage.PersistedSession) domain.SessionKind {
	switch domain.SessionKind(sess.Type) {
	case domain.KindDirect, domain.KindGroup:
		return domain.SessionKind(sess.Type)
	default:
		return convid.KindOf(sess.ID)
	}
}
