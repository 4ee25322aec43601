package store

import "chat-sync/domain"

// Snapshot is the read-only view of the store at one version. Everything in
// it is a deep copy published once; consumers must not mutate it, and the
// store never writes into a snapshot after publication.
type Snapshot struct {
	Version         uint64
	CurrentUserID   string
	ActiveSessionID string
	Sessions        map[string]domain.Session
	Order           []string
}

// Session looks up one session by conversation id.
func (s Snapshot) Session(id string) (domain.Session, bool) {
	sess, ok := s.Sessions[id]
	return sess, ok
}

// Ordered returns the sessions in creation order.
func (s Snapshot) Ordered() []domain.Session {
	out := make([]domain.Session, 0, len(s.Order))
	for _, id := range s.Order {
		if sess, ok := s.Sessions[id]; ok {
			out = append(out, sess)
		}
	}
	return out
}

func (s *Store) buildSnapshot() Snapshot {
	snap := Snapshot{
		Version:         s.version,
		CurrentUserID:   s.currentUserID,
		ActiveSessionID: s.activeSessionID,
		Sessions:        make(map[string]domain.Session, len(s.sessions)),
		Order:           append([]string(nil), s.order...),
	}
	for id, sess := range s.sessions {
		snap.Sessions[id] = sess.Clone()
	}
	return snap
}

// Snapshot returns the last published view.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published
}

// Subscribe registers a listener invoked with each newly published snapshot.
// The returned function removes the listener.
func (s *Store) Subscribe(listener func(Snapshot)) func() {
	s.mu.Lock()
	id := s.listenerID
	s.listenerID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
