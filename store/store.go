// Package store holds the authoritative in-memory chat session state.
// Mutations are atomic and synchronous; every change publishes a fresh
// immutable snapshot that observers read without racing the next mutation.
package store

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"chat-sync/domain"
)

// DefaultTypingTTL bounds how long a typing indicator stays alive without a
// refresh. The transport gives no guidance here; 10s keeps indicators
// responsive with a prune cadence on the order of seconds.
const DefaultTypingTTL = 10 * time.Second

type Option func(*Store)

// WithClock swaps the wall clock, used by tests to control typing expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithTypingTTL(ttl time.Duration) Option {
	return func(s *Store) { s.typingTTL = ttl }
}

// Store maps conversation id to Session. Inputs arrive from concurrent
// sources (transport goroutine, UI, pruner ticker), so the mutex funnels
// them into one atomic mutation at a time; no mutation awaits I/O while
// holding the lock.
type Store struct {
	mu        sync.RWMutex
	log       *slog.Logger
	now       func() time.Time
	typingTTL time.Duration

	currentUserID   string
	activeSessionID string
	sessions        map[string]*domain.Session
	order           []string

	version   uint64
	published Snapshot

	listeners  map[int]func(Snapshot)
	listenerID int
}

func New(log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		log:       log,
		now:       time.Now,
		typingTTL: DefaultTypingTTL,
		sessions:  make(map[string]*domain.Session),
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.published = s.buildSnapshot()
	return s
}

// EnsureSession creates the session if absent; if present it merges the
// non-conflicting metadata and roster without touching messages, reactions
// or typing state. Idempotent.
func (s *Store) EnsureSession(desc domain.SessionDescriptor) {
	if desc.ID == "" {
		s.log.Debug("ensure skipped, empty conversation id")
		return
	}
	s.mutate(func() bool {
		sess, ok := s.sessions[desc.ID]
		if !ok {
			kind := desc.Kind
			if kind == "" {
				kind = domain.KindUnknown
			}
			sess = &domain.Session{
				ID:        desc.ID,
				Kind:      kind,
				Title:     desc.Title,
				AvatarRef: desc.AvatarRef,
				CreatedBy: desc.CreatedBy,
				Typing:    make(map[string]domain.TypingEntry),
			}
			s.sessions[desc.ID] = sess
			s.order = append(s.order, desc.ID)
		}
		if desc.Title != "" {
			sess.Title = desc.Title
		}
		if desc.AvatarRef != "" {
			sess.AvatarRef = desc.AvatarRef
		}
		if sess.CreatedBy == "" {
			sess.CreatedBy = desc.CreatedBy
		}
		if sess.Kind == domain.KindUnknown && desc.Kind != "" && desc.Kind != domain.KindUnknown {
			sess.Kind = desc.Kind
		}
		s.reconcileRoster(sess, desc.Participants)
		return true
	})
}

// SetCurrentUserID fixes the viewer identity used for SelfReacted and for
// resolving direct-chat counterparts. Reactions applied before this call
// carry SelfReacted == false; the flag is recomputed here.
func (s *Store) SetCurrentUserID(id string) {
	s.mutate(func() bool {
		if s.currentUserID == id {
			return false
		}
		s.currentUserID = id
		for _, sess := range s.sessions {
			for i := range sess.Messages {
				for emoji, group := range sess.Messages[i].Reactions {
					sess.Messages[i].Reactions[emoji] = group.WithSelf(id)
				}
			}
		}
		return true
	})
}

// SetActiveSession records which conversation the viewer has open. The
// value round-trips through the persisted snapshot.
func (s *Store) SetActiveSession(id string) {
	s.mutate(func() bool {
		if id != "" {
			if _, ok := s.sessions[id]; !ok {
				s.log.Debug("active session not in store", "conversation", id)
				return false
			}
		}
		if s.activeSessionID == id {
			return false
		}
		s.activeSessionID = id
		return true
	})
}

// RemoveSession drops a session entirely. Sessions are only removed by an
// explicit local action such as leaving a conversation; nothing collects
// them implicitly.
func (s *Store) RemoveSession(id string) {
	s.mutate(func() bool {
		if _, ok := s.sessions[id]; !ok {
			return false
		}
		delete(s.sessions, id)
		for i, sid := range s.order {
			if sid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		if s.activeSessionID == id {
			s.activeSessionID = ""
		}
		return true
	})
}

// AddMessage inserts a message keeping the log ordered by SentAt with ID as
// tie-break. A duplicate id is a no-op, with one exception: a remote arrival
// over a pending local message is the authoritative echo of that send and
// replaces it in place instead of duplicating it.
func (s *Store) AddMessage(conversationID string, msg domain.Message, isLocal bool) {
	if msg.ID == "" {
		s.log.Debug("message without id dropped", "conversation", conversationID)
		return
	}
	s.mutate(func() bool {
		sess, ok := s.sessions[conversationID]
		if !ok {
			s.log.Debug("message for unknown conversation dropped", "conversation", conversationID)
			return false
		}

		if msg.Status == "" {
			if isLocal {
				msg.Status = domain.StatusPending
			} else {
				msg.Status = domain.StatusSent
			}
		}
		for emoji, group := range msg.Reactions {
			msg.Reactions[emoji] = group.WithSelf(s.currentUserID)
		}

		for i := range sess.Messages {
			if sess.Messages[i].ID != msg.ID {
				continue
			}
			if isLocal || sess.Messages[i].Status != domain.StatusPending {
				return false
			}
			// Authoritative echo of an optimistic send.
			if msg.Reactions == nil {
				msg.Reactions = sess.Messages[i].Reactions
			}
			sess.Messages[i] = msg
			s.sortMessages(sess)
			return true
		}

		idx := sort.Search(len(sess.Messages), func(i int) bool {
			return msg.Less(sess.Messages[i])
		})
		sess.Messages = append(sess.Messages, domain.Message{})
		copy(sess.Messages[idx+1:], sess.Messages[idx:])
		sess.Messages[idx] = msg
		return true
	})
}

// SetMessageStatus transitions a pending message to sent or failed. Sent is
// terminal; later life-cycle changes arrive only as remote events.
func (s *Store) SetMessageStatus(conversationID, messageID string, status domain.MessageStatus) {
	s.mutate(func() bool {
		sess, ok := s.sessions[conversationID]
		if !ok {
			return false
		}
		for i := range sess.Messages {
			if sess.Messages[i].ID != messageID {
				continue
			}
			if sess.Messages[i].Status != domain.StatusPending {
				return false
			}
			if status != domain.StatusSent && status != domain.StatusFailed {
				return false
			}
			sess.Messages[i].Status = status
			return true
		}
		return false
	})
}

// RemoveMessage applies a remote tombstone. Messages are never deleted
// locally outside of this call.
func (s *Store) RemoveMessage(conversationID, messageID string) {
	s.mutate(func() bool {
		sess, ok := s.sessions[conversationID]
		if !ok {
			return false
		}
		for i := range sess.Messages {
			if sess.Messages[i].ID == messageID {
				sess.Messages = append(sess.Messages[:i], sess.Messages[i+1:]...)
				return true
			}
		}
		return false
	})
}

// ApplyReaction replaces the reaction group for one emoji with the
// authoritative member list from the transport. Replacing instead of
// incrementing makes duplicate or out-of-order delivery of the same event a
// no-op. An empty list deletes the group rather than leaving a zero-count
// stub.
func (s *Store) ApplyReaction(conversationID, messageID, emoji string, users []domain.Participant) {
	if emoji == "" {
		return
	}
	s.mutate(func() bool {
		sess, ok := s.sessions[conversationID]
		if !ok {
			s.log.Debug("reaction for unknown conversation dropped", "conversation", conversationID)
			return false
		}
		for i := range sess.Messages {
			if sess.Messages[i].ID != messageID {
				continue
			}
			msg := &sess.Messages[i]
			if len(users) == 0 {
				if _, had := msg.Reactions[emoji]; !had {
					return false
				}
				delete(msg.Reactions, emoji)
				if len(msg.Reactions) == 0 {
					msg.Reactions = nil
				}
				return true
			}
			if msg.Reactions == nil {
				msg.Reactions = make(map[string]domain.ReactionGroup, 1)
			}
			group := domain.ReactionGroup{
				Emoji: emoji,
				Count: len(users),
				Users: append([]domain.Participant(nil), users...),
			}
			msg.Reactions[emoji] = group.WithSelf(s.currentUserID)
			return true
		}
		s.log.Debug("reaction for unknown message dropped",
			"conversation", conversationID, "message", messageID)
		return false
	})
}

// ApplyTyping upserts the typing indicator for the acting participant with a
// fresh expiry (typing == false removes it) and reconciles the session
// roster from the event snapshot, subject to the direct-chat clamp.
func (s *Store) ApplyTyping(conversationID, senderID string, typing bool, roster []domain.Participant) {
	if senderID == "" {
		return
	}
	s.mutate(func() bool {
		sess, ok := s.sessions[conversationID]
		if !ok {
			s.log.Debug("typing for unknown conversation dropped", "conversation", conversationID)
			return false
		}
		s.reconcileRoster(sess, roster)

		if !typing {
			if _, had := sess.Typing[senderID]; !had {
				return true
			}
			delete(sess.Typing, senderID)
			return true
		}

		now := s.now()
		actor := domain.Participant{ID: senderID}
		for _, p := range sess.Participants {
			if p.ID == senderID {
				actor = p
				break
			}
		}
		entry := domain.TypingEntry{
			Participant: actor,
			StartedAt:   now,
			ExpiresAt:   now.Add(s.typingTTL),
		}
		if prev, had := sess.Typing[senderID]; had {
			entry.StartedAt = prev.StartedAt
		}
		if sess.Typing == nil {
			sess.Typing = make(map[string]domain.TypingEntry)
		}
		sess.Typing[senderID] = entry
		return true
	})
}

// PruneTyping evicts every typing entry whose expiry is at or before now,
// across all sessions, and reports how many were removed. It is a pure
// function of the clock and safe to call on any cadence.
func (s *Store) PruneTyping(now time.Time) int {
	var pruned int
	s.mutate(func() bool {
		for _, sess := range s.sessions {
			for id, entry := range sess.Typing {
				if !entry.ExpiresAt.After(now) {
					delete(sess.Typing, id)
					pruned++
				}
			}
		}
		return pruned > 0
	})
	return pruned
}

// reconcileRoster merges an incoming participant snapshot into the session,
// clamping direct sessions to two members. Unknown-kind sessions are
// uncapped: the codec failed to classify the id, so the cap fails open while
// everything else about the payload is still treated as untrusted.
func (s *Store) reconcileRoster(sess *domain.Session, incoming []domain.Participant) {
	if len(incoming) == 0 {
		return
	}
	merged := domain.MergeParticipants(sess.Participants, incoming)
	if sess.Kind == domain.KindDirect {
		merged = domain.ClampDirect(sess.Participants, merged, s.currentUserID)
	}
	sess.Participants = merged
}

func (s *Store) sortMessages(sess *domain.Session) {
	sort.SliceStable(sess.Messages, func(i, j int) bool {
		return sess.Messages[i].Less(sess.Messages[j])
	})
}

// mutate runs fn under the lock and, when it reports a change, publishes a
// fresh snapshot and notifies subscribers outside the lock.
func (s *Store) mutate(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	var (
		snap      Snapshot
		observers []func(Snapshot)
	)
	if changed {
		s.version++
		s.published = s.buildSnapshot()
		snap = s.published
		observers = make([]func(Snapshot), 0, len(s.listeners))
		for _, listener := range s.listeners {
			observers = append(observers, listener)
		}
	}
	s.mu.Unlock()

	for _, notify := range observers {
		notify(snap)
	}
}
