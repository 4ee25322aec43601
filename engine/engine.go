// Package engine reconciles two streams of truth into the session store:
// optimistic local actions and real-time events that may arrive duplicated
// or out of order. Correctness comes from idempotent and replace semantics
// in the store, not from sequencing.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-sync/convid"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/event"
	"chat-sync/moderation"
	"chat-sync/observability"
	"chat-sync/search"
	"chat-sync/store"
)

// DefaultSnapshotKey is the provider key under which session state persists.
const DefaultSnapshotKey = "chat:sessions:v1"

type Option func(*Engine)

// WithModerator censors outbound local message bodies before insertion.
func WithModerator(m moderation.Moderator) Option {
	return func(e *Engine) { e.moderator = &m }
}

// WithSearchIndex keeps a local full-text index in step with the store.
func WithSearchIndex(ix *search.Index) Option {
	return func(e *Engine) { e.index = ix }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithSnapshotKey(key string) Option {
	return func(e *Engine) { e.snapshotKey = key }
}

// Engine owns the dispatch boundary. Its contract is to never let a bad
// real-time payload escape as a panic or error into the host UI: everything
// malformed is logged and dropped.
type Engine struct {
	store       *store.Store
	log         *slog.Logger
	now         func() time.Time
	snapshotKey string

	currentUserID string

	moderator *moderation.Moderator
	index     *search.Index
	metrics   *observability.Metrics
}

func New(st *store.Store, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		log:         log,
		now:         time.Now,
		snapshotKey: DefaultSnapshotKey,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetCurrentUser wires the viewer identity supplied by the identity
// provider. Self-relative fields computed before this call default to
// false/unknown.
func (e *Engine) SetCurrentUser(id string) {
	e.currentUserID = id
	e.store.SetCurrentUserID(id)
}

// StartDirectChat ensures the deterministic two-party session with peer and
// returns its conversation id.
func (e *Engine) StartDirectChat(peer domain.Participant) (string, error) {
	if e.currentUserID == "" {
		return "", errors.ErrMissingCurrentUser
	}
	id, err := convid.DirectID(e.currentUserID, peer.ID)
	if err != nil {
		return "", fmt.Errorf("deriving direct id: %w", err)
	}
	e.store.EnsureSession(domain.SessionDescriptor{
		ID:           id,
		Kind:         domain.KindDirect,
		CreatedBy:    e.currentUserID,
		Participants: []domain.Participant{{ID: e.currentUserID}, peer},
	})
	return id, nil
}

// StartGroupChat creates a fresh multi-party session.
func (e *Engine) StartGroupChat(title string, members []domain.Participant) string {
	id := convid.GroupID()
	participants := members
	if e.currentUserID != "" {
		participants = append([]domain.Participant{{ID: e.currentUserID}}, members...)
	}
	e.store.EnsureSession(domain.SessionDescriptor{
		ID:           id,
		Kind:         domain.KindGroup,
		Title:        title,
		CreatedBy:    e.currentUserID,
		Participants: participants,
	})
	return id
}

// LeaveConversation removes the session locally. This is the only implicit
// path by which a session disappears.
func (e *Engine) LeaveConversation(conversationID string) {
	e.store.RemoveSession(conversationID)
}

// PendingMessage is the caller's handle on an optimistic send. The engine
// enforces no timeout; the caller decides when the transport has failed.
type PendingMessage struct {
	ConversationID string
	MessageID      string

	engine *Engine
}

// MarkSent acknowledges the send. Sent is terminal for this engine.
func (p *PendingMessage) MarkSent() {
	p.engine.store.SetMessageStatus(p.ConversationID, p.MessageID, domain.StatusSent)
}

// MarkFailed records a transport rejection or caller-side timeout.
func (p *PendingMessage) MarkFailed() {
	p.engine.store.SetMessageStatus(p.ConversationID, p.MessageID, domain.StatusFailed)
}

// SendLocalMessage inserts a pending message optimistically and returns the
// handle used to settle it once the transport confirms or rejects the send.
func (e *Engine) SendLocalMessage(conversationID, body string, attachments ...domain.Attachment) (*PendingMessage, error) {
	if e.currentUserID == "" {
		return nil, errors.ErrMissingCurrentUser
	}
	if _, ok := e.store.Snapshot().Session(conversationID); !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownConversation, conversationID)
	}

	if e.moderator != nil {
		body = e.moderator.Censor(body)
	}
	msg := domain.Message{
		ID:          uuid.NewString(),
		AuthorID:    e.currentUserID,
		Body:        body,
		SentAt:      e.now().UTC(),
		Status:      domain.StatusPending,
		Attachments: attachments,
	}
	e.store.AddMessage(conversationID, msg, true)
	e.indexMessage(conversationID, msg)
	if e.metrics != nil {
		e.metrics.IncrLocalSends()
	}
	return &PendingMessage{ConversationID: conversationID, MessageID: msg.ID, engine: e}, nil
}

// Search queries the local message index, when one is configured.
func (e *Engine) Search(ctx context.Context, term, conversationID string, limit int) ([]search.Hit, error) {
	if e.index == nil {
		return nil, nil
	}
	return e.index.Search(ctx, term, conversationID, limit)
}

// Dispatch is the single entry point for inbound real-time frames. Unknown
// event types and payloads that fail validation are logged and dropped; a
// single bad message must never take down the chat UI.
func (e *Engine) Dispatch(raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic applying realtime event", "panic", r)
		}
	}()

	evt, err := event.Decode(raw)
	if err != nil {
		e.log.Warn("dropping realtime event", "error", err)
		if e.metrics != nil {
			e.metrics.IncrEventsDropped()
		}
		return
	}

	switch evt := evt.(type) {
	case event.Message:
		e.applyMessage(evt)
	case event.Reaction:
		e.applyReaction(evt)
	case event.Typing:
		e.applyTyping(evt)
	case event.Session:
		e.applySession(evt)
	case event.MessageRemoved:
		e.applyMessageRemoved(evt)
	}
	if e.metrics != nil {
		e.metrics.IncrEventsApplied()
	}
}

func (e *Engine) applyMessage(evt event.Message) {
	e.ensureFromWire(evt.ConversationID, nil)

	status := domain.MessageStatus(evt.Payload.Status)
	switch status {
	case domain.StatusPending, domain.StatusSent, domain.StatusFailed:
	default:
		status = domain.StatusSent
	}
	msg := domain.Message{
		ID:          evt.Payload.ID,
		AuthorID:    evt.Payload.AuthorID,
		Body:        evt.Payload.Body,
		SentAt:      evt.Payload.SentAt,
		Status:      status,
		Attachments: evt.Payload.Attachments,
	}
	e.store.AddMessage(evt.ConversationID, msg, false)
	e.indexMessage(evt.ConversationID, msg)
}

func (e *Engine) applyReaction(evt event.Reaction) {
	e.ensureFromWire(evt.ConversationID, evt.Participants)

	// Snapshot replace: only the authoritative member list for the event's
	// emoji matters; the action field is informational.
	var users []domain.Participant
	if state, ok := lo.Find(evt.Reactions, func(s event.ReactionState) bool {
		return s.Emoji == evt.Emoji
	}); ok {
		users = state.Users
	}
	e.store.ApplyReaction(evt.ConversationID, evt.MessageID, evt.Emoji, users)
}

func (e *Engine) applyTyping(evt event.Typing) {
	e.ensureFromWire(evt.ConversationID, evt.Participants)
	e.store.ApplyTyping(evt.ConversationID, evt.SenderID, evt.Typing, evt.Participants)
}

func (e *Engine) applySession(evt event.Session) {
	e.store.EnsureSession(domain.SessionDescriptor{
		ID:           evt.ConversationID,
		Kind:         convid.KindOf(evt.ConversationID),
		Title:        evt.Payload.Title,
		AvatarRef:    evt.Payload.Avatar,
		Participants: evt.Payload.Participants,
	})
}

func (e *Engine) applyMessageRemoved(evt event.MessageRemoved) {
	e.store.RemoveMessage(evt.ConversationID, evt.MessageID)
	if e.index != nil {
		if err := e.index.RemoveMessage(evt.MessageID); err != nil {
			e.log.Warn("removing message from index", "error", err)
		}
	}
}

// ensureFromWire creates the session on first remote reference, classifying
// its kind from the conversation id alone.
func (e *Engine) ensureFromWire(conversationID string, participants []domain.Participant) {
	e.store.EnsureSession(domain.SessionDescriptor{
		ID:           conversationID,
		Kind:         convid.KindOf(conversationID),
		Participants: participants,
	})
}

func (e *Engine) indexMessage(conversationID string, msg domain.Message) {
	if e.index == nil {
		return
	}
	if err := e.index.IndexMessage(conversationID, msg); err != nil {
		e.log.Warn("indexing message", "conversation", conversationID, "error", err)
	}
}
