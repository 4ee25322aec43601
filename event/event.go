// Package event defines the real-time envelopes consumed by the engine.
// Inbound payloads are an untyped boundary: Decode validates raw frames into
// a closed set of typed events before any reconciliation logic runs.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"chat-sync/domain"
	"chat-sync/errors"
)

type Kind string

const (
	KindMessage        Kind = "chat.message"
	KindReaction       Kind = "chat.reaction"
	KindTyping         Kind = "chat.typing"
	KindSession        Kind = "chat.session"
	KindMessageRemoved Kind = "chat.message.removed"
)

// Event is the closed union of envelopes the engine dispatches on.
type Event interface {
	Kind() Kind
}

// MessagePayload is the message body carried by a chat.message envelope.
// Remote messages are authoritative; a missing status means sent.
type MessagePayload struct {
	ID          string              `json:"id" validate:"required"`
	AuthorID    string              `json:"authorId" validate:"required"`
	Body        string              `json:"body"`
	SentAt      time.Time           `json:"sentAt"`
	Status      string              `json:"status"`
	Attachments []domain.Attachment `json:"attachments"`
}

type Message struct {
	ConversationID string         `json:"conversationId" validate:"required"`
	Payload        MessagePayload `json:"message" validate:"required"`
}

func (Message) Kind() Kind { return KindMessage }

// ReactionState is the authoritative member list for one emoji, as provided
// by the transport. It replaces whatever the store currently holds.
type ReactionState struct {
	Emoji string               `json:"emoji" validate:"required"`
	Users []domain.Participant `json:"users"`
}

type Reaction struct {
	ConversationID string               `json:"conversationId" validate:"required"`
	MessageID      string               `json:"messageId" validate:"required"`
	Emoji          string               `json:"emoji" validate:"required"`
	Action         string               `json:"action" validate:"oneof=added removed"`
	Actor          domain.Participant   `json:"actor"`
	Reactions      []ReactionState      `json:"reactions"`
	Participants   []domain.Participant `json:"participants"`
}

func (Reaction) Kind() Kind { return KindReaction }

type Typing struct {
	ConversationID string               `json:"conversationId" validate:"required"`
	SenderID       string               `json:"senderId" validate:"required"`
	Typing         bool                 `json:"typing"`
	Participants   []domain.Participant `json:"participants"`
}

func (Typing) Kind() Kind { return KindTyping }

// SessionPayload is the roster/metadata snapshot of a chat.session envelope.
type SessionPayload struct {
	Participants []domain.Participant `json:"participants" validate:"min=1,dive"`
	Title        string               `json:"title"`
	Avatar       string               `json:"avatar"`
}

type Session struct {
	ConversationID string         `json:"conversationId" validate:"required"`
	Payload        SessionPayload `json:"session"`
}

func (Session) Kind() Kind { return KindSession }

type MessageRemoved struct {
	ConversationID string `json:"conversationId" validate:"required"`
	MessageID      string `json:"messageId" validate:"required"`
}

func (MessageRemoved) Kind() Kind { return KindMessageRemoved }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses a raw transport frame into one of the typed events.
// Anything that does not match the union — bad JSON, an unlisted type, a
// payload failing validation — comes back as an error for the dispatcher to
// log and drop; nothing malformed crosses into typed logic.
func Decode(raw []byte) (Event, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("envelope is not an object: %w", err)
	}

	var (
		evt Event
		err error
	)
	switch head.Type {
	case KindMessage:
		evt, err = decodeAs[Message](raw)
	case KindReaction:
		evt, err = decodeAs[Reaction](raw)
	case KindTyping:
		evt, err = decodeAs[Typing](raw)
	case KindSession:
		evt, err = decodeAs[Session](raw)
	case KindMessageRemoved:
		evt, err = decodeAs[MessageRemoved](raw)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, head.Type)
	}
	return evt, err
}

func decodeAs[E Event](raw []byte) (Event, error) {
	var evt E
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", evt.Kind(), err)
	}
	if err := validate.Struct(evt); err != nil {
		return nil, fmt.Errorf("validating %s: %w", evt.Kind(), err)
	}
	return evt, nil
}
