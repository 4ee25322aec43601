package event

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-sync/errors"
)

func Test_Decode_Message_Envelope(t *testing.T) {
	req := require.New(t)

	raw := []byte(`{
		"type": "chat.message",
		"conversationId": "chat:pair:alice:bob",
		"message": {"id": "m1", "authorId": "bob", "body": "hi", "sentAt": "2026-08-27T10:00:00Z"}
	}`)

	evt, err := Decode(raw)
	req.NoError(err)

	msg, ok := evt.(Message)
	req.True(ok)
	req.Equal("chat:pair:alice:bob", msg.ConversationID)
	req.Equal("m1", msg.Payload.ID)
	req.Equal("bob", msg.Payload.AuthorID)
}

func Test_Decode_Reaction_Envelope(t *testing.T) {
	req := require.New(t)

	raw := []byte(`{
		"type": "chat.reaction",
		"conversationId": "chat:pair:alice:bob",
		"messageId": "m1",
		"emoji": "👍",
		"action": "added",
		"actor": {"id": "bob"},
		"reactions": [{"emoji": "👍", "users": [{"id": "bob"}]}],
		"participants": [{"id": "alice"}, {"id": "bob"}]
	}`)

	evt, err := Decode(raw)
	req.NoError(err)

	reaction, ok := evt.(Reaction)
	req.True(ok)
	req.Equal("👍", reaction.Emoji)
	req.Len(reaction.Reactions, 1)
	req.Len(reaction.Reactions[0].Users, 1)
}

func Test_Decode_Rejects_Unknown_Type(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte(`{"type": "chat.nuke", "conversationId": "x"}`))
	req.ErrorIs(err, errors.ErrUnknownEventType)
}

func Test_Decode_Rejects_Invalid_Payloads(t *testing.T) {
	req := require.New(t)

	cases := map[string][]byte{
		"not json":            []byte(`hello`),
		"missing conversation": []byte(`{"type": "chat.typing", "senderId": "bob", "typing": true}`),
		"bad reaction action": []byte(`{"type": "chat.reaction", "conversationId": "c", "messageId": "m", "emoji": "👍", "action": "toggled"}`),
		"message without id":  []byte(`{"type": "chat.message", "conversationId": "c", "message": {"authorId": "bob"}}`),
		"empty session roster": []byte(`{"type": "chat.session", "conversationId": "c", "session": {"participants": []}}`),
	}
	for name, raw := range cases {
		_, err := Decode(raw)
		req.Error(err, name)
	}
}

func Test_Decode_Typing_Stop(t *testing.T) {
	req := require.New(t)

	raw := []byte(`{"type": "chat.typing", "conversationId": "c1", "senderId": "bob", "typing": false, "participants": [{"id": "bob", "displayName": "Bob"}]}`)
	evt, err := Decode(raw)
	req.NoError(err)

	typing, ok := evt.(Typing)
	req.True(ok)
	req.False(typing.Typing)
	req.Equal("Bob", typing.Participants[0].DisplayName)
}
