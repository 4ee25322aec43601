package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Message_Ordering(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

	earlier := Message{ID: "z", SentAt: at}
	later := Message{ID: "a", SentAt: at.Add(time.Second)}
	req.True(earlier.Less(later))
	req.False(later.Less(earlier))

	// Same instant: id is the stable tie-break.
	tieA := Message{ID: "a", SentAt: at}
	tieZ := Message{ID: "z", SentAt: at}
	req.True(tieA.Less(tieZ))
	req.False(tieZ.Less(tieA))
}

func Test_Message_Clone_Is_Independent(t *testing.T) {
	req := require.New(t)

	msg := Message{
		ID: "m1",
		Reactions: map[string]ReactionGroup{
			"👍": {Emoji: "👍", Count: 1, Users: []Participant{{ID: "bob"}}},
		},
		Attachments: []Attachment{{Name: "a.png"}},
	}
	clone := msg.Clone()
	clone.Reactions["👍"] = ReactionGroup{Emoji: "👍", Count: 9}
	clone.Attachments[0].Name = "tampered"

	req.Equal(1, msg.Reactions["👍"].Count)
	req.Equal("a.png", msg.Attachments[0].Name)
}

func Test_ReactionGroup_WithSelf(t *testing.T) {
	req := require.New(t)

	group := ReactionGroup{Emoji: "👍", Count: 2, Users: []Participant{{ID: "alice"}, {ID: "bob"}}}
	req.True(group.WithSelf("alice").SelfReacted)
	req.False(group.WithSelf("carol").SelfReacted)
	req.False(group.WithSelf("").SelfReacted)
}

func Test_NewAttachment_Sniffs_Mime(t *testing.T) {
	req := require.New(t)

	att := NewAttachment("photo.png", []byte("\x89PNG\r\n\x1a\n rest"))
	req.Equal("photo.png", att.Name)
	req.Equal("image/png", att.Mime)
	req.Equal(int64(13), att.Size)

	text := NewAttachment("notes.txt", []byte("plain words"))
	req.Contains(text.Mime, "text/plain")
}

func Test_Session_Counterpart(t *testing.T) {
	req := require.New(t)

	sess := Session{Participants: []Participant{{ID: "alice"}, {ID: "bob", DisplayName: "Bob"}}}
	other, ok := sess.Counterpart("alice")
	req.True(ok)
	req.Equal("bob", other.ID)

	_, ok = Session{}.Counterpart("alice")
	req.False(ok)
}
