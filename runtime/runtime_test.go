package runtime

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-sync/domain"
	"chat-sync/engine"
	"chat-sync/store"
)

func Test_Pruner_Evicts_Expired_Typing(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(log, store.WithTypingTTL(30*time.Millisecond))
	st.EnsureSession(domain.SessionDescriptor{
		ID:           "c1",
		Kind:         domain.KindGroup,
		Participants: []domain.Participant{{ID: "bob"}},
	})
	st.ApplyTyping("c1", "bob", true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	pruner := NewPruner(st, 10*time.Millisecond, nil, log)
	go func() {
		defer close(done)
		_ = pruner.Run(ctx)
	}()

	req.Eventually(func() bool {
		sess, _ := st.Snapshot().Session("c1")
		return len(sess.Typing) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func Test_Feed_Dispatches_In_Arrival_Order(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(log)
	e := engine.New(st, log)

	frames := make(chan []byte, 4)
	frames <- []byte(`{"type": "chat.session", "conversationId": "chat:group:g1", "session": {"participants": [{"id": "alice"}]}}`)
	frames <- []byte(`{"type": "chat.message", "conversationId": "chat:group:g1", "message": {"id": "m1", "authorId": "alice", "body": "first", "sentAt": "2026-08-27T10:00:00Z"}}`)
	frames <- []byte(`garbage frame`)
	close(frames)

	feed := NewFeed(e, frames, log)
	req.NoError(feed.Run(context.Background()))

	sess, ok := st.Snapshot().Session("chat:group:g1")
	req.True(ok)
	req.Len(sess.Messages, 1)
	req.Equal("first", sess.Messages[0].Body)
}
