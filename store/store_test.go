package store

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"chat-sync/domain"
)

var (
	alice = domain.Participant{ID: "alice", DisplayName: "Alice"}
	bob   = domain.Participant{ID: "bob", DisplayName: "Bob"}
	carol = domain.Participant{ID: "carol", DisplayName: "Carol"}
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, opts...)
}

func directDescriptor(id string) domain.SessionDescriptor {
	return domain.SessionDescriptor{
		ID:           id,
		Kind:         domain.KindDirect,
		Participants: []domain.Participant{alice, bob},
	}
}

func Test_EnsureSession_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	s.EnsureSession(directDescriptor("chat:pair:alice:bob"))
	s.AddMessage("chat:pair:alice:bob", domain.Message{ID: "m1", AuthorID: "bob", SentAt: time.Now()}, false)

	// Re-ensuring merges metadata but leaves messages untouched.
	s.EnsureSession(domain.SessionDescriptor{ID: "chat:pair:alice:bob", Kind: domain.KindDirect, Title: "Alice & Bob"})

	snap := s.Snapshot()
	req.Len(snap.Sessions, 1)
	sess, ok := snap.Session("chat:pair:alice:bob")
	req.True(ok)
	req.Equal("Alice & Bob", sess.Title)
	req.Len(sess.Messages, 1)
	req.Len(sess.Participants, 2)
}

func Test_AddMessage_Keeps_Order_And_Ignores_Duplicates(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.EnsureSession(directDescriptor("c1"))

	base := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s.AddMessage("c1", domain.Message{ID: "m3", AuthorID: "bob", SentAt: base.Add(2 * time.Second)}, false)
	s.AddMessage("c1", domain.Message{ID: "m1", AuthorID: "bob", SentAt: base}, false)
	s.AddMessage("c1", domain.Message{ID: "m2", AuthorID: "alice", SentAt: base.Add(time.Second)}, false)

	// Duplicate delivery of a sent message is a no-op.
	before := s.Snapshot().Version
	s.AddMessage("c1", domain.Message{ID: "m2", AuthorID: "alice", Body: "mutated", SentAt: base}, false)
	req.Equal(before, s.Snapshot().Version)

	sess, _ := s.Snapshot().Session("c1")
	ids := lo.Map(sess.Messages, func(m domain.Message, _ int) string { return m.ID })
	req.Equal([]string{"m1", "m2", "m3"}, ids)
}

func Test_AddMessage_Ties_Broken_By_ID(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.EnsureSession(directDescriptor("c1"))

	at := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s.AddMessage("c1", domain.Message{ID: "zz", AuthorID: "bob", SentAt: at}, false)
	s.AddMessage("c1", domain.Message{ID: "aa", AuthorID: "bob", SentAt: at}, false)

	sess, _ := s.Snapshot().Session("c1")
	req.Equal("aa", sess.Messages[0].ID)
	req.Equal("zz", sess.Messages[1].ID)
}

func Test_Remote_Echo_Reconciles_Pending_Message(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.EnsureSession(directDescriptor("c1"))

	at := time.Now().UTC()
	s.AddMessage("c1", domain.Message{ID: "tmp-1", AuthorID: "alice", Body: "Hello", SentAt: at, Status: domain.StatusPending}, true)

	// The authoritative echo for the same send replaces the pending entry.
	s.AddMessage("c1", domain.Message{ID: "tmp-1", AuthorID: "alice", Body: "Hello", SentAt: at}, false)

	sess, _ := s.Snapshot().Session("c1")
	req.Len(sess.Messages, 1)
	req.Equal(domain.StatusSent, sess.Messages[0].Status)
}

func Test_AddMessage_Unknown_Conversation_Is_Skipped(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	s.AddMessage("nowhere", domain.Message{ID: "m1", AuthorID: "bob", SentAt: time.Now()}, false)
	req.Empty(s.Snapshot().Sessions)
}

func Test_SetMessageStatus_Transitions(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.EnsureSession(directDescriptor("c1"))
	s.AddMessage("c1", domain.Message{ID: "m1", AuthorID: "alice", SentAt: time.Now(), Status: domain.StatusPending}, true)

	s.SetMessageStatus("c1", "m1", domain.StatusFailed)
	sess, _ := s.Snapshot().Session("c1")
	req.Equal(domain.StatusFailed, sess.Messages[0].Status)

	// Failed is not pending anymore; nothing transitions out of it here.
	s.SetMessageStatus("c1", "m1", domain.StatusSent)
	sess, _ = s.Snapshot().Session("c1")
	req.Equal(domain.StatusFailed, sess.Messages[0].Status)
}

func Test_ApplyReaction_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.SetCurrentUserID("alice")
	s.EnsureSession(directDescriptor("c1"))
	s.AddMessage("c1", domain.Message{ID: "m1", AuthorID: "alice", SentAt: time.Now()}, false)

	users := []domain.Participant{bob}
	s.ApplyReaction("c1", "m1", "👍", users)
	s.ApplyReaction("c1", "m1", "👍", users) // duplicate delivery

	sess, _ := s.Snapshot().Session("c1")
	group, ok := sess.Messages[0].Reactions["👍"]
	req.True(ok)
	req.Equal(1, group.Count)
	req.Equal([]domain.Participant{bob}, group.Users)
	req.False(group.SelfReacted)
}

func Test_ApplyReaction_Empty_List_Deletes_Group(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.EnsureSession(directDescriptor("c1"))
	s.AddMessage("c1", domain.Message{ID: "m1", AuthorID: "alice", SentAt: time.Now()}, false)

	s.ApplyReaction("c1", "m1", "👍", []domain.Participant{bob})
	s.ApplyReaction("c1", "m1", "👍", nil)

	sess, _ := s.Snapshot().Session("c1")
	req.Empty(sess.Messages[0].Reactions)
}

func Test_ApplyReaction_Keeps_Emoji_Variants_Distinct(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.EnsureSession(directDescriptor("c1"))
	s.AddMessage("c1", domain.Message{ID: "m1", AuthorID: "alice", SentAt: time.Now()}, false)

	s.ApplyReaction("c1", "m1", "👍", []domain.Participant{bob})
	s.ApplyReaction("c1", "m1", "👍🏽", []domain.Participant{alice})

	sess, _ := s.Snapshot().Session("c1")
	req.Len(sess.Messages[0].Reactions, 2)
}

func Test_SelfReacted_Recomputed_On_CurrentUser(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.EnsureSession(directDescriptor("c1"))
	s.AddMessage("c1", domain.Message{ID: "m1", AuthorID: "bob", SentAt: time.Now()}, false)

	// Self-context unknown: nothing is marked self.
	s.ApplyReaction("c1", "m1", "👍", []domain.Participant{alice})
	sess, _ := s.Snapshot().Session("c1")
	req.False(sess.Messages[0].Reactions["👍"].SelfReacted)

	s.SetCurrentUserID("alice")
	sess, _ = s.Snapshot().Session("c1")
	req.True(sess.Messages[0].Reactions["👍"].SelfReacted)
}

func Test_Typing_Roster_Clamped_For_Direct_Sessions(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.SetCurrentUserID("alice")
	s.EnsureSession(directDescriptor("chat:pair:alice:bob"))

	// A stale roster lists three participants for a two-party chat.
	s.ApplyTyping("chat:pair:alice:bob", "bob", true, []domain.Participant{alice, bob, carol})

	sess, _ := s.Snapshot().Session("chat:pair:alice:bob")
	req.Len(sess.Participants, 2)
	ids := lo.Map(sess.Participants, func(p domain.Participant, _ int) string { return p.ID })
	req.ElementsMatch([]string{"alice", "bob"}, ids)
	req.Equal(domain.KindDirect, sess.Kind)
}

func Test_Typing_Upsert_And_Stop(t *testing.T) {
	req := require.New(t)
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }), WithTypingTTL(10*time.Second))
	s.EnsureSession(directDescriptor("c1"))

	s.ApplyTyping("c1", "bob", true, nil)
	sess, _ := s.Snapshot().Session("c1")
	entry, ok := sess.Typing["bob"]
	req.True(ok)
	req.Equal(now, entry.StartedAt)
	req.Equal(now.Add(10*time.Second), entry.ExpiresAt)
	req.Equal("Bob", entry.Participant.DisplayName)

	// A refresh keeps StartedAt but extends the expiry.
	now = now.Add(5 * time.Second)
	s.ApplyTyping("c1", "bob", true, nil)
	sess, _ = s.Snapshot().Session("c1")
	req.Equal(now.Add(-5*time.Second), sess.Typing["bob"].StartedAt)
	req.Equal(now.Add(10*time.Second), sess.Typing["bob"].ExpiresAt)

	s.ApplyTyping("c1", "bob", false, nil)
	sess, _ = s.Snapshot().Session("c1")
	req.Empty(sess.Typing)
}

func Test_PruneTyping_Evicts_Exactly_Expired_Entries(t *testing.T) {
	req := require.New(t)
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }), WithTypingTTL(10*time.Second))
	s.EnsureSession(directDescriptor("c1"))
	s.EnsureSession(domain.SessionDescriptor{ID: "g1", Kind: domain.KindGroup, Participants: []domain.Participant{alice, bob, carol}})

	s.ApplyTyping("c1", "bob", true, nil)
	now = now.Add(4 * time.Second)
	s.ApplyTyping("g1", "carol", true, nil)

	// bob expires at t+10s, carol at t+14s.
	pruned := s.PruneTyping(now.Add(6 * time.Second))
	req.Equal(1, pruned)

	c1, _ := s.Snapshot().Session("c1")
	g1, _ := s.Snapshot().Session("g1")
	req.Empty(c1.Typing)
	req.Len(g1.Typing, 1)

	req.Zero(s.PruneTyping(now.Add(6 * time.Second)))
}

func Test_RemoveSession_And_ActiveSession(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.EnsureSession(directDescriptor("c1"))
	s.SetActiveSession("c1")
	req.Equal("c1", s.Snapshot().ActiveSessionID)

	s.RemoveSession("c1")
	snap := s.Snapshot()
	req.Empty(snap.Sessions)
	req.Empty(snap.ActiveSessionID)
	req.Empty(snap.Order)
}

func Test_RemoveMessage_Tombstone(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	s.EnsureSession(directDescriptor("c1"))
	s.AddMessage("c1", domain.Message{ID: "m1", AuthorID: "bob", SentAt: time.Now()}, false)
	s.AddMessage("c1", domain.Message{ID: "m2", AuthorID: "bob", SentAt: time.Now().Add(time.Second)}, false)

	s.RemoveMessage("c1", "m1")
	sess, _ := s.Snapshot().Session("c1")
	req.Len(sess.Messages, 1)
	req.Equal("m2", sess.Messages[0].ID)
}

func Test_Subscribe_Publishes_Immutable_Snapshots(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	var seen []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })

	s.EnsureSession(directDescriptor("c1"))
	s.AddMessage("c1", domain.Message{ID: "m1", AuthorID: "bob", Body: "hi", SentAt: time.Now()}, false)
	req.Len(seen, 2)

	// A misbehaving consumer scribbling on a snapshot must not reach the
	// canonical state: the next publication is rebuilt from scratch.
	old, _ := seen[1].Session("c1")
	old.Messages[0].Body = "tampered"

	unsubscribe()
	s.AddMessage("c1", domain.Message{ID: "m2", AuthorID: "bob", SentAt: time.Now()}, false)
	req.Len(seen, 2)

	current, _ := s.Snapshot().Session("c1")
	req.Equal("hi", current.Messages[0].Body)
}
