package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"
	chat_errors "github.com/UthayakumarDevon/livechatapp/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite exercises the behaviour every Store engine must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		m := message.Message{ID: "m1", Room: "r", Sender: "alice", Text: "hi", Timestamp: 100}
		require.NoError(t, s.CreateMessage(ctx, m))

		got, err := s.GetMessage(ctx, "r", "m1")
		require.NoError(t, err)
		assert.Equal(t, m, got)

		_, err = s.GetMessage(ctx, "other", "m1")
		assert.ErrorIs(t, err, chat_errors.ErrNotFound)
		_, err = s.GetMessage(ctx, "r", "missing")
		assert.ErrorIs(t, err, chat_errors.ErrNotFound)
	})

	t.Run("DuplicateIDRejected", func(t *testing.T) {
		s := newStore(t)
		m := message.Message{ID: "dup", Room: "r", Sender: "alice", Text: "first", Timestamp: 1}
		require.NoError(t, s.CreateMessage(ctx, m))

		m.Text = "second"
		err := s.CreateMessage(ctx, m)
		assert.ErrorIs(t, err, chat_errors.ErrAlreadyExists)

		got, err := s.GetMessage(ctx, "r", "dup")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Text)
	})

	t.Run("FileMessageRoundTrip", func(t *testing.T) {
		s := newStore(t)
		m := message.Message{ID: "f1", Room: "r", Sender: "bob", Timestamp: 5,
			FileURL: "/uploads/1.png", FileType: message.FileTypeImage}
		require.NoError(t, s.CreateMessage(ctx, m))

		got, err := s.GetMessage(ctx, "r", "f1")
		require.NoError(t, err)
		assert.Equal(t, m, got)
	})

	t.Run("HistoryOrderedByTimestampThenInsertion", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateMessage(ctx, message.Message{ID: "c", Room: "r", Sender: "a", Timestamp: 30}))
		require.NoError(t, s.CreateMessage(ctx, message.Message{ID: "b2", Room: "r", Sender: "a", Timestamp: 20}))
		require.NoError(t, s.CreateMessage(ctx, message.Message{ID: "a", Room: "r", Sender: "a", Timestamp: 10}))
		require.NoError(t, s.CreateMessage(ctx, message.Message{ID: "b1", Room: "r", Sender: "a", Timestamp: 20}))
		require.NoError(t, s.CreateMessage(ctx, message.Message{ID: "x", Room: "other", Sender: "a", Timestamp: 15}))

		msgs, err := s.ListMessagesByRoom(ctx, "r")
		require.NoError(t, err)
		ids := make([]string, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		assert.Equal(t, []string{"a", "b2", "b1", "c"}, ids)

		empty, err := s.ListMessagesByRoom(ctx, "nobody-here")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("LastSeenUpsert", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetLastSeen(ctx, "r", "bob")
		assert.ErrorIs(t, err, chat_errors.ErrNotFound)

		require.NoError(t, s.SetLastSeen(ctx, "r", "bob", "m1"))
		require.NoError(t, s.SetLastSeen(ctx, "r", "bob", "m2"))
		require.NoError(t, s.SetLastSeen(ctx, "other", "bob", "m9"))

		id, err := s.GetLastSeen(ctx, "r", "bob")
		require.NoError(t, err)
		assert.Equal(t, "m2", id)
	})

	t.Run("ToggleParity", func(t *testing.T) {
		s := newStore(t)
		r := message.Reaction{MessageID: "m1", Room: "r", User: "alice", Emoji: "👍"}

		for i := 1; i <= 5; i++ {
			present, count, err := s.ToggleReaction(ctx, r)
			require.NoError(t, err)
			odd := i%2 == 1
			assert.Equal(t, odd, present, "toggle %d", i)
			if odd {
				assert.Equal(t, 1, count)
			} else {
				assert.Equal(t, 0, count)
			}
		}
	})

	t.Run("CountsAcrossUsers", func(t *testing.T) {
		s := newStore(t)
		for _, u := range []string{"alice", "bob", "carol"} {
			_, _, err := s.ToggleReaction(ctx, message.Reaction{MessageID: "m1", Room: "r", User: u, Emoji: "❤"})
			require.NoError(t, err)
		}
		_, count, err := s.ToggleReaction(ctx, message.Reaction{MessageID: "m1", Room: "r", User: "bob", Emoji: "❤"})
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		n, err := s.CountReactions(ctx, "r", "m1", "❤")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.CountReactions(ctx, "r", "m1", "😂")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("TalliesSkipEmptyPairs", func(t *testing.T) {
		s := newStore(t)
		toggle := func(id, user, emoji string) {
			_, _, err := s.ToggleReaction(ctx, message.Reaction{MessageID: id, Room: "r", User: user, Emoji: emoji})
			require.NoError(t, err)
		}
		toggle("m2", "alice", "👍")
		toggle("m1", "alice", "👍")
		toggle("m1", "bob", "👍")
		toggle("m1", "bob", "😂")
		toggle("m1", "bob", "😂")
		_, _, err := s.ToggleReaction(ctx, message.Reaction{MessageID: "m1", Room: "elsewhere", User: "carol", Emoji: "👍"})
		require.NoError(t, err)

		tallies, err := s.ListReactionTallies(ctx, "r")
		require.NoError(t, err)
		assert.Equal(t, []message.ReactionTally{
			{MessageID: "m1", Emoji: "👍", Count: 2},
			{MessageID: "m2", Emoji: "👍", Count: 1},
		}, tallies)
	})

	t.Run("ConcurrentTogglesStayConsistent", func(t *testing.T) {
		s := newStore(t)
		r := message.Reaction{MessageID: "m1", Room: "r", User: "alice", Emoji: "🔥"}
		const n = 20

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := s.ToggleReaction(ctx, r)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		count, err := s.CountReactions(ctx, "r", "m1", "🔥")
		require.NoError(t, err)
		assert.Equal(t, 0, count, "an even number of toggles leaves the row absent")
	})

	t.Run("BackgroundIsPerRoom", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRoomBackground(ctx, "r")
		assert.ErrorIs(t, err, chat_errors.ErrNotFound)

		require.NoError(t, s.SetRoomBackground(ctx, "r", "/uploads/a.png"))
		require.NoError(t, s.SetRoomBackground(ctx, "r", "/uploads/b.png"))
		url, err := s.GetRoomBackground(ctx, "r")
		require.NoError(t, err)
		assert.Equal(t, "/uploads/b.png", url)

		_, err = s.GetRoomBackground(ctx, "other")
		assert.ErrorIs(t, err, chat_errors.ErrNotFound)
	})

	t.Run("AvatarsAreGlobal", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetUserAvatar(ctx, "alice", "/uploads/alice.png"))
		for i := 0; i < 3; i++ {
			require.NoError(t, s.SetUserAvatar(ctx, "bob", fmt.Sprintf("/uploads/bob%d.png", i)))
		}

		url, err := s.GetUserAvatar(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "/uploads/bob2.png", url)

		_, err = s.GetUserAvatar(ctx, "carol")
		assert.ErrorIs(t, err, chat_errors.ErrNotFound)

		avatars, err := s.GetUserAvatars(ctx, []string{"alice", "bob", "carol", "alice"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"alice": "/uploads/alice.png",
			"bob":   "/uploads/bob2.png",
		}, avatars)
	})

	t.Run("PingAndClose", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
