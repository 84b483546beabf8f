package testing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"minichat/internal/storage"
)

// Store is the persistence contract shared by the postgres and in-memory backends
type Store interface {
	CreateUser(ctx context.Context, email, name, passwordHash string) (storage.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (storage.User, error)
	UserByEmail(ctx context.Context, email string) (storage.User, error)
	UsersExcept(ctx context.Context, id uuid.UUID) ([]storage.User, error)
	CreateMessage(ctx context.Context, m storage.Message) (storage.Message, error)
	UpdateMessage(ctx context.Context, id int64, sender uuid.UUID, content string, at time.Time) (storage.Message, error)
	DeleteMessage(ctx context.Context, id int64, sender uuid.UUID) error
	Conversation(ctx context.Context, q storage.ConversationQuery) ([]storage.Message, error)
	CreateLogEntry(ctx context.Context, e storage.LogEntry) (storage.LogEntry, error)
	LogEntriesBetween(ctx context.Context, start, end time.Time) ([]storage.LogEntry, error)
}

// RunStoreSuite checks s against the behaviour every backend must share.
// Fixtures use random emails and ids so a shared database may be reused between runs.
func RunStoreSuite(t *testing.T, s Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, s) })
	t.Run("messages", func(t *testing.T) { testMessages(t, s) })
	t.Run("conversation", func(t *testing.T) { testConversation(t, s) })
	t.Run("log entries", func(t *testing.T) { testLogEntries(t, s) })
}

func createUser(t *testing.T, s Store) storage.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), RandEmail(), RandString(), "hash")
	require.NoError(t, err)
	return u
}

func testUsers(t *testing.T, s Store) {
	req := require.New(t)
	ctx := context.Background()

	email := RandEmail()
	u, err := s.CreateUser(ctx, email, "Alice", "hash")
	req.NoError(err)
	req.NotEqual(uuid.Nil, u.ID)
	req.Equal(email, u.Email)
	req.False(u.CreatedAt.IsZero())

	_, err = s.CreateUser(ctx, email, "Alice again", "hash")
	req.ErrorIs(err, storage.ErrUserExists)

	byID, err := s.UserByID(ctx, u.ID)
	req.NoError(err)
	req.Equal(u.Email, byID.Email)
	req.Equal("hash", byID.PasswordHash)

	byEmail, err := s.UserByEmail(ctx, email)
	req.NoError(err)
	req.Equal(u.ID, byEmail.ID)

	_, err = s.UserByID(ctx, uuid.New())
	req.ErrorIs(err, storage.ErrUserNotExist)

	_, err = s.UserByEmail(ctx, RandEmail())
	req.ErrorIs(err, storage.ErrUserNotExist)

	other := createUser(t, s)
	others, err := s.UsersExcept(ctx, u.ID)
	req.NoError(err)
	ids := make([]uuid.UUID, 0, len(others))
	for _, o := range others {
		ids = append(ids, o.ID)
	}
	req.Contains(ids, other.ID)
	req.NotContains(ids, u.ID)
}

func testMessages(t *testing.T, s Store) {
	req := require.New(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)

	alice, bob := createUser(t, s), createUser(t, s)

	_, err := s.CreateMessage(ctx, storage.Message{SenderID: uuid.New(), ReceiverID: bob.ID, Content: "x", Timestamp: at})
	req.ErrorIs(err, storage.ErrUserNotExist)

	m, err := s.CreateMessage(ctx, storage.Message{SenderID: alice.ID, ReceiverID: bob.ID, Content: "hello", Timestamp: at})
	req.NoError(err)
	req.Positive(m.ID)

	between := storage.ConversationQuery{UserA: alice.ID, UserB: bob.ID, Limit: 10}
	stored, err := s.Conversation(ctx, between)
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal(m.ID, stored[0].ID)
	req.Equal("hello", stored[0].Content)
	req.True(at.Equal(stored[0].Timestamp))

	edited := at.Add(time.Second)
	updated, err := s.UpdateMessage(ctx, m.ID, alice.ID, "hello again", edited)
	req.NoError(err)
	req.Equal("hello again", updated.Content)
	req.True(edited.Equal(updated.Timestamp))
	req.Equal(bob.ID, updated.ReceiverID)

	_, err = s.UpdateMessage(ctx, m.ID, bob.ID, "mine now", edited)
	req.ErrorIs(err, storage.ErrMessageNotOwned)

	err = s.DeleteMessage(ctx, m.ID, bob.ID)
	req.ErrorIs(err, storage.ErrMessageNotOwned)

	req.NoError(s.DeleteMessage(ctx, m.ID, alice.ID))

	stored, err = s.Conversation(ctx, between)
	req.NoError(err)
	req.Empty(stored)

	_, err = s.UpdateMessage(ctx, m.ID, alice.ID, "gone", edited)
	req.ErrorIs(err, storage.ErrMessageNotExist)

	err = s.DeleteMessage(ctx, m.ID, alice.ID)
	req.ErrorIs(err, storage.ErrMessageNotExist)
}

func testConversation(t *testing.T, s Store) {
	req := require.New(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Microsecond)

	alice, bob, carol := createUser(t, s), createUser(t, s), createUser(t, s)

	send := func(from, to storage.User, offset time.Duration) int64 {
		m, err := s.CreateMessage(ctx, storage.Message{
			SenderID:   from.ID,
			ReceiverID: to.ID,
			Content:    RandString(),
			Timestamp:  start.Add(offset),
		})
		req.NoError(err)
		return m.ID
	}

	ids := []int64{
		send(alice, bob, 0),
		send(bob, alice, time.Second),
		send(alice, bob, 2*time.Second),
	}
	// same instant as the previous one, ordered by id
	ids = append(ids, send(bob, alice, 2*time.Second))
	send(alice, carol, time.Second)

	idsOf := func(messages []storage.Message) []int64 {
		out := make([]int64, 0, len(messages))
		for _, m := range messages {
			out = append(out, m.ID)
		}
		return out
	}

	asc, err := s.Conversation(ctx, storage.ConversationQuery{UserA: alice.ID, UserB: bob.ID, Limit: 10})
	req.NoError(err)
	req.Equal(ids, idsOf(asc))

	swapped, err := s.Conversation(ctx, storage.ConversationQuery{UserA: bob.ID, UserB: alice.ID, Limit: 10})
	req.NoError(err)
	req.Equal(ids, idsOf(swapped))

	desc, err := s.Conversation(ctx, storage.ConversationQuery{UserA: alice.ID, UserB: bob.ID, Limit: 10, Descending: true})
	req.NoError(err)
	req.Equal(ReverseIDs(ids), idsOf(desc))

	limited, err := s.Conversation(ctx, storage.ConversationQuery{UserA: alice.ID, UserB: bob.ID, Limit: 2, Descending: true})
	req.NoError(err)
	req.Equal(ReverseIDs(ids)[:2], idsOf(limited))

	before := start.Add(2 * time.Second)
	earlier, err := s.Conversation(ctx, storage.ConversationQuery{UserA: alice.ID, UserB: bob.ID, Before: &before, Limit: 10})
	req.NoError(err)
	req.Equal(ids[:2], idsOf(earlier))

	none, err := s.Conversation(ctx, storage.ConversationQuery{UserA: bob.ID, UserB: carol.ID, Limit: 10})
	req.NoError(err)
	req.Empty(none)
}

func testLogEntries(t *testing.T, s Store) {
	req := require.New(t)
	ctx := context.Background()

	ip := RandString()
	at := time.Date(1999, 12, 31, 23, 59, 0, 0, time.UTC)

	first, err := s.CreateLogEntry(ctx, storage.LogEntry{IP: ip, RequestBody: `{"a":1}`, Username: "a@example.com", Timestamp: at})
	req.NoError(err)
	req.Positive(first.ID)

	_, err = s.CreateLogEntry(ctx, storage.LogEntry{IP: ip, RequestBody: "", Timestamp: at.Add(time.Minute)})
	req.NoError(err)

	mine := func(entries []storage.LogEntry) []storage.LogEntry {
		var out []storage.LogEntry
		for _, e := range entries {
			if e.IP == ip {
				out = append(out, e)
			}
		}
		return out
	}

	entries, err := s.LogEntriesBetween(ctx, at, at.Add(time.Minute))
	req.NoError(err)
	entries = mine(entries)
	req.Len(entries, 2)
	req.Equal("a@example.com", entries[0].Username)
	req.Equal(`{"a":1}`, entries[0].RequestBody)
	req.Empty(entries[1].Username)
	req.True(at.Equal(entries[0].Timestamp))

	entries, err = s.LogEntriesBetween(ctx, at.Add(time.Second), at.Add(time.Hour))
	req.NoError(err)
	req.Len(mine(entries), 1)
}
