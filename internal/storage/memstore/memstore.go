// Package memstore keeps users, messages and log entries in process memory.
// It mirrors the behaviour of storage.Store, including its sentinel errors, and is used for
// tests and for running the server without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"minichat/internal/storage"
)

type Store struct {
	mu sync.RWMutex

	users    map[uuid.UUID]storage.User
	messages map[int64]storage.Message
	logs     []storage.LogEntry

	lastMessageID int64
	lastLogID     int64
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]storage.User),
		messages: make(map[int64]storage.Message),
	}
}

func (s *Store) Close() {}

func (s *Store) CreateUser(_ context.Context, email, name, passwordHash string) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return storage.User{}, storage.ErrUserExists
		}
	}

	u := storage.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	s.users[u.ID] = u

	return u, nil
}

func (s *Store) UserByID(_ context.Context, id uuid.UUID) (storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return storage.User{}, storage.ErrUserNotExist
	}
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := lo.Find(lo.Values(s.users), func(u storage.User) bool { return u.Email == email })
	if !ok {
		return storage.User{}, storage.ErrUserNotExist
	}
	return u, nil
}

func (s *Store) UsersExcept(_ context.Context, id uuid.UUID) ([]storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := lo.Filter(lo.Values(s.users), func(u storage.User, _ int) bool { return u.ID != id })
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].Email < users[j].Email
	})

	return users, nil
}

func (s *Store) CreateMessage(_ context.Context, m storage.Message) (storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[m.SenderID]; !ok {
		return storage.Message{}, storage.ErrUserNotExist
	}

	s.lastMessageID++
	m.ID = s.lastMessageID
	s.messages[m.ID] = m

	return m, nil
}

func (s *Store) UpdateMessage(_ context.Context, id int64, sender uuid.UUID, content string, at time.Time) (storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.owned(id, sender)
	if err != nil {
		return storage.Message{}, err
	}

	m.Content = content
	m.Timestamp = at
	s.messages[id] = m

	return m, nil
}

func (s *Store) DeleteMessage(_ context.Context, id int64, sender uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(id, sender); err != nil {
		return err
	}
	delete(s.messages, id)

	return nil
}

// owned must be called with s.mu held
func (s *Store) owned(id int64, sender uuid.UUID) (storage.Message, error) {
	m, ok := s.messages[id]
	if !ok {
		return storage.Message{}, storage.ErrMessageNotExist
	}
	if m.SenderID != sender {
		return storage.Message{}, storage.ErrMessageNotOwned
	}
	return m, nil
}

func (s *Store) Conversation(_ context.Context, q storage.ConversationQuery) ([]storage.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := lo.Filter(lo.Values(s.messages), func(m storage.Message, _ int) bool {
		between := (m.SenderID == q.UserA && m.ReceiverID == q.UserB) ||
			(m.SenderID == q.UserB && m.ReceiverID == q.UserA)
		if !between {
			return false
		}
		return q.Before == nil || m.Timestamp.Before(*q.Before)
	})

	sort.Slice(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if q.Descending {
			a, b = b, a
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})

	if q.Limit >= 0 && len(messages) > q.Limit {
		messages = messages[:q.Limit]
	}

	return messages, nil
}

func (s *Store) CreateLogEntry(_ context.Context, e storage.LogEntry) (storage.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastLogID++
	e.ID = s.lastLogID
	s.logs = append(s.logs, e)

	return e, nil
}

func (s *Store) LogEntriesBetween(_ context.Context, start, end time.Time) ([]storage.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := lo.Filter(s.logs, func(e storage.LogEntry, _ int) bool {
		return !e.Timestamp.Before(start) && !e.Timestamp.After(end)
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })

	return entries, nil
}
