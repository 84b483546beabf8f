// Package chat implements direct messaging between two users: who may send, edit, delete and
// read messages, and in which order conversation history is returned.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"minichat/internal/apperr"
	"minichat/internal/storage"
)

const DefaultHistoryCount = 20

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// HistoryQuery describes one page of conversation history with Peer
type HistoryQuery struct {
	Peer   uuid.UUID
	Before *time.Time
	Count  int
	Sort   SortOrder
}

type Service struct {
	logger   *zap.SugaredLogger
	users    UserStore
	messages MessageStore
	now      func() time.Time
}

type ServiceOption func(*Service)

// WithClock replaces time.Now as the source of message timestamps
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(logger *zap.SugaredLogger, users UserStore, messages MessageStore, opts ...ServiceOption) *Service {
	s := &Service{
		logger:   logger,
		users:    users,
		messages: messages,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp is truncated to the precision postgres keeps
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// CreateMessage stores content sent by caller to receiver. The receiver is not required to exist.
func (s *Service) CreateMessage(ctx context.Context, caller, receiver uuid.UUID, content string) (storage.Message, error) {
	if receiver == uuid.Nil {
		return storage.Message{}, fmt.Errorf("%w: receiver id is required", apperr.ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return storage.Message{}, fmt.Errorf("%w: content must not be blank", apperr.ErrValidation)
	}
	if caller == uuid.Nil {
		return storage.Message{}, apperr.ErrUnauthenticated
	}

	m, err := s.messages.CreateMessage(ctx, storage.Message{
		SenderID:   caller,
		ReceiverID: receiver,
		Content:    content,
		Timestamp:  s.timestamp(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			return storage.Message{}, fmt.Errorf("%w: sender %s does not exist", apperr.ErrUnauthenticated, caller)
		}
		return storage.Message{}, err
	}

	s.logger.Debugf("Message %d sent from %s to %s", m.ID, m.SenderID, m.ReceiverID)

	return m, nil
}

// EditMessage replaces content of message id. Blank content is accepted.
func (s *Service) EditMessage(ctx context.Context, caller uuid.UUID, id int64, content string) (storage.Message, error) {
	if caller == uuid.Nil {
		return storage.Message{}, apperr.ErrUnauthenticated
	}

	m, err := s.messages.UpdateMessage(ctx, id, caller, content, s.timestamp())
	if err != nil {
		return storage.Message{}, mutationError(err, id)
	}

	return m, nil
}

// DeleteMessage permanently removes message id
func (s *Service) DeleteMessage(ctx context.Context, caller uuid.UUID, id int64) error {
	if caller == uuid.Nil {
		return apperr.ErrUnauthenticated
	}

	if err := s.messages.DeleteMessage(ctx, id, caller); err != nil {
		return mutationError(err, id)
	}

	s.logger.Debugf("Message %d deleted by %s", id, caller)

	return nil
}

func mutationError(err error, id int64) error {
	switch {
	case errors.Is(err, storage.ErrMessageNotExist):
		return fmt.Errorf("%w: message %d", apperr.ErrNotFound, id)
	case errors.Is(err, storage.ErrMessageNotOwned):
		return fmt.Errorf("%w: message %d was sent by another user", apperr.ErrForbidden, id)
	default:
		return err
	}
}

// RetrieveConversation returns one page of messages exchanged between caller and q.Peer
func (s *Service) RetrieveConversation(ctx context.Context, caller uuid.UUID, q HistoryQuery) ([]storage.Message, error) {
	if caller == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}

	sort := q.Sort
	if sort == "" {
		sort = SortAsc
	}
	if sort != SortAsc && sort != SortDesc {
		return nil, fmt.Errorf("%w: sort must be %q or %q", apperr.ErrValidation, SortAsc, SortDesc)
	}
	if q.Count < 0 {
		return nil, fmt.Errorf("%w: count must not be negative", apperr.ErrValidation)
	}

	if _, err := s.users.UserByID(ctx, q.Peer); err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, q.Peer)
		}
		return nil, err
	}

	if q.Count == 0 {
		return []storage.Message{}, nil
	}

	return s.messages.Conversation(ctx, storage.ConversationQuery{
		UserA:      caller,
		UserB:      q.Peer,
		Before:     q.Before,
		Limit:      q.Count,
		Descending: sort == SortDesc,
	})
}

// ListPeers returns every registered user except caller
func (s *Service) ListPeers(ctx context.Context, caller uuid.UUID) ([]storage.User, error) {
	if caller == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	return s.users.UsersExcept(ctx, caller)
}
