//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"minichat/internal/storage"
)

// UserStore is the part of the persistence layer the conversation logic reads users from
type UserStore interface {
	UserByID(ctx context.Context, id uuid.UUID) (storage.User, error)
	UsersExcept(ctx context.Context, id uuid.UUID) ([]storage.User, error)
}

// MessageStore persists messages. UpdateMessage and DeleteMessage must apply only when the
// stored sender matches and report storage.ErrMessageNotExist or storage.ErrMessageNotOwned otherwise.
type MessageStore interface {
	CreateMessage(ctx context.Context, m storage.Message) (storage.Message, error)
	UpdateMessage(ctx context.Context, id int64, sender uuid.UUID, content string, at time.Time) (storage.Message, error)
	DeleteMessage(ctx context.Context, id int64, sender uuid.UUID) error
	Conversation(ctx context.Context, q storage.ConversationQuery) ([]storage.Message, error)
}
