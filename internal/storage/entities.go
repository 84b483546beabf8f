package storage

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

type Message struct {
	ID         int64
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Content    string
	Timestamp  time.Time
}

type LogEntry struct {
	ID          int64
	IP          string
	RequestBody string
	Username    string
	Timestamp   time.Time
}

// ConversationQuery selects messages exchanged between UserA and UserB in either direction
type ConversationQuery struct {
	UserA, UserB uuid.UUID
	// Before is exclusive; nil means no upper bound
	Before     *time.Time
	Limit      int
	Descending bool
}
