package server

import (
	"time"

	"github.com/google/uuid"
)

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Message string `json:"message"`
}

type userView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type registerResponse struct {
	Message  string    `json:"message"`
	UserID   uuid.UUID `json:"userId"`
	FullName string    `json:"fullname"`
	Email    string    `json:"email"`
}

type loginResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	Profile userView `json:"profile"`
}

type usersResponse struct {
	Message string     `json:"message"`
	Users   []userView `json:"users"`
}

type messageResponse struct {
	Message    string    `json:"message"`
	MessageID  int64     `json:"messageId"`
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

type messageView struct {
	ID         int64     `json:"id"`
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

type historyResponse struct {
	Messages []messageView `json:"messages"`
}

type logView struct {
	ID          int64     `json:"id"`
	IP          string    `json:"ipAddress"`
	RequestBody string    `json:"requestBody"`
	Timestamp   time.Time `json:"timestamp"`
	Username    string    `json:"username,omitempty"`
}

type logsResponse struct {
	Message string    `json:"message"`
	Logs    []logView `json:"logs"`
}
