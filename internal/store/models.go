package store

import "time"

// Sender tags for chat messages.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never exposed in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

type ChatSession struct {
	ID          string    `json:"id"` // UUID
	UserID      int64     `json:"user_id"`
	SessionName *string   `json:"session_name"` // nullable
	Timestamp   time.Time `json:"timestamp"`
}

type ChatMessage struct {
	ID        string    `json:"id"` // UUID
	SessionID string    `json:"session_id"`
	Sender    string    `json:"sender"` // "user" or "assistant"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
