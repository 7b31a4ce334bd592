package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrDuplicateUser means a signup collided with an existing username.
var ErrDuplicateUser = errors.New("username already exists")

// SQLiteStore is the chat-history store: users, sessions and messages.
// Each logical write is one statement or one explicit transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chat_sessions (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        session_name TEXT,
        timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS chat_messages (
        id TEXT PRIMARY KEY, -- UUID
        session_id TEXT NOT NULL,
        sender TEXT NOT NULL CHECK (sender IN ('user', 'assistant')),
        message TEXT NOT NULL,
        timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (session_id) REFERENCES chat_sessions (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) CreateUser(username, passwordHash string) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (username, password_hash) VALUES (?, ?)", username, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getUserByID(id)
}

func (s *SQLiteStore) GetUserByUsername(username string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // user not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) getUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, username, password_hash, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Session methods

func (s *SQLiteStore) CreateSession(userID int64, sessionName *string) (*ChatSession, error) {
	sessionID := uuid.NewString()
	now := time.Now()
	_, err := s.db.Exec("INSERT INTO chat_sessions (id, user_id, session_name, timestamp) VALUES (?, ?, ?, ?)",
		sessionID, userID, sessionName, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat session: %w", err)
	}
	return &ChatSession{ID: sessionID, UserID: userID, SessionName: sessionName, Timestamp: now}, nil
}

func (s *SQLiteStore) GetSessionByID(sessionID string, userID int64) (*ChatSession, error) {
	var sess ChatSession
	var name sql.NullString
	err := s.db.QueryRow("SELECT id, user_id, session_name, timestamp FROM chat_sessions WHERE id = ? AND user_id = ?",
		sessionID, userID).Scan(&sess.ID, &sess.UserID, &name, &sess.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	if name.Valid {
		sess.SessionName = &name.String
	}
	return &sess, nil
}

func (s *SQLiteStore) GetSessionsByUserID(userID int64) ([]ChatSession, error) {
	rows, err := s.db.Query("SELECT id, user_id, session_name, timestamp FROM chat_sessions WHERE user_id = ? ORDER BY timestamp DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var sess ChatSession
		var name sql.NullString
		if err := rows.Scan(&sess.ID, &sess.UserID, &name, &sess.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat session row: %w", err)
		}
		if name.Valid {
			sess.SessionName = &name.String
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and its messages in one transaction.
func (s *SQLiteStore) DeleteSession(sessionID string, userID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM chat_sessions WHERE id = ? AND user_id = ?", sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("chat session not found")
	}
	if _, err := tx.Exec("DELETE FROM chat_messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session messages: %w", err)
	}
	return tx.Commit()
}

// Message methods

func (s *SQLiteStore) AddMessage(msg *ChatMessage) error {
	msg.ID = uuid.NewString()
	msg.Timestamp = time.Now()

	_, err := s.db.Exec("INSERT INTO chat_messages (id, session_id, sender, message, timestamp) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.SessionID, msg.Sender, msg.Message, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// GetMessagesBySessionID returns the session's messages in insertion order
// (ascending timestamp; rowid breaks same-timestamp ties).
func (s *SQLiteStore) GetMessagesBySessionID(sessionID string) ([]ChatMessage, error) {
	rows, err := s.db.Query("SELECT id, session_id, sender, message, timestamp FROM chat_messages WHERE session_id = ? ORDER BY timestamp ASC, rowid ASC",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Message, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) ClearMessages(sessionID string) error {
	if _, err := s.db.Exec("DELETE FROM chat_messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to clear session messages: %w", err)
	}
	return nil
}
