package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateUserAndLookup(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateUser("alice", "hashed-secret")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "alice", created.Username)

	found, err := s.GetUserByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "hashed-secret", found.PasswordHash)

	missing, err := s.GetUserByUsername("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateUser("alice", "h1")
	require.NoError(t, err)

	_, err = s.CreateUser("alice", "h2")
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	user, err := s.CreateUser("alice", "h")
	require.NoError(t, err)

	name := "earnings deep dive"
	sess, err := s.CreateSession(user.ID, &name)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	unnamed, err := s.CreateSession(user.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, unnamed.SessionName)

	got, err := s.GetSessionByID(sess.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.SessionName)
	assert.Equal(t, name, *got.SessionName)

	sessions, err := s.GetSessionsByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestGetSessionByIDScopedToUser(t *testing.T) {
	s := newTestStore(t)
	alice, err := s.CreateUser("alice", "h")
	require.NoError(t, err)
	bob, err := s.CreateUser("bob", "h")
	require.NoError(t, err)

	sess, err := s.CreateSession(alice.ID, nil)
	require.NoError(t, err)

	got, err := s.GetSessionByID(sess.ID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "a session must not be visible to another user")
}

func TestMessagesKeepInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	user, err := s.CreateUser("alice", "h")
	require.NoError(t, err)
	sess, err := s.CreateSession(user.ID, nil)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		sender := SenderUser
		if i%2 == 1 {
			sender = SenderAssistant
		}
		msg := &ChatMessage{SessionID: sess.ID, Sender: sender, Message: fmt.Sprintf("turn %d", i)}
		require.NoError(t, s.AddMessage(msg))
		assert.NotEmpty(t, msg.ID)
	}

	messages, err := s.GetMessagesBySessionID(sess.ID)
	require.NoError(t, err)
	require.Len(t, messages, 6)
	for i, m := range messages {
		assert.Equal(t, fmt.Sprintf("turn %d", i), m.Message)
	}
	assert.Equal(t, SenderUser, messages[0].Sender)
	assert.Equal(t, SenderAssistant, messages[1].Sender)
}

func TestClearMessages(t *testing.T) {
	s := newTestStore(t)
	user, err := s.CreateUser("alice", "h")
	require.NoError(t, err)
	sess, err := s.CreateSession(user.ID, nil)
	require.NoError(t, err)

	require.NoError(t, s.AddMessage(&ChatMessage{SessionID: sess.ID, Sender: SenderUser, Message: "hello"}))
	require.NoError(t, s.ClearMessages(sess.ID))

	messages, err := s.GetMessagesBySessionID(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	still, err := s.GetSessionByID(sess.ID, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, still, "clearing messages keeps the session")
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	s := newTestStore(t)
	user, err := s.CreateUser("alice", "h")
	require.NoError(t, err)
	sess, err := s.CreateSession(user.ID, nil)
	require.NoError(t, err)
	require.NoError(t, s.AddMessage(&ChatMessage{SessionID: sess.ID, Sender: SenderUser, Message: "hello"}))

	require.NoError(t, s.DeleteSession(sess.ID, user.ID))

	gone, err := s.GetSessionByID(sess.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	messages, err := s.GetMessagesBySessionID(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDeleteSessionWrongUser(t *testing.T) {
	s := newTestStore(t)
	alice, err := s.CreateUser("alice", "h")
	require.NoError(t, err)
	bob, err := s.CreateUser("bob", "h")
	require.NoError(t, err)

	sess, err := s.CreateSession(alice.ID, nil)
	require.NoError(t, err)

	assert.Error(t, s.DeleteSession(sess.ID, bob.ID))

	still, err := s.GetSessionByID(sess.ID, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestAddMessageRejectsUnknownSender(t *testing.T) {
	s := newTestStore(t)
	user, err := s.CreateUser("alice", "h")
	require.NoError(t, err)
	sess, err := s.CreateSession(user.ID, nil)
	require.NoError(t, err)

	err = s.AddMessage(&ChatMessage{SessionID: sess.ID, Sender: "system", Message: "x"})
	assert.Error(t, err)
}
