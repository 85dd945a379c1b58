package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatterbox/pkg/domain"
)

func newUser(id, username, email string) domain.User {
	return domain.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestMemoryStoreRejectsDuplicates(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.CreateUser(newUser("1", "alice", "alice@example.com")))

	err := s.CreateUser(newUser("2", "alice", "other@example.com"))
	require.ErrorIs(t, err, ErrDuplicateUser)

	err = s.CreateUser(newUser("3", "other", "alice@example.com"))
	require.ErrorIs(t, err, ErrDuplicateUser)
}

func TestMemoryStoreLookups(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.CreateUser(newUser("1", "alice", "alice@example.com")))

	ok, err := s.HasUser("alice", "nobody@example.com")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.HasUser("nobody", "alice@example.com")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.HasUser("nobody", "nobody@example.com")
	require.NoError(t, err)
	require.False(t, ok)

	u, found, err := s.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice", u.Username)

	u, found, err = s.GetUserByUsername("alice")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice@example.com", u.Email)

	_, found, err = s.GetUserByUsername("bob")
	require.NoError(t, err)
	require.False(t, found)
}
