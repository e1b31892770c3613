package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndResolve(t *testing.T) {
	sessions := NewSessions("secret")

	token, err := sessions.Issue("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, ok := sessions.Resolve(token)
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, 1, sessions.Active())
}

func TestRevokeInvalidatesToken(t *testing.T) {
	sessions := NewSessions("secret")

	token, err := sessions.Issue("user-1")
	require.NoError(t, err)

	sessions.Revoke(token)

	_, ok := sessions.Resolve(token)
	assert.False(t, ok, "revoked token must not resolve")
	assert.Equal(t, 0, sessions.Active())

	// Revoking twice is harmless.
	sessions.Revoke(token)
	assert.Equal(t, 0, sessions.Active())
}

func TestResolveRejectsForeignToken(t *testing.T) {
	ours := NewSessions("secret-a")
	theirs := NewSessions("secret-b")

	token, err := theirs.Issue("user-1")
	require.NoError(t, err)

	_, ok := ours.Resolve(token)
	assert.False(t, ok, "token signed with another secret must not resolve")
}

func TestResolveRejectsGarbage(t *testing.T) {
	sessions := NewSessions("secret")

	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		_, ok := sessions.Resolve(token)
		assert.False(t, ok)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	sessions := NewSessions("secret")

	first, err := sessions.Issue("user-1")
	require.NoError(t, err)
	second, err := sessions.Issue("user-1")
	require.NoError(t, err)

	assert.Equal(t, 2, sessions.Active())

	sessions.Revoke(first)

	_, ok := sessions.Resolve(first)
	assert.False(t, ok)

	userID, ok := sessions.Resolve(second)
	require.True(t, ok, "revoking one session must not touch the other")
	assert.Equal(t, "user-1", userID)
}
