package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIssuer_IssuesHexTokenAndStampsLogin(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SaveUser(ctx, User{ID: "u1", Email: "a@example.com"}))

	issuer := NewSessionIssuer(store)
	at := time.Date(2026, 5, 5, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return at }

	user, token, err := issuer.Issue(ctx, User{ID: "u1"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), token)
	assert.Equal(t, token, user.SessionToken)
	require.NotNil(t, user.LastLoginAt)
	assert.Equal(t, at, *user.LastLoginAt)
	assert.Equal(t, "a@example.com", user.Email)

	byToken, err := store.UserByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", byToken.ID)
}

func TestSessionIssuer_TokensDiffer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SaveUser(ctx, User{ID: "u1"}))
	issuer := NewSessionIssuer(store)

	_, first, err := issuer.Issue(ctx, User{ID: "u1"})
	require.NoError(t, err)
	_, second, err := issuer.Issue(ctx, User{ID: "u1"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSessionIssuer_PropagatesFailures(t *testing.T) {
	issuer := NewSessionIssuer(NewMemoryStore())

	_, _, err := issuer.Issue(context.Background(), User{ID: "ghost"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	issuer.random = func(int) (string, error) { return "", errors.New("entropy exhausted") }
	_, _, err = issuer.Issue(context.Background(), User{ID: "ghost"})
	assert.ErrorContains(t, err, "entropy exhausted")
}
