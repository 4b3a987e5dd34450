//go:build integration

package auth

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idcard-portal/internal/db"
)

// Run with: go test -tags integration ./internal/auth/ against a disposable
// database named by DATABASE_URL.
func openIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()

	_ = godotenv.Load("../../.env")
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set DATABASE_URL to run Postgres integration tests")
	}

	ctx := context.Background()
	database, err := db.Open(ctx, databaseURL, db.PoolConfig{MaxOpenConns: 8, MaxIdleConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = db.RunMigrations(ctx, database)
	require.NoError(t, err)
	return database
}

func uniqueSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

func TestPostgresStore_UserLifecycle(t *testing.T) {
	store := NewPostgresStore(openIntegrationDB(t))
	ctx := context.Background()
	suffix := uniqueSuffix()
	email := "it-" + suffix + "@example.com"

	user := User{ID: "it-user-" + suffix, Email: email, Name: "Integration", Role: RoleTrial, Plan: "free", MaxIDCards: 10, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.SaveUser(ctx, user))
	t.Cleanup(func() { _ = store.DeleteUser(ctx, user.ID) })

	got, err := store.UserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Empty(t, got.Mobile)

	token := strings.Repeat("0", 64-len(suffix)) + suffix
	attached, err := store.AttachSession(ctx, user.ID, token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, token, attached.SessionToken)
	require.NotNil(t, attached.LastLoginAt)

	byToken, err := store.UserByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byToken.ID)

	other := User{ID: "it-other-" + suffix, Email: "it-other-" + suffix + "@example.com", Role: RoleUser, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.SaveUser(ctx, other))
	t.Cleanup(func() { _ = store.DeleteUser(ctx, other.ID) })
	_, err = store.AttachSession(ctx, other.ID, token, time.Now())
	assert.ErrorIs(t, err, ErrTokenCollision)

	require.NoError(t, store.DeleteUser(ctx, user.ID))
	assert.ErrorIs(t, store.DeleteUser(ctx, user.ID), ErrUserNotFound)
	_, err = store.UserByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = store.UserByToken(ctx, token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostgresStore_ConcurrentEnsureCreatesOneRecord(t *testing.T) {
	store := NewPostgresStore(openIntegrationDB(t))
	ctx := context.Background()
	suffix := uniqueSuffix()
	mobile := "9" + suffix[len(suffix)-9:]
	identity := Identity{Kind: IdentityMobile, Value: mobile}

	const attempts = 8
	ids := make(chan string, attempts)
	created := make(chan bool, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			candidate := User{ID: fmt.Sprintf("it-ensure-%s-%d", suffix, i), Mobile: mobile, Role: RoleUser, CreatedAt: time.Now().UTC()}
			user, ok, err := store.EnsureUser(ctx, identity, candidate)
			assert.NoError(t, err)
			ids <- user.ID
			created <- ok
		}(i)
	}
	wg.Wait()
	close(ids)
	close(created)

	winners := 0
	for ok := range created {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	require.Len(t, seen, 1)
	for id := range seen {
		t.Cleanup(func() { _ = store.DeleteUser(ctx, id) })
	}
}

func TestPostgresStore_ResolveChallenge(t *testing.T) {
	store := NewPostgresStore(openIntegrationDB(t))
	ctx := context.Background()
	suffix := uniqueSuffix()
	mobile := "8" + suffix[len(suffix)-9:]

	require.NoError(t, store.SaveChallenge(ctx, OTPChallenge{Mobile: mobile, Code: "111111", ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, store.SaveChallenge(ctx, OTPChallenge{Mobile: mobile, Code: "222222", ExpiresAt: time.Now().Add(time.Minute)}))

	var seen OTPChallenge
	require.NoError(t, store.ResolveChallenge(ctx, mobile, func(c OTPChallenge, found bool) ChallengeDecision {
		require.True(t, found)
		seen = c
		return KeepChallenge
	}))
	assert.Equal(t, "222222", seen.Code)

	require.NoError(t, store.ResolveChallenge(ctx, mobile, func(OTPChallenge, bool) ChallengeDecision { return DropChallenge }))

	var found bool
	require.NoError(t, store.ResolveChallenge(ctx, mobile, func(_ OTPChallenge, ok bool) ChallengeDecision {
		found = ok
		return KeepChallenge
	}))
	assert.False(t, found)
}
