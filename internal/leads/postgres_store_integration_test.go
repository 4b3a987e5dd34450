//go:build integration

package leads

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idcard-portal/internal/auth"
	"idcard-portal/internal/db"
)

// Run with: go test -tags integration ./internal/leads/ against a disposable
// database named by DATABASE_URL.
func openIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()

	_ = godotenv.Load("../../.env")
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set DATABASE_URL to run Postgres integration tests")
	}

	ctx := context.Background()
	database, err := db.Open(ctx, databaseURL, db.PoolConfig{MaxOpenConns: 4, MaxIdleConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = db.RunMigrations(ctx, database)
	require.NoError(t, err)
	return database
}

// seedTrials stores one trial owner and n trials ending one minute apart,
// all before end. The rows are removed when the test ends.
func seedTrials(t *testing.T, database *sql.DB, store *PostgresStore, end time.Time, n int) []string {
	t.Helper()

	ctx := context.Background()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	users := auth.NewPostgresStore(database)
	owner := auth.User{ID: "it-owner-" + suffix, Email: "it-owner-" + suffix + "@example.com", Role: auth.RoleTrial, CreatedAt: time.Now().UTC()}
	require.NoError(t, users.SaveUser(ctx, owner))

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("it-trial-%s-%d", suffix, i)
		require.NoError(t, store.CreateTrial(ctx, Trial{
			ID: id, UserID: owner.ID, FullName: "Integration", Email: id + "@example.com", Mobile: "9876543210",
			OrganizationName: notProvided, OrganizationType: notProvided, Role: string(auth.RoleTrial),
			Plan: TrialPlan, MaxIDCards: TrialMaxIDCards,
			TrialStartDate: end.Add(-TrialDuration), TrialEndDate: end.Add(-time.Duration(n-i) * time.Minute),
			Status: TrialStatusActive, CreatedAt: time.Now().UTC(),
		}))
		ids = append(ids, id)
	}

	t.Cleanup(func() {
		_, _ = database.ExecContext(ctx, `DELETE FROM trials WHERE id = ANY($1)`, ids)
		_ = users.DeleteUser(ctx, owner.ID)
	})
	return ids
}

func trialIDs(trials []Trial) []string {
	ids := make([]string, 0, len(trials))
	for _, t := range trials {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestPostgresStore_CreateTrialRejectsSecondEmail(t *testing.T) {
	database := openIntegrationDB(t)
	store := NewPostgresStore(database)
	ctx := context.Background()

	ids := seedTrials(t, database, store, time.Now().Add(TrialDuration), 1)
	first, err := store.TrialByEmail(ctx, ids[0]+"@example.com")
	require.NoError(t, err)
	assert.Equal(t, TrialStatusActive, first.Status)

	dup := first
	dup.ID = ids[0] + "-dup"
	assert.ErrorIs(t, store.CreateTrial(ctx, dup), ErrTrialExists)

	_, err = store.TrialByEmail(ctx, "nobody-"+ids[0]+"@example.com")
	assert.ErrorIs(t, err, ErrTrialNotFound)
}

func TestPostgresStore_DueTrialsAndMarkExpired(t *testing.T) {
	database := openIntegrationDB(t)
	store := NewPostgresStore(database)
	ctx := context.Background()
	end := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

	ids := seedTrials(t, database, store, end, 3)

	limited, err := store.DueTrials(ctx, end, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(limited), 2)

	all, err := store.DueTrials(ctx, end, 0)
	require.NoError(t, err)
	due := trialIDs(all)
	for _, id := range ids {
		assert.Contains(t, due, id)
	}

	notYet, err := store.DueTrials(ctx, end.Add(-time.Hour), 0)
	require.NoError(t, err)
	for _, id := range ids {
		assert.NotContains(t, trialIDs(notYet), id)
	}

	n, err := store.MarkTrialsExpired(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, len(ids), n)

	n, err = store.MarkTrialsExpired(ctx, ids)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.MarkTrialsExpired(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	trial, err := store.TrialByEmail(ctx, ids[0]+"@example.com")
	require.NoError(t, err)
	assert.Equal(t, TrialStatusExpired, trial.Status)
}
