package leads

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTrialNotFound = errors.New("trial not found")
	ErrTrialExists   = errors.New("trial already exists")
)

// Store keeps demo requests and trial signups. CreateTrial must reject a
// second trial for the same email with ErrTrialExists atomically.
type Store interface {
	SaveDemo(ctx context.Context, demo Demo) error
	ListDemos(ctx context.Context) ([]Demo, error)
	CreateTrial(ctx context.Context, trial Trial) error
	TrialByEmail(ctx context.Context, email string) (Trial, error)
	ListTrials(ctx context.Context) ([]Trial, error)
	// DueTrials returns up to limit active trials whose end date is at or
	// before now, oldest end date first. A limit of zero means no limit.
	DueTrials(ctx context.Context, now time.Time, limit int) ([]Trial, error)
	// MarkTrialsExpired flips the listed trials that are still active and
	// returns how many changed.
	MarkTrialsExpired(ctx context.Context, ids []string) (int, error)
}
