package leads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PostgresStore)(nil)

const trialColumns = `id, user_id, full_name, email, mobile, organization_name, organization_type,
	role, plan, max_id_cards, trial_start_date, trial_end_date, status, created_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveDemo(ctx context.Context, d Demo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO demo_requests (id, full_name, email, mobile, city, address, id_cards, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, d.ID, d.FullName, d.Email, d.Mobile, d.City, d.Address, string(d.IDCards), d.Status, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert demo request: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListDemos(ctx context.Context) ([]Demo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, email, mobile, city, address, id_cards, status, created_at
		FROM demo_requests
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query demo requests: %w", err)
	}
	defer rows.Close()

	demos := make([]Demo, 0)
	for rows.Next() {
		var d Demo
		if err := rows.Scan(&d.ID, &d.FullName, &d.Email, &d.Mobile, &d.City, &d.Address, &d.IDCards, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan demo request: %w", err)
		}
		demos = append(demos, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate demo requests: %w", err)
	}

	return demos, nil
}

func (s *PostgresStore) CreateTrial(ctx context.Context, t Trial) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trials (`+trialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, t.ID, t.UserID, t.FullName, t.Email, t.Mobile, t.OrganizationName, t.OrganizationType,
		t.Role, t.Plan, t.MaxIDCards, t.TrialStartDate, t.TrialEndDate, t.Status, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrTrialExists
		}
		return fmt.Errorf("insert trial: %w", err)
	}

	return nil
}

func (s *PostgresStore) TrialByEmail(ctx context.Context, email string) (Trial, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trialColumns+` FROM trials WHERE email = $1`, email)

	t, err := scanTrial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Trial{}, ErrTrialNotFound
	}
	if err != nil {
		return Trial{}, fmt.Errorf("query trial by email: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListTrials(ctx context.Context) ([]Trial, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+trialColumns+` FROM trials ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	trials := make([]Trial, 0)
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		trials = append(trials, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}

	return trials, nil
}

func (s *PostgresStore) DueTrials(ctx context.Context, now time.Time, limit int) ([]Trial, error) {
	var batch any
	if limit > 0 {
		batch = limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+trialColumns+`
		FROM trials
		WHERE status = $1 AND trial_end_date <= $2
		ORDER BY trial_end_date
		LIMIT $3
	`, TrialStatusActive, now, batch)
	if err != nil {
		return nil, fmt.Errorf("query due trials: %w", err)
	}
	defer rows.Close()

	due := make([]Trial, 0)
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		due = append(due, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due trials: %w", err)
	}

	return due, nil
}

func (s *PostgresStore) MarkTrialsExpired(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE trials SET status = $1
		WHERE id = ANY($2) AND status = $3
	`, TrialStatusExpired, ids, TrialStatusActive)
	if err != nil {
		return 0, fmt.Errorf("mark trials expired: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrial(row rowScanner) (Trial, error) {
	var t Trial
	err := row.Scan(&t.ID, &t.UserID, &t.FullName, &t.Email, &t.Mobile, &t.OrganizationName, &t.OrganizationType,
		&t.Role, &t.Plan, &t.MaxIDCards, &t.TrialStartDate, &t.TrialEndDate, &t.Status, &t.CreatedAt)
	return t, err
}
