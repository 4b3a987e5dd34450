package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PostgresStore)(nil)

const userColumns = `id, email, mobile, telegram_id, name, first_name, last_name, username, photo_url,
	role, plan, max_id_cards, password_hash, session_token, created_at, last_login_at`

// PostgresStore persists users and challenges through the pgx stdlib driver.
// Identity and token columns carry unique indexes, so the database enforces
// the same one-record-per-key rules as MemoryStore.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			mobile = EXCLUDED.mobile,
			telegram_id = EXCLUDED.telegram_id,
			name = EXCLUDED.name,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			photo_url = EXCLUDED.photo_url,
			role = EXCLUDED.role,
			plan = EXCLUDED.plan,
			max_id_cards = EXCLUDED.max_id_cards,
			password_hash = EXCLUDED.password_hash,
			session_token = EXCLUDED.session_token,
			last_login_at = EXCLUDED.last_login_at
	`, userArgs(user)...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("upsert user: %w", err)
	}

	return nil
}

func (s *PostgresStore) UserByID(ctx context.Context, id string) (User, error) {
	return s.userBy(ctx, "id", id)
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.userBy(ctx, "email", email)
}

func (s *PostgresStore) UserByMobile(ctx context.Context, mobile string) (User, error) {
	return s.userBy(ctx, "mobile", mobile)
}

func (s *PostgresStore) UserByTelegramID(ctx context.Context, telegramID string) (User, error) {
	return s.userBy(ctx, "telegram_id", telegramID)
}

func (s *PostgresStore) UserByToken(ctx context.Context, token string) (User, error) {
	return s.userBy(ctx, "session_token", token)
}

func (s *PostgresStore) EnsureUser(ctx context.Context, identity Identity, candidate User) (User, bool, error) {
	column, err := identityColumn(identity.Kind)
	if err != nil {
		return User{}, false, err
	}
	if identity.Value == "" {
		return User{}, false, fmt.Errorf("ensure user: empty %s identity", identity.Kind)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (`+column+`) DO NOTHING
	`, userArgs(candidate)...)
	if err != nil {
		return User{}, false, fmt.Errorf("insert user by %s: %w", identity.Kind, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return User{}, false, fmt.Errorf("ensure user rows affected: %w", err)
	}

	user, err := s.userBy(ctx, column, identity.Value)
	if err != nil {
		return User{}, false, err
	}
	return user, affected == 1, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (s *PostgresStore) AttachSession(ctx context.Context, userID, token string, at time.Time) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET session_token = $2, last_login_at = $3
		WHERE id = $1
		RETURNING `+userColumns, userID, token, at.UTC())

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrTokenCollision
		}
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) SaveChallenge(ctx context.Context, c OTPChallenge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO otp_challenges (mobile, code, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (mobile)
		DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at
	`, c.Mobile, c.Code, c.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert otp challenge: %w", err)
	}

	return nil
}

func (s *PostgresStore) ResolveChallenge(ctx context.Context, mobile string, decide func(OTPChallenge, bool) ChallengeDecision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin otp challenge tx: %w", err)
	}
	defer tx.Rollback()

	c := OTPChallenge{Mobile: mobile}
	found := true
	err = tx.QueryRowContext(ctx, `
		SELECT code, expires_at
		FROM otp_challenges
		WHERE mobile = $1
		FOR UPDATE
	`, mobile).Scan(&c.Code, &c.ExpiresAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lock otp challenge: %w", err)
		}
		found = false
		c = OTPChallenge{}
	}

	if decide(c, found) == DropChallenge && found {
		if _, err := tx.ExecContext(ctx, `DELETE FROM otp_challenges WHERE mobile = $1`, mobile); err != nil {
			return fmt.Errorf("delete otp challenge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit otp challenge tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) userBy(ctx context.Context, column, value string) (User, error) {
	if value == "" {
		return User{}, ErrUserNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var (
		user                                User
		email, mobile, telegramID, token    sql.NullString
		name, firstName, lastName, username sql.NullString
		photoURL, plan, passwordHash        sql.NullString
		role                                string
		lastLogin                           sql.NullTime
	)
	err := row.Scan(&user.ID, &email, &mobile, &telegramID, &name, &firstName, &lastName, &username, &photoURL,
		&role, &plan, &user.MaxIDCards, &passwordHash, &token, &user.CreatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}

	user.Email = email.String
	user.Mobile = mobile.String
	user.TelegramID = telegramID.String
	user.Name = name.String
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.Username = username.String
	user.PhotoURL = photoURL.String
	user.Role = Role(role)
	user.Plan = plan.String
	user.PasswordHash = passwordHash.String
	user.SessionToken = token.String
	if lastLogin.Valid {
		value := lastLogin.Time.UTC()
		user.LastLoginAt = &value
	}
	return user, nil
}

func userArgs(u User) []any {
	var lastLogin any
	if u.LastLoginAt != nil {
		lastLogin = u.LastLoginAt.UTC()
	}
	return []any{
		u.ID, nullIfEmpty(u.Email), nullIfEmpty(u.Mobile), nullIfEmpty(u.TelegramID),
		nullIfEmpty(u.Name), nullIfEmpty(u.FirstName), nullIfEmpty(u.LastName), nullIfEmpty(u.Username),
		nullIfEmpty(u.PhotoURL), string(u.Role), nullIfEmpty(u.Plan), u.MaxIDCards,
		nullIfEmpty(u.PasswordHash), nullIfEmpty(u.SessionToken), u.CreatedAt.UTC(), lastLogin,
	}
}

func identityColumn(kind IdentityKind) (string, error) {
	switch kind {
	case IdentityEmail:
		return "email", nil
	case IdentityMobile:
		return "mobile", nil
	case IdentityTelegram:
		return "telegram_id", nil
	default:
		return "", fmt.Errorf("unknown identity kind %q", kind)
	}
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
