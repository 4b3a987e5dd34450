package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("user already exists")
	ErrTokenCollision = errors.New("session token already assigned")
)

// ChallengeDecision is returned by the callback given to ResolveChallenge.
type ChallengeDecision int

const (
	KeepChallenge ChallengeDecision = iota
	DropChallenge
)

// Store owns user records and pending OTP challenges. Implementations must
// make every write visible to subsequent reads and serialize writers to the
// same key.
type Store interface {
	// SaveUser inserts or replaces the record with user.ID.
	SaveUser(ctx context.Context, user User) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByMobile(ctx context.Context, mobile string) (User, error)
	UserByTelegramID(ctx context.Context, telegramID string) (User, error)
	UserByToken(ctx context.Context, token string) (User, error)

	// EnsureUser returns the user matching identity, inserting candidate when
	// none exists. The bool reports whether candidate was inserted.
	EnsureUser(ctx context.Context, identity Identity, candidate User) (User, bool, error)

	// DeleteUser removes the record and frees its identity and token keys.
	DeleteUser(ctx context.Context, id string) error

	// AttachSession replaces the user's session token and stamps last login.
	AttachSession(ctx context.Context, userID, token string, at time.Time) (User, error)

	// SaveChallenge stores c, replacing any challenge for the same mobile.
	SaveChallenge(ctx context.Context, c OTPChallenge) error

	// ResolveChallenge loads the challenge for mobile and hands it to decide
	// while holding the mobile's lock; DropChallenge deletes it before the
	// lock is released.
	ResolveChallenge(ctx context.Context, mobile string, decide func(c OTPChallenge, found bool) ChallengeDecision) error

	Ping(ctx context.Context) error
}
