package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const sessionTokenBytes = 32

// SessionIssuer mints opaque bearer tokens. Tokens never expire and are only
// replaced by the user's next login.
type SessionIssuer struct {
	store  Store
	now    func() time.Time
	random func(size int) (string, error)
}

func NewSessionIssuer(store Store) *SessionIssuer {
	return &SessionIssuer{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		random: randomToken,
	}
}

// Issue attaches a fresh token to user and returns the updated record.
func (i *SessionIssuer) Issue(ctx context.Context, user User) (User, string, error) {
	token, err := i.random(sessionTokenBytes)
	if err != nil {
		return User{}, "", fmt.Errorf("generate session token: %w", err)
	}

	updated, err := i.store.AttachSession(ctx, user.ID, token, i.now())
	if err != nil {
		return User{}, "", fmt.Errorf("attach session: %w", err)
	}

	return updated, token, nil
}

func randomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
