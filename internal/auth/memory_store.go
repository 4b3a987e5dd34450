package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps users and challenges in process memory. A single mutex
// guards the primary map and its secondary indices so they never diverge.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[string]User
	byEmail    map[string]string
	byMobile   map[string]string
	byTelegram map[string]string
	byToken    map[string]string
	challenges map[string]OTPChallenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]User),
		byEmail:    make(map[string]string),
		byMobile:   make(map[string]string),
		byTelegram: make(map[string]string),
		byToken:    make(map[string]string),
		challenges: make(map[string]OTPChallenge),
	}
}

func (s *MemoryStore) SaveUser(_ context.Context, user User) error {
	if user.ID == "" {
		return fmt.Errorf("save user: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if user.SessionToken != "" {
		if owner, ok := s.byToken[user.SessionToken]; ok && owner != user.ID {
			return ErrTokenCollision
		}
	}
	s.put(user)
	return nil
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	return s.lookup(s.byEmail, email)
}

func (s *MemoryStore) UserByMobile(_ context.Context, mobile string) (User, error) {
	return s.lookup(s.byMobile, mobile)
}

func (s *MemoryStore) UserByTelegramID(_ context.Context, telegramID string) (User, error) {
	return s.lookup(s.byTelegram, telegramID)
}

func (s *MemoryStore) UserByToken(_ context.Context, token string) (User, error) {
	return s.lookup(s.byToken, token)
}

// FindUser scans every record and returns the first one pred accepts.
func (s *MemoryStore) FindUser(pred func(User) bool) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if pred(user) {
			return user, true
		}
	}
	return User{}, false
}

func (s *MemoryStore) EnsureUser(_ context.Context, identity Identity, candidate User) (User, bool, error) {
	byIdentity, err := s.indexFor(identity.Kind)
	if err != nil {
		return User{}, false, err
	}
	if identity.Value == "" {
		return User{}, false, fmt.Errorf("ensure user: empty %s identity", identity.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := byIdentity[identity.Value]; ok {
		return s.users[id], false, nil
	}
	if _, ok := s.users[candidate.ID]; ok || candidate.ID == "" {
		return User{}, false, fmt.Errorf("ensure user: invalid candidate id %q", candidate.ID)
	}
	s.put(candidate)
	return candidate, true, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	unindex(s.byEmail, user.Email, id)
	unindex(s.byMobile, user.Mobile, id)
	unindex(s.byTelegram, user.TelegramID, id)
	unindex(s.byToken, user.SessionToken, id)
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) AttachSession(_ context.Context, userID, token string, at time.Time) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	if owner, ok := s.byToken[token]; ok && owner != userID {
		return User{}, ErrTokenCollision
	}

	loginAt := at
	user.SessionToken = token
	user.LastLoginAt = &loginAt
	s.put(user)
	return user, nil
}

func (s *MemoryStore) SaveChallenge(_ context.Context, c OTPChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[c.Mobile] = c
	return nil
}

func (s *MemoryStore) ResolveChallenge(_ context.Context, mobile string, decide func(OTPChallenge, bool) ChallengeDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, found := s.challenges[mobile]
	if decide(c, found) == DropChallenge && found {
		delete(s.challenges, mobile)
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) lookup(index map[string]string, key string) (User, error) {
	if key == "" {
		return User{}, ErrUserNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := index[key]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) indexFor(kind IdentityKind) (map[string]string, error) {
	switch kind {
	case IdentityEmail:
		return s.byEmail, nil
	case IdentityMobile:
		return s.byMobile, nil
	case IdentityTelegram:
		return s.byTelegram, nil
	default:
		return nil, fmt.Errorf("unknown identity kind %q", kind)
	}
}

// put must be called with mu held.
func (s *MemoryStore) put(user User) {
	if prev, ok := s.users[user.ID]; ok {
		unindex(s.byEmail, prev.Email, prev.ID)
		unindex(s.byMobile, prev.Mobile, prev.ID)
		unindex(s.byTelegram, prev.TelegramID, prev.ID)
		unindex(s.byToken, prev.SessionToken, prev.ID)
	}

	s.users[user.ID] = user
	index(s.byEmail, user.Email, user.ID)
	index(s.byMobile, user.Mobile, user.ID)
	index(s.byTelegram, user.TelegramID, user.ID)
	index(s.byToken, user.SessionToken, user.ID)
}

func index(m map[string]string, key, id string) {
	if key != "" {
		m[key] = id
	}
}

func unindex(m map[string]string, key, id string) {
	if key != "" && m[key] == id {
		delete(m, key)
	}
}
