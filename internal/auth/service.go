package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"idcard-portal/internal/apperr"
	"idcard-portal/internal/validate"
)

const (
	trialPasswordBytes = 8

	// PlanExpired replaces a trial account's plan once its window has ended.
	PlanExpired = "expired"
)

var (
	ErrCredentialsRequired = apperr.Validation("Email and password are required")
	ErrInvalidCredentials  = apperr.Authentication("Invalid credentials")
	ErrMobileRequired      = apperr.Validation("Mobile number is required")
	ErrInvalidMobile       = apperr.Validation("Invalid mobile number")
	ErrOTPRequired         = apperr.Validation("Mobile number and OTP are required")
	ErrTelegramIDRequired  = apperr.Validation("Telegram id is required")
	ErrAuthRequired        = apperr.Authentication("Authentication required")
	ErrInvalidSession      = apperr.Authentication("Invalid session")
	ErrAccountExists       = apperr.Conflict("An account already exists for this email")
	ErrTrialEnded          = apperr.Authentication("Trial period has ended")
)

// Service routes each login modality to its verifier and issues a session on
// success. All user mutation goes through here.
type Service struct {
	store    Store
	otp      *OTPManager
	telegram *TelegramVerifier
	sessions *SessionIssuer
	now      func() time.Time
}

func NewService(store Store, otp *OTPManager, telegram *TelegramVerifier, sessions *SessionIssuer) *Service {
	return &Service{
		store:    store,
		otp:      otp,
		telegram: telegram,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type PasswordLogin struct {
	Email    string
	Password string
	// Role is optional. When set it must match the stored role.
	Role string
}

func (s *Service) LoginWithPassword(ctx context.Context, in PasswordLogin) (User, string, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return User{}, "", ErrCredentialsRequired
	}

	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}
	if user.PasswordHash == "" {
		return User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return User{}, "", ErrInvalidCredentials
	}
	if role := strings.TrimSpace(in.Role); role != "" && !strings.EqualFold(role, string(user.Role)) {
		return User{}, "", ErrInvalidCredentials
	}
	if user.Role == RoleTrial && user.Plan == PlanExpired {
		return User{}, "", ErrTrialEnded
	}

	return s.sessions.Issue(ctx, user)
}

// RequestOTP issues a challenge for the normalized mobile number and returns
// both. It never reveals whether a user exists for the number.
func (s *Service) RequestOTP(ctx context.Context, mobile string) (string, string, error) {
	if strings.TrimSpace(mobile) == "" {
		return "", "", ErrMobileRequired
	}
	if !validate.Mobile(mobile) {
		return "", "", ErrInvalidMobile
	}

	normalized := validate.NormalizeMobile(mobile)
	code, err := s.otp.RequestChallenge(ctx, normalized)
	if err != nil {
		return "", "", err
	}
	return normalized, code, nil
}

func (s *Service) VerifyOTP(ctx context.Context, mobile, code string) (User, string, error) {
	if strings.TrimSpace(mobile) == "" || strings.TrimSpace(code) == "" {
		return User{}, "", ErrOTPRequired
	}

	normalized := validate.NormalizeMobile(mobile)
	if err := s.otp.VerifyChallenge(ctx, normalized, strings.TrimSpace(code)); err != nil {
		return User{}, "", err
	}

	candidate, err := s.newUser(RoleUser)
	if err != nil {
		return User{}, "", err
	}
	candidate.Mobile = normalized

	user, _, err := s.store.EnsureUser(ctx, Identity{Kind: IdentityMobile, Value: normalized}, candidate)
	if err != nil {
		return User{}, "", err
	}

	return s.sessions.Issue(ctx, user)
}

func (s *Service) LoginWithTelegram(ctx context.Context, a Assertion) (User, string, error) {
	if err := s.telegram.Verify(a); err != nil {
		return User{}, "", err
	}

	telegramID := a.Field("id")
	if telegramID == "" {
		return User{}, "", ErrTelegramIDRequired
	}

	candidate, err := s.newUser(RoleUser)
	if err != nil {
		return User{}, "", err
	}
	candidate.TelegramID = telegramID
	candidate.FirstName = a.Field("first_name")
	candidate.LastName = a.Field("last_name")
	candidate.Username = a.Field("username")
	candidate.PhotoURL = a.Field("photo_url")

	user, _, err := s.store.EnsureUser(ctx, Identity{Kind: IdentityTelegram, Value: telegramID}, candidate)
	if err != nil {
		return User{}, "", err
	}

	return s.sessions.Issue(ctx, user)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrAuthRequired
	}

	user, err := s.store.UserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidSession
		}
		return User{}, err
	}
	return user, nil
}

// TrialAccount describes the login created for a trial signup.
type TrialAccount struct {
	Email      string
	Name       string
	Plan       string
	MaxIDCards int
}

// ProvisionTrialAccount creates a trial login for in.Email with a random
// password, returned in plaintext exactly once. An existing login for the
// email is never taken over.
func (s *Service) ProvisionTrialAccount(ctx context.Context, in TrialAccount) (Account, error) {
	password, err := randomToken(trialPasswordBytes)
	if err != nil {
		return Account{}, fmt.Errorf("generate trial password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("hash trial password: %w", err)
	}

	candidate, err := s.newUser(RoleTrial)
	if err != nil {
		return Account{}, err
	}
	candidate.Email = in.Email
	candidate.Name = in.Name
	candidate.Plan = in.Plan
	candidate.MaxIDCards = in.MaxIDCards
	candidate.PasswordHash = string(hash)

	user, created, err := s.store.EnsureUser(ctx, Identity{Kind: IdentityEmail, Value: in.Email}, candidate)
	if err != nil {
		return Account{}, err
	}
	if !created {
		return Account{}, ErrAccountExists
	}

	return Account{ID: user.ID, Email: user.Email, Password: password}, nil
}

// DeleteAccount removes a login. Deleting a missing account is not an error,
// so callers can use it to undo a provisioning step.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	err := s.store.DeleteUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("delete account %s: %w", userID, err)
	}
	return nil
}

// ExpireTrialAccount closes a trial login: the plan becomes PlanExpired, the
// card quota drops to zero and the current session stops resolving. Accounts
// that are no longer trials are left alone. Repeating the call is harmless.
func (s *Service) ExpireTrialAccount(ctx context.Context, userID string) error {
	user, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.Role != RoleTrial || user.Plan == PlanExpired {
		return nil
	}

	user.Plan = PlanExpired
	user.MaxIDCards = 0
	user.SessionToken = ""
	if err := s.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("expire trial account %s: %w", userID, err)
	}
	return nil
}

// BootstrapAdmin makes sure an admin login exists for email. Both values
// empty is a no-op.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	if email == "" && password == "" {
		return nil
	}
	if email == "" || password == "" {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD are required together")
	}
	if !validate.Email(email) {
		return fmt.Errorf("ADMIN_EMAIL is not a valid email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		user, err = s.newUser(RoleAdmin)
		user.Email = email
	}
	if err != nil {
		return err
	}
	user.Role = RoleAdmin
	user.PasswordHash = string(hash)
	if user.Name == "" {
		user.Name = "Administrator"
	}

	return s.store.SaveUser(ctx, user)
}

func (s *Service) newUser(role Role) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate uuid v7: %w", err)
	}
	return User{ID: id.String(), Role: role, CreatedAt: s.now()}, nil
}
