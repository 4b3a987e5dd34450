package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"idcard-portal/internal/apperr"
	"idcard-portal/internal/auth"
	"idcard-portal/internal/validate"
)

var (
	ErrDemoFieldsRequired  = apperr.Validation("All fields are required")
	ErrTrialFieldsRequired = apperr.Validation("Name, email, and mobile are required")
	ErrInvalidEmail        = apperr.Validation("Invalid email address")
	ErrInvalidMobile       = apperr.Validation("Invalid mobile number")
	ErrTrialAlreadyExists  = apperr.Conflict("A trial account already exists for this email")
)

// Accounts manages the login behind a trial signup.
type Accounts interface {
	ProvisionTrialAccount(ctx context.Context, in auth.TrialAccount) (auth.Account, error)
	DeleteAccount(ctx context.Context, userID string) error
	ExpireTrialAccount(ctx context.Context, userID string) error
}

type Service struct {
	store    Store
	accounts Accounts
	now      func() time.Time
}

func NewService(store Store, accounts Accounts) *Service {
	return &Service{
		store:    store,
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type DemoRequest struct {
	FullName string       `json:"fullName"`
	Email    string       `json:"email"`
	Mobile   string       `json:"mobile"`
	City     string       `json:"city"`
	Address  string       `json:"address"`
	IDCards  CardQuantity `json:"idCards"`
}

type TrialSignup struct {
	FullName         string `json:"fullName"`
	Email            string `json:"email"`
	Mobile           string `json:"mobile"`
	OrganizationName string `json:"organizationName"`
	OrganizationType string `json:"organizationType"`
}

// TrialCredentials is returned once to the person who signed up.
type TrialCredentials struct {
	Trial    Trial
	Password string
}

func (s *Service) BookDemo(ctx context.Context, in DemoRequest) (Demo, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.City = strings.TrimSpace(in.City)
	in.Address = strings.TrimSpace(in.Address)
	in.IDCards = CardQuantity(strings.TrimSpace(string(in.IDCards)))

	if in.FullName == "" || in.Email == "" || in.Mobile == "" || in.City == "" || in.Address == "" || in.IDCards == "" {
		return Demo{}, ErrDemoFieldsRequired
	}
	if err := checkContact(in.Email, in.Mobile); err != nil {
		return Demo{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Demo{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	demo := Demo{
		ID:        id.String(),
		FullName:  in.FullName,
		Email:     in.Email,
		Mobile:    in.Mobile,
		City:      in.City,
		Address:   in.Address,
		IDCards:   in.IDCards,
		Status:    DemoStatusPending,
		CreatedAt: s.now(),
	}
	if err := s.store.SaveDemo(ctx, demo); err != nil {
		return Demo{}, err
	}

	return demo, nil
}

// SignupTrial records a trial and provisions its login. An email gets at
// most one trial; a repeat signup is a conflict even under concurrency.
// When the trial cannot be recorded the login is removed again, so the
// signup can be retried.
func (s *Service) SignupTrial(ctx context.Context, in TrialSignup) (TrialCredentials, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Mobile = strings.TrimSpace(in.Mobile)

	if in.FullName == "" || in.Email == "" || in.Mobile == "" {
		return TrialCredentials{}, ErrTrialFieldsRequired
	}
	if err := checkContact(in.Email, in.Mobile); err != nil {
		return TrialCredentials{}, err
	}

	if _, err := s.store.TrialByEmail(ctx, in.Email); err == nil {
		return TrialCredentials{}, ErrTrialAlreadyExists
	} else if !errors.Is(err, ErrTrialNotFound) {
		return TrialCredentials{}, err
	}

	account, err := s.accounts.ProvisionTrialAccount(ctx, auth.TrialAccount{
		Email:      in.Email,
		Name:       in.FullName,
		Plan:       TrialPlan,
		MaxIDCards: TrialMaxIDCards,
	})
	if err != nil {
		return TrialCredentials{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return TrialCredentials{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := s.now()
	trial := Trial{
		ID:               id.String(),
		UserID:           account.ID,
		FullName:         in.FullName,
		Email:            in.Email,
		Mobile:           in.Mobile,
		OrganizationName: orNotProvided(in.OrganizationName),
		OrganizationType: orNotProvided(in.OrganizationType),
		Role:             string(auth.RoleTrial),
		Plan:             TrialPlan,
		MaxIDCards:       TrialMaxIDCards,
		TrialStartDate:   now,
		TrialEndDate:     now.Add(TrialDuration),
		Status:           TrialStatusActive,
		CreatedAt:        now,
	}
	if err := s.store.CreateTrial(ctx, trial); err != nil {
		if cerr := s.accounts.DeleteAccount(ctx, account.ID); cerr != nil {
			err = errors.Join(err, fmt.Errorf("undo trial account: %w", cerr))
		}
		if errors.Is(err, ErrTrialExists) {
			return TrialCredentials{}, ErrTrialAlreadyExists
		}
		return TrialCredentials{}, err
	}

	return TrialCredentials{Trial: trial, Password: account.Password}, nil
}

func (s *Service) Demos(ctx context.Context) ([]Demo, error) {
	return s.store.ListDemos(ctx)
}

func (s *Service) Trials(ctx context.Context) ([]Trial, error) {
	return s.store.ListTrials(ctx)
}

// ExpireTrials closes trials whose window has ended, at most limit per call.
// The login is closed before the trial record, so a run that stops halfway
// picks the remaining trials up on the next call.
func (s *Service) ExpireTrials(ctx context.Context, limit int) (int, error) {
	due, err := s.store.DueTrials(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}

	closed := make([]string, 0, len(due))
	var accountErr error
	for _, t := range due {
		if err := s.accounts.ExpireTrialAccount(ctx, t.UserID); err != nil {
			accountErr = fmt.Errorf("expire trial %s: %w", t.ID, err)
			break
		}
		closed = append(closed, t.ID)
	}

	expired, err := s.store.MarkTrialsExpired(ctx, closed)
	if err != nil {
		return 0, errors.Join(accountErr, err)
	}
	return expired, accountErr
}

func checkContact(email, mobile string) error {
	if !validate.Email(email) {
		return ErrInvalidEmail
	}
	if !validate.Mobile(mobile) {
		return ErrInvalidMobile
	}
	return nil
}

func orNotProvided(value string) string {
	if value = strings.TrimSpace(value); value == "" {
		return notProvided
	}
	return value
}
