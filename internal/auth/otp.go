package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"idcard-portal/internal/apperr"
)

const defaultOTPTTL = 5 * time.Minute

var otpMax = big.NewInt(1_000_000)

var (
	ErrChallengeNotFound = apperr.NotFound("OTP not found. Please request a new one.")
	ErrChallengeExpired  = apperr.Expired("OTP expired. Please request a new one.")
	ErrChallengeMismatch = apperr.Authentication("Invalid OTP")
)

// OTPSender delivers a freshly issued code to the mobile number.
type OTPSender interface {
	SendOTP(ctx context.Context, mobile, code string) error
}

// OTPManager issues and checks single-use codes. Expired challenges are only
// purged when the mobile number is next verified.
type OTPManager struct {
	store    Store
	sender   OTPSender
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

func NewOTPManager(store Store, sender OTPSender, ttl time.Duration) *OTPManager {
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &OTPManager{
		store:    store,
		sender:   sender,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		generate: generateOTP,
	}
}

// RequestChallenge stores a new code for mobile, replacing any pending one.
func (m *OTPManager) RequestChallenge(ctx context.Context, mobile string) (string, error) {
	code, err := m.generate()
	if err != nil {
		return "", err
	}

	challenge := OTPChallenge{
		Mobile:    mobile,
		Code:      code,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.store.SaveChallenge(ctx, challenge); err != nil {
		return "", err
	}

	if m.sender != nil {
		if err := m.sender.SendOTP(ctx, mobile, code); err != nil {
			return "", fmt.Errorf("send otp: %w", err)
		}
	}

	return code, nil
}

// VerifyChallenge consumes the challenge for mobile when code matches. A wrong
// code leaves the challenge in place so a correct retry inside the window
// still succeeds; an expired challenge is rejected and deleted even if the
// code is right.
func (m *OTPManager) VerifyChallenge(ctx context.Context, mobile, code string) error {
	now := m.now()
	var result error

	err := m.store.ResolveChallenge(ctx, mobile, func(c OTPChallenge, found bool) ChallengeDecision {
		switch {
		case !found:
			result = ErrChallengeNotFound
			return KeepChallenge
		case now.After(c.ExpiresAt):
			result = ErrChallengeExpired
			return DropChallenge
		case subtle.ConstantTimeCompare([]byte(c.Code), []byte(code)) != 1:
			result = ErrChallengeMismatch
			return KeepChallenge
		default:
			result = nil
			return DropChallenge
		}
	})
	if err != nil {
		return err
	}

	return result
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
