package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"idcard-portal/internal/apperr"
)

const telegramHashField = "hash"

var (
	ErrTelegramAssertionMalformed = apperr.Validation("Telegram authentication data is required")
	ErrTelegramAuthInvalid        = apperr.Authentication("Invalid Telegram authentication data")
)

// Assertion is the login-widget payload exactly as the client posted it.
// Numbers are expected as json.Number so their textual form survives.
type Assertion map[string]any

// TelegramVerifier checks login-widget assertions. The HMAC key is the
// SHA-256 digest of the bot token, not the token itself.
type TelegramVerifier struct {
	secretKey []byte
	maxAge    time.Duration
	now       func() time.Time
}

// NewTelegramVerifier returns a verifier for botToken. An empty token yields
// a verifier that rejects everything. maxAge <= 0 disables the auth_date check.
func NewTelegramVerifier(botToken string, maxAge time.Duration) *TelegramVerifier {
	v := &TelegramVerifier{maxAge: maxAge, now: time.Now}
	if botToken != "" {
		sum := sha256.Sum256([]byte(botToken))
		v.secretKey = sum[:]
	}
	return v
}

// Verify recomputes the signature over every field except hash and compares
// it with the claimed one in constant time.
func (v *TelegramVerifier) Verify(a Assertion) error {
	fields, claimed, err := a.signedFields()
	if err != nil {
		return err
	}
	if v.secretKey == nil {
		return ErrTelegramAuthInvalid
	}

	expected := v.sign(fields)
	if !hmac.Equal([]byte(expected), []byte(claimed)) {
		return ErrTelegramAuthInvalid
	}

	if v.maxAge > 0 {
		authDate, err := strconv.ParseInt(fields["auth_date"], 10, 64)
		if err != nil || v.now().Sub(time.Unix(authDate, 0)) > v.maxAge {
			return ErrTelegramAuthInvalid
		}
	}

	return nil
}

func (v *TelegramVerifier) sign(fields map[string]string) string {
	mac := hmac.New(sha256.New, v.secretKey)
	mac.Write([]byte(DataCheckString(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// DataCheckString sorts the field names and joins "name=value" pairs with
// newlines.
func DataCheckString(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}
	return strings.Join(lines, "\n")
}

// Field returns the textual value of name, or "" when absent.
func (a Assertion) Field(name string) string {
	value, ok := a[name]
	if !ok {
		return ""
	}
	text, _ := scalarText(value)
	return text
}

func (a Assertion) signedFields() (map[string]string, string, error) {
	if len(a) == 0 {
		return nil, "", ErrTelegramAssertionMalformed
	}

	claimed, ok := a[telegramHashField].(string)
	if !ok || claimed == "" {
		return nil, "", ErrTelegramAssertionMalformed
	}

	fields := make(map[string]string, len(a)-1)
	for k, value := range a {
		if k == telegramHashField {
			continue
		}
		text, ok := scalarText(value)
		if !ok {
			return nil, "", ErrTelegramAssertionMalformed
		}
		fields[k] = text
	}
	return fields, claimed, nil
}

func scalarText(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case nil:
		return "null", true
	default:
		return "", false
	}
}
