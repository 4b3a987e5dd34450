package auth

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBotToken = "123456:TEST-bot-token"
	// HMAC-SHA256(key=SHA256(testBotToken), data check string of fixtureAssertion)
	fixtureHash = "2ca5fb2d977b54e15affce1b0f650040692a6995f39b18f8bb80dac7424686a1"
)

func fixtureAssertion(t *testing.T) Assertion {
	t.Helper()
	raw := `{"id":424242,"first_name":"Asha","last_name":"Rao","username":"asha_r","auth_date":1700000000,"hash":"` + fixtureHash + `"}`
	return decodeAssertion(t, raw)
}

func decodeAssertion(t *testing.T, raw string) Assertion {
	t.Helper()
	var a Assertion
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	require.NoError(t, decoder.Decode(&a))
	return a
}

func TestDataCheckString_SortsAndJoins(t *testing.T) {
	got := DataCheckString(map[string]string{"username": "asha_r", "id": "424242", "auth_date": "1700000000"})
	assert.Equal(t, "auth_date=1700000000\nid=424242\nusername=asha_r", got)
}

func TestTelegramVerifier_FixtureSignature(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, 0)
	a := fixtureAssertion(t)

	fields, _, err := a.signedFields()
	require.NoError(t, err)
	assert.Equal(t, fixtureHash, v.sign(fields))
	assert.NoError(t, v.Verify(a))
}

func TestTelegramVerifier_DoesNotMutateAssertion(t *testing.T) {
	a := fixtureAssertion(t)
	require.NoError(t, NewTelegramVerifier(testBotToken, 0).Verify(a))
	assert.Equal(t, fixtureHash, a["hash"])
}

func TestTelegramVerifier_AnyFieldFlipFails(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, 0)

	for _, field := range []string{"id", "first_name", "last_name", "username", "auth_date"} {
		t.Run(field, func(t *testing.T) {
			a := fixtureAssertion(t)
			a[field] = json.Number("1")
			assert.ErrorIs(t, v.Verify(a), ErrTelegramAuthInvalid)
		})
	}

	t.Run("added field", func(t *testing.T) {
		a := fixtureAssertion(t)
		a["photo_url"] = "https://t.me/i/userpic/1.jpg"
		assert.ErrorIs(t, v.Verify(a), ErrTelegramAuthInvalid)
	})

	t.Run("hash case", func(t *testing.T) {
		a := fixtureAssertion(t)
		a["hash"] = strings.ToUpper(fixtureHash)
		assert.ErrorIs(t, v.Verify(a), ErrTelegramAuthInvalid)
	})
}

func TestTelegramVerifier_WrongSecretFails(t *testing.T) {
	assert.ErrorIs(t, NewTelegramVerifier("other-token", 0).Verify(fixtureAssertion(t)), ErrTelegramAuthInvalid)
	assert.ErrorIs(t, NewTelegramVerifier("", 0).Verify(fixtureAssertion(t)), ErrTelegramAuthInvalid)
}

func TestTelegramVerifier_MalformedAssertions(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, 0)

	assert.ErrorIs(t, v.Verify(nil), ErrTelegramAssertionMalformed)
	assert.ErrorIs(t, v.Verify(decodeAssertion(t, `{"id":1}`)), ErrTelegramAssertionMalformed)
	assert.ErrorIs(t, v.Verify(decodeAssertion(t, `{"id":1,"hash":""}`)), ErrTelegramAssertionMalformed)
	assert.ErrorIs(t, v.Verify(decodeAssertion(t, `{"id":{"nested":true},"hash":"abc"}`)), ErrTelegramAssertionMalformed)
}

func TestTelegramVerifier_MaxAge(t *testing.T) {
	v := NewTelegramVerifier(testBotToken, time.Hour)

	v.now = func() time.Time { return time.Unix(1700000000, 0).Add(30 * time.Minute) }
	assert.NoError(t, v.Verify(fixtureAssertion(t)))

	v.now = func() time.Time { return time.Unix(1700000000, 0).Add(2 * time.Hour) }
	assert.ErrorIs(t, v.Verify(fixtureAssertion(t)), ErrTelegramAuthInvalid)
}

func TestAssertion_Field(t *testing.T) {
	a := fixtureAssertion(t)
	assert.Equal(t, "424242", a.Field("id"))
	assert.Equal(t, "Asha", a.Field("first_name"))
	assert.Equal(t, "", a.Field("photo_url"))
}
