package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminSecret = "admin-secret-for-tests"

func adminProbe() http.Handler {
	return AdminMiddleware(testAdminSecret, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func callWithBearer(handler http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/demo/list", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAdminMiddleware_AcceptsIssuedToken(t *testing.T) {
	token, err := IssueAdminToken(testAdminSecret, "ops@example.com", time.Hour, time.Now())
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, callWithBearer(adminProbe(), token).Code)
}

func TestAdminMiddleware_Rejects(t *testing.T) {
	expired, err := IssueAdminToken(testAdminSecret, "ops", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	wrongSecret, err := IssueAdminToken("other-secret", "ops", time.Hour, time.Now())
	require.NoError(t, err)

	wrongType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"typ": "session",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testAdminSecret))
	require.NoError(t, err)

	cases := map[string]string{
		"missing":      "",
		"garbage":      "not-a-jwt",
		"expired":      expired,
		"wrong secret": wrongSecret,
		"wrong type":   wrongType,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			rec := callWithBearer(adminProbe(), token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "Admin authorization required")
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", bearerToken(req))

	req.Header.Set("Authorization", "bearer  abc ")
	assert.Equal(t, "abc", bearerToken(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", bearerToken(req))
}
