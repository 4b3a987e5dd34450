package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"idcard-portal/internal/apperr"
	"idcard-portal/internal/respond"
)

const adminTokenType = "admin"

type contextKey struct{}

var errAdminRequired = apperr.Authentication("Admin authorization required")

// UserFromContext returns the user resolved by SessionMiddleware.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(contextKey{}).(User)
	return user, ok
}

// SessionMiddleware resolves "Authorization: Bearer <token>" to a user and
// rejects the request when it cannot.
func SessionMiddleware(service *Service, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := service.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			respond.Error(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, user)))
	})
}

// AdminMiddleware accepts HS256 JWTs of type "admin" signed with secret.
func AdminMiddleware(secret string, next http.Handler) http.Handler {
	key := []byte(secret)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			respond.Error(w, errAdminRequired)
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			respond.Error(w, errAdminRequired)
			return
		}
		if tokenType, _ := claims["typ"].(string); tokenType != adminTokenType {
			respond.Error(w, errAdminRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// IssueAdminToken signs an admin API token for subject valid for ttl.
func IssueAdminToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"typ": adminTokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
