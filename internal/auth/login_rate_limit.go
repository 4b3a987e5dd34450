package auth

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"idcard-portal/internal/apperr"
	"idcard-portal/internal/observability"
	"idcard-portal/internal/respond"
)

var ErrTooManyAttempts = apperr.RateLimited("Too many attempts. Please try again later.")

// LoginRateLimit configures LoginRateLimiter. Zero values fall back to 10
// attempts per minute with up to 5000 tracked client IPs.
type LoginRateLimit struct {
	MaxAttempts int
	Window      time.Duration
	// MaxTrackedIPs is the table size above which idle IPs are swept.
	MaxTrackedIPs int
}

// LoginRateLimiter caps login attempts per client IP over a sliding window.
// Attempts are kept in process memory, so every instance counts on its own.
type LoginRateLimiter struct {
	mu       sync.Mutex
	limit    LoginRateLimit
	attempts map[string][]time.Time
	now      func() time.Time
}

func NewLoginRateLimiter(limit LoginRateLimit) *LoginRateLimiter {
	if limit.MaxAttempts <= 0 {
		limit.MaxAttempts = 10
	}
	if limit.Window <= 0 {
		limit.Window = time.Minute
	}
	if limit.MaxTrackedIPs <= 0 {
		limit.MaxTrackedIPs = 5000
	}

	return &LoginRateLimiter{
		limit:    limit,
		attempts: make(map[string][]time.Time),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Middleware rejects a login attempt over the limit with 429 and a
// Retry-After header in whole seconds.
func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wait := l.admit(observability.ClientIP(r), l.now())
		if wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
			respond.Error(w, ErrTooManyAttempts)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// admit records an attempt from ip and returns zero, or how long the client
// must wait when the window is already full.
func (l *LoginRateLimiter) admit(ip string, now time.Time) time.Duration {
	since := now.Add(-l.limit.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := inWindow(l.attempts[ip], since)
	if len(recent) >= l.limit.MaxAttempts {
		l.attempts[ip] = recent
		return max(recent[0].Add(l.limit.Window).Sub(now), time.Second)
	}

	l.attempts[ip] = append(recent, now)
	if len(l.attempts) > l.limit.MaxTrackedIPs {
		l.sweep(since)
	}
	return 0
}

// sweep drops IPs whose latest attempt fell out of the window.
func (l *LoginRateLimiter) sweep(since time.Time) {
	for ip, seen := range l.attempts {
		if len(seen) == 0 || !seen[len(seen)-1].After(since) {
			delete(l.attempts, ip)
		}
	}
}

func inWindow(seen []time.Time, since time.Time) []time.Time {
	kept := make([]time.Time, 0, len(seen)+1)
	for _, at := range seen {
		if at.After(since) {
			kept = append(kept, at)
		}
	}
	return kept
}

// tracked reports how many client IPs currently hold attempts.
func (l *LoginRateLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}
