package app

import (
	"context"
	"net/http"
	"time"

	"idcard-portal/internal/respond"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func healthHandler(store pinger, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		now := time.Now().UTC()
		status := http.StatusOK
		body := map[string]any{
			"status":    "healthy",
			"timestamp": now.Format(time.RFC3339),
			"uptime":    now.Sub(started).Seconds(),
		}
		if err := store.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}

		respond.JSON(w, status, body)
	}
}
