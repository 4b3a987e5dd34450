package maintenance

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"idcard-portal/internal/observability"
	"idcard-portal/internal/respond"
)

type TrialExpirer interface {
	ExpireTrials(ctx context.Context, limit int) (int, error)
}

// ExpiryHandler is the cron entry point that closes finished trials.
type ExpiryHandler struct {
	trials     TrialExpirer
	logger     *observability.Logger
	cronSecret string
	batchSize  int
}

func NewExpiryHandler(trials TrialExpirer, logger *observability.Logger, cronSecret string, batchSize int) *ExpiryHandler {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &ExpiryHandler{
		trials:     trials,
		logger:     logger.With(map[string]any{"component": "trial_expiry"}),
		cronSecret: strings.TrimSpace(cronSecret),
		batchSize:  batchSize,
	}
}

func (h *ExpiryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		respond.JSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") ||
		subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(h.cronSecret)) != 1 {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	expired, err := h.trials.ExpireTrials(r.Context(), h.batchSize)
	if err != nil {
		h.logger.Error("trial_expiry_failed", map[string]any{
			"error":          err.Error(),
			"expired_trials": expired,
		})
		respond.JSON(w, http.StatusInternalServerError, map[string]string{"error": "trial expiry failed"})
		return
	}

	h.logger.Info("trial_expiry_completed", map[string]any{
		"expired_trials": expired,
		"batch_size":     h.batchSize,
	})

	respond.JSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"expired_trials": expired,
	})
}
