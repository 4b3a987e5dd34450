package leads

import (
	"encoding/json"
	"net/http"

	"idcard-portal/internal/apperr"
	"idcard-portal/internal/observability"
	"idcard-portal/internal/respond"
)

const maxJSONBodyBytes = 1 << 20

var errInvalidJSON = apperr.Validation("Invalid JSON body")

type Handler struct {
	service *Service
	logger  *observability.Logger
}

func NewHandler(service *Service, logger *observability.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) BookDemo(w http.ResponseWriter, r *http.Request) {
	var body DemoRequest
	if err := decodeJSON(w, r, &body); err != nil {
		respond.Error(w, err)
		return
	}

	demo, err := h.service.BookDemo(r.Context(), body)
	if err != nil {
		respond.Error(w, err)
		return
	}

	h.logger.Info("demo_booked", map[string]any{"demo_id": demo.ID, "city": demo.City, "id_cards": demo.IDCards})

	respond.OK(w, "Demo booking successful! We will contact you shortly.", respond.Fields{
		"demoId": demo.ID,
	})
}

func (h *Handler) SignupTrial(w http.ResponseWriter, r *http.Request) {
	var body TrialSignup
	if err := decodeJSON(w, r, &body); err != nil {
		respond.Error(w, err)
		return
	}

	creds, err := h.service.SignupTrial(r.Context(), body)
	if err != nil {
		respond.Error(w, err)
		return
	}

	h.logger.Info("trial_created", map[string]any{"trial_id": creds.Trial.ID, "user_id": creds.Trial.UserID})

	respond.OK(w, "Trial account created successfully!", respond.Fields{
		"user": trialLoginView{
			ID:           creds.Trial.UserID,
			Email:        creds.Trial.Email,
			Password:     creds.Password,
			TrialEndDate: creds.Trial.TrialEndDate,
			LoginURL:     trialLoginURL,
		},
	})
}

func (h *Handler) ListDemos(w http.ResponseWriter, r *http.Request) {
	demos, err := h.service.Demos(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.OK(w, "", respond.Fields{"count": len(demos), "demos": demos})
}

func (h *Handler) ListTrials(w http.ResponseWriter, r *http.Request) {
	trials, err := h.service.Trials(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.OK(w, "", respond.Fields{"count": len(trials), "trials": trials})
}

// Form clients may send extra fields, so unknown keys are ignored here.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidJSON
	}
	return nil
}
