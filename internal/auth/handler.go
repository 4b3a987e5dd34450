package auth

import (
	"encoding/json"
	"net/http"

	"idcard-portal/internal/apperr"
	"idcard-portal/internal/respond"
)

const maxJSONBodyBytes = 1 << 20

var errInvalidJSON = apperr.Validation("Invalid JSON body")

type Handler struct {
	service   *Service
	debugEcho bool
}

// NewHandler builds the auth endpoints. debugEcho adds the issued OTP to the
// request-otp response and must stay off outside development.
func NewHandler(service *Service, debugEcho bool) *Handler {
	return &Handler{service: service, debugEcho: debugEcho}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type requestOTPRequest struct {
	Mobile string `json:"mobile"`
}

type verifyOTPRequest struct {
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeJSON(w, r, &body); err != nil {
		respond.Error(w, err)
		return
	}

	user, token, err := h.service.LoginWithPassword(r.Context(), PasswordLogin{
		Email:    body.Email,
		Password: body.Password,
		Role:     body.Role,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.OK(w, "Login successful", respond.Fields{
		"user":  user.passwordLoginView(),
		"token": token,
	})
}

func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var body requestOTPRequest
	if err := decodeJSON(w, r, &body); err != nil {
		respond.Error(w, err)
		return
	}

	_, code, err := h.service.RequestOTP(r.Context(), body.Mobile)
	if err != nil {
		respond.Error(w, err)
		return
	}

	fields := respond.Fields{}
	if h.debugEcho {
		fields["debug_otp"] = code
	}
	respond.OK(w, "OTP sent successfully", fields)
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body verifyOTPRequest
	if err := decodeJSON(w, r, &body); err != nil {
		respond.Error(w, err)
		return
	}

	user, token, err := h.service.VerifyOTP(r.Context(), body.Mobile, body.OTP)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.OK(w, "Login successful", respond.Fields{
		"user":  user.mobileLoginView(),
		"token": token,
	})
}

func (h *Handler) Telegram(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var assertion Assertion
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&assertion); err != nil {
		respond.Error(w, errInvalidJSON)
		return
	}

	user, token, err := h.service.LoginWithTelegram(r.Context(), assertion)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.OK(w, "Telegram login successful", respond.Fields{
		"user":  user.telegramLoginView(),
		"token": token,
	})
}

// Profile expects SessionMiddleware to have resolved the caller.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respond.Error(w, ErrAuthRequired)
		return
	}

	respond.OK(w, "", respond.Fields{"user": user.profileView()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errInvalidJSON
	}
	return nil
}
