// Package respond writes the uniform {success, message, ...data} envelope
// used by every API endpoint.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/getsentry/sentry-go"

	"idcard-portal/internal/apperr"
)

// Fields are merged into the top level of the envelope next to success and message.
type Fields map[string]any

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func OK(w http.ResponseWriter, message string, fields Fields) {
	write(w, http.StatusOK, true, message, fields)
}

func Fail(w http.ResponseWriter, status int, message string) {
	write(w, status, false, message, nil)
}

// Error converts err into a failure envelope. Errors outside the apperr
// taxonomy are reported to Sentry and hidden behind a generic 500.
func Error(w http.ResponseWriter, err error) {
	if appErr, ok := apperr.As(err); ok && appErr.Kind != apperr.KindInternal {
		Fail(w, appErr.Status(), appErr.Message)
		return
	}

	sentry.CaptureException(err)
	Fail(w, http.StatusInternalServerError, "internal server error")
}

func write(w http.ResponseWriter, status int, success bool, message string, fields Fields) {
	body := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = success
	if message != "" || !success {
		body["message"] = message
	}

	JSON(w, status, body)
}
