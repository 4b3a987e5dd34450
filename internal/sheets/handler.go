package sheets

import (
	"context"
	"encoding/json"
	"net/http"

	"idcard-portal/internal/observability"
	"idcard-portal/internal/respond"
)

const maxJSONBodyBytes = 1 << 20

// Doer is satisfied by *Client.
type Doer interface {
	Do(ctx context.Context, action Action, payload json.RawMessage) (Reply, error)
}

type Handler struct {
	client Doer
	logger *observability.Logger
}

func NewHandler(client Doer, logger *observability.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

type proxyRequest struct {
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// Proxy forwards one dashboard action. Upstream replies are relayed as-is;
// transport failures become a 502 envelope with a "Connection Failed" message.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body proxyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !body.Action.Known() {
		respond.Fail(w, http.StatusBadRequest, "Unknown action")
		return
	}

	reply, err := h.client.Do(r.Context(), body.Action, body.Payload)
	if err != nil {
		h.logger.Warn("sheets_request_failed", map[string]any{
			"action": body.Action,
			"error":  err.Error(),
		})
		respond.Fail(w, http.StatusBadGateway, "Connection Failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(reply.Raw)
}
