package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idcard-portal/internal/observability"
)

type stubDoer struct {
	action  Action
	payload json.RawMessage
	reply   Reply
	err     error
}

func (s *stubDoer) Do(_ context.Context, action Action, payload json.RawMessage) (Reply, error) {
	s.action, s.payload = action, payload
	return s.reply, s.err
}

func proxy(t *testing.T, doer Doer, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(doer, observability.NewLoggerTo(io.Discard))
	rec := httptest.NewRecorder()
	h.Proxy(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard", strings.NewReader(body)))
	return rec
}

func TestProxy_RelaysReplyVerbatim(t *testing.T) {
	doer := &stubDoer{reply: Reply{Success: false, Message: "Email exists", Raw: json.RawMessage(`{"success":false,"message":"Email exists"}`)}}

	rec := proxy(t, doer, `{"action":"ADD_EMPLOYEE","payload":{"name":"Ravi"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"success":false,"message":"Email exists"}`, rec.Body.String())
	assert.Equal(t, ActionAddEmployee, doer.action)
	assert.JSONEq(t, `{"name":"Ravi"}`, string(doer.payload))
}

func TestProxy_TransportFailure(t *testing.T) {
	rec := proxy(t, &stubDoer{err: errors.New("dial tcp: timeout")}, `{"action":"GET_ALL_DATA"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Connection Failed: dial tcp: timeout", body["message"])
}

func TestProxy_RejectsUnknownActionAndBadJSON(t *testing.T) {
	doer := &stubDoer{}

	rec := proxy(t, doer, `{"action":"DELETE_SHEET"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown action")

	rec = proxy(t, doer, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, doer.action)
}
