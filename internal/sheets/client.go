// Package sheets talks to the spreadsheet web app that backs the admin
// dashboard. Every call is a single POST of {action, payload}.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Action string

const (
	ActionLogin       Action = "LOGIN"
	ActionGetAllData  Action = "GET_ALL_DATA"
	ActionAddEmployee Action = "ADD_EMPLOYEE"
	ActionAddClient   Action = "ADD_CLIENT"
	ActionUpdateUser  Action = "UPDATE_USER"
)

const maxReplyBytes = 4 << 20

func (a Action) Known() bool {
	switch a {
	case ActionLogin, ActionGetAllData, ActionAddEmployee, ActionAddClient, ActionUpdateUser:
		return true
	}
	return false
}

// Reply is the web app's answer. Raw holds the body exactly as received so
// it can be relayed unchanged.
type Reply struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(rawURL string) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse sheets url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return nil, fmt.Errorf("invalid sheets url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("sheets url is missing a host")
	}

	return &Client{
		endpoint: parsed.String(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Do sends action with payload and decodes the reply. Text/plain keeps the
// call a simple request, which the web app requires.
func (c *Client) Do(ctx context.Context, action Action, payload json.RawMessage) (Reply, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	body, err := json.Marshal(struct {
		Action  Action          `json:"action"`
		Payload json.RawMessage `json:"payload"`
	}{Action: action, Payload: payload})
	if err != nil {
		return Reply{}, fmt.Errorf("encode sheets request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("build sheets request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("sheets request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Reply{}, fmt.Errorf("HTTP Error: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return Reply{}, fmt.Errorf("read sheets response: %w", err)
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return Reply{}, fmt.Errorf("decode sheets response: %w", err)
	}
	reply.Raw = raw

	return reply, nil
}
