package leads

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	DemoStatusPending = "pending"

	TrialStatusActive  = "active"
	TrialStatusExpired = "expired"

	TrialPlan       = "free"
	TrialMaxIDCards = 10
	TrialDuration   = 14 * 24 * time.Hour
	notProvided     = "N/A"
	trialLoginURL   = "/login"
)

// Demo is a request for a product demonstration.
type Demo struct {
	ID        string       `json:"id"`
	FullName  string       `json:"fullName"`
	Email     string       `json:"email"`
	Mobile    string       `json:"mobile"`
	City      string       `json:"city"`
	Address   string       `json:"address"`
	IDCards   CardQuantity `json:"idCards"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Trial is a free-trial signup. The login credentials live with the auth
// account referenced by UserID; a Trial never carries a password.
type Trial struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	FullName         string    `json:"fullName"`
	Email            string    `json:"email"`
	Mobile           string    `json:"mobile"`
	OrganizationName string    `json:"organizationName"`
	OrganizationType string    `json:"organizationType"`
	Role             string    `json:"role"`
	Plan             string    `json:"plan"`
	MaxIDCards       int       `json:"maxIdCards"`
	TrialStartDate   time.Time `json:"trialStartDate"`
	TrialEndDate     time.Time `json:"trialEndDate"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

// CardQuantity is the requested number of ID cards. Forms post it either as
// a JSON number or as a string such as "50" or "100-500", so it keeps the
// submitted text.
type CardQuantity string

func (q *CardQuantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*q = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = CardQuantity(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("idCards must be a number or a string: %w", err)
		}
		*q = CardQuantity(n.String())
		return nil
	}
}

type trialLoginView struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Password     string    `json:"password"`
	TrialEndDate time.Time `json:"trialEndDate"`
	LoginURL     string    `json:"loginUrl"`
}
