package auth

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleTrial Role = "trial"
	RoleAdmin Role = "admin"
)

// User is a human principal. At most one of Email, Mobile and TelegramID is
// the identity the record was created from; the others stay empty.
type User struct {
	ID           string
	Email        string
	Mobile       string
	TelegramID   string
	Name         string
	FirstName    string
	LastName     string
	Username     string
	PhotoURL     string
	Role         Role
	Plan         string
	MaxIDCards   int
	PasswordHash string
	SessionToken string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// OTPChallenge proves possession of Mobile until ExpiresAt.
type OTPChallenge struct {
	Mobile    string
	Code      string
	ExpiresAt time.Time
}

// IdentityKind names the field EnsureUser matches on.
type IdentityKind string

const (
	IdentityEmail    IdentityKind = "email"
	IdentityMobile   IdentityKind = "mobile"
	IdentityTelegram IdentityKind = "telegram"
)

type Identity struct {
	Kind  IdentityKind
	Value string
}

// Account is the view handed to other packages that provision logins.
type Account struct {
	ID       string
	Email    string
	Password string
}

type passwordLoginView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

type mobileLoginView struct {
	ID     string `json:"id"`
	Mobile string `json:"mobile"`
	Role   Role   `json:"role"`
}

type telegramLoginView struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
}

type profileView struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	Plan       string `json:"plan"`
	MaxIDCards int    `json:"maxIdCards"`
}

func (u User) passwordLoginView() passwordLoginView {
	return passwordLoginView{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (u User) mobileLoginView() mobileLoginView {
	return mobileLoginView{ID: u.ID, Mobile: u.Mobile, Role: u.Role}
}

func (u User) telegramLoginView() telegramLoginView {
	return telegramLoginView{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username, Role: u.Role}
}

func (u User) profileView() profileView {
	return profileView{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Plan: u.Plan, MaxIDCards: u.MaxIDCards}
}
