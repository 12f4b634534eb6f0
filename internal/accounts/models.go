package accounts

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

type Type string

const (
	TypeTrial Type = "Trial"
	TypeFull  Type = "Full"
)

// User is a login identity. Each user owns exactly one account.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	AccountID    string    `json:"account_sid" db:"account_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Account is the tenant every call is scoped to.
type Account struct {
	ID           string    `json:"sid" db:"id"`
	FriendlyName string    `json:"friendly_name" db:"friendly_name"`
	Status       Status    `json:"status" db:"status"`
	Type         Type      `json:"type" db:"type"`
	AuthToken    string    `json:"auth_token" db:"auth_token"`
	OwnerUserID  string    `json:"-" db:"owner_user_id"`
	CreatedAt    time.Time `json:"date_created" db:"created_at"`
	UpdatedAt    time.Time `json:"date_updated" db:"updated_at"`
}

// Session is the result of a successful register or login.
type Session struct {
	User    User
	Account Account
	Token   string
	Expires time.Time
}
