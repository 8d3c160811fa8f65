package users

import "time"

// User is the full directory record. PasswordHash never crosses the package
// boundary: every read operation returns a Summary or Detail projection.
type User struct {
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	JoinedAt     time.Time
	LastLoginAt  time.Time
}

// Summary is the projection attached to messages and user listings.
type Summary struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Detail extends Summary with the bookkeeping timestamps for the
// single-user view.
type Detail struct {
	Summary
	JoinedAt    time.Time `json:"joined_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// RegisterRequest carries the registration payload. Password length is
// capped at 72 bytes, the bcrypt input limit.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,max=50"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"required,max=50"`
}

// LoginRequest carries the login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (u User) summary() Summary {
	return Summary{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}

func (u User) detail() Detail {
	return Detail{
		Summary:     u.summary(),
		JoinedAt:    u.JoinedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
