package model

import "time"

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"

	DefaultUserRole = "student"

	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User represents a console user record
type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Role            string    `json:"role"`
	Status          string    `json:"status"`
	CoursesEnrolled int       `json:"courses_enrolled"`
	PhotoURL        string    `json:"photo_url"`
	Provider        string    `json:"provider"`
	JoinedAt        time.Time `json:"joined_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsActive reports whether the account is enabled
func (u *User) IsActive() bool {
	return u.Status != UserStatusInactive
}

// Credential holds the password hash for a password-provider account.
type Credential struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Provider     string `json:"provider"`
}

// Session is an authenticated console session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
