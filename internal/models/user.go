package models

import "time"

// User is a registered account. Users never carry copies of their requests;
// the request table is the single source of truth and a user's requests are
// looked up by owner email.
type User struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Name         string     `json:"name" gorm:"not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	IsAdmin      bool       `json:"is_admin"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// Session is a bearer token issued at registration or login
type Session struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Expired reports whether the session is past its expiry
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// RegisterRequest is the request body for account registration
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// UpdateUserRequest is the admin request body for editing an account
type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
