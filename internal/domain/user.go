// Package domain contains the core business entities for Meridian Accounts.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the account-administration system.
package domain

import (
	"time"
)

// User represents an account on the platform.
// Users are identified by their username, which never changes after creation.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Username is the unique, immutable identifier for login and display.
	Username string `json:"username"`

	// FirstName is the user's given name. Optional.
	FirstName string `json:"first_name"`

	// LastName is the user's family name. Optional.
	LastName string `json:"last_name"`

	// PasswordHash is the one-way hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// IsActive indicates whether the account may authenticate.
	// Inactive users are rejected at the authentication boundary.
	IsActive bool `json:"is_active"`

	// IsSuperuser indicates whether the user has administrative privileges.
	// Superusers manage all accounts and groups. The system guarantees at
	// least one active superuser exists after every committed mutation.
	IsSuperuser bool `json:"is_superuser"`

	// LastLogin is the time of the most recent successful authentication.
	LastLogin *time.Time `json:"last_login,omitempty"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with default values.
func NewUser(username, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsSuperuser:  false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanAuthenticate returns true if the user is allowed to authenticate.
func (u *User) CanAuthenticate() bool {
	return u.IsActive
}

// IsActiveSuperuser returns true if the user counts toward administrator
// coverage.
func (u *User) IsActiveSuperuser() bool {
	return u.IsActive && u.IsSuperuser
}

// Hasher specifies the opaque one-way password hash provider.
// The engine never inspects hashes; it only asks for new ones and for
// comparisons against stored ones.
type Hasher interface {
	// Hash generates the hashed string from plain-text.
	Hash(plain string) (string, error)

	// Compare compares a plain-text password to a stored hash. A non-nil
	// error indicates the comparison failed.
	Compare(plain, hash string) error
}
