// Package domain contains the core business entities for Meridian Accounts.
package domain

// Caller is the already-authenticated identity on whose behalf an
// operation runs. It is supplied per-request by the authentication
// boundary and never mutated by the engine.
type Caller struct {
	// UserID is the caller's account ID. Zero for anonymous callers.
	UserID int64

	// Username is the caller's username. Empty for anonymous callers.
	Username string

	// IsAuthenticated indicates the caller presented valid credentials.
	IsAuthenticated bool

	// IsActive indicates the caller's account is active.
	IsActive bool

	// IsSuperuser indicates the caller holds administrator privilege.
	IsSuperuser bool
}

// Anonymous returns a caller representing an unauthenticated request.
func Anonymous() Caller {
	return Caller{}
}

// CallerFor builds a Caller from a user record.
func CallerFor(u *User) Caller {
	return Caller{
		UserID:          u.ID,
		Username:        u.Username,
		IsAuthenticated: true,
		IsActive:        u.IsActive,
		IsSuperuser:     u.IsSuperuser,
	}
}

// IsSelf returns true if the caller is operating on their own account.
func (c Caller) IsSelf(username string) bool {
	return c.IsAuthenticated && c.Username == username
}
