// Package repository defines data access interfaces for Meridian Accounts.
// These interfaces abstract database operations, allowing for different
// implementations (PostgreSQL, SQLite, in-memory for testing) while keeping
// the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/prn-tf/meridian-accounts/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update updates an existing user, matched by ID.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by username.
	Delete(ctx context.Context, username string) error

	// List returns all users with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Count returns the total number of users.
	Count(ctx context.Context) (int64, error)

	// CountActiveSuperusers returns the number of users with both
	// is_active and is_superuser set, excluding the named user. Callers
	// enforcing the last-administrator invariant must run this inside the
	// same transaction as the mutation it protects.
	CountActiveSuperusers(ctx context.Context, excludeUsername string) (int64, error)

	// UpdateLastLogin records a successful authentication.
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error
}

// =============================================================================
// Group Repository
// =============================================================================

// GroupRepository defines the interface for group data access.
type GroupRepository interface {
	// Create creates a new, empty group.
	Create(ctx context.Context, group *domain.Group) error

	// GetByName retrieves a group by name, members included.
	GetByName(ctx context.Context, name string) (*domain.Group, error)

	// List returns all groups with pagination, members included.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Group], error)

	// Update renames the group (matched by ID) and replaces its member
	// set wholesale with group.Members. Old members absent from the new
	// list are removed.
	Update(ctx context.Context, group *domain.Group) error

	// Delete deletes a group by name.
	Delete(ctx context.Context, name string) error

	// ExistsByName checks if a group with the given name exists.
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}

// =============================================================================
// Transaction Support
// =============================================================================

// TxManager defines the interface for transaction management. The engine
// wraps invariant checks and their commits in a single transaction so that
// concurrent mutations of the administrator set serialize against each
// other.
type TxManager interface {
	// WithTx executes the given function within a transaction. Repository
	// calls made with the context passed to fn run inside that
	// transaction. If fn returns an error, the transaction is rolled
	// back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
