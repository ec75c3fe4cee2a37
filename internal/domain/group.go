// Package domain contains the core business entities for Meridian Accounts.
package domain

import (
	"time"
)

// Group represents a named collection of users.
// Membership is an unordered set of usernames with no duplicates; editing a
// group replaces the member set wholesale rather than patching it.
type Group struct {
	// ID is the unique identifier for the group (auto-generated).
	ID int64 `json:"id"`

	// Name is the unique group name.
	Name string `json:"name"`

	// Members holds the usernames of the group's members. May be empty.
	Members []string `json:"members"`

	// CreatedAt is the timestamp when the group was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the group was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewGroup creates a new empty Group.
func NewGroup(name string) *Group {
	now := time.Now().UTC()
	return &Group{
		Name:      name,
		Members:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasMember returns true if the given username is a member of the group.
func (g *Group) HasMember(username string) bool {
	for _, m := range g.Members {
		if m == username {
			return true
		}
	}
	return false
}
