package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/repository"
)

// groupRepository implements repository.GroupRepository for PostgreSQL.
type groupRepository struct {
	db *DB
}

// NewGroupRepository creates a new PostgreSQL group repository.
func NewGroupRepository(db *DB) repository.GroupRepository {
	return &groupRepository{db: db}
}

// Create creates a new group and its memberships.
func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	query := `
		INSERT INTO groups (name, created_at, updated_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.q(ctx).QueryRow(ctx, query,
		group.Name,
		group.CreatedAt,
		group.UpdatedAt,
	).Scan(&group.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: name %q", domain.ErrGroupAlreadyExists, group.Name)
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	return r.replaceMembers(ctx, group.ID, group.Members)
}

// GetByName retrieves a group by name, members included.
func (r *groupRepository) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	query := `SELECT id, name, created_at, updated_at FROM groups WHERE name = $1`

	group := &domain.Group{}
	err := r.db.q(ctx).QueryRow(ctx, query, name).Scan(
		&group.ID,
		&group.Name,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group by name: %w", err)
	}

	members, err := r.members(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	group.Members = members

	return group, nil
}

// List returns all groups with pagination, members included.
func (r *groupRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Group], error) {
	var total int64
	if err := r.db.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM groups`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count groups: %w", err)
	}

	query := `SELECT id, name, created_at, updated_at FROM groups ORDER BY name LIMIT $1 OFFSET $2`

	rows, err := r.db.q(ctx).Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		group := &domain.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	for _, group := range groups {
		members, err := r.members(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		group.Members = members
	}

	return &repository.ListResult[domain.Group]{
		Items:  groups,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Update renames the group and replaces its membership wholesale.
func (r *groupRepository) Update(ctx context.Context, group *domain.Group) error {
	group.UpdatedAt = time.Now().UTC()

	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE groups SET name = $1, updated_at = $2 WHERE id = $3`,
		group.Name, group.UpdatedAt, group.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: name %q", domain.ErrGroupAlreadyExists, group.Name)
		}
		return fmt.Errorf("failed to update group: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}

	return r.replaceMembers(ctx, group.ID, group.Members)
}

// Delete deletes a group by name. Memberships cascade.
func (r *groupRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db.q(ctx).Exec(ctx, `DELETE FROM groups WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}

	return nil
}

// ExistsByName checks if a group with the given name exists.
func (r *groupRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.q(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM groups WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check group existence: %w", err)
	}
	return exists, nil
}

// members returns the usernames of a group's members, sorted.
func (r *groupRepository) members(ctx context.Context, groupID int64) ([]string, error) {
	query := `
		SELECT u.username
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY u.username
	`

	rows, err := r.db.q(ctx).Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, username)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group members: %w", err)
	}

	return members, nil
}

// replaceMembers replaces a group's membership wholesale. Callers validate
// member usernames before writing.
func (r *groupRepository) replaceMembers(ctx context.Context, groupID int64, usernames []string) error {
	if _, err := r.db.q(ctx).Exec(ctx, `DELETE FROM group_members WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("failed to clear group members: %w", err)
	}

	for _, username := range usernames {
		_, err := r.db.q(ctx).Exec(ctx,
			`INSERT INTO group_members (group_id, user_id) SELECT $1, id FROM users WHERE username = $2`,
			groupID, username,
		)
		if err != nil {
			return fmt.Errorf("failed to add group member %q: %w", username, err)
		}
	}

	return nil
}

// Ensure groupRepository implements repository.GroupRepository.
var _ repository.GroupRepository = (*groupRepository)(nil)
