package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/repository"
)

// groupRepository implements repository.GroupRepository for SQLite.
type groupRepository struct {
	db *DB
}

// NewGroupRepository creates a new SQLite group repository.
func NewGroupRepository(db *DB) repository.GroupRepository {
	return &groupRepository{db: db}
}

// Create creates a new group and its memberships.
func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	query := `
		INSERT INTO groups (name, created_at, updated_at)
		VALUES (?, ?, ?)
	`

	result, err := r.db.q(ctx).ExecContext(ctx, query,
		group.Name,
		group.CreatedAt.Format(time.RFC3339),
		group.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: name %q", domain.ErrGroupAlreadyExists, group.Name)
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	group.ID = id

	if err := r.replaceMembers(ctx, group.ID, group.Members); err != nil {
		return err
	}

	return nil
}

// GetByName retrieves a group by name, members included.
func (r *groupRepository) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	query := `SELECT id, name, created_at, updated_at FROM groups WHERE name = ?`

	group := &domain.Group{}
	var createdAt, updatedAt string

	err := r.db.q(ctx).QueryRowContext(ctx, query, name).Scan(
		&group.ID,
		&group.Name,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group by name: %w", err)
	}

	group.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	group.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

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
	if err := r.db.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM groups`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count groups: %w", err)
	}

	query := `SELECT id, name, created_at, updated_at FROM groups ORDER BY name LIMIT ? OFFSET ?`

	rows, err := r.db.q(ctx).QueryContext(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		group := &domain.Group{}
		var createdAt, updatedAt string

		if err := rows.Scan(&group.ID, &group.Name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}

		group.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		group.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
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

	query := `UPDATE groups SET name = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.q(ctx).ExecContext(ctx, query,
		group.Name,
		group.UpdatedAt.Format(time.RFC3339),
		group.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: name %q", domain.ErrGroupAlreadyExists, group.Name)
		}
		return fmt.Errorf("failed to update group: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrGroupNotFound
	}

	return r.replaceMembers(ctx, group.ID, group.Members)
}

// Delete deletes a group by name. Memberships cascade.
func (r *groupRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.q(ctx).ExecContext(ctx, `DELETE FROM groups WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrGroupNotFound
	}

	return nil
}

// ExistsByName checks if a group with the given name exists.
func (r *groupRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.db.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM groups WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check group existence: %w", err)
	}
	return count > 0, nil
}

// members returns the usernames of a group's members, sorted.
func (r *groupRepository) members(ctx context.Context, groupID int64) ([]string, error) {
	query := `
		SELECT u.username
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = ?
		ORDER BY u.username
	`

	rows, err := r.db.q(ctx).QueryContext(ctx, query, groupID)
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

// replaceMembers replaces a group's membership wholesale. Unknown usernames
// are ignored here; callers validate membership before writing.
func (r *groupRepository) replaceMembers(ctx context.Context, groupID int64, usernames []string) error {
	if _, err := r.db.q(ctx).ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ?`, groupID); err != nil {
		return fmt.Errorf("failed to clear group members: %w", err)
	}

	for _, username := range usernames {
		_, err := r.db.q(ctx).ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id) SELECT ?, id FROM users WHERE username = ?`,
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
