package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/policy"
)

// =============================================================================
// Input/Output Structs
// =============================================================================

// ListGroupsInput contains the data needed to list groups.
type ListGroupsInput struct {
	Offset int
	Limit  int
}

// ListGroupsOutput contains the result of listing groups.
type ListGroupsOutput struct {
	Groups []*domain.Group
	Total  int64
	Offset int
	Limit  int
}

// CreateGroupInput contains the data needed to create a group.
type CreateGroupInput struct {
	Name    string
	Members []string
}

// CreateGroupOutput contains the result of creating a group.
type CreateGroupOutput struct {
	Group *domain.Group
}

// EditGroupInput contains the replacement state for an existing group.
// Name names the target; NewName, when non-empty, renames it. Members
// replaces the member set wholesale.
type EditGroupInput struct {
	Name    string
	NewName string
	Members []string
}

// EditGroupOutput contains the result of editing a group.
type EditGroupOutput struct {
	Group *domain.Group
}

// DeleteGroupInput contains the data needed to delete a group.
type DeleteGroupInput struct {
	Name string
}

// =============================================================================
// Group Operations
// =============================================================================

// ListGroups returns all groups. Superusers only.
func (s *AdminService) ListGroups(ctx context.Context, caller domain.Caller, input ListGroupsInput) (*ListGroupsOutput, error) {
	if err := s.access.Authorize(caller, policy.Request{Op: policy.OpListGroups}); err != nil {
		return nil, err
	}

	result, err := s.groupRepo.List(ctx, normalizeListOptions(input.Offset, input.Limit))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list groups")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListGroupsOutput{
		Groups: result.Items,
		Total:  result.Total,
		Offset: result.Offset,
		Limit:  result.Limit,
	}, nil
}

// CreateGroup creates a new group with the given members. Superusers only.
func (s *AdminService) CreateGroup(ctx context.Context, caller domain.Caller, input CreateGroupInput) (*CreateGroupOutput, error) {
	if err := s.access.Authorize(caller, policy.Request{Op: policy.OpCreateGroup}); err != nil {
		return nil, err
	}

	fields := domain.FieldErrors{}
	policy.ValidateIdentifier(input.Name, "name", fields)

	if policy.ValidIdentifier(input.Name) {
		exists, err := s.groupRepo.ExistsByName(ctx, input.Name)
		if err != nil {
			s.logger.Error().Err(err).Str("group", input.Name).Msg("failed to check group existence")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if exists {
			fields.Add("name", policy.MsgDuplicateGroupName)
		}
	}

	if err := s.validateMembers(ctx, input.Members, fields); err != nil {
		return nil, err
	}

	if err := fields.AsError(); err != nil {
		return nil, err
	}

	group := domain.NewGroup(input.Name)
	group.Members = input.Members

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.groupRepo.Create(ctx, group)
	})
	if err != nil {
		if errors.Is(err, domain.ErrGroupAlreadyExists) {
			fields.Add("name", policy.MsgDuplicateGroupName)
			return nil, fields.AsError()
		}
		s.logger.Error().Err(err).Str("group", input.Name).Msg("failed to create group")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("caller", caller.Username).
		Str("group", group.Name).
		Int("members", len(group.Members)).
		Msg("group created")

	return &CreateGroupOutput{Group: group}, nil
}

// EditGroup renames a group and replaces its member set wholesale.
// Superusers only.
func (s *AdminService) EditGroup(ctx context.Context, caller domain.Caller, input EditGroupInput) (*EditGroupOutput, error) {
	if err := s.access.Authorize(caller, policy.Request{Op: policy.OpEditGroup}); err != nil {
		return nil, err
	}

	fields := domain.FieldErrors{}
	renaming := input.NewName != "" && input.NewName != input.Name
	if renaming {
		policy.ValidateIdentifier(input.NewName, "name", fields)

		if policy.ValidIdentifier(input.NewName) {
			exists, err := s.groupRepo.ExistsByName(ctx, input.NewName)
			if err != nil {
				s.logger.Error().Err(err).Str("group", input.NewName).Msg("failed to check group existence")
				return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
			}
			if exists {
				fields.Add("name", policy.MsgDuplicateGroupName)
			}
		}
	}

	if err := s.validateMembers(ctx, input.Members, fields); err != nil {
		return nil, err
	}

	if err := fields.AsError(); err != nil {
		return nil, err
	}

	var group *domain.Group
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		group, err = s.groupRepo.GetByName(ctx, input.Name)
		if err != nil {
			return err
		}

		if renaming {
			group.Name = input.NewName
		}
		group.Members = input.Members

		return s.groupRepo.Update(ctx, group)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrGroupNotFound):
			return nil, err
		case errors.Is(err, domain.ErrGroupAlreadyExists):
			fields.Add("name", policy.MsgDuplicateGroupName)
			return nil, fields.AsError()
		}
		s.logger.Error().Err(err).Str("group", input.Name).Msg("failed to edit group")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("caller", caller.Username).
		Str("group", group.Name).
		Int("members", len(group.Members)).
		Msg("group updated")

	return &EditGroupOutput{Group: group}, nil
}

// DeleteGroup deletes a group. Superusers only.
func (s *AdminService) DeleteGroup(ctx context.Context, caller domain.Caller, input DeleteGroupInput) error {
	if err := s.access.Authorize(caller, policy.Request{Op: policy.OpDeleteGroup}); err != nil {
		return err
	}

	if err := s.groupRepo.Delete(ctx, input.Name); err != nil {
		if errors.Is(err, domain.ErrGroupNotFound) {
			return err
		}
		s.logger.Error().Err(err).Str("group", input.Name).Msg("failed to delete group")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("caller", caller.Username).
		Str("group", input.Name).
		Msg("group deleted")

	return nil
}

// validateMembers adds a field error for each username that does not exist.
func (s *AdminService) validateMembers(ctx context.Context, members []string, fields domain.FieldErrors) error {
	for _, username := range members {
		exists, err := s.userRepo.ExistsByUsername(ctx, username)
		if err != nil {
			s.logger.Error().Err(err).Str("username", username).Msg("failed to check member existence")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if !exists {
			fields.Add("members", fmt.Sprintf("User %s does not exist.", username))
		}
	}
	return nil
}
