package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/policy"
	"github.com/prn-tf/meridian-accounts/internal/repository"
)

// AdminService handles user and group administration. Every operation takes
// the caller's identity and enforces access control, field validation, and
// the last-superuser invariant before touching the repositories.
type AdminService struct {
	userRepo  repository.UserRepository
	groupRepo repository.GroupRepository
	tx        repository.TxManager
	access    *policy.AccessController
	guard     *policy.AdminGuard
	hasher    domain.Hasher
	logger    zerolog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	userRepo repository.UserRepository,
	groupRepo repository.GroupRepository,
	tx repository.TxManager,
	hasher domain.Hasher,
	logger zerolog.Logger,
) *AdminService {
	return &AdminService{
		userRepo:  userRepo,
		groupRepo: groupRepo,
		tx:        tx,
		access:    policy.NewAccessController(),
		guard:     policy.NewAdminGuard(userRepo),
		hasher:    hasher,
		logger:    logger.With().Str("service", "admin").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// ListUsersInput contains the data needed to list users.
type ListUsersInput struct {
	Offset int
	Limit  int
}

// ListUsersOutput contains the result of listing users.
type ListUsersOutput struct {
	Users  []*domain.User
	Total  int64
	Offset int
	Limit  int
}

// CreateUserInput contains the data needed to create a user.
type CreateUserInput struct {
	Username    string
	FirstName   string
	LastName    string
	Password1   string
	Password2   string
	IsActive    bool
	IsSuperuser bool
}

// CreateUserOutput contains the result of creating a user.
type CreateUserOutput struct {
	User *domain.User
}

// EditUserInput contains the replacement state for an existing user.
// Username names the target and is immutable. IsActive and IsSuperuser are
// honored only when the caller is a superuser; a self-editing regular user
// keeps their current flags.
type EditUserInput struct {
	Username    string
	FirstName   string
	LastName    string
	Password1   string
	Password2   string
	IsActive    bool
	IsSuperuser bool
}

// EditUserOutput contains the result of editing a user.
type EditUserOutput struct {
	User *domain.User
}

// DeleteUserInput contains the data needed to delete a user.
type DeleteUserInput struct {
	Username string
}

// =============================================================================
// User Operations
// =============================================================================

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func normalizeListOptions(offset, limit int) repository.ListOptions {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Offset: offset, Limit: limit}
}

// ListUsers returns all users. Any authenticated active caller may list.
func (s *AdminService) ListUsers(ctx context.Context, caller domain.Caller, input ListUsersInput) (*ListUsersOutput, error) {
	if err := s.access.Authorize(caller, policy.Request{Op: policy.OpListUsers}); err != nil {
		return nil, err
	}

	result, err := s.userRepo.List(ctx, normalizeListOptions(input.Offset, input.Limit))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListUsersOutput{
		Users:  result.Items,
		Total:  result.Total,
		Offset: result.Offset,
		Limit:  result.Limit,
	}, nil
}

// CreateUser creates a new user. Superusers only.
func (s *AdminService) CreateUser(ctx context.Context, caller domain.Caller, input CreateUserInput) (*CreateUserOutput, error) {
	if err := s.access.Authorize(caller, policy.Request{Op: policy.OpCreateUser}); err != nil {
		return nil, err
	}

	fields := domain.FieldErrors{}
	policy.ValidateIdentifier(input.Username, "username", fields)
	change := policy.ValidatePassword(input.Password1, input.Password2, true, fields)

	if policy.ValidIdentifier(input.Username) {
		exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
		if err != nil {
			s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to check username existence")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if exists {
			fields.Add("username", policy.MsgDuplicateUsername)
		}
	}

	if err := fields.AsError(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(change.Plaintext)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user := domain.NewUser(input.Username, hash)
	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.IsActive = input.IsActive
	user.IsSuperuser = input.IsSuperuser

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			// Lost a race with a concurrent create.
			fields.Add("username", policy.MsgDuplicateUsername)
			return nil, fields.AsError()
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("caller", caller.Username).
		Str("username", user.Username).
		Bool("superuser", user.IsSuperuser).
		Msg("user created")

	return &CreateUserOutput{User: user}, nil
}

// EditUser replaces a user's editable state. Superusers may edit anyone;
// regular users may edit only themselves and cannot change their flags.
// Demoting or deactivating the last active superuser is refused.
func (s *AdminService) EditUser(ctx context.Context, caller domain.Caller, input EditUserInput) (*EditUserOutput, error) {
	err := s.access.Authorize(caller, policy.Request{
		Op:             policy.OpEditUser,
		TargetUsername: input.Username,
		GrantSuperuser: input.IsSuperuser,
	})
	if err != nil {
		return nil, err
	}

	fields := domain.FieldErrors{}
	change := policy.ValidatePassword(input.Password1, input.Password2, false, fields)
	if err := fields.AsError(); err != nil {
		return nil, err
	}

	var hash string
	if change.Set {
		hash, err = s.hasher.Hash(change.Plaintext)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to hash password")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
	}

	var user *domain.User
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, err = s.userRepo.GetByUsername(ctx, input.Username)
		if err != nil {
			return err
		}

		// Flags from the payload apply only when the caller is a superuser.
		isActive := user.IsActive
		isSuperuser := user.IsSuperuser
		if caller.IsSuperuser {
			isActive = input.IsActive
			isSuperuser = input.IsSuperuser
		}

		proposed := policy.ProposedState{IsActive: isActive, IsSuperuser: isSuperuser}
		if err := s.guard.CheckSafe(ctx, user, proposed); err != nil {
			return err
		}

		user.FirstName = input.FirstName
		user.LastName = input.LastName
		user.IsActive = isActive
		user.IsSuperuser = isSuperuser
		if change.Set {
			user.PasswordHash = hash
		}

		return s.userRepo.Update(ctx, user)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound),
			domain.IsAccessDenied(err),
			domain.IsValidation(err):
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to edit user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("caller", caller.Username).
		Str("username", user.Username).
		Msg("user updated")

	return &EditUserOutput{User: user}, nil
}

// DeleteUser deletes a user. Superusers only. Deleting the last active
// superuser is refused.
func (s *AdminService) DeleteUser(ctx context.Context, caller domain.Caller, input DeleteUserInput) error {
	if err := s.access.Authorize(caller, policy.Request{Op: policy.OpDeleteUser, TargetUsername: input.Username}); err != nil {
		return err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.GetByUsername(ctx, input.Username)
		if err != nil {
			return err
		}

		if err := s.guard.CheckSafe(ctx, user, policy.ProposedState{Delete: true}); err != nil {
			return err
		}

		// Group memberships cascade with the row.
		return s.userRepo.Delete(ctx, input.Username)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound), domain.IsAccessDenied(err):
			return err
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to delete user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("caller", caller.Username).
		Str("username", input.Username).
		Msg("user deleted")

	return nil
}
