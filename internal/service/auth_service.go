package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/repository"
	"github.com/prn-tf/meridian-accounts/internal/session"
)

// AuthService handles authentication and session management.
type AuthService struct {
	userRepo   repository.UserRepository
	sessions   session.Store
	hasher     domain.Hasher
	sessionTTL time.Duration
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	sessions session.Store,
	hasher domain.Hasher,
	sessionTTL time.Duration,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		sessions:   sessions,
		hasher:     hasher,
		sessionTTL: sessionTTL,
		logger:     logger.With().Str("service", "auth").Logger(),
	}
}

// Authenticate verifies a username/password pair. Inactive users cannot
// authenticate. A successful authentication updates last_login.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to look up user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.hasher.Compare(password, user.PasswordHash); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	now := time.Now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, username, now); err != nil {
		// Best effort; a failed timestamp must not block login.
		s.logger.Warn().Err(err).Str("username", username).Msg("failed to update last login")
	} else {
		user.LastLogin = &now
	}

	return user, nil
}

// Login authenticates the user and creates a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*session.Session, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &session.Session{
		Token:     uuid.New().String(),
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err := s.sessions.Put(ctx, sess); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to store session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("username", username).Msg("user logged in")
	return sess, nil
}

// CallerFromToken resolves a session token to the current caller. The user
// row is re-read on every request so a deactivation takes effect
// immediately; a deactivated user's session is dropped.
func (s *AuthService) CallerFromToken(ctx context.Context, token string) (domain.Caller, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Anonymous(), domain.ErrSessionNotFound
		}
		s.logger.Error().Err(err).Msg("failed to get session")
		return domain.Anonymous(), fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = s.sessions.Delete(ctx, token)
			return domain.Anonymous(), domain.ErrSessionNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", sess.UserID).Msg("failed to load session user")
		return domain.Anonymous(), fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !user.IsActive {
		_ = s.sessions.Delete(ctx, token)
		return domain.Anonymous(), domain.ErrUserInactive
	}

	return domain.CallerFor(user), nil
}

// CallerFromPassword resolves HTTP Basic credentials to a caller.
func (s *AuthService) CallerFromPassword(ctx context.Context, username, password string) (domain.Caller, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return domain.Anonymous(), err
	}
	return domain.CallerFor(user), nil
}

// Logout removes a session. Logging out an unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		s.logger.Error().Err(err).Msg("failed to delete session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return nil
}
