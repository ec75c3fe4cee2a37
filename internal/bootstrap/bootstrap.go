// Package bootstrap seeds the initial superuser on first run.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/lock"
	"github.com/prn-tf/meridian-accounts/internal/repository"
)

const (
	lockTTL        = 30 * time.Second
	lockMaxRetries = 5
	lockRetryDelay = 2 * time.Second
)

// Seeder creates the initial superuser when the user table is empty.
type Seeder struct {
	userRepo repository.UserRepository
	tx       repository.TxManager
	hasher   domain.Hasher
	locker   lock.Locker
	logger   zerolog.Logger
}

// NewSeeder creates a new Seeder.
func NewSeeder(
	userRepo repository.UserRepository,
	tx repository.TxManager,
	hasher domain.Hasher,
	locker lock.Locker,
	logger zerolog.Logger,
) *Seeder {
	return &Seeder{
		userRepo: userRepo,
		tx:       tx,
		hasher:   hasher,
		locker:   locker,
		logger:   logger.With().Str("component", "bootstrap").Logger(),
	}
}

// EnsureAdmin creates a superuser with the given credentials if no users
// exist yet. The lock keeps two replicas from both seeding; the count is
// re-read inside the transaction so a lost race is still harmless.
func (s *Seeder) EnsureAdmin(ctx context.Context, username, password string) error {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("no users exist and no bootstrap password configured")
	}

	acquired, err := s.locker.AcquireWithRetry(ctx, lock.Keys.Bootstrap(), lockTTL, lockMaxRetries, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire bootstrap lock: %w", err)
	}
	if !acquired {
		// Another replica is seeding.
		s.logger.Info().Msg("bootstrap lock held elsewhere, skipping")
		return nil
	}
	defer func() {
		if _, err := s.locker.Release(ctx, lock.Keys.Bootstrap()); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release bootstrap lock")
		}
	}()

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		count, err := s.userRepo.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		admin := domain.NewUser(username, hash)
		admin.IsSuperuser = true
		return s.userRepo.Create(ctx, admin)
	})
	if err != nil {
		return fmt.Errorf("failed to seed initial superuser: %w", err)
	}

	s.logger.Info().Str("username", username).Msg("initial superuser created")
	return nil
}
