package policy

import (
	"context"

	"github.com/prn-tf/meridian-accounts/internal/domain"
)

// SuperuserCounter reports how many active superusers exist besides the
// named user. Implementations must read current repository state at
// decision time; the engine runs the check and the subsequent commit
// inside one transaction so the count cannot go stale between the two.
type SuperuserCounter interface {
	CountActiveSuperusers(ctx context.Context, excludeUsername string) (int64, error)
}

// ProposedState carries the post-mutation values the guard must judge.
type ProposedState struct {
	// IsActive is the target's active flag after the mutation.
	IsActive bool

	// IsSuperuser is the target's privilege flag after the mutation.
	IsSuperuser bool

	// Delete is true when the target is being removed entirely.
	Delete bool
}

// AdminGuard blocks any transition that would leave the system without an
// active superuser. Demotion, deletion, and deactivation all count:
// deactivating an account blocks its authentication just as surely as
// deleting it.
type AdminGuard struct {
	counter SuperuserCounter
}

// NewAdminGuard creates a guard backed by the given counter.
func NewAdminGuard(counter SuperuserCounter) *AdminGuard {
	return &AdminGuard{counter: counter}
}

// CheckSafe returns nil when the proposed transition preserves
// administrator coverage, or an *domain.AccessDeniedError when the target
// is the last active superuser and the transition would remove it. A
// denial never mutates storage.
func (g *AdminGuard) CheckSafe(ctx context.Context, target *domain.User, proposed ProposedState) error {
	if !target.IsActiveSuperuser() {
		return nil
	}

	losingCoverage := proposed.Delete || !proposed.IsSuperuser || !proposed.IsActive
	if !losingCoverage {
		return nil
	}

	others, err := g.counter.CountActiveSuperusers(ctx, target.Username)
	if err != nil {
		return err
	}
	if others == 0 {
		return domain.Denied(MsgLastSuperuser)
	}
	return nil
}
