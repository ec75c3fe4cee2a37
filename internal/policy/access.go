package policy

import (
	"github.com/prn-tf/meridian-accounts/internal/domain"
)

// Request describes an operation awaiting an access decision.
type Request struct {
	// Op is the operation kind.
	Op Operation

	// TargetUsername names the user being operated on. Empty for group
	// operations and listings.
	TargetUsername string

	// GrantSuperuser is true when the payload sets is_superuser=true on
	// the target.
	GrantSuperuser bool
}

// AccessController decides ALLOW/DENY for each operation kind given the
// caller's identity and privilege flag. It is a pure function over its
// inputs; a nil return means ALLOW, an *domain.AccessDeniedError means
// DENY.
type AccessController struct{}

// NewAccessController creates an AccessController.
func NewAccessController() *AccessController {
	return &AccessController{}
}

// Authorize applies the access rules in priority order:
//
//  1. The caller must be authenticated and active.
//  2. Group operations require superuser privilege.
//  3. User create/delete require superuser privilege.
//  4. User edit is allowed for a superuser or for the target itself.
//  5. Even on self-edit, a regular user may not grant themselves
//     superuser privilege.
func (AccessController) Authorize(caller domain.Caller, req Request) error {
	if !caller.IsAuthenticated || !caller.IsActive {
		return domain.DeniedUnauthenticated(MsgLoginRequired)
	}

	switch req.Op {
	case OpListUsers:
		return nil

	case OpListGroups, OpCreateGroup, OpEditGroup:
		if !caller.IsSuperuser {
			return domain.Denied(MsgSuperuserRequiredGroup)
		}
		return nil

	case OpDeleteGroup:
		if !caller.IsSuperuser {
			return domain.Denied(MsgSuperuserRequiredDeleteGroup)
		}
		return nil

	case OpCreateUser:
		if !caller.IsSuperuser {
			return domain.Denied(MsgSuperuserRequiredUser)
		}
		return nil

	case OpDeleteUser:
		if !caller.IsSuperuser {
			return domain.Denied(MsgSuperuserRequiredDeleteUser)
		}
		return nil

	case OpEditUser:
		if !caller.IsSuperuser && !caller.IsSelf(req.TargetUsername) {
			return domain.Denied(MsgSuperuserRequiredUser)
		}
		if !caller.IsSuperuser && req.GrantSuperuser {
			return domain.Denied(MsgSelfPromotion)
		}
		return nil

	default:
		return domain.Denied(MsgSuperuserRequiredUser)
	}
}
