// Package policy implements the account-administration rules for Meridian
// Accounts: who may perform which mutation, and the invariants that must
// hold before and after every mutation. Everything here is a pure decision
// function over current state; nothing in this package writes to storage.
package policy

// Operation identifies a kind of account mutation or read.
type Operation int

const (
	// OpListUsers lists user accounts. Requires an authenticated caller.
	OpListUsers Operation = iota

	// OpCreateUser creates a user account. Requires a superuser.
	OpCreateUser

	// OpEditUser edits a user account. Requires a superuser, or the
	// target account itself.
	OpEditUser

	// OpDeleteUser deletes a user account. Requires a superuser.
	OpDeleteUser

	// OpListGroups lists groups. Requires a superuser.
	OpListGroups

	// OpCreateGroup creates a group. Requires a superuser.
	OpCreateGroup

	// OpEditGroup edits a group. Requires a superuser.
	OpEditGroup

	// OpDeleteGroup deletes a group. Requires a superuser.
	OpDeleteGroup
)

// String returns the operation name used in logs and metrics.
func (op Operation) String() string {
	switch op {
	case OpListUsers:
		return "list_users"
	case OpCreateUser:
		return "create_user"
	case OpEditUser:
		return "edit_user"
	case OpDeleteUser:
		return "delete_user"
	case OpListGroups:
		return "list_groups"
	case OpCreateGroup:
		return "create_group"
	case OpEditGroup:
		return "edit_group"
	case OpDeleteGroup:
		return "delete_group"
	default:
		return "unknown"
	}
}

// Denial and validation messages. The wording is a compatibility contract
// with the previous implementation of this service; tests match on
// substrings of these.
const (
	// MsgLoginRequired is returned for unauthenticated or inactive callers.
	MsgLoginRequired = "You must be logged in to perform this action."

	// MsgSuperuserRequiredUser is returned when a regular user attempts to
	// create a user or edit somebody else's account.
	MsgSuperuserRequiredUser = "You must be a superuser to add or edit another user."

	// MsgSuperuserRequiredDeleteUser is returned when a regular user
	// attempts to delete an account.
	MsgSuperuserRequiredDeleteUser = "You must be a superuser to delete users."

	// MsgSuperuserRequiredGroup is returned when a regular user attempts
	// to create or edit a group, or to list groups.
	MsgSuperuserRequiredGroup = "You must be a superuser to add or edit a group."

	// MsgSuperuserRequiredDeleteGroup is returned when a regular user
	// attempts to delete a group.
	MsgSuperuserRequiredDeleteGroup = "You must be a superuser to delete groups."

	// MsgSelfPromotion is returned when a regular user tries to grant
	// themselves superuser privilege.
	MsgSelfPromotion = "You cannot make yourself a superuser."

	// MsgLastSuperuser is returned when a mutation would leave the system
	// without an active superuser.
	MsgLastSuperuser = "You cannot remove the last superuser."

	// MsgPasswordMismatch is the field error for unconfirmed passwords.
	MsgPasswordMismatch = "Passwords do not match."

	// MsgPasswordRequired is the field error for a missing password on
	// user creation.
	MsgPasswordRequired = "You must specify a password when creating a new user."

	// MsgDuplicateUsername is the field error for a username collision.
	MsgDuplicateUsername = "User with this Username already exists."

	// MsgDuplicateGroupName is the field error for a group name collision.
	MsgDuplicateGroupName = "Group with this Name already exists."

	// MsgFieldRequired is the field error for an empty required field.
	MsgFieldRequired = "This field is required."
)
