package policy

import (
	"github.com/prn-tf/meridian-accounts/internal/domain"
)

// PasswordChange is the outcome of password-pair validation. When Set is
// true the caller must hash Plaintext via the opaque hash provider before
// persisting; when false the stored hash is left untouched.
type PasswordChange struct {
	Set       bool
	Plaintext string
}

// ValidatePassword applies the password-confirmation rules for user
// payloads and records failures as field errors.
//
// Creating a user requires a non-empty, confirmed password. Editing with
// both fields empty means "no password change requested". Any provided
// pair must match exactly.
func ValidatePassword(password1, password2 string, isNew bool, fe domain.FieldErrors) PasswordChange {
	if password1 == "" && password2 == "" {
		if isNew {
			fe.Add("password1", MsgPasswordRequired)
		}
		return PasswordChange{}
	}

	if password1 != password2 {
		fe.Add("password2", MsgPasswordMismatch)
		return PasswordChange{}
	}

	return PasswordChange{Set: true, Plaintext: password1}
}
