// Package domain contains the core business entities for Meridian Accounts.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserInactive indicates the user account is disabled.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ===========================================
	// Group Errors
	// ===========================================

	// ErrGroupNotFound indicates the requested group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrGroupAlreadyExists indicates a group with the same name exists.
	ErrGroupAlreadyExists = errors.New("group already exists")

	// ===========================================
	// Session Errors
	// ===========================================

	// ErrSessionNotFound indicates the session token is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
)

// FieldErrors maps payload field names to their validation messages.
// A single response aggregates every applicable field error.
type FieldErrors map[string][]string

// Add appends a message to the errors for a field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Merge folds another set of field errors into this one.
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, messages := range other {
		fe[field] = append(fe[field], messages...)
	}
}

// Empty returns true if no field has an error.
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// AsError returns a *ValidationError carrying the field errors, or nil
// when the set is empty.
func (fe FieldErrors) AsError() error {
	if fe.Empty() {
		return nil
	}
	return &ValidationError{Fields: fe}
}

// ValidationError reports malformed payload fields. No state change has
// occurred when a ValidationError is returned.
type ValidationError struct {
	Fields FieldErrors
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e.Fields[field], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// AccessDeniedError reports that the caller lacks privilege for the
// operation, or that the operation would violate the last-administrator
// invariant. No state change has occurred when it is returned.
type AccessDeniedError struct {
	// Reason is the human-readable denial message.
	Reason string

	// Unauthenticated marks denials that belong to the redirect-to-login
	// class rather than plain forbidden.
	Unauthenticated bool
}

// Error implements the error interface.
func (e *AccessDeniedError) Error() string {
	return e.Reason
}

// Denied builds an AccessDeniedError for an authenticated caller.
func Denied(reason string) *AccessDeniedError {
	return &AccessDeniedError{Reason: reason}
}

// DeniedUnauthenticated builds an AccessDeniedError of the
// redirect-to-login class.
func DeniedUnauthenticated(reason string) *AccessDeniedError {
	return &AccessDeniedError{Reason: reason, Unauthenticated: true}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAccessDenied reports whether err is an AccessDeniedError.
func IsAccessDenied(err error) bool {
	var ae *AccessDeniedError
	return errors.As(err, &ae)
}
