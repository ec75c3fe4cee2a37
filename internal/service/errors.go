// Package service provides business logic services for Meridian Accounts.
package service

import "errors"

// Common service errors.
var (
	ErrInternalError = errors.New("internal server error")
)
