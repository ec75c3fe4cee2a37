// Package auth provides caller identification for Meridian Accounts.
package auth

import (
	"context"

	"github.com/prn-tf/meridian-accounts/internal/domain"
)

// callerKey carries the resolved caller through a request context.
type callerKey struct{}

// WithCaller returns a context carrying the caller.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller bound to the context. Requests that never
// passed through the middleware resolve to the anonymous caller.
func CallerFrom(ctx context.Context) domain.Caller {
	if caller, ok := ctx.Value(callerKey{}).(domain.Caller); ok {
		return caller
	}
	return domain.Anonymous()
}
