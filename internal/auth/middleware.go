package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-accounts/internal/domain"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "meridian_session"

// CallerSource resolves request credentials to a caller.
type CallerSource interface {
	// CallerFromToken resolves a session token.
	CallerFromToken(ctx context.Context, token string) (domain.Caller, error)

	// CallerFromPassword resolves HTTP Basic credentials.
	CallerFromPassword(ctx context.Context, username, password string) (domain.Caller, error)
}

// Middleware resolves the caller for each request and stores it in the
// request context. Requests without usable credentials proceed as the
// anonymous caller; access decisions happen in the service layer.
type Middleware struct {
	source CallerSource
	logger zerolog.Logger
}

// NewMiddleware creates the caller-resolution middleware.
func NewMiddleware(source CallerSource, logger zerolog.Logger) *Middleware {
	return &Middleware{
		source: source,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Handler wraps an http.Handler with caller resolution. A session cookie
// takes precedence; HTTP Basic is the fallback for CLI and scripted use.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := domain.Anonymous()

		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			resolved, err := m.source.CallerFromToken(r.Context(), cookie.Value)
			if err == nil {
				caller = resolved
			} else {
				m.logger.Debug().Err(err).Msg("session token rejected")
			}
		} else if username, password, ok := r.BasicAuth(); ok {
			resolved, err := m.source.CallerFromPassword(r.Context(), username, password)
			if err == nil {
				caller = resolved
			} else {
				m.logger.Debug().Err(err).Str("username", username).Msg("basic credentials rejected")
			}
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}
