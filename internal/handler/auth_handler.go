package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-accounts/internal/auth"
	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/metrics"
	"github.com/prn-tf/meridian-accounts/internal/service"
)

// AuthHandler serves login and logout.
type AuthHandler struct {
	authService  *service.AuthService
	metrics      *metrics.Metrics
	secureCookie bool
	logger       zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. secure controls the session
// cookie's Secure flag; set it whenever the server terminates TLS.
func NewAuthHandler(authService *service.AuthService, m *metrics.Metrics, secure bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		metrics:      m,
		secureCookie: secure,
		logger:       logger.With().Str("handler", "auth").Logger(),
	}
}

// RegisterRoutes mounts the authentication routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/accounts/login", h.handleLogin)
	r.Post("/accounts/logout", h.handleLogout)
}

// LoginPayload is the request body for login.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sess, err := h.authService.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		h.metrics.RecordLogin(metrics.OutcomeDenied)
		if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrUserInactive) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
			return
		}
		writeError(w, h.logger, err)
		return
	}

	h.metrics.RecordLogin(metrics.OutcomeSuccess)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"username":   sess.Username,
		"expires_at": sess.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	// Expire the cookie either way.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
