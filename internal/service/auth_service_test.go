package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/session"
)

func newTestAuthService(users *MockUserRepository, sessions session.Store) *AuthService {
	return NewAuthService(users, sessions, plainHasher{}, time.Hour, zerolog.Nop())
}

func TestAuthService_Authenticate(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{
			name:     "valid credentials",
			username: "bob",
			password: "secret",
		},
		{
			name:     "wrong password",
			username: "bob",
			password: "wrong",
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			username: "ghost",
			password: "secret",
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name:     "inactive user",
			username: "suspended",
			password: "secret",
			wantErr:  domain.ErrUserInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := NewMockUserRepository()
			seedUser(users, "bob", true, false)
			seedUser(users, "suspended", false, false)
			svc := newTestAuthService(users, session.NewMemoryStore())

			user, err := svc.Authenticate(context.Background(), tt.username, tt.password)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Username != tt.username {
				t.Errorf("expected user %q, got %q", tt.username, user.Username)
			}
			if user.LastLogin == nil {
				t.Error("expected last login to be set")
			}
		})
	}
}

func TestAuthService_LoginAndCallerFromToken(t *testing.T) {
	users := NewMockUserRepository()
	seedUser(users, "admin", true, true)
	sessions := session.NewMemoryStore()
	defer sessions.Close()
	svc := newTestAuthService(users, sessions)

	sess, err := svc.Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("expected a session token")
	}
	if !sess.ExpiresAt.After(sess.CreatedAt) {
		t.Error("expected session expiry after creation")
	}

	caller, err := svc.CallerFromToken(context.Background(), sess.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !caller.IsAuthenticated || !caller.IsSuperuser || caller.Username != "admin" {
		t.Errorf("unexpected caller: %+v", caller)
	}
}

func TestAuthService_CallerFromToken_UnknownToken(t *testing.T) {
	svc := newTestAuthService(NewMockUserRepository(), session.NewMemoryStore())

	caller, err := svc.CallerFromToken(context.Background(), "no-such-token")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if caller.IsAuthenticated {
		t.Error("expected anonymous caller")
	}
}

func TestAuthService_CallerFromToken_DeactivatedUser(t *testing.T) {
	users := NewMockUserRepository()
	user := seedUser(users, "bob", true, false)
	sessions := session.NewMemoryStore()
	defer sessions.Close()
	svc := newTestAuthService(users, sessions)

	sess, err := svc.Login(context.Background(), "bob", "secret")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}

	// Deactivation takes effect on the next request and drops the session.
	user.IsActive = false

	if _, err := svc.CallerFromToken(context.Background(), sess.Token); !errors.Is(err, domain.ErrUserInactive) {
		t.Fatalf("expected inactive error, got %v", err)
	}
	if _, err := sessions.Get(context.Background(), sess.Token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected session dropped, got %v", err)
	}
}

func TestAuthService_CallerFromToken_DeletedUser(t *testing.T) {
	users := NewMockUserRepository()
	seedUser(users, "bob", true, false)
	sessions := session.NewMemoryStore()
	defer sessions.Close()
	svc := newTestAuthService(users, sessions)

	sess, err := svc.Login(context.Background(), "bob", "secret")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}

	if err := users.Delete(context.Background(), "bob"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	if _, err := svc.CallerFromToken(context.Background(), sess.Token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestAuthService_CallerFromPassword(t *testing.T) {
	users := NewMockUserRepository()
	seedUser(users, "bob", true, false)
	svc := newTestAuthService(users, session.NewMemoryStore())

	caller, err := svc.CallerFromPassword(context.Background(), "bob", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !caller.IsAuthenticated || caller.Username != "bob" {
		t.Errorf("unexpected caller: %+v", caller)
	}

	if _, err := svc.CallerFromPassword(context.Background(), "bob", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	users := NewMockUserRepository()
	seedUser(users, "bob", true, false)
	sessions := session.NewMemoryStore()
	defer sessions.Close()
	svc := newTestAuthService(users, sessions)

	sess, err := svc.Login(context.Background(), "bob", "secret")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}

	if err := svc.Logout(context.Background(), sess.Token); err != nil {
		t.Fatalf("unexpected logout error: %v", err)
	}
	if _, err := sessions.Get(context.Background(), sess.Token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected session removed, got %v", err)
	}

	// Logging out twice is not an error.
	if err := svc.Logout(context.Background(), sess.Token); err != nil {
		t.Fatalf("unexpected repeat logout error: %v", err)
	}
}
