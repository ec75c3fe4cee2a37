// Package integration provides end-to-end tests for the Meridian Accounts
// HTTP API. The full stack runs in-process against an in-memory SQLite
// database, so the tests need no external services.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/meridian-accounts/internal/auth"
	"github.com/prn-tf/meridian-accounts/internal/bootstrap"
	"github.com/prn-tf/meridian-accounts/internal/handler"
	"github.com/prn-tf/meridian-accounts/internal/lock"
	"github.com/prn-tf/meridian-accounts/internal/metrics"
	"github.com/prn-tf/meridian-accounts/internal/pkg/crypto"
	"github.com/prn-tf/meridian-accounts/internal/repository/sqlite"
	"github.com/prn-tf/meridian-accounts/internal/service"
	"github.com/prn-tf/meridian-accounts/internal/session"
)

const (
	adminUsername = "admin"
	adminPassword = "bootstrap-secret"
)

// newTestServer boots the full stack on an in-memory database and seeds
// the bootstrap administrator.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(":memory:"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	userRepo := sqlite.NewUserRepository(db)
	groupRepo := sqlite.NewGroupRepository(db)

	hasher := crypto.NewBcryptHasher(4) // lowest cost, tests only
	seeder := bootstrap.NewSeeder(userRepo, db, hasher, lock.NewMemoryLocker(), logger)
	require.NoError(t, seeder.EnsureAdmin(ctx, adminUsername, adminPassword))

	sessions := session.NewMemoryStore()
	t.Cleanup(func() { _ = sessions.Close() })

	adminService := service.NewAdminService(userRepo, groupRepo, db, hasher, logger)
	authService := service.NewAuthService(userRepo, sessions, hasher, time.Hour, logger)

	m := metrics.New()
	router := handler.NewRouter(handler.RouterConfig{
		AdminHandler:   handler.NewAdminHandler(adminService, m, logger),
		AuthHandler:    handler.NewAuthHandler(authService, m, false, logger),
		AuthMiddleware: auth.NewMiddleware(authService, logger).Handler,
		MetricsHandler: m.Handler(),
		Health:         db,
		Logger:         logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// login authenticates and returns the session cookie.
func login(t *testing.T, srv *httptest.Server, username, password string) *http.Cookie {
	t.Helper()

	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/accounts/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in login response")
	return nil
}

// doJSON sends an authenticated JSON request and decodes the response body.
func doJSON(t *testing.T, srv *httptest.Server, cookie *http.Cookie, method, path string, payload, out any) int {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type userView struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

type groupView struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type listView[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

type errorView struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

func userPayload(username, password string, superuser bool) map[string]any {
	return map[string]any{
		"username":     username,
		"password1":    password,
		"password2":    password,
		"is_active":    true,
		"is_superuser": superuser,
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginLogout(t *testing.T) {
	srv := newTestServer(t)

	t.Run("valid login sets cookie", func(t *testing.T) {
		cookie := login(t, srv, adminUsername, adminPassword)
		require.NotEmpty(t, cookie.Value)
	})

	t.Run("bad password rejected", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"username": adminUsername, "password": "wrong"})
		resp, err := http.Post(srv.URL+"/accounts/login", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		cookie := login(t, srv, adminUsername, adminPassword)

		status := doJSON(t, srv, cookie, http.MethodPost, "/accounts/logout", nil, nil)
		require.Equal(t, http.StatusOK, status)

		status = doJSON(t, srv, cookie, http.MethodGet, "/useradmin/users", nil, nil)
		require.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestUserLifecycle(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, adminUsername, adminPassword)

	t.Run("unauthenticated listing rejected", func(t *testing.T) {
		status := doJSON(t, srv, nil, http.MethodGet, "/useradmin/users", nil, nil)
		require.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("create user", func(t *testing.T) {
		var created userView
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/new",
			userPayload("jsmith", "letmein", false), &created)
		require.Equal(t, http.StatusCreated, status)
		require.Equal(t, "jsmith", created.Username)
		require.True(t, created.IsActive)
		require.False(t, created.IsSuperuser)
	})

	t.Run("duplicate username reported per field", func(t *testing.T) {
		var errResp errorView
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/new",
			userPayload("jsmith", "other", false), &errResp)
		require.Equal(t, http.StatusBadRequest, status)
		require.Contains(t, errResp.Fields["username"], "User with this Username already exists.")
	})

	t.Run("invalid username rejected", func(t *testing.T) {
		var errResp errorView
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/new",
			userPayload("bad name", "letmein", false), &errResp)
		require.Equal(t, http.StatusBadRequest, status)
		require.Contains(t, errResp.Fields["username"], "bad name is not allowed")
	})

	t.Run("list includes both users", func(t *testing.T) {
		var list listView[userView]
		status := doJSON(t, srv, admin, http.MethodGet, "/useradmin/users", nil, &list)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, int64(2), list.Total)
	})

	t.Run("regular user cannot create users", func(t *testing.T) {
		user := login(t, srv, "jsmith", "letmein")
		status := doJSON(t, srv, user, http.MethodPost, "/useradmin/users/new",
			userPayload("another", "pw", false), nil)
		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("regular user edits own name but not flags", func(t *testing.T) {
		user := login(t, srv, "jsmith", "letmein")
		var edited userView
		status := doJSON(t, srv, user, http.MethodPost, "/useradmin/users/edit/jsmith",
			map[string]any{"first_name": "John", "is_active": true}, &edited)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "John", edited.FirstName)
		require.True(t, edited.IsActive)
		require.False(t, edited.IsSuperuser)
	})

	t.Run("self promotion rejected", func(t *testing.T) {
		user := login(t, srv, "jsmith", "letmein")
		var errResp errorView
		status := doJSON(t, srv, user, http.MethodPost, "/useradmin/users/edit/jsmith",
			map[string]any{"is_active": true, "is_superuser": true}, &errResp)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "You cannot make yourself a superuser.", errResp.Error)
	})

	t.Run("demoting the only superuser rejected", func(t *testing.T) {
		var errResp errorView
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/edit/"+adminUsername,
			map[string]any{"is_active": true, "is_superuser": false}, &errResp)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "You cannot remove the last superuser.", errResp.Error)
	})

	t.Run("deleting the only superuser rejected", func(t *testing.T) {
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/delete/"+adminUsername, nil, nil)
		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("deactivated user loses access immediately", func(t *testing.T) {
		user := login(t, srv, "jsmith", "letmein")

		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/edit/jsmith",
			map[string]any{"first_name": "John", "is_active": false}, nil)
		require.Equal(t, http.StatusOK, status)

		status = doJSON(t, srv, user, http.MethodGet, "/useradmin/users", nil, nil)
		require.Equal(t, http.StatusUnauthorized, status)

		// Reactivate for the remaining subtests.
		status = doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/edit/jsmith",
			map[string]any{"first_name": "John", "is_active": true}, nil)
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("delete user", func(t *testing.T) {
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/delete/jsmith", nil, nil)
		require.Equal(t, http.StatusOK, status)

		var list listView[userView]
		doJSON(t, srv, admin, http.MethodGet, "/useradmin/users", nil, &list)
		require.Equal(t, int64(1), list.Total)
	})

	t.Run("delete unknown user", func(t *testing.T) {
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/delete/ghost", nil, nil)
		require.Equal(t, http.StatusNotFound, status)
	})
}

func TestGroupLifecycle(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, adminUsername, adminPassword)

	for _, username := range []string{"alice", "bob"} {
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/new",
			userPayload(username, "letmein", false), nil)
		require.Equal(t, http.StatusCreated, status)
	}

	t.Run("create group with members", func(t *testing.T) {
		var created groupView
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/groups/new",
			map[string]any{"name": "analysts", "members": []string{"alice", "bob"}}, &created)
		require.Equal(t, http.StatusCreated, status)
		require.ElementsMatch(t, []string{"alice", "bob"}, created.Members)
	})

	t.Run("unknown member rejected", func(t *testing.T) {
		var errResp errorView
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/groups/new",
			map[string]any{"name": "ghosts", "members": []string{"nobody"}}, &errResp)
		require.Equal(t, http.StatusBadRequest, status)
		require.Contains(t, errResp.Fields["members"], "User nobody does not exist.")
	})

	t.Run("membership replaced wholesale", func(t *testing.T) {
		var edited groupView
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/groups/edit/analysts",
			map[string]any{"name": "analysts", "members": []string{"bob"}}, &edited)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, []string{"bob"}, edited.Members)
	})

	t.Run("rename group", func(t *testing.T) {
		var edited groupView
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/groups/edit/analysts",
			map[string]any{"name": "data-analysts", "members": []string{"bob"}}, &edited)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "data-analysts", edited.Name)

		var list listView[groupView]
		doJSON(t, srv, admin, http.MethodGet, "/useradmin/groups", nil, &list)
		require.Equal(t, int64(1), list.Total)
		require.Equal(t, "data-analysts", list.Items[0].Name)
	})

	t.Run("deleting a member cascades out of the group", func(t *testing.T) {
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/users/delete/bob", nil, nil)
		require.Equal(t, http.StatusOK, status)

		var list listView[groupView]
		doJSON(t, srv, admin, http.MethodGet, "/useradmin/groups", nil, &list)
		require.Empty(t, list.Items[0].Members)
	})

	t.Run("regular user denied group access", func(t *testing.T) {
		user := login(t, srv, "alice", "letmein")
		status := doJSON(t, srv, user, http.MethodGet, "/useradmin/groups", nil, nil)
		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("delete group", func(t *testing.T) {
		status := doJSON(t, srv, admin, http.MethodPost, "/useradmin/groups/delete/data-analysts", nil, nil)
		require.Equal(t, http.StatusOK, status)

		var list listView[groupView]
		doJSON(t, srv, admin, http.MethodGet, "/useradmin/groups", nil, &list)
		require.Equal(t, int64(0), list.Total)
	})
}

func TestBasicAuthFallback(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/useradmin/users", nil)
	require.NoError(t, err)
	req.SetBasicAuth(adminUsername, adminPassword)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBootstrapIdempotent(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(":memory:"), logger)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	userRepo := sqlite.NewUserRepository(db)
	hasher := crypto.NewBcryptHasher(4)

	seeder := bootstrap.NewSeeder(userRepo, db, hasher, lock.NewMemoryLocker(), logger)
	require.NoError(t, seeder.EnsureAdmin(ctx, adminUsername, adminPassword))
	require.NoError(t, seeder.EnsureAdmin(ctx, adminUsername, "different"))

	count, err := userRepo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	user, err := userRepo.GetByUsername(ctx, adminUsername)
	require.NoError(t, err)
	require.True(t, user.IsSuperuser)
	require.NoError(t, hasher.Compare(adminPassword, user.PasswordHash))
}
