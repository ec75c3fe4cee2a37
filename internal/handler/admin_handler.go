package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-accounts/internal/auth"
	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/metrics"
	"github.com/prn-tf/meridian-accounts/internal/policy"
	"github.com/prn-tf/meridian-accounts/internal/service"
)

// AdminHandler serves the user and group administration endpoints.
type AdminHandler struct {
	admin   *service.AdminService
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *service.AdminService, m *metrics.Metrics, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:   admin,
		metrics: m,
		logger:  logger.With().Str("handler", "admin").Logger(),
	}
}

// RegisterRoutes mounts the administration routes.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/useradmin/users", h.handleListUsers)
	r.Post("/useradmin/users/new", h.handleCreateUser)
	r.Post("/useradmin/users/edit/{username}", h.handleEditUser)
	r.Post("/useradmin/users/delete/{username}", h.handleDeleteUser)

	r.Get("/useradmin/groups", h.handleListGroups)
	r.Post("/useradmin/groups/new", h.handleCreateGroup)
	r.Post("/useradmin/groups/edit/{name}", h.handleEditGroup)
	r.Post("/useradmin/groups/delete/{name}", h.handleDeleteGroup)
}

// =============================================================================
// Payloads
// =============================================================================

// UserPayload is the request body for user create/edit.
type UserPayload struct {
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Password1   string `json:"password1"`
	Password2   string `json:"password2"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UserView is the response body for a single user.
type UserView struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func userView(u *domain.User) UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		LastLogin:   u.LastLogin,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// GroupPayload is the request body for group create/edit.
type GroupPayload struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// GroupView is the response body for a single group.
type GroupView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func groupView(g *domain.Group) GroupView {
	members := g.Members
	if members == nil {
		members = []string{}
	}
	return GroupView{
		ID:        g.ID,
		Name:      g.Name,
		Members:   members,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

// listResponse is the envelope for paginated listings.
type listResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}

func listParams(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return offset, limit
}

// =============================================================================
// User Endpoints
// =============================================================================

func (h *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	offset, limit := listParams(r)

	out, err := h.admin.ListUsers(r.Context(), caller, service.ListUsersInput{Offset: offset, Limit: limit})
	h.metrics.RecordOperation(policy.OpListUsers.String(), outcomeFor(err))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	users := make([]UserView, 0, len(out.Users))
	for _, u := range out.Users {
		users = append(users, userView(u))
	}
	writeJSON(w, http.StatusOK, listResponse[UserView]{
		Items:  users,
		Total:  out.Total,
		Offset: out.Offset,
		Limit:  out.Limit,
	})
}

func (h *AdminHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())

	var payload UserPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	out, err := h.admin.CreateUser(r.Context(), caller, service.CreateUserInput{
		Username:    payload.Username,
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Password1:   payload.Password1,
		Password2:   payload.Password2,
		IsActive:    payload.IsActive,
		IsSuperuser: payload.IsSuperuser,
	})
	h.metrics.RecordOperation(policy.OpCreateUser.String(), outcomeFor(err))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, userView(out.User))
}

func (h *AdminHandler) handleEditUser(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	username := chi.URLParam(r, "username")

	var payload UserPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	// The path names the target; any username in the payload is ignored.
	out, err := h.admin.EditUser(r.Context(), caller, service.EditUserInput{
		Username:    username,
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Password1:   payload.Password1,
		Password2:   payload.Password2,
		IsActive:    payload.IsActive,
		IsSuperuser: payload.IsSuperuser,
	})
	h.metrics.RecordOperation(policy.OpEditUser.String(), outcomeFor(err))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, userView(out.User))
}

func (h *AdminHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	username := chi.URLParam(r, "username")

	err := h.admin.DeleteUser(r.Context(), caller, service.DeleteUserInput{Username: username})
	h.metrics.RecordOperation(policy.OpDeleteUser.String(), outcomeFor(err))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "username": username})
}

// =============================================================================
// Group Endpoints
// =============================================================================

func (h *AdminHandler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	offset, limit := listParams(r)

	out, err := h.admin.ListGroups(r.Context(), caller, service.ListGroupsInput{Offset: offset, Limit: limit})
	h.metrics.RecordOperation(policy.OpListGroups.String(), outcomeFor(err))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	groups := make([]GroupView, 0, len(out.Groups))
	for _, g := range out.Groups {
		groups = append(groups, groupView(g))
	}
	writeJSON(w, http.StatusOK, listResponse[GroupView]{
		Items:  groups,
		Total:  out.Total,
		Offset: out.Offset,
		Limit:  out.Limit,
	})
}

func (h *AdminHandler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())

	var payload GroupPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	out, err := h.admin.CreateGroup(r.Context(), caller, service.CreateGroupInput{
		Name:    payload.Name,
		Members: payload.Members,
	})
	h.metrics.RecordOperation(policy.OpCreateGroup.String(), outcomeFor(err))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, groupView(out.Group))
}

func (h *AdminHandler) handleEditGroup(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	name := chi.URLParam(r, "name")

	var payload GroupPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	out, err := h.admin.EditGroup(r.Context(), caller, service.EditGroupInput{
		Name:    name,
		NewName: payload.Name,
		Members: payload.Members,
	})
	h.metrics.RecordOperation(policy.OpEditGroup.String(), outcomeFor(err))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, groupView(out.Group))
}

func (h *AdminHandler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	name := chi.URLParam(r, "name")

	err := h.admin.DeleteGroup(r.Context(), caller, service.DeleteGroupInput{Name: name})
	h.metrics.RecordOperation(policy.OpDeleteGroup.String(), outcomeFor(err))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "name": name})
}
