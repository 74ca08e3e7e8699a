package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hongminglow/syncink-attendance/internal/attendance"
	"github.com/hongminglow/syncink-attendance/internal/http/respond"
	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/models/dto"
)

// UserHandler manages accounts. Everything except reading yourself is admin-only.
type UserHandler struct {
	directory *attendance.Directory
	logger    *slog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(directory *attendance.Directory, logger *slog.Logger) *UserHandler {
	return &UserHandler{directory: directory, logger: logger}
}

// Register attaches the routes to the mux.
func (h *UserHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("GET /users", protect(h.handleList))
	mux.Handle("POST /users", protect(h.handleCreate))
	mux.Handle("GET /users/{id}", protect(h.handleGet))
	mux.Handle("PUT /users/{id}", protect(h.handleUpdate))
	mux.Handle("DELETE /users/{id}", protect(h.handleDelete))
}

func (h *UserHandler) admin(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := caller(w, r)
	if !ok {
		return models.User{}, false
	}
	if !user.Role.CanManageUsers() {
		respond.Error(w, http.StatusForbidden, "not authorized to manage users")
		return models.User{}, false
	}
	return user, true
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	if !user.Role.CanViewAll() {
		respond.Error(w, http.StatusForbidden, "not authorized to list users")
		return
	}
	users, err := h.directory.ListUsers(r.Context())
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to list users")
		return
	}
	respond.JSON(w, http.StatusOK, "users", users)
}

func (h *UserHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.admin(w, r); !ok {
		return
	}
	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.directory.CreateUser(r.Context(), attendance.NewUser{
		Email:    req.Email,
		Name:     req.Name,
		Role:     role,
		Password: req.Password,
	})
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to create user")
		return
	}
	respond.JSON(w, http.StatusCreated, "user created", created)
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if id != user.ID && !user.Role.CanViewAll() {
		respond.Error(w, http.StatusForbidden, "not authorized to view other users")
		return
	}
	found, err := h.directory.GetUser(r.Context(), id)
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to load user")
		return
	}
	respond.JSON(w, http.StatusOK, "user", found)
}

func (h *UserHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.admin(w, r); !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	upd := attendance.UserUpdate{Email: req.Email, Name: req.Name, Password: req.Password}
	if req.Role != nil {
		role, err := models.ParseRole(*req.Role)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		upd.Role = &role
	}
	updated, err := h.directory.UpdateUser(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to update user")
		return
	}
	respond.JSON(w, http.StatusOK, "user updated", updated)
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.admin(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if id == admin.ID {
		respond.Error(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := h.directory.DeleteUser(r.Context(), id); err != nil {
		respond.Failure(w, h.logger, err, "failed to delete user")
		return
	}
	respond.JSON(w, http.StatusOK, "user deleted", nil)
}
