package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hongminglow/syncink-attendance/internal/attendance"
	"github.com/hongminglow/syncink-attendance/internal/auth"
	"github.com/hongminglow/syncink-attendance/internal/http/respond"
	"github.com/hongminglow/syncink-attendance/internal/models/dto"
)

// AuthHandler owns the login and current-user endpoints.
type AuthHandler struct {
	directory *attendance.Directory
	engine    *attendance.Engine
	tokens    *auth.TokenManager
	logger    *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(directory *attendance.Directory, engine *attendance.Engine, tokens *auth.TokenManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{directory: directory, engine: engine, tokens: tokens, logger: logger}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.Handle("GET /me", protect(h.handleMe))
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	user, ok, err := h.directory.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to authenticate")
		return
	}
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Login doubles as a sweep trigger so gaps are filled even without the timer.
	if _, err := h.engine.Sweep(r.Context()); err != nil {
		h.logger.Warn("auto-absent sweep on login failed", "error", err)
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.logger.Error("generate token", "user_id", user.ID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	h.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token, User: user})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, "current user", user)
}
