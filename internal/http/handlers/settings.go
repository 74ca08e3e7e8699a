package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hongminglow/syncink-attendance/internal/attendance"
	"github.com/hongminglow/syncink-attendance/internal/http/respond"
	"github.com/hongminglow/syncink-attendance/internal/models"
)

// SettingsHandler exposes the global attendance policy.
type SettingsHandler struct {
	settings *attendance.SettingsService
	logger   *slog.Logger
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(settings *attendance.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// Register attaches the routes to the mux.
func (h *SettingsHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("GET /settings", protect(h.handleGet))
	mux.Handle("PUT /settings", protect(h.handlePut))
}

func (h *SettingsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to load settings")
		return
	}
	respond.JSON(w, http.StatusOK, "settings", settings)
}

func (h *SettingsHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	if !user.Role.CanManageSettings() {
		respond.Error(w, http.StatusForbidden, "not authorized to change settings")
		return
	}
	var body models.AttendanceSettings
	if !decodeJSON(w, r, &body) {
		return
	}
	updated, err := h.settings.Update(r.Context(), body)
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to update settings")
		return
	}
	h.logger.Info("settings updated", "by", user.ID)
	respond.JSON(w, http.StatusOK, "settings updated", updated)
}
