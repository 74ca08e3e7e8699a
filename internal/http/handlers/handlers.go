package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hongminglow/syncink-attendance/internal/http/respond"
	"github.com/hongminglow/syncink-attendance/internal/middleware"
	"github.com/hongminglow/syncink-attendance/internal/models"
)

// Protect wraps a handler so it only runs for authenticated callers.
type Protect func(http.HandlerFunc) http.Handler

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			respond.Error(w, http.StatusBadRequest, "request body is required")
			return false
		}
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

// caller returns the authenticated user. Routes are always wrapped by
// Protect, so a missing user means the wiring is broken.
func caller(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return user, ok
}

// scopeUser resolves which user's data the caller may read. Callers without
// CanViewAll are pinned to themselves.
func scopeUser(w http.ResponseWriter, user models.User, requested string) (string, bool) {
	if user.Role.CanViewAll() {
		return requested, true
	}
	if requested != "" && requested != user.ID {
		respond.Error(w, http.StatusForbidden, "not authorized to view other users")
		return "", false
	}
	return user.ID, true
}
