package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongminglow/syncink-attendance/internal/attendance"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}

// Failure maps a domain error to its HTTP status. Unrecognised errors are
// logged and reported as a generic 500 with the fallback message.
func Failure(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback, "error", err)
		Error(w, status, fallback)
		return
	}
	Error(w, status, err.Error())
}

// Status returns the HTTP status for an attendance error kind.
func Status(err error) int {
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, attendance.ErrDuplicateEntry),
		errors.Is(err, attendance.ErrDuplicatePendingRequest),
		errors.Is(err, attendance.ErrAlreadyReviewed),
		errors.Is(err, attendance.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrInvalidTarget),
		errors.Is(err, attendance.ErrEmptyReason),
		errors.Is(err, attendance.ErrInvalidDate),
		errors.Is(err, attendance.ErrInvalidReport),
		errors.Is(err, attendance.ErrInvalidDecision),
		errors.Is(err, attendance.ErrInvalidSettings),
		errors.Is(err, attendance.ErrRetroactiveDisabled),
		errors.Is(err, attendance.ErrInvalidUser):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("respond: encode payload failed", "error", err)
	}
}
