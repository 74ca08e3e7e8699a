package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hongminglow/syncink-attendance/internal/attendance"
	"github.com/hongminglow/syncink-attendance/internal/http/respond"
	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/models/dto"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

// RequestHandler serves the retroactive correction workflow.
type RequestHandler struct {
	workflow *attendance.Workflow
	logger   *slog.Logger
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(workflow *attendance.Workflow, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{workflow: workflow, logger: logger}
}

// Register attaches the routes to the mux.
func (h *RequestHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("POST /requests", protect(h.handleCreate))
	mux.Handle("GET /requests", protect(h.handleList))
	mux.Handle("GET /requests/{id}", protect(h.handleGet))
	mux.Handle("POST /requests/{id}/review", protect(h.handleReview))
}

func (h *RequestHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req dto.CreateRetroactiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := req.Report()
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.workflow.CreateRequest(r.Context(), user, req.EntryID, req.Reason, report)
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to create request")
		return
	}
	respond.JSON(w, http.StatusCreated, "request submitted", created)
}

func (h *RequestHandler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := storage.RequestFilter{EntryID: q.Get("entryId")}
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseRequestStatus(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}
	requested := q.Get("userId")
	if user.Role.CanReview() {
		filter.UserID = requested
	} else {
		if requested != "" && requested != user.ID {
			respond.Error(w, http.StatusForbidden, "not authorized to view other users")
			return
		}
		filter.UserID = user.ID
	}
	reqs, err := h.workflow.ListRequests(r.Context(), filter)
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to list requests")
		return
	}
	respond.JSON(w, http.StatusOK, "requests", reqs)
}

func (h *RequestHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	req, err := h.workflow.GetRequest(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to load request")
		return
	}
	if !user.Role.CanReview() && req.UserID != user.ID {
		respond.Error(w, http.StatusNotFound, attendance.ErrNotFound.Error())
		return
	}
	respond.JSON(w, http.StatusOK, "request", req)
}

func (h *RequestHandler) handleReview(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var body dto.ReviewRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	decision, err := models.ParseRequestStatus(body.Decision)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, attendance.ErrInvalidDecision.Error())
		return
	}
	reviewed, err := h.workflow.ReviewRequest(r.Context(), user, r.PathValue("id"), decision, body.Comments)
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to review request")
		return
	}
	respond.JSON(w, http.StatusOK, "request "+string(reviewed.Status), reviewed)
}
