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

// EntryHandler serves daily submissions, history, statistics, and sweeps.
type EntryHandler struct {
	engine *attendance.Engine
	logger *slog.Logger
}

// NewEntryHandler constructs the handler.
func NewEntryHandler(engine *attendance.Engine, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{engine: engine, logger: logger}
}

// Register attaches the routes to the mux.
func (h *EntryHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("POST /entries", protect(h.handleSubmit))
	mux.Handle("GET /entries/today", protect(h.handleToday))
	mux.Handle("GET /entries", protect(h.handleList))
	mux.Handle("GET /stats", protect(h.handleStats))
	mux.Handle("GET /stats/summary", protect(h.handleSummary))
	mux.Handle("POST /sweep", protect(h.handleSweep))
}

func (h *EntryHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	if !user.Role.TracksAttendance() {
		respond.Error(w, http.StatusForbidden, "only employees submit attendance")
		return
	}
	var req dto.SubmitEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := req.Report()
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if report.Attendance() == models.AutoAbsent {
		respond.Error(w, http.StatusBadRequest, "Auto-Absent is assigned by the system")
		return
	}
	entry, err := h.engine.SubmitToday(r.Context(), user.ID, report)
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to submit entry")
		return
	}
	message := "entry submitted"
	if entry.IsLate {
		message = "entry submitted after the deadline"
	}
	respond.JSON(w, http.StatusCreated, message, entry)
}

func (h *EntryHandler) handleToday(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	today, err := h.engine.Today(r.Context())
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to resolve today")
		return
	}
	entries, err := h.engine.ListEntries(r.Context(), storage.EntryFilter{UserID: user.ID, From: today, To: today})
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to load entry")
		return
	}
	out := dto.TodayResponse{Date: today}
	if len(entries) > 0 {
		out.Submitted = true
		out.Entry = &entries[0]
	}
	respond.JSON(w, http.StatusOK, "today", out)
}

func (h *EntryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	userID, ok := scopeUser(w, user, q.Get("userId"))
	if !ok {
		return
	}
	entries, err := h.engine.ListEntries(r.Context(), storage.EntryFilter{
		UserID: userID,
		From:   q.Get("from"),
		To:     q.Get("to"),
	})
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to list entries")
		return
	}
	respond.JSON(w, http.StatusOK, "entries", entries)
}

func (h *EntryHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	requested := r.URL.Query().Get("userId")
	if user.Role.CanViewAll() && requested == "" {
		requested = attendance.AllUsers
	}
	userID, ok := scopeUser(w, user, requested)
	if !ok {
		return
	}
	stats, err := h.engine.ComputeUserStats(r.Context(), userID)
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to compute statistics")
		return
	}
	respond.JSON(w, http.StatusOK, "statistics", stats)
}

func (h *EntryHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	if !user.Role.CanViewAll() {
		respond.Error(w, http.StatusForbidden, "not authorized to view the summary")
		return
	}
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		today, err := h.engine.Today(r.Context())
		if err != nil {
			respond.Failure(w, h.logger, err, "failed to resolve today")
			return
		}
		if from == "" {
			from = today
		}
		if to == "" {
			to = today
		}
	}
	summary, err := h.engine.Summarize(r.Context(), from, to)
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to build summary")
		return
	}
	respond.JSON(w, http.StatusOK, "summary", summary)
}

func (h *EntryHandler) handleSweep(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	if !user.Role.CanManageSettings() {
		respond.Error(w, http.StatusForbidden, "not authorized to run the sweep")
		return
	}
	created, err := h.engine.Sweep(r.Context())
	if err != nil {
		respond.Failure(w, h.logger, err, "auto-absent sweep failed")
		return
	}
	if created == nil {
		created = []models.WorkEntry{}
	}
	respond.JSON(w, http.StatusOK, "sweep complete", dto.SweepResponse{Marked: len(created), Entries: created})
}
