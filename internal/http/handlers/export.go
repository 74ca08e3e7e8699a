package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hongminglow/syncink-attendance/internal/attendance"
	"github.com/hongminglow/syncink-attendance/internal/export"
	"github.com/hongminglow/syncink-attendance/internal/http/respond"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

// ExportHandler streams entry history as CSV or XLSX downloads.
type ExportHandler struct {
	engine    *attendance.Engine
	directory *attendance.Directory
	logger    *slog.Logger
}

// NewExportHandler constructs the handler.
func NewExportHandler(engine *attendance.Engine, directory *attendance.Directory, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{engine: engine, directory: directory, logger: logger}
}

// Register attaches the routes to the mux.
func (h *ExportHandler) Register(mux *http.ServeMux, protect Protect) {
	mux.Handle("GET /export/entries.csv", protect(h.handleCSV))
	mux.Handle("GET /export/entries.xlsx", protect(h.handleXLSX))
}

func (h *ExportHandler) rows(w http.ResponseWriter, r *http.Request) ([]export.Row, bool) {
	user, ok := caller(w, r)
	if !ok {
		return nil, false
	}
	if !user.Role.CanViewAll() {
		respond.Error(w, http.StatusForbidden, "not authorized to export entries")
		return nil, false
	}
	q := r.URL.Query()
	entries, err := h.engine.ListEntries(r.Context(), storage.EntryFilter{
		UserID: q.Get("userId"),
		From:   q.Get("from"),
		To:     q.Get("to"),
	})
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to list entries")
		return nil, false
	}
	users, err := h.directory.ListUsers(r.Context())
	if err != nil {
		respond.Failure(w, h.logger, err, "failed to list users")
		return nil, false
	}
	return export.Rows(entries, users), true
}

func (h *ExportHandler) handleCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.rows(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		respond.Failure(w, h.logger, err, "failed to build CSV export")
		return
	}
	h.download(w, r, &buf, "text/csv; charset=utf-8", "csv")
}

func (h *ExportHandler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.rows(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows); err != nil {
		respond.Failure(w, h.logger, err, "failed to build XLSX export")
		return
	}
	h.download(w, r, &buf, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx")
}

func (h *ExportHandler) download(w http.ResponseWriter, r *http.Request, buf *bytes.Buffer, contentType, ext string) {
	name := "attendance-entries." + ext
	if today, err := h.engine.Today(r.Context()); err == nil {
		name = fmt.Sprintf("attendance-entries-%s.%s", today, ext)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write export", "error", err)
	}
}
