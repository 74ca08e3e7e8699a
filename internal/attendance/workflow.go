package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

// SystemReviewer is recorded as the reviewer when settings do not require approval.
const SystemReviewer = "system"

// Workflow drives retroactive requests from pending to approved or rejected.
type Workflow struct {
	store    storage.Store
	settings *SettingsService
	logger   *slog.Logger
	now      Clock
}

// NewWorkflow wires a Workflow. A nil clock uses time.Now.
func NewWorkflow(store storage.Store, settings *SettingsService, logger *slog.Logger, clock Clock) *Workflow {
	return &Workflow{store: store, settings: settings, logger: logger, now: orNow(clock)}
}

// CreateRequest opens a correction request against one of the actor's own
// Auto-Absent entries. The entry's current attendance is snapshotted.
func (w *Workflow) CreateRequest(ctx context.Context, actor models.User, entryID, reason string, requested models.Report) (models.RetroactiveRequest, error) {
	settings, err := w.settings.Get(ctx)
	if err != nil {
		return models.RetroactiveRequest{}, err
	}
	if !settings.AllowRetroactive {
		return models.RetroactiveRequest{}, ErrRetroactiveDisabled
	}

	entry, err := w.store.FindEntryByID(ctx, entryID)
	if err != nil {
		return models.RetroactiveRequest{}, notFound(err, "entry")
	}
	if entry.UserID != actor.ID {
		return models.RetroactiveRequest{}, ErrUnauthorized
	}
	if entry.Report.Attendance() != models.AutoAbsent {
		return models.RetroactiveRequest{}, ErrInvalidTarget
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.RetroactiveRequest{}, ErrEmptyReason
	}
	switch requested.Attendance() {
	case models.Present, models.Absent:
	case models.AutoAbsent:
		return models.RetroactiveRequest{}, fmt.Errorf("%w: cannot request %s", ErrInvalidReport, models.AutoAbsent)
	default:
		return models.RetroactiveRequest{}, ErrInvalidReport
	}

	pending, err := w.store.ListRequests(ctx, storage.RequestFilter{EntryID: entry.ID, Status: models.StatusPending})
	if err != nil {
		return models.RetroactiveRequest{}, fmt.Errorf("list pending requests: %w", err)
	}
	if len(pending) > 0 {
		return models.RetroactiveRequest{}, ErrDuplicatePendingRequest
	}

	req := models.RetroactiveRequest{
		ID:                 uuid.NewString(),
		EntryID:            entry.ID,
		UserID:             entry.UserID,
		RequestedBy:        actor.Name,
		RequestDate:        w.now(),
		Reason:             reason,
		OriginalAttendance: entry.Report.Attendance(),
		Requested:          requested,
		Status:             models.StatusPending,
	}
	if !settings.RetroactiveRequiresApproval {
		return w.createApproved(ctx, req, entry)
	}

	created, err := w.store.CreateRequest(ctx, req)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.RetroactiveRequest{}, ErrDuplicatePendingRequest
		}
		return models.RetroactiveRequest{}, fmt.Errorf("create request: %w", err)
	}
	w.logger.Info("retroactive request created",
		"request_id", created.ID,
		"entry_id", created.EntryID,
		"user_id", created.UserID,
		"requested", requested.Attendance(),
	)
	return created, nil
}

// createApproved stores a request that skips review together with its entry
// change. A failure leaves neither behind.
func (w *Workflow) createApproved(ctx context.Context, req models.RetroactiveRequest, entry models.WorkEntry) (models.RetroactiveRequest, error) {
	req = stampReview(req, models.StatusApproved, SystemReviewer, "Approved automatically", w.now())
	entry.Report = req.Requested
	entry.RequestID = req.ID

	created, err := w.store.CreateAppliedRequest(ctx, req, entry)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return models.RetroactiveRequest{}, ErrDuplicatePendingRequest
		case errors.Is(err, storage.ErrNotFound):
			return models.RetroactiveRequest{}, fmt.Errorf("entry: %w", ErrNotFound)
		default:
			return models.RetroactiveRequest{}, fmt.Errorf("create approved request: %w", err)
		}
	}
	w.logger.Info("retroactive request approved automatically",
		"request_id", created.ID,
		"entry_id", created.EntryID,
		"user_id", created.UserID,
		"requested", created.Requested.Attendance(),
	)
	return created, nil
}

func stampReview(req models.RetroactiveRequest, decision models.RequestStatus, reviewer, comments string, at time.Time) models.RetroactiveRequest {
	req.Status = decision
	req.ReviewedBy = reviewer
	req.ReviewedAt = &at
	req.ReviewComments = comments
	return req
}

// ReviewRequest moves a pending request to approved or rejected. Approval
// overwrites the target entry's report; rejection leaves it untouched.
func (w *Workflow) ReviewRequest(ctx context.Context, reviewer models.User, requestID string, decision models.RequestStatus, comments string) (models.RetroactiveRequest, error) {
	if !reviewer.Role.CanReview() {
		return models.RetroactiveRequest{}, ErrUnauthorized
	}
	if !decision.Terminal() {
		return models.RetroactiveRequest{}, ErrInvalidDecision
	}
	req, err := w.store.FindRequestByID(ctx, requestID)
	if err != nil {
		return models.RetroactiveRequest{}, notFound(err, "request")
	}
	if req.Status != models.StatusPending {
		return models.RetroactiveRequest{}, ErrAlreadyReviewed
	}
	return w.apply(ctx, req, decision, reviewer.Name, strings.TrimSpace(comments))
}

func (w *Workflow) apply(ctx context.Context, req models.RetroactiveRequest, decision models.RequestStatus, reviewer, comments string) (models.RetroactiveRequest, error) {
	req = stampReview(req, decision, reviewer, comments, w.now())

	var target *models.WorkEntry
	if decision == models.StatusApproved {
		entry, err := w.store.FindEntryByID(ctx, req.EntryID)
		if err != nil {
			return models.RetroactiveRequest{}, notFound(err, "entry")
		}
		entry.Report = req.Requested
		entry.RequestID = req.ID
		target = &entry
	}

	if err := w.store.SaveReview(ctx, req, target); err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			return models.RetroactiveRequest{}, ErrAlreadyReviewed
		case errors.Is(err, storage.ErrNotFound):
			return models.RetroactiveRequest{}, fmt.Errorf("request: %w", ErrNotFound)
		default:
			return models.RetroactiveRequest{}, fmt.Errorf("save review: %w", err)
		}
	}
	w.logger.Info("retroactive request reviewed",
		"request_id", req.ID,
		"entry_id", req.EntryID,
		"status", req.Status,
		"reviewed_by", reviewer,
	)
	return req, nil
}

// GetRequest fetches one request by id.
func (w *Workflow) GetRequest(ctx context.Context, id string) (models.RetroactiveRequest, error) {
	req, err := w.store.FindRequestByID(ctx, id)
	if err != nil {
		return models.RetroactiveRequest{}, notFound(err, "request")
	}
	return req, nil
}

// ListPendingRequests returns every request awaiting review.
func (w *Workflow) ListPendingRequests(ctx context.Context) ([]models.RetroactiveRequest, error) {
	return w.ListRequests(ctx, storage.RequestFilter{Status: models.StatusPending})
}

// ListRequests returns requests matching filter.
func (w *Workflow) ListRequests(ctx context.Context, filter storage.RequestFilter) ([]models.RetroactiveRequest, error) {
	reqs, err := w.store.ListRequests(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return reqs, nil
}
