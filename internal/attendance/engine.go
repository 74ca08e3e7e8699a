package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

// Engine computes lateness, records daily entries, runs the auto-absent
// sweep, and derives per-user statistics.
type Engine struct {
	store    storage.Store
	settings *SettingsService
	logger   *slog.Logger
	now      Clock
}

// NewEngine wires an Engine. A nil clock uses time.Now.
func NewEngine(store storage.Store, settings *SettingsService, logger *slog.Logger, clock Clock) *Engine {
	return &Engine{store: store, settings: settings, logger: logger, now: orNow(clock)}
}

// SubmitEntry records a user's report for date. isLate is stamped from the
// submission time and never recomputed.
func (e *Engine) SubmitEntry(ctx context.Context, userID, date string, report models.Report) (models.WorkEntry, error) {
	if !report.Valid() {
		return models.WorkEntry{}, ErrInvalidReport
	}
	if _, err := ParseDate(date); err != nil {
		return models.WorkEntry{}, err
	}
	if _, err := e.store.FindUserByID(ctx, userID); err != nil {
		return models.WorkEntry{}, notFound(err, "user")
	}

	exists, err := e.HasEntryForDate(ctx, userID, date)
	if err != nil {
		return models.WorkEntry{}, err
	}
	if exists {
		return models.WorkEntry{}, ErrDuplicateEntry
	}

	settings, err := e.settings.Get(ctx)
	if err != nil {
		return models.WorkEntry{}, err
	}
	now := e.now()
	isLate := false
	if report.Attendance() != models.AutoAbsent {
		onTime, err := IsSubmissionOnTime(now, settings)
		if err != nil {
			return models.WorkEntry{}, err
		}
		isLate = !onTime
	}

	entry := models.WorkEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        date,
		Report:      report,
		CreatedAt:   now,
		SubmittedAt: now,
		IsLate:      isLate,
	}
	created, err := e.store.CreateEntry(ctx, entry)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.WorkEntry{}, ErrDuplicateEntry
		}
		return models.WorkEntry{}, fmt.Errorf("create entry: %w", err)
	}

	e.logger.Info("entry submitted",
		"user_id", userID,
		"date", date,
		"attendance", report.Attendance(),
		"late", isLate,
	)
	return created, nil
}

// SubmitToday records a report for the current date in the configured time zone.
func (e *Engine) SubmitToday(ctx context.Context, userID string, report models.Report) (models.WorkEntry, error) {
	today, err := e.Today(ctx)
	if err != nil {
		return models.WorkEntry{}, err
	}
	return e.SubmitEntry(ctx, userID, today, report)
}

// Today returns the current calendar date in the configured time zone.
func (e *Engine) Today(ctx context.Context) (string, error) {
	settings, err := e.settings.Get(ctx)
	if err != nil {
		return "", err
	}
	return Today(e.now(), settings)
}

// HasEntryForDate reports whether the user already has an entry for date.
func (e *Engine) HasEntryForDate(ctx context.Context, userID, date string) (bool, error) {
	_, err := e.store.FindEntryByUserDate(ctx, userID, date)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("lookup entry: %w", err)
	}
}

// ListEntries returns entries matching filter after validating its date bounds.
func (e *Engine) ListEntries(ctx context.Context, filter storage.EntryFilter) ([]models.WorkEntry, error) {
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := ParseDate(d); err != nil {
			return nil, err
		}
	}
	entries, err := e.store.ListEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// GetEntry fetches one entry by id.
func (e *Engine) GetEntry(ctx context.Context, id string) (models.WorkEntry, error) {
	entry, err := e.store.FindEntryByID(ctx, id)
	if err != nil {
		return models.WorkEntry{}, notFound(err, "entry")
	}
	return entry, nil
}

// RunAutoAbsentSweep marks every employee without an entry for asOf's date as
// Auto-Absent. It does nothing until the deadline for that date has passed and
// is safe to call any number of times; later calls only fill remaining gaps.
func (e *Engine) RunAutoAbsentSweep(ctx context.Context, asOf time.Time) ([]models.WorkEntry, error) {
	settings, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.AutoAbsentAfterDeadline {
		return nil, nil
	}
	p, err := compile(settings)
	if err != nil {
		return nil, err
	}
	if !asOf.After(p.deadlineOn(asOf)) {
		return nil, nil
	}
	today := p.dateOf(asOf)

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var created []models.WorkEntry
	for _, user := range users {
		if !user.Role.TracksAttendance() {
			continue
		}
		exists, err := e.HasEntryForDate(ctx, user.ID, today)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		entry, err := e.store.CreateEntry(ctx, models.WorkEntry{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			Date:        today,
			Report:      models.AutoAbsentReport(),
			CreatedAt:   asOf,
			SubmittedAt: asOf,
			IsLate:      false,
		})
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				continue
			}
			return created, fmt.Errorf("create auto-absent entry for %s: %w", user.ID, err)
		}
		created = append(created, entry)
	}

	if len(created) > 0 {
		e.logger.Info("auto-absent sweep marked users", "date", today, "count", len(created))
	} else {
		e.logger.Debug("auto-absent sweep found no gaps", "date", today)
	}
	return created, nil
}

// Sweep runs the auto-absent sweep as of the engine clock.
func (e *Engine) Sweep(ctx context.Context) ([]models.WorkEntry, error) {
	return e.RunAutoAbsentSweep(ctx, e.now())
}

func notFound(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
