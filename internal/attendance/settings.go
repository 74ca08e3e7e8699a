package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

// Clock returns the current instant.
type Clock func() time.Time

func orNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// SettingsService owns the single AttendanceSettings record.
type SettingsService struct {
	store           storage.SettingsStore
	defaultTimeZone string
	logger          *slog.Logger
}

// NewSettingsService creates a settings service. defaultTimeZone seeds the
// record on first initialization.
func NewSettingsService(store storage.SettingsStore, defaultTimeZone string, logger *slog.Logger) *SettingsService {
	return &SettingsService{store: store, defaultTimeZone: defaultTimeZone, logger: logger}
}

// Init writes the default settings if none are stored yet.
func (s *SettingsService) Init(ctx context.Context) (models.AttendanceSettings, error) {
	current, err := s.store.GetSettings(ctx)
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.AttendanceSettings{}, fmt.Errorf("load settings: %w", err)
	}
	defaults := models.DefaultSettings(s.defaultTimeZone)
	if err := Validate(defaults); err != nil {
		return models.AttendanceSettings{}, err
	}
	if err := s.store.PutSettings(ctx, defaults); err != nil {
		return models.AttendanceSettings{}, fmt.Errorf("store default settings: %w", err)
	}
	s.logger.Info("attendance settings initialized", "deadline", defaults.DailyDeadline, "timezone", defaults.TimeZone)
	return defaults, nil
}

// Get returns the current settings, initializing them on first use.
func (s *SettingsService) Get(ctx context.Context) (models.AttendanceSettings, error) {
	return s.Init(ctx)
}

// Update validates and replaces the settings. Existing isLate flags are not recomputed.
func (s *SettingsService) Update(ctx context.Context, settings models.AttendanceSettings) (models.AttendanceSettings, error) {
	settings.DailyDeadline = strings.TrimSpace(settings.DailyDeadline)
	settings.TimeZone = strings.TrimSpace(settings.TimeZone)
	if err := Validate(settings); err != nil {
		return models.AttendanceSettings{}, err
	}
	if err := s.store.PutSettings(ctx, settings); err != nil {
		return models.AttendanceSettings{}, fmt.Errorf("store settings: %w", err)
	}
	s.logger.Info("attendance settings updated",
		"deadline", settings.DailyDeadline,
		"timezone", settings.TimeZone,
		"auto_absent", settings.AutoAbsentAfterDeadline,
		"allow_retroactive", settings.AllowRetroactive,
		"requires_approval", settings.RetroactiveRequiresApproval,
	)
	return settings, nil
}

// Validate checks the deadline format and time zone.
func Validate(settings models.AttendanceSettings) error {
	_, err := compile(settings)
	return err
}

// policy is the parsed form of AttendanceSettings used for time arithmetic.
type policy struct {
	loc    *time.Location
	hour   int
	minute int
}

func compile(settings models.AttendanceSettings) (policy, error) {
	hour, minute, err := parseClock(settings.DailyDeadline)
	if err != nil {
		return policy{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	tz := settings.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return policy{}, fmt.Errorf("%w: unknown time zone %q", ErrInvalidSettings, settings.TimeZone)
	}
	return policy{loc: loc, hour: hour, minute: minute}, nil
}

func parseClock(raw string) (int, int, error) {
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, 0, fmt.Errorf("deadline %q must be HH:MM", raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("deadline hour %q out of range", hh)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("deadline minute %q out of range", mm)
	}
	return hour, minute, nil
}

// dateOf returns the calendar date of t in the policy time zone.
func (p policy) dateOf(t time.Time) string {
	return t.In(p.loc).Format(models.DateLayout)
}

// deadlineOn returns the deadline instant on the calendar date of t.
func (p policy) deadlineOn(t time.Time) time.Time {
	local := t.In(p.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, p.hour, p.minute, 0, 0, p.loc)
}

// IsSubmissionOnTime reports whether ts is at or before the deadline on its
// own calendar date in the configured time zone.
func IsSubmissionOnTime(ts time.Time, settings models.AttendanceSettings) (bool, error) {
	p, err := compile(settings)
	if err != nil {
		return false, err
	}
	return !ts.After(p.deadlineOn(ts)), nil
}

// Today returns the calendar date of now in the configured time zone.
func Today(now time.Time, settings models.AttendanceSettings) (string, error) {
	p, err := compile(settings)
	if err != nil {
		return "", err
	}
	return p.dateOf(now), nil
}

// ParseDate validates an ISO YYYY-MM-DD date.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return d, nil
}

// shiftDate moves an ISO date by days.
func shiftDate(date string, days int) string {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, days).Format(models.DateLayout)
}
