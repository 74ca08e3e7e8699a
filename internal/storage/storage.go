package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/syncink-attendance/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrConflict indicates a conditional write lost against the current state.
var ErrConflict = errors.New("record changed concurrently")

// UserStore captures persistence operations for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UpdateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByID(ctx context.Context, id string) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	// DeleteUser removes the user together with their entries and requests.
	DeleteUser(ctx context.Context, id string) (CascadeResult, error)
}

// CascadeResult reports what a user deletion removed.
type CascadeResult struct {
	Entries  int
	Requests int
}

// EntryFilter narrows entry listings. Empty fields match everything; date
// bounds are inclusive.
type EntryFilter struct {
	UserID string
	From   string
	To     string
}

// EntryStore captures persistence operations for work entries.
type EntryStore interface {
	// CreateEntry fails with ErrAlreadyExists when the user already has an entry for the date.
	CreateEntry(ctx context.Context, entry models.WorkEntry) (models.WorkEntry, error)
	FindEntryByID(ctx context.Context, id string) (models.WorkEntry, error)
	FindEntryByUserDate(ctx context.Context, userID, date string) (models.WorkEntry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]models.WorkEntry, error)
}

// RequestFilter narrows request listings. Empty fields match everything.
type RequestFilter struct {
	UserID  string
	EntryID string
	Status  models.RequestStatus
}

// RequestStore captures persistence operations for retroactive requests.
type RequestStore interface {
	// CreateRequest fails with ErrAlreadyExists when the entry already has a pending request.
	CreateRequest(ctx context.Context, req models.RetroactiveRequest) (models.RetroactiveRequest, error)
	FindRequestByID(ctx context.Context, id string) (models.RetroactiveRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]models.RetroactiveRequest, error)
	// SaveReview atomically moves a pending request to its terminal state and,
	// when entry is non-nil, overwrites that entry. It fails with ErrConflict
	// when the request is no longer pending.
	SaveReview(ctx context.Context, req models.RetroactiveRequest, entry *models.WorkEntry) error
	// CreateAppliedRequest inserts an already-reviewed request and overwrites
	// entry in one step, so neither is stored without the other. It fails with
	// ErrAlreadyExists when the entry has a pending request and ErrNotFound
	// when the entry is gone.
	CreateAppliedRequest(ctx context.Context, req models.RetroactiveRequest, entry models.WorkEntry) (models.RetroactiveRequest, error)
}

// SettingsStore holds the single AttendanceSettings record.
type SettingsStore interface {
	GetSettings(ctx context.Context) (models.AttendanceSettings, error)
	PutSettings(ctx context.Context, settings models.AttendanceSettings) error
}

// Store is the full persistence surface consumed by the attendance core.
type Store interface {
	UserStore
	EntryStore
	RequestStore
	SettingsStore
	Close()
}
