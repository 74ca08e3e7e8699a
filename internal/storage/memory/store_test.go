package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

func seedUser(t *testing.T, s *Store, id, email string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.User{ID: id, Email: email, Name: id, Role: models.RoleEmployee, CreatedAt: time.Now()})
	require.NoError(t, err)
	return u
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "u1", "a@example.com")

	_, err := s.CreateUser(context.Background(), models.User{ID: "u2", Email: "a@example.com"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestCreateEntryOnePerUserPerDate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")

	_, err := s.CreateEntry(ctx, models.WorkEntry{ID: "e1", UserID: "u1", Date: "2024-03-01", Report: models.AbsentReport()})
	require.NoError(t, err)
	_, err = s.CreateEntry(ctx, models.WorkEntry{ID: "e2", UserID: "u1", Date: "2024-03-01", Report: models.AbsentReport()})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	_, err = s.CreateEntry(ctx, models.WorkEntry{ID: "e3", UserID: "u1", Date: "2024-03-02", Report: models.AbsentReport()})
	assert.NoError(t, err)
}

func TestListEntriesDateRangeInclusive(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for i, date := range []string{"2024-03-01", "2024-03-05", "2024-03-10"} {
		_, err := s.CreateEntry(ctx, models.WorkEntry{ID: string(rune('a' + i)), UserID: "u1", Date: date, Report: models.AbsentReport()})
		require.NoError(t, err)
	}

	got, err := s.ListEntries(ctx, storage.EntryFilter{UserID: "u1", From: "2024-03-01", To: "2024-03-05"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-03-01", got[0].Date)
	assert.Equal(t, "2024-03-05", got[1].Date)
}

func TestCreateRequestOnePendingPerEntry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	pending := models.RetroactiveRequest{ID: "r1", EntryID: "e1", UserID: "u1", Status: models.StatusPending, Requested: models.AbsentReport()}
	_, err := s.CreateRequest(ctx, pending)
	require.NoError(t, err)

	pending.ID = "r2"
	_, err = s.CreateRequest(ctx, pending)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestSaveReviewConflictsOnceTerminal(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	req := models.RetroactiveRequest{ID: "r1", EntryID: "e1", UserID: "u1", Status: models.StatusPending, Requested: models.AbsentReport()}
	_, err := s.CreateRequest(ctx, req)
	require.NoError(t, err)

	req.Status = models.StatusRejected
	require.NoError(t, s.SaveReview(ctx, req, nil))

	req.Status = models.StatusApproved
	assert.ErrorIs(t, s.SaveReview(ctx, req, nil), storage.ErrConflict)

	stored, err := s.FindRequestByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
}

func TestDeleteUserCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")
	seedUser(t, s, "u2", "b@example.com")
	_, err := s.CreateEntry(ctx, models.WorkEntry{ID: "e1", UserID: "u1", Date: "2024-03-01", Report: models.AutoAbsentReport()})
	require.NoError(t, err)
	_, err = s.CreateEntry(ctx, models.WorkEntry{ID: "e2", UserID: "u2", Date: "2024-03-01", Report: models.AutoAbsentReport()})
	require.NoError(t, err)
	_, err = s.CreateRequest(ctx, models.RetroactiveRequest{ID: "r1", EntryID: "e1", UserID: "u1", Status: models.StatusPending, Requested: models.AbsentReport()})
	require.NoError(t, err)

	res, err := s.DeleteUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, storage.CascadeResult{Entries: 1, Requests: 1}, res)

	entries, err := s.ListEntries(ctx, storage.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "u2", entries[0].UserID)

	reqs, err := s.ListRequests(ctx, storage.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, reqs)

	_, err = s.DeleteUser(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSettingsNotFoundUntilPut(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, err := s.GetSettings(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.PutSettings(ctx, models.DefaultSettings("UTC")))
	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "18:00", got.DailyDeadline)
}

func TestCreateAppliedRequestIsAllOrNothing(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")
	entry, err := s.CreateEntry(ctx, models.WorkEntry{ID: "e1", UserID: "u1", Date: "2024-03-01", Report: models.AutoAbsentReport()})
	require.NoError(t, err)

	reviewed := time.Now()
	req := models.RetroactiveRequest{
		ID: "r1", EntryID: "e1", UserID: "u1", Reason: "x",
		OriginalAttendance: models.AutoAbsent, Requested: models.AbsentReport(),
		Status: models.StatusApproved, ReviewedBy: "system", ReviewedAt: &reviewed,
	}

	missing := entry
	missing.ID = "gone"
	_, err = s.CreateAppliedRequest(ctx, req, missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	reqs, err := s.ListRequests(ctx, storage.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, reqs)

	_, err = s.CreateRequest(ctx, models.RetroactiveRequest{ID: "r0", EntryID: "e1", UserID: "u1", Status: models.StatusPending})
	require.NoError(t, err)
	entry.Report = models.AbsentReport()
	entry.RequestID = "r1"
	_, err = s.CreateAppliedRequest(ctx, req, entry)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	got, err := s.FindEntryByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.AutoAbsent, got.Report.Attendance())
}
