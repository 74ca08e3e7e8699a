package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hongminglow/syncink-attendance/internal/attendance"
	"github.com/hongminglow/syncink-attendance/internal/auth"
	"github.com/hongminglow/syncink-attendance/internal/logging"
	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/models/dto"
	"github.com/hongminglow/syncink-attendance/internal/server"
	"github.com/hongminglow/syncink-attendance/internal/storage"
	"github.com/hongminglow/syncink-attendance/internal/storage/memory"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type api struct {
	t       *testing.T
	handler http.Handler
	now     time.Time
	tokens  map[string]string
	users   map[string]models.User
}

func newAPI(t *testing.T) *api {
	t.Helper()
	return newAPIWithStore(t, memory.NewStore())
}

func newAPIWithStore(t *testing.T, store storage.Store) *api {
	t.Helper()
	ctx := context.Background()
	logger := logging.Discard()
	a := &api{t: t, tokens: map[string]string{}, users: map[string]models.User{}}
	a.now = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return a.now }

	settings := attendance.NewSettingsService(store, "UTC", logger)
	_, err := settings.Init(ctx)
	require.NoError(t, err)
	dir := attendance.NewDirectory(store, logger, clock)
	svc := server.Services{
		Users:     store,
		Settings:  settings,
		Engine:    attendance.NewEngine(store, settings, logger, clock),
		Workflow:  attendance.NewWorkflow(store, settings, logger, clock),
		Directory: dir,
	}
	tokens := auth.NewTokenManager("test-secret", "test", time.Hour)
	a.handler = server.Routes(svc, tokens, logger)

	for _, u := range []attendance.NewUser{
		{Email: "admin@example.com", Name: "Admin", Role: models.RoleAdmin, Password: "admin-pass"},
		{Email: "manager@example.com", Name: "Manager", Role: models.RoleManager, Password: "manager-pass"},
		{Email: "john@example.com", Name: "John", Role: models.RoleEmployee, Password: "john-pass"},
		{Email: "jane@example.com", Name: "Jane", Role: models.RoleEmployee, Password: "jane-pass"},
	} {
		created, err := dir.CreateUser(ctx, u)
		require.NoError(t, err)
		a.users[created.Name] = created
		a.tokens[created.Name] = a.login(u.Email, u.Password)
	}
	return a
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var out dto.LoginResponse
	a.decode(rec, &out)
	require.NotEmpty(a.t, out.Token)
	return out.Token
}

func (a *api) do(method, path, as string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[as])
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *api) decode(rec *httptest.ResponseRecorder, dst any) {
	a.t.Helper()
	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(a.t, json.Unmarshal(env.Data, dst))
}

func (a *api) expect(rec *httptest.ResponseRecorder, status int) {
	a.t.Helper()
	require.Equal(a.t, status, rec.Code, rec.Body.String())
}

func ptr[T any](v T) *T { return &v }

func TestHealth(t *testing.T) {
	a := newAPI(t)
	a.expect(a.do(http.MethodGet, "/health", "", nil), http.StatusOK)
}

func TestLoginAndMe(t *testing.T) {
	a := newAPI(t)

	a.expect(a.do(http.MethodPost, "/login", "", dto.LoginRequest{Email: "john@example.com", Password: "wrong"}), http.StatusUnauthorized)
	a.expect(a.do(http.MethodPost, "/login", "", dto.LoginRequest{Email: "nobody@example.com", Password: "x"}), http.StatusUnauthorized)
	a.expect(a.do(http.MethodPost, "/login", "", dto.LoginRequest{}), http.StatusBadRequest)

	rec := a.do(http.MethodGet, "/me", "John", nil)
	a.expect(rec, http.StatusOK)
	var me models.User
	a.decode(rec, &me)
	assert.Equal(t, a.users["John"].ID, me.ID)
	require.NotNil(t, me.LastLogin)
	assert.True(t, me.LastLogin.Equal(a.now))
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newAPI(t)
	for _, path := range []string{"/me", "/entries", "/entries/today", "/stats", "/requests", "/settings", "/users"} {
		a.expect(a.do(http.MethodGet, path, "", nil), http.StatusUnauthorized)
	}
}

func TestSubmitEntry(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/entries", "John", dto.SubmitEntryRequest{Attendance: "Present", SecondsDone: ptr(int64(3600)), Remarks: ptr("api work")})
	a.expect(rec, http.StatusCreated)
	var entry models.WorkEntry
	a.decode(rec, &entry)
	assert.Equal(t, "2024-03-04", entry.Date)
	assert.False(t, entry.IsLate)

	a.expect(a.do(http.MethodPost, "/entries", "John", dto.SubmitEntryRequest{Attendance: "Absent"}), http.StatusConflict)

	rec = a.do(http.MethodGet, "/entries/today", "John", nil)
	a.expect(rec, http.StatusOK)
	var today dto.TodayResponse
	a.decode(rec, &today)
	assert.True(t, today.Submitted)
	require.NotNil(t, today.Entry)
	assert.Equal(t, entry.ID, today.Entry.ID)

	a.now = a.now.Add(10 * time.Hour)
	rec = a.do(http.MethodPost, "/entries", "Jane", dto.SubmitEntryRequest{Attendance: "Absent"})
	a.expect(rec, http.StatusCreated)
	a.decode(rec, &entry)
	assert.True(t, entry.IsLate)
}

func TestSubmitEntryRejectsInvalidPayloads(t *testing.T) {
	a := newAPI(t)
	cases := []struct {
		name string
		as   string
		body any
		want int
	}{
		{name: "present without seconds", as: "John", body: dto.SubmitEntryRequest{Attendance: "Present"}, want: http.StatusBadRequest},
		{name: "absent with seconds", as: "John", body: dto.SubmitEntryRequest{Attendance: "Absent", SecondsDone: ptr(int64(5))}, want: http.StatusBadRequest},
		{name: "auto-absent by hand", as: "John", body: dto.SubmitEntryRequest{Attendance: "Auto-Absent"}, want: http.StatusBadRequest},
		{name: "unknown kind", as: "John", body: dto.SubmitEntryRequest{Attendance: "Sick"}, want: http.StatusBadRequest},
		{name: "unknown field", as: "John", body: map[string]any{"attendance": "Absent", "date": "2024-01-01"}, want: http.StatusBadRequest},
		{name: "admin does not track", as: "Admin", body: dto.SubmitEntryRequest{Attendance: "Absent"}, want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a.expect(a.do(http.MethodPost, "/entries", tc.as, tc.body), tc.want)
		})
	}
}

func TestRetroactiveCorrectionOverHTTP(t *testing.T) {
	a := newAPI(t)

	a.expect(a.do(http.MethodPost, "/sweep", "John", nil), http.StatusForbidden)

	a.now = time.Date(2024, 3, 4, 18, 5, 0, 0, time.UTC)
	rec := a.do(http.MethodPost, "/sweep", "Admin", nil)
	a.expect(rec, http.StatusOK)
	var sweep dto.SweepResponse
	a.decode(rec, &sweep)
	assert.Equal(t, 2, sweep.Marked, "both employees are marked, staff roles are not")

	rec = a.do(http.MethodPost, "/sweep", "Admin", nil)
	a.expect(rec, http.StatusOK)
	a.decode(rec, &sweep)
	assert.Zero(t, sweep.Marked)

	rec = a.do(http.MethodGet, "/entries", "John", nil)
	a.expect(rec, http.StatusOK)
	var entries []models.WorkEntry
	a.decode(rec, &entries)
	require.Len(t, entries, 1)
	target := entries[0]
	assert.Equal(t, models.AutoAbsent, target.Report.Attendance())

	body := dto.CreateRetroactiveRequest{
		EntryID:              target.ID,
		Reason:               "forgot to submit",
		RequestedAttendance:  "Present",
		RequestedSecondsDone: ptr(int64(7200)),
	}
	a.expect(a.do(http.MethodPost, "/requests", "Jane", body), http.StatusForbidden)

	rec = a.do(http.MethodPost, "/requests", "John", body)
	a.expect(rec, http.StatusCreated)
	var req models.RetroactiveRequest
	a.decode(rec, &req)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, "John", req.RequestedBy)

	a.expect(a.do(http.MethodPost, "/requests", "John", body), http.StatusConflict)

	rec = a.do(http.MethodGet, "/requests?status=pending", "Manager", nil)
	a.expect(rec, http.StatusOK)
	var pending []models.RetroactiveRequest
	a.decode(rec, &pending)
	require.Len(t, pending, 1)

	a.expect(a.do(http.MethodGet, "/requests/"+req.ID, "Jane", nil), http.StatusNotFound)

	review := dto.ReviewRequest{Decision: "approved", Comments: "ok"}
	a.expect(a.do(http.MethodPost, "/requests/"+req.ID+"/review", "John", review), http.StatusForbidden)
	a.expect(a.do(http.MethodPost, "/requests/"+req.ID+"/review", "Manager", dto.ReviewRequest{Decision: "pending"}), http.StatusBadRequest)

	rec = a.do(http.MethodPost, "/requests/"+req.ID+"/review", "Manager", review)
	a.expect(rec, http.StatusOK)
	a.decode(rec, &req)
	assert.Equal(t, models.StatusApproved, req.Status)
	assert.Equal(t, "Manager", req.ReviewedBy)

	a.expect(a.do(http.MethodPost, "/requests/"+req.ID+"/review", "Admin", dto.ReviewRequest{Decision: "rejected"}), http.StatusConflict)

	rec = a.do(http.MethodGet, "/entries", "John", nil)
	a.expect(rec, http.StatusOK)
	a.decode(rec, &entries)
	require.Len(t, entries, 1)
	work, ok := entries[0].Report.Work()
	require.True(t, ok)
	assert.Equal(t, int64(7200), work.SecondsDone)
	assert.Equal(t, req.ID, entries[0].RequestID)
}

func TestReadScopeByRole(t *testing.T) {
	a := newAPI(t)
	a.expect(a.do(http.MethodPost, "/entries", "John", dto.SubmitEntryRequest{Attendance: "Present", SecondsDone: ptr(int64(600))}), http.StatusCreated)
	a.expect(a.do(http.MethodPost, "/entries", "Jane", dto.SubmitEntryRequest{Attendance: "Absent"}), http.StatusCreated)

	a.expect(a.do(http.MethodGet, "/entries?userId="+a.users["Jane"].ID, "John", nil), http.StatusForbidden)
	a.expect(a.do(http.MethodGet, "/stats/summary", "John", nil), http.StatusForbidden)
	a.expect(a.do(http.MethodGet, "/users", "John", nil), http.StatusForbidden)
	a.expect(a.do(http.MethodGet, "/entries?from=03-01-2024", "Manager", nil), http.StatusBadRequest)

	var stats []models.UserStats
	rec := a.do(http.MethodGet, "/stats", "John", nil)
	a.expect(rec, http.StatusOK)
	a.decode(rec, &stats)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(600), stats[0].TotalSeconds)

	rec = a.do(http.MethodGet, "/stats", "Manager", nil)
	a.expect(rec, http.StatusOK)
	a.decode(rec, &stats)
	assert.Len(t, stats, 2)

	var entries []models.WorkEntry
	rec = a.do(http.MethodGet, "/entries?from=2024-03-04&to=2024-03-04", "Manager", nil)
	a.expect(rec, http.StatusOK)
	a.decode(rec, &entries)
	assert.Len(t, entries, 2)

	var summary models.Summary
	rec = a.do(http.MethodGet, "/stats/summary", "Manager", nil)
	a.expect(rec, http.StatusOK)
	a.decode(rec, &summary)
	assert.Equal(t, 1, summary.PresentCount)
	assert.Equal(t, 1, summary.AbsentCount)
	assert.Equal(t, int64(600), summary.TotalSeconds)
}

func TestSettingsEndpoints(t *testing.T) {
	a := newAPI(t)

	var current models.AttendanceSettings
	rec := a.do(http.MethodGet, "/settings", "John", nil)
	a.expect(rec, http.StatusOK)
	a.decode(rec, &current)
	assert.Equal(t, "18:00", current.DailyDeadline)

	current.DailyDeadline = "09:30"
	a.expect(a.do(http.MethodPut, "/settings", "Manager", current), http.StatusForbidden)

	bad := current
	bad.DailyDeadline = "25:00"
	a.expect(a.do(http.MethodPut, "/settings", "Admin", bad), http.StatusBadRequest)

	a.expect(a.do(http.MethodPut, "/settings", "Admin", current), http.StatusOK)

	rec = a.do(http.MethodGet, "/settings", "Jane", nil)
	a.expect(rec, http.StatusOK)
	a.decode(rec, &current)
	assert.Equal(t, "09:30", current.DailyDeadline)
}

func TestUserManagement(t *testing.T) {
	a := newAPI(t)
	create := dto.CreateUserRequest{Email: "new@example.com", Name: "New", Role: "employee", Password: "new-pass"}

	a.expect(a.do(http.MethodPost, "/users", "Manager", create), http.StatusForbidden)

	rec := a.do(http.MethodPost, "/users", "Admin", create)
	a.expect(rec, http.StatusCreated)
	var created models.User
	a.decode(rec, &created)
	assert.Equal(t, models.RoleEmployee, created.Role)

	a.expect(a.do(http.MethodPost, "/users", "Admin", create), http.StatusConflict)
	a.expect(a.do(http.MethodPost, "/users", "Admin", dto.CreateUserRequest{Email: "x@example.com", Name: "X", Role: "owner", Password: "pw-pass"}), http.StatusBadRequest)

	rec = a.do(http.MethodPut, "/users/"+created.ID, "Admin", dto.UpdateUserRequest{Role: ptr("manager")})
	a.expect(rec, http.StatusOK)
	a.decode(rec, &created)
	assert.Equal(t, models.RoleManager, created.Role)

	a.expect(a.do(http.MethodGet, "/users/"+a.users["Jane"].ID, "John", nil), http.StatusForbidden)
	a.expect(a.do(http.MethodGet, "/users/"+a.users["John"].ID, "John", nil), http.StatusOK)

	a.expect(a.do(http.MethodDelete, "/users/"+a.users["Admin"].ID, "Admin", nil), http.StatusBadRequest)
	a.expect(a.do(http.MethodDelete, "/users/"+a.users["Jane"].ID, "Admin", nil), http.StatusOK)
	a.expect(a.do(http.MethodDelete, "/users/"+a.users["Jane"].ID, "Admin", nil), http.StatusNotFound)
	a.expect(a.do(http.MethodGet, "/me", "Jane", nil), http.StatusUnauthorized)
}

func TestExports(t *testing.T) {
	a := newAPI(t)
	a.expect(a.do(http.MethodPost, "/entries", "John", dto.SubmitEntryRequest{Attendance: "Present", SecondsDone: ptr(int64(900))}), http.StatusCreated)

	a.expect(a.do(http.MethodGet, "/export/entries.csv", "John", nil), http.StatusForbidden)

	rec := a.do(http.MethodGet, "/export/entries.csv", "Manager", nil)
	a.expect(rec, http.StatusOK)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendance-entries-2024-03-04.csv")
	assert.Contains(t, rec.Body.String(), "john@example.com")

	rec = a.do(http.MethodGet, "/export/entries.xlsx", "Admin", nil)
	a.expect(rec, http.StatusOK)
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Entries")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "John", rows[1][1])
}
