package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	_ "time/tzdata"

	"github.com/hongminglow/syncink-attendance/internal/logging"
	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/storage/memory"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Set(t time.Time) { c.t = t }

type harness struct {
	store    *memory.Store
	clock    *fakeClock
	settings *SettingsService
	engine   *Engine
	workflow *Workflow
	dir      *Directory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logging.Discard()
	store := memory.NewStore()
	clock := &fakeClock{t: at(t, "2024-03-04T09:00:00Z")}
	settings := NewSettingsService(store, "UTC", logger)
	_, err := settings.Init(context.Background())
	require.NoError(t, err)

	dir := NewDirectory(store, logger, clock.Now)
	dir.hashCost = bcrypt.MinCost
	return &harness{
		store:    store,
		clock:    clock,
		settings: settings,
		engine:   NewEngine(store, settings, logger, clock.Now),
		workflow: NewWorkflow(store, settings, logger, clock.Now),
		dir:      dir,
	}
}

func (h *harness) addUser(t *testing.T, name string, role models.Role) models.User {
	t.Helper()
	u, err := h.dir.CreateUser(context.Background(), NewUser{
		Email:    name + "@example.com",
		Name:     name,
		Role:     role,
		Password: name + "-pass",
	})
	require.NoError(t, err)
	return u
}

func (h *harness) updateSettings(t *testing.T, mutate func(*models.AttendanceSettings)) {
	t.Helper()
	ctx := context.Background()
	s, err := h.settings.Get(ctx)
	require.NoError(t, err)
	mutate(&s)
	_, err = h.settings.Update(ctx, s)
	require.NoError(t, err)
}

func at(t *testing.T, raw string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, raw)
	require.NoError(t, err)
	return ts
}

func seconds(n int64) *int64 { return &n }
