package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hongminglow/syncink-attendance/internal/logging"
	"github.com/hongminglow/syncink-attendance/internal/models"
)

func TestSweeperRunsImmediatelyAndRepeats(t *testing.T) {
	var calls atomic.Int32
	s := NewSweeper(func(ctx context.Context) ([]models.WorkEntry, error) {
		calls.Add(1)
		return nil, nil
	}, 10*time.Millisecond, logging.Discard())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no passes after Stop")
}

func TestSweeperKeepsRunningAfterErrors(t *testing.T) {
	var calls atomic.Int32
	s := NewSweeper(func(ctx context.Context) ([]models.WorkEntry, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	}, 5*time.Millisecond, logging.Discard())

	s.Start(context.Background())
	defer s.Stop()
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestSweeperDisabled(t *testing.T) {
	var calls atomic.Int32
	s := NewSweeper(func(ctx context.Context) ([]models.WorkEntry, error) {
		calls.Add(1)
		return nil, nil
	}, 0, logging.Discard())

	s.Start(context.Background())
	s.Stop()
	assert.Zero(t, calls.Load())
}
