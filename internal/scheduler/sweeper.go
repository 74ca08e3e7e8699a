package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hongminglow/syncink-attendance/internal/models"
)

// SweepFunc runs one auto-absent pass.
type SweepFunc func(ctx context.Context) ([]models.WorkEntry, error)

// Sweeper runs a SweepFunc on a fixed interval until stopped.
type Sweeper struct {
	sweep    SweepFunc
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper builds a sweeper. A non-positive interval disables the timer;
// Start then returns without launching anything.
func NewSweeper(sweep SweepFunc, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{sweep: sweep, interval: interval, logger: logger}
}

// Start runs one pass immediately and then one per interval in the background.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("periodic auto-absent sweep disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	s.logger.Info("periodic auto-absent sweep started", "interval", s.interval)
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.once(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.once(ctx)
		}
	}
}

func (s *Sweeper) once(ctx context.Context) {
	created, err := s.sweep(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("auto-absent sweep failed", "error", err)
		return
	}
	if len(created) > 0 {
		s.logger.Debug("auto-absent sweep pass complete", "marked", len(created))
	}
}

// Stop cancels the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
