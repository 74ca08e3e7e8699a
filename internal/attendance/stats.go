package attendance

import (
	"context"
	"fmt"
	"math"

	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

const (
	weekWindowDays  = 7
	monthWindowDays = 30
)

// AllUsers selects every employee in ComputeUserStats.
const AllUsers = "all"

// ComputeUserStats derives statistics for one user, or for every employee when
// userID is empty or AllUsers. Averages are seconds per Present day inside the
// window ending today; days without a Present entry do not lower them.
func (e *Engine) ComputeUserStats(ctx context.Context, userID string) ([]models.UserStats, error) {
	settings, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	today, err := Today(e.now(), settings)
	if err != nil {
		return nil, err
	}

	var users []models.User
	if userID == "" || userID == AllUsers {
		all, err := e.store.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		for _, u := range all {
			if u.Role.TracksAttendance() {
				users = append(users, u)
			}
		}
	} else {
		u, err := e.store.FindUserByID(ctx, userID)
		if err != nil {
			return nil, notFound(err, "user")
		}
		users = []models.User{u}
	}

	out := make([]models.UserStats, 0, len(users))
	for _, u := range users {
		entries, err := e.store.ListEntries(ctx, storage.EntryFilter{UserID: u.ID})
		if err != nil {
			return nil, fmt.Errorf("list entries for %s: %w", u.ID, err)
		}
		out = append(out, statsFor(u, entries, today))
	}
	return out, nil
}

func statsFor(u models.User, entries []models.WorkEntry, today string) models.UserStats {
	stats := models.UserStats{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		LastActivity: u.LastActivity(),
	}
	weekStart := shiftDate(today, -weekWindowDays)
	monthStart := shiftDate(today, -monthWindowDays)

	var week, month window
	for _, entry := range entries {
		kind := entry.Report.Attendance()
		switch kind {
		case models.Present:
			stats.PresentDays++
		case models.Absent:
			stats.AbsentDays++
		case models.AutoAbsent:
			stats.AutoAbsentDays++
		}
		if entry.IsLate {
			stats.LateSubmissions++
		} else if kind != models.AutoAbsent {
			stats.OnTimeSubmissions++
		}

		work, ok := entry.Report.Work()
		if !ok {
			continue
		}
		stats.TotalSeconds += work.SecondsDone
		if entry.Date <= today {
			if entry.Date >= weekStart {
				week.add(work.SecondsDone)
			}
			if entry.Date >= monthStart {
				month.add(work.SecondsDone)
			}
		}
	}
	stats.WeeklyAverage = week.mean()
	stats.MonthlyAverage = month.mean()
	return stats
}

type window struct {
	sum   int64
	count int64
}

func (w *window) add(seconds int64) {
	w.sum += seconds
	w.count++
}

// mean rounds to the nearest integer and is 0 for an empty window.
func (w window) mean() int64 {
	if w.count == 0 {
		return 0
	}
	return int64(math.Round(float64(w.sum) / float64(w.count)))
}

// Summarize aggregates entries dated within [from, to] together with the mean
// of every employee's weekly and monthly averages.
func (e *Engine) Summarize(ctx context.Context, from, to string) (models.Summary, error) {
	entries, err := e.ListEntries(ctx, storage.EntryFilter{From: from, To: to})
	if err != nil {
		return models.Summary{}, err
	}
	stats, err := e.ComputeUserStats(ctx, AllUsers)
	if err != nil {
		return models.Summary{}, err
	}

	sum := models.Summary{From: from, To: to, TrackedUsers: len(stats)}
	for _, entry := range entries {
		switch entry.Report.Attendance() {
		case models.Present:
			sum.PresentCount++
		case models.Absent:
			sum.AbsentCount++
		case models.AutoAbsent:
			sum.AutoAbsentCount++
		}
		if entry.IsLate {
			sum.LateCount++
		}
		if work, ok := entry.Report.Work(); ok {
			sum.TotalSeconds += work.SecondsDone
		}
	}

	var weekly, monthly window
	for _, s := range stats {
		weekly.add(s.WeeklyAverage)
		monthly.add(s.MonthlyAverage)
	}
	sum.OverallWeeklyAverage = weekly.mean()
	sum.OverallMonthlyAverage = monthly.mean()
	return sum, nil
}
