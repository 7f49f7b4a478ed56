// Package jobs holds the periodic habit jobs and the cron scheduler that
// drives them.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smith3v/tg-habit-tracker/pkg/config"
	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
	"github.com/smith3v/tg-habit-tracker/pkg/notify"
	"github.com/smith3v/tg-habit-tracker/pkg/validation"
)

const (
	ReasonNeverCompleted = "never completed"
	upcomingWindow       = time.Hour
)

// Summary is the outcome of one job run.
type Summary struct {
	Job       string
	Scanned   int
	Reminded  int
	Delivered int
	Deleted   int64
	Stats     *db.Stats
	Note      string
}

func (s Summary) String() string {
	switch s.Job {
	case config.JobRetentionCleanup:
		return fmt.Sprintf("deleted %d old completions", s.Deleted)
	case config.JobStatisticsSnapshot:
		if s.Stats == nil {
			return "statistics snapshot is empty"
		}
		return fmt.Sprintf("statistics for %s: %d habits, %d completions, %d active users",
			s.Stats.Date, s.Stats.TotalHabits, s.Stats.TotalCompletions, s.Stats.ActiveUsers)
	}
	msg := fmt.Sprintf("%s: %d habits checked, %d reminders sent, %d delivered", s.Job, s.Scanned, s.Reminded, s.Delivered)
	if s.Note != "" {
		msg += " (" + s.Note + ")"
	}
	return msg
}

// Runner executes the jobs against the store. It keeps no state between runs.
type Runner struct {
	store         *db.Store
	dispatcher    *notify.Dispatcher
	loc           *time.Location
	now           func() time.Time
	retentionDays int
}

type Options struct {
	Location      *time.Location
	Now           func() time.Time
	RetentionDays int
}

func NewRunner(store *db.Store, dispatcher *notify.Dispatcher, opts Options) *Runner {
	r := &Runner{
		store:         store,
		dispatcher:    dispatcher,
		loc:           opts.Location,
		now:           opts.Now,
		retentionDays: opts.RetentionDays,
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.retentionDays <= 0 {
		r.retentionDays = config.DefaultRetentionDays
	}
	return r
}

func (r *Runner) localNow() time.Time {
	return r.now().In(r.loc)
}

// HourlyUpcoming reminds owners of habits scheduled within the next hour that
// are not yet completed today.
func (r *Runner) HourlyUpcoming(ctx context.Context) (Summary, error) {
	now := r.localNow()
	from := now.Format(validation.TimeOfDayLayout)
	habits, err := r.store.ListHabits(ctx, db.HabitFilter{
		TimeFrom: from,
		TimeTo:   now.Add(upcomingWindow).Format(validation.TimeOfDayLayout),
	})
	if err != nil {
		return Summary{Job: config.JobHourlyUpcoming}, fmt.Errorf("list upcoming habits: %w", err)
	}
	today := db.DateOf(now)
	tomorrow := today.AddDate(0, 0, 1)
	// Habits earlier than now on the clock fall after midnight.
	dueDate := func(h db.Habit) time.Time {
		if h.TimeOfDay < from {
			return tomorrow
		}
		return today
	}
	return r.remindPending(ctx, config.JobHourlyUpcoming, habits, dueDate, notify.KindDaily), nil
}

// MorningDigest reminds owners of every habit not yet completed today.
func (r *Runner) MorningDigest(ctx context.Context) (Summary, error) {
	habits, err := r.store.ListHabits(ctx, db.HabitFilter{})
	if err != nil {
		return Summary{Job: config.JobMorningDigest}, fmt.Errorf("list habits: %w", err)
	}
	today := db.DateOf(r.localNow())
	return r.remindPending(ctx, config.JobMorningDigest, habits, func(db.Habit) time.Time { return today }, notify.KindMorning), nil
}

// remindPending reminds the owner of every habit not completed on its
// dueDate.
func (r *Runner) remindPending(ctx context.Context, job string, habits []db.Habit, dueDate func(db.Habit) time.Time, kind notify.Kind) Summary {
	summary := Summary{Job: job, Scanned: len(habits)}
	for _, habit := range habits {
		done, err := r.store.CompletionExists(ctx, habit.ID, habit.UserID, dueDate(habit))
		if err != nil {
			logger.Error("failed to check today's completion", "job", job, "habit_id", habit.ID, "error", err)
			continue
		}
		if done {
			continue
		}
		res := r.dispatcher.SendReminder(ctx, habit.User, habit, notify.Reminder{Kind: kind})
		summary.Reminded++
		if res.Delivered {
			summary.Delivered++
		}
	}
	return summary
}

// InactivityCheck reminds owners of habits that were never completed since
// being created more than 7 days ago, or whose last completion is more than
// 7 days old.
func (r *Runner) InactivityCheck(ctx context.Context) (Summary, error) {
	summary := Summary{Job: config.JobInactivityCheck}
	habits, err := r.store.ListHabits(ctx, db.HabitFilter{})
	if err != nil {
		return summary, fmt.Errorf("list habits: %w", err)
	}
	summary.Scanned = len(habits)

	today := db.DateOf(r.localNow())
	for _, habit := range habits {
		reason, remind, err := r.inactivityReason(ctx, habit, today)
		if err != nil {
			logger.Error("failed to check habit activity", "job", summary.Job, "habit_id", habit.ID, "error", err)
			continue
		}
		if !remind {
			continue
		}
		res := r.dispatcher.SendReminder(ctx, habit.User, habit, notify.Reminder{Kind: notify.KindInactive, Reason: reason})
		summary.Reminded++
		if res.Delivered {
			summary.Delivered++
		}
		logger.Info("inactivity reminder sent", "job", summary.Job, "habit_id", habit.ID, "user_id", habit.UserID, "reason", reason)
	}
	return summary, nil
}

func (r *Runner) inactivityReason(ctx context.Context, habit db.Habit, today time.Time) (string, bool, error) {
	last, ok, err := r.store.LatestCompletion(ctx, habit.ID, habit.UserID)
	if err != nil {
		return "", false, err
	}
	if !ok {
		created := db.DateOf(habit.CreatedAt.In(r.loc))
		if validation.DaysBetween(created, today) > validation.MaxCompletionGapDays {
			return ReasonNeverCompleted, true, nil
		}
		return "", false, nil
	}
	if validation.CadenceBroken(today, last) {
		return fmt.Sprintf("not completed for more than %d days (last: %s)", validation.MaxCompletionGapDays, last.Format(time.DateOnly)), true, nil
	}
	return "", false, nil
}

// RetentionCleanup deletes completions older than the retention window.
func (r *Runner) RetentionCleanup(ctx context.Context) (Summary, error) {
	summary := Summary{Job: config.JobRetentionCleanup}
	cutoff := db.DateOf(r.localNow()).AddDate(0, 0, -r.retentionDays)
	deleted, err := r.store.DeleteCompletionsBefore(ctx, cutoff)
	if err != nil {
		return summary, fmt.Errorf("delete completions before %s: %w", cutoff.Format(time.DateOnly), err)
	}
	summary.Deleted = deleted
	return summary, nil
}

// StatisticsSnapshot computes the aggregate statistics, logs them and keeps a
// copy in the stats_snapshots table.
func (r *Runner) StatisticsSnapshot(ctx context.Context) (Summary, error) {
	summary := Summary{Job: config.JobStatisticsSnapshot}
	now := r.localNow()
	stats, err := r.store.CollectStats(ctx, now)
	if err != nil {
		return summary, fmt.Errorf("collect statistics: %w", err)
	}
	summary.Stats = &stats

	logger.Info("habit statistics",
		"date", stats.Date,
		"total_habits", stats.TotalHabits,
		"total_completions", stats.TotalCompletions,
		"active_users", stats.ActiveUsers,
		"public_habits", stats.PublicHabits,
		"pleasant_habits", stats.PleasantHabits,
		"useful_habits", stats.UsefulHabits,
		"avg_completions_per_user", stats.AvgCompletionsPerUser,
		"completions_last_7_days", stats.CompletionsLast7Days,
		"completions_last_30_days", stats.CompletionsLast30Days,
	)

	if _, err := r.store.SaveStatsSnapshot(ctx, now, stats); err != nil {
		// The computed statistics are still returned; only the history row is lost.
		logger.Error("failed to persist statistics snapshot", "job", summary.Job, "error", err)
	}
	return summary, nil
}

// TestNotification sends message to one user through their first habit, or to
// every staff user with a channel when userID is nil.
func (r *Runner) TestNotification(ctx context.Context, userID *uint, message string) (Summary, error) {
	summary := Summary{Job: "test_notification"}
	if strings.TrimSpace(message) == "" {
		message = notify.DefaultTestMessage
	}
	reminder := notify.Reminder{Kind: notify.KindTest, CustomMessage: message}

	if userID != nil {
		user, err := r.store.FindUser(ctx, *userID)
		if err != nil {
			return summary, fmt.Errorf("load user %d: %w", *userID, err)
		}
		habit, err := r.store.FirstHabitForUser(ctx, user.ID)
		if errors.Is(err, db.ErrNotFound) || (err == nil && !user.HasChannel()) {
			summary.Note = "user has no habits or no messaging channel"
			return summary, nil
		}
		if err != nil {
			return summary, fmt.Errorf("load first habit of user %d: %w", user.ID, err)
		}
		summary.Scanned = 1
		summary.Reminded = 1
		if r.dispatcher.SendReminder(ctx, user, habit, reminder).Delivered {
			summary.Delivered = 1
		}
		return summary, nil
	}

	staff, err := r.store.ListStaffUsers(ctx)
	if err != nil {
		return summary, fmt.Errorf("list staff users: %w", err)
	}
	summary.Scanned = len(staff)
	for _, admin := range staff {
		if !admin.HasChannel() {
			continue
		}
		summary.Reminded++
		if r.dispatcher.SendReminder(ctx, admin, db.Habit{}, reminder).Delivered {
			summary.Delivered++
		}
	}
	return summary, nil
}
