// Package habits implements completion tracking and the habit operations
// exposed to the bot, the CLI and the ops API.
package habits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
	"github.com/smith3v/tg-habit-tracker/pkg/validation"
)

// Tracker records completions and enforces the 7-day cadence rule. "Today" is
// the calendar date of now() in loc.
type Tracker struct {
	store *db.Store
	now   func() time.Time
	loc   *time.Location
}

func NewTracker(store *db.Store, loc *time.Location, now func() time.Time) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, now: now, loc: loc}
}

// Today returns the current calendar date as stored in completion rows.
func (t *Tracker) Today() time.Time {
	return db.DateOf(t.now().In(t.loc))
}

// MarkCompleted records that userID performed habit today.
func (t *Tracker) MarkCompleted(ctx context.Context, habit db.Habit, userID uint) (db.HabitCompletion, error) {
	today := t.Today()

	exists, err := t.store.CompletionExists(ctx, habit.ID, userID, today)
	if err != nil {
		return db.HabitCompletion{}, fmt.Errorf("check today's completion: %w", err)
	}
	if exists {
		return db.HabitCompletion{}, ErrAlreadyCompletedToday
	}

	last, ok, err := t.store.LatestCompletion(ctx, habit.ID, userID)
	if err != nil {
		return db.HabitCompletion{}, fmt.Errorf("load latest completion: %w", err)
	}
	if ok && validation.CadenceBroken(today, last) {
		return db.HabitCompletion{}, fmt.Errorf("%w (last: %s)", ErrStaleHabit, last.Format(time.DateOnly))
	}

	completion, err := t.store.CreateCompletion(ctx, habit.ID, userID, today)
	if errors.Is(err, db.ErrDuplicateCompletion) {
		// Lost a race with a concurrent request for the same day.
		return db.HabitCompletion{}, ErrAlreadyCompletedToday
	}
	if err != nil {
		return db.HabitCompletion{}, fmt.Errorf("record completion: %w", err)
	}

	logger.Info("habit completed", "habit_id", habit.ID, "user_id", userID, "date", today.Format(time.DateOnly))
	return completion, nil
}

// CheckConsistencyOnSave rejects updates to a lapsed habit: one created more
// than 7 days ago with no completion in the trailing 7 days. Unsaved habits
// always pass.
func (t *Tracker) CheckConsistencyOnSave(ctx context.Context, habit db.Habit) error {
	if habit.ID == 0 {
		return nil
	}
	windowStart := t.Today().AddDate(0, 0, -validation.MaxCompletionGapDays)

	recent, err := t.store.HasCompletionSince(ctx, habit.ID, windowStart)
	if err != nil {
		return fmt.Errorf("check recent completions: %w", err)
	}
	if recent {
		return nil
	}
	if db.DateOf(habit.CreatedAt.In(t.loc)).Before(windowStart) {
		return ErrHabitInconsistent
	}
	return nil
}
