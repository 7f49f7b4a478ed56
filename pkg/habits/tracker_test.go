package habits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/internal/testutil"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advanceDays(days int) {
	c.now = c.now.AddDate(0, 0, days)
}

func newTestTracker(t *testing.T, start time.Time) (*db.Store, *Tracker, *fakeClock) {
	t.Helper()
	store := testutil.SetupTestStore(t)
	clock := &fakeClock{now: start}
	return store, NewTracker(store, time.UTC, clock.Now), clock
}

func TestMarkCompletedTwiceSameDay(t *testing.T) {
	store, tracker, _ := newTestTracker(t, time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	user := testutil.CreateUser(t, store, "a@example.com", "")
	habit := testutil.CreateHabit(t, store, db.Habit{UserID: user.ID})

	if _, err := tracker.MarkCompleted(ctx, habit, user.ID); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}
	if _, err := tracker.MarkCompleted(ctx, habit, user.ID); !errors.Is(err, ErrAlreadyCompletedToday) {
		t.Fatalf("expected ErrAlreadyCompletedToday, got %v", err)
	}
}

func TestMarkCompletedLosesInsertRace(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	store := db.NewStore(gdb)
	clock := &fakeClock{now: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
	tracker := NewTracker(store, time.UTC, clock.Now)
	ctx := context.Background()
	user := testutil.CreateUser(t, store, "a@example.com", "")
	habit := testutil.CreateHabit(t, store, db.Habit{UserID: user.ID})

	// A concurrent request records the same day after the exists check has
	// passed but before this insert runs.
	raced := false
	err := gdb.Callback().Create().Before("gorm:create").Register("test:concurrent_completion", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "habit_completions" {
			return
		}
		raced = true
		rival := db.HabitCompletion{HabitID: habit.ID, UserID: user.ID, Date: tracker.Today()}
		if err := tx.Session(&gorm.Session{NewDB: true}).Omit(clause.Associations).Create(&rival).Error; err != nil {
			t.Errorf("failed to insert concurrent completion: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	_, err = tracker.MarkCompleted(ctx, habit, user.ID)
	if !raced {
		t.Fatalf("expected the concurrent insert to run")
	}
	if !errors.Is(err, ErrAlreadyCompletedToday) {
		t.Fatalf("expected ErrAlreadyCompletedToday, got %v", err)
	}
}

func TestMarkCompletedStaleAfterGap(t *testing.T) {
	store, tracker, clock := newTestTracker(t, time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	user := testutil.CreateUser(t, store, "a@example.com", "")
	habit := testutil.CreateHabit(t, store, db.Habit{UserID: user.ID})

	if _, err := tracker.MarkCompleted(ctx, habit, user.ID); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}

	clock.advanceDays(9)
	_, err := tracker.MarkCompleted(ctx, habit, user.ID)
	if !errors.Is(err, ErrStaleHabit) {
		t.Fatalf("expected ErrStaleHabit, got %v", err)
	}
	exists, err := store.CompletionExists(ctx, habit.ID, user.ID, tracker.Today())
	if err != nil || exists {
		t.Fatalf("expected no completion on stale day, got %v, %v", exists, err)
	}
}

func TestMarkCompletedAllowsSevenDayGap(t *testing.T) {
	store, tracker, clock := newTestTracker(t, time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	user := testutil.CreateUser(t, store, "a@example.com", "")
	habit := testutil.CreateHabit(t, store, db.Habit{UserID: user.ID})

	if _, err := tracker.MarkCompleted(ctx, habit, user.ID); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}
	clock.advanceDays(7)
	completion, err := tracker.MarkCompleted(ctx, habit, user.ID)
	if err != nil {
		t.Fatalf("expected completion after exactly 7 days, got %v", err)
	}
	if !completion.Date.Equal(time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected completion date: %v", completion.Date)
	}
}

func TestMarkCompletedUsesLocalDate(t *testing.T) {
	store := testutil.SetupTestStore(t)
	loc := time.FixedZone("UTC+3", 3*60*60)
	clock := &fakeClock{now: time.Date(2025, 4, 1, 22, 30, 0, 0, time.UTC)}
	tracker := NewTracker(store, loc, clock.Now)
	user := testutil.CreateUser(t, store, "a@example.com", "")
	habit := testutil.CreateHabit(t, store, db.Habit{UserID: user.ID})

	completion, err := tracker.MarkCompleted(context.Background(), habit, user.ID)
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if !completion.Date.Equal(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected local calendar date 2025-04-02, got %v", completion.Date)
	}
}

func TestCheckConsistencyOnSave(t *testing.T) {
	start := time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC)
	store, tracker, _ := newTestTracker(t, start)
	ctx := context.Background()
	user := testutil.CreateUser(t, store, "a@example.com", "")

	if err := tracker.CheckConsistencyOnSave(ctx, db.Habit{CreatedAt: start.AddDate(0, 0, -30)}); err != nil {
		t.Fatalf("expected unsaved habit to skip the check, got %v", err)
	}

	fresh := testutil.CreateHabit(t, store, db.Habit{UserID: user.ID, CreatedAt: start.AddDate(0, 0, -7)})
	if err := tracker.CheckConsistencyOnSave(ctx, fresh); err != nil {
		t.Fatalf("expected habit created 7 days ago to pass, got %v", err)
	}

	lapsed := testutil.CreateHabit(t, store, db.Habit{UserID: user.ID, CreatedAt: start.AddDate(0, 0, -8)})
	if err := tracker.CheckConsistencyOnSave(ctx, lapsed); !errors.Is(err, ErrHabitInconsistent) {
		t.Fatalf("expected ErrHabitInconsistent, got %v", err)
	}

	if _, err := store.CreateCompletion(ctx, lapsed.ID, user.ID, start.AddDate(0, 0, -7)); err != nil {
		t.Fatalf("failed to create completion: %v", err)
	}
	if err := tracker.CheckConsistencyOnSave(ctx, lapsed); err != nil {
		t.Fatalf("expected recent completion to satisfy the check, got %v", err)
	}
}
