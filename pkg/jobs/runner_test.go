package jobs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/internal/testutil"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
	"github.com/smith3v/tg-habit-tracker/pkg/notify"
)

type sent struct {
	chatID string
	text   string
}

type recordingGateway struct {
	messages []sent
}

func (g *recordingGateway) Send(_ context.Context, chatID, text string) error {
	g.messages = append(g.messages, sent{chatID: chatID, text: text})
	return nil
}

type testEnv struct {
	store   *db.Store
	gateway *recordingGateway
	now     time.Time
	runner  *Runner
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	testutil.CaptureLogs(t, logger.ERROR)
	env := &testEnv{
		store:   testutil.SetupTestStore(t),
		gateway: &recordingGateway{},
		now:     now,
	}
	env.runner = NewRunner(env.store, notify.NewDispatcher(env.gateway), Options{
		Location: time.UTC,
		Now:      func() time.Time { return env.now },
	})
	return env
}

func TestInactivityCheckNeverCompleted(t *testing.T) {
	day0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(t, day0)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.store, "a@example.com", "100")
	testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID, Frequency: 7, CreatedAt: day0})

	env.now = day0.AddDate(0, 0, 7)
	summary, err := env.runner.InactivityCheck(ctx)
	if err != nil {
		t.Fatalf("inactivity check failed: %v", err)
	}
	if summary.Reminded != 0 {
		t.Fatalf("expected no reminder on day 7, got %d", summary.Reminded)
	}

	env.now = day0.AddDate(0, 0, 8)
	summary, err = env.runner.InactivityCheck(ctx)
	if err != nil {
		t.Fatalf("inactivity check failed: %v", err)
	}
	if summary.Reminded != 1 || summary.Delivered != 1 {
		t.Fatalf("expected one delivered reminder on day 8, got %+v", summary)
	}
	if len(env.gateway.messages) != 1 || !strings.Contains(env.gateway.messages[0].text, ReasonNeverCompleted) {
		t.Fatalf("expected never completed reason, got %+v", env.gateway.messages)
	}
}

func TestInactivityCheckIsIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)
	env := newTestEnv(t, now)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.store, "a@example.com", "100")
	stale := testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID, Action: "stale", CreatedAt: now.AddDate(0, 0, -30)})
	active := testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID, Action: "active", CreatedAt: now.AddDate(0, 0, -30)})
	if _, err := env.store.CreateCompletion(ctx, stale.ID, user.ID, now.AddDate(0, 0, -8)); err != nil {
		t.Fatalf("failed to create completion: %v", err)
	}
	if _, err := env.store.CreateCompletion(ctx, active.ID, user.ID, now.AddDate(0, 0, -7)); err != nil {
		t.Fatalf("failed to create completion: %v", err)
	}

	for run := 0; run < 2; run++ {
		before := len(env.gateway.messages)
		summary, err := env.runner.InactivityCheck(ctx)
		if err != nil {
			t.Fatalf("run %d failed: %v", run, err)
		}
		if summary.Reminded != 1 {
			t.Fatalf("run %d: expected exactly one reminder, got %d", run, summary.Reminded)
		}
		text := env.gateway.messages[before].text
		if !strings.Contains(text, "stale") || !strings.Contains(text, "last: 2025-03-12") {
			t.Fatalf("run %d: unexpected reminder %q", run, text)
		}
	}
}

func TestRetentionCleanupDeletesOldCompletions(t *testing.T) {
	now := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	env := newTestEnv(t, now)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.store, "a@example.com", "")
	habit := testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID})
	for _, days := range []int{91, 89} {
		if _, err := env.store.CreateCompletion(ctx, habit.ID, user.ID, now.AddDate(0, 0, -days)); err != nil {
			t.Fatalf("failed to create completion: %v", err)
		}
	}

	summary, err := env.runner.RetentionCleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if summary.Deleted != 1 {
		t.Fatalf("expected 1 deleted completion, got %d", summary.Deleted)
	}
	remaining, err := env.store.ListCompletions(ctx, habit.ID, user.ID, 0)
	if err != nil || len(remaining) != 1 {
		t.Fatalf("expected one remaining completion, got %d, %v", len(remaining), err)
	}
	if !db.DateOf(remaining[0].Date).Equal(db.DateOf(now.AddDate(0, 0, -89))) {
		t.Fatalf("expected the 89-day-old completion to survive, got %v", remaining[0].Date)
	}
	if summary.String() != "deleted 1 old completions" {
		t.Fatalf("unexpected summary %q", summary.String())
	}
}

func TestHourlyUpcomingWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	env := newTestEnv(t, now)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.store, "a@example.com", "100")
	testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID, Action: "late", TimeOfDay: "23:45"})
	afterMidnight := testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID, Action: "past midnight", TimeOfDay: "00:20"})
	testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID, Action: "too early", TimeOfDay: "22:00"})
	done := testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID, Action: "done", TimeOfDay: "23:50"})
	if _, err := env.store.CreateCompletion(ctx, done.ID, user.ID, now); err != nil {
		t.Fatalf("failed to create completion: %v", err)
	}
	// Done today, but the 00:20 slot in the window belongs to tomorrow.
	if _, err := env.store.CreateCompletion(ctx, afterMidnight.ID, user.ID, now); err != nil {
		t.Fatalf("failed to create completion: %v", err)
	}

	summary, err := env.runner.HourlyUpcoming(ctx)
	if err != nil {
		t.Fatalf("hourly job failed: %v", err)
	}
	if summary.Scanned != 3 || summary.Reminded != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	remindedAfterMidnight := false
	for _, msg := range env.gateway.messages {
		if strings.Contains(msg.text, "too early") || strings.Contains(msg.text, "<b>done</b>") {
			t.Fatalf("unexpected reminder %q", msg.text)
		}
		if strings.Contains(msg.text, "past midnight") {
			remindedAfterMidnight = true
		}
	}
	if !remindedAfterMidnight {
		t.Fatalf("expected a reminder for the habit due after midnight")
	}

	if _, err := env.store.CreateCompletion(ctx, afterMidnight.ID, user.ID, now.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("failed to create completion: %v", err)
	}
	summary, err = env.runner.HourlyUpcoming(ctx)
	if err != nil {
		t.Fatalf("hourly job failed: %v", err)
	}
	if summary.Reminded != 1 {
		t.Fatalf("expected tomorrow's completion to suppress the reminder, got %+v", summary)
	}
}

func TestMorningDigestSkipsCompletedHabits(t *testing.T) {
	now := time.Date(2025, 3, 1, 7, 30, 0, 0, time.UTC)
	env := newTestEnv(t, now)
	ctx := context.Background()
	withChat := testutil.CreateUser(t, env.store, "a@example.com", "100")
	noChat := testutil.CreateUser(t, env.store, "b@example.com", "")
	pending := testutil.CreateHabit(t, env.store, db.Habit{UserID: withChat.ID})
	completed := testutil.CreateHabit(t, env.store, db.Habit{UserID: withChat.ID})
	testutil.CreateHabit(t, env.store, db.Habit{UserID: noChat.ID})
	if _, err := env.store.CreateCompletion(ctx, completed.ID, withChat.ID, now); err != nil {
		t.Fatalf("failed to create completion: %v", err)
	}

	summary, err := env.runner.MorningDigest(ctx)
	if err != nil {
		t.Fatalf("morning digest failed: %v", err)
	}
	if summary.Reminded != 2 || summary.Delivered != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(env.gateway.messages) != 1 || env.gateway.messages[0].chatID != "100" {
		t.Fatalf("expected one delivered message for habit %d, got %+v", pending.ID, env.gateway.messages)
	}
}

func TestStatisticsSnapshotPersists(t *testing.T) {
	now := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
	env := newTestEnv(t, now)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.store, "a@example.com", "")
	habit := testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID})
	if _, err := env.store.CreateCompletion(ctx, habit.ID, user.ID, now); err != nil {
		t.Fatalf("failed to create completion: %v", err)
	}

	summary, err := env.runner.StatisticsSnapshot(ctx)
	if err != nil {
		t.Fatalf("statistics snapshot failed: %v", err)
	}
	if summary.Stats == nil || summary.Stats.TotalCompletions != 1 {
		t.Fatalf("unexpected stats: %+v", summary.Stats)
	}
	stored, _, err := env.store.LatestStatsSnapshot(ctx)
	if err != nil {
		t.Fatalf("failed to load stored snapshot: %v", err)
	}
	if stored.TotalHabits != 1 || stored.Date != "2025-03-01" {
		t.Fatalf("unexpected stored snapshot: %+v", stored)
	}
}

func TestTestNotification(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	user := testutil.CreateUser(t, env.store, "a@example.com", "100")
	testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID})
	admin := db.User{Email: "admin@example.com", IsStaff: true}
	chat := "900"
	admin.TelegramChatID = &chat
	if err := env.store.CreateUser(ctx, &admin); err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	if err := env.store.CreateUser(ctx, &db.User{Email: "quiet-admin@example.com", IsStaff: true}); err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	summary, err := env.runner.TestNotification(ctx, &user.ID, "ping")
	if err != nil || summary.Delivered != 1 {
		t.Fatalf("expected delivered test notification, got %+v, %v", summary, err)
	}
	if env.gateway.messages[0].text != "ping" {
		t.Fatalf("expected custom message, got %q", env.gateway.messages[0].text)
	}

	summary, err = env.runner.TestNotification(ctx, nil, "")
	if err != nil {
		t.Fatalf("staff notification failed: %v", err)
	}
	if summary.Scanned != 2 || summary.Delivered != 1 {
		t.Fatalf("unexpected staff summary: %+v", summary)
	}
	last := env.gateway.messages[len(env.gateway.messages)-1]
	if last.chatID != "900" || last.text != notify.DefaultTestMessage {
		t.Fatalf("unexpected staff message: %+v", last)
	}

	summary, err = env.runner.TestNotification(ctx, &admin.ID, "ping")
	if err != nil || summary.Delivered != 0 || summary.Note == "" {
		t.Fatalf("expected admin without habits to be skipped, got %+v, %v", summary, err)
	}
}
