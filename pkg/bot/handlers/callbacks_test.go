package handlers

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/internal/testutil"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestHandleCallbackDone(t *testing.T) {
	env := newTestEnv(t)
	b := testutil.NewTelegramBot(t, env.client)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.store, "a@example.com", "501")
	habit := testutil.CreateHabit(t, env.store, db.Habit{UserID: user.ID, Action: "run"})

	env.handler.HandleCallback(ctx, b, newTestCallbackUpdate("h:done:"+itoa(habit.ID), 501, 501, 33))

	exists, err := env.store.CompletionExists(ctx, habit.ID, user.ID, testNow)
	if err != nil || !exists {
		t.Fatalf("expected completion to be recorded, got %v, %v", exists, err)
	}

	requests := env.client.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected answer and edit requests, got %d", len(requests))
	}
	if !strings.HasSuffix(requests[0].Path, "/answerCallbackQuery") || !strings.Contains(string(requests[0].Body), "Marked as done") {
		t.Fatalf("unexpected callback answer: %s %s", requests[0].Path, requests[0].Body)
	}
	if !strings.HasSuffix(requests[1].Path, "/editMessageText") {
		t.Fatalf("expected list refresh, got %s", requests[1].Path)
	}
	if got := env.client.LastMessageText(t); !strings.Contains(got, "✅") {
		t.Fatalf("expected refreshed list to show completion, got %q", got)
	}
}

func TestHandleCallbackTogglePublicRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	b := testutil.NewTelegramBot(t, env.client)
	ctx := context.Background()
	owner := testutil.CreateUser(t, env.store, "owner@example.com", "")
	testutil.CreateUser(t, env.store, "intruder@example.com", "501")
	habit := testutil.CreateHabit(t, env.store, db.Habit{UserID: owner.ID})

	env.handler.HandleCallback(ctx, b, newTestCallbackUpdate("h:pub:"+itoa(habit.ID), 501, 501, 33))

	reloaded, err := env.store.FindHabit(ctx, habit.ID)
	if err != nil || reloaded.IsPublic {
		t.Fatalf("expected habit to stay private, got %+v, %v", reloaded, err)
	}
	if body := string(env.client.Requests()[0].Body); !strings.Contains(body, msgNotFound) {
		t.Fatalf("expected not found answer, got %q", body)
	}
}

func TestHandleCallbackInvalidData(t *testing.T) {
	env := newTestEnv(t)
	b := testutil.NewTelegramBot(t, env.client)

	env.handler.HandleCallback(context.Background(), b, newTestCallbackUpdate("h:done:x", 501, 501, 33))

	requests := env.client.Requests()
	if len(requests) != 1 || !strings.Contains(string(requests[0].Body), "Unknown command") {
		t.Fatalf("expected unknown command answer, got %+v", requests)
	}
}
