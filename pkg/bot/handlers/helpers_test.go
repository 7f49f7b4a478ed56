package handlers

import (
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-habit-tracker/pkg/config"
	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/habits"
	"github.com/smith3v/tg-habit-tracker/pkg/internal/testutil"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
)

var testNow = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store   *db.Store
	handler *Handler
	client  *testutil.TelegramClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	testutil.CaptureLogs(t, logger.ERROR)
	store := testutil.SetupTestStore(t)
	tracker := habits.NewTracker(store, time.UTC, func() time.Time { return testNow })
	handler := New(store, habits.NewService(store, tracker, config.ConsistencyAllUpdates))
	handler.now = func() time.Time { return testNow }
	return &testEnv{
		store:   store,
		handler: handler,
		client:  testutil.NewTelegramClient(),
	}
}

func newTestUpdate(text string, chatID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{
				ID: chatID,
			},
			Chat: models.Chat{
				ID:   chatID,
				Type: models.ChatTypePrivate,
			},
			Text: text,
		},
	}
}

func newTestCallbackUpdate(data string, userID, chatID int64, messageID int) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "callback-1",
			From: models.User{ID: userID},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID: messageID,
					Chat: models.Chat{
						ID:   chatID,
						Type: models.ChatTypePrivate,
					},
				},
			},
		},
	}
}
