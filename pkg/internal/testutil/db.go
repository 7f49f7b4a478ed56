package testutil

import (
	"context"
	"testing"

	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB opens a private in-memory sqlite database, migrates the schema
// and installs it as db.DB for the duration of the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}
	// Each connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	db.DB = gdb

	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
		db.DB = nil
	})
	return gdb
}

// SetupTestStore is SetupTestDB wrapped in a Store.
func SetupTestStore(t *testing.T) *db.Store {
	t.Helper()
	return db.NewStore(SetupTestDB(t))
}

// CreateUser inserts a user, optionally linked to a Telegram chat.
func CreateUser(t *testing.T, store *db.Store, email, chatID string) db.User {
	t.Helper()
	user := db.User{Email: email}
	if chatID != "" {
		user.TelegramChatID = &chatID
	}
	if err := store.CreateUser(context.Background(), &user); err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

// CreateHabit fills required fields that the caller left empty and inserts the
// habit.
func CreateHabit(t *testing.T, store *db.Store, habit db.Habit) db.Habit {
	t.Helper()
	if habit.Place == "" {
		habit.Place = "home"
	}
	if habit.Action == "" {
		habit.Action = "stretch"
	}
	if habit.TimeOfDay == "" {
		habit.TimeOfDay = "08:00"
	}
	if habit.Duration == 0 {
		habit.Duration = 60
	}
	if habit.Frequency == 0 {
		habit.Frequency = 1
	}
	if err := store.CreateHabit(context.Background(), &habit); err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	return habit
}
