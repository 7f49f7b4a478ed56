package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smith3v/tg-habit-tracker/pkg/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID                uint       `gorm:"primaryKey"`
	Email             string     `gorm:"size:254;not null;uniqueIndex"`
	TelegramChatID    *string    `gorm:"size:100;index"` // nil until the user links a chat
	IsStaff           bool       `gorm:"not null;default:false"`
	LinkCode          *string    `gorm:"size:64;uniqueIndex"` // one-time secret redeemed with /start
	LinkCodeExpiresAt *time.Time
	CreatedAt         time.Time
}

func (u User) HasChannel() bool {
	return u.TelegramChatID != nil && *u.TelegramChatID != ""
}

type Habit struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         uint      `gorm:"not null;index"`
	User           User      `gorm:"constraint:OnDelete:CASCADE"`
	Place          string    `gorm:"size:255;not null"`
	TimeOfDay      string    `gorm:"size:5;not null;index"` // HH:MM
	Action         string    `gorm:"size:255;not null"`
	Duration       int       `gorm:"not null"` // seconds
	Frequency      int       `gorm:"not null"` // days
	IsPleasant     bool      `gorm:"not null;default:false"`
	IsPublic       bool      `gorm:"not null;default:false"`
	Reward         string    `gorm:"size:255"`
	RelatedHabitID *uint     `gorm:"index"`
	RelatedHabit   *Habit    `gorm:"constraint:OnDelete:SET NULL"`
	CreatedAt      time.Time `gorm:"<-:create"`
}

type HabitCompletion struct {
	ID      uint      `gorm:"primaryKey"`
	HabitID uint      `gorm:"not null;uniqueIndex:idx_completion_habit_user_date"`
	Habit   Habit     `gorm:"constraint:OnDelete:CASCADE"`
	UserID  uint      `gorm:"not null;index;uniqueIndex:idx_completion_habit_user_date"`
	User    User      `gorm:"constraint:OnDelete:CASCADE"`
	Date    time.Time `gorm:"type:date;not null;index;uniqueIndex:idx_completion_habit_user_date"`
}

type StatsSnapshot struct {
	ID      uint           `gorm:"primaryKey"`
	TakenAt time.Time      `gorm:"not null;index"`
	Payload datatypes.JSON `gorm:"not null"`
}

func allModels() []any {
	return []any{&User{}, &Habit{}, &HabitCompletion{}, &StatsSnapshot{}}
}

// RuleFields maps the habit onto the validation input. relatedIsPleasant is
// ignored when the habit has no related habit.
func (h Habit) RuleFields(relatedIsPleasant bool) validation.Fields {
	return validation.Fields{
		Action:            h.Action,
		Place:             h.Place,
		TimeOfDay:         h.TimeOfDay,
		Duration:          h.Duration,
		Frequency:         h.Frequency,
		IsPleasant:        h.IsPleasant,
		Reward:            h.Reward,
		HasRelated:        h.RelatedHabitID != nil,
		RelatedIsPleasant: h.RelatedHabitID != nil && relatedIsPleasant,
	}
}

// BeforeSave runs the field rules on every create and update, whichever code
// path issued it.
func (h *Habit) BeforeSave(tx *gorm.DB) error {
	relatedIsPleasant := false
	if h.RelatedHabitID != nil {
		pleasant, err := relatedHabitIsPleasant(tx.Statement.Context, tx.Session(&gorm.Session{NewDB: true}), *h.RelatedHabitID)
		if err != nil {
			return err
		}
		relatedIsPleasant = pleasant
	}
	return validation.ValidateHabit(h.RuleFields(relatedIsPleasant))
}

func relatedHabitIsPleasant(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var related Habit
	err := tx.WithContext(ctx).Select("id", "is_pleasant").Where("id = ?", id).Take(&related).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, &validation.Error{Field: validation.FieldRelatedHabit, Reason: "related habit does not exist"}
	}
	if err != nil {
		return false, fmt.Errorf("load related habit %d: %w", id, err)
	}
	return related.IsPleasant, nil
}

// DateOf truncates t to its calendar date in t's own location and returns it
// as midnight UTC, the form completion dates are stored in.
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
