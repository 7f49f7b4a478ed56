package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the habit repository. All methods honour the context passed in.
type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// DefaultStore wraps the package-level connection opened by InitDB.
func DefaultStore() *Store {
	return NewStore(DB)
}

// Ping reports whether the underlying connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("database is not initialised")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// HabitFilter narrows ListHabits. Zero values mean "no constraint".
type HabitFilter struct {
	UserID           uint
	ExcludeUserID    uint
	OwnerOrPublicFor uint
	IsPublic         *bool
	IsPleasant       *bool
	// TimeFrom and TimeTo bound time_of_day inclusively. When TimeFrom is
	// after TimeTo the range wraps past midnight.
	TimeFrom string
	TimeTo   string
}

func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return fmt.Errorf("user %q already exists: %w", user.Email, err)
		}
		return err
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, id uint) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	return user, translateError(err)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	return user, translateError(err)
}

func (s *Store) FindUserByChatID(ctx context.Context, chatID string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).Take(&user).Error
	return user, translateError(err)
}

// LinkTelegramChat stores chatID as the user's messaging channel. A chat can
// belong to one user only, so any previous owner is unlinked first.
func (s *Store) LinkTelegramChat(ctx context.Context, userID uint, chatID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return linkChat(tx, userID, chatID)
	})
}

// IssueLinkCode gives the user a fresh one-time link code valid until
// expiresAt. Any earlier code stops working.
func (s *Store) IssueLinkCode(ctx context.Context, userID uint, expiresAt time.Time) (string, error) {
	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).UpdateColumns(map[string]any{
		"link_code":            code,
		"link_code_expires_at": expiresAt.UTC(),
	})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrNotFound
	}
	return code, nil
}

// RedeemLinkCode links chatID to the owner of code and consumes the code.
// Unknown, used and expired codes all give ErrNotFound.
func (s *Store) RedeemLinkCode(ctx context.Context, code, chatID string, now time.Time) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_code = ? AND link_code_expires_at > ?", code, now.UTC()).Take(&user).Error; err != nil {
			return translateError(err)
		}
		res := tx.Model(&User{}).Where("id = ? AND link_code = ?", user.ID, code).UpdateColumns(map[string]any{
			"link_code":            nil,
			"link_code_expires_at": nil,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return linkChat(tx, user.ID, chatID)
	})
	if err != nil {
		return User{}, err
	}
	user.TelegramChatID = &chatID
	user.LinkCode = nil
	user.LinkCodeExpiresAt = nil
	return user, nil
}

func linkChat(tx *gorm.DB, userID uint, chatID string) error {
	if err := tx.Model(&User{}).
		Where("telegram_chat_id = ? AND id <> ?", chatID, userID).
		Update("telegram_chat_id", nil).Error; err != nil {
		return err
	}
	res := tx.Model(&User{}).Where("id = ?", userID).Update("telegram_chat_id", chatID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListStaffUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).Where("is_staff = ?", true).Order("id").Find(&users).Error
	return users, err
}

// DeleteUser removes the user with their habits and completions. The cascade
// is issued explicitly so it does not depend on the driver enforcing foreign
// keys.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		habitIDs := tx.Model(&Habit{}).Select("id").Where("user_id = ?", id)
		if err := tx.Model(&Habit{}).
			Where("related_habit_id IN (?)", habitIDs).
			UpdateColumn("related_habit_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR habit_id IN (?)", id, habitIDs).Delete(&HabitCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&Habit{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Store) CreateHabit(ctx context.Context, habit *Habit) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(habit).Error
}

// SaveHabit persists every column of an existing habit. CreatedAt is never
// rewritten.
func (s *Store) SaveHabit(ctx context.Context, habit *Habit) error {
	if habit.ID == 0 {
		return s.CreateHabit(ctx, habit)
	}
	return s.db.WithContext(ctx).Omit(clause.Associations, "created_at").Save(habit).Error
}

func (s *Store) FindHabit(ctx context.Context, id uint) (Habit, error) {
	var habit Habit
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("RelatedHabit").
		Where("id = ?", id).
		Take(&habit).Error
	return habit, translateError(err)
}

func (s *Store) ListHabits(ctx context.Context, filter HabitFilter) ([]Habit, error) {
	query := s.db.WithContext(ctx).Model(&Habit{}).Preload("User")
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ExcludeUserID != 0 {
		query = query.Where("user_id <> ?", filter.ExcludeUserID)
	}
	if filter.OwnerOrPublicFor != 0 {
		query = query.Where("user_id = ? OR is_public = ?", filter.OwnerOrPublicFor, true)
	}
	if filter.IsPublic != nil {
		query = query.Where("is_public = ?", *filter.IsPublic)
	}
	if filter.IsPleasant != nil {
		query = query.Where("is_pleasant = ?", *filter.IsPleasant)
	}
	switch {
	case filter.TimeFrom != "" && filter.TimeTo != "" && filter.TimeFrom > filter.TimeTo:
		query = query.Where("time_of_day >= ? OR time_of_day <= ?", filter.TimeFrom, filter.TimeTo)
	case filter.TimeFrom != "" && filter.TimeTo != "":
		query = query.Where("time_of_day BETWEEN ? AND ?", filter.TimeFrom, filter.TimeTo)
	case filter.TimeFrom != "":
		query = query.Where("time_of_day >= ?", filter.TimeFrom)
	case filter.TimeTo != "":
		query = query.Where("time_of_day <= ?", filter.TimeTo)
	}

	var habits []Habit
	err := query.Order("id").Find(&habits).Error
	return habits, err
}

func (s *Store) FirstHabitForUser(ctx context.Context, userID uint) (Habit, error) {
	var habit Habit
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("id").
		First(&habit).Error
	return habit, translateError(err)
}

// DeleteHabit removes the habit and its completions and clears the link of any
// habit that used it as its related habit.
func (s *Store) DeleteHabit(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Habit{}).
			Where("related_habit_id = ?", id).
			UpdateColumn("related_habit_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("habit_id = ?", id).Delete(&HabitCompletion{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Habit{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Store) CompletionExists(ctx context.Context, habitID, userID uint, date time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&HabitCompletion{}).
		Where("habit_id = ? AND user_id = ? AND date = ?", habitID, userID, DateOf(date)).
		Count(&count).Error
	return count > 0, err
}

// LatestCompletion returns the most recent completion date. ok is false when
// the habit was never completed by the user.
func (s *Store) LatestCompletion(ctx context.Context, habitID, userID uint) (date time.Time, ok bool, err error) {
	var completion HabitCompletion
	err = s.db.WithContext(ctx).
		Where("habit_id = ? AND user_id = ?", habitID, userID).
		Order("date DESC").
		Limit(1).
		Find(&completion).Error
	if err != nil {
		return time.Time{}, false, err
	}
	if completion.ID == 0 {
		return time.Time{}, false, nil
	}
	return DateOf(completion.Date), true, nil
}

// CreateCompletion inserts the completion or fails with ErrDuplicateCompletion.
// The unique index on (habit_id, user_id, date) decides, not a prior read.
func (s *Store) CreateCompletion(ctx context.Context, habitID, userID uint, date time.Time) (HabitCompletion, error) {
	completion := HabitCompletion{HabitID: habitID, UserID: userID, Date: DateOf(date)}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&completion).Error; err != nil {
		return HabitCompletion{}, translateError(err)
	}
	return completion, nil
}

// HasCompletionSince reports whether anyone completed the habit on or after
// since.
func (s *Store) HasCompletionSince(ctx context.Context, habitID uint, since time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&HabitCompletion{}).
		Where("habit_id = ? AND date >= ?", habitID, DateOf(since)).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) ListCompletions(ctx context.Context, habitID, userID uint, limit int) ([]HabitCompletion, error) {
	query := s.db.WithContext(ctx).
		Where("habit_id = ? AND user_id = ?", habitID, userID).
		Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var completions []HabitCompletion
	err := query.Find(&completions).Error
	return completions, err
}

// DeleteCompletionsBefore removes completions dated strictly before cutoff.
func (s *Store) DeleteCompletionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("date < ?", DateOf(cutoff)).Delete(&HabitCompletion{})
	return res.RowsAffected, res.Error
}
