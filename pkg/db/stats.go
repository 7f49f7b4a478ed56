package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// HabitCount is the most completed habit with its owner.
type HabitCount struct {
	HabitID    uint   `json:"habit_id"`
	Action     string `json:"action"`
	OwnerEmail string `json:"owner_email"`
	Count      int64  `json:"count"`
}

// UserCount is the user with the most completions.
type UserCount struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Count  int64  `json:"count"`
}

type Stats struct {
	Date                  string      `json:"date"`
	TotalHabits           int64       `json:"total_habits"`
	TotalCompletions      int64       `json:"total_completions"`
	ActiveUsers           int64       `json:"active_users"`
	PublicHabits          int64       `json:"public_habits"`
	PleasantHabits        int64       `json:"pleasant_habits"`
	UsefulHabits          int64       `json:"useful_habits"`
	AvgCompletionsPerUser float64     `json:"avg_completions_per_user"`
	MostPopularHabit      *HabitCount `json:"most_popular_habit"`
	MostConsistentUser    *UserCount  `json:"most_consistent_user"`
	CompletionsLast7Days  int64       `json:"completions_last_7_days"`
	CompletionsLast30Days int64       `json:"completions_last_30_days"`
}

// CollectStats computes the aggregate snapshot as of today. Active users are
// the distinct habit owners. Ties for most popular habit and most consistent
// user go to the lowest id.
func (s *Store) CollectStats(ctx context.Context, today time.Time) (Stats, error) {
	gdb := s.db.WithContext(ctx)
	day := DateOf(today)
	stats := Stats{Date: day.Format(time.DateOnly)}

	counts := []struct {
		dst   *int64
		model any
		where string
		args  []any
	}{
		{&stats.TotalHabits, &Habit{}, "", nil},
		{&stats.TotalCompletions, &HabitCompletion{}, "", nil},
		{&stats.PublicHabits, &Habit{}, "is_public = ?", []any{true}},
		{&stats.PleasantHabits, &Habit{}, "is_pleasant = ?", []any{true}},
		{&stats.UsefulHabits, &Habit{}, "is_pleasant = ?", []any{false}},
		{&stats.CompletionsLast7Days, &HabitCompletion{}, "date >= ?", []any{day.AddDate(0, 0, -7)}},
		{&stats.CompletionsLast30Days, &HabitCompletion{}, "date >= ?", []any{day.AddDate(0, 0, -30)}},
	}
	for _, c := range counts {
		query := gdb.Model(c.model)
		if c.where != "" {
			query = query.Where(c.where, c.args...)
		}
		if err := query.Count(c.dst).Error; err != nil {
			return Stats{}, fmt.Errorf("count %T: %w", c.model, err)
		}
	}

	if err := gdb.Model(&Habit{}).Distinct("user_id").Count(&stats.ActiveUsers).Error; err != nil {
		return Stats{}, fmt.Errorf("count active users: %w", err)
	}

	var completingUsers int64
	if err := gdb.Model(&HabitCompletion{}).Distinct("user_id").Count(&completingUsers).Error; err != nil {
		return Stats{}, fmt.Errorf("count completing users: %w", err)
	}
	if completingUsers > 0 {
		stats.AvgCompletionsPerUser = float64(stats.TotalCompletions) / float64(completingUsers)
	}

	var popular []HabitCount
	err := gdb.Table("habit_completions AS c").
		Select("h.id AS habit_id, h.action AS action, u.email AS owner_email, COUNT(c.id) AS count").
		Joins("JOIN habits AS h ON h.id = c.habit_id").
		Joins("JOIN users AS u ON u.id = h.user_id").
		Group("h.id, h.action, u.email").
		Order("count DESC, h.id ASC").
		Limit(1).
		Scan(&popular).Error
	if err != nil {
		return Stats{}, fmt.Errorf("most popular habit: %w", err)
	}
	if len(popular) > 0 {
		stats.MostPopularHabit = &popular[0]
	}

	var consistent []UserCount
	err = gdb.Table("habit_completions AS c").
		Select("u.id AS user_id, u.email AS email, COUNT(c.id) AS count").
		Joins("JOIN users AS u ON u.id = c.user_id").
		Group("u.id, u.email").
		Order("count DESC, u.id ASC").
		Limit(1).
		Scan(&consistent).Error
	if err != nil {
		return Stats{}, fmt.Errorf("most consistent user: %w", err)
	}
	if len(consistent) > 0 {
		stats.MostConsistentUser = &consistent[0]
	}

	return stats, nil
}

func (s *Store) SaveStatsSnapshot(ctx context.Context, takenAt time.Time, stats Stats) (StatsSnapshot, error) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return StatsSnapshot{}, err
	}
	snapshot := StatsSnapshot{TakenAt: takenAt.UTC(), Payload: datatypes.JSON(payload)}
	if err := s.db.WithContext(ctx).Create(&snapshot).Error; err != nil {
		return StatsSnapshot{}, err
	}
	return snapshot, nil
}

func (s *Store) LatestStatsSnapshot(ctx context.Context) (Stats, time.Time, error) {
	var snapshot StatsSnapshot
	if err := s.db.WithContext(ctx).Order("taken_at DESC, id DESC").Take(&snapshot).Error; err != nil {
		return Stats{}, time.Time{}, translateError(err)
	}
	var stats Stats
	if err := json.Unmarshal(snapshot.Payload, &stats); err != nil {
		return Stats{}, time.Time{}, fmt.Errorf("decode stats snapshot %d: %w", snapshot.ID, err)
	}
	return stats, snapshot.TakenAt, nil
}
