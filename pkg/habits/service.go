package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smith3v/tg-habit-tracker/pkg/config"
	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
	"github.com/smith3v/tg-habit-tracker/pkg/validation"
)

const HistoryLimit = 10

// HabitInput carries the author-settable fields of a habit.
type HabitInput struct {
	Place          string
	TimeOfDay      string
	Action         string
	Duration       int
	Frequency      int
	IsPleasant     bool
	IsPublic       bool
	Reward         string
	RelatedHabitID *uint
}

// InputFrom copies the author-settable fields of an existing habit.
func InputFrom(h db.Habit) HabitInput {
	return HabitInput{
		Place:          h.Place,
		TimeOfDay:      h.TimeOfDay,
		Action:         h.Action,
		Duration:       h.Duration,
		Frequency:      h.Frequency,
		IsPleasant:     h.IsPleasant,
		IsPublic:       h.IsPublic,
		Reward:         h.Reward,
		RelatedHabitID: h.RelatedHabitID,
	}
}

func (in HabitInput) apply(h *db.Habit) {
	h.Place = strings.TrimSpace(in.Place)
	h.TimeOfDay = strings.TrimSpace(in.TimeOfDay)
	h.Action = strings.TrimSpace(in.Action)
	h.Duration = in.Duration
	h.Frequency = in.Frequency
	h.IsPleasant = in.IsPleasant
	h.IsPublic = in.IsPublic
	h.Reward = strings.TrimSpace(in.Reward)
	h.RelatedHabitID = in.RelatedHabitID
	h.RelatedHabit = nil
}

// CompletionHistory is the recent completion record of one habit.
type CompletionHistory struct {
	Habit       db.Habit
	Completions []db.HabitCompletion
}

type Service struct {
	store   *db.Store
	tracker *Tracker
	policy  string
}

func NewService(store *db.Store, tracker *Tracker, policy string) *Service {
	if policy == "" {
		policy = config.ConsistencyAllUpdates
	}
	return &Service{store: store, tracker: tracker, policy: policy}
}

func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// ValidateHabit runs the full rule set against in, resolving the related
// habit from storage.
func (s *Service) ValidateHabit(ctx context.Context, in HabitInput) error {
	var candidate db.Habit
	in.apply(&candidate)

	relatedIsPleasant := false
	if candidate.RelatedHabitID != nil {
		related, err := s.store.FindHabit(ctx, *candidate.RelatedHabitID)
		if errors.Is(err, db.ErrNotFound) {
			return &validation.Error{Field: validation.FieldRelatedHabit, Reason: "related habit does not exist"}
		}
		if err != nil {
			return fmt.Errorf("load related habit: %w", err)
		}
		relatedIsPleasant = related.IsPleasant
	}
	return validation.ValidateHabit(candidate.RuleFields(relatedIsPleasant))
}

func (s *Service) ValidateHabitFrequency(in HabitInput) error {
	return validation.ValidateFrequency(in.Frequency)
}

func (s *Service) CreateHabit(ctx context.Context, userID uint, in HabitInput) (db.Habit, error) {
	if err := s.ValidateHabit(ctx, in); err != nil {
		return db.Habit{}, err
	}
	habit := db.Habit{UserID: userID}
	in.apply(&habit)
	if err := s.store.CreateHabit(ctx, &habit); err != nil {
		return db.Habit{}, err
	}
	logger.Info("habit created", "habit_id", habit.ID, "user_id", userID)
	return habit, nil
}

// UpdateHabit replaces the author-settable fields of an owned habit. Whether a
// lapsed habit may be edited depends on the configured consistency policy.
func (s *Service) UpdateHabit(ctx context.Context, userID, habitID uint, in HabitInput) (db.Habit, error) {
	habit, err := s.ownedHabit(ctx, userID, habitID)
	if err != nil {
		return db.Habit{}, err
	}
	if err := s.ValidateHabit(ctx, in); err != nil {
		return db.Habit{}, err
	}
	if in.RelatedHabitID != nil && *in.RelatedHabitID == habit.ID {
		return db.Habit{}, &validation.Error{Field: validation.FieldRelatedHabit, Reason: "a habit cannot be related to itself"}
	}
	if s.consistencyApplies(habit, in) {
		if err := s.tracker.CheckConsistencyOnSave(ctx, habit); err != nil {
			return db.Habit{}, err
		}
	}

	in.apply(&habit)
	if err := s.store.SaveHabit(ctx, &habit); err != nil {
		return db.Habit{}, err
	}
	logger.Info("habit updated", "habit_id", habit.ID, "user_id", userID)
	return habit, nil
}

func (s *Service) consistencyApplies(current db.Habit, in HabitInput) bool {
	if s.policy != config.ConsistencyScheduleChanges {
		return true
	}
	return strings.TrimSpace(in.TimeOfDay) != current.TimeOfDay ||
		in.Frequency != current.Frequency ||
		in.Duration != current.Duration
}

func (s *Service) DeleteHabit(ctx context.Context, userID, habitID uint) error {
	if _, err := s.ownedHabit(ctx, userID, habitID); err != nil {
		return err
	}
	if err := s.store.DeleteHabit(ctx, habitID); err != nil {
		return err
	}
	logger.Info("habit deleted", "habit_id", habitID, "user_id", userID)
	return nil
}

// TogglePublic flips the visibility of an owned habit. It is an update like
// any other, so a lapsed habit is rejected under the all_updates policy.
func (s *Service) TogglePublic(ctx context.Context, userID, habitID uint) (db.Habit, error) {
	habit, err := s.ownedHabit(ctx, userID, habitID)
	if err != nil {
		return db.Habit{}, err
	}
	if s.policy != config.ConsistencyScheduleChanges {
		if err := s.tracker.CheckConsistencyOnSave(ctx, habit); err != nil {
			return db.Habit{}, err
		}
	}
	habit.IsPublic = !habit.IsPublic
	if err := s.store.SaveHabit(ctx, &habit); err != nil {
		return db.Habit{}, err
	}
	return habit, nil
}

// GetHabit returns a habit the user owns or that is public.
func (s *Service) GetHabit(ctx context.Context, userID, habitID uint) (db.Habit, error) {
	habit, err := s.store.FindHabit(ctx, habitID)
	if err != nil {
		return db.Habit{}, err
	}
	if habit.UserID != userID && !habit.IsPublic {
		return db.Habit{}, ErrForbidden
	}
	return habit, nil
}

// MarkCompleted records today's completion. Only the owner may complete a
// habit.
func (s *Service) MarkCompleted(ctx context.Context, habitID, userID uint) (db.HabitCompletion, error) {
	habit, err := s.store.FindHabit(ctx, habitID)
	if err != nil {
		return db.HabitCompletion{}, err
	}
	if habit.UserID != userID {
		return db.HabitCompletion{}, ErrNotOwner
	}
	return s.tracker.MarkCompleted(ctx, habit, userID)
}

func (s *Service) ListOwn(ctx context.Context, userID uint) ([]db.Habit, error) {
	return s.store.ListHabits(ctx, db.HabitFilter{UserID: userID})
}

// ListPublic returns public habits of other users.
func (s *Service) ListPublic(ctx context.Context, userID uint) ([]db.Habit, error) {
	public := true
	return s.store.ListHabits(ctx, db.HabitFilter{ExcludeUserID: userID, IsPublic: &public})
}

func (s *Service) ListPleasant(ctx context.Context, user db.User) ([]db.Habit, error) {
	return s.listByKind(ctx, user, true)
}

func (s *Service) ListUseful(ctx context.Context, user db.User) ([]db.Habit, error) {
	return s.listByKind(ctx, user, false)
}

// Staff see every habit of the kind, everyone else their own plus public ones.
func (s *Service) listByKind(ctx context.Context, user db.User, pleasant bool) ([]db.Habit, error) {
	filter := db.HabitFilter{IsPleasant: &pleasant}
	if !user.IsStaff {
		filter.OwnerOrPublicFor = user.ID
	}
	return s.store.ListHabits(ctx, filter)
}

// History returns the latest completions of each habit the user owns.
func (s *Service) History(ctx context.Context, userID uint) ([]CompletionHistory, error) {
	habits, err := s.ListOwn(ctx, userID)
	if err != nil {
		return nil, err
	}
	history := make([]CompletionHistory, 0, len(habits))
	for _, habit := range habits {
		completions, err := s.store.ListCompletions(ctx, habit.ID, userID, HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("load completions for habit %d: %w", habit.ID, err)
		}
		history = append(history, CompletionHistory{Habit: habit, Completions: completions})
	}
	return history, nil
}

func (s *Service) ownedHabit(ctx context.Context, userID, habitID uint) (db.Habit, error) {
	habit, err := s.store.FindHabit(ctx, habitID)
	if err != nil {
		return db.Habit{}, err
	}
	if habit.UserID != userID {
		return db.Habit{}, ErrNotOwner
	}
	return habit, nil
}
