// Package validation holds the habit consistency rules. Every function here is
// pure: callers resolve whatever they need from storage first.
package validation

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinDuration          = 1
	MaxDuration          = 120
	MinFrequency         = 1
	MaxFrequency         = 7
	MaxCompletionGapDays = 7
	TimeOfDayLayout      = "15:04"
)

const (
	FieldReward       = "reward"
	FieldRelatedHabit = "related_habit"
	FieldDuration     = "duration"
	FieldFrequency    = "frequency"
	FieldTime         = "time"
	FieldAction       = "action"
	FieldPlace        = "place"
)

// Error is a user-correctable problem with a single habit field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &Error{Field: field, Reason: reason}
}

// Fields is the subset of a habit the rules look at. RelatedIsPleasant is only
// meaningful when HasRelated is set.
type Fields struct {
	Action            string
	Place             string
	TimeOfDay         string
	Duration          int
	Frequency         int
	IsPleasant        bool
	Reward            string
	HasRelated        bool
	RelatedIsPleasant bool
}

func ValidateFrequency(value int) error {
	if value < MinFrequency {
		return invalid(FieldFrequency, "frequency must be at least 1 day")
	}
	if value > MaxFrequency {
		return invalid(FieldFrequency, "frequency must be ≤ 7 days")
	}
	return nil
}

func ValidateDuration(value int) error {
	if value < MinDuration || value > MaxDuration {
		return invalid(FieldDuration, fmt.Sprintf("duration must be between %d and %d seconds", MinDuration, MaxDuration))
	}
	return nil
}

func ValidateTimeOfDay(value string) error {
	if len(value) != len(TimeOfDayLayout) {
		return invalid(FieldTime, "time must use the HH:MM format")
	}
	if _, err := time.Parse(TimeOfDayLayout, value); err != nil {
		return invalid(FieldTime, "time must use the HH:MM format")
	}
	return nil
}

// ValidateHabit applies the field rules in a fixed order and returns the first
// failure.
func ValidateHabit(h Fields) error {
	hasReward := strings.TrimSpace(h.Reward) != ""

	if h.IsPleasant && hasReward {
		return invalid(FieldReward, "a pleasant habit cannot have a reward")
	}
	if h.IsPleasant && h.HasRelated {
		return invalid(FieldRelatedHabit, "a pleasant habit cannot have a related habit")
	}
	if hasReward && h.HasRelated {
		return invalid(FieldReward, "reward and related habit are mutually exclusive")
	}
	if h.HasRelated && !h.RelatedIsPleasant {
		return invalid(FieldRelatedHabit, "only pleasant habits can be used as a related habit")
	}
	if err := ValidateDuration(h.Duration); err != nil {
		return err
	}
	if err := ValidateFrequency(h.Frequency); err != nil {
		return err
	}
	if err := ValidateTimeOfDay(h.TimeOfDay); err != nil {
		return err
	}
	if strings.TrimSpace(h.Action) == "" {
		return invalid(FieldAction, "action is required")
	}
	if strings.TrimSpace(h.Place) == "" {
		return invalid(FieldPlace, "place is required")
	}
	return nil
}

// DaysBetween counts whole calendar days from `from` to `to`. Both values are
// expected to be normalised dates.
func DaysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// CadenceBroken reports whether the gap since the last completion exceeds the
// seven day rule.
func CadenceBroken(today, lastCompletion time.Time) bool {
	return DaysBetween(lastCompletion, today) > MaxCompletionGapDays
}
