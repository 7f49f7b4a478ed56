package habits

import "errors"

var (
	ErrAlreadyCompletedToday = errors.New("habit already completed today")
	ErrStaleHabit            = errors.New("habit has not been completed for more than 7 days")
	ErrHabitInconsistent     = errors.New("habit has not been completed for more than 7 days and cannot be updated")
	ErrNotOwner              = errors.New("only the owner can change this habit")
	ErrForbidden             = errors.New("habit is not visible to this user")
)
