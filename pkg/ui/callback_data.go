package ui

import (
	"errors"
	"strconv"
	"strings"
)

const (
	CallbackPrefix     = "h:"
	MaxCallbackDataLen = 64
)

type Operation string

const (
	OpDone    Operation = "done"
	OpPublic  Operation = "pub"
	OpHistory Operation = "hist"
	OpList    Operation = "list"
)

// Action is a decoded inline button press. HabitID is zero for operations
// that do not target a single habit.
type Action struct {
	Op      Operation
	HabitID uint
}

var (
	errInvalidPrefix       = errors.New("invalid callback prefix")
	errInvalidAction       = errors.New("invalid callback action")
	errInvalidOperation    = errors.New("invalid callback operation")
	errInvalidValue        = errors.New("invalid callback value")
	errCallbackDataTooLong = errors.New("callback data too long")
)

func BuildDoneCallback(habitID uint) (string, error) {
	return buildHabitCallback(OpDone, habitID)
}

func BuildTogglePublicCallback(habitID uint) (string, error) {
	return buildHabitCallback(OpPublic, habitID)
}

func BuildHistoryCallback() (string, error) {
	return validateCallbackData(CallbackPrefix + string(OpHistory))
}

func BuildListCallback() (string, error) {
	return validateCallbackData(CallbackPrefix + string(OpList))
}

// IsHabitCallback reports whether data belongs to the habit keyboard.
func IsHabitCallback(data string) bool {
	return strings.HasPrefix(data, CallbackPrefix)
}

func ParseCallbackData(data string) (Action, error) {
	if data == "" {
		return Action{}, errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return Action{}, errCallbackDataTooLong
	}
	if !strings.HasPrefix(data, CallbackPrefix) {
		return Action{}, errInvalidPrefix
	}

	parts := strings.Split(data, ":")
	switch len(parts) {
	case 2:
		switch op := Operation(parts[1]); op {
		case OpHistory, OpList:
			return Action{Op: op}, nil
		case OpDone, OpPublic:
			return Action{}, errInvalidValue
		default:
			return Action{}, errInvalidOperation
		}
	case 3:
		op := Operation(parts[1])
		if op != OpDone && op != OpPublic {
			return Action{}, errInvalidOperation
		}
		id, err := parseHabitID(parts[2])
		if err != nil {
			return Action{}, err
		}
		return Action{Op: op, HabitID: id}, nil
	default:
		return Action{}, errInvalidAction
	}
}

func buildHabitCallback(op Operation, habitID uint) (string, error) {
	if habitID == 0 {
		return "", errInvalidValue
	}
	data := CallbackPrefix + string(op) + ":" + strconv.FormatUint(uint64(habitID), 10)
	return validateCallbackData(data)
}

func parseHabitID(value string) (uint, error) {
	if !isASCIIUnsignedInt(value) {
		return 0, errInvalidValue
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidValue
	}
	return uint(id), nil
}

func validateCallbackData(data string) (string, error) {
	if data == "" {
		return "", errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return "", errCallbackDataTooLong
	}
	return data, nil
}

func isASCIIUnsignedInt(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
