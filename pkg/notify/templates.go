package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/smith3v/tg-habit-tracker/pkg/db"
)

type Kind string

const (
	KindDaily    Kind = "daily"
	KindMorning  Kind = "morning"
	KindInactive Kind = "inactive"
	KindTest     Kind = "test"
)

const DefaultTestMessage = "Test notification"

func ParseKind(value string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(value))); k {
	case KindDaily, KindMorning, KindInactive, KindTest:
		return k, nil
	default:
		return "", fmt.Errorf("unknown reminder kind %q", value)
	}
}

// Reminder describes what to send. CustomMessage, when set, replaces the
// template entirely.
type Reminder struct {
	Kind          Kind
	Reason        string
	CustomMessage string
}

// Render builds the Telegram HTML message for habit. User supplied text is
// escaped; CustomMessage is sent verbatim.
func Render(habit db.Habit, r Reminder) string {
	if r.CustomMessage != "" {
		return r.CustomMessage
	}

	action := html.EscapeString(habit.Action)
	place := html.EscapeString(habit.Place)
	at := html.EscapeString(habit.TimeOfDay)

	var b strings.Builder
	switch r.Kind {
	case KindInactive:
		b.WriteString("⚠️ <b>You have not done this habit for a while!</b>\n\n")
		fmt.Fprintf(&b, "Habit: <b>%s</b>\n", action)
		fmt.Fprintf(&b, "Reason: %s\n", html.EscapeString(r.Reason))
		fmt.Fprintf(&b, "Time: <b>%s</b>\n", at)
		fmt.Fprintf(&b, "Place: <b>%s</b>\n", place)
		b.WriteString("Time to pick it up again! 💪")
	case KindMorning:
		b.WriteString("🌅 <b>Good morning!</b>\n\n")
		fmt.Fprintf(&b, "Today's habit: <b>%s</b>\n", action)
		fmt.Fprintf(&b, "Time: <b>%s</b>\n", at)
		fmt.Fprintf(&b, "Place: <b>%s</b>\n", place)
		b.WriteString("Have a great day! ✨")
	case KindTest:
		b.WriteString(DefaultTestMessage)
	default:
		b.WriteString("⏰ <b>Habit reminder</b>\n\n")
		fmt.Fprintf(&b, "Habit: <b>%s</b>\n", action)
		fmt.Fprintf(&b, "Time: <b>%s</b>\n", at)
		fmt.Fprintf(&b, "Place: <b>%s</b>\n", place)
		fmt.Fprintf(&b, "Duration: <b>%d seconds</b>", habit.Duration)
	}
	return b.String()
}
