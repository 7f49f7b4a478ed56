package ui

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
)

// HabitRow is what the habit list shows for one habit.
type HabitRow struct {
	ID         uint
	Action     string
	Place      string
	TimeOfDay  string
	Duration   int
	IsPleasant bool
	IsPublic   bool
	DoneToday  bool
}

// HistoryRow lists the recent completion dates of one habit, newest first.
type HistoryRow struct {
	Action string
	Dates  []time.Time
}

// RenderHabitList builds the /habits message with one "Done" button per
// habit still open today. Text is Telegram HTML.
func RenderHabitList(rows []HabitRow) (string, *models.InlineKeyboardMarkup, error) {
	if len(rows) == 0 {
		return "You have no habits yet.", nil, nil
	}

	var b strings.Builder
	b.WriteString("<b>Your habits</b>\n")
	keyboard := &models.InlineKeyboardMarkup{}
	for _, row := range rows {
		fmt.Fprintf(&b, "\n%s #%d <b>%s</b> at %s in %s (%ds)%s",
			statusMark(row.DoneToday),
			row.ID,
			html.EscapeString(row.Action),
			html.EscapeString(row.TimeOfDay),
			html.EscapeString(row.Place),
			row.Duration,
			habitTags(row),
		)

		publicData, err := BuildTogglePublicCallback(row.ID)
		if err != nil {
			return "", nil, err
		}
		buttons := []models.InlineKeyboardButton{}
		if !row.DoneToday {
			doneData, err := BuildDoneCallback(row.ID)
			if err != nil {
				return "", nil, err
			}
			buttons = append(buttons, models.InlineKeyboardButton{Text: "Done: " + truncateLabel(row.Action), CallbackData: doneData})
		}
		buttons = append(buttons, models.InlineKeyboardButton{Text: publicLabel(row.IsPublic), CallbackData: publicData})
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, buttons)
	}

	historyData, err := BuildHistoryCallback()
	if err != nil {
		return "", nil, err
	}
	keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, []models.InlineKeyboardButton{
		{Text: "History", CallbackData: historyData},
	})
	return b.String(), keyboard, nil
}

// RenderHistory lists recent completions per habit.
func RenderHistory(rows []HistoryRow) string {
	if len(rows) == 0 {
		return "You have no habits yet."
	}
	var b strings.Builder
	b.WriteString("<b>Recent completions</b>\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "\n<b>%s</b>: ", html.EscapeString(row.Action))
		if len(row.Dates) == 0 {
			b.WriteString("none yet")
			continue
		}
		dates := make([]string, 0, len(row.Dates))
		for _, d := range row.Dates {
			dates = append(dates, d.Format(time.DateOnly))
		}
		b.WriteString(strings.Join(dates, ", "))
	}
	return b.String()
}

// RenderPublicList lists public habits of other users without buttons.
func RenderPublicList(rows []HabitRow) string {
	if len(rows) == 0 {
		return "No public habits yet."
	}
	var b strings.Builder
	b.WriteString("<b>Public habits</b>\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "\n• <b>%s</b> at %s in %s%s",
			html.EscapeString(row.Action),
			html.EscapeString(row.TimeOfDay),
			html.EscapeString(row.Place),
			habitTags(HabitRow{IsPleasant: row.IsPleasant}),
		)
	}
	return b.String()
}

func statusMark(done bool) string {
	if done {
		return "✅"
	}
	return "⬜"
}

func habitTags(row HabitRow) string {
	var tags []string
	if row.IsPleasant {
		tags = append(tags, "pleasant")
	}
	if row.IsPublic {
		tags = append(tags, "public")
	}
	if len(tags) == 0 {
		return ""
	}
	return " [" + strings.Join(tags, ", ") + "]"
}

func publicLabel(public bool) string {
	if public {
		return "Make private"
	}
	return "Make public"
}

func truncateLabel(label string) string {
	const maxRunes = 24
	runes := []rune(label)
	if len(runes) <= maxRunes {
		return label
	}
	return string(runes[:maxRunes-1]) + "…"
}
