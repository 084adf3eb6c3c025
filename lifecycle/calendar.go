package lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"crm-project/backend/models"
)

// MonthLayout is the wire format of a calendar month.
const MonthLayout = "2006-01"

var ErrMalformedMonth = errors.New("malformed month, want YYYY-MM")

type CalendarDay struct {
	Date  string        `json:"date"`
	Tasks []models.Task `json:"tasks"`
}

// Calendar has one entry per day of Month, empty days included.
type Calendar struct {
	Month string        `json:"month"`
	Days  []CalendarDay `json:"days"`
}

func ParseMonth(s string) (time.Time, error) {
	m, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedMonth, s)
	}
	return m, nil
}

// DueInMonth keeps the tasks due in month, ordered by due date. Tasks without
// a parseable due date belong to no month.
func DueInMonth(tasks []models.Task, month time.Time) []models.Task {
	out := []models.Task{}
	for _, t := range tasks {
		d, err := ParseDueDate(t, time.UTC)
		if err == nil && d.Year() == month.Year() && d.Month() == month.Month() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate < out[j].DueDate })
	return out
}

func MonthCalendar(tasks []models.Task, month time.Time) Calendar {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()

	c := Calendar{Month: first.Format(MonthLayout), Days: make([]CalendarDay, days)}
	for i := range c.Days {
		c.Days[i] = CalendarDay{Date: first.AddDate(0, 0, i).Format(models.DateLayout), Tasks: []models.Task{}}
	}
	for _, t := range DueInMonth(tasks, first) {
		d, _ := ParseDueDate(t, time.UTC)
		c.Days[d.Day()-1].Tasks = append(c.Days[d.Day()-1].Tasks, t)
	}
	return c
}
