package lifecycle

import (
	"errors"
	"testing"

	"crm-project/backend/models"
)

func TestParseMonth(t *testing.T) {
	for _, s := range []string{"", "2024-13", "2024/05", "May 2024", "2024-05-01"} {
		if _, err := ParseMonth(s); !errors.Is(err, ErrMalformedMonth) {
			t.Errorf("ParseMonth(%q) error = %v, want ErrMalformedMonth", s, err)
		}
	}
	m, err := ParseMonth("2024-02")
	if err != nil || m.Month() != 2 || m.Year() != 2024 {
		t.Errorf("ParseMonth(2024-02) = %v, %v", m, err)
	}
}

func TestMonthCalendar(t *testing.T) {
	tasks := []models.Task{
		{Description: "late", DueDate: "2024-02-29"},
		{Description: "early", DueDate: "2024-02-03"},
		{Description: "same day", DueDate: "2024-02-03"},
		{Description: "march", DueDate: "2024-03-01"},
		{Description: "undated"},
		{Description: "garbage", DueDate: "soon"},
	}
	month, _ := ParseMonth("2024-02")

	due := DueInMonth(tasks, month)
	if len(due) != 3 || due[0].Description != "early" || due[2].Description != "late" {
		t.Errorf("DueInMonth() = %+v", due)
	}

	c := MonthCalendar(tasks, month)
	if c.Month != "2024-02" || len(c.Days) != 29 {
		t.Fatalf("MonthCalendar() = %s with %d days, want 2024-02 with 29", c.Month, len(c.Days))
	}
	if c.Days[0].Date != "2024-02-01" || len(c.Days[0].Tasks) != 0 {
		t.Errorf("Days[0] = %+v", c.Days[0])
	}
	if got := c.Days[2].Tasks; len(got) != 2 || got[0].Description != "early" || got[1].Description != "same day" {
		t.Errorf("2024-02-03 = %+v", got)
	}
	if got := c.Days[28].Tasks; len(got) != 1 || got[0].Description != "late" {
		t.Errorf("2024-02-29 = %+v", got)
	}
}
