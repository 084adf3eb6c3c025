package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"crm-project/backend/models"
)

var (
	ErrInvalidStatus = errors.New("invalid task status")
	ErrNoDueDate     = errors.New("task has no due date")
	ErrMalformedDue  = errors.New("malformed due date or time")
)

// Transition moves task to status and stamps the lifecycle timestamps.
// StartedAt is written once; CompletedAt is written on every entry into done
// from another status and survives leaving done.
func Transition(task models.Task, status models.TaskStatus, now time.Time) (models.Task, error) {
	if !status.Valid() {
		return task, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if status == models.StatusInProgress && task.StartedAt == nil {
		t := now
		task.StartedAt = &t
	}
	if status == models.StatusDone && task.Status != models.StatusDone {
		t := now
		task.CompletedAt = &t
	}
	task.Status = status
	return task, nil
}

// ParseDueDate parses DueDate as a calendar date in loc.
func ParseDueDate(task models.Task, loc *time.Location) (time.Time, error) {
	if task.DueDate == "" {
		return time.Time{}, ErrNoDueDate
	}
	d, err := time.ParseInLocation(models.DateLayout, task.DueDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedDue, err)
	}
	return d, nil
}

// DueInstant combines DueDate and DueTime into a single instant in loc.
// A missing DueTime means the end of the day (23:59:59).
func DueInstant(task models.Task, loc *time.Location) (time.Time, error) {
	date, err := ParseDueDate(task, loc)
	if err != nil {
		return time.Time{}, err
	}

	if task.DueTime == "" {
		return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, loc), nil
	}

	var clock time.Time
	for _, layout := range []string{models.TimeLayout, models.ShortTimeLayout} {
		if clock, err = time.Parse(layout, task.DueTime); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: due time %q", ErrMalformedDue, task.DueTime)
	}

	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, loc), nil
}

// IsOverdue reports whether the due date lies before today's date. Time of
// day is ignored and done tasks are never overdue. Tasks without a readable
// due date are not overdue.
func IsOverdue(task models.Task, now time.Time) bool {
	if task.Status == models.StatusDone {
		return false
	}
	due, err := ParseDueDate(task, now.Location())
	if err != nil {
		return false
	}
	return due.Before(startOfDay(now))
}

// IsDueToday reports whether the due date is today's date.
func IsDueToday(task models.Task, now time.Time) bool {
	due, err := ParseDueDate(task, now.Location())
	if err != nil {
		return false
	}
	return due.Equal(startOfDay(now))
}

// SubTaskRatio is completed / total sub-tasks, 0 without sub-tasks. It never
// influences the task status.
func SubTaskRatio(task models.Task) float64 {
	if len(task.SubTasks) == 0 {
		return 0
	}
	done := 0
	for _, st := range task.SubTasks {
		if st.Completed {
			done++
		}
	}
	return float64(done) / float64(len(task.SubTasks))
}

// SubTaskPercent is SubTaskRatio as a rounded percentage.
func SubTaskPercent(task models.Task) int {
	done := 0
	for _, st := range task.SubTasks {
		if st.Completed {
			done++
		}
	}
	return RoundPercent(done, len(task.SubTasks))
}

// ElapsedPercent is the share of the started→due window already used.
// Values above 100 mean the deadline was overrun. A missing start, a bad due
// instant, now before the start or a due instant not after the start all
// yield 0.
func ElapsedPercent(task models.Task, now time.Time) float64 {
	if task.StartedAt == nil {
		return 0
	}
	due, err := DueInstant(task, now.Location())
	if err != nil {
		return 0
	}
	started := *task.StartedAt
	if now.Before(started) || !due.After(started) {
		return 0
	}
	return float64(now.Sub(started)) / float64(due.Sub(started)) * 100
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RoundPercent is round-half-up of 100*part/total in integer arithmetic,
// 0 when total is not positive.
func RoundPercent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}
