package lifecycle

import (
	"time"

	"crm-project/backend/models"
)

// Column is a Kanban bucket. Overdue is derived, never stored.
type Column string

const (
	ColumnOverdue    Column = "overdue"
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "inprogress"
	ColumnDone       Column = "done"
)

// Board holds tasks grouped by column, each in input order.
type Board struct {
	Overdue    []models.Task `json:"overdue"`
	Todo       []models.Task `json:"todo"`
	InProgress []models.Task `json:"inprogress"`
	Done       []models.Task `json:"done"`
}

// ColumnOf places a task. Overdue wins over todo and inprogress but a done
// task always stays in done.
func ColumnOf(task models.Task, now time.Time) Column {
	if task.Status == models.StatusDone {
		return ColumnDone
	}
	if IsOverdue(task, now) {
		return ColumnOverdue
	}
	if task.Status == models.StatusInProgress {
		return ColumnInProgress
	}
	return ColumnTodo
}

func GroupByColumn(tasks []models.Task, now time.Time) Board {
	b := Board{
		Overdue:    []models.Task{},
		Todo:       []models.Task{},
		InProgress: []models.Task{},
		Done:       []models.Task{},
	}
	for _, t := range tasks {
		switch ColumnOf(t, now) {
		case ColumnOverdue:
			b.Overdue = append(b.Overdue, t)
		case ColumnInProgress:
			b.InProgress = append(b.InProgress, t)
		case ColumnDone:
			b.Done = append(b.Done, t)
		default:
			b.Todo = append(b.Todo, t)
		}
	}
	return b
}

func (b Board) Len() int {
	return len(b.Overdue) + len(b.Todo) + len(b.InProgress) + len(b.Done)
}
