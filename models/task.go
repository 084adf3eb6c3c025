package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "inprogress"
	StatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// DateLayout and TimeLayout are the wire formats of DueDate and DueTime.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	ShortTimeLayout = "15:04"
)

type SubTask struct {
	ID          string `json:"id" bson:"id"`
	Description string `json:"description" bson:"description"`
	Completed   bool   `json:"completed" bson:"completed"`
}

type Task struct {
	ID                  primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Description         string              `json:"description" bson:"description"`
	Status              TaskStatus          `json:"status" bson:"status"`
	Priority            Priority            `json:"priority" bson:"priority"`
	DueDate             string              `json:"dueDate,omitempty" bson:"due_date,omitempty"`
	DueTime             string              `json:"dueTime,omitempty" bson:"due_time,omitempty"`
	EmployeeID          *primitive.ObjectID `json:"employeeId,omitempty" bson:"employee_id,omitempty"`
	ProjectID           *primitive.ObjectID `json:"projectId,omitempty" bson:"project_id,omitempty"`
	SubTasks            []SubTask           `json:"subTasks" bson:"sub_tasks"`
	ExtensionCount      int                 `json:"extensionCount" bson:"extension_count"`
	AssistanceRequested bool                `json:"assistanceRequested" bson:"assistance_requested"`
	StartedAt           *time.Time          `json:"startedAt,omitempty" bson:"started_at,omitempty"`
	CompletedAt         *time.Time          `json:"completedAt,omitempty" bson:"completed_at,omitempty"`
	CreatedAt           time.Time           `json:"createdAt" bson:"created_at"`
}

// InProject reports whether the task belongs to the given project.
func (t Task) InProject(id primitive.ObjectID) bool {
	return t.ProjectID != nil && *t.ProjectID == id
}

// AssignedTo reports whether the task is assigned to the given employee.
func (t Task) AssignedTo(id primitive.ObjectID) bool {
	return t.EmployeeID != nil && *t.EmployeeID == id
}
