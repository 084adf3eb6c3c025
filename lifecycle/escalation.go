package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"crm-project/backend/models"
)

var (
	ErrExtensionUsed       = errors.New("extension already used")
	ErrExtensionRequired   = errors.New("assistance requires a prior extension")
	ErrAssistanceRequested = errors.New("assistance already requested")
)

// Escalation is the overdue-task workflow state.
type Escalation string

const (
	// EscalationNone: the task is not overdue, no controls are offered.
	EscalationNone Escalation = "none"
	// EscalationExtension: overdue with no extension used yet.
	EscalationExtension Escalation = "extension"
	// EscalationAssistance: overdue again after the extension.
	EscalationAssistance Escalation = "assistance"
	// EscalationAcknowledged: assistance was requested. Terminal.
	EscalationAcknowledged Escalation = "acknowledged"
)

// EscalationOf is governed by the overdue predicate first; the counters only
// choose among the overdue states.
func EscalationOf(task models.Task, now time.Time) Escalation {
	if !IsOverdue(task, now) {
		return EscalationNone
	}
	switch {
	case task.AssistanceRequested:
		return EscalationAcknowledged
	case task.ExtensionCount == 0:
		return EscalationExtension
	default:
		return EscalationAssistance
	}
}

// RequestExtension grants the one-time extension: the due date moves one
// calendar day forward and the due time is kept.
func RequestExtension(task models.Task) (models.Task, error) {
	if task.ExtensionCount >= 1 {
		return task, ErrExtensionUsed
	}
	due, err := ParseDueDate(task, time.UTC)
	if err != nil {
		return task, err
	}
	task.DueDate = due.AddDate(0, 0, 1).Format(models.DateLayout)
	task.ExtensionCount = 1
	return task, nil
}

// RequestAssistance flags the task for supervisor help. There is no way back.
func RequestAssistance(task models.Task) (models.Task, error) {
	if task.AssistanceRequested {
		return task, ErrAssistanceRequested
	}
	if task.ExtensionCount < 1 {
		return task, fmt.Errorf("%w (extension count %d)", ErrExtensionRequired, task.ExtensionCount)
	}
	task.AssistanceRequested = true
	return task, nil
}
