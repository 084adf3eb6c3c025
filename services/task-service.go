package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-project/backend/lifecycle"
	"crm-project/backend/logging"
	"crm-project/backend/mailer"
	"crm-project/backend/models"
	"crm-project/backend/progress"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskInput is the editable part of a task.
type TaskInput struct {
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.Priority     `json:"priority"`
	DueDate     string              `json:"dueDate"`
	DueTime     string              `json:"dueTime"`
	EmployeeID  *primitive.ObjectID `json:"employeeId"`
	ProjectID   *primitive.ObjectID `json:"projectId"`
	SubTasks    []models.SubTask    `json:"subTasks"`
}

type TaskService struct {
	tasks     TaskStore
	projects  ProjectStore
	employees EmployeeStore
	mailer    Mailer
	appURL    string
	now       func() time.Time
}

func NewTaskService(tasks TaskStore, projects ProjectStore, employees EmployeeStore, m Mailer, appURL string) *TaskService {
	return &TaskService{
		tasks:     tasks,
		projects:  projects,
		employees: employees,
		mailer:    m,
		appURL:    appURL,
		now:       time.Now,
	}
}

// ListTasks also serves as the scheduler's task source.
func (s *TaskService) ListTasks(ctx context.Context) ([]models.Task, error) {
	return s.tasks.List(ctx)
}

func (s *TaskService) GetTask(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	return s.tasks.Get(ctx, id)
}

// Board groups every task, or only the given employee's, into Kanban
// columns.
func (s *TaskService) Board(ctx context.Context, employeeID *primitive.ObjectID) (lifecycle.Board, error) {
	tasks, err := s.assigned(ctx, employeeID)
	if err != nil {
		return lifecycle.Board{}, err
	}
	return lifecycle.GroupByColumn(tasks, s.now()), nil
}

// Calendar lays out the tasks due in month (YYYY-MM, the current month when
// empty), optionally only the given employee's.
func (s *TaskService) Calendar(ctx context.Context, month string, employeeID *primitive.ObjectID) (lifecycle.Calendar, error) {
	if month == "" {
		month = s.now().Format(lifecycle.MonthLayout)
	}
	m, err := lifecycle.ParseMonth(month)
	if err != nil {
		return lifecycle.Calendar{}, err
	}
	tasks, err := s.assigned(ctx, employeeID)
	if err != nil {
		return lifecycle.Calendar{}, err
	}
	return lifecycle.MonthCalendar(tasks, m), nil
}

// assigned lists every task when employeeID is nil, else that employee's.
func (s *TaskService) assigned(ctx context.Context, employeeID *primitive.ObjectID) ([]models.Task, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil || employeeID == nil {
		return tasks, err
	}
	var mine []models.Task
	for _, t := range tasks {
		if t.AssignedTo(*employeeID) {
			mine = append(mine, t)
		}
	}
	return mine, nil
}

func (s *TaskService) CreateTask(ctx context.Context, in TaskInput) (models.Task, error) {
	if err := s.validate(&in); err != nil {
		return models.Task{}, err
	}
	now := s.now()

	task := models.Task{
		Status:    models.StatusTodo,
		CreatedAt: now,
	}
	applyInput(&task, in)
	task, _ = lifecycle.Transition(task, in.Status, now)

	if err := s.tasks.Insert(ctx, &task); err != nil {
		return models.Task{}, err
	}
	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created", task.ID.Hex())

	s.recomputeProgress(ctx, task.ProjectID)
	if task.EmployeeID != nil {
		s.notifyAssignment(ctx, task)
	}
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id primitive.ObjectID, in TaskInput) (models.Task, error) {
	if err := s.validate(&in); err != nil {
		return models.Task{}, err
	}
	stored, err := s.tasks.Get(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	oldProject := stored.ProjectID

	task, err := lifecycle.Transition(stored, in.Status, s.now())
	if err != nil {
		return models.Task{}, err
	}
	applyInput(&task, in)

	if err := s.tasks.Update(ctx, task); err != nil {
		return models.Task{}, err
	}
	s.recomputeProgress(ctx, oldProject, task.ProjectID)
	return task, nil
}

func (s *TaskService) ChangeStatus(ctx context.Context, id primitive.ObjectID, status models.TaskStatus) (models.Task, error) {
	stored, err := s.tasks.Get(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	task, err := lifecycle.Transition(stored, status, s.now())
	if err != nil {
		return models.Task{}, err
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return models.Task{}, err
	}
	logging.Logger.Infof("Event ID: TASK_STATUS_CHANGED, Description: Task %s moved from %s to %s", id.Hex(), stored.Status, status)
	s.recomputeProgress(ctx, task.ProjectID)
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id primitive.ObjectID) error {
	stored, err := s.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.recomputeProgress(ctx, stored.ProjectID)
	return nil
}

// RequestExtension is only offered while the task is overdue and the
// extension is unused. The new due date is saved immediately.
func (s *TaskService) RequestExtension(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	return s.escalate(ctx, id, lifecycle.EscalationExtension, lifecycle.RequestExtension)
}

// RequestAssistance is only offered while the task is overdue again after
// its extension.
func (s *TaskService) RequestAssistance(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	return s.escalate(ctx, id, lifecycle.EscalationAssistance, lifecycle.RequestAssistance)
}

func (s *TaskService) escalate(ctx context.Context, id primitive.ObjectID, want lifecycle.Escalation, step func(models.Task) (models.Task, error)) (models.Task, error) {
	stored, err := s.tasks.Get(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	if state := lifecycle.EscalationOf(stored, s.now()); state != want {
		return stored, fmt.Errorf("%w: task is in state %s", ErrEscalationBlocked, state)
	}
	task, err := step(stored)
	if err != nil {
		return stored, err
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return stored, err
	}
	logging.Logger.Infof("Event ID: TASK_ESCALATED, Description: Task %s escalation %s applied", id.Hex(), want)
	return task, nil
}

// Reminder builds the shareable reminder text for a task.
func (s *TaskService) Reminder(ctx context.Context, id primitive.ObjectID) (string, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return lifecycle.ReminderMessage(task, s.projectName(ctx, task.ProjectID), s.now()), nil
}

func (s *TaskService) validate(in *TaskInput) error {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if in.Status == "" {
		in.Status = models.StatusTodo
	}
	if !in.Status.Valid() {
		return fmt.Errorf("%w: %q", lifecycle.ErrInvalidStatus, in.Status)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, in.Priority)
	}
	if in.DueTime != "" && in.DueDate == "" {
		return fmt.Errorf("%w: due time without due date", ErrValidation)
	}
	if in.DueDate != "" {
		due := models.Task{DueDate: in.DueDate, DueTime: in.DueTime}
		if _, err := lifecycle.DueInstant(due, time.UTC); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	for i := range in.SubTasks {
		in.SubTasks[i].Description = strings.TrimSpace(in.SubTasks[i].Description)
		if in.SubTasks[i].ID == "" {
			in.SubTasks[i].ID = uuid.NewString()
		}
	}
	return nil
}

// applyInput copies the user-editable fields. Status is left to Transition
// and the escalation counters are never user-editable.
func applyInput(task *models.Task, in TaskInput) {
	task.Description = in.Description
	task.Priority = in.Priority
	task.DueDate = in.DueDate
	task.DueTime = in.DueTime
	task.EmployeeID = in.EmployeeID
	task.ProjectID = in.ProjectID
	task.SubTasks = in.SubTasks
	if task.SubTasks == nil {
		task.SubTasks = []models.SubTask{}
	}
}

// recomputeProgress refreshes the stored progress of each distinct project.
// Failures are logged; the task mutation has already succeeded.
func (s *TaskService) recomputeProgress(ctx context.Context, projectIDs ...*primitive.ObjectID) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, id := range projectIDs {
		if id != nil && !seen[*id] {
			seen[*id] = true
			ids = append(ids, *id)
		}
	}
	if len(ids) == 0 {
		return
	}

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		logging.Logger.Errorf("Event ID: PROGRESS_RECOMPUTE_FAILED, Description: Failed to load tasks: %v", err)
		return
	}
	for _, id := range ids {
		pct := progress.ForProject(id, tasks)
		if err := s.projects.SetProgress(ctx, id, pct); err != nil && !errors.Is(err, models.ErrNotFound) {
			logging.Logger.Errorf("Event ID: PROGRESS_RECOMPUTE_FAILED, Description: Project %s: %v", id.Hex(), err)
		}
	}
}

func (s *TaskService) projectName(ctx context.Context, id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	p, err := s.projects.Get(ctx, *id)
	if err != nil {
		return ""
	}
	return p.Name
}

// notifyAssignment emails the assignee of a new task. Failures are logged
// and never reach the caller.
func (s *TaskService) notifyAssignment(ctx context.Context, task models.Task) {
	if s.mailer == nil {
		return
	}
	emp, err := s.employees.Get(ctx, *task.EmployeeID)
	if err != nil {
		logging.Logger.Warnf("Event ID: TASK_EMAIL_SKIPPED, Description: Assignee of task %s not found: %v", task.ID.Hex(), err)
		return
	}
	if emp.Email == "" {
		return
	}
	subject, body := lifecycle.AssignmentEmail(task, emp.Name, s.projectName(ctx, task.ProjectID), s.appURL)
	if err := s.mailer.Send(ctx, mailer.Email{To: emp.Email, Subject: subject, HTML: body}); err != nil {
		logging.Logger.Errorf("Event ID: TASK_EMAIL_FAILED, Description: Error sending task notification email for %s: %v", task.ID.Hex(), err)
	}
}
