package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crm-project/backend/lifecycle"
	"crm-project/backend/memstore"
	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var may10 = time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)

type taskFixture struct {
	svc       *TaskService
	tasks     *memstore.Tasks
	projects  *memstore.Projects
	employees *memstore.Employees
	mail      *fakeMailer
	project   models.Project
	alice     models.Employee
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	f := &taskFixture{
		tasks:     &memstore.Tasks{},
		projects:  &memstore.Projects{},
		employees: &memstore.Employees{},
		mail:      &fakeMailer{},
		project:   models.Project{ID: primitive.NewObjectID(), Name: "Launch"},
		alice:     models.Employee{ID: primitive.NewObjectID(), Name: "Alice Smith", Email: "alice@example.com", Username: "alice"},
	}
	f.projects.Items = []models.Project{f.project}
	f.employees.Items = []models.Employee{f.alice}
	f.svc = NewTaskService(f.tasks, f.projects, f.employees, f.mail, "https://crm.example.com")
	f.svc.now = fixedNow(may10)
	return f
}

func TestCreateTask(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	got, err := f.svc.CreateTask(ctx, TaskInput{
		Description: "  Write copy  ",
		Status:      models.StatusDone,
		DueDate:     "2024-05-12",
		EmployeeID:  &f.alice.ID,
		ProjectID:   &f.project.ID,
		SubTasks:    []models.SubTask{{Description: "draft"}},
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if got.Description != "Write copy" || got.Priority != models.PriorityMedium {
		t.Errorf("CreateTask() = %+v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(may10) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, may10)
	}
	if got.SubTasks[0].ID == "" {
		t.Error("sub-task id not assigned")
	}
	if p := f.projects.Progress(f.project.ID); p != 100 {
		t.Errorf("project progress = %d, want 100", p)
	}
	if len(f.mail.sent) != 1 || f.mail.sent[0].To != "alice@example.com" {
		t.Fatalf("sent = %+v, want one email to alice", f.mail.sent)
	}
	if !strings.Contains(f.mail.sent[0].HTML, "Launch") || !strings.Contains(f.mail.sent[0].HTML, "Alice") {
		t.Errorf("email body missing project or first name: %s", f.mail.sent[0].HTML)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	f := newTaskFixture(t)
	tests := []struct {
		name string
		in   TaskInput
		want error
	}{
		{"blank description", TaskInput{Description: " "}, ErrValidation},
		{"bad status", TaskInput{Description: "x", Status: "blocked"}, lifecycle.ErrInvalidStatus},
		{"bad priority", TaskInput{Description: "x", Priority: "urgent"}, ErrValidation},
		{"time without date", TaskInput{Description: "x", DueTime: "10:00"}, ErrValidation},
		{"bad date", TaskInput{Description: "x", DueDate: "12/05/2024"}, ErrValidation},
		{"bad time", TaskInput{Description: "x", DueDate: "2024-05-12", DueTime: "noon"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.CreateTask(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("CreateTask() error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(f.tasks.Items) != 0 {
		t.Errorf("invalid input stored %d tasks", len(f.tasks.Items))
	}
}

func TestMailerFailureDoesNotFailCreate(t *testing.T) {
	f := newTaskFixture(t)
	f.mail.err = errors.New("smtp down")
	if _, err := f.svc.CreateTask(context.Background(), TaskInput{Description: "x", EmployeeID: &f.alice.ID}); err != nil {
		t.Fatalf("CreateTask() error = %v, want mail failure swallowed", err)
	}
}

func TestUpdateTaskMovesProgressBetweenProjects(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	other := models.Project{ID: primitive.NewObjectID(), Name: "Other"}
	f.projects.Items = append(f.projects.Items, other)

	done, _ := f.svc.CreateTask(ctx, TaskInput{Description: "a", Status: models.StatusDone, ProjectID: &f.project.ID})
	if _, err := f.svc.CreateTask(ctx, TaskInput{Description: "b", ProjectID: &f.project.ID}); err != nil {
		t.Fatal(err)
	}
	if p := f.projects.Progress(f.project.ID); p != 50 {
		t.Fatalf("progress before move = %d, want 50", p)
	}

	_, err := f.svc.UpdateTask(ctx, done.ID, TaskInput{Description: "a", Status: models.StatusDone, ProjectID: &other.ID})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if p := f.projects.Progress(f.project.ID); p != 0 {
		t.Errorf("old project progress = %d, want 0", p)
	}
	if p := f.projects.Progress(other.ID); p != 100 {
		t.Errorf("new project progress = %d, want 100", p)
	}
}

func TestUpdateTaskKeepsEscalationCounters(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := models.Task{ID: primitive.NewObjectID(), Description: "x", Status: models.StatusTodo, ExtensionCount: 1, AssistanceRequested: true}
	f.tasks.Items = []models.Task{task}

	got, err := f.svc.UpdateTask(ctx, task.ID, TaskInput{Description: "renamed"})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if got.ExtensionCount != 1 || !got.AssistanceRequested {
		t.Errorf("UpdateTask() reset counters: %+v", got)
	}
	if _, err := f.svc.UpdateTask(ctx, primitive.NewObjectID(), TaskInput{Description: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing task: error = %v, want ErrNotFound", err)
	}
}

func TestChangeStatus(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task, _ := f.svc.CreateTask(ctx, TaskInput{Description: "x", ProjectID: &f.project.ID})

	got, err := f.svc.ChangeStatus(ctx, task.ID, models.StatusInProgress)
	if err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	if got.StartedAt == nil || got.CompletedAt != nil {
		t.Errorf("inprogress stamps: started %v completed %v", got.StartedAt, got.CompletedAt)
	}

	f.svc.now = fixedNow(may10.Add(time.Hour))
	got, _ = f.svc.ChangeStatus(ctx, task.ID, models.StatusDone)
	if !got.StartedAt.Equal(may10) {
		t.Errorf("StartedAt rewritten to %v", got.StartedAt)
	}
	if f.projects.Progress(f.project.ID) != 100 {
		t.Errorf("progress not recomputed after status change")
	}

	if _, err := f.svc.ChangeStatus(ctx, task.ID, "archived"); !errors.Is(err, lifecycle.ErrInvalidStatus) {
		t.Errorf("invalid status: error = %v", err)
	}
}

func TestDeleteTaskRecomputesProgress(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	f.svc.CreateTask(ctx, TaskInput{Description: "a", Status: models.StatusDone, ProjectID: &f.project.ID})
	open, _ := f.svc.CreateTask(ctx, TaskInput{Description: "b", ProjectID: &f.project.ID})

	if err := f.svc.DeleteTask(ctx, open.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if p := f.projects.Progress(f.project.ID); p != 100 {
		t.Errorf("progress = %d, want 100", p)
	}
	if err := f.svc.DeleteTask(ctx, open.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestEscalationFlow(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := models.Task{ID: primitive.NewObjectID(), Description: "late", Status: models.StatusTodo, DueDate: "2024-05-08", DueTime: "09:30"}
	f.tasks.Items = []models.Task{task}

	if _, err := f.svc.RequestAssistance(ctx, task.ID); !errors.Is(err, ErrEscalationBlocked) {
		t.Fatalf("assistance before extension: error = %v, want ErrEscalationBlocked", err)
	}

	extended, err := f.svc.RequestExtension(ctx, task.ID)
	if err != nil {
		t.Fatalf("RequestExtension() error = %v", err)
	}
	if extended.DueDate != "2024-05-09" || extended.DueTime != "09:30" || extended.ExtensionCount != 1 {
		t.Errorf("extended = %+v", extended)
	}

	// 2024-05-09 is still before today, so the task is overdue again.
	if _, err := f.svc.RequestExtension(ctx, task.ID); !errors.Is(err, ErrEscalationBlocked) {
		t.Errorf("second extension: error = %v, want ErrEscalationBlocked", err)
	}
	helped, err := f.svc.RequestAssistance(ctx, task.ID)
	if err != nil || !helped.AssistanceRequested {
		t.Fatalf("RequestAssistance() = %+v, %v", helped, err)
	}
	if _, err := f.svc.RequestAssistance(ctx, task.ID); !errors.Is(err, ErrEscalationBlocked) {
		t.Errorf("repeat assistance: error = %v, want ErrEscalationBlocked", err)
	}
}

func TestEscalationBlockedWhenNotOverdue(t *testing.T) {
	f := newTaskFixture(t)
	task := models.Task{ID: primitive.NewObjectID(), Description: "fine", Status: models.StatusTodo, DueDate: "2024-05-10"}
	f.tasks.Items = []models.Task{task}

	if _, err := f.svc.RequestExtension(context.Background(), task.ID); !errors.Is(err, ErrEscalationBlocked) {
		t.Errorf("error = %v, want ErrEscalationBlocked", err)
	}
	stored, _ := f.tasks.Get(context.Background(), task.ID)
	if stored.ExtensionCount != 0 || stored.DueDate != "2024-05-10" {
		t.Errorf("blocked request changed the task: %+v", stored)
	}
}

func TestBoardAndReminder(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	bob := primitive.NewObjectID()
	f.tasks.Items = []models.Task{
		{ID: primitive.NewObjectID(), Description: "a", Status: models.StatusTodo, DueDate: "2024-05-01", EmployeeID: &f.alice.ID, ProjectID: &f.project.ID},
		{ID: primitive.NewObjectID(), Description: "b", Status: models.StatusInProgress, EmployeeID: &bob},
		{ID: primitive.NewObjectID(), Description: "c", Status: models.StatusDone, EmployeeID: &f.alice.ID},
	}

	all, err := f.svc.Board(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Overdue) != 1 || len(all.InProgress) != 1 || len(all.Done) != 1 || len(all.Todo) != 0 {
		t.Errorf("Board(all) = %+v", all)
	}
	mine, _ := f.svc.Board(ctx, &f.alice.ID)
	if mine.Len() != 2 {
		t.Errorf("Board(alice) has %d tasks, want 2", mine.Len())
	}
	if len(f.tasks.Items) != 3 {
		t.Error("filtering the board changed the store")
	}

	msg, err := f.svc.Reminder(ctx, f.tasks.Items[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, "Launch") || !strings.Contains(msg, "a") {
		t.Errorf("Reminder() = %q", msg)
	}
}

func TestCalendar(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	bob := primitive.NewObjectID()
	f.tasks.Items = []models.Task{
		{ID: primitive.NewObjectID(), Description: "a", DueDate: "2024-05-20", EmployeeID: &f.alice.ID},
		{ID: primitive.NewObjectID(), Description: "b", DueDate: "2024-05-20", EmployeeID: &bob},
		{ID: primitive.NewObjectID(), Description: "c", DueDate: "2024-06-01", EmployeeID: &f.alice.ID},
	}

	cal, err := f.svc.Calendar(ctx, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cal.Month != "2024-05" || len(cal.Days) != 31 || len(cal.Days[19].Tasks) != 2 {
		t.Errorf("Calendar(current) = %s, %d days, %d due on the 20th", cal.Month, len(cal.Days), len(cal.Days[19].Tasks))
	}
	mine, _ := f.svc.Calendar(ctx, "2024-05", &f.alice.ID)
	if got := mine.Days[19].Tasks; len(got) != 1 || got[0].Description != "a" {
		t.Errorf("Calendar(alice) on the 20th = %+v", got)
	}
	if _, err := f.svc.Calendar(ctx, "05-2024", nil); !errors.Is(err, lifecycle.ErrMalformedMonth) {
		t.Errorf("Calendar(05-2024) error = %v, want ErrMalformedMonth", err)
	}
}
