package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crm-project/backend/memstore"
	"crm-project/backend/models"
	"crm-project/backend/scheduler"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNotifyWritesAssigneeInbox(t *testing.T) {
	inbox := NewMemoryInbox()
	employees := &memstore.Employees{}
	projects := &memstore.Projects{}
	alice := models.Employee{ID: primitive.NewObjectID(), Username: "alice"}
	p := models.Project{ID: primitive.NewObjectID(), Name: "Launch"}
	employees.Items = []models.Employee{alice}
	projects.Items = []models.Project{p}

	svc := NewNotificationService(inbox, employees, projects)
	svc.now = fixedNow(may10)
	ctx := context.Background()

	task := models.Task{ID: primitive.NewObjectID(), Description: "ship", Status: models.StatusTodo, DueDate: "2024-05-01", EmployeeID: &alice.ID, ProjectID: &p.ID}
	if err := svc.Notify(ctx, scheduler.Notice{Kind: models.NotificationOverdue, Task: task}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if err := svc.Notify(ctx, scheduler.Notice{Kind: models.NotificationUpcoming, Task: models.Task{ID: primitive.NewObjectID()}}); err != nil {
		t.Errorf("unassigned task: error = %v, want nil", err)
	}
	ghost := primitive.NewObjectID()
	if err := svc.Notify(ctx, scheduler.Notice{Task: models.Task{ID: primitive.NewObjectID(), EmployeeID: &ghost}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown assignee: error = %v, want ErrNotFound", err)
	}

	rows, _ := svc.ForUser("alice")
	if len(rows) != 1 {
		t.Fatalf("ForUser() = %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.Kind != models.NotificationOverdue || row.TaskID != task.ID.Hex() || row.UserID != alice.ID.Hex() {
		t.Errorf("row = %+v", row)
	}
	if !strings.Contains(row.Message, "Launch") || !strings.Contains(row.Message, "ship") {
		t.Errorf("Message = %q", row.Message)
	}

	if err := svc.MarkRead("alice", row.ID, row.CreatedAt); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	rows, _ = svc.ForUser("alice")
	if !rows[0].IsRead {
		t.Error("row not marked read")
	}
	if err := svc.MarkRead("alice", "nope", row.CreatedAt); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: error = %v, want ErrNotFound", err)
	}
}

func TestMemoryInboxNewestFirst(t *testing.T) {
	inbox := NewMemoryInbox()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		inbox.Create(&models.Notification{Username: "u", Message: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	rows, _ := inbox.ByUsername("u")
	if len(rows) != 3 || rows[0].Message != "c" || rows[2].Message != "a" {
		t.Errorf("ByUsername() order = %+v", rows)
	}
	if rows, _ := inbox.ByUsername("other"); len(rows) != 0 {
		t.Errorf("other user has %d rows", len(rows))
	}
}

func TestSchedulerDeliversThroughService(t *testing.T) {
	tasks := &memstore.Tasks{}
	employees := &memstore.Employees{}
	alice := models.Employee{ID: primitive.NewObjectID(), Username: "alice"}
	employees.Items = []models.Employee{alice}
	tasks.Items = []models.Task{{ID: primitive.NewObjectID(), Description: "late", Status: models.StatusTodo, DueDate: "2024-05-01", EmployeeID: &alice.ID}}

	inbox := NewMemoryInbox()
	taskSvc := NewTaskService(tasks, &memstore.Projects{}, employees, nil, "")
	notifier := NewNotificationService(inbox, employees, &memstore.Projects{})
	s := scheduler.New(taskSvc, notifier, nil, scheduler.WithClock(fixedNow(may10)))

	s.Tick(context.Background())
	s.Tick(context.Background())

	rows, _ := inbox.ByUsername("alice")
	if len(rows) != 1 {
		t.Errorf("inbox has %d rows after two ticks, want 1", len(rows))
	}
}
