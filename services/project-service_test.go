package services

import (
	"context"
	"errors"
	"testing"

	"crm-project/backend/memstore"
	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newProjectService() (*ProjectService, *memstore.Projects, *memstore.Tasks, *memstore.Employees) {
	projects, tasks, employees := &memstore.Projects{}, &memstore.Tasks{}, &memstore.Employees{}
	svc := NewProjectService(projects, tasks, employees)
	svc.now = fixedNow(may10)
	return svc, projects, tasks, employees
}

func TestListProjectsRecomputesProgress(t *testing.T) {
	svc, projects, tasks, _ := newProjectService()
	p := models.Project{ID: primitive.NewObjectID(), Name: "P", Progress: 90}
	projects.Items = []models.Project{p}
	tasks.Items = []models.Task{
		{ID: primitive.NewObjectID(), ProjectID: &p.ID, Status: models.StatusDone},
		{ID: primitive.NewObjectID(), ProjectID: &p.ID, Status: models.StatusTodo},
		{ID: primitive.NewObjectID(), ProjectID: &p.ID, Status: models.StatusInProgress},
	}

	got, err := svc.ListProjects(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Progress != 33 {
		t.Errorf("Progress = %d, want 33", got[0].Progress)
	}
	if projects.Progress(p.ID) != 33 {
		t.Error("stale progress not written back")
	}
}

func TestCreateAndUpdateProject(t *testing.T) {
	svc, _, _, _ := newProjectService()
	ctx := context.Background()

	if _, err := svc.CreateProject(ctx, ProjectInput{Name: "  "}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank name: error = %v, want ErrValidation", err)
	}
	p, err := svc.CreateProject(ctx, ProjectInput{Name: " Site ", Description: "d"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Site" || p.CreatedAt != may10 || p.ID.IsZero() {
		t.Errorf("CreateProject() = %+v", p)
	}
	p, err = svc.UpdateProject(ctx, p.ID, ProjectInput{Name: "Site v2"})
	if err != nil || p.Name != "Site v2" {
		t.Errorf("UpdateProject() = %+v, %v", p, err)
	}
	if _, err := svc.UpdateProject(ctx, primitive.NewObjectID(), ProjectInput{Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing project: error = %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	svc, projects, tasks, _ := newProjectService()
	p := models.Project{ID: primitive.NewObjectID()}
	other := primitive.NewObjectID()
	projects.Items = []models.Project{p}
	tasks.Items = []models.Task{
		{ID: primitive.NewObjectID(), ProjectID: &p.ID},
		{ID: primitive.NewObjectID(), ProjectID: &p.ID},
		{ID: primitive.NewObjectID(), ProjectID: &other},
		{ID: primitive.NewObjectID()},
	}

	if err := svc.DeleteProject(context.Background(), p.ID); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if len(projects.Items) != 0 || len(tasks.Items) != 2 {
		t.Errorf("after delete: %d projects, %d tasks", len(projects.Items), len(tasks.Items))
	}
}

func TestDeleteProjectPartialFailure(t *testing.T) {
	svc, projects, tasks, _ := newProjectService()
	p := models.Project{ID: primitive.NewObjectID()}
	projects.Items = []models.Project{p}
	projects.DeleteErr = errors.New("connection reset")
	tasks.Items = []models.Task{{ID: primitive.NewObjectID(), ProjectID: &p.ID}}

	if err := svc.DeleteProject(context.Background(), p.ID); err == nil {
		t.Fatal("DeleteProject() error = nil, want the store failure")
	}
	// not atomic: the tasks are already gone
	if len(tasks.Items) != 0 || len(projects.Items) != 1 {
		t.Errorf("after partial delete: %d projects, %d tasks", len(projects.Items), len(tasks.Items))
	}
}

func TestSharingAndPublicView(t *testing.T) {
	svc, projects, tasks, employees := newProjectService()
	ctx := context.Background()
	p := models.Project{ID: primitive.NewObjectID(), Name: "Open"}
	projects.Items = []models.Project{p}
	alice := models.Employee{ID: primitive.NewObjectID(), Name: "Alice", Email: "a@x.com", PasswordHash: "secret"}
	bob := models.Employee{ID: primitive.NewObjectID(), Name: "Bob"}
	employees.Items = []models.Employee{alice, bob}
	tasks.Items = []models.Task{
		{ID: primitive.NewObjectID(), ProjectID: &p.ID, EmployeeID: &alice.ID, Status: models.StatusDone},
		{ID: primitive.NewObjectID(), ProjectID: &p.ID, Status: models.StatusTodo, DueDate: "2024-05-01"},
		{ID: primitive.NewObjectID(), EmployeeID: &bob.ID},
	}

	shared, err := svc.SetSharing(ctx, p.ID, true)
	if err != nil || !shared.IsPublic || shared.PublicID == "" {
		t.Fatalf("SetSharing(true) = %+v, %v", shared, err)
	}

	view, err := svc.PublicView(ctx, shared.PublicID)
	if err != nil {
		t.Fatalf("PublicView() error = %v", err)
	}
	if view.Board.Len() != 2 || len(view.Board.Overdue) != 1 || view.Project.Progress != 50 {
		t.Errorf("view = %+v", view)
	}
	if len(view.Employees) != 1 || view.Employees[0].Name != "Alice" {
		t.Errorf("Employees = %+v, want only Alice", view.Employees)
	}

	unshared, _ := svc.SetSharing(ctx, p.ID, false)
	if unshared.PublicID != shared.PublicID {
		t.Error("disabling sharing should keep the token")
	}
	if _, err := svc.PublicView(ctx, shared.PublicID); !errors.Is(err, ErrNotFound) {
		t.Errorf("unshared view: error = %v, want ErrNotFound", err)
	}
	if _, err := svc.PublicView(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty token: error = %v, want ErrNotFound", err)
	}

	again, _ := svc.SetSharing(ctx, p.ID, true)
	if again.PublicID != shared.PublicID {
		t.Error("re-enabling sharing should revive the old link")
	}
}
