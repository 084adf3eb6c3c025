package progress

import (
	"testing"

	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func task(project *primitive.ObjectID, status models.TaskStatus) models.Task {
	return models.Task{ID: primitive.NewObjectID(), ProjectID: project, Status: status}
}

func TestForProject(t *testing.T) {
	p := primitive.NewObjectID()
	other := primitive.NewObjectID()

	tests := []struct {
		name  string
		tasks []models.Task
		want  int
	}{
		{"no tasks", nil, 0},
		{"only other project", []models.Task{task(&other, models.StatusDone)}, 0},
		{"unassigned task ignored", []models.Task{task(nil, models.StatusDone), task(&p, models.StatusTodo)}, 0},
		{"half", []models.Task{task(&p, models.StatusDone), task(&p, models.StatusInProgress)}, 50},
		{"one third", []models.Task{task(&p, models.StatusDone), task(&p, models.StatusTodo), task(&p, models.StatusTodo)}, 33},
		{"two thirds", []models.Task{task(&p, models.StatusDone), task(&p, models.StatusDone), task(&p, models.StatusTodo)}, 67},
		{"all done", []models.Task{task(&p, models.StatusDone), task(&p, models.StatusDone), task(&other, models.StatusTodo)}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForProject(p, tt.tasks); got != tt.want {
				t.Errorf("ForProject() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRecomputeAndChanged(t *testing.T) {
	a := models.Project{ID: primitive.NewObjectID(), Progress: 0}
	b := models.Project{ID: primitive.NewObjectID(), Progress: 100}
	tasks := []models.Task{
		task(&a.ID, models.StatusDone),
		task(&b.ID, models.StatusDone),
	}

	got := Recompute([]models.Project{a, b}, tasks)
	if got[0].Progress != 100 || got[1].Progress != 100 {
		t.Errorf("Recompute() progress = %d, %d, want 100, 100", got[0].Progress, got[1].Progress)
	}
	if a.Progress != 0 {
		t.Error("Recompute() must not mutate its input")
	}

	changed := Changed([]models.Project{a, b}, tasks)
	if len(changed) != 1 || changed[0].ID != a.ID || changed[0].Progress != 100 {
		t.Errorf("Changed() = %+v, want only project a at 100", changed)
	}
}
