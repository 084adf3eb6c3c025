package services

import (
	"context"
	"time"

	"crm-project/backend/lifecycle"
	"crm-project/backend/models"
	"crm-project/backend/progress"
	"crm-project/backend/reports"
	"crm-project/backend/triage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Dashboard struct {
	Summary      reports.Summary         `json:"summary"`
	Board        lifecycle.Board         `json:"board"`
	Projects     []models.Project        `json:"projects"`
	Associations models.AssociationStats `json:"associations"`
}

// DashboardService composes read models. It never writes.
type DashboardService struct {
	tasks        TaskStore
	projects     ProjectStore
	employees    EmployeeStore
	associations AssociationStore
	now          func() time.Time
}

func NewDashboardService(tasks TaskStore, projects ProjectStore, employees EmployeeStore, associations AssociationStore) *DashboardService {
	return &DashboardService{tasks: tasks, projects: projects, employees: employees, associations: associations, now: time.Now}
}

// Dashboard shows the whole board, or only employeeID's tasks when set.
func (s *DashboardService) Dashboard(ctx context.Context, employeeID *primitive.ObjectID) (Dashboard, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	projects, err := s.projects.List(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	records, err := s.associations.List(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	visible := tasks
	if employeeID != nil {
		visible = nil
		for _, t := range tasks {
			if t.AssignedTo(*employeeID) {
				visible = append(visible, t)
			}
		}
	}

	now := s.now()
	return Dashboard{
		Summary:      reports.Summarize(projects, visible, now),
		Board:        lifecycle.GroupByColumn(visible, now),
		Projects:     progress.Recompute(projects, tasks),
		Associations: triage.ComputeStats(records),
	}, nil
}

func (s *DashboardService) Report(ctx context.Context) (models.Report, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return models.Report{}, err
	}
	projects, err := s.projects.List(ctx)
	if err != nil {
		return models.Report{}, err
	}
	employees, err := s.employees.List(ctx)
	if err != nil {
		return models.Report{}, err
	}
	return reports.Build(projects, employees, tasks, s.now()), nil
}
