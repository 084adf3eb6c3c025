package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crm-project/backend/lifecycle"
	"crm-project/backend/logging"
	"crm-project/backend/models"
	"crm-project/backend/progress"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PublicProject is the read-only view served to anonymous share-link
// holders.
type PublicProject struct {
	Project   models.Project          `json:"project"`
	Board     lifecycle.Board         `json:"board"`
	Employees []models.PublicEmployee `json:"employees"`
}

type ProjectService struct {
	projects  ProjectStore
	tasks     TaskStore
	employees EmployeeStore
	now       func() time.Time
}

func NewProjectService(projects ProjectStore, tasks TaskStore, employees EmployeeStore) *ProjectService {
	return &ProjectService{projects: projects, tasks: tasks, employees: employees, now: time.Now}
}

// ListProjects returns projects with progress derived from the current
// tasks. Stale stored values are written back.
func (s *ProjectService) ListProjects(ctx context.Context) ([]models.Project, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range progress.Changed(projects, tasks) {
		if err := s.projects.SetProgress(ctx, p.ID, p.Progress); err != nil {
			logging.Logger.Warnf("Event ID: PROGRESS_WRITEBACK_FAILED, Description: Project %s: %v", p.ID.Hex(), err)
		}
	}
	return progress.Recompute(projects, tasks), nil
}

func (s *ProjectService) CreateProject(ctx context.Context, in ProjectInput) (models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Project{}, fmt.Errorf("%w: project name is required", ErrValidation)
	}
	p := models.Project{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now(),
	}
	if err := s.projects.Insert(ctx, &p); err != nil {
		return models.Project{}, err
	}
	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: Project %s created", p.ID.Hex())
	return p, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, id primitive.ObjectID, in ProjectInput) (models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Project{}, fmt.Errorf("%w: project name is required", ErrValidation)
	}
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	p.Name = name
	p.Description = strings.TrimSpace(in.Description)
	if err := s.projects.Update(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// DeleteProject removes the project's tasks first, then the project. The two
// steps are not atomic: a failure after the first leaves an empty project.
func (s *ProjectService) DeleteProject(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.projects.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.tasks.DeleteByProject(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete project tasks: %w", err)
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		logging.Logger.Errorf("Event ID: PROJECT_DELETE_PARTIAL, Description: Project %s lost %d tasks but was not deleted: %v", id.Hex(), n, err)
		return err
	}
	logging.Logger.Infof("Event ID: PROJECT_DELETED, Description: Project %s and %d tasks deleted", id.Hex(), n)
	return nil
}

// SetSharing toggles public access. A share token is generated the first
// time sharing is enabled and kept afterwards so old links revive.
func (s *ProjectService) SetSharing(ctx context.Context, id primitive.ObjectID, public bool) (models.Project, error) {
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	p.IsPublic = public
	if public && p.PublicID == "" {
		p.PublicID = uuid.NewString()
	}
	if err := s.projects.Update(ctx, p); err != nil {
		return models.Project{}, err
	}
	logging.Logger.Infof("Event ID: PROJECT_SHARING_CHANGED, Description: Project %s public=%v", id.Hex(), public)
	return p, nil
}

// PublicView resolves a share token. Unknown tokens and projects that are
// no longer public both yield ErrNotFound.
func (s *ProjectService) PublicView(ctx context.Context, token string) (PublicProject, error) {
	if strings.TrimSpace(token) == "" {
		return PublicProject{}, ErrNotFound
	}
	p, err := s.projects.GetByPublicID(ctx, token)
	if err != nil {
		return PublicProject{}, err
	}
	if !p.IsPublic {
		return PublicProject{}, ErrNotFound
	}

	all, err := s.tasks.List(ctx)
	if err != nil {
		return PublicProject{}, err
	}
	var tasks []models.Task
	assignees := map[primitive.ObjectID]bool{}
	for _, t := range all {
		if t.InProject(p.ID) {
			tasks = append(tasks, t)
			if t.EmployeeID != nil {
				assignees[*t.EmployeeID] = true
			}
		}
	}
	p.Progress = progress.ForProject(p.ID, tasks)

	employees, err := s.employees.List(ctx)
	if err != nil {
		return PublicProject{}, err
	}
	public := []models.PublicEmployee{}
	for _, e := range employees {
		if assignees[e.ID] {
			public = append(public, e.Public())
		}
	}

	return PublicProject{
		Project:   p,
		Board:     lifecycle.GroupByColumn(tasks, s.now()),
		Employees: public,
	}, nil
}
