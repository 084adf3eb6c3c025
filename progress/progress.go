package progress

import (
	"crm-project/backend/lifecycle"
	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ForProject is the share of the project's tasks that are done, rounded half
// up to an integer percentage. A project without tasks is at 0.
func ForProject(projectID primitive.ObjectID, tasks []models.Task) int {
	total, done := 0, 0
	for _, t := range tasks {
		if !t.InProject(projectID) {
			continue
		}
		total++
		if t.Status == models.StatusDone {
			done++
		}
	}
	return lifecycle.RoundPercent(done, total)
}

// Recompute returns a copy of projects with Progress refreshed from tasks.
func Recompute(projects []models.Project, tasks []models.Task) []models.Project {
	out := make([]models.Project, len(projects))
	for i, p := range projects {
		p.Progress = ForProject(p.ID, tasks)
		out[i] = p
	}
	return out
}

// Changed lists the projects whose stored progress differs from the
// recomputed value.
func Changed(projects []models.Project, tasks []models.Task) []models.Project {
	var out []models.Project
	for _, p := range projects {
		if pct := ForProject(p.ID, tasks); pct != p.Progress {
			p.Progress = pct
			out = append(out, p)
		}
	}
	return out
}
