// Package reports derives the read-only aggregates shown on the reports and
// dashboard pages. Nothing here is stored.
package reports

import (
	"sort"
	"time"

	"crm-project/backend/lifecycle"
	"crm-project/backend/models"
	"crm-project/backend/progress"
)

// Build computes per-project and per-employee figures at now. Projects keep
// their input order; employees are sorted by completion rate, best first.
func Build(projects []models.Project, employees []models.Employee, tasks []models.Task, now time.Time) models.Report {
	r := models.Report{
		Projects:  make([]models.ProjectReport, 0, len(projects)),
		Employees: make([]models.EmployeeReport, 0, len(employees)),
	}

	for _, p := range projects {
		pr := models.ProjectReport{
			ProjectID: p.ID,
			Name:      p.Name,
			TasksByStatus: map[models.TaskStatus]int{
				models.StatusTodo:       0,
				models.StatusInProgress: 0,
				models.StatusDone:       0,
			},
		}
		for _, t := range tasks {
			if !t.InProject(p.ID) {
				continue
			}
			pr.TotalTasks++
			pr.TasksByStatus[t.Status]++
			if t.Status == models.StatusDone {
				pr.Completed++
			}
			if lifecycle.IsOverdue(t, now) {
				pr.Overdue++
			}
		}
		pr.Progress = progress.ForProject(p.ID, tasks)
		r.Projects = append(r.Projects, pr)
	}

	for _, e := range employees {
		er := models.EmployeeReport{EmployeeID: e.ID, Name: e.Name}
		for _, t := range tasks {
			if !t.AssignedTo(e.ID) {
				continue
			}
			er.Assigned++
			if t.Status == models.StatusDone {
				er.Completed++
			}
			if lifecycle.IsOverdue(t, now) {
				er.Overdue++
			}
		}
		er.CompletionRate = percentTenths(er.Completed, er.Assigned)
		r.Employees = append(r.Employees, er)
	}
	sort.SliceStable(r.Employees, func(i, j int) bool {
		return r.Employees[i].CompletionRate > r.Employees[j].CompletionRate
	})
	return r
}

// percentTenths is 100*part/total rounded half-up to one decimal place,
// 0 when total is not positive.
func percentTenths(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64((2000*part+total)/(2*total)) / 10
}

// Summary holds the dashboard counters.
type Summary struct {
	TotalTasks    int `json:"totalTasks"`
	ActiveTasks   int `json:"activeTasks"`
	DueToday      int `json:"dueToday"`
	Overdue       int `json:"overdue"`
	Completed     int `json:"completed"`
	TotalProjects int `json:"totalProjects"`
	AvgProgress   int `json:"avgProgress"`
}

// Summarize counts tasks by their state at now. Active means not done.
func Summarize(projects []models.Project, tasks []models.Task, now time.Time) Summary {
	s := Summary{TotalTasks: len(tasks), TotalProjects: len(projects)}
	for _, t := range tasks {
		if t.Status == models.StatusDone {
			s.Completed++
			continue
		}
		s.ActiveTasks++
		if lifecycle.IsOverdue(t, now) {
			s.Overdue++
		}
		if lifecycle.IsDueToday(t, now) {
			s.DueToday++
		}
	}
	sum := 0
	for _, p := range projects {
		sum += progress.ForProject(p.ID, tasks)
	}
	s.AvgProgress = lifecycle.RoundPercent(sum, 100*len(projects))
	return s
}
