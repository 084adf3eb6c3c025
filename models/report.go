package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type ProjectReport struct {
	ProjectID     primitive.ObjectID `json:"projectId"`
	Name          string             `json:"name"`
	TotalTasks    int                `json:"totalTasks"`
	Completed     int                `json:"completed"`
	Overdue       int                `json:"overdue"`
	Progress      int                `json:"progress"`
	TasksByStatus map[TaskStatus]int `json:"tasksByStatus"`
}

type EmployeeReport struct {
	EmployeeID     primitive.ObjectID `json:"employeeId"`
	Name           string             `json:"name"`
	Assigned       int                `json:"assigned"`
	Completed      int                `json:"completed"`
	Overdue        int                `json:"overdue"`
	CompletionRate float64            `json:"completionRate"`
}

type Report struct {
	Projects  []ProjectReport  `json:"projects"`
	Employees []EmployeeReport `json:"employees"`
}
