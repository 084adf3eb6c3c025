package models

import "time"

type NotificationKind string

const (
	NotificationOverdue  NotificationKind = "overdue"
	NotificationUpcoming NotificationKind = "upcoming"
)

type Notification struct {
	ID        string           `cassandra:"id" json:"id"`
	UserID    string           `cassandra:"user_id" json:"userId"`
	Username  string           `cassandra:"username" json:"username"`
	TaskID    string           `cassandra:"task_id" json:"taskId"`
	Kind      NotificationKind `cassandra:"kind" json:"kind"`
	Message   string           `cassandra:"message" json:"message"`
	CreatedAt time.Time        `cassandra:"created_at" json:"createdAt"`
	IsRead    bool             `cassandra:"is_read" json:"isRead"`
}
