package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crm-project/backend/lifecycle"
	"crm-project/backend/logging"
	"crm-project/backend/models"
	"crm-project/backend/scheduler"

	"github.com/google/uuid"
)

// NotificationService turns scheduler notices into inbox rows for the
// task's assignee.
type NotificationService struct {
	store     NotificationStore
	employees EmployeeStore
	projects  ProjectStore
	now       func() time.Time
}

func NewNotificationService(store NotificationStore, employees EmployeeStore, projects ProjectStore) *NotificationService {
	return &NotificationService{store: store, employees: employees, projects: projects, now: time.Now}
}

var _ scheduler.Notifier = (*NotificationService)(nil)

// Notify implements scheduler.Notifier. Unassigned tasks have no inbox and
// are skipped.
func (s *NotificationService) Notify(ctx context.Context, n scheduler.Notice) error {
	if n.Task.EmployeeID == nil {
		return nil
	}
	emp, err := s.employees.Get(ctx, *n.Task.EmployeeID)
	if err != nil {
		return fmt.Errorf("assignee of task %s: %w", n.Task.ID.Hex(), err)
	}

	projectName := ""
	if n.Task.ProjectID != nil {
		if p, err := s.projects.Get(ctx, *n.Task.ProjectID); err == nil {
			projectName = p.Name
		}
	}

	row := &models.Notification{
		UserID:    emp.ID.Hex(),
		Username:  emp.Username,
		TaskID:    n.Task.ID.Hex(),
		Kind:      n.Kind,
		Message:   lifecycle.ReminderMessage(n.Task, projectName, s.now()),
		CreatedAt: s.now(),
	}
	if err := s.store.Create(row); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: NOTIFICATION_CREATED, Description: %s notice for task %s sent to %s", n.Kind, row.TaskID, emp.Username)
	return nil
}

func (s *NotificationService) ForUser(username string) ([]models.Notification, error) {
	return s.store.ByUsername(username)
}

func (s *NotificationService) MarkRead(username, id string, createdAt time.Time) error {
	return s.store.MarkRead(username, id, createdAt)
}

// MemoryInbox is a process-local NotificationStore used when no Cassandra
// host is configured.
type MemoryInbox struct {
	mu   sync.Mutex
	rows map[string][]models.Notification
}

func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{rows: make(map[string][]models.Notification)}
}

func (m *MemoryInbox) Create(n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.rows[n.Username] = append(m.rows[n.Username], *n)
	return nil
}

// ByUsername returns the newest rows first, matching the Cassandra
// clustering order.
func (m *MemoryInbox) ByUsername(username string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Notification{}, m.rows[username]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryInbox) MarkRead(username, id string, createdAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[username]
	for i := range rows {
		if rows[i].ID == id && rows[i].CreatedAt.Equal(createdAt) {
			rows[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}
