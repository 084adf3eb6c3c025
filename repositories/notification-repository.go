package repositories

import (
	"fmt"
	"time"

	"crm-project/backend/logging"
	"crm-project/backend/models"

	"github.com/gocql/gocql"
)

// NotificationRepo is the per-user notification inbox in Cassandra.
type NotificationRepo struct {
	session *gocql.Session
}

// NewNotificationRepo connects to host, creates keyspace if needed and
// opens a session on it.
func NewNotificationRepo(host, keyspace string) (*NotificationRepo, error) {
	if host == "" {
		host = "127.0.0.1"
	}

	cluster := gocql.NewCluster(host)
	cluster.Keyspace = "system"
	cluster.Timeout = 5 * time.Second
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cassandra at %s: %w", host, err)
	}

	err = session.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s
		 WITH replication = {
			'class': 'SimpleStrategy',
			'replication_factor': 1
		 }`, keyspace)).Exec()
	session.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to create keyspace %s: %w", keyspace, err)
	}

	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to keyspace %s: %w", keyspace, err)
	}

	logging.Logger.Infof("Event ID: CASSANDRA_CONNECTED, Description: Connected to Cassandra keyspace %s at %s", keyspace, host)
	return &NotificationRepo{session: session}, nil
}

func (nr *NotificationRepo) CloseSession() {
	nr.session.Close()
	logging.Logger.Info("Event ID: CASSANDRA_CLOSED, Description: Cassandra session closed")
}

func (nr *NotificationRepo) CreateTable() error {
	err := nr.session.Query(
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID,
			username TEXT,
			user_id TEXT,
			task_id TEXT,
			kind TEXT,
			message TEXT,
			created_at TIMESTAMP,
			is_read BOOLEAN,
			PRIMARY KEY ((username), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		return fmt.Errorf("failed to create notifications table: %w", err)
	}
	return nil
}

func (nr *NotificationRepo) Create(n *models.Notification) error {
	id := gocql.TimeUUID()
	if n.ID != "" {
		parsed, err := gocql.ParseUUID(n.ID)
		if err != nil {
			return fmt.Errorf("invalid notification id %q: %w", n.ID, err)
		}
		id = parsed
	}
	n.ID = id.String()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	err := nr.session.Query(
		`INSERT INTO notifications (id, username, user_id, task_id, kind, message, created_at, is_read)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, n.Username, n.UserID, n.TaskID, string(n.Kind), n.Message, n.CreatedAt, n.IsRead,
	).Exec()
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (nr *NotificationRepo) ByUsername(username string) ([]models.Notification, error) {
	iter := nr.session.Query(
		`SELECT id, user_id, username, task_id, kind, message, created_at, is_read
		 FROM notifications WHERE username = ?`, username).Iter()

	notifications := []models.Notification{}
	var (
		id   gocql.UUID
		kind string
		n    models.Notification
	)
	for iter.Scan(&id, &n.UserID, &n.Username, &n.TaskID, &kind, &n.Message, &n.CreatedAt, &n.IsRead) {
		n.ID = id.String()
		n.Kind = models.NotificationKind(kind)
		notifications = append(notifications, n)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list notifications for %s: %w", username, err)
	}
	return notifications, nil
}

func (nr *NotificationRepo) MarkRead(username, notificationID string, createdAt time.Time) error {
	id, err := gocql.ParseUUID(notificationID)
	if err != nil {
		return fmt.Errorf("invalid notification id %q: %w", notificationID, err)
	}
	err = nr.session.Query(
		`UPDATE notifications SET is_read = true WHERE username = ? AND created_at = ? AND id = ?`,
		username, createdAt, id).Exec()
	if err != nil {
		return fmt.Errorf("failed to mark notification %s as read: %w", notificationID, err)
	}
	return nil
}
