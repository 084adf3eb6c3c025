package services

import (
	"context"
	"errors"
	"io"
	"time"

	"crm-project/backend/mailer"
	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = models.ErrNotFound
	ErrValidation        = errors.New("validation failed")
	ErrPasswordRequired  = errors.New("password is required for a new employee")
	ErrDuplicate         = errors.New("already exists")
	ErrEscalationBlocked = errors.New("action not available in the task's current state")
	ErrSessionExpired    = errors.New("profile session is missing or expired")
	ErrRateLimited       = errors.New("too many requests")
)

type TaskStore interface {
	List(ctx context.Context) ([]models.Task, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Task, error)
	Insert(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task models.Task) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error)
}

type ProjectStore interface {
	List(ctx context.Context) ([]models.Project, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Project, error)
	GetByPublicID(ctx context.Context, token string) (models.Project, error)
	Insert(ctx context.Context, p *models.Project) error
	Update(ctx context.Context, p models.Project) error
	SetProgress(ctx context.Context, id primitive.ObjectID, progress int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type EmployeeStore interface {
	List(ctx context.Context) ([]models.Employee, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Employee, error)
	FindByUsername(ctx context.Context, username string) (models.Employee, error)
	FindByEmail(ctx context.Context, email string) (models.Employee, error)
	Insert(ctx context.Context, e *models.Employee) error
	Update(ctx context.Context, e models.Employee) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type AssociationStore interface {
	List(ctx context.Context) ([]models.Association, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Association, error)
	InsertMany(ctx context.Context, records []models.Association) ([]models.Association, error)
	Update(ctx context.Context, a models.Association) error
	SetStatus(ctx context.Context, ids []primitive.ObjectID, status models.AssociationStatus, rate *int, now time.Time) (int64, error)
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// ProfileStore keeps the charity self-service links, sessions, rate
// counters and the recorded actions.
type ProfileStore interface {
	CreateLink(ctx context.Context, link models.ProfileLink) error
	// UseLink marks an unused, unexpired link as used. Anything else is
	// ErrNotFound.
	UseLink(ctx context.Context, tokenHash string, now time.Time) (models.ProfileLink, error)
	CreateSession(ctx context.Context, s models.ProfileSession) error
	FindSession(ctx context.Context, idHash string, now time.Time) (models.ProfileSession, error)
	TouchSession(ctx context.Context, idHash string, now time.Time) error
	// Hit counts one request under key and returns the count so far. The
	// counter is dropped after expiresAt.
	Hit(ctx context.Context, key string, expiresAt time.Time) (int, error)
	HasEvent(ctx context.Context, idempotencyKey string) (bool, error)
	// InsertEvent reports false when an event with the same idempotency key
	// already exists.
	InsertEvent(ctx context.Context, e *models.AssociationEvent) (bool, error)
	ListEvents(ctx context.Context, associationID primitive.ObjectID) ([]models.AssociationEvent, error)
}

type NotificationStore interface {
	Create(n *models.Notification) error
	ByUsername(username string) ([]models.Notification, error)
	MarkRead(username, id string, createdAt time.Time) error
}

type Mailer interface {
	Send(ctx context.Context, e mailer.Email) error
}

type AvatarStorage interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}
