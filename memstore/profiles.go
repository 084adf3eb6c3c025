package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profiles keeps the self-service links, sessions, rate counters and
// events. The zero value is ready to use.
type Profiles struct {
	mu       sync.Mutex
	Links    map[string]models.ProfileLink
	Sessions map[string]models.ProfileSession
	Events   []models.AssociationEvent
	hits     map[string]int
}

func (m *Profiles) init() {
	if m.Links == nil {
		m.Links = make(map[string]models.ProfileLink)
	}
	if m.Sessions == nil {
		m.Sessions = make(map[string]models.ProfileSession)
	}
	if m.hits == nil {
		m.hits = make(map[string]int)
	}
}

func (m *Profiles) CreateLink(ctx context.Context, link models.ProfileLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.Links[link.TokenHash] = link
	return nil
}

func (m *Profiles) UseLink(ctx context.Context, tokenHash string, now time.Time) (models.ProfileLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	link, ok := m.Links[tokenHash]
	if !ok || link.UsedAt != nil || !now.Before(link.ExpiresAt) {
		return models.ProfileLink{}, models.ErrNotFound
	}
	used := now
	link.UsedAt = &used
	m.Links[tokenHash] = link
	return link, nil
}

func (m *Profiles) CreateSession(ctx context.Context, s models.ProfileSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.Sessions[s.IDHash] = s
	return nil
}

func (m *Profiles) FindSession(ctx context.Context, idHash string, now time.Time) (models.ProfileSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[idHash]
	if !ok || !now.Before(s.ExpiresAt) {
		return models.ProfileSession{}, models.ErrNotFound
	}
	return s, nil
}

func (m *Profiles) TouchSession(ctx context.Context, idHash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[idHash]
	if !ok {
		return models.ErrNotFound
	}
	s.LastSeenAt = now
	m.Sessions[idHash] = s
	return nil
}

// Hit never expires counters; keys carry their window.
func (m *Profiles) Hit(ctx context.Context, key string, expiresAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.hits[key]++
	return m.hits[key], nil
}

func (m *Profiles) HasEvent(ctx context.Context, idempotencyKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.IdempotencyKey == idempotencyKey {
			return true, nil
		}
	}
	return false, nil
}

func (m *Profiles) InsertEvent(ctx context.Context, e *models.AssociationEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Events {
		if existing.IdempotencyKey == e.IdempotencyKey {
			return false, nil
		}
	}
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	m.Events = append(m.Events, *e)
	return true, nil
}

func (m *Profiles) ListEvents(ctx context.Context, associationID primitive.ObjectID) ([]models.AssociationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AssociationEvent{}
	for _, e := range m.Events {
		if e.AssociationID == associationID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
