// Package memstore holds process-local implementations of the task,
// project, employee, association, profile and file stores. They back the
// server's --memory mode and the package tests. Every read returns a copy.
package memstore

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"crm-project/backend/models"
	"crm-project/backend/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Tasks struct {
	mu    sync.Mutex
	Items []models.Task
}

func (m *Tasks) List(ctx context.Context) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Task{}, m.Items...), nil
}

func (m *Tasks) Get(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Items {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, models.ErrNotFound
}

func (m *Tasks) Insert(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	m.Items = append(m.Items, *task)
	return nil
}

func (m *Tasks) Update(ctx context.Context, task models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Items {
		if m.Items[i].ID == task.ID {
			m.Items[i] = task
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *Tasks) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Items {
		if m.Items[i].ID == id {
			m.Items = append(m.Items[:i], m.Items[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *Tasks) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.Task
	var n int64
	for _, t := range m.Items {
		if t.InProject(projectID) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.Items = kept
	return n, nil
}

type Projects struct {
	mu        sync.Mutex
	Items     []models.Project
	DeleteErr error
}

func (m *Projects) List(ctx context.Context) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Project{}, m.Items...), nil
}

func (m *Projects) Get(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Items {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Project{}, models.ErrNotFound
}

func (m *Projects) GetByPublicID(ctx context.Context, token string) (models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Items {
		if p.PublicID == token {
			return p, nil
		}
	}
	return models.Project{}, models.ErrNotFound
}

func (m *Projects) Insert(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.Items = append(m.Items, *p)
	return nil
}

func (m *Projects) Update(ctx context.Context, p models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Items {
		if m.Items[i].ID == p.ID {
			m.Items[i] = p
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *Projects) SetProgress(ctx context.Context, id primitive.ObjectID, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Items {
		if m.Items[i].ID == id {
			m.Items[i].Progress = progress
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *Projects) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	for i := range m.Items {
		if m.Items[i].ID == id {
			m.Items = append(m.Items[:i], m.Items[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

// Progress reads the stored progress of a project, 0 when unknown.
func (m *Projects) Progress(id primitive.ObjectID) int {
	p, _ := m.Get(context.Background(), id)
	return p.Progress
}

type Employees struct {
	mu    sync.Mutex
	Items []models.Employee
}

func (m *Employees) List(ctx context.Context) ([]models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Employee{}, m.Items...), nil
}

func (m *Employees) find(match func(models.Employee) bool) (models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Items {
		if match(e) {
			return e, nil
		}
	}
	return models.Employee{}, models.ErrNotFound
}

func (m *Employees) Get(ctx context.Context, id primitive.ObjectID) (models.Employee, error) {
	return m.find(func(e models.Employee) bool { return e.ID == id })
}

func (m *Employees) FindByUsername(ctx context.Context, username string) (models.Employee, error) {
	return m.find(func(e models.Employee) bool { return e.Username == username })
}

func (m *Employees) FindByEmail(ctx context.Context, email string) (models.Employee, error) {
	return m.find(func(e models.Employee) bool { return e.Email == email })
}

func (m *Employees) Insert(ctx context.Context, e *models.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	m.Items = append(m.Items, *e)
	return nil
}

func (m *Employees) Update(ctx context.Context, e models.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Items {
		if m.Items[i].ID == e.ID {
			e.PasswordHash = m.Items[i].PasswordHash
			m.Items[i] = e
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *Employees) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Items {
		if m.Items[i].ID == id {
			m.Items = append(m.Items[:i], m.Items[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

type Associations struct {
	mu    sync.Mutex
	Items []models.Association
}

// List returns the records newest first, ties in insertion order.
func (m *Associations) List(ctx context.Context) ([]models.Association, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Association{}, m.Items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Associations) Get(ctx context.Context, id primitive.ObjectID) (models.Association, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.Items {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Association{}, models.ErrNotFound
}

func (m *Associations) InsertMany(ctx context.Context, records []models.Association) ([]models.Association, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range records {
		if records[i].ID.IsZero() {
			records[i].ID = primitive.NewObjectID()
		}
	}
	m.Items = append(m.Items, records...)
	return records, nil
}

func (m *Associations) Update(ctx context.Context, a models.Association) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Items {
		if m.Items[i].ID == a.ID {
			m.Items[i] = a
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *Associations) SetStatus(ctx context.Context, ids []primitive.ObjectID, status models.AssociationStatus, rate *int, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for i := range m.Items {
		if !want[m.Items[i].ID] {
			continue
		}
		m.Items[i].Status = status
		m.Items[i].ResponseRate = nil
		if rate != nil {
			r := *rate
			m.Items[i].ResponseRate = &r
		}
		m.Items[i].UpdatedAt = now
		n++
	}
	return n, nil
}

func (m *Associations) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	var kept []models.Association
	for _, a := range m.Items {
		if !drop[a.ID] {
			kept = append(kept, a)
		}
	}
	n := int64(len(m.Items) - len(kept))
	m.Items = kept
	return n, nil
}

type file struct {
	contentType string
	data        []byte
}

// Files keeps uploaded avatars in memory and serves them under baseURL.
type Files struct {
	mu      sync.Mutex
	baseURL string
	files   map[string]file
}

func NewFiles(publicBaseURL string) *Files {
	return &Files{baseURL: strings.TrimRight(publicBaseURL, "/"), files: make(map[string]file)}
}

func (f *Files) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = file{contentType: contentType, data: data}
	return f.baseURL + "/avatars/" + url.PathEscape(name), nil
}

// Open returns storage.ErrNotFound for unknown names.
func (f *Files) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.files[name]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(stored.data)), stored.contentType, nil
}
