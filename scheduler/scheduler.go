package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"crm-project/backend/lifecycle"
	"crm-project/backend/logging"
	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultInterval  = 60 * time.Second
	DefaultLookahead = 15 * time.Minute
)

// TaskSource supplies the current task list on every tick.
type TaskSource interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
}

// Notifier delivers one notice. Errors are logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Permission reports whether notifications may be shown at all.
type Permission func() bool

// Notice is a single due or overdue reminder.
type Notice struct {
	Kind models.NotificationKind
	Task models.Task
	Due  time.Time
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option  { return func(s *Scheduler) { s.interval = d } }
func WithLookahead(d time.Duration) Option { return func(s *Scheduler) { s.lookahead = d } }
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler polls the task list and notifies each task at most once per
// session. A session spans Start to Stop; Start clears the notified set.
type Scheduler struct {
	source     TaskSource
	notifier   Notifier
	permission Permission
	interval   time.Duration
	lookahead  time.Duration
	now        func() time.Time

	mu       sync.Mutex
	notified map[primitive.ObjectID]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(source TaskSource, notifier Notifier, permission Permission, opts ...Option) *Scheduler {
	if permission == nil {
		permission = func() bool { return true }
	}
	s := &Scheduler{
		source:     source,
		notifier:   notifier,
		permission: permission,
		interval:   DefaultInterval,
		lookahead:  DefaultLookahead,
		now:        time.Now,
		notified:   make(map[primitive.ObjectID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var ErrRunning = errors.New("scheduler already running")

// Start begins a new session and polls until ctx is cancelled or Stop is
// called. The first scan happens immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.notified = make(map[primitive.ObjectID]struct{})
	done := s.done
	s.mu.Unlock()

	logging.Logger.Infof("Event ID: SCHEDULER_START, Description: Notification scheduler started, interval %s, look-ahead %s", s.interval, s.lookahead)
	go s.run(ctx, done)
	return nil
}

// Stop ends the session and waits for the loop to exit. Safe to call when
// not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logging.Logger.Info("Event ID: SCHEDULER_STOP, Description: Notification scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scan and returns the notices it emitted.
func (s *Scheduler) Tick(ctx context.Context) []Notice {
	if !s.permission() {
		logging.Logger.Debug("Event ID: SCHEDULER_NO_PERMISSION, Description: Notifications not permitted, tick skipped")
		return nil
	}

	tasks, err := s.source.ListTasks(ctx)
	if err != nil {
		logging.Logger.Errorf("Event ID: SCHEDULER_LIST_FAILED, Description: Failed to load tasks: %v", err)
		return nil
	}

	now := s.now()
	notices := s.classify(tasks, now)

	for _, n := range notices {
		if err := s.notifier.Notify(ctx, n); err != nil {
			logging.Logger.Warnf("Event ID: SCHEDULER_NOTIFY_FAILED, Description: Notification for task %s failed: %v", n.Task.ID.Hex(), err)
		}
	}
	return notices
}

// classify picks the tasks to notify and marks them before any delivery so
// a slow or failing notifier never causes a repeat.
func (s *Scheduler) classify(tasks []models.Task, now time.Time) []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[primitive.ObjectID]struct{}, len(tasks))
	var notices []Notice
	for _, t := range tasks {
		live[t.ID] = struct{}{}
		if _, seen := s.notified[t.ID]; seen || t.DueDate == "" {
			continue
		}
		kind, due, ok := s.caseOf(t, now)
		if !ok {
			continue
		}
		s.notified[t.ID] = struct{}{}
		notices = append(notices, Notice{Kind: kind, Task: t, Due: due})
	}

	// keep the set bounded by the live task list
	for id := range s.notified {
		if _, ok := live[id]; !ok {
			delete(s.notified, id)
		}
	}
	return notices
}

func (s *Scheduler) caseOf(t models.Task, now time.Time) (models.NotificationKind, time.Time, bool) {
	if t.Status == models.StatusDone {
		return "", time.Time{}, false
	}
	due, err := lifecycle.DueInstant(t, now.Location())
	if err != nil {
		logging.Logger.Debugf("Event ID: SCHEDULER_BAD_DUE, Description: Task %s skipped: %v", t.ID.Hex(), err)
		return "", time.Time{}, false
	}
	switch {
	case due.Before(now):
		return models.NotificationOverdue, due, true
	case !due.After(now.Add(s.lookahead)):
		return models.NotificationUpcoming, due, true
	}
	return "", time.Time{}, false
}

// Notified reports whether the task was already notified this session.
func (s *Scheduler) Notified(id primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.notified[id]
	return ok
}
