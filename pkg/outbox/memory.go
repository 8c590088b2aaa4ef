package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/events"
)

// MemoryStore keeps rows in process. Service memory stores call Add while
// holding their own lock so the row appears together with the state change.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string]*Event
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]*Event), now: time.Now}
}

// Add inserts a row per envelope. Either every row is added or none is.
func (s *MemoryStore) Add(envs ...events.Envelope) error {
	rows := make([]Event, len(envs))
	for i, env := range envs {
		ev, err := FromEnvelope(env)
		if err != nil {
			return err
		}
		rows[i] = ev
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range rows {
		s.events[rows[i].ID] = &rows[i]
	}
	return nil
}

func (s *MemoryStore) FetchPending(_ context.Context, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, ev := range s.events {
		if ev.Status == StatusPending {
			out = append(out, *ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkPublished(_ context.Context, id string) error {
	return s.update(id, func(ev *Event) error { return ev.MarkPublished(s.now()) })
}

func (s *MemoryStore) MarkAttemptFailed(_ context.Context, id, cause string, maxAttempts int) error {
	return s.update(id, func(ev *Event) error { return ev.RecordFailure(cause, maxAttempts, s.now()) })
}

func (s *MemoryStore) Requeue(_ context.Context, id string) error {
	return s.update(id, func(ev *Event) error { return ev.Requeue(s.now()) })
}

func (s *MemoryStore) PurgePublished(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, ev := range s.events {
		if ev.Status == StatusPublished && ev.PublishedAt != nil && ev.PublishedAt.Before(olderThan) {
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}

// All returns a copy of every row, oldest first.
func (s *MemoryStore) All() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, *ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Types lists the event types of every row, oldest first.
func (s *MemoryStore) Types() []string {
	var types []string
	for _, ev := range s.All() {
		types = append(types, ev.EventType)
	}
	return types
}

func (s *MemoryStore) update(id string, fn func(*Event) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return ErrEventNotFound
	}
	return fn(ev)
}
