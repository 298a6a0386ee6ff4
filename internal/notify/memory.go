package notify

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ JobStore = (*InMemoryJobStore)(nil)

// InMemoryJobStore implements JobStore in process.
type InMemoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]Job
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{jobs: make(map[string]Job)}
}

func (s *InMemoryJobStore) Enqueue(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *InMemoryJobStore) Due(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Job
	for _, job := range s.jobs {
		if !job.NextAttemptAt.After(now) {
			due = append(due, job)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *InMemoryJobStore) MarkDone(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *InMemoryJobStore) Reschedule(ctx context.Context, id string, attempts int, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	job.Attempts = attempts
	job.NextAttemptAt = next
	s.jobs[id] = job
	return nil
}

func (s *InMemoryJobStore) Depth(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs), nil
}
