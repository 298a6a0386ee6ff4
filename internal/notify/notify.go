// Package notify moves notification work out of the workflow transaction: a
// committed activity is referenced by a queued job, and a polling dispatcher
// delivers it with at-least-once semantics. Receivers are expected to handle
// duplicates idempotently.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is an ephemeral work item referencing one management activity.
type Job struct {
	ID            string    `json:"id"`
	ActivityID    string    `json:"activity_id"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// JobStore persists queued jobs.
type JobStore interface {
	Enqueue(ctx context.Context, job Job) error
	Due(ctx context.Context, now time.Time, limit int) ([]Job, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, attempts int, next time.Time) error
	Depth(ctx context.Context) (int, error)
}

// Notifier delivers one notification. Delivery may be retried; receivers must
// tolerate duplicates.
type Notifier interface {
	Notify(ctx context.Context, activityID string) error
}

// Queue implements the workflow service's NotificationQueue over a JobStore.
type Queue struct {
	store JobStore
	now   func() time.Time
}

// NewQueue constructs a Queue.
func NewQueue(store JobStore) *Queue {
	return &Queue{store: store, now: time.Now}
}

// Enqueue registers a job for the activity. Callers treat failures as
// non-fatal: the triggering transaction has already committed.
func (q *Queue) Enqueue(ctx context.Context, activityID string) error {
	now := q.now().UTC()
	return q.store.Enqueue(ctx, Job{
		ID:            uuid.NewString(),
		ActivityID:    activityID,
		NextAttemptAt: now,
		CreatedAt:     now,
	})
}
