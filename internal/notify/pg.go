package notify

import (
	"context"
	"database/sql"
	"time"
)

var _ JobStore = (*PGJobStore)(nil)

// PGJobStore implements JobStore on PostgreSQL. A single dispatcher polls
// the table; delivery is at-least-once across crashes.
type PGJobStore struct {
	db *sql.DB
}

func NewPGJobStore(db *sql.DB) *PGJobStore {
	return &PGJobStore{db: db}
}

func (s *PGJobStore) Enqueue(ctx context.Context, job Job) error {
	_, err := s.db.ExecContext(ctx, `
		insert into dcpr_notification_jobs(id, activity_id, attempts, next_attempt_at, created_at)
		values ($1,$2,$3,$4,$5)
	`, job.ID, job.ActivityID, job.Attempts, job.NextAttemptAt, job.CreatedAt)
	return err
}

func (s *PGJobStore) Due(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, activity_id, attempts, next_attempt_at, created_at
		from dcpr_notification_jobs
		where next_attempt_at <= $1
		order by next_attempt_at asc
		limit $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.ActivityID, &job.Attempts, &job.NextAttemptAt, &job.CreatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PGJobStore) MarkDone(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from dcpr_notification_jobs where id=$1`, id)
	return err
}

func (s *PGJobStore) Reschedule(ctx context.Context, id string, attempts int, next time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		update dcpr_notification_jobs set attempts=$2, next_attempt_at=$3 where id=$1
	`, id, attempts, next)
	return err
}

func (s *PGJobStore) Depth(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from dcpr_notification_jobs`).Scan(&n)
	return n, err
}
