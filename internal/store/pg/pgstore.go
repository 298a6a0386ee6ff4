package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dcpr.org/internal/dcpr"
)

// Store implements dcpr.Store on PostgreSQL. Every mutating operation runs
// in one transaction covering the request row and its activity rows: the two
// writes succeed or fail together.
type Store struct {
	db *sql.DB
}

var _ dcpr.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle (used by tests).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const requestColumns = `
	csi_reference_id, status, owner_user, nsif_reviewer, csi_moderator,
	payload, nsif_review_notes, csi_moderation_notes, supporting_documents,
	submission_date, nsif_review_date, nsif_moderation_date, csi_moderation_date,
	created_at, updated_at`

func (s *Store) Insert(ctx context.Context, req *dcpr.Request, acts ...*dcpr.ManagementActivity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	docs, err := json.Marshal(req.SupportingDocs)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into dcpr_requests(`+requestColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, req.ReferenceID, string(req.Status), req.OwnerUser, req.NSIFReviewer, req.CSIModerator,
		[]byte(req.Payload), req.NSIFReviewNotes, req.CSIModerationNotes, docs,
		nullTime(req.SubmissionDate), nullTime(req.NSIFReviewDate),
		nullTime(req.NSIFModerationDate), nullTime(req.CSIModerationDate),
		req.CreatedAt, req.UpdatedAt); err != nil {
		return err
	}
	if err := insertActivities(ctx, tx, acts); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Get(ctx context.Context, referenceID string) (*dcpr.Request, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+requestColumns+` from dcpr_requests where csi_reference_id=$1`, referenceID)
	return scanRequest(row)
}

func (s *Store) Update(ctx context.Context, req *dcpr.Request, acts ...*dcpr.ManagementActivity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the row: the request is the mutually-exclusive resource for its
	// reference id.
	var dummy int
	err = tx.QueryRowContext(ctx,
		`select 1 from dcpr_requests where csi_reference_id=$1 for update`, req.ReferenceID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return dcpr.ErrNotFound
	}
	if err != nil {
		return err
	}

	docs, err := json.Marshal(req.SupportingDocs)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		update dcpr_requests set
			status=$2, owner_user=$3, nsif_reviewer=$4, csi_moderator=$5,
			payload=$6, nsif_review_notes=$7, csi_moderation_notes=$8, supporting_documents=$9,
			submission_date=$10, nsif_review_date=$11, nsif_moderation_date=$12, csi_moderation_date=$13,
			updated_at=$14
		where csi_reference_id=$1
	`, req.ReferenceID, string(req.Status), req.OwnerUser, req.NSIFReviewer, req.CSIModerator,
		[]byte(req.Payload), req.NSIFReviewNotes, req.CSIModerationNotes, docs,
		nullTime(req.SubmissionDate), nullTime(req.NSIFReviewDate),
		nullTime(req.NSIFModerationDate), nullTime(req.CSIModerationDate),
		req.UpdatedAt); err != nil {
		return err
	}
	if err := insertActivities(ctx, tx, acts); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ClaimReviewer(ctx context.Context, referenceID string, body dcpr.ReviewBody, reviewerID string, from, to dcpr.Status, act *dcpr.ManagementActivity) (*dcpr.Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	column := "nsif_reviewer"
	if body == dcpr.BodyCSI {
		column = "csi_moderator"
	}
	// Conditional bind: the status predicate makes concurrent claims
	// mutually exclusive; the loser sees zero affected rows.
	res, err := tx.ExecContext(ctx, `
		update dcpr_requests set status=$3, `+column+`=$4, updated_at=$5
		where csi_reference_id=$1 and status=$2
	`, referenceID, string(from), string(to), reviewerID, act.OccurredAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var dummy int
		err := tx.QueryRowContext(ctx,
			`select 1 from dcpr_requests where csi_reference_id=$1`, referenceID).Scan(&dummy)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dcpr.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, dcpr.NotAuthorized("request is no longer awaiting review")
	}
	if err := insertActivities(ctx, tx, []*dcpr.ManagementActivity{act}); err != nil {
		return nil, err
	}
	req, err := scanRequest(tx.QueryRowContext(ctx,
		`select `+requestColumns+` from dcpr_requests where csi_reference_id=$1`, referenceID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Store) Delete(ctx context.Context, referenceID string, act *dcpr.ManagementActivity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`delete from dcpr_requests where csi_reference_id=$1`, referenceID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return dcpr.ErrNotFound
	}
	// Activity rows are back-references, not children: they survive the
	// request row.
	if err := insertActivities(ctx, tx, []*dcpr.ManagementActivity{act}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*dcpr.Request, error) {
	return s.listRequests(ctx,
		`select `+requestColumns+` from dcpr_requests where owner_user=$1 order by created_at desc`, ownerID)
}

func (s *Store) ListPublic(ctx context.Context) ([]*dcpr.Request, error) {
	return s.listRequests(ctx, `
		select `+requestColumns+` from dcpr_requests
		where status in ($1,$2) order by updated_at desc
	`, string(dcpr.StatusAccepted), string(dcpr.StatusRejected))
}

func (s *Store) ListPendingReview(ctx context.Context, body dcpr.ReviewBody) ([]*dcpr.Request, error) {
	awaiting, under := dcpr.StatusAwaitingNSIFReview, dcpr.StatusUnderNSIFReview
	if body == dcpr.BodyCSI {
		awaiting, under = dcpr.StatusAwaitingCSIReview, dcpr.StatusUnderCSIReview
	}
	return s.listRequests(ctx, `
		select `+requestColumns+` from dcpr_requests
		where status in ($1,$2) order by submission_date asc
	`, string(awaiting), string(under))
}

func (s *Store) ListActivities(ctx context.Context, referenceID string) ([]*dcpr.ManagementActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, request_id, activity_type, actor, occurred_at
		from dcpr_management_activities
		where request_id=$1 order by occurred_at asc, id asc
	`, referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var acts []*dcpr.ManagementActivity
	for rows.Next() {
		var act dcpr.ManagementActivity
		var typ string
		if err := rows.Scan(&act.ID, &act.RequestID, &typ, &act.Actor, &act.OccurredAt); err != nil {
			return nil, err
		}
		act.Type = dcpr.ActivityType(typ)
		acts = append(acts, &act)
	}
	return acts, rows.Err()
}

// --- helpers ---

func insertActivities(ctx context.Context, tx *sql.Tx, acts []*dcpr.ManagementActivity) error {
	for _, act := range acts {
		if _, err := tx.ExecContext(ctx, `
			insert into dcpr_management_activities(id, request_id, activity_type, actor, occurred_at)
			values ($1,$2,$3,$4,$5)
		`, act.ID, act.RequestID, string(act.Type), act.Actor, act.OccurredAt); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*dcpr.Request, error) {
	var (
		req        dcpr.Request
		status     string
		payload    []byte
		docs       []byte
		submission sql.NullTime
		nsifReview sql.NullTime
		nsifMod    sql.NullTime
		csiMod     sql.NullTime
	)
	err := row.Scan(&req.ReferenceID, &status, &req.OwnerUser, &req.NSIFReviewer, &req.CSIModerator,
		&payload, &req.NSIFReviewNotes, &req.CSIModerationNotes, &docs,
		&submission, &nsifReview, &nsifMod, &csiMod,
		&req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dcpr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	req.Status = dcpr.Status(status)
	if len(payload) > 0 {
		req.Payload = json.RawMessage(payload)
	}
	if len(docs) > 0 {
		_ = json.Unmarshal(docs, &req.SupportingDocs)
	}
	req.SubmissionDate = timeOrNil(submission)
	req.NSIFReviewDate = timeOrNil(nsifReview)
	req.NSIFModerationDate = timeOrNil(nsifMod)
	req.CSIModerationDate = timeOrNil(csiMod)
	return &req, nil
}

func (s *Store) listRequests(ctx context.Context, query string, args ...any) ([]*dcpr.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*dcpr.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timeOrNil(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
