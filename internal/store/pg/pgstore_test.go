package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"dcpr.org/internal/dcpr"
)

var requestCols = []string{
	"csi_reference_id", "status", "owner_user", "nsif_reviewer", "csi_moderator",
	"payload", "nsif_review_notes", "csi_moderation_notes", "supporting_documents",
	"submission_date", "nsif_review_date", "nsif_moderation_date", "csi_moderation_date",
	"created_at", "updated_at",
}

func requestRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(requestCols).AddRow(
		"DCPR-1", string(dcpr.StatusAwaitingNSIFReview), "alice", "", "",
		[]byte(`{"proposed_project_name":"Coastal capture"}`), "", "", []byte(`["https://docs.example.org/a"]`),
		now, nil, nil, nil,
		now, now,
	)
}

func TestGetScansRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("select(.|\n)*from dcpr_requests where csi_reference_id=").
		WithArgs("DCPR-1").
		WillReturnRows(requestRow(now))

	store := NewStore(db)
	req, err := store.Get(context.Background(), "DCPR-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if req.ReferenceID != "DCPR-1" || req.Status != dcpr.StatusAwaitingNSIFReview {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.SubmissionDate == nil || !req.SubmissionDate.Equal(now) {
		t.Fatalf("submission date not scanned: %v", req.SubmissionDate)
	}
	if req.NSIFReviewDate != nil {
		t.Fatalf("null date must stay nil: %v", req.NSIFReviewDate)
	}
	if len(req.SupportingDocs) != 1 {
		t.Fatalf("supporting docs not decoded: %v", req.SupportingDocs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select(.|\n)*from dcpr_requests where csi_reference_id=").
		WithArgs("DCPR-MISSING").
		WillReturnRows(sqlmock.NewRows(requestCols))

	store := NewStore(db)
	if _, err := store.Get(context.Background(), "DCPR-MISSING"); !errors.Is(err, dcpr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCommitsRequestAndActivitiesTogether(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	req := &dcpr.Request{
		ReferenceID: "DCPR-1",
		Status:      dcpr.StatusUnderNSIFReview,
		OwnerUser:   "alice",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	act := &dcpr.ManagementActivity{
		ID:         "act-1",
		RequestID:  "DCPR-1",
		Type:       dcpr.ActivityBecomeNSIFReviewer,
		Actor:      "bob",
		OccurredAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from dcpr_requests where csi_reference_id=.* for update").
		WithArgs("DCPR-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("update dcpr_requests set").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into dcpr_management_activities").
		WithArgs("act-1", "DCPR-1", string(dcpr.ActivityBecomeNSIFReviewer), "bob", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewStore(db)
	if err := store.Update(context.Background(), req, act); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateRollsBackWhenActivityInsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	req := &dcpr.Request{ReferenceID: "DCPR-1", Status: dcpr.StatusUnderNSIFReview, UpdatedAt: now}
	act := &dcpr.ManagementActivity{ID: "act-1", RequestID: "DCPR-1", Type: dcpr.ActivityNSIFAccept, OccurredAt: now}

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from dcpr_requests where csi_reference_id=.* for update").
		WithArgs("DCPR-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("update dcpr_requests set").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into dcpr_management_activities").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	store := NewStore(db)
	if err := store.Update(context.Background(), req, act); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimReviewerWins(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	act := &dcpr.ManagementActivity{
		ID:         "act-1",
		RequestID:  "DCPR-1",
		Type:       dcpr.ActivityBecomeNSIFReviewer,
		Actor:      "bob",
		OccurredAt: now,
	}

	claimed := sqlmock.NewRows(requestCols).AddRow(
		"DCPR-1", string(dcpr.StatusUnderNSIFReview), "alice", "bob", "",
		[]byte(`{}`), "", "", []byte(`[]`),
		now, nil, nil, nil,
		now, now,
	)

	mock.ExpectBegin()
	mock.ExpectExec("update dcpr_requests set status=.*nsif_reviewer=").
		WithArgs("DCPR-1", string(dcpr.StatusAwaitingNSIFReview), string(dcpr.StatusUnderNSIFReview), "bob", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into dcpr_management_activities").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select(.|\n)*from dcpr_requests where csi_reference_id=").
		WithArgs("DCPR-1").
		WillReturnRows(claimed)
	mock.ExpectCommit()

	store := NewStore(db)
	req, err := store.ClaimReviewer(context.Background(), "DCPR-1", dcpr.BodyNSIF, "bob",
		dcpr.StatusAwaitingNSIFReview, dcpr.StatusUnderNSIFReview, act)
	if err != nil {
		t.Fatalf("ClaimReviewer: %v", err)
	}
	if req.NSIFReviewer != "bob" || req.Status != dcpr.StatusUnderNSIFReview {
		t.Fatalf("unexpected request: %+v", req)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimReviewerLosesRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	act := &dcpr.ManagementActivity{ID: "act-1", RequestID: "DCPR-1", OccurredAt: now}

	mock.ExpectBegin()
	mock.ExpectExec("update dcpr_requests set status=.*nsif_reviewer=").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select 1 from dcpr_requests where csi_reference_id=").
		WithArgs("DCPR-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	store := NewStore(db)
	_, err = store.ClaimReviewer(context.Background(), "DCPR-1", dcpr.BodyNSIF, "bob",
		dcpr.StatusAwaitingNSIFReview, dcpr.StatusUnderNSIFReview, act)
	var nerr *dcpr.NotAuthorizedError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NotAuthorizedError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteMissingRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("delete from dcpr_requests").
		WithArgs("DCPR-MISSING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	store := NewStore(db)
	act := &dcpr.ManagementActivity{ID: "act-1", RequestID: "DCPR-MISSING"}
	if err := store.Delete(context.Background(), "DCPR-MISSING", act); !errors.Is(err, dcpr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPendingReviewFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("select(.|\n)*from dcpr_requests(.|\n)*where status in").
		WithArgs(string(dcpr.StatusAwaitingCSIReview), string(dcpr.StatusUnderCSIReview)).
		WillReturnRows(requestRow(now))

	store := NewStore(db)
	items, err := store.ListPendingReview(context.Background(), dcpr.BodyCSI)
	if err != nil {
		t.Fatalf("ListPendingReview: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
