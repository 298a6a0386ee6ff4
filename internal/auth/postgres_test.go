package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGDirectoryFindUserByName(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("select id, name, email, password_hash, sysadmin, status, created_at, updated_at from users where name=").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "sysadmin", "status", "created_at", "updated_at"}).
			AddRow("u1", "bob", "bob@example.org", "argon2id$x$y", false, UserStatusActive, now, now))

	dir := NewPGDirectory(db)
	user, err := dir.FindUserByName(context.Background(), "bob")
	if err != nil {
		t.Fatalf("FindUserByName: %v", err)
	}
	if user.ID != "u1" || user.Name != "bob" || user.Status != UserStatusActive {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGDirectoryFindUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, name, email, password_hash, sysadmin, status, created_at, updated_at from users where id=").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "sysadmin", "status", "created_at", "updated_at"}))

	dir := NewPGDirectory(db)
	if _, err := dir.FindUser(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGDirectoryAddMemberUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into memberships").
		WithArgs("u1", "org-nsif", "reviewer").
		WillReturnResult(sqlmock.NewResult(0, 1))

	dir := NewPGDirectory(db)
	err = dir.AddMember(context.Background(), Membership{
		UserID:         "u1",
		OrganizationID: "org-nsif",
		Capacity:       "reviewer",
	})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGDirectoryOrganizationNames(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select o.name").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("CSI").AddRow("NSIF"))

	dir := NewPGDirectory(db)
	names, err := dir.OrganizationNames(context.Background(), "u1")
	if err != nil {
		t.Fatalf("OrganizationNames: %v", err)
	}
	if len(names) != 2 || names[0] != "CSI" || names[1] != "NSIF" {
		t.Fatalf("unexpected names: %v", names)
	}
}
