package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"dcpr.org/internal/ids"
)

var _ Directory = (*PGDirectory)(nil)

// PGDirectory implements Directory using PostgreSQL.
type PGDirectory struct {
	db *sql.DB
}

func NewPGDirectory(db *sql.DB) *PGDirectory {
	return &PGDirectory{db: db}
}

func (d *PGDirectory) CreateOrganization(ctx context.Context, org *Organization) error {
	if strings.TrimSpace(org.Name) == "" {
		return ErrInvalidInput
	}
	if org.ID == "" {
		org.ID = ids.New()
	}
	_, err := d.db.ExecContext(ctx,
		`insert into organizations(id, name, title) values($1,$2,$3)`,
		org.ID, org.Name, org.Title,
	)
	return err
}

func (d *PGDirectory) FindOrganizationByName(ctx context.Context, name string) (*Organization, error) {
	row := d.db.QueryRowContext(ctx,
		`select id, name, title, created_at from organizations where name=$1`, name,
	)
	var org Organization
	if err := row.Scan(&org.ID, &org.Name, &org.Title, &org.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

func (d *PGDirectory) CreateUser(ctx context.Context, u *User) error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrInvalidInput
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	_, err := d.db.ExecContext(ctx,
		`insert into users(id, name, email, password_hash, sysadmin, status) values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Sysadmin, u.Status,
	)
	return err
}

func (d *PGDirectory) FindUser(ctx context.Context, id string) (*User, error) {
	return d.scanUser(d.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, sysadmin, status, created_at, updated_at from users where id=$1`, id,
	))
}

func (d *PGDirectory) FindUserByName(ctx context.Context, name string) (*User, error) {
	return d.scanUser(d.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, sysadmin, status, created_at, updated_at from users where name=$1`, name,
	))
}

func (d *PGDirectory) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Sysadmin, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *PGDirectory) AddMember(ctx context.Context, m Membership) error {
	if m.UserID == "" || m.OrganizationID == "" {
		return ErrInvalidInput
	}
	_, err := d.db.ExecContext(ctx, `
		insert into memberships(user_id, organization_id, capacity)
		values ($1,$2,$3)
		on conflict (user_id, organization_id) do update set capacity = excluded.capacity
	`, m.UserID, m.OrganizationID, m.Capacity)
	return err
}

func (d *PGDirectory) OrganizationNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		select o.name
		from memberships m
		join organizations o on o.id = m.organization_id
		where m.user_id = $1
		order by o.name asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
