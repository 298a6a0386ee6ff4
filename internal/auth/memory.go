package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"dcpr.org/internal/ids"
)

var _ Directory = (*InMemoryDirectory)(nil)

// InMemoryDirectory implements Directory in process. It backs the API when no
// database is configured and powers the test suites.
type InMemoryDirectory struct {
	mu          sync.RWMutex
	orgs        map[string]*Organization // by id
	orgsByName  map[string]string
	users       map[string]*User // by id
	usersByName map[string]string
	members     map[string]map[string]Membership // userID -> orgID
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		orgs:        make(map[string]*Organization),
		orgsByName:  make(map[string]string),
		users:       make(map[string]*User),
		usersByName: make(map[string]string),
		members:     make(map[string]map[string]Membership),
	}
}

func (d *InMemoryDirectory) CreateOrganization(ctx context.Context, org *Organization) error {
	if org.Name == "" {
		return ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.orgsByName[org.Name]; exists {
		return ErrAlreadyExists
	}
	if org.ID == "" {
		org.ID = ids.New()
	}
	org.CreatedAt = time.Now().UTC()
	cp := *org
	d.orgs[org.ID] = &cp
	d.orgsByName[org.Name] = org.ID
	return nil
}

func (d *InMemoryDirectory) FindOrganizationByName(ctx context.Context, name string) (*Organization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.orgsByName[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d.orgs[id]
	return &cp, nil
}

func (d *InMemoryDirectory) CreateUser(ctx context.Context, u *User) error {
	if u.Name == "" {
		return ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.usersByName[u.Name]; exists {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	d.users[u.ID] = &cp
	d.usersByName[u.Name] = u.ID
	return nil
}

func (d *InMemoryDirectory) FindUser(ctx context.Context, id string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *InMemoryDirectory) FindUserByName(ctx context.Context, name string) (*User, error) {
	d.mu.RLock()
	id, ok := d.usersByName[name]
	d.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return d.FindUser(ctx, id)
}

func (d *InMemoryDirectory) AddMember(ctx context.Context, m Membership) error {
	if m.UserID == "" || m.OrganizationID == "" {
		return ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[m.UserID]; !ok {
		return ErrNotFound
	}
	if _, ok := d.orgs[m.OrganizationID]; !ok {
		return ErrNotFound
	}
	m.CreatedAt = time.Now().UTC()
	if d.members[m.UserID] == nil {
		d.members[m.UserID] = make(map[string]Membership)
	}
	d.members[m.UserID][m.OrganizationID] = m
	return nil
}

func (d *InMemoryDirectory) OrganizationNames(ctx context.Context, userID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var names []string
	for orgID := range d.members[userID] {
		if org, ok := d.orgs[orgID]; ok {
			names = append(names, org.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}
