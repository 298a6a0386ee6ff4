package auth

import "time"

// Organization is a participating body. The two reviewing organizations,
// NSIF and CSI, are seeded by migration and addressed by name.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a human or service account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Sysadmin     bool      `json:"sysadmin"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// Membership grants a user membership of an organization.
type Membership struct {
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Capacity       string    `json:"capacity,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Principal is an authenticated identity with its membership facts resolved.
type Principal struct {
	UserID        string
	Name          string
	Sysadmin      bool
	Organizations []string
}

// MemberOf reports membership in the named organization.
func (p Principal) MemberOf(org string) bool {
	for _, o := range p.Organizations {
		if o == org {
			return true
		}
	}
	return false
}
