package auth

import "context"

// Directory answers the identity and membership questions the workflow core
// depends on: who is this user, which organizations do they belong to, and
// are they a sysadmin.
type Directory interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	FindOrganizationByName(ctx context.Context, name string) (*Organization, error)

	CreateUser(ctx context.Context, u *User) error
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByName(ctx context.Context, name string) (*User, error)

	AddMember(ctx context.Context, m Membership) error
	OrganizationNames(ctx context.Context, userID string) ([]string, error)
}

// ResolvePrincipal loads a user and its memberships into a Principal.
func ResolvePrincipal(ctx context.Context, dir Directory, userID string) (Principal, error) {
	user, err := dir.FindUser(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	if user.Status != UserStatusActive {
		return Principal{}, ErrUnauthorized
	}
	orgs, err := dir.OrganizationNames(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		UserID:        user.ID,
		Name:          user.Name,
		Sysadmin:      user.Sysadmin,
		Organizations: orgs,
	}, nil
}

// Authenticate verifies a name/password pair against the directory.
func Authenticate(ctx context.Context, dir Directory, name, password string) (*User, error) {
	user, err := dir.FindUserByName(ctx, name)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Status != UserStatusActive {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
