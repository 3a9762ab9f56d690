package auth

import "context"

// Directory is the account store consulted for users and organizations.
// Implementations must be safe for concurrent use. Absence is reported as
// ErrNotFound; any other failure is an infrastructure error and never an
// authorization decision.
type Directory interface {
	GetUser(ctx context.Context, email string) (User, error)
	StoreUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, email string) error
	ListUsers(ctx context.Context) ([]User, error)

	GetOrganization(ctx context.Context, id string) (Organization, error)
	StoreOrganization(ctx context.Context, org Organization) error
	DeleteOrganization(ctx context.Context, id string) error
	ListOrganizations(ctx context.Context) ([]Organization, error)
}

// TokenStore owns session tokens. Get treats expired tokens as absent and
// Revoke is idempotent: revoking an unknown token is not an error.
type TokenStore interface {
	Issue(ctx context.Context, u User) (Token, error)
	Get(ctx context.Context, id string) (Token, error)
	Revoke(ctx context.Context, id string) error
}
