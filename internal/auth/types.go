package auth

import "time"

// Organization is a tenant record. ID is assigned by the caller at creation
// and immutable afterwards. Deleting an organization does not cascade to its
// users; deletion ordering is the caller's responsibility.
type Organization struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// User is an identity record keyed by email. Password holds the salted
// one-way hash, never plaintext. Every non-admin user belongs to exactly one
// organization.
type User struct {
	Email            string `json:"email"`
	Password         string `json:"password,omitempty"`
	Role             Role   `json:"role"`
	OrganizationID   string `json:"organizationId,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// Redacted returns a copy with the credential hash stripped, safe for
// responses and logs.
func (u User) Redacted() User {
	u.Password = ""
	return u
}

// Token is an opaque session credential. User is a snapshot taken at issue
// time: directory updates after issuance do not alter an outstanding token.
type Token struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Redacted returns a copy whose user snapshot has the credential hash
// stripped.
func (t Token) Redacted() Token {
	t.User = t.User.Redacted()
	return t
}

// Expired reports whether the token is past its expiry at the given instant.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
