package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"
)

const tokenIDBytes = 32

// newTokenID returns an unguessable token identifier. Uniqueness comes from
// the size of the random space, not from coordination between issuers.
func newTokenID() (string, error) {
	buf := make([]byte, tokenIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MemoryDirectory is a mutex-guarded Directory for tests and single-node
// deployments.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]User
	orgs  map[string]Organization
}

var _ Directory = (*MemoryDirectory)(nil)

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users: make(map[string]User),
		orgs:  make(map[string]Organization),
	}
}

func (d *MemoryDirectory) GetUser(_ context.Context, email string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (d *MemoryDirectory) StoreUser(_ context.Context, u User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.Email] = u
	return nil
}

func (d *MemoryDirectory) DeleteUser(_ context.Context, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, email)
	return nil
}

func (d *MemoryDirectory) ListUsers(_ context.Context) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (d *MemoryDirectory) GetOrganization(_ context.Context, id string) (Organization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	org, ok := d.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (d *MemoryDirectory) StoreOrganization(_ context.Context, org Organization) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.orgs[org.ID] = org
	return nil
}

func (d *MemoryDirectory) DeleteOrganization(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.orgs, id)
	return nil
}

func (d *MemoryDirectory) ListOrganizations(_ context.Context) ([]Organization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Organization, 0, len(d.orgs))
	for _, org := range d.orgs {
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryTokens keeps issued sessions in process memory. Expired tokens are
// treated as absent on read and purged opportunistically on writes.
type MemoryTokens struct {
	mu     sync.Mutex
	tokens map[string]Token
	ttl    time.Duration
	now    func() time.Time
}

var _ TokenStore = (*MemoryTokens)(nil)

// MemoryTokensOption configures MemoryTokens.
type MemoryTokensOption func(*MemoryTokens)

// WithTokensClock overrides the time source (useful for tests).
func WithTokensClock(fn func() time.Time) MemoryTokensOption {
	return func(s *MemoryTokens) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewMemoryTokens(ttl time.Duration, opts ...MemoryTokensOption) *MemoryTokens {
	s := &MemoryTokens{
		tokens: make(map[string]Token),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryTokens) Issue(_ context.Context, u User) (Token, error) {
	id, err := newTokenID()
	if err != nil {
		return Token{}, err
	}
	now := s.now().UTC()
	tok := Token{
		ID:        id,
		User:      u,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)
	s.tokens[id] = tok
	return tok, nil
}

func (s *MemoryTokens) Get(_ context.Context, id string) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok {
		return Token{}, ErrNotFound
	}
	if tok.Expired(s.now()) {
		delete(s.tokens, id)
		return Token{}, ErrNotFound
	}
	return tok, nil
}

func (s *MemoryTokens) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
	return nil
}

// Len reports the number of live sessions, counting not-yet-purged expired
// entries as gone.
func (s *MemoryTokens) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, tok := range s.tokens {
		if !tok.Expired(now) {
			n++
		}
	}
	return n
}

func (s *MemoryTokens) purgeLocked(now time.Time) {
	for id, tok := range s.tokens {
		if tok.Expired(now) {
			delete(s.tokens, id)
		}
	}
}
