package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTokenTTL bounds session lifetime when no TTL is configured.
const DefaultTokenTTL = time.Hour

// Service authenticates credentials and manages the session token lifecycle.
// Store handles are injected at construction so the service can be exercised
// against fakes.
type Service struct {
	dir    Directory
	tokens TokenStore
	salt   string
	log    zerolog.Logger
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithSalt sets the fixed salt fed into the password hash.
func WithSalt(salt string) ServiceOption {
	return func(s *Service) {
		s.salt = salt
	}
}

// WithLogger overrides the no-op default logger.
func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// NewService constructs a Service over the given directory and token store.
func NewService(dir Directory, tokens TokenStore, opts ...ServiceOption) (*Service, error) {
	if dir == nil {
		return nil, errors.New("auth: directory is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token store is required")
	}
	svc := &Service{
		dir:    dir,
		tokens: tokens,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// HashPassword hashes a plaintext credential with the service salt.
func (s *Service) HashPassword(password string) string {
	return HashPassword(s.salt, password)
}

// Authenticate verifies credentials and issues a session token. Unknown user
// and wrong password both come back as ErrAuthDenied; no token is issued and
// no other side effect happens on failure.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Token, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Token{}, ErrAuthDenied
	}
	user, err := s.dir.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Debug().Str("email", email).Msg("unknown user")
			return Token{}, ErrAuthDenied
		}
		return Token{}, err
	}
	if !VerifyPassword(user.Password, s.salt, password) {
		return Token{}, ErrAuthDenied
	}
	return s.tokens.Issue(ctx, user)
}

// Resolve returns the live session for a token id, or ErrNotFound when the
// token is absent, expired or revoked.
func (s *Service) Resolve(ctx context.Context, tokenID string) (Token, error) {
	if strings.TrimSpace(tokenID) == "" {
		return Token{}, ErrNotFound
	}
	return s.tokens.Get(ctx, tokenID)
}

// Invalidate revokes a session token. Revoking an unknown token is a no-op.
func (s *Service) Invalidate(ctx context.Context, tokenID string) error {
	if strings.TrimSpace(tokenID) == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, tokenID)
}
