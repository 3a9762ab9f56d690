package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var _ Directory = (*PGDirectory)(nil)

// PGDirectory implements Directory on PostgreSQL.
type PGDirectory struct {
	db *sql.DB
}

func NewPGDirectory(db *sql.DB) *PGDirectory {
	return &PGDirectory{db: db}
}

func (d *PGDirectory) GetUser(ctx context.Context, email string) (User, error) {
	row := d.db.QueryRowContext(ctx,
		`select email, password, role, organization_id, organization_name from users where email=$1`,
		email,
	)
	return scanUser(row)
}

func (d *PGDirectory) StoreUser(ctx context.Context, u User) error {
	_, err := d.db.ExecContext(ctx,
		`insert into users(email, password, role, organization_id, organization_name)
		 values($1,$2,$3,$4,$5)
		 on conflict (email) do update
		 set password=excluded.password, role=excluded.role,
		     organization_id=excluded.organization_id,
		     organization_name=excluded.organization_name`,
		u.Email, u.Password, string(u.Role), nullable(u.OrganizationID), nullable(u.OrganizationName),
	)
	return err
}

func (d *PGDirectory) DeleteUser(ctx context.Context, email string) error {
	_, err := d.db.ExecContext(ctx, `delete from users where email=$1`, email)
	return err
}

func (d *PGDirectory) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := d.db.QueryContext(ctx,
		`select email, password, role, organization_id, organization_name from users order by email asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (d *PGDirectory) GetOrganization(ctx context.Context, id string) (Organization, error) {
	row := d.db.QueryRowContext(ctx,
		`select id, name, description from organizations where id=$1`, id)
	var (
		org  Organization
		desc sql.NullString
	)
	if err := row.Scan(&org.ID, &org.Name, &desc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, err
	}
	org.Description = desc.String
	return org, nil
}

func (d *PGDirectory) StoreOrganization(ctx context.Context, org Organization) error {
	_, err := d.db.ExecContext(ctx,
		`insert into organizations(id, name, description) values($1,$2,$3)
		 on conflict (id) do update set name=excluded.name, description=excluded.description`,
		org.ID, org.Name, nullable(org.Description),
	)
	return err
}

func (d *PGDirectory) DeleteOrganization(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, `delete from organizations where id=$1`, id)
	return err
}

func (d *PGDirectory) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := d.db.QueryContext(ctx,
		`select id, name, description from organizations order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Organization
	for rows.Next() {
		var (
			org  Organization
			desc sql.NullString
		)
		if err := rows.Scan(&org.ID, &org.Name, &desc); err != nil {
			return nil, err
		}
		org.Description = desc.String
		res = append(res, org)
	}
	return res, rows.Err()
}

var _ TokenStore = (*PGTokens)(nil)

// PGTokens persists session tokens. The owning user is stored as a flattened
// snapshot so later directory updates cannot leak into outstanding sessions.
type PGTokens struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// PGTokensOption configures PGTokens.
type PGTokensOption func(*PGTokens)

// WithPGTokensClock overrides the time source (useful for tests).
func WithPGTokensClock(fn func() time.Time) PGTokensOption {
	return func(s *PGTokens) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewPGTokens(db *sql.DB, ttl time.Duration, opts ...PGTokensOption) *PGTokens {
	s := &PGTokens{db: db, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PGTokens) Issue(ctx context.Context, u User) (Token, error) {
	id, err := newTokenID()
	if err != nil {
		return Token{}, err
	}
	now := s.now().UTC()
	tok := Token{ID: id, User: u, IssuedAt: now, ExpiresAt: now.Add(s.ttl)}
	_, err = s.db.ExecContext(ctx,
		`insert into tokens(id, user_email, user_password, user_role, user_organization_id, user_organization_name, issued_at, expires_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		tok.ID, u.Email, u.Password, string(u.Role),
		nullable(u.OrganizationID), nullable(u.OrganizationName),
		tok.IssuedAt, tok.ExpiresAt,
	)
	if err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (s *PGTokens) Get(ctx context.Context, id string) (Token, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_email, user_password, user_role, user_organization_id, user_organization_name, issued_at, expires_at
		 from tokens where id=$1`, id)
	var (
		tok           Token
		role          string
		orgID, orgNam sql.NullString
	)
	if err := row.Scan(&tok.ID, &tok.User.Email, &tok.User.Password, &role,
		&orgID, &orgNam, &tok.IssuedAt, &tok.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Token{}, ErrNotFound
		}
		return Token{}, err
	}
	tok.User.Role = Role(role)
	tok.User.OrganizationID = orgID.String
	tok.User.OrganizationName = orgNam.String
	if tok.Expired(s.now()) {
		// Lazy expiration: the row is dead weight, drop it on the way out.
		_, _ = s.db.ExecContext(ctx, `delete from tokens where id=$1`, id)
		return Token{}, ErrNotFound
	}
	return tok, nil
}

func (s *PGTokens) Revoke(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from tokens where id=$1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u             User
		role          string
		orgID, orgNam sql.NullString
	)
	if err := row.Scan(&u.Email, &u.Password, &role, &orgID, &orgNam); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.Role = Role(role)
	u.OrganizationID = orgID.String
	u.OrganizationName = orgNam.String
	return u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
