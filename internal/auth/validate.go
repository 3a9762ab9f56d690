package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Denial is a structured authorization refusal: an HTTP-class status code
// and an operator-readable reason, decoupled from any transport.
type Denial struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

func deny(code int, format string, args ...any) *Denial {
	return &Denial{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Check is a single predicate in a validation chain. A nil Denial is a pass;
// a non-nil error is an infrastructure failure and aborts the chain (fail
// closed).
type Check func(ctx context.Context) (*Denial, error)

// Validator composes access checks over the account directory. Each check is
// a pure predicate of its inputs plus the directory lookups it performs.
type Validator struct {
	dir Directory
}

func NewValidator(dir Directory) (*Validator, error) {
	if dir == nil {
		return nil, errors.New("auth: directory is required")
	}
	return &Validator{dir: dir}, nil
}

// Validate runs checks in order and stops at the first denial or error. The
// checks are commutative predicates, so ordering only selects which reason
// is reported.
func (v *Validator) Validate(ctx context.Context, checks ...Check) (*Denial, error) {
	for _, check := range checks {
		d, err := check(ctx)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	return nil, nil
}

// OrganizationExists gates mutations on the target organization being known.
func (v *Validator) OrganizationExists(orgID string) Check {
	return func(ctx context.Context) (*Denial, error) {
		_, err := v.dir.GetOrganization(ctx, orgID)
		if errors.Is(err, ErrNotFound) {
			return deny(http.StatusNotFound, "organization %s doesn't exist", orgID), nil
		}
		if err != nil {
			return nil, err
		}
		return nil, nil
	}
}

// OrganizationAccess passes for top-tier actors and for members of the
// target organization.
func (v *Validator) OrganizationAccess(actor User, orgID string) Check {
	return func(context.Context) (*Denial, error) {
		if actor.Role.AtLeast(RoleAdmin) || actor.OrganizationID == orgID {
			return nil, nil
		}
		return deny(http.StatusForbidden,
			"user %s has no access to organization %s", actor.Email, orgID), nil
	}
}

// UserAccessByEmail denies when the target user exists outside the scope
// organization. An absent target passes; placement conflicts for new users
// are UserPlacement's job.
func (v *Validator) UserAccessByEmail(orgID, email string) Check {
	return func(ctx context.Context) (*Denial, error) {
		target, err := v.dir.GetUser(ctx, email)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if target.OrganizationID != orgID {
			return deny(http.StatusForbidden,
				"user %s belongs to a different organization", email), nil
		}
		return nil, nil
	}
}

// UserAccess is UserAccessByEmail for an already-bound user payload. It
// catches path/body disagreement when both supply an identity.
func (v *Validator) UserAccess(orgID string, target User) Check {
	return v.UserAccessByEmail(orgID, target.Email)
}

// UserPlacement rejects storing a user into an organization other than the
// one in scope, and re-homing a user who already belongs elsewhere.
func (v *Validator) UserPlacement(orgID string, target User) Check {
	return func(ctx context.Context) (*Denial, error) {
		if target.OrganizationID != orgID {
			return deny(http.StatusConflict,
				"cannot save user %s with organization %s to organization %s",
				target.Email, target.OrganizationID, orgID), nil
		}
		existing, err := v.dir.GetUser(ctx, target.Email)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if existing.OrganizationID != orgID {
			return deny(http.StatusConflict,
				"user %s is already present in another organization", target.Email), nil
		}
		return nil, nil
	}
}

// UserPrecedence stops a caller from granting a role more powerful than
// their own. Top-tier actors may grant anything.
func (v *Validator) UserPrecedence(actor User, targetRole Role) Check {
	return func(context.Context) (*Denial, error) {
		if actor.Role.AtLeast(RoleAdmin) {
			return nil, nil
		}
		if targetRole.Precedence() > actor.Role.Precedence() {
			return deny(http.StatusForbidden,
				"user with role %s can't grant role %s", actor.Role, targetRole), nil
		}
		return nil, nil
	}
}

// SelfService restricts plain user-tier callers to editing their own record.
// Organization admins and above act on others, subject to the other checks.
func (v *Validator) SelfService(actor User, targetEmail string) Check {
	return func(context.Context) (*Denial, error) {
		if actor.Role.AtLeast(RoleOrganizationAdmin) {
			return nil, nil
		}
		if actor.Email == targetEmail {
			return nil, nil
		}
		return deny(http.StatusForbidden,
			"user %s may only edit their own account", actor.Email), nil
	}
}
