package auth

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func newTestValidator(t *testing.T) (*Validator, *MemoryDirectory) {
	t.Helper()
	dir := NewMemoryDirectory()
	v, err := NewValidator(dir)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v, dir
}

func TestOrganizationAccessGrid(t *testing.T) {
	v, _ := newTestValidator(t)
	ctx := context.Background()

	tests := []struct {
		role    Role
		userOrg string
		target  string
		allowed bool
	}{
		{RoleUser, "12345", "12345", true},
		{RoleUser, "12345", "98765", false},
		{RoleOrganizationAdmin, "12345", "12345", true},
		{RoleOrganizationAdmin, "12345", "98765", false},
		{RoleAdmin, "12345", "12345", true},
		{RoleAdmin, "12345", "98765", true},
	}
	for _, tc := range tests {
		actor := User{Email: "actor@example.com", Role: tc.role, OrganizationID: tc.userOrg}
		d, err := v.Validate(ctx, v.OrganizationAccess(actor, tc.target))
		if err != nil {
			t.Fatalf("%s/%s->%s: %v", tc.role, tc.userOrg, tc.target, err)
		}
		if (d == nil) != tc.allowed {
			t.Fatalf("%s in %s accessing %s: allowed=%v, want %v", tc.role, tc.userOrg, tc.target, d == nil, tc.allowed)
		}
		if d != nil && d.Code != http.StatusForbidden {
			t.Fatalf("expected 403 denial, got %d", d.Code)
		}
	}
}

func TestUserPrecedence(t *testing.T) {
	v, _ := newTestValidator(t)
	ctx := context.Background()

	tests := []struct {
		actor   Role
		target  Role
		allowed bool
	}{
		{RoleUser, RoleUser, true},
		{RoleUser, RoleOrganizationAdmin, false},
		{RoleUser, RoleAdmin, false},
		{RoleOrganizationAdmin, RoleUser, true},
		{RoleOrganizationAdmin, RoleOrganizationAdmin, true},
		{RoleOrganizationAdmin, RoleAdmin, false},
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleUser, true},
	}
	for _, tc := range tests {
		actor := User{Email: "actor@example.com", Role: tc.actor, OrganizationID: "12345"}
		d, err := v.Validate(ctx, v.UserPrecedence(actor, tc.target))
		if err != nil {
			t.Fatalf("%s grants %s: %v", tc.actor, tc.target, err)
		}
		if (d == nil) != tc.allowed {
			t.Fatalf("%s granting %s: allowed=%v, want %v", tc.actor, tc.target, d == nil, tc.allowed)
		}
		if d != nil && d.Code != http.StatusForbidden {
			t.Fatalf("expected 403 denial, got %d", d.Code)
		}
	}
}

func TestUserAccessByEmail(t *testing.T) {
	v, dir := newTestValidator(t)
	ctx := context.Background()

	member := User{Email: "member@example.com", Role: RoleUser, OrganizationID: "12345"}
	foreigner := User{Email: "foreign@example.com", Role: RoleUser, OrganizationID: "98765"}
	if err := dir.StoreUser(ctx, member); err != nil {
		t.Fatal(err)
	}
	if err := dir.StoreUser(ctx, foreigner); err != nil {
		t.Fatal(err)
	}

	if d, err := v.Validate(ctx, v.UserAccessByEmail("12345", member.Email)); err != nil || d != nil {
		t.Fatalf("same-org target must pass: %v, %v", d, err)
	}
	d, err := v.Validate(ctx, v.UserAccessByEmail("12345", foreigner.Email))
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Code != http.StatusForbidden {
		t.Fatalf("cross-org target must be denied with 403, got %#v", d)
	}
	// Absent target is not this check's concern.
	if d, err := v.Validate(ctx, v.UserAccessByEmail("12345", "ghost@example.com")); err != nil || d != nil {
		t.Fatalf("absent target must pass: %v, %v", d, err)
	}
}

func TestUserPlacement(t *testing.T) {
	v, dir := newTestValidator(t)
	ctx := context.Background()

	stranger := User{Email: "taken@example.com", Role: RoleUser, OrganizationID: "98765"}
	if err := dir.StoreUser(ctx, stranger); err != nil {
		t.Fatal(err)
	}

	// Body organization disagrees with the path scope.
	d, err := v.Validate(ctx, v.UserPlacement("12345", User{Email: "new@example.com", OrganizationID: "98765"}))
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Code != http.StatusConflict {
		t.Fatalf("expected 409 for mismatched placement, got %#v", d)
	}

	// Target already lives in another organization.
	d, err = v.Validate(ctx, v.UserPlacement("12345", User{Email: stranger.Email, OrganizationID: "12345"}))
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Code != http.StatusConflict {
		t.Fatalf("expected 409 for foreign resident, got %#v", d)
	}

	// Fresh user into the scoped organization is fine.
	if d, err := v.Validate(ctx, v.UserPlacement("12345", User{Email: "new@example.com", OrganizationID: "12345"})); err != nil || d != nil {
		t.Fatalf("expected pass, got %#v, %v", d, err)
	}
}

func TestSelfService(t *testing.T) {
	v, _ := newTestValidator(t)
	ctx := context.Background()

	plain := User{Email: "plain@example.com", Role: RoleUser, OrganizationID: "12345"}
	orgAdmin := User{Email: "boss@example.com", Role: RoleOrganizationAdmin, OrganizationID: "12345"}

	if d, _ := v.Validate(ctx, v.SelfService(plain, plain.Email)); d != nil {
		t.Fatalf("self edit must pass, got %#v", d)
	}
	if d, _ := v.Validate(ctx, v.SelfService(plain, "other@example.com")); d == nil || d.Code != http.StatusForbidden {
		t.Fatalf("plain user editing another must be denied, got %#v", d)
	}
	if d, _ := v.Validate(ctx, v.SelfService(orgAdmin, "other@example.com")); d != nil {
		t.Fatalf("org admin acting on others must pass, got %#v", d)
	}
}

func TestOrganizationExists(t *testing.T) {
	v, dir := newTestValidator(t)
	ctx := context.Background()

	d, err := v.Validate(ctx, v.OrganizationExists("12345"))
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown organization, got %#v", d)
	}

	if err := dir.StoreOrganization(ctx, Organization{ID: "12345", Name: "Fivedigits"}); err != nil {
		t.Fatal(err)
	}
	if d, err := v.Validate(ctx, v.OrganizationExists("12345")); err != nil || d != nil {
		t.Fatalf("expected pass, got %#v, %v", d, err)
	}
}

func TestValidateShortCircuitsOnFirstDenial(t *testing.T) {
	v, _ := newTestValidator(t)
	ctx := context.Background()

	called := false
	tail := Check(func(context.Context) (*Denial, error) {
		called = true
		return nil, nil
	})
	actor := User{Email: "plain@example.com", Role: RoleUser, OrganizationID: "12345"}

	d, err := v.Validate(ctx, v.OrganizationAccess(actor, "98765"), tail)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("expected denial")
	}
	if called {
		t.Fatal("checks after a denial must not run")
	}
}

// End-to-end scenario: organization and member provisioned, then a login
// resolves back to the same identity.
func TestLoginResolveScenario(t *testing.T) {
	dir := NewMemoryDirectory()
	tokens := NewMemoryTokens(time.Hour)
	svc, err := NewService(dir, tokens, WithSalt(testSalt))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := dir.StoreOrganization(ctx, Organization{ID: "12345", Name: "Fivedigits"}); err != nil {
		t.Fatal(err)
	}
	seedUser(t, dir, "worker@example.com", "secret", RoleUser, "12345")

	tok, err := svc.Authenticate(ctx, "worker@example.com", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	resolved, err := svc.Resolve(ctx, tok.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.User.Email != "worker@example.com" {
		t.Fatalf("resolved wrong user: %s", resolved.User.Email)
	}
}

// End-to-end scenario: a plain user may not park a new account in a foreign
// organization; the directory stays untouched.
func TestStoreUserConflictScenario(t *testing.T) {
	v, dir := newTestValidator(t)
	ctx := context.Background()

	if err := dir.StoreOrganization(ctx, Organization{ID: "12345", Name: "Fivedigits"}); err != nil {
		t.Fatal(err)
	}
	actor := User{Email: "plain@example.com", Role: RoleUser, OrganizationID: "12345"}
	newUser := User{Email: "new@example.com", Role: RoleUser, OrganizationID: "98765"}

	d, err := v.Validate(ctx,
		v.OrganizationExists("12345"),
		v.OrganizationAccess(actor, "12345"),
		v.UserPlacement("12345", newUser),
		v.UserPrecedence(actor, newUser.Role),
		v.SelfService(actor, newUser.Email),
	)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %#v", d)
	}
	if _, err := dir.GetUser(ctx, newUser.Email); err == nil {
		t.Fatal("directory must be unchanged after a denial")
	}
}

// End-to-end scenario: an organization admin cannot grant ADMIN.
func TestGrantAdminDeniedScenario(t *testing.T) {
	v, dir := newTestValidator(t)
	ctx := context.Background()

	if err := dir.StoreOrganization(ctx, Organization{ID: "12345", Name: "Fivedigits"}); err != nil {
		t.Fatal(err)
	}
	actor := User{Email: "boss@example.com", Role: RoleOrganizationAdmin, OrganizationID: "12345"}
	newUser := User{Email: "new@example.com", Role: RoleAdmin, OrganizationID: "12345"}

	d, err := v.Validate(ctx,
		v.OrganizationExists("12345"),
		v.OrganizationAccess(actor, "12345"),
		v.UserPlacement("12345", newUser),
		v.UserPrecedence(actor, newUser.Role),
		v.SelfService(actor, newUser.Email),
	)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %#v", d)
	}
	if _, err := dir.GetUser(ctx, newUser.Email); err == nil {
		t.Fatal("directory must be unchanged after a denial")
	}
}

// End-to-end scenario: a top-tier admin provisions another admin anywhere.
func TestAdminStoresAdminAnywhereScenario(t *testing.T) {
	v, dir := newTestValidator(t)
	ctx := context.Background()

	if err := dir.StoreOrganization(ctx, Organization{ID: "98765", Name: "Elsewhere"}); err != nil {
		t.Fatal(err)
	}
	actor := User{Email: "root@example.com", Role: RoleAdmin, OrganizationID: "12345"}
	newUser := User{Email: "new-admin@example.com", Role: RoleAdmin, OrganizationID: "98765"}

	d, err := v.Validate(ctx,
		v.OrganizationExists("98765"),
		v.OrganizationAccess(actor, "98765"),
		v.UserPlacement("98765", newUser),
		v.UserPrecedence(actor, newUser.Role),
		v.SelfService(actor, newUser.Email),
	)
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Fatalf("expected pass regardless of organization, got %#v", d)
	}
}
