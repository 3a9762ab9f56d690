package auth

import "testing"

func TestRolePrecedenceTotalOrder(t *testing.T) {
	roles := []Role{RoleUser, RoleOrganizationAdmin, RoleAdmin}
	for _, a := range roles {
		for _, b := range roles {
			ab := a.AtLeast(b)
			ba := b.AtLeast(a)
			if a.Precedence() == b.Precedence() {
				if !ab || !ba {
					t.Fatalf("%s vs %s: equal precedence must satisfy both directions", a, b)
				}
				continue
			}
			if ab == ba {
				t.Fatalf("%s vs %s: exactly one direction must hold, got atLeast=%v both ways", a, b, ab)
			}
		}
	}
}

func TestRolePrecedenceOrdering(t *testing.T) {
	if !(RoleUser.Precedence() < RoleOrganizationAdmin.Precedence()) {
		t.Fatal("USER must rank below ORGANIZATION_ADMIN")
	}
	if !(RoleOrganizationAdmin.Precedence() < RoleAdmin.Precedence()) {
		t.Fatal("ORGANIZATION_ADMIN must rank below ADMIN")
	}
}

func TestUnknownRoleRanksBelowEverything(t *testing.T) {
	unknown := Role("AUDITOR")
	if unknown.Valid() {
		t.Fatal("unexpected valid role")
	}
	if unknown.AtLeast(RoleUser) {
		t.Fatal("unknown role must not reach USER authority")
	}
	if !RoleUser.AtLeast(unknown) {
		t.Fatal("defined roles must outrank unknown ones")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"ADMIN", RoleAdmin, false},
		{"admin", RoleAdmin, false},
		{"  organization_admin ", RoleOrganizationAdmin, false},
		{"USER", RoleUser, false},
		{"root", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := ParseRole(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseRole(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRole(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
