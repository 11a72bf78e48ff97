package domain

import "testing"

func TestPermissionsForRoleTotality(t *testing.T) {
	for _, role := range AllRoles {
		if len(PermissionsForRole(role)) == 0 {
			t.Errorf("role %q maps to no permissions", role)
		}
	}
	if len(PermissionsForRole(Role("unknown"))) != 0 {
		t.Error("unknown role must map to an empty set")
	}
}

func TestPermissionsForRoleSubsets(t *testing.T) {
	user := PermissionsForRole(RoleUser)
	premium := PermissionsForRole(RolePremium)
	admin := PermissionsForRole(RoleAdmin)
	system := PermissionsForRole(RoleSystem)

	requireSubset(t, "user within premium", user, premium)
	requireSubset(t, "premium within admin", premium, admin)
	requireSubset(t, "admin within system", admin, system)

	if len(system) != len(AllPermissions) {
		t.Errorf("system role grants %d permissions, want all %d", len(system), len(AllPermissions))
	}
	if _, ok := user[PermissionAdminAccess]; ok {
		t.Error("user role must not grant admin:access")
	}
	if _, ok := premium[PermissionExportData]; !ok {
		t.Error("premium role must grant data:export")
	}
}

func TestDerivePermissions(t *testing.T) {
	roles := map[Role]struct{}{RoleUser: {}, RolePremium: {}}
	derived := DerivePermissions(roles)

	requireSubset(t, "derived includes user grants", PermissionsForRole(RoleUser), derived)
	requireSubset(t, "derived includes premium grants", PermissionsForRole(RolePremium), derived)

	if len(DerivePermissions(nil)) != 0 {
		t.Error("empty role set must derive no permissions")
	}
}

func requireSubset(t *testing.T, label string, inner, outer map[Permission]struct{}) {
	t.Helper()
	for permission := range inner {
		if _, ok := outer[permission]; !ok {
			t.Errorf("%s: missing %q", label, permission)
		}
	}
}
