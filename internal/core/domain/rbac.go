package domain

// Role is a coarse-grained grant assigned to an account.
type Role string

const (
	RoleUser    Role = "user"
	RolePremium Role = "premium"
	RoleAdmin   Role = "admin"
	RoleSystem  Role = "system"
)

// Permission is a fine-grained capability derived from roles.
type Permission string

const (
	PermissionItemCreate Permission = "item:create"
	PermissionItemRead   Permission = "item:read"
	PermissionItemUpdate Permission = "item:update"
	PermissionItemDelete Permission = "item:delete"

	PermissionDomainRead   Permission = "domain:read"
	PermissionDomainManage Permission = "domain:manage"

	PermissionUserReadOwn   Permission = "user:read:own"
	PermissionUserUpdateOwn Permission = "user:update:own"
	PermissionUserDeleteOwn Permission = "user:delete:own"
	PermissionUserReadAny   Permission = "user:read:any"
	PermissionUserUpdateAny Permission = "user:update:any"
	PermissionUserDeleteAny Permission = "user:delete:any"

	PermissionAdminAccess        Permission = "admin:access"
	PermissionAdminManageUsers   Permission = "admin:manage:users"
	PermissionAdminManageDomains Permission = "admin:manage:domains"

	PermissionExportData Permission = "data:export"
	PermissionImportData Permission = "data:import"
)

// AllRoles lists every role the platform recognises.
var AllRoles = []Role{RoleUser, RolePremium, RoleAdmin, RoleSystem}

// AllPermissions lists every permission the platform recognises.
var AllPermissions = []Permission{
	PermissionItemCreate,
	PermissionItemRead,
	PermissionItemUpdate,
	PermissionItemDelete,
	PermissionDomainRead,
	PermissionDomainManage,
	PermissionUserReadOwn,
	PermissionUserUpdateOwn,
	PermissionUserDeleteOwn,
	PermissionUserReadAny,
	PermissionUserUpdateAny,
	PermissionUserDeleteAny,
	PermissionAdminAccess,
	PermissionAdminManageUsers,
	PermissionAdminManageDomains,
	PermissionExportData,
	PermissionImportData,
}

// PermissionsForRole returns the permission set a role grants. The mapping is
// the single source of truth for authorization across the platform: every
// role must map to a non-empty, deterministic set. Adding a Role constant
// without extending this switch grants nothing, so keep the two in sync.
func PermissionsForRole(role Role) map[Permission]struct{} {
	switch role {
	case RoleUser:
		return permissionSet(
			PermissionItemCreate,
			PermissionItemRead,
			PermissionItemUpdate,
			PermissionItemDelete,
			PermissionDomainRead,
			PermissionUserReadOwn,
			PermissionUserUpdateOwn,
		)
	case RolePremium:
		set := PermissionsForRole(RoleUser)
		set[PermissionExportData] = struct{}{}
		set[PermissionImportData] = struct{}{}
		return set
	case RoleAdmin:
		set := PermissionsForRole(RolePremium)
		set[PermissionAdminAccess] = struct{}{}
		set[PermissionAdminManageUsers] = struct{}{}
		set[PermissionAdminManageDomains] = struct{}{}
		set[PermissionDomainManage] = struct{}{}
		set[PermissionUserReadAny] = struct{}{}
		set[PermissionUserUpdateAny] = struct{}{}
		set[PermissionUserDeleteAny] = struct{}{}
		return set
	case RoleSystem:
		return permissionSet(AllPermissions...)
	default:
		return map[Permission]struct{}{}
	}
}

// DerivePermissions computes the union of grants for a role set.
func DerivePermissions(roles map[Role]struct{}) map[Permission]struct{} {
	derived := make(map[Permission]struct{})
	for role := range roles {
		for permission := range PermissionsForRole(role) {
			derived[permission] = struct{}{}
		}
	}
	return derived
}

func permissionSet(permissions ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	return set
}
